package accounts

import "github.com/cleared-dev/asientos/internal/model"

// DefaultChart returns the default chart of accounts for a kind of business.
func DefaultChart(kind string) []model.Account {
	switch kind {
	case "comercial":
		return commercialChart()
	default:
		return commercialChart()
	}
}

func acct(code, name string, cat model.AccountCategory, parent string) model.Account {
	level := 1
	switch {
	case len(code) == 2:
		level = 2
	case len(code) > 2:
		level = 3
	}
	return model.Account{
		Code:     code,
		Name:     name,
		Category: cat,
		Level:    level,
		Parent:   parent,
		Nature:   cat.DefaultNature(),
	}
}

func commercialChart() []model.Account {
	const (
		asset     = model.CategoryAsset
		liability = model.CategoryLiability
		equity    = model.CategoryEquity
		income    = model.CategoryIncome
		expense   = model.CategoryExpense
	)
	return []model.Account{
		acct("1", "Activo", asset, ""),
		acct("11", "Activo corriente", asset, "1"),
		acct("1105", "Caja", asset, "11"),
		acct("1110", "Bancos", asset, "11"),
		acct("1120", "Cuentas por cobrar clientes", asset, "11"),
		acct("1130", "Inventario de mercadería", asset, "11"),
		acct("12", "Activo no corriente", asset, "1"),
		acct("1205", "Propiedad, planta y equipo", asset, "12"),
		acct("2", "Pasivo", liability, ""),
		acct("21", "Pasivo corriente", liability, "2"),
		acct("2105", "Proveedores", liability, "21"),
		acct("2110", "Impuestos por pagar", liability, "21"),
		acct("3", "Patrimonio", equity, ""),
		acct("31", "Capital", equity, "3"),
		acct("3105", "Capital social", equity, "31"),
		acct("3110", "Utilidades retenidas", equity, "31"),
		acct("4", "Ingresos", income, ""),
		acct("41", "Ingresos de operación", income, "4"),
		acct("4100", "Ventas", income, "41"),
		acct("4105", "Servicios prestados", income, "41"),
		acct("5", "Gastos", expense, ""),
		acct("51", "Gastos de operación", expense, "5"),
		acct("5105", "Sueldos y salarios", expense, "51"),
		acct("5110", "Alquileres", expense, "51"),
		acct("5115", "Servicios públicos", expense, "51"),
	}
}
