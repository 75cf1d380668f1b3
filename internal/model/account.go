package model

import "fmt"

// AccountCategory classifies accounts in the chart of accounts.
type AccountCategory string

const (
	CategoryAsset     AccountCategory = "asset"
	CategoryLiability AccountCategory = "liability"
	CategoryEquity    AccountCategory = "equity"
	CategoryIncome    AccountCategory = "income"
	CategoryExpense   AccountCategory = "expense"
)

// Nature fixes whether an account's balance grows with debits or credits.
type Nature string

const (
	NatureDebit  Nature = "debit"
	NatureCredit Nature = "credit"
)

// ParseNature accepts "debit"/"credit" and the Spanish "débito"/"crédito".
func ParseNature(s string) (Nature, error) {
	switch s {
	case "debit", "Debit", "débito", "Débito", "debito", "D":
		return NatureDebit, nil
	case "credit", "Credit", "crédito", "Crédito", "credito", "C":
		return NatureCredit, nil
	}
	return "", fmt.Errorf("unknown account nature %q", s)
}

// DefaultNature returns the usual nature for a category.
func (c AccountCategory) DefaultNature() Nature {
	switch c {
	case CategoryAsset, CategoryExpense:
		return NatureDebit
	default:
		return NatureCredit
	}
}

// Valid reports whether c is one of the known categories.
func (c AccountCategory) Valid() bool {
	switch c {
	case CategoryAsset, CategoryLiability, CategoryEquity, CategoryIncome, CategoryExpense:
		return true
	}
	return false
}

// Account is one entry in the chart of accounts.
type Account struct {
	Code     string // "1", "11", "1105"
	Name     string
	Category AccountCategory
	Level    int
	Parent   string // "" = top-level
	Nature   Nature
}
