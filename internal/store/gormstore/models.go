package gormstore

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/asientos/internal/audit"
	"github.com/cleared-dev/asientos/internal/model"
)

// accountRow is the chart of accounts table.
type accountRow struct {
	Code     string `gorm:"primaryKey;size:32"`
	Name     string `gorm:"size:128;not null"`
	Category string `gorm:"size:16;not null"`
	Level    int    `gorm:"not null"`
	Parent   string `gorm:"size:32;index"`
	Nature   string `gorm:"size:8;not null"`
}

func (accountRow) TableName() string { return "accounts" }

// headerRow is the entry header ("comprobante") table.
type headerRow struct {
	ID         string          `gorm:"primaryKey;size:36"`
	Type       string          `gorm:"size:16;not null;uniqueIndex:idx_header_key"`
	Folio      int             `gorm:"not null;uniqueIndex:idx_header_key"`
	Date       time.Time       `gorm:"index;not null"`
	Memo       string          `gorm:"size:255"`
	Total      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Status     string          `gorm:"size:16;index;not null"`
	ClientID   string          `gorm:"size:64"`
	SupplierID string          `gorm:"size:64"`
	Journal    string          `gorm:"size:64"`
	ReversalOf string          `gorm:"size:36;index"`
	CreatedBy  string          `gorm:"size:64"`
	CreatedAt  time.Time
}

func (headerRow) TableName() string { return "entry_headers" }

// lineRow is the entry line ("asiento") table.
type lineRow struct {
	HeaderID   string          `gorm:"primaryKey;size:36"`
	Seq        int             `gorm:"primaryKey;autoIncrement:false"`
	Account    string          `gorm:"size:32;index;not null"`
	Debit      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Credit     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ClientID   string          `gorm:"size:64"`
	SupplierID string          `gorm:"size:64"`
	Detail     string          `gorm:"size:255"`
	Reference  string          `gorm:"size:64"`
}

func (lineRow) TableName() string { return "entry_lines" }

// balanceRow is the account period balance table.
type balanceRow struct {
	Account   string          `gorm:"primaryKey;size:32"`
	Period    string          `gorm:"primaryKey;size:7"`
	Opening   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Closing   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	UpdatedAt time.Time
}

func (balanceRow) TableName() string { return "period_balances" }

// auditRow is the activity log ("bitácora") table.
type auditRow struct {
	ID        uint      `gorm:"primaryKey"`
	Timestamp time.Time `gorm:"index;not null"`
	Actor     string    `gorm:"size:64"`
	Action    string    `gorm:"size:255"`
	Affected  string    `gorm:"column:table_name;size:64"`
	RecordID  string    `gorm:"size:64"`
	Origin    string    `gorm:"size:64"`
}

func (auditRow) TableName() string { return "activity_log" }

func toAccountRow(a model.Account) accountRow {
	return accountRow{
		Code:     a.Code,
		Name:     a.Name,
		Category: string(a.Category),
		Level:    a.Level,
		Parent:   a.Parent,
		Nature:   string(a.Nature),
	}
}

func (r accountRow) toModel() model.Account {
	return model.Account{
		Code:     r.Code,
		Name:     r.Name,
		Category: model.AccountCategory(r.Category),
		Level:    r.Level,
		Parent:   r.Parent,
		Nature:   model.Nature(r.Nature),
	}
}

func toHeaderRow(h model.EntryHeader) headerRow {
	return headerRow{
		ID:         h.ID,
		Type:       h.Type,
		Folio:      h.Folio,
		Date:       h.Date.UTC(),
		Memo:       h.Memo,
		Total:      h.Total,
		Status:     string(h.Status),
		ClientID:   h.ClientID,
		SupplierID: h.SupplierID,
		Journal:    h.Journal,
		ReversalOf: h.ReversalOf,
		CreatedBy:  h.CreatedBy,
		CreatedAt:  h.CreatedAt.UTC(),
	}
}

func (r headerRow) toModel() model.EntryHeader {
	return model.EntryHeader{
		ID:         r.ID,
		Type:       r.Type,
		Folio:      r.Folio,
		Date:       r.Date.UTC(),
		Memo:       r.Memo,
		Total:      r.Total,
		Status:     model.EntryStatus(r.Status),
		ClientID:   r.ClientID,
		SupplierID: r.SupplierID,
		Journal:    r.Journal,
		ReversalOf: r.ReversalOf,
		CreatedBy:  r.CreatedBy,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

func toLineRow(l model.Line) lineRow {
	return lineRow{
		HeaderID:   l.HeaderID,
		Seq:        l.Seq,
		Account:    l.Account,
		Debit:      l.Debit,
		Credit:     l.Credit,
		ClientID:   l.ClientID,
		SupplierID: l.SupplierID,
		Detail:     l.Detail,
		Reference:  l.Reference,
	}
}

func (r lineRow) toModel() model.Line {
	return model.Line{
		HeaderID:   r.HeaderID,
		Seq:        r.Seq,
		Account:    r.Account,
		Debit:      r.Debit,
		Credit:     r.Credit,
		ClientID:   r.ClientID,
		SupplierID: r.SupplierID,
		Detail:     r.Detail,
		Reference:  r.Reference,
	}
}

func toBalanceRow(b model.PeriodBalance) balanceRow {
	return balanceRow{
		Account:   b.Account,
		Period:    b.Period.String(),
		Opening:   b.Opening,
		Closing:   b.Closing,
		UpdatedAt: b.UpdatedAt.UTC(),
	}
}

func (r balanceRow) toModel() (model.PeriodBalance, error) {
	p, err := model.ParsePeriod(r.Period)
	if err != nil {
		return model.PeriodBalance{}, err
	}
	return model.PeriodBalance{
		Account:   r.Account,
		Period:    p,
		Opening:   r.Opening,
		Closing:   r.Closing,
		UpdatedAt: r.UpdatedAt.UTC(),
	}, nil
}

func toAuditRow(e audit.Entry) auditRow {
	return auditRow{
		Timestamp: e.Timestamp.UTC(),
		Actor:     e.Actor,
		Action:    e.Action,
		Affected:  e.Table,
		RecordID:  e.RecordID,
		Origin:    e.Origin,
	}
}
