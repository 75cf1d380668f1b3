package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryStatus represents the lifecycle state of an entry header.
type EntryStatus string

const (
	StatusPending   EntryStatus = "pending"
	StatusPosted    EntryStatus = "posted"
	StatusCancelled EntryStatus = "cancelled"
)

// EntryHeader is a voucher ("comprobante") grouping the lines of one entry.
type EntryHeader struct {
	ID         string    // surrogate key
	Type       string    // voucher type, e.g. "CD"
	Folio      int       // sequential per type; (Type, Folio) is unique
	Date       time.Time //nolint:revive // plain field name is clearest
	Memo       string
	Total      decimal.Decimal // declared total, compared against the debit sum
	Status     EntryStatus
	ClientID   string // client XOR supplier
	SupplierID string
	Journal    string // grouping reference shared by a reversal and its original
	ReversalOf string // ID of the header this one annuls
	CreatedBy  string
	CreatedAt  time.Time
}

// Line is a single debit or credit ("partida") of an entry.
type Line struct {
	HeaderID   string
	Seq        int
	Account    string
	Debit      decimal.Decimal // zero if credit side
	Credit     decimal.Decimal // zero if debit side
	ClientID   string
	SupplierID string
	Detail     string
	Reference  string
}

// IsDebit reports whether the line carries its amount on the debit side.
func (l Line) IsDebit() bool {
	return l.Debit.IsPositive()
}

// Amount returns the non-zero side of the line.
func (l Line) Amount() decimal.Decimal {
	if l.IsDebit() {
		return l.Debit
	}
	return l.Credit
}
