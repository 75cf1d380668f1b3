// Package store defines the persistence boundary of the ledger.
//
// Every write the ledger performs goes through Store.WithTx, so a posting or
// a cancellation either commits as a unit or leaves no trace.
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/asientos/internal/audit"
	"github.com/cleared-dev/asientos/internal/model"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateKey is returned when an insert collides with a unique key.
	ErrDuplicateKey = errors.New("duplicate key")
)

// Store opens scoped transactions against the ledger database.
type Store interface {
	// WithTx runs fn inside one transaction. The transaction commits if fn
	// returns nil and rolls back on any error or panic.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// ReadOnly runs fn against a read-only view. Implementations may use a
	// transaction that is always rolled back.
	ReadOnly(ctx context.Context, fn func(tx Tx) error) error

	// RecordAudit appends a row to the activity log outside any ledger
	// transaction.
	RecordAudit(ctx context.Context, e audit.Entry) error

	Migrate(ctx context.Context) error
	Close() error
}

// LineFilter narrows a journal query.
type LineFilter struct {
	Account string
	From    string // inclusive, "2006-01-02"; empty = unbounded
	To      string // exclusive, "2006-01-02"; empty = unbounded
}

// JournalRow is one posted line joined with its header, for read-only
// journal reports.
type JournalRow struct {
	Header model.EntryHeader
	Line   model.Line
}

// Tx is the set of statements the ledger issues inside one transaction.
type Tx interface {
	// Chart of accounts.
	Accounts(ctx context.Context) ([]model.Account, error)
	Account(ctx context.Context, code string) (model.Account, error)
	InsertAccount(ctx context.Context, a model.Account) error
	UpdateAccount(ctx context.Context, a model.Account) error
	DeleteAccounts(ctx context.Context, codes []string) error
	AccountInUse(ctx context.Context, code string) (bool, error)

	// Entry headers and lines.
	Header(ctx context.Context, id string, forUpdate bool) (model.EntryHeader, error)
	HeaderByKey(ctx context.Context, typ string, folio int) (model.EntryHeader, error)
	NextFolio(ctx context.Context, typ string) (int, error)
	InsertHeader(ctx context.Context, h model.EntryHeader) error
	InsertLines(ctx context.Context, lines []model.Line) error
	Lines(ctx context.Context, headerID string) ([]model.Line, error)
	// TransitionStatus moves a header from one status to another and reports
	// whether a row changed. A false result means another writer got there
	// first.
	TransitionStatus(ctx context.Context, id string, from, to model.EntryStatus) (bool, error)
	JournalRows(ctx context.Context, f LineFilter) ([]JournalRow, error)

	// Period balances.
	Balance(ctx context.Context, account string, p model.Period) (model.PeriodBalance, error)
	// PriorBalance returns the latest balance row of the same granularity
	// strictly before p.
	PriorBalance(ctx context.Context, account string, p model.Period) (model.PeriodBalance, error)
	SaveBalance(ctx context.Context, b model.PeriodBalance) error
	// Movement sums debits and credits of lines posted to account whose
	// header is posted or cancelled and dated within p.
	Movement(ctx context.Context, account string, p model.Period) (debit, credit decimal.Decimal, err error)
}
