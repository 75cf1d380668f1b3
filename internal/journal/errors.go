package journal

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/asientos/internal/id"
	"github.com/cleared-dev/asientos/internal/model"
	"github.com/cleared-dev/asientos/internal/store"
)

// ErrValidationFailed matches every validation error via errors.Is.
var ErrValidationFailed = errors.New("validation failed")

// ledgerError marks the typed errors of this package so the service can
// tell them apart from raw storage failures.
type ledgerError interface {
	error
	ledger()
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

// TooFewLinesError is returned for entries with fewer than two lines.
type TooFewLinesError struct {
	Count int
}

func (e *TooFewLinesError) Error() string {
	return fmt.Sprintf("entry has %d line(s); at least 2 are required", e.Count)
}
func (e *TooFewLinesError) Is(target error) bool { return target == ErrValidationFailed }
func (e *TooFewLinesError) ledger()              {}

// MalformedLineError is returned when a line does not carry exactly one
// strictly positive side. Index is zero-based.
type MalformedLineError struct {
	Index  int
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("line %d must have exactly one positive side: debit %s, credit %s",
		e.Index+1, money(e.Debit), money(e.Credit))
}
func (e *MalformedLineError) Is(target error) bool { return target == ErrValidationFailed }
func (e *MalformedLineError) ledger()              {}

// PrecisionError is returned when a line amount has more than two decimal
// places. Index is zero-based.
type PrecisionError struct {
	Index  int
	Side   string
	Amount decimal.Decimal
}

func (e *PrecisionError) Error() string {
	return fmt.Sprintf("line %d %s %s has more than 2 decimal places", e.Index+1, e.Side, e.Amount)
}
func (e *PrecisionError) Is(target error) bool { return target == ErrValidationFailed }
func (e *PrecisionError) ledger()              {}

// UnbalancedEntryError is returned when debits and credits differ by more
// than the tolerance.
type UnbalancedEntryError struct {
	Debits  decimal.Decimal
	Credits decimal.Decimal
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("entry does not balance: debits %s, credits %s (difference %s)",
		money(e.Debits), money(e.Credits), money(e.Debits.Sub(e.Credits).Abs()))
}
func (e *UnbalancedEntryError) Is(target error) bool { return target == ErrValidationFailed }
func (e *UnbalancedEntryError) ledger()              {}

// TotalMismatchError is returned when the debit sum differs from the
// header's declared total.
type TotalMismatchError struct {
	Declared decimal.Decimal
	Computed decimal.Decimal
}

func (e *TotalMismatchError) Error() string {
	return fmt.Sprintf("declared total %s does not match line total %s",
		money(e.Declared), money(e.Computed))
}
func (e *TotalMismatchError) Is(target error) bool { return target == ErrValidationFailed }
func (e *TotalMismatchError) ledger()              {}

// AmbiguousCounterpartyError is returned when a line (or the header, with
// Index -1) names both a client and a supplier.
type AmbiguousCounterpartyError struct {
	Index      int
	ClientID   string
	SupplierID string
}

func (e *AmbiguousCounterpartyError) Error() string {
	where := "header"
	if e.Index >= 0 {
		where = fmt.Sprintf("line %d", e.Index+1)
	}
	return fmt.Sprintf("%s names both client %q and supplier %q", where, e.ClientID, e.SupplierID)
}
func (e *AmbiguousCounterpartyError) Is(target error) bool { return target == ErrValidationFailed }
func (e *AmbiguousCounterpartyError) ledger()              {}

// InvalidHeaderError is returned for a header with a missing or bad field.
type InvalidHeaderError struct {
	Field  string
	Reason string
}

func (e *InvalidHeaderError) Error() string {
	return fmt.Sprintf("invalid entry header %s: %s", e.Field, e.Reason)
}
func (e *InvalidHeaderError) Is(target error) bool { return target == ErrValidationFailed }
func (e *InvalidHeaderError) ledger()              {}

// NoLinesError is returned when cancelling an entry that has no lines.
type NoLinesError struct {
	HeaderID string
}

func (e *NoLinesError) Error() string {
	return fmt.Sprintf("entry %s has no lines to reverse", e.HeaderID)
}
func (e *NoLinesError) Is(target error) bool { return target == ErrValidationFailed }
func (e *NoLinesError) ledger()              {}

// NotFoundError is returned when a referenced header or account is missing.
type NotFoundError struct {
	Entity string // "entry" or "account"
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}
func (e *NotFoundError) Is(target error) bool { return target == store.ErrNotFound }
func (e *NotFoundError) ledger()              {}

// AlreadyCancelledError is returned when reversing a cancelled entry.
type AlreadyCancelledError struct {
	HeaderID string
	Key      string
}

func (e *AlreadyCancelledError) Error() string {
	return fmt.Sprintf("entry %s is already cancelled", e.Key)
}
func (e *AlreadyCancelledError) ledger() {}

// NotPostedError is returned when reversing an entry that was never posted.
type NotPostedError struct {
	HeaderID string
	Key      string
	Status   model.EntryStatus
}

func (e *NotPostedError) Error() string {
	return fmt.Sprintf("entry %s is %s; only posted entries can be cancelled", e.Key, e.Status)
}
func (e *NotPostedError) ledger() {}

// NotPendingError is returned when registering an entry that is not a draft.
type NotPendingError struct {
	HeaderID string
	Key      string
	Status   model.EntryStatus
}

func (e *NotPendingError) Error() string {
	return fmt.Sprintf("entry %s is %s; only pending entries can be registered", e.Key, e.Status)
}
func (e *NotPendingError) ledger() {}

// DuplicateKeyError is returned when (type, folio) is already taken.
type DuplicateKeyError struct {
	Type  string
	Folio int
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("entry %s already exists", id.FormatHeaderKey(e.Type, e.Folio))
}
func (e *DuplicateKeyError) Is(target error) bool { return target == store.ErrDuplicateKey }
func (e *DuplicateKeyError) ledger()              {}

// StorageError wraps a failure of the underlying store. The transaction it
// occurred in has been rolled back.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}
func (e *StorageError) Unwrap() error { return e.Err }
func (e *StorageError) ledger()       {}

// classify returns ledger errors unchanged and wraps anything else as a
// StorageError for op.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var le ledgerError
	if errors.As(err, &le) {
		return le
	}
	return &StorageError{Op: op, Err: err}
}
