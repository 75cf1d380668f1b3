package gormstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/asientos/internal/audit"
	"github.com/cleared-dev/asientos/internal/config"
	"github.com/cleared-dev/asientos/internal/model"
	"github.com/cleared-dev/asientos/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seed(t *testing.T, s *Store) {
	t.Helper()
	err := s.WithTx(context.Background(), func(tx store.Tx) error {
		ctx := context.Background()
		for _, a := range []model.Account{
			{Code: "1105", Name: "Caja", Category: model.CategoryAsset, Level: 4, Nature: model.NatureDebit},
			{Code: "4100", Name: "Ventas", Category: model.CategoryIncome, Level: 4, Nature: model.NatureCredit},
		} {
			if err := tx.InsertAccount(ctx, a); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func insertEntry(t *testing.T, s *Store, id string, folio int, date time.Time, status model.EntryStatus, amount string) {
	t.Helper()
	err := s.WithTx(context.Background(), func(tx store.Tx) error {
		ctx := context.Background()
		if err := tx.InsertHeader(ctx, model.EntryHeader{
			ID: id, Type: "CI", Folio: folio, Date: date, Total: dec(amount), Status: status,
		}); err != nil {
			return err
		}
		return tx.InsertLines(ctx, []model.Line{
			{HeaderID: id, Seq: 1, Account: "1105", Debit: dec(amount), Credit: decimal.Zero},
			{HeaderID: id, Seq: 2, Account: "4100", Debit: decimal.Zero, Credit: dec(amount)},
		})
	})
	require.NoError(t, err)
}

func TestAccounts(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	err := s.ReadOnly(ctx, func(tx store.Tx) error {
		accts, err := tx.Accounts(ctx)
		require.NoError(t, err)
		require.Len(t, accts, 2)
		assert.Equal(t, "1105", accts[0].Code)
		assert.Equal(t, model.NatureCredit, accts[1].Nature)

		_, err = tx.Account(ctx, "9999")
		assert.ErrorIs(t, err, store.ErrNotFound)
		return nil
	})
	require.NoError(t, err)

	err = s.WithTx(ctx, func(tx store.Tx) error {
		return tx.InsertAccount(ctx, model.Account{Code: "1105", Name: "dup", Category: model.CategoryAsset, Nature: model.NatureDebit})
	})
	assert.ErrorIs(t, err, store.ErrDuplicateKey)

	err = s.WithTx(ctx, func(tx store.Tx) error {
		a, err := tx.Account(ctx, "1105")
		require.NoError(t, err)
		a.Name = "Caja general"
		return tx.UpdateAccount(ctx, a)
	})
	require.NoError(t, err)

	err = s.ReadOnly(ctx, func(tx store.Tx) error {
		a, err := tx.Account(ctx, "1105")
		require.NoError(t, err)
		assert.Equal(t, "Caja general", a.Name)
		return nil
	})
	require.NoError(t, err)
}

func TestWithTx_RollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.InsertAccount(ctx, model.Account{Code: "1", Name: "Activo", Category: model.CategoryAsset, Nature: model.NatureDebit}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_ = s.ReadOnly(ctx, func(tx store.Tx) error {
		accts, err := tx.Accounts(ctx)
		require.NoError(t, err)
		assert.Empty(t, accts)
		return nil
	})
}

func TestHeadersAndFolios(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	_ = s.ReadOnly(ctx, func(tx store.Tx) error {
		n, err := tx.NextFolio(ctx, "CI")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		return nil
	})

	insertEntry(t, s, "h1", 1, day, model.StatusPosted, "100.00")
	insertEntry(t, s, "h2", 7, day, model.StatusPosted, "50.00")

	_ = s.ReadOnly(ctx, func(tx store.Tx) error {
		n, err := tx.NextFolio(ctx, "CI")
		require.NoError(t, err)
		assert.Equal(t, 8, n)

		h, err := tx.HeaderByKey(ctx, "CI", 7)
		require.NoError(t, err)
		assert.Equal(t, "h2", h.ID)
		assert.True(t, h.Total.Equal(dec("50")))
		assert.True(t, day.Equal(h.Date))

		lines, err := tx.Lines(ctx, "h1")
		require.NoError(t, err)
		require.Len(t, lines, 2)
		assert.Equal(t, 1, lines[0].Seq)
		assert.True(t, lines[0].Debit.Equal(dec("100")))
		assert.True(t, lines[1].Credit.Equal(dec("100")))
		return nil
	})

	err := s.WithTx(ctx, func(tx store.Tx) error {
		return tx.InsertHeader(ctx, model.EntryHeader{ID: "h3", Type: "CI", Folio: 1, Date: day, Status: model.StatusPosted})
	})
	assert.ErrorIs(t, err, store.ErrDuplicateKey)
}

func TestTransitionStatus(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()
	insertEntry(t, s, "h1", 1, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), model.StatusPosted, "10")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		h, err := tx.Header(ctx, "h1", true)
		require.NoError(t, err)
		assert.Equal(t, model.StatusPosted, h.Status)

		ok, err := tx.TransitionStatus(ctx, "h1", model.StatusPosted, model.StatusCancelled)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = tx.TransitionStatus(ctx, "h1", model.StatusPosted, model.StatusCancelled)
		require.NoError(t, err)
		assert.False(t, ok, "second transition must lose")

		_, err = tx.Header(ctx, "missing", true)
		assert.ErrorIs(t, err, store.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestMovement(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	insertEntry(t, s, "a", 1, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), model.StatusPosted, "100.00")
	insertEntry(t, s, "b", 2, time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC), model.StatusCancelled, "25.50")
	insertEntry(t, s, "c", 3, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), model.StatusPending, "999")
	insertEntry(t, s, "d", 4, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), model.StatusPosted, "7")

	_ = s.ReadOnly(ctx, func(tx store.Tx) error {
		d, c, err := tx.Movement(ctx, "1105", model.Period{Year: 2025})
		require.NoError(t, err)
		assert.Equal(t, "125.50", d.StringFixed(2))
		assert.True(t, c.IsZero())

		d, c, err = tx.Movement(ctx, "4100", model.Period{Year: 2025, Month: 12})
		require.NoError(t, err)
		assert.True(t, d.IsZero())
		assert.Equal(t, "25.50", c.StringFixed(2))

		used, err := tx.AccountInUse(ctx, "4100")
		require.NoError(t, err)
		assert.True(t, used)
		return nil
	})
}

func TestBalances(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx store.Tx) error {
		for _, b := range []model.PeriodBalance{
			{Account: "1105", Period: model.Period{Year: 2023}, Opening: dec("0"), Closing: dec("10")},
			{Account: "1105", Period: model.Period{Year: 2024}, Opening: dec("10"), Closing: dec("40")},
			{Account: "1105", Period: model.Period{Year: 2025, Month: 1}, Opening: dec("40"), Closing: dec("45")},
		} {
			if err := tx.SaveBalance(ctx, b); err != nil {
				return err
			}
		}
		// upsert replaces, never appends
		return tx.SaveBalance(ctx, model.PeriodBalance{Account: "1105", Period: model.Period{Year: 2024}, Opening: dec("10"), Closing: dec("50")})
	})
	require.NoError(t, err)

	_ = s.ReadOnly(ctx, func(tx store.Tx) error {
		b, err := tx.Balance(ctx, "1105", model.Period{Year: 2024})
		require.NoError(t, err)
		assert.Equal(t, "50.00", b.Closing.StringFixed(2))

		prior, err := tx.PriorBalance(ctx, "1105", model.Period{Year: 2026})
		require.NoError(t, err)
		assert.Equal(t, model.Period{Year: 2024}, prior.Period, "yearly lookup ignores monthly rows")

		prior, err = tx.PriorBalance(ctx, "1105", model.Period{Year: 2025, Month: 3})
		require.NoError(t, err)
		assert.Equal(t, model.Period{Year: 2025, Month: 1}, prior.Period)

		_, err = tx.PriorBalance(ctx, "1105", model.Period{Year: 2023})
		assert.ErrorIs(t, err, store.ErrNotFound)
		return nil
	})
}

func TestDeleteAccounts(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.SaveBalance(ctx, model.PeriodBalance{Account: "4100", Period: model.Period{Year: 2025}}))
		return tx.DeleteAccounts(ctx, []string{"4100"})
	})
	require.NoError(t, err)

	_ = s.ReadOnly(ctx, func(tx store.Tx) error {
		_, err := tx.Account(ctx, "4100")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = tx.Balance(ctx, "4100", model.Period{Year: 2025})
		assert.ErrorIs(t, err, store.ErrNotFound)
		return nil
	})
}

func TestJournalRows(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	insertEntry(t, s, "a", 2, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), model.StatusPosted, "10")
	insertEntry(t, s, "b", 1, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), model.StatusPosted, "20")
	insertEntry(t, s, "c", 3, time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), model.StatusPending, "30")

	_ = s.ReadOnly(ctx, func(tx store.Tx) error {
		rows, err := tx.JournalRows(ctx, store.LineFilter{})
		require.NoError(t, err)
		require.Len(t, rows, 4)
		assert.Equal(t, "b", rows[0].Header.ID)
		assert.Equal(t, "a", rows[3].Header.ID)

		rows, err = tx.JournalRows(ctx, store.LineFilter{Account: "4100", From: "2025-01-15"})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "a", rows[0].Header.ID)
		assert.Equal(t, "4100", rows[0].Line.Account)

		_, err = tx.JournalRows(ctx, store.LineFilter{From: "yesterday"})
		assert.Error(t, err)
		return nil
	})
}

func TestAuditLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordAudit(ctx, audit.Entry{
		Timestamp: time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC),
		Actor:     "jperez", Action: "cancelled entry", Table: "entry_headers", RecordID: "CI-000001", Origin: "cli",
	}))

	log, err := s.AuditLog(ctx)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, "entry_headers", log[0].Table)
	assert.Equal(t, "jperez", log[0].Actor)
}
