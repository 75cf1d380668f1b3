package pgstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/asientos/internal/model"
	"github.com/cleared-dev/asientos/internal/store"
)

// newTestStore connects to ASIENTOS_TEST_DATABASE_URL. Tests use random
// voucher types and account codes so they can share a database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("ASIENTOS_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("ASIENTOS_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))
	return s
}

func TestPostAndCancelRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	suffix := uuid.NewString()[:8]
	cash, sales := "C"+suffix, "S"+suffix
	typ := "T" + suffix[:6]
	hid := uuid.NewString()
	date := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	amount := decimal.RequireFromString("1500.00")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.InsertAccount(ctx, model.Account{Code: cash, Name: "Caja", Category: model.CategoryAsset, Level: 4, Nature: model.NatureDebit}))
		require.NoError(t, tx.InsertAccount(ctx, model.Account{Code: sales, Name: "Ventas", Category: model.CategoryIncome, Level: 4, Nature: model.NatureCredit}))

		folio, err := tx.NextFolio(ctx, typ)
		require.NoError(t, err)
		assert.Equal(t, 1, folio)

		require.NoError(t, tx.InsertHeader(ctx, model.EntryHeader{
			ID: hid, Type: typ, Folio: folio, Date: date, Total: amount, Status: model.StatusPosted,
		}))
		return tx.InsertLines(ctx, []model.Line{
			{HeaderID: hid, Seq: 1, Account: cash, Debit: amount, Credit: decimal.Zero},
			{HeaderID: hid, Seq: 2, Account: sales, Debit: decimal.Zero, Credit: amount},
		})
	})
	require.NoError(t, err)

	err = s.WithTx(ctx, func(tx store.Tx) error {
		return tx.InsertHeader(ctx, model.EntryHeader{ID: uuid.NewString(), Type: typ, Folio: 1, Date: date, Status: model.StatusPosted})
	})
	assert.ErrorIs(t, err, store.ErrDuplicateKey)

	err = s.WithTx(ctx, func(tx store.Tx) error {
		h, err := tx.Header(ctx, hid, true)
		require.NoError(t, err)
		assert.True(t, h.Total.Equal(amount))

		ok, err := tx.TransitionStatus(ctx, hid, model.StatusPosted, model.StatusCancelled)
		require.NoError(t, err)
		assert.True(t, ok)

		d, c, err := tx.Movement(ctx, cash, model.Period{Year: 2025})
		require.NoError(t, err)
		assert.Equal(t, "1500.00", d.StringFixed(2))
		assert.True(t, c.IsZero())

		require.NoError(t, tx.SaveBalance(ctx, model.PeriodBalance{Account: cash, Period: model.Period{Year: 2025}, Opening: decimal.Zero, Closing: d}))
		b, err := tx.Balance(ctx, cash, model.Period{Year: 2025})
		require.NoError(t, err)
		assert.Equal(t, "1500.00", b.Closing.StringFixed(2))

		rows, err := tx.JournalRows(ctx, store.LineFilter{Account: sales})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, hid, rows[0].Header.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestHeaderNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.ReadOnly(ctx, func(tx store.Tx) error {
		_, err := tx.Header(ctx, uuid.NewString(), false)
		assert.ErrorIs(t, err, store.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}
