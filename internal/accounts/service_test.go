package accounts

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/asientos/internal/config"
	"github.com/cleared-dev/asientos/internal/model"
	"github.com/cleared-dev/asientos/internal/store"
	"github.com/cleared-dev/asientos/internal/store/gormstore"
)

func newTestService(t *testing.T) (*Service, *gormstore.Store) {
	t.Helper()
	st, err := gormstore.Open(config.DatabaseConfig{DSN: filepath.Join(t.TempDir(), "ledger.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return NewService(st, nil), st
}

func seeded(t *testing.T) (*Service, *gormstore.Store) {
	t.Helper()
	svc, st := newTestService(t)
	n, err := svc.Seed(context.Background(), DefaultChart("comercial"))
	require.NoError(t, err)
	require.Equal(t, len(DefaultChart("comercial")), n)
	return svc, st
}

func TestSeed_Idempotent(t *testing.T) {
	svc, _ := seeded(t)

	n, err := svc.Seed(context.Background(), DefaultChart("comercial"))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	chart, err := svc.Chart(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(DefaultChart("comercial")), chart.Len())
}

func TestCreate(t *testing.T) {
	svc, _ := seeded(t)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, model.Account{Code: "1106", Name: "Caja chica", Category: model.CategoryAsset, Parent: "11"}))

	a, err := svc.Get(ctx, "1106")
	require.NoError(t, err)
	assert.Equal(t, model.NatureDebit, a.Nature)
	assert.Equal(t, 3, a.Level)

	err = svc.Create(ctx, model.Account{Code: "1106", Name: "dup", Category: model.CategoryAsset})
	assert.ErrorIs(t, err, store.ErrDuplicateKey)

	err = svc.Create(ctx, model.Account{Code: "7001", Name: "x", Category: model.CategoryAsset, Parent: "77"})
	assert.ErrorIs(t, err, ErrUnknownParent)

	err = svc.Create(ctx, model.Account{Code: "7002", Name: "x", Category: "revenue"})
	assert.ErrorIs(t, err, ErrInvalidAccount)

	_, err = svc.Get(ctx, "7001")
	assert.ErrorIs(t, err, ErrUnknownAccount)
}

func TestUpdate_NatureImmutable(t *testing.T) {
	svc, _ := seeded(t)
	ctx := context.Background()

	err := svc.Update(ctx, model.Account{Code: "1105", Name: "Caja", Category: model.CategoryAsset, Parent: "11", Nature: model.NatureCredit})
	assert.ErrorIs(t, err, ErrNatureImmutable)

	require.NoError(t, svc.Update(ctx, model.Account{Code: "1105", Name: "Caja general", Parent: "11"}))
	a, err := svc.Get(ctx, "1105")
	require.NoError(t, err)
	assert.Equal(t, "Caja general", a.Name)
	assert.Equal(t, model.NatureDebit, a.Nature)
	assert.Equal(t, model.CategoryAsset, a.Category)
}

func TestUpdate_Reparent(t *testing.T) {
	svc, _ := seeded(t)
	ctx := context.Background()

	err := svc.Update(ctx, model.Account{Code: "1", Name: "Activo", Parent: "1105"})
	assert.ErrorIs(t, err, ErrCycle)

	// Move "11" under "12": it and its children move one level deeper.
	require.NoError(t, svc.Update(ctx, model.Account{Code: "11", Name: "Activo corriente", Parent: "12"}))
	chart, err := svc.Chart(ctx)
	require.NoError(t, err)
	a, _ := chart.Get("11")
	assert.Equal(t, 3, a.Level)
	a, _ = chart.Get("1105")
	assert.Equal(t, 4, a.Level)

	err = svc.Update(ctx, model.Account{Code: "9999", Name: "x"})
	assert.ErrorIs(t, err, ErrUnknownAccount)
}

func TestDelete_Cascade(t *testing.T) {
	svc, _ := seeded(t)
	ctx := context.Background()

	deleted, err := svc.Delete(ctx, "12")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"12", "1205"}, deleted)

	chart, err := svc.Chart(ctx)
	require.NoError(t, err)
	assert.False(t, chart.Exists("1205"))
	assert.True(t, chart.Exists("1"))

	_, err = svc.Delete(ctx, "12")
	assert.ErrorIs(t, err, ErrUnknownAccount)
}

func TestDelete_RefusedWhileInUse(t *testing.T) {
	svc, st := seeded(t)
	ctx := context.Background()

	err := st.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.InsertHeader(ctx, model.EntryHeader{
			ID: "h1", Type: "CI", Folio: 1, Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			Total: decimal.NewFromInt(5), Status: model.StatusPosted,
		}); err != nil {
			return err
		}
		return tx.InsertLines(ctx, []model.Line{
			{HeaderID: "h1", Seq: 1, Account: "1105", Debit: decimal.NewFromInt(5), Credit: decimal.Zero},
			{HeaderID: "h1", Seq: 2, Account: "4100", Debit: decimal.Zero, Credit: decimal.NewFromInt(5)},
		})
	})
	require.NoError(t, err)

	_, err = svc.Delete(ctx, "11")
	assert.ErrorIs(t, err, ErrAccountInUse)

	chart, err := svc.Chart(ctx)
	require.NoError(t, err)
	assert.True(t, chart.Exists("11"), "nothing is deleted when a descendant is in use")
	assert.True(t, chart.Exists("1110"))
}

func TestImportExport(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Children before parents still import.
	in := strings.Join(Header, ",") + "\n" +
		"1105,Caja,asset,,11,\n" +
		"11,Activo corriente,asset,,1,\n" +
		"1,Activo,asset,,,\n"
	n, err := svc.Import(ctx, strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(ctx, &buf))
	got, err := ReadAccounts(&buf)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "1", got[0].Code)
	assert.Equal(t, 1, got[0].Level)
	assert.Equal(t, 3, got[2].Level)
	assert.Equal(t, model.NatureDebit, got[2].Nature)

	_, err = svc.Import(ctx, strings.NewReader(in))
	assert.ErrorIs(t, err, store.ErrDuplicateKey)
}

func TestImport_Testdata(t *testing.T) {
	svc, _ := newTestService(t)

	f, err := os.Open("../../testdata/chart-of-accounts.csv")
	require.NoError(t, err)
	defer f.Close()

	n, err := svc.Import(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 11, n)
}

func TestImport_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	orphan := strings.Join(Header, ",") + "\n1105,Caja,asset,,11,\n"
	_, err := svc.Import(ctx, strings.NewReader(orphan))
	assert.ErrorIs(t, err, ErrUnknownParent)

	loop := strings.Join(Header, ",") + "\nA,a,asset,,B,\nB,b,asset,,A,\n"
	_, err = svc.Import(ctx, strings.NewReader(loop))
	assert.ErrorIs(t, err, ErrCycle)

	chart, err := svc.Chart(ctx)
	require.NoError(t, err)
	assert.Zero(t, chart.Len(), "failed imports leave nothing behind")
}
