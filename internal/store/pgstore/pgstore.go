// Package pgstore implements store.Store directly on PostgreSQL via pgx.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/asientos/internal/audit"
	"github.com/cleared-dev/asientos/internal/model"
	"github.com/cleared-dev/asientos/internal/store"
)

const uniqueViolation = "23505"

// Store holds the connection pool.
type Store struct {
	Pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// Connect creates a new database connection pool.
func Connect(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{Pool: pool}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.Pool != nil {
		s.Pool.Close()
	}
	return nil
}

// Migrate creates any missing tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// WithTx implements store.Store.
func (s *Store) WithTx(ctx context.Context, fn func(store.Tx) error) error {
	return pgx.BeginFunc(ctx, s.Pool, func(t pgx.Tx) error {
		return fn(&tx{t: t})
	})
}

// ReadOnly implements store.Store.
func (s *Store) ReadOnly(ctx context.Context, fn func(store.Tx) error) error {
	return pgx.BeginTxFunc(ctx, s.Pool, pgx.TxOptions{AccessMode: pgx.ReadOnly}, func(t pgx.Tx) error {
		return fn(&tx{t: t})
	})
}

// RecordAudit implements store.Store.
func (s *Store) RecordAudit(ctx context.Context, e audit.Entry) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO activity_log (timestamp, actor, action, table_name, record_id, origin)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.Timestamp.UTC(), e.Actor, e.Action, e.Table, e.RecordID, e.Origin)
	if err != nil {
		return fmt.Errorf("failed to insert activity log: %w", err)
	}
	return nil
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", store.ErrDuplicateKey, pgErr.ConstraintName)
	}
	return err
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse amount %q: %w", s, err)
	}
	return d, nil
}

type tx struct {
	t pgx.Tx
}

func (t *tx) Accounts(ctx context.Context) ([]model.Account, error) {
	rows, err := t.t.Query(ctx, `SELECT code, name, category, level, parent, nature FROM accounts ORDER BY code`)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, translate(rows.Err())
}

func scanAccount(row pgx.Row) (model.Account, error) {
	var a model.Account
	var category, nature string
	if err := row.Scan(&a.Code, &a.Name, &category, &a.Level, &a.Parent, &nature); err != nil {
		return model.Account{}, translate(err)
	}
	a.Category = model.AccountCategory(category)
	a.Nature = model.Nature(nature)
	return a, nil
}

func (t *tx) Account(ctx context.Context, code string) (model.Account, error) {
	return scanAccount(t.t.QueryRow(ctx,
		`SELECT code, name, category, level, parent, nature FROM accounts WHERE code = $1`, code))
}

func (t *tx) InsertAccount(ctx context.Context, a model.Account) error {
	_, err := t.t.Exec(ctx, `
		INSERT INTO accounts (code, name, category, level, parent, nature)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.Code, a.Name, string(a.Category), a.Level, a.Parent, string(a.Nature))
	return translate(err)
}

func (t *tx) UpdateAccount(ctx context.Context, a model.Account) error {
	tag, err := t.t.Exec(ctx, `
		UPDATE accounts SET name = $2, category = $3, level = $4, parent = $5, nature = $6
		WHERE code = $1`,
		a.Code, a.Name, string(a.Category), a.Level, a.Parent, string(a.Nature))
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *tx) DeleteAccounts(ctx context.Context, codes []string) error {
	if len(codes) == 0 {
		return nil
	}
	if _, err := t.t.Exec(ctx, `DELETE FROM period_balances WHERE account = ANY($1)`, codes); err != nil {
		return translate(err)
	}
	_, err := t.t.Exec(ctx, `DELETE FROM accounts WHERE code = ANY($1)`, codes)
	return translate(err)
}

func (t *tx) AccountInUse(ctx context.Context, code string) (bool, error) {
	var used bool
	err := t.t.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM entry_lines WHERE account = $1)`, code).Scan(&used)
	return used, translate(err)
}

const headerColumns = `id, type, folio, date, memo, total::text, status, client_id, supplier_id, journal, reversal_of, created_by, created_at`

func scanHeader(row pgx.Row) (model.EntryHeader, error) {
	var h model.EntryHeader
	var total, status string
	err := row.Scan(&h.ID, &h.Type, &h.Folio, &h.Date, &h.Memo, &total, &status,
		&h.ClientID, &h.SupplierID, &h.Journal, &h.ReversalOf, &h.CreatedBy, &h.CreatedAt)
	if err != nil {
		return model.EntryHeader{}, translate(err)
	}
	if h.Total, err = parseAmount(total); err != nil {
		return model.EntryHeader{}, err
	}
	h.Status = model.EntryStatus(status)
	h.Date = h.Date.UTC()
	h.CreatedAt = h.CreatedAt.UTC()
	return h, nil
}

func (t *tx) Header(ctx context.Context, id string, forUpdate bool) (model.EntryHeader, error) {
	q := `SELECT ` + headerColumns + ` FROM entry_headers WHERE id = $1`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	return scanHeader(t.t.QueryRow(ctx, q, id))
}

func (t *tx) HeaderByKey(ctx context.Context, typ string, folio int) (model.EntryHeader, error) {
	return scanHeader(t.t.QueryRow(ctx,
		`SELECT `+headerColumns+` FROM entry_headers WHERE type = $1 AND folio = $2`, typ, folio))
}

func (t *tx) NextFolio(ctx context.Context, typ string) (int, error) {
	var next int
	err := t.t.QueryRow(ctx, `SELECT COALESCE(MAX(folio), 0) + 1 FROM entry_headers WHERE type = $1`, typ).Scan(&next)
	return next, translate(err)
}

func (t *tx) InsertHeader(ctx context.Context, h model.EntryHeader) error {
	createdAt := h.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := t.t.Exec(ctx, `
		INSERT INTO entry_headers (id, type, folio, date, memo, total, status,
			client_id, supplier_id, journal, reversal_of, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		h.ID, h.Type, h.Folio, h.Date.UTC(), h.Memo, h.Total.String(), string(h.Status),
		h.ClientID, h.SupplierID, h.Journal, h.ReversalOf, h.CreatedBy, createdAt.UTC())
	return translate(err)
}

func (t *tx) InsertLines(ctx context.Context, lines []model.Line) error {
	if len(lines) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, l := range lines {
		batch.Queue(`
			INSERT INTO entry_lines (header_id, seq, account, debit, credit,
				client_id, supplier_id, detail, reference)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			l.HeaderID, l.Seq, l.Account, l.Debit.String(), l.Credit.String(),
			l.ClientID, l.SupplierID, l.Detail, l.Reference)
	}

	br := t.t.SendBatch(ctx, batch)
	defer br.Close()

	for range lines {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert line: %w", translate(err))
		}
	}
	return nil
}

const lineColumns = `header_id, seq, account, debit::text, credit::text, client_id, supplier_id, detail, reference`

func scanLine(row pgx.Row) (model.Line, error) {
	var l model.Line
	var debit, credit string
	err := row.Scan(&l.HeaderID, &l.Seq, &l.Account, &debit, &credit,
		&l.ClientID, &l.SupplierID, &l.Detail, &l.Reference)
	if err != nil {
		return model.Line{}, translate(err)
	}
	if l.Debit, err = parseAmount(debit); err != nil {
		return model.Line{}, err
	}
	if l.Credit, err = parseAmount(credit); err != nil {
		return model.Line{}, err
	}
	return l, nil
}

func (t *tx) Lines(ctx context.Context, headerID string) ([]model.Line, error) {
	rows, err := t.t.Query(ctx, `SELECT `+lineColumns+` FROM entry_lines WHERE header_id = $1 ORDER BY seq`, headerID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var out []model.Line
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, translate(rows.Err())
}

func (t *tx) TransitionStatus(ctx context.Context, id string, from, to model.EntryStatus) (bool, error) {
	tag, err := t.t.Exec(ctx, `UPDATE entry_headers SET status = $3 WHERE id = $1 AND status = $2`,
		id, string(from), string(to))
	if err != nil {
		return false, translate(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *tx) JournalRows(ctx context.Context, f store.LineFilter) ([]store.JournalRow, error) {
	q := `SELECT h.id, h.type, h.folio, h.date, h.memo, h.total::text, h.status, h.client_id, h.supplier_id,
			h.journal, h.reversal_of, h.created_by, h.created_at,
			l.header_id, l.seq, l.account, l.debit::text, l.credit::text, l.client_id, l.supplier_id, l.detail, l.reference
		FROM entry_lines l
		JOIN entry_headers h ON h.id = l.header_id
		WHERE h.status IN ('posted', 'cancelled')
		  AND ($1 = '' OR l.account = $1)
		  AND ($2 = '' OR h.date >= $2::date)
		  AND ($3 = '' OR h.date < $3::date)
		ORDER BY h.date, h.type, h.folio, l.seq`

	rows, err := t.t.Query(ctx, q, f.Account, f.From, f.To)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var out []store.JournalRow
	for rows.Next() {
		var r store.JournalRow
		var total, status, debit, credit string
		err := rows.Scan(
			&r.Header.ID, &r.Header.Type, &r.Header.Folio, &r.Header.Date, &r.Header.Memo, &total, &status,
			&r.Header.ClientID, &r.Header.SupplierID, &r.Header.Journal, &r.Header.ReversalOf,
			&r.Header.CreatedBy, &r.Header.CreatedAt,
			&r.Line.HeaderID, &r.Line.Seq, &r.Line.Account, &debit, &credit,
			&r.Line.ClientID, &r.Line.SupplierID, &r.Line.Detail, &r.Line.Reference,
		)
		if err != nil {
			return nil, translate(err)
		}
		r.Header.Status = model.EntryStatus(status)
		r.Header.Date = r.Header.Date.UTC()
		if r.Header.Total, err = parseAmount(total); err != nil {
			return nil, err
		}
		if r.Line.Debit, err = parseAmount(debit); err != nil {
			return nil, err
		}
		if r.Line.Credit, err = parseAmount(credit); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, translate(rows.Err())
}

func scanBalance(row pgx.Row) (model.PeriodBalance, error) {
	var b model.PeriodBalance
	var period, opening, closing string
	if err := row.Scan(&b.Account, &period, &opening, &closing, &b.UpdatedAt); err != nil {
		return model.PeriodBalance{}, translate(err)
	}
	var err error
	if b.Period, err = model.ParsePeriod(period); err != nil {
		return model.PeriodBalance{}, err
	}
	if b.Opening, err = parseAmount(opening); err != nil {
		return model.PeriodBalance{}, err
	}
	if b.Closing, err = parseAmount(closing); err != nil {
		return model.PeriodBalance{}, err
	}
	b.UpdatedAt = b.UpdatedAt.UTC()
	return b, nil
}

func (t *tx) Balance(ctx context.Context, account string, p model.Period) (model.PeriodBalance, error) {
	return scanBalance(t.t.QueryRow(ctx, `
		SELECT account, period, opening::text, closing::text, updated_at
		FROM period_balances WHERE account = $1 AND period = $2`, account, p.String()))
}

func (t *tx) PriorBalance(ctx context.Context, account string, p model.Period) (model.PeriodBalance, error) {
	key := p.String()
	return scanBalance(t.t.QueryRow(ctx, `
		SELECT account, period, opening::text, closing::text, updated_at
		FROM period_balances
		WHERE account = $1 AND LENGTH(period) = $2 AND period < $3
		ORDER BY period DESC
		LIMIT 1`, account, len(key), key))
}

func (t *tx) SaveBalance(ctx context.Context, b model.PeriodBalance) error {
	updated := b.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := t.t.Exec(ctx, `
		INSERT INTO period_balances (account, period, opening, closing, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account, period) DO UPDATE
		SET opening = EXCLUDED.opening, closing = EXCLUDED.closing, updated_at = EXCLUDED.updated_at`,
		b.Account, b.Period.String(), b.Opening.String(), b.Closing.String(), updated.UTC())
	return translate(err)
}

func (t *tx) Movement(ctx context.Context, account string, p model.Period) (debit, credit decimal.Decimal, err error) {
	start, end := p.Bounds()
	var d, c string
	err = t.t.QueryRow(ctx, `
		SELECT COALESCE(SUM(l.debit), 0)::text, COALESCE(SUM(l.credit), 0)::text
		FROM entry_lines l
		JOIN entry_headers h ON h.id = l.header_id
		WHERE l.account = $1
		  AND h.status IN ('posted', 'cancelled')
		  AND h.date >= $2 AND h.date < $3`,
		account, start, end).Scan(&d, &c)
	if err != nil {
		return decimal.Zero, decimal.Zero, translate(err)
	}
	if debit, err = parseAmount(d); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if credit, err = parseAmount(c); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return debit, credit, nil
}
