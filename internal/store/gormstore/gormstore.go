// Package gormstore implements store.Store on gorm, with SQLite as the
// embedded default backend.
package gormstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/cleared-dev/asientos/internal/audit"
	"github.com/cleared-dev/asientos/internal/config"
	"github.com/cleared-dev/asientos/internal/model"
	"github.com/cleared-dev/asientos/internal/store"
)

// Store is a gorm-backed store.Store.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open creates a SQLite database connection with basic tuning.
func Open(cfg config.DatabaseConfig) (*Store, error) {
	if cfg.DSN != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	gormLogger := logger.Default
	if !cfg.LogMode {
		gormLogger = gormLogger.LogMode(logger.Silent)
	}

	db, err := gorm.Open(sqlite.Open(cfg.DSN), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}

	// SQLite has a single writer; one connection serializes ledger
	// transactions and keeps ":memory:" databases alive.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if cfg.DSN != ":memory:" {
		_, _ = sqlDB.Exec("PRAGMA journal_mode = WAL;")
	}
	_, _ = sqlDB.Exec("PRAGMA synchronous = NORMAL;")
	_, _ = sqlDB.Exec("PRAGMA foreign_keys = ON;")
	_, _ = sqlDB.Exec("PRAGMA busy_timeout = 5000;")

	return New(db), nil
}

// New wraps an already opened gorm connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate runs schema migrations for all tables.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(
		&accountRow{},
		&headerRow{},
		&lineRow{},
		&balanceRow{},
		&auditRow{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// WithTx implements store.Store.
func (s *Store) WithTx(ctx context.Context, fn func(store.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&tx{db: db})
	})
}

// ReadOnly implements store.Store. The transaction is always rolled back.
func (s *Store) ReadOnly(ctx context.Context, fn func(store.Tx) error) error {
	db := s.db.WithContext(ctx).Begin()
	if db.Error != nil {
		return db.Error
	}
	defer db.Rollback()
	return fn(&tx{db: db})
}

// RecordAudit implements store.Store.
func (s *Store) RecordAudit(ctx context.Context, e audit.Entry) error {
	row := toAuditRow(e)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert activity log: %w", err)
	}
	return nil
}

// AuditLog returns every activity log row, oldest first.
func (s *Store) AuditLog(ctx context.Context) ([]audit.Entry, error) {
	var rows []auditRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query activity log: %w", err)
	}
	out := make([]audit.Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, audit.Entry{
			Timestamp: r.Timestamp.UTC(),
			Actor:     r.Actor,
			Action:    r.Action,
			Table:     r.Affected,
			RecordID:  r.RecordID,
			Origin:    r.Origin,
		})
	}
	return out, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps gorm errors onto the store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", store.ErrDuplicateKey, err)
	}
	return err
}

type tx struct {
	db *gorm.DB
}

func (t *tx) q(ctx context.Context) *gorm.DB {
	return t.db.WithContext(ctx)
}

func (t *tx) Accounts(ctx context.Context) ([]model.Account, error) {
	var rows []accountRow
	if err := t.q(ctx).Order("code").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	out := make([]model.Account, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (t *tx) Account(ctx context.Context, code string) (model.Account, error) {
	var row accountRow
	if err := t.q(ctx).Where("code = ?", code).First(&row).Error; err != nil {
		return model.Account{}, translate(err)
	}
	return row.toModel(), nil
}

func (t *tx) InsertAccount(ctx context.Context, a model.Account) error {
	row := toAccountRow(a)
	return translate(t.q(ctx).Create(&row).Error)
}

func (t *tx) UpdateAccount(ctx context.Context, a model.Account) error {
	res := t.q(ctx).Model(&accountRow{}).Where("code = ?", a.Code).Updates(map[string]any{
		"name":     a.Name,
		"category": string(a.Category),
		"level":    a.Level,
		"parent":   a.Parent,
		"nature":   string(a.Nature),
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *tx) DeleteAccounts(ctx context.Context, codes []string) error {
	if len(codes) == 0 {
		return nil
	}
	if err := t.q(ctx).Where("account IN ?", codes).Delete(&balanceRow{}).Error; err != nil {
		return translate(err)
	}
	return translate(t.q(ctx).Where("code IN ?", codes).Delete(&accountRow{}).Error)
}

func (t *tx) AccountInUse(ctx context.Context, code string) (bool, error) {
	var n int64
	if err := t.q(ctx).Model(&lineRow{}).Where("account = ?", code).Count(&n).Error; err != nil {
		return false, translate(err)
	}
	return n > 0, nil
}

func (t *tx) Header(ctx context.Context, id string, forUpdate bool) (model.EntryHeader, error) {
	q := t.q(ctx)
	if forUpdate {
		// The sqlite dialect drops locking clauses; its single writer
		// connection already serializes.
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row headerRow
	if err := q.Where("id = ?", id).First(&row).Error; err != nil {
		return model.EntryHeader{}, translate(err)
	}
	return row.toModel(), nil
}

func (t *tx) HeaderByKey(ctx context.Context, typ string, folio int) (model.EntryHeader, error) {
	var row headerRow
	if err := t.q(ctx).Where("type = ? AND folio = ?", typ, folio).First(&row).Error; err != nil {
		return model.EntryHeader{}, translate(err)
	}
	return row.toModel(), nil
}

func (t *tx) NextFolio(ctx context.Context, typ string) (int, error) {
	var last sql.NullInt64
	if err := t.q(ctx).Model(&headerRow{}).Where("type = ?", typ).Select("MAX(folio)").Scan(&last).Error; err != nil {
		return 0, translate(err)
	}
	return int(last.Int64) + 1, nil
}

func (t *tx) InsertHeader(ctx context.Context, h model.EntryHeader) error {
	row := toHeaderRow(h)
	return translate(t.q(ctx).Create(&row).Error)
}

func (t *tx) InsertLines(ctx context.Context, lines []model.Line) error {
	if len(lines) == 0 {
		return nil
	}
	rows := make([]lineRow, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, toLineRow(l))
	}
	return translate(t.q(ctx).Create(&rows).Error)
}

func (t *tx) Lines(ctx context.Context, headerID string) ([]model.Line, error) {
	var rows []lineRow
	if err := t.q(ctx).Where("header_id = ?", headerID).Order("seq").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	out := make([]model.Line, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (t *tx) TransitionStatus(ctx context.Context, id string, from, to model.EntryStatus) (bool, error) {
	res := t.q(ctx).Model(&headerRow{}).
		Where("id = ? AND status = ?", id, string(from)).
		Update("status", string(to))
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (t *tx) JournalRows(ctx context.Context, f store.LineFilter) ([]store.JournalRow, error) {
	q := t.q(ctx).Where("status IN ?", []string{string(model.StatusPosted), string(model.StatusCancelled)})
	if f.From != "" {
		from, err := parseDay(f.From)
		if err != nil {
			return nil, err
		}
		q = q.Where("date >= ?", from)
	}
	if f.To != "" {
		to, err := parseDay(f.To)
		if err != nil {
			return nil, err
		}
		q = q.Where("date < ?", to)
	}

	var headers []headerRow
	if err := q.Order("date, type, folio").Find(&headers).Error; err != nil {
		return nil, translate(err)
	}
	if len(headers) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(headers))
	for _, h := range headers {
		ids = append(ids, h.ID)
	}
	lq := t.q(ctx).Where("header_id IN ?", ids)
	if f.Account != "" {
		lq = lq.Where("account = ?", f.Account)
	}
	var lines []lineRow
	if err := lq.Order("seq").Find(&lines).Error; err != nil {
		return nil, translate(err)
	}

	byHeader := make(map[string][]lineRow, len(headers))
	for _, l := range lines {
		byHeader[l.HeaderID] = append(byHeader[l.HeaderID], l)
	}

	var out []store.JournalRow
	for _, h := range headers {
		hm := h.toModel()
		for _, l := range byHeader[h.ID] {
			out = append(out, store.JournalRow{Header: hm, Line: l.toModel()})
		}
	}
	return out, nil
}

func (t *tx) Balance(ctx context.Context, account string, p model.Period) (model.PeriodBalance, error) {
	var row balanceRow
	if err := t.q(ctx).Where("account = ? AND period = ?", account, p.String()).First(&row).Error; err != nil {
		return model.PeriodBalance{}, translate(err)
	}
	return row.toModel()
}

func (t *tx) PriorBalance(ctx context.Context, account string, p model.Period) (model.PeriodBalance, error) {
	key := p.String()
	var row balanceRow
	err := t.q(ctx).
		Where("account = ? AND LENGTH(period) = ? AND period < ?", account, len(key), key).
		Order("period DESC").
		First(&row).Error
	if err != nil {
		return model.PeriodBalance{}, translate(err)
	}
	return row.toModel()
}

func (t *tx) SaveBalance(ctx context.Context, b model.PeriodBalance) error {
	row := toBalanceRow(b)
	return translate(t.q(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account"}, {Name: "period"}},
		DoUpdates: clause.AssignmentColumns([]string{"opening", "closing", "updated_at"}),
	}).Create(&row).Error)
}

func (t *tx) Movement(ctx context.Context, account string, p model.Period) (debit, credit decimal.Decimal, err error) {
	start, end := p.Bounds()
	var rows []struct {
		Debit  decimal.Decimal
		Credit decimal.Decimal
	}
	err = t.q(ctx).
		Table("entry_lines AS l").
		Select("l.debit, l.credit").
		Joins("JOIN entry_headers h ON h.id = l.header_id").
		Where("l.account = ? AND h.status IN ? AND h.date >= ? AND h.date < ?",
			account,
			[]string{string(model.StatusPosted), string(model.StatusCancelled)},
			start, end).
		Scan(&rows).Error
	if err != nil {
		return decimal.Zero, decimal.Zero, translate(err)
	}
	debit, credit = decimal.Zero, decimal.Zero
	for _, r := range rows {
		debit = debit.Add(r.Debit)
		credit = credit.Add(r.Credit)
	}
	return debit, credit, nil
}

func parseDay(s string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}
