// Package journal validates, posts and cancels ledger entries and keeps
// account period balances in step with them.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/asientos/internal/accounts"
	"github.com/cleared-dev/asientos/internal/audit"
	"github.com/cleared-dev/asientos/internal/id"
	"github.com/cleared-dev/asientos/internal/model"
	"github.com/cleared-dev/asientos/internal/notify"
	"github.com/cleared-dev/asientos/internal/store"
)

// Options configures a Service. Zero values pick the defaults.
type Options struct {
	Logger      *slog.Logger
	Notifier    notify.Sender
	Recipient   string     // cancellation notices go here; empty disables them
	Audit       audit.Sink // defaults to the store's activity log
	Granularity model.Granularity
	Tolerance   decimal.Decimal
	Now         func() time.Time
}

// Service provides the posting, cancellation and balance procedures.
type Service struct {
	store       store.Store
	log         *slog.Logger
	notifier    notify.Sender
	recipient   string
	audit       audit.Sink
	granularity model.Granularity
	tolerance   decimal.Decimal
	now         func() time.Time

	wg sync.WaitGroup
}

// NewService creates a journal Service.
func NewService(st store.Store, opts Options) *Service {
	s := &Service{
		store:       st,
		log:         opts.Logger,
		notifier:    opts.Notifier,
		recipient:   opts.Recipient,
		audit:       opts.Audit,
		granularity: opts.Granularity,
		tolerance:   opts.Tolerance,
		now:         opts.Now,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.notifier == nil {
		s.notifier = notify.Nop{}
	}
	if s.audit == nil {
		s.audit = audit.SinkFunc(st.RecordAudit)
	}
	if s.granularity == "" {
		s.granularity = model.Yearly
	}
	if s.tolerance.IsZero() {
		s.tolerance = Tolerance
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Granularity returns the period granularity balances are kept at.
func (s *Service) Granularity() model.Granularity {
	return s.granularity
}

// Validate runs the validator with the service's tolerance.
func (s *Service) Validate(lines []model.Line, declaredTotal decimal.Decimal) error {
	return ValidateWithTolerance(lines, declaredTotal, s.tolerance)
}

// Post validates and persists a balanced entry as Posted, then recomputes the
// period balance of every account it touches. Everything happens in one
// transaction. A zero folio takes the next free folio for the type.
func (s *Service) Post(ctx context.Context, h model.EntryHeader, lines []model.Line) (string, error) {
	if err := s.Validate(lines, h.Total); err != nil {
		return "", err
	}
	h, err := normalizeHeader(h)
	if err != nil {
		return "", err
	}

	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		h.Status = model.StatusPosted
		h, err = s.insertEntry(ctx, tx, h, lines)
		if err != nil {
			return err
		}
		return s.recomputeTouched(ctx, tx, h, lines)
	})
	if err != nil {
		return "", classify("post", err)
	}

	key := id.FormatHeaderKey(h.Type, h.Folio)
	s.log.Info("entry posted", "id", h.ID, "key", key, "total", h.Total.StringFixed(2), "lines", len(lines))
	s.recordAudit(ctx, h.CreatedBy, "registró comprobante "+key, h.ID)
	return h.ID, nil
}

// PostDoubleParams holds parameters for a two-line entry.
type PostDoubleParams struct {
	Type          string
	Folio         int
	Date          time.Time
	Memo          string
	DebitAccount  string
	CreditAccount string
	Amount        decimal.Decimal
	ClientID      string
	SupplierID    string
	Reference     string
	Actor         string
}

// PostDouble posts a balanced entry of one debit and one credit line.
func (s *Service) PostDouble(ctx context.Context, p PostDoubleParams) (string, error) {
	h := model.EntryHeader{
		Type:       p.Type,
		Folio:      p.Folio,
		Date:       p.Date,
		Memo:       p.Memo,
		Total:      p.Amount,
		ClientID:   p.ClientID,
		SupplierID: p.SupplierID,
		CreatedBy:  p.Actor,
	}
	lines := []model.Line{
		{
			Account:    p.DebitAccount,
			Debit:      p.Amount,
			Credit:     decimal.Zero,
			ClientID:   p.ClientID,
			SupplierID: p.SupplierID,
			Detail:     p.Memo,
			Reference:  p.Reference,
		},
		{
			Account:    p.CreditAccount,
			Debit:      decimal.Zero,
			Credit:     p.Amount,
			ClientID:   p.ClientID,
			SupplierID: p.SupplierID,
			Detail:     p.Memo,
			Reference:  p.Reference,
		},
	}
	return s.Post(ctx, h, lines)
}

// SaveDraft stores a Pending entry without touching balances. Lines must be
// well formed but the entry need not balance yet.
func (s *Service) SaveDraft(ctx context.Context, h model.EntryHeader, lines []model.Line) (string, error) {
	if err := CheckLines(lines); err != nil {
		return "", err
	}
	h, err := normalizeHeader(h)
	if err != nil {
		return "", err
	}

	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		h.Status = model.StatusPending
		h, err = s.insertEntry(ctx, tx, h, lines)
		return err
	})
	if err != nil {
		return "", classify("save draft", err)
	}
	s.log.Info("draft saved", "id", h.ID, "key", id.FormatHeaderKey(h.Type, h.Folio))
	return h.ID, nil
}

// Register validates a Pending entry's stored lines and moves it to Posted,
// recomputing balances in the same transaction. ref is a header id or a
// "TYPE-FOLIO" key.
func (s *Service) Register(ctx context.Context, ref, actor string) error {
	var h model.EntryHeader
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		h, err = lockHeader(ctx, tx, ref)
		if err != nil {
			return err
		}
		key := id.FormatHeaderKey(h.Type, h.Folio)
		if h.Status != model.StatusPending {
			return &NotPendingError{HeaderID: h.ID, Key: key, Status: h.Status}
		}

		lines, err := tx.Lines(ctx, h.ID)
		if err != nil {
			return err
		}
		if err := s.Validate(lines, h.Total); err != nil {
			return err
		}

		ok, err := tx.TransitionStatus(ctx, h.ID, model.StatusPending, model.StatusPosted)
		if err != nil {
			return err
		}
		if !ok {
			current, err := tx.Header(ctx, h.ID, false)
			if err != nil {
				return err
			}
			return &NotPendingError{HeaderID: h.ID, Key: key, Status: current.Status}
		}
		return s.recomputeTouched(ctx, tx, h, lines)
	})
	if err != nil {
		return classify("register", err)
	}

	key := id.FormatHeaderKey(h.Type, h.Folio)
	s.log.Info("entry registered", "id", h.ID, "key", key)
	s.recordAudit(ctx, actor, "registró borrador "+key, h.ID)
	return nil
}

// Reverse cancels a Posted entry by posting its mirror image and marking the
// original Cancelled, all in one transaction. The audit record and the
// notice are dispatched after commit and never undo the cancellation.
// ref is a header id or a "TYPE-FOLIO" key. Returns the reversal's id.
func (s *Service) Reverse(ctx context.Context, ref, actor string) (string, error) {
	var orig, rev model.EntryHeader
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		orig, err = lockHeader(ctx, tx, ref)
		if err != nil {
			return err
		}
		key := id.FormatHeaderKey(orig.Type, orig.Folio)
		switch orig.Status {
		case model.StatusCancelled:
			return &AlreadyCancelledError{HeaderID: orig.ID, Key: key}
		case model.StatusPending:
			return &NotPostedError{HeaderID: orig.ID, Key: key, Status: orig.Status}
		}

		lines, err := tx.Lines(ctx, orig.ID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return &NoLinesError{HeaderID: orig.ID}
		}

		mirror := MirrorLines(lines)
		rev = ReversalHeader(orig, mirror, actor)
		if err := s.Validate(mirror, rev.Total); err != nil {
			return err
		}
		rev.Status = model.StatusPosted
		rev, err = s.insertEntry(ctx, tx, rev, mirror)
		if err != nil {
			return err
		}

		ok, err := tx.TransitionStatus(ctx, orig.ID, model.StatusPosted, model.StatusCancelled)
		if err != nil {
			return err
		}
		if !ok {
			return &AlreadyCancelledError{HeaderID: orig.ID, Key: key}
		}
		return s.recomputeTouched(ctx, tx, rev, mirror)
	})
	if err != nil {
		return "", classify("reverse", err)
	}

	origKey := id.FormatHeaderKey(orig.Type, orig.Folio)
	s.log.Info("entry cancelled", "id", orig.ID, "key", origKey, "reversal", rev.ID, "actor", actor)
	s.recordAudit(ctx, actor, "anuló comprobante "+origKey+" con "+id.FormatHeaderKey(rev.Type, rev.Folio), orig.ID)
	s.notifyCancellation(orig, rev, actor)
	return rev.ID, nil
}

// Entry returns a header and its lines. ref is a header id or a
// "TYPE-FOLIO" key.
func (s *Service) Entry(ctx context.Context, ref string) (model.EntryHeader, []model.Line, error) {
	var h model.EntryHeader
	var lines []model.Line
	err := s.store.ReadOnly(ctx, func(tx store.Tx) error {
		var err error
		h, err = findHeader(ctx, tx, ref, false)
		if err != nil {
			return err
		}
		lines, err = tx.Lines(ctx, h.ID)
		return err
	})
	if err != nil {
		return model.EntryHeader{}, nil, classify("load entry", err)
	}
	return h, lines, nil
}

// RecomputeBalance recomputes and stores the balance of account for p.
// Running it twice on unchanged data yields the same result.
func (s *Service) RecomputeBalance(ctx context.Context, account string, p model.Period) (model.PeriodBalance, error) {
	var b model.PeriodBalance
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		a, err := resolveAccount(ctx, tx, account)
		if err != nil {
			return err
		}
		b, err = computeBalance(ctx, tx, a.Code, a.Nature, p, s.now().UTC())
		if err != nil {
			return err
		}
		return tx.SaveBalance(ctx, b)
	})
	if err != nil {
		return model.PeriodBalance{}, classify("recompute balance", err)
	}
	return b, nil
}

// ComputeBalance runs the same derivation as RecomputeBalance without
// writing anything. Reports use it.
func (s *Service) ComputeBalance(ctx context.Context, account string, p model.Period) (model.PeriodBalance, error) {
	var b model.PeriodBalance
	err := s.store.ReadOnly(ctx, func(tx store.Tx) error {
		a, err := resolveAccount(ctx, tx, account)
		if err != nil {
			return err
		}
		b, err = computeBalance(ctx, tx, a.Code, a.Nature, p, s.now().UTC())
		return err
	})
	if err != nil {
		return model.PeriodBalance{}, classify("compute balance", err)
	}
	return b, nil
}

// SetOpeningBalance records an explicit opening balance for account in p
// and recomputes its closing.
func (s *Service) SetOpeningBalance(ctx context.Context, account string, p model.Period, opening decimal.Decimal) (model.PeriodBalance, error) {
	var b model.PeriodBalance
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		a, err := resolveAccount(ctx, tx, account)
		if err != nil {
			return err
		}
		b, err = closeBalance(ctx, tx, a.Code, a.Nature, p, opening, s.now().UTC())
		if err != nil {
			return err
		}
		return tx.SaveBalance(ctx, b)
	})
	if err != nil {
		return model.PeriodBalance{}, classify("set opening balance", err)
	}
	s.log.Info("opening balance set", "account", account, "period", p.String(), "opening", opening.StringFixed(2))
	return b, nil
}

// RecomputePeriod recomputes and stores the balance of every account for p.
func (s *Service) RecomputePeriod(ctx context.Context, p model.Period) ([]model.PeriodBalance, error) {
	var out []model.PeriodBalance
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		accts, err := tx.Accounts(ctx)
		if err != nil {
			return err
		}
		chart := accounts.NewChart(accts)
		now := s.now().UTC()
		for _, a := range chart.All() {
			nature, err := chart.Nature(a.Code)
			if err != nil {
				return err
			}
			b, err := computeBalance(ctx, tx, a.Code, nature, p, now)
			if err != nil {
				return err
			}
			if err := tx.SaveBalance(ctx, b); err != nil {
				return err
			}
			out = append(out, b)
		}
		return nil
	})
	if err != nil {
		return nil, classify("recompute period", err)
	}
	s.log.Info("period recomputed", "period", p.String(), "accounts", len(out))
	return out, nil
}

// Wait blocks until every dispatched audit record and notice has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// insertEntry resolves the folio and accounts, then inserts the header and
// its lines. The header's status must already be set.
func (s *Service) insertEntry(ctx context.Context, tx store.Tx, h model.EntryHeader, lines []model.Line) (model.EntryHeader, error) {
	if h.Folio == 0 {
		folio, err := tx.NextFolio(ctx, h.Type)
		if err != nil {
			return h, err
		}
		h.Folio = folio
	} else {
		_, err := tx.HeaderByKey(ctx, h.Type, h.Folio)
		if err == nil {
			return h, &DuplicateKeyError{Type: h.Type, Folio: h.Folio}
		}
		if !errors.Is(err, store.ErrNotFound) {
			return h, err
		}
	}

	seen := make(map[string]bool, len(lines))
	for _, l := range lines {
		if seen[l.Account] {
			continue
		}
		seen[l.Account] = true
		if _, err := resolveAccount(ctx, tx, l.Account); err != nil {
			return h, err
		}
	}

	if h.ID == "" {
		h.ID = id.New()
	}
	h.CreatedAt = s.now().UTC()
	if err := tx.InsertHeader(ctx, h); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return h, &DuplicateKeyError{Type: h.Type, Folio: h.Folio}
		}
		return h, err
	}

	stored := make([]model.Line, len(lines))
	for i, l := range lines {
		l.HeaderID = h.ID
		l.Seq = i + 1
		stored[i] = l
	}
	if err := tx.InsertLines(ctx, stored); err != nil {
		return h, err
	}
	return h, nil
}

// recomputeTouched recomputes (account, period-of(h.Date)) for every
// distinct account in lines.
func (s *Service) recomputeTouched(ctx context.Context, tx store.Tx, h model.EntryHeader, lines []model.Line) error {
	p := model.PeriodOf(h.Date, s.granularity)
	now := s.now().UTC()

	codes := make([]string, 0, len(lines))
	seen := make(map[string]bool, len(lines))
	for _, l := range lines {
		if !seen[l.Account] {
			seen[l.Account] = true
			codes = append(codes, l.Account)
		}
	}
	sort.Strings(codes)

	for _, code := range codes {
		a, err := resolveAccount(ctx, tx, code)
		if err != nil {
			return err
		}
		b, err := computeBalance(ctx, tx, a.Code, a.Nature, p, now)
		if err != nil {
			return err
		}
		if err := tx.SaveBalance(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

// dispatch runs fn on a tracked goroutine. Panics are logged, not propagated.
func (s *Service) dispatch(name string, fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("side effect panicked", "task", name, "panic", r)
			}
		}()
		fn()
	}()
}

func (s *Service) recordAudit(ctx context.Context, actor, action, recordID string) {
	e := audit.Entry{
		Timestamp: s.now().UTC(),
		Actor:     actor,
		Action:    action,
		Table:     "entry_headers",
		RecordID:  recordID,
		Origin:    audit.OriginFrom(ctx),
	}
	ctx = context.WithoutCancel(ctx)
	s.dispatch("audit", func() {
		if err := s.audit.Record(ctx, e); err != nil {
			s.log.Warn("audit record failed", "action", action, "record", recordID, "err", err)
		}
	})
}

func (s *Service) notifyCancellation(orig, rev model.EntryHeader, actor string) {
	if s.recipient == "" {
		return
	}
	subject, body := cancellationNotice(orig, rev, actor)
	s.dispatch("notify", func() {
		if !s.notifier.Send(subject, body, s.recipient) {
			s.log.Warn("cancellation notice not sent", "id", orig.ID, "recipient", s.recipient)
		}
	})
}

// normalizeHeader checks the caller-supplied header fields and truncates the
// date to a UTC calendar day.
func normalizeHeader(h model.EntryHeader) (model.EntryHeader, error) {
	h.Type = strings.ToUpper(strings.TrimSpace(h.Type))
	if h.Type == "" {
		return h, &InvalidHeaderError{Field: "type", Reason: "must not be empty"}
	}
	if strings.ContainsAny(h.Type, " \t") {
		return h, &InvalidHeaderError{Field: "type", Reason: "must not contain spaces"}
	}
	if h.Folio < 0 {
		return h, &InvalidHeaderError{Field: "folio", Reason: "must not be negative"}
	}
	if h.Date.IsZero() {
		return h, &InvalidHeaderError{Field: "date", Reason: "is required"}
	}
	if h.Total.IsNegative() {
		return h, &InvalidHeaderError{Field: "total", Reason: "must not be negative"}
	}
	if h.ClientID != "" && h.SupplierID != "" {
		return h, &AmbiguousCounterpartyError{Index: -1, ClientID: h.ClientID, SupplierID: h.SupplierID}
	}
	y, m, d := h.Date.Date()
	h.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return h, nil
}

// findHeader loads a header by surrogate id or by "TYPE-FOLIO" key.
func findHeader(ctx context.Context, tx store.Tx, ref string, forUpdate bool) (model.EntryHeader, error) {
	if id.Valid(ref) {
		h, err := tx.Header(ctx, ref, forUpdate)
		if errors.Is(err, store.ErrNotFound) {
			return h, &NotFoundError{Entity: "entry", Key: ref}
		}
		return h, err
	}

	typ, folio, err := id.ParseHeaderKey(ref)
	if err != nil {
		return model.EntryHeader{}, &NotFoundError{Entity: "entry", Key: ref}
	}
	h, err := tx.HeaderByKey(ctx, strings.ToUpper(typ), folio)
	if errors.Is(err, store.ErrNotFound) {
		return h, &NotFoundError{Entity: "entry", Key: ref}
	}
	if err != nil || !forUpdate {
		return h, err
	}
	return tx.Header(ctx, h.ID, true)
}

func lockHeader(ctx context.Context, tx store.Tx, ref string) (model.EntryHeader, error) {
	return findHeader(ctx, tx, ref, true)
}

func resolveAccount(ctx context.Context, tx store.Tx, code string) (model.Account, error) {
	a, err := tx.Account(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return a, &NotFoundError{Entity: "account", Key: code}
	}
	if err != nil {
		return a, fmt.Errorf("loading account %s: %w", code, err)
	}
	return a, nil
}
