package accounts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cleared-dev/asientos/internal/model"
	"github.com/cleared-dev/asientos/internal/store"
)

var (
	// ErrInvalidAccount is returned for accounts with missing or bad fields.
	ErrInvalidAccount = errors.New("invalid account")
	// ErrNatureImmutable is returned when an update tries to flip an
	// account's nature.
	ErrNatureImmutable = errors.New("account nature cannot change after creation")
	// ErrAccountInUse is returned when deleting an account that has lines.
	ErrAccountInUse = errors.New("account has entry lines")
)

// Service administers the chart of accounts stored in the ledger database.
type Service struct {
	store store.Store
	log   *slog.Logger
}

// NewService creates a Service over st.
func NewService(st store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, log: logger}
}

// Chart loads the whole chart of accounts.
func (s *Service) Chart(ctx context.Context) (*Chart, error) {
	var chart *Chart
	err := s.store.ReadOnly(ctx, func(tx store.Tx) error {
		accts, err := tx.Accounts(ctx)
		if err != nil {
			return err
		}
		chart = NewChart(accts)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading chart of accounts: %w", err)
	}
	return chart, nil
}

// Get returns one account.
func (s *Service) Get(ctx context.Context, code string) (model.Account, error) {
	var a model.Account
	err := s.store.ReadOnly(ctx, func(tx store.Tx) error {
		var err error
		a, err = tx.Account(ctx, code)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return model.Account{}, fmt.Errorf("%w: %s", ErrUnknownAccount, code)
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("loading account %s: %w", code, err)
	}
	return a, nil
}

// Create adds a new account. An empty nature takes the category default and
// a zero level is derived from the parent.
func (s *Service) Create(ctx context.Context, a model.Account) error {
	a, err := normalize(a)
	if err != nil {
		return err
	}
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		accts, err := tx.Accounts(ctx)
		if err != nil {
			return err
		}
		chart := NewChart(accts)
		if chart.Exists(a.Code) {
			return fmt.Errorf("account %s: %w", a.Code, store.ErrDuplicateKey)
		}
		if err := chart.CheckParent(a.Code, a.Parent); err != nil {
			return err
		}
		if a.Level == 0 {
			a.Level = childLevel(chart, a.Parent)
		}
		return tx.InsertAccount(ctx, a)
	})
	if err != nil {
		return fmt.Errorf("creating account %s: %w", a.Code, err)
	}
	s.log.Info("account created", "code", a.Code, "nature", a.Nature)
	return nil
}

// Update changes an account's descriptive fields and parent. The nature is
// fixed at creation; a different non-empty nature is rejected.
func (s *Service) Update(ctx context.Context, a model.Account) error {
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		accts, err := tx.Accounts(ctx)
		if err != nil {
			return err
		}
		chart := NewChart(accts)
		existing, ok := chart.Get(a.Code)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownAccount, a.Code)
		}
		if a.Nature != "" && a.Nature != existing.Nature {
			return fmt.Errorf("%w: %s is %s", ErrNatureImmutable, a.Code, existing.Nature)
		}
		a.Nature = existing.Nature
		if a.Category == "" {
			a.Category = existing.Category
		}
		if !a.Category.Valid() {
			return fmt.Errorf("%w: category %q", ErrInvalidAccount, a.Category)
		}
		if strings.TrimSpace(a.Name) == "" {
			a.Name = existing.Name
		}
		if err := chart.CheckParent(a.Code, a.Parent); err != nil {
			return err
		}

		a.Level = existing.Level
		if a.Parent != existing.Parent {
			a.Level = childLevel(chart, a.Parent)
		}
		if err := tx.UpdateAccount(ctx, a); err != nil {
			return err
		}

		// Moving a subtree shifts every level below it.
		if delta := a.Level - existing.Level; delta != 0 {
			for _, code := range chart.Descendants(a.Code) {
				d, _ := chart.Get(code)
				d.Level += delta
				if err := tx.UpdateAccount(ctx, d); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("updating account %s: %w", a.Code, err)
	}
	s.log.Info("account updated", "code", a.Code, "parent", a.Parent)
	return nil
}

// Delete removes an account and all of its descendants. Nothing is removed
// if any of them carries entry lines. Returns the deleted codes.
func (s *Service) Delete(ctx context.Context, code string) ([]string, error) {
	var codes []string
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		accts, err := tx.Accounts(ctx)
		if err != nil {
			return err
		}
		chart := NewChart(accts)
		if !chart.Exists(code) {
			return fmt.Errorf("%w: %s", ErrUnknownAccount, code)
		}
		codes = append([]string{code}, chart.Descendants(code)...)
		for _, c := range codes {
			used, err := tx.AccountInUse(ctx, c)
			if err != nil {
				return err
			}
			if used {
				return fmt.Errorf("%w: %s", ErrAccountInUse, c)
			}
		}
		return tx.DeleteAccounts(ctx, codes)
	})
	if err != nil {
		return nil, fmt.Errorf("deleting account %s: %w", code, err)
	}
	s.log.Info("accounts deleted", "root", code, "count", len(codes))
	return codes, nil
}

// Import reads a chart-of-accounts CSV and inserts every row in one
// transaction. Existing codes are an error.
func (s *Service) Import(ctx context.Context, r io.Reader) (int, error) {
	accts, err := ReadAccounts(r)
	if err != nil {
		return 0, err
	}
	return s.insertAll(ctx, accts, false)
}

// Seed inserts the accounts that do not exist yet and skips the rest.
func (s *Service) Seed(ctx context.Context, accts []model.Account) (int, error) {
	return s.insertAll(ctx, accts, true)
}

// Export writes the chart of accounts as CSV.
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	chart, err := s.Chart(ctx)
	if err != nil {
		return err
	}
	if err := WriteAccounts(w, chart.All()); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}
	return nil
}

// insertAll inserts parents before children regardless of input order.
func (s *Service) insertAll(ctx context.Context, accts []model.Account, skipExisting bool) (int, error) {
	pending := make([]model.Account, 0, len(accts))
	for _, a := range accts {
		n, err := normalize(a)
		if err != nil {
			return 0, err
		}
		pending = append(pending, n)
	}

	inserted := 0
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		existing, err := tx.Accounts(ctx)
		if err != nil {
			return err
		}
		levels := make(map[string]int, len(existing)+len(pending))
		for _, a := range existing {
			levels[a.Code] = a.Level
		}

		queued := make(map[string]bool, len(pending))
		for _, a := range pending {
			if _, ok := levels[a.Code]; ok && !skipExisting {
				return fmt.Errorf("account %s: %w", a.Code, store.ErrDuplicateKey)
			}
			if queued[a.Code] {
				return fmt.Errorf("account %s listed twice: %w", a.Code, store.ErrDuplicateKey)
			}
			queued[a.Code] = true
		}

		for len(pending) > 0 {
			var rest []model.Account
			for _, a := range pending {
				if _, ok := levels[a.Code]; ok {
					continue // skipExisting
				}
				parentLevel, ok := levels[a.Parent]
				if a.Parent != "" && !ok {
					rest = append(rest, a)
					continue
				}
				if a.Parent == a.Code {
					return fmt.Errorf("%w: %s cannot be its own parent", ErrCycle, a.Code)
				}
				if a.Level == 0 {
					a.Level = parentLevel + 1
				}
				if err := tx.InsertAccount(ctx, a); err != nil {
					return fmt.Errorf("account %s: %w", a.Code, err)
				}
				levels[a.Code] = a.Level
				inserted++
			}
			if len(rest) == len(pending) {
				a := rest[0]
				if queued[a.Parent] {
					return fmt.Errorf("%w: %s and %s", ErrCycle, a.Code, a.Parent)
				}
				return fmt.Errorf("%w: %s (parent of %s)", ErrUnknownParent, a.Parent, a.Code)
			}
			pending = rest
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("importing accounts: %w", err)
	}
	s.log.Info("accounts imported", "count", inserted)
	return inserted, nil
}

func normalize(a model.Account) (model.Account, error) {
	a.Code = strings.TrimSpace(a.Code)
	a.Parent = strings.TrimSpace(a.Parent)
	if a.Code == "" {
		return a, fmt.Errorf("%w: empty code", ErrInvalidAccount)
	}
	if strings.TrimSpace(a.Name) == "" {
		return a, fmt.Errorf("%w: %s has no name", ErrInvalidAccount, a.Code)
	}
	if !a.Category.Valid() {
		return a, fmt.Errorf("%w: %s has category %q", ErrInvalidAccount, a.Code, a.Category)
	}
	switch a.Nature {
	case "":
		a.Nature = a.Category.DefaultNature()
	case model.NatureDebit, model.NatureCredit:
	default:
		return a, fmt.Errorf("%w: %s has nature %q", ErrInvalidAccount, a.Code, a.Nature)
	}
	return a, nil
}

func childLevel(chart *Chart, parent string) int {
	if parent == "" {
		return 1
	}
	p, _ := chart.Get(parent)
	return p.Level + 1
}
