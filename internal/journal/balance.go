package journal

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/asientos/internal/model"
	"github.com/cleared-dev/asientos/internal/store"
)

// SignedMovement applies an account's nature to its period movement:
// debit-nature accounts grow with debits, credit-nature accounts with credits.
func SignedMovement(n model.Nature, debit, credit decimal.Decimal) decimal.Decimal {
	if n == model.NatureCredit {
		return credit.Sub(debit)
	}
	return debit.Sub(credit)
}

// openingFor resolves the opening balance of (account, p): the stored row's
// opening if the row exists, else the closing of the latest earlier period
// of the same granularity, else zero.
func openingFor(ctx context.Context, tx store.Tx, account string, p model.Period) (decimal.Decimal, error) {
	row, err := tx.Balance(ctx, account, p)
	if err == nil {
		return row.Opening, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return decimal.Zero, err
	}

	prior, err := tx.PriorBalance(ctx, account, p)
	if err == nil {
		return prior.Closing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return decimal.Zero, err
	}
	return decimal.Zero, nil
}

// computeBalance derives the balance of (account, p) from scratch. It only
// reads; callers decide whether to save the result.
func computeBalance(ctx context.Context, tx store.Tx, account string, nature model.Nature, p model.Period, now time.Time) (model.PeriodBalance, error) {
	opening, err := openingFor(ctx, tx, account, p)
	if err != nil {
		return model.PeriodBalance{}, err
	}
	return closeBalance(ctx, tx, account, nature, p, opening, now)
}

func closeBalance(ctx context.Context, tx store.Tx, account string, nature model.Nature, p model.Period, opening decimal.Decimal, now time.Time) (model.PeriodBalance, error) {
	debit, credit, err := tx.Movement(ctx, account, p)
	if err != nil {
		return model.PeriodBalance{}, err
	}
	return model.PeriodBalance{
		Account:   account,
		Period:    p,
		Opening:   opening,
		Closing:   opening.Add(SignedMovement(nature, debit, credit)),
		UpdatedAt: now,
	}, nil
}
