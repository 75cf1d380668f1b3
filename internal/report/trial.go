// Package report builds read-only views over the ledger: the trial balance
// and the journal book.
package report

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/asientos/internal/accounts"
	"github.com/cleared-dev/asientos/internal/model"
)

// Balances computes a balance without persisting it. journal.Service
// satisfies it.
type Balances interface {
	ComputeBalance(ctx context.Context, account string, p model.Period) (model.PeriodBalance, error)
}

// Row is one account line of a trial balance.
type Row struct {
	Code     string                `json:"code"`
	Name     string                `json:"name"`
	Category model.AccountCategory `json:"category"`
	Level    int                   `json:"level"`
	Nature   model.Nature          `json:"nature"`
	Opening  decimal.Decimal       `json:"opening"`
	Movement decimal.Decimal       `json:"movement"`
	Closing  decimal.Decimal       `json:"closing"`
}

// TrialBalance lists every account's balance for one period.
type TrialBalance struct {
	Period string `json:"period"`
	Rows   []Row  `json:"rows"`
	// Closing totals split by account nature.
	DebitTotal  decimal.Decimal `json:"debit_total"`
	CreditTotal decimal.Decimal `json:"credit_total"`
}

// Options narrows a trial balance.
type Options struct {
	MaxLevel    int  // 0 = all levels
	IncludeZero bool // include accounts with zero opening and closing
}

// BuildTrialBalance computes the balance of every account in chart for p.
func BuildTrialBalance(ctx context.Context, chart *accounts.Chart, bal Balances, p model.Period, opts Options) (*TrialBalance, error) {
	tb := &TrialBalance{
		Period:      p.String(),
		DebitTotal:  decimal.Zero,
		CreditTotal: decimal.Zero,
	}

	accts := append([]model.Account(nil), chart.All()...)
	sort.Slice(accts, func(i, j int) bool { return accts[i].Code < accts[j].Code })

	for _, a := range accts {
		if opts.MaxLevel > 0 && a.Level > opts.MaxLevel {
			continue
		}
		b, err := bal.ComputeBalance(ctx, a.Code, p)
		if err != nil {
			return nil, fmt.Errorf("balance of %s: %w", a.Code, err)
		}
		if !opts.IncludeZero && b.Opening.IsZero() && b.Closing.IsZero() {
			continue
		}
		tb.Rows = append(tb.Rows, Row{
			Code:     a.Code,
			Name:     a.Name,
			Category: a.Category,
			Level:    a.Level,
			Nature:   a.Nature,
			Opening:  b.Opening,
			Movement: b.Movement(),
			Closing:  b.Closing,
		})

		// Parents aggregate nothing here; only accounts without children count
		// toward the totals.
		if len(chart.Children(a.Code)) > 0 {
			continue
		}
		if a.Nature == model.NatureCredit {
			tb.CreditTotal = tb.CreditTotal.Add(b.Closing)
		} else {
			tb.DebitTotal = tb.DebitTotal.Add(b.Closing)
		}
	}
	return tb, nil
}
