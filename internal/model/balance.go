package model

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Granularity selects how dates are bucketed into balance periods.
type Granularity string

const (
	Yearly  Granularity = "yearly"
	Monthly Granularity = "monthly"
)

// Period identifies an accounting period. Month is zero for a yearly period.
type Period struct {
	Year  int
	Month int
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time, g Granularity) Period {
	if g == Monthly {
		return Period{Year: t.Year(), Month: int(t.Month())}
	}
	return Period{Year: t.Year()}
}

// String renders "2025" or "2025-03".
func (p Period) String() string {
	if p.Month == 0 {
		return fmt.Sprintf("%04d", p.Year)
	}
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Prev returns the period immediately before p.
func (p Period) Prev() Period {
	if p.Month == 0 {
		return Period{Year: p.Year - 1}
	}
	if p.Month == 1 {
		return Period{Year: p.Year - 1, Month: 12}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

// Bounds returns the half-open date range [start, end) covered by p.
func (p Period) Bounds() (start, end time.Time) {
	if p.Month == 0 {
		start = time.Date(p.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(1, 0, 0)
	}
	start = time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// ParsePeriod parses "2025" or "2025-03".
func ParsePeriod(s string) (Period, error) {
	switch len(s) {
	case 4:
		y, err := strconv.Atoi(s)
		if err != nil {
			return Period{}, fmt.Errorf("invalid period %q: %w", s, err)
		}
		return Period{Year: y}, nil
	case 7:
		if s[4] != '-' {
			return Period{}, fmt.Errorf("invalid period %q", s)
		}
		y, err := strconv.Atoi(s[:4])
		if err != nil {
			return Period{}, fmt.Errorf("invalid year in period %q: %w", s, err)
		}
		m, err := strconv.Atoi(s[5:])
		if err != nil {
			return Period{}, fmt.Errorf("invalid month in period %q: %w", s, err)
		}
		if m < 1 || m > 12 {
			return Period{}, fmt.Errorf("month out of range in period %q", s)
		}
		return Period{Year: y, Month: m}, nil
	}
	return Period{}, fmt.Errorf("invalid period %q", s)
}

// PeriodBalance is an account's opening and closing balance for one period.
type PeriodBalance struct {
	Account   string
	Period    Period
	Opening   decimal.Decimal
	Closing   decimal.Decimal
	UpdatedAt time.Time
}

// Movement returns closing minus opening.
func (b PeriodBalance) Movement() decimal.Decimal {
	return b.Closing.Sub(b.Opening)
}
