package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/asientos/internal/id"
	"github.com/cleared-dev/asientos/internal/store"
)

// BookHeader is the CSV header of the journal book.
var BookHeader = []string{"date", "entry", "status", "memo", "seq", "account", "debit", "credit", "detail", "reference"}

// WriteJournalBook writes the posted and cancelled lines matching f as CSV,
// ordered by date and entry key.
func WriteJournalBook(ctx context.Context, st store.Store, f store.LineFilter, w io.Writer) (int, error) {
	var rows []store.JournalRow
	err := st.ReadOnly(ctx, func(tx store.Tx) error {
		var err error
		rows, err = tx.JournalRows(ctx, f)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("loading journal: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(BookHeader); err != nil {
		return 0, fmt.Errorf("writing header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			r.Header.Date.Format("2006-01-02"),
			id.FormatHeaderKey(r.Header.Type, r.Header.Folio),
			string(r.Header.Status),
			r.Header.Memo,
			strconv.Itoa(r.Line.Seq),
			r.Line.Account,
			amount(r.Line.Debit),
			amount(r.Line.Credit),
			r.Line.Detail,
			r.Line.Reference,
		}
		if err := cw.Write(rec); err != nil {
			return 0, fmt.Errorf("writing line: %w", err)
		}
	}
	cw.Flush()
	return len(rows), cw.Error()
}

func amount(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.StringFixed(2)
}
