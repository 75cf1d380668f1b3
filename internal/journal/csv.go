package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/asientos/internal/model"
)

// Header is the CSV header for entry line files.
const Header = "account,debit,credit,client_id,supplier_id,detail,reference"

const (
	numFields  = 7
	colAccount = 0
	colDebit   = 1
	colCredit  = 2
	colClient  = 3
	colSupp    = 4
	colDetail  = 5
	colRef     = 6
)

// ReadLines reads the lines of one entry from CSV. Sequence numbers follow
// row order.
func ReadLines(r io.Reader) ([]model.Line, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading lines CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var lines []model.Line
	for i, rec := range records[1:] {
		l, err := UnmarshalLine(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		l.Seq = i + 1
		lines = append(lines, l)
	}
	return lines, nil
}

// WriteLines writes lines to CSV (including header).
func WriteLines(w io.Writer, lines []model.Line) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, l := range lines {
		if err := cw.Write(MarshalLine(l)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalLine converts a Line to a CSV row. The zero side is left blank.
func MarshalLine(l model.Line) []string {
	row := make([]string, numFields)
	row[colAccount] = l.Account
	if !l.Debit.IsZero() {
		row[colDebit] = l.Debit.StringFixed(2)
	}
	if !l.Credit.IsZero() {
		row[colCredit] = l.Credit.StringFixed(2)
	}
	row[colClient] = l.ClientID
	row[colSupp] = l.SupplierID
	row[colDetail] = l.Detail
	row[colRef] = l.Reference
	return row
}

// UnmarshalLine converts a CSV row to a Line. Blank amounts are zero.
func UnmarshalLine(record []string) (model.Line, error) {
	if len(record) != numFields {
		return model.Line{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	debit, err := parseAmount("debit", record[colDebit])
	if err != nil {
		return model.Line{}, err
	}
	credit, err := parseAmount("credit", record[colCredit])
	if err != nil {
		return model.Line{}, err
	}

	return model.Line{
		Account:    strings.TrimSpace(record[colAccount]),
		Debit:      debit,
		Credit:     credit,
		ClientID:   record[colClient],
		SupplierID: record[colSupp],
		Detail:     record[colDetail],
		Reference:  record[colRef],
	}, nil
}

func parseAmount(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing %s %q: %w", field, s, err)
	}
	return d, nil
}
