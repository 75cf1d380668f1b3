package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/cleared-dev/asientos/internal/model"
)

const (
	numFields   = 6
	colCode     = 0
	colName     = 1
	colCategory = 2
	colLevel    = 3
	colParent   = 4
	colNature   = 5
)

// Header lists the chart-of-accounts CSV columns.
var Header = []string{"code", "name", "category", "level", "parent", "nature"}

// ReadAccounts reads a chart-of-accounts CSV.
func ReadAccounts(r io.Reader) ([]model.Account, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var accounts []model.Account
	for i, rec := range records[1:] {
		acct, err := UnmarshalAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// WriteAccounts writes a chart-of-accounts CSV.
func WriteAccounts(w io.Writer, accounts []model.Account) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, acct := range accounts {
		if err := cw.Write(MarshalAccount(acct)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalAccount converts an Account to a CSV row.
func MarshalAccount(acct model.Account) []string {
	row := make([]string, numFields)
	row[colCode] = acct.Code
	row[colName] = acct.Name
	row[colCategory] = string(acct.Category)
	row[colLevel] = strconv.Itoa(acct.Level)
	row[colParent] = acct.Parent
	row[colNature] = string(acct.Nature)
	return row
}

// UnmarshalAccount converts a CSV row to an Account. An empty nature takes
// the category default.
func UnmarshalAccount(record []string) (model.Account, error) {
	if len(record) != numFields {
		return model.Account{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	if record[colCode] == "" {
		return model.Account{}, fmt.Errorf("empty account code")
	}

	cat := model.AccountCategory(record[colCategory])
	if !cat.Valid() {
		return model.Account{}, fmt.Errorf("invalid category %q", record[colCategory])
	}

	var level int
	if record[colLevel] != "" {
		var err error
		level, err = strconv.Atoi(record[colLevel])
		if err != nil {
			return model.Account{}, fmt.Errorf("parsing level %q: %w", record[colLevel], err)
		}
	}

	nature := cat.DefaultNature()
	if record[colNature] != "" {
		var err error
		nature, err = model.ParseNature(record[colNature])
		if err != nil {
			return model.Account{}, err
		}
	}

	return model.Account{
		Code:     record[colCode],
		Name:     record[colName],
		Category: cat,
		Level:    level,
		Parent:   record[colParent],
		Nature:   nature,
	}, nil
}
