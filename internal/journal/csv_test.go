package journal

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/asientos/internal/model"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestLinesRoundTrip(t *testing.T) {
	lines := []model.Line{
		{Seq: 1, Account: "1105", Debit: dec("500.00"), Credit: decimal.Zero, ClientID: "C-17", Detail: "Venta al contado", Reference: "F-0042"},
		{Seq: 2, Account: "4100", Debit: decimal.Zero, Credit: dec("500.00"), ClientID: "C-17", Detail: "Venta al contado, mostrador", Reference: "F-0042"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteLines(&buf, lines))

	got, err := ReadLines(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)

	for i := range lines {
		assert.Equal(t, lines[i].Seq, got[i].Seq)
		assert.Equal(t, lines[i].Account, got[i].Account)
		assert.True(t, lines[i].Debit.Equal(got[i].Debit))
		assert.True(t, lines[i].Credit.Equal(got[i].Credit))
		assert.Equal(t, lines[i].ClientID, got[i].ClientID)
		assert.Equal(t, lines[i].Detail, got[i].Detail)
		assert.Equal(t, lines[i].Reference, got[i].Reference)
	}
}

func TestMarshalLine_BlankZeroSide(t *testing.T) {
	row := MarshalLine(model.Line{Account: "1105", Debit: dec("12.5")})
	assert.Equal(t, "12.50", row[colDebit])
	assert.Equal(t, "", row[colCredit])
}

func TestReadLines_Errors(t *testing.T) {
	_, err := ReadLines(strings.NewReader(Header + "\n1105,abc,,,,,\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
	assert.Contains(t, err.Error(), "parsing debit")

	_, err = ReadLines(strings.NewReader(Header + "\n1105,1\n"))
	assert.Error(t, err)

	lines, err := ReadLines(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, lines)
}
