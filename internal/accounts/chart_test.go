package accounts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/asientos/internal/model"
)

func TestChartLookup(t *testing.T) {
	chart := NewChart(DefaultChart("comercial"))

	acct, ok := chart.Get("1105")
	assert.True(t, ok)
	assert.Equal(t, "Caja", acct.Name)

	_, ok = chart.Get("9999")
	assert.False(t, ok)
	assert.True(t, chart.Exists("4100"))
	assert.False(t, chart.Exists("9999"))
}

func TestChartNature(t *testing.T) {
	chart := NewChart(DefaultChart("comercial"))

	n, err := chart.Nature("1105")
	require.NoError(t, err)
	assert.Equal(t, model.NatureDebit, n)

	n, err = chart.Nature("4100")
	require.NoError(t, err)
	assert.Equal(t, model.NatureCredit, n)

	_, err = chart.Nature("9999")
	assert.ErrorIs(t, err, ErrUnknownAccount)
}

func TestByCategory(t *testing.T) {
	chart := NewChart(DefaultChart("comercial"))

	for _, a := range chart.ByCategory(model.CategoryIncome) {
		assert.Equal(t, model.CategoryIncome, a.Category)
		assert.Equal(t, model.NatureCredit, a.Nature)
	}
	assert.NotEmpty(t, chart.ByCategory(model.CategoryExpense))
}

func TestAncestorsAndDescendants(t *testing.T) {
	chart := NewChart(DefaultChart("comercial"))

	anc, err := chart.Ancestors("1105")
	require.NoError(t, err)
	assert.Equal(t, []string{"11", "1"}, anc)

	desc := chart.Descendants("1")
	assert.Contains(t, desc, "11")
	assert.Contains(t, desc, "1105")
	assert.Contains(t, desc, "1205")
	assert.NotContains(t, desc, "1")
	assert.NotContains(t, desc, "2105")

	assert.Empty(t, chart.Descendants("1105"))
	assert.Equal(t, []string{"1105", "1110", "1120", "1130"}, chart.Children("11"))
}

func TestAncestors_CorruptHierarchy(t *testing.T) {
	chart := NewChart([]model.Account{
		{Code: "A", Parent: "B"},
		{Code: "B", Parent: "A"},
	})
	_, err := chart.Ancestors("A")
	assert.ErrorIs(t, err, ErrCycle)

	// Descendants terminates on the same loop.
	assert.Equal(t, []string{"B"}, chart.Descendants("A"))
}

func TestCheckParent(t *testing.T) {
	chart := NewChart(DefaultChart("comercial"))

	assert.NoError(t, chart.CheckParent("1105", ""))
	assert.NoError(t, chart.CheckParent("1105", "12"))
	assert.ErrorIs(t, chart.CheckParent("11", "11"), ErrCycle)
	assert.ErrorIs(t, chart.CheckParent("1", "1105"), ErrCycle)
	assert.ErrorIs(t, chart.CheckParent("1105", "77"), ErrUnknownParent)
}
