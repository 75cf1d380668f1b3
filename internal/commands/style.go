package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/asientos/internal/report"
)

var (
	successSymbol = "✓"
	infoSymbol    = "→"

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00D787", Dark: "#00D787"})
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5FAFFF", Dark: "#5FAFFF"})
	headerStyle  = lipgloss.NewStyle().Bold(true)
	totalStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#5FAFFF", Dark: "#5FAFFF"})
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#808080", Dark: "#808080"})
)

func printSuccess(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, "%s %s\n", successStyle.Render(successSymbol), fmt.Sprintf(format, args...))
}

func printInfo(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, "%s %s\n", infoStyle.Render(infoSymbol), fmt.Sprintf(format, args...))
}

// table renders rows as left-aligned text columns with right-aligned
// amount columns.
type table struct {
	headers []string
	right   map[int]bool
	rows    [][]string
}

func (t *table) add(cells ...string) { t.rows = append(t.rows, cells) }

func (t *table) render(w io.Writer) {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, r := range t.rows {
		for i, c := range r {
			if n := lipgloss.Width(c); n > widths[i] {
				widths[i] = n
			}
		}
	}

	line := func(cells []string, style lipgloss.Style) string {
		out := make([]string, len(cells))
		for i, c := range cells {
			cs := lipgloss.NewStyle().Width(widths[i])
			if t.right[i] {
				cs = cs.Align(lipgloss.Right)
			}
			out[i] = style.Render(cs.Render(c))
		}
		return strings.Join(out, "  ")
	}

	_, _ = fmt.Fprintln(w, line(t.headers, headerStyle))
	for _, r := range t.rows {
		_, _ = fmt.Fprintln(w, line(r, lipgloss.NewStyle()))
	}
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func renderTrialBalance(w io.Writer, tb *report.TrialBalance) {
	t := &table{
		headers: []string{"Código", "Cuenta", "Nat.", "Saldo inicial", "Movimiento", "Saldo final"},
		right:   map[int]bool{3: true, 4: true, 5: true},
	}
	for _, r := range tb.Rows {
		name := strings.Repeat("  ", max(r.Level-1, 0)) + r.Name
		t.add(r.Code, name, string(r.Nature), money(r.Opening), money(r.Movement), money(r.Closing))
	}

	_, _ = fmt.Fprintln(w, headerStyle.Render("Balance de comprobación "+tb.Period))
	if len(tb.Rows) == 0 {
		_, _ = fmt.Fprintln(w, mutedStyle.Render("(sin movimientos)"))
		return
	}
	t.render(w)
	_, _ = fmt.Fprintln(w, totalStyle.Render(fmt.Sprintf("Total deudor %s   Total acreedor %s",
		money(tb.DebitTotal), money(tb.CreditTotal))))
}
