package journal

import (
	"fmt"
	"html"
	"strings"

	"github.com/cleared-dev/asientos/internal/id"
	"github.com/cleared-dev/asientos/internal/model"
)

// MaxTextLen is the widest memo or line detail the stores accept, in
// characters.
const MaxTextLen = 255

// ReversalHeader builds the annulment header for orig. Its total is the
// debit sum of mirror, which is the original's credit sum. The folio is left
// zero so posting allocates the next one for the type.
func ReversalHeader(orig model.EntryHeader, mirror []model.Line, actor string) model.EntryHeader {
	total, _ := Sums(mirror)
	return model.EntryHeader{
		Type:       orig.Type,
		Date:       orig.Date,
		Memo:       clip(fmt.Sprintf("ANULACIÓN %s: %s", id.FormatHeaderKey(orig.Type, orig.Folio), orig.Memo), MaxTextLen),
		Total:      total,
		ClientID:   orig.ClientID,
		SupplierID: orig.SupplierID,
		Journal:    orig.Journal,
		ReversalOf: orig.ID,
		CreatedBy:  actor,
	}
}

// MirrorLines swaps debit and credit on every line, keeping account,
// counterparty and reference.
func MirrorLines(lines []model.Line) []model.Line {
	out := make([]model.Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, model.Line{
			Seq:        l.Seq,
			Account:    l.Account,
			Debit:      l.Credit,
			Credit:     l.Debit,
			ClientID:   l.ClientID,
			SupplierID: l.SupplierID,
			Detail:     clip(fmt.Sprintf("Anulación de partida %d: %s", l.Seq, l.Detail), MaxTextLen),
			Reference:  l.Reference,
		})
	}
	return out
}

// clip cuts s to at most n runes.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func cancellationNotice(orig, rev model.EntryHeader, actor string) (subject, body string) {
	origKey := id.FormatHeaderKey(orig.Type, orig.Folio)
	revKey := id.FormatHeaderKey(rev.Type, rev.Folio)
	subject = "Comprobante " + origKey + " anulado"

	var b strings.Builder
	b.WriteString("<h3>Anulación de comprobante</h3>\n")
	fmt.Fprintf(&b, "<p>El comprobante <strong>%s</strong> del %s ha sido anulado.</p>\n",
		html.EscapeString(origKey), orig.Date.Format("2006-01-02"))
	fmt.Fprintf(&b, "<p>Comprobante de anulación: %s</p>\n", html.EscapeString(revKey))
	fmt.Fprintf(&b, "<p>Monto: %s</p>\n", orig.Total.StringFixed(2))
	fmt.Fprintf(&b, "<p>Usuario: %s</p>\n", html.EscapeString(actor))
	return subject, b.String()
}
