package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/asientos/internal/id"
	"github.com/cleared-dev/asientos/internal/journal"
	"github.com/cleared-dev/asientos/internal/model"
)

const dateLayout = "2006-01-02"

func newPostCommand(cfgPath func() string) *cobra.Command {
	var (
		h          model.EntryHeader
		date       string
		total      string
		linesFile  string
		debitAcct  string
		creditAcct string
		amount     string
		reference  string
		draft      bool
	)

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Post a journal entry",
		Long: `Post a journal entry. Lines come either from a CSV file (--lines) with
columns account,debit,credit,client_id,supplier_id,detail,reference, or from
--debit/--credit/--amount for a two-line entry.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := time.Parse(dateLayout, date)
			if err != nil {
				return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
			}
			h.Date = d

			var lines []model.Line
			switch {
			case linesFile != "":
				lines, err = readLinesFile(linesFile)
				if err != nil {
					return err
				}
				if total == "" {
					h.Total, _ = journal.Sums(lines)
				}
			case debitAcct != "" && creditAcct != "":
				amt, err := decimal.NewFromString(amount)
				if err != nil {
					return fmt.Errorf("--amount: %w", err)
				}
				lines = []model.Line{
					{Account: debitAcct, Debit: amt, Credit: decimal.Zero, ClientID: h.ClientID, SupplierID: h.SupplierID, Detail: h.Memo, Reference: reference},
					{Account: creditAcct, Debit: decimal.Zero, Credit: amt, ClientID: h.ClientID, SupplierID: h.SupplierID, Detail: h.Memo, Reference: reference},
				}
				if total == "" {
					h.Total = amt
				}
			default:
				return errors.New("either --lines or both --debit and --credit are required")
			}
			if total != "" {
				h.Total, err = decimal.NewFromString(total)
				if err != nil {
					return fmt.Errorf("--total: %w", err)
				}
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, cfgPath())
			if err != nil {
				return err
			}
			defer a.close()

			verb := "Posted"
			var hid string
			if draft {
				verb = "Saved draft"
				hid, err = a.journal.SaveDraft(ctx, h, lines)
			} else {
				hid, err = a.journal.Post(ctx, h, lines)
			}
			if err != nil {
				return err
			}
			posted, _, err := a.journal.Entry(ctx, hid)
			if err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "%s %s (%s) for %s", verb,
				id.FormatHeaderKey(posted.Type, posted.Folio), hid, money(posted.Total))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&h.Type, "type", "", "entry type, e.g. CD, CI, CE (required)")
	_ = cmd.MarkFlagRequired("type")
	f.IntVar(&h.Folio, "folio", 0, "folio number (next free if omitted)")
	f.StringVar(&date, "date", time.Now().Format(dateLayout), "entry date")
	f.StringVar(&h.Memo, "memo", "", "description")
	f.StringVar(&total, "total", "", "declared total (defaults to the debit sum)")
	f.StringVar(&h.ClientID, "client", "", "client id")
	f.StringVar(&h.SupplierID, "supplier", "", "supplier id")
	f.StringVar(&h.Journal, "journal", "", "journal name")
	f.StringVar(&h.CreatedBy, "actor", defaultActor(), "user recorded on the entry")
	f.StringVar(&linesFile, "lines", "", "CSV file with the entry lines")
	f.StringVar(&debitAcct, "debit", "", "debit account for a two-line entry")
	f.StringVar(&creditAcct, "credit", "", "credit account for a two-line entry")
	f.StringVar(&amount, "amount", "", "amount for a two-line entry")
	f.StringVar(&reference, "reference", "", "line reference for a two-line entry")
	f.BoolVar(&draft, "draft", false, "save as a pending draft instead of posting")

	return cmd
}

func readLinesFile(path string) ([]model.Line, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	return journal.ReadLines(r)
}

func newShowCommand(cfgPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|TYPE-FOLIO>",
		Short: "Show an entry and its lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, cfgPath())
			if err != nil {
				return err
			}
			defer a.close()

			h, lines, err := a.journal.Entry(ctx, args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%s  %s  %s",
				id.FormatHeaderKey(h.Type, h.Folio), h.Date.Format(dateLayout), h.Status)))
			if h.Memo != "" {
				_, _ = fmt.Fprintln(w, h.Memo)
			}
			if h.ReversalOf != "" {
				_, _ = fmt.Fprintln(w, mutedStyle.Render("reverses "+h.ReversalOf))
			}

			t := &table{
				headers: []string{"#", "Cuenta", "Debe", "Haber", "Detalle"},
				right:   map[int]bool{2: true, 3: true},
			}
			for _, l := range lines {
				t.add(fmt.Sprint(l.Seq), l.Account, blankZero(l.Debit), blankZero(l.Credit), l.Detail)
			}
			t.render(w)
			_, _ = fmt.Fprintln(w, totalStyle.Render("Total "+money(h.Total)))
			return nil
		},
	}
}

func blankZero(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return money(d)
}

func newRegisterCommand(cfgPath func() string) *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "register <id|TYPE-FOLIO>",
		Short: "Post a pending draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, cfgPath())
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.journal.Register(ctx, args[0], actor); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Registered %s", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&actor, "actor", defaultActor(), "user recorded in the audit log")
	return cmd
}

func newReverseCommand(cfgPath func() string) *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "reverse <id|TYPE-FOLIO>",
		Short: "Cancel a posted entry with a mirror entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, cfgPath())
			if err != nil {
				return err
			}
			defer a.close()

			rid, err := a.journal.Reverse(ctx, args[0], actor)
			if err != nil {
				return err
			}
			rev, _, err := a.journal.Entry(ctx, rid)
			if err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Cancelled %s with %s", args[0], id.FormatHeaderKey(rev.Type, rev.Folio))
			return nil
		},
	}
	cmd.Flags().StringVar(&actor, "actor", defaultActor(), "user recorded on the reversal")
	return cmd
}
