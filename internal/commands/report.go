package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/asientos/internal/model"
	"github.com/cleared-dev/asientos/internal/report"
	"github.com/cleared-dev/asientos/internal/store"
)

func newReportCommand(cfgPath func() string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Ledger reports",
	}
	cmd.AddCommand(newTrialBalanceCommand(cfgPath), newJournalBookCommand(cfgPath))
	return cmd
}

func newTrialBalanceCommand(cfgPath func() string) *cobra.Command {
	var format string
	var opts report.Options

	cmd := &cobra.Command{
		Use:   "trial-balance <period> [output]",
		Short: "Balance of every account for a period",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := model.ParsePeriod(args[0])
			if err != nil {
				return err
			}
			if format != "table" && format != "json" && format != "xlsx" {
				return fmt.Errorf("unknown format %q (want table, json or xlsx)", format)
			}
			if format == "xlsx" && len(args) < 2 {
				return fmt.Errorf("xlsx output needs a file name")
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, cfgPath())
			if err != nil {
				return err
			}
			defer a.close()

			chart, err := a.accounts.Chart(ctx)
			if err != nil {
				return err
			}
			tb, err := report.BuildTrialBalance(ctx, chart, a.journal, p, opts)
			if err != nil {
				return err
			}

			return withOutput(cmd, args[1:], func(w io.Writer) error {
				switch format {
				case "json":
					enc := json.NewEncoder(w)
					enc.SetIndent("", "  ")
					return enc.Encode(tb)
				case "xlsx":
					return report.WriteXLSX(w, tb)
				default:
					renderTrialBalance(w, tb)
					return nil
				}
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "table, json or xlsx")
	cmd.Flags().IntVar(&opts.MaxLevel, "level", 0, "deepest account level to include (0 = all)")
	cmd.Flags().BoolVar(&opts.IncludeZero, "zero", false, "include accounts without balance")
	return cmd
}

func newJournalBookCommand(cfgPath func() string) *cobra.Command {
	var f store.LineFilter

	cmd := &cobra.Command{
		Use:   "journal [output.csv]",
		Short: "Journal book of posted lines as CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, cfgPath())
			if err != nil {
				return err
			}
			defer a.close()

			return withOutput(cmd, args, func(w io.Writer) error {
				n, err := report.WriteJournalBook(ctx, a.store, f, w)
				if err != nil {
					return err
				}
				a.log.Debug("journal book written", "lines", n)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.From, "from", "", "first date, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.To, "to", "", "last date, exclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.Account, "account", "", "only lines for this account")
	return cmd
}
