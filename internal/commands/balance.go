package commands

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/asientos/internal/model"
)

func printBalance(cmd *cobra.Command, b model.PeriodBalance) {
	t := &table{
		headers: []string{"Cuenta", "Periodo", "Saldo inicial", "Movimiento", "Saldo final"},
		right:   map[int]bool{2: true, 3: true, 4: true},
	}
	t.add(b.Account, b.Period.String(), money(b.Opening), money(b.Movement()), money(b.Closing))
	t.render(cmd.OutOrStdout())
}

func newBalanceCommand(cfgPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <account> <period>",
		Short: "Show an account's balance for a period (2025 or 2025-03)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := model.ParsePeriod(args[1])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, cfgPath())
			if err != nil {
				return err
			}
			defer a.close()

			b, err := a.journal.ComputeBalance(ctx, args[0], p)
			if err != nil {
				return err
			}
			printBalance(cmd, b)
			return nil
		},
	}
}

func newOpeningCommand(cfgPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "opening <account> <period> <amount>",
		Short: "Set an account's opening balance for a period",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := model.ParsePeriod(args[1])
			if err != nil {
				return err
			}
			amt, err := decimal.NewFromString(args[2])
			if err != nil {
				return fmt.Errorf("amount: %w", err)
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, cfgPath())
			if err != nil {
				return err
			}
			defer a.close()

			b, err := a.journal.SetOpeningBalance(ctx, args[0], p, amt)
			if err != nil {
				return err
			}
			printBalance(cmd, b)
			return nil
		},
	}
}

func newRecomputeCommand(cfgPath func() string) *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "recompute <period>",
		Short: "Recompute and store period balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := model.ParsePeriod(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, cfgPath())
			if err != nil {
				return err
			}
			defer a.close()

			if account != "" {
				b, err := a.journal.RecomputeBalance(ctx, account, p)
				if err != nil {
					return err
				}
				printBalance(cmd, b)
				return nil
			}

			out, err := a.journal.RecomputePeriod(ctx, p)
			if err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Recomputed %d balances for %s", len(out), p)
			return nil
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "only this account")
	return cmd
}
