package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/asientos/internal/model"
)

func newAccountsCommand(cfgPath func() string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage the chart of accounts",
	}
	cmd.AddCommand(
		newAccountsListCommand(cfgPath),
		newAccountsAddCommand(cfgPath),
		newAccountsMoveCommand(cfgPath),
		newAccountsDeleteCommand(cfgPath),
		newAccountsImportCommand(cfgPath),
		newAccountsExportCommand(cfgPath),
	)
	return cmd
}

func newAccountsListCommand(cfgPath func() string) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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
			accts := chart.All()
			if category != "" {
				accts = chart.ByCategory(model.AccountCategory(category))
			}

			t := &table{headers: []string{"Código", "Cuenta", "Categoría", "Naturaleza", "Nivel", "Padre"}}
			for _, acct := range accts {
				name := strings.Repeat("  ", max(acct.Level-1, 0)) + acct.Name
				t.add(acct.Code, name, string(acct.Category), string(acct.Nature), strconv.Itoa(acct.Level), acct.Parent)
			}
			t.render(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only accounts of this category")
	return cmd
}

func newAccountsAddCommand(cfgPath func() string) *cobra.Command {
	var acct model.Account
	var category, nature string

	cmd := &cobra.Command{
		Use:   "add <code> <name>",
		Short: "Add an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			acct.Code, acct.Name = args[0], args[1]
			acct.Category = model.AccountCategory(category)
			if nature != "" {
				n, err := model.ParseNature(nature)
				if err != nil {
					return err
				}
				acct.Nature = n
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, cfgPath())
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.accounts.Create(ctx, acct); err != nil {
				return err
			}
			created, err := a.accounts.Get(ctx, acct.Code)
			if err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Added %s %s (%s, level %d)", created.Code, created.Name, created.Nature, created.Level)
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "asset, liability, equity, income or expense (required)")
	_ = cmd.MarkFlagRequired("category")
	cmd.Flags().StringVar(&acct.Parent, "parent", "", "parent account code")
	cmd.Flags().StringVar(&nature, "nature", "", "debit or credit (defaults from category)")
	return cmd
}

func newAccountsMoveCommand(cfgPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "move <code> <parent>",
		Short: `Re-parent an account; use "" as parent for the top level`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, cfgPath())
			if err != nil {
				return err
			}
			defer a.close()

			acct, err := a.accounts.Get(ctx, args[0])
			if err != nil {
				return err
			}
			acct.Parent = args[1]
			if err := a.accounts.Update(ctx, acct); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Moved %s under %q", acct.Code, acct.Parent)
			return nil
		},
	}
}

func newAccountsDeleteCommand(cfgPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <code>",
		Short: "Delete an account and its sub-accounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, cfgPath())
			if err != nil {
				return err
			}
			defer a.close()

			codes, err := a.accounts.Delete(ctx, args[0])
			if err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Deleted %s", strings.Join(codes, ", "))
			return nil
		},
	}
}

func newAccountsImportCommand(cfgPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import accounts from CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			ctx := cmd.Context()
			a, err := openApp(ctx, cfgPath())
			if err != nil {
				return err
			}
			defer a.close()

			n, err := a.accounts.Import(ctx, f)
			if err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Imported %d accounts", n)
			return nil
		},
	}
}

func newAccountsExportCommand(cfgPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file.csv]",
		Short: "Export accounts as CSV (stdout by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, cfgPath())
			if err != nil {
				return err
			}
			defer a.close()

			return withOutput(cmd, args, func(w io.Writer) error {
				return a.accounts.Export(ctx, w)
			})
		},
	}
}

// withOutput runs fn against the file named by args[0], or stdout when no
// file (or "-") is given.
func withOutput(cmd *cobra.Command, args []string, fn func(io.Writer) error) error {
	if len(args) == 0 || args[0] == "-" {
		return fn(cmd.OutOrStdout())
	}
	f, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("creating %s: %w", args[0], err)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
