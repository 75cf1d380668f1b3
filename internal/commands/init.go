package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/asientos/internal/accounts"
	"github.com/cleared-dev/asientos/internal/config"
)

func newInitCommand() *cobra.Command {
	var name string
	var chart string
	var driver string
	var dsn string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new ledger",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			cfg := config.Default(name)
			if driver != "" {
				cfg.Database.Driver = driver
			}
			if dsn != "" {
				cfg.Database.DSN = dsn
			}
			return runInit(cmd, absDir, cfg, chart)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "business name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&chart, "chart", "comercial", "default chart of accounts")
	cmd.Flags().StringVar(&driver, "driver", "", "database driver: sqlite or postgres")
	cmd.Flags().StringVar(&dsn, "dsn", "", "database file or connection URL")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, cfg *config.Config, chart string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	cfgPath := filepath.Join(dir, DefaultConfigFile)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, dir)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	n, err := a.accounts.Seed(ctx, accounts.DefaultChart(chart))
	if err != nil {
		return fmt.Errorf("seeding chart of accounts: %w", err)
	}

	out := cmd.OutOrStdout()
	printSuccess(out, "Initialized ledger for %s at %s", cfg.Business.Name, dir)
	printInfo(out, "%d accounts loaded from the %s chart", n, chart)
	return nil
}

func newMigrateCommand(cfgPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, cfgPath())
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.Migrate(ctx); err != nil {
				return fmt.Errorf("migrating database: %w", err)
			}
			printSuccess(cmd.OutOrStdout(), "Database schema is up to date")
			return nil
		},
	}
}
