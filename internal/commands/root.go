package commands

import (
	"github.com/spf13/cobra"

	"github.com/cleared-dev/asientos/internal/buildinfo"
)

// DefaultConfigFile is the config file looked up when --config is not given.
const DefaultConfigFile = "asientos.yaml"

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "asientos",
		Short:   "Double-entry ledger for small businesses",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", DefaultConfigFile, "path to asientos.yaml")

	cfgPath := func() string { return configPath }

	rootCmd.AddCommand(
		newInitCommand(),
		newMigrateCommand(cfgPath),
		newAccountsCommand(cfgPath),
		newPostCommand(cfgPath),
		newShowCommand(cfgPath),
		newRegisterCommand(cfgPath),
		newReverseCommand(cfgPath),
		newBalanceCommand(cfgPath),
		newOpeningCommand(cfgPath),
		newRecomputeCommand(cfgPath),
		newReportCommand(cfgPath),
		newServeCommand(cfgPath),
	)

	return rootCmd
}
