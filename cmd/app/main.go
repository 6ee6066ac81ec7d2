package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matthewdavidson09/cloud-attribute-sync/internal/config"
	"github.com/matthewdavidson09/cloud-attribute-sync/tools"
)

var (
	envFile  string
	logLevel string
	logJSON  bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "attrsync",
	Short: "Sync user attributes from Entra ID to Active Directory",
	Long: `attrsync copies phone, address, job title, department, city, company,
country and manager from Microsoft Entra ID accounts onto the matching
on-premises Active Directory accounts, driven by a CSV of principal names.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(envFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("log-json") {
			cfg.LogJSON = logJSON
		}
		tools.InitLogger(cfg.LogLevel, cfg.LogJSON)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with connection settings")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")

	rootCmd.AddCommand(syncCmd, immutableIDCmd, countryCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		tools.Log.Error(err)
		os.Exit(1)
	}
}
