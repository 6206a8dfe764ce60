// Binary govdash serves the governance dashboard and exposes its operations on the command line.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"govdash/internal/app"
	"govdash/internal/config"
	"govdash/internal/util"
)

const defaultConfigPath = "internal/config/config.yaml"

var (
	configPath string
	logLevel   string

	cfg *config.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "govdash",
	Short: "Governance dashboard for the xasset collateral ratio",
	Long: `govdash reads the xasset contract's minimum collateralization ratio, submits
execute_change invocations to the governance contract, and resolves account
sequence numbers from Horizon.

Run "govdash serve" for the browser dashboard.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		config.ApplyEnv(loaded)
		if logLevel != "" {
			loaded.App.LogLevel = logLevel
		}
		cfg = loaded
		log = util.NewLogger(cfg.App.LogLevel).With().Str("app", cfg.App.Name).Logger()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to the YAML config")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override app.log_level")

	rootCmd.AddCommand(serveCmd, ratioCmd, executeCmd, sequenceCmd, contractsCmd)
}

func newApp() (*app.App, error) {
	return app.New(cfg, log)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
