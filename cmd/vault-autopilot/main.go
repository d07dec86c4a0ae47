// Command vault-autopilot reconciles a declarative manifest set against a
// Vault server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hqdncw/vault-autopilot-go/internal/logging"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

var rootCmd = &cobra.Command{
	Use:     "vault-autopilot",
	Short:   "Reconcile a declarative manifest set against a Vault server",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("vault-autopilot %s (%s)\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("settings", "", "Path to a settings YAML file (optional; falls back to environment overrides)")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(applyCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOutput, _ := rootCmd.PersistentFlags().GetBool("log-json")

	logging.Init(logging.Config{
		Level:      logging.Level(level),
		JSONOutput: jsonOutput,
	})
}
