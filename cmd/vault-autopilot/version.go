package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the vault-autopilot version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("vault-autopilot %s (%s)\n", Version, Commit)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
