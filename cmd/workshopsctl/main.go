package main

import (
	"fmt"
	"os"

	"workshops/internal/logger"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	logger.Init()
	defer logger.Sync()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "workshopsctl",
		Short:         "Operator tooling for the workshops service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(hashPasswordCmd())
	rootCmd.AddCommand(replayWebhookCmd())

	return rootCmd
}
