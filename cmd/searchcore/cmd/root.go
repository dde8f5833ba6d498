// Package cmd provides the CLI commands for the searchcore API server.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aman-news/searchcore/pkg/version"
)

var (
	// configPath is the --config flag: an explicit config file location.
	configPath string
	// debugMode forces debug-level logging regardless of configuration.
	debugMode bool
)

// NewRootCmd creates the root command for the searchcore CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "searchcore",
		Short: "Read-side search API for the news corpus",
		Long: `searchcore serves the article, topic, topic-batch and category
search endpoints over the document store, fusing lexical and semantic
result streams, and ingests analyzed article batches from the
notification stream.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.searchcore/config.yaml)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}
