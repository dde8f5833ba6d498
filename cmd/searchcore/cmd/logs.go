package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aman-news/searchcore/internal/logging"
)

func newLogsCmd() *cobra.Command {
	var (
		follow   bool
		lines    int
		level    string
		pattern  string
		filePath string
		noColor  bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View and follow the server's log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := logging.FindLogFile(filePath)
			if err != nil {
				return err
			}

			cfg := logging.ViewerConfig{
				Level:   level,
				NoColor: noColor,
			}
			if pattern != "" {
				re, err := regexp.Compile(pattern)
				if err != nil {
					return fmt.Errorf("invalid pattern: %w", err)
				}
				cfg.Pattern = re
			}

			viewer := logging.NewViewer(cfg, os.Stdout)

			entries, err := viewer.Tail(path, lines)
			if err != nil {
				return err
			}
			viewer.Print(entries)

			if !follow {
				return nil
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ch := make(chan logging.LogEntry, 64)
			go func() {
				for entry := range ch {
					fmt.Println(viewer.FormatEntry(entry))
				}
			}()
			defer close(ch)
			return viewer.Follow(ctx, path, ch)
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "stream new entries as they are written")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of trailing lines to show")
	cmd.Flags().StringVar(&level, "level", "", "minimum level to show (debug, info, warn, error)")
	cmd.Flags().StringVar(&pattern, "grep", "", "only show lines matching this regexp")
	cmd.Flags().StringVar(&filePath, "file", "", "explicit log file path")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	return cmd
}
