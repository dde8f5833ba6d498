package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aman-news/searchcore/pkg/version"
)

func newVersionCmd() *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			if full {
				fmt.Println(version.Full())
				return
			}
			fmt.Println(version.String())
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "include build metadata and platform")
	return cmd
}
