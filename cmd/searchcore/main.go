// Package main provides the entry point for the searchcore CLI.
package main

import (
	"os"

	"github.com/aman-news/searchcore/cmd/searchcore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
