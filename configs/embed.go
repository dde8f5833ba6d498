// Package configs provides the embedded configuration template for
// searchcore.
//
// The template is embedded at build time using Go's //go:embed directive,
// so it is available in every distribution: source builds (go install) and
// binary releases alike.
//
// Configuration hierarchy (see internal/config.Load):
//  1. Hardcoded defaults (internal/config.NewConfig)
//  2. Config file (~/.searchcore/config.yaml, or --config / SEARCHER_CONFIG)
//  3. Environment variables (ELASTIC_*, REDIS_*, CORS_*, EMBEDDINGS_MODEL_PATH, ...)
//
// To modify the template, edit config.example.yaml in this directory and
// rebuild.
package configs

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

// ConfigTemplate is the commented example configuration written by
// `searchcore config init`.
//
//go:embed config.example.yaml
var ConfigTemplate string

// WriteExampleConfig writes the template to path, creating parent
// directories as needed.
func WriteExampleConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(ConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}
