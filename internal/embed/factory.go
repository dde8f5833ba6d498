package embed

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// ProviderType represents an embedding provider
type ProviderType string

const (
	// ProviderOllama uses the Ollama API for embeddings (default)
	ProviderOllama ProviderType = "ollama"

	// ProviderStatic uses hash-based embeddings (dev/test fallback with no
	// model runtime)
	ProviderStatic ProviderType = "static"
)

// Options carries the embedding configuration resolved by the config layer.
type Options struct {
	// ModelPath is the local model file the runtime serves
	// (EMBEDDINGS_MODEL_PATH). When set, the factory bootstraps it with a
	// locked download before constructing the embedder.
	ModelPath string

	// OllamaHost overrides the Ollama endpoint.
	OllamaHost string

	// OllamaModel overrides the Ollama model name.
	OllamaModel string

	// Dimensions is the dense-vector dimension the article index was
	// created with. A constructed embedder whose output width differs is a
	// startup error, not a per-request one.
	Dimensions int

	// CacheSize is the query-embedding LRU capacity (0 = default).
	CacheSize int
}

// NewEmbedder creates an embedder based on provider type.
// The SEARCHER_EMBEDDER environment variable can override the provider:
//   - "ollama": Use OllamaEmbedder (default)
//   - "static": Use StaticEmbedder (hash-based, no model runtime)
//
// Query embedding caching is enabled by default. Set
// SEARCHER_EMBED_CACHE=false to disable caching.
func NewEmbedder(ctx context.Context, provider ProviderType, opts Options) (Embedder, error) {
	if env := os.Getenv("SEARCHER_EMBEDDER"); env != "" {
		provider = ParseProvider(env)
	}

	// Bootstrap the model file before constructing a runtime-backed
	// embedder; the static embedder has no model file.
	if provider != ProviderStatic && opts.ModelPath != "" {
		mgr := NewModelManager(opts.ModelPath)
		if _, err := mgr.EnsureModel(ctx, nil); err != nil {
			return nil, fmt.Errorf("ensuring embedding model at %s: %w", opts.ModelPath, err)
		}
	}

	var embedder Embedder
	var err error
	switch provider {
	case ProviderStatic:
		embedder = NewStaticEmbedder(opts.Dimensions)
	default:
		embedder, err = newOllama(ctx, opts)
	}
	if err != nil {
		return nil, err
	}

	if opts.Dimensions > 0 && embedder.Dimensions() != opts.Dimensions {
		_ = embedder.Close()
		return nil, fmt.Errorf("embedder %s emits %d-dimensional vectors, index expects %d",
			embedder.ModelName(), embedder.Dimensions(), opts.Dimensions)
	}

	if !isCacheDisabled() {
		embedder = NewCachedEmbedder(embedder, opts.CacheSize)
	}

	return embedder, nil
}

// isCacheDisabled checks if embedding cache is disabled via environment.
func isCacheDisabled() bool {
	v := strings.ToLower(os.Getenv("SEARCHER_EMBED_CACHE"))
	return v == "false" || v == "0" || v == "off" || v == "disabled"
}

// newOllama creates the Ollama embedder, layering env overrides over the
// resolved options.
func newOllama(ctx context.Context, opts Options) (Embedder, error) {
	cfg := DefaultOllamaConfig()
	if opts.OllamaHost != "" {
		cfg.Host = opts.OllamaHost
	}
	if opts.OllamaModel != "" {
		cfg.Model = opts.OllamaModel
	}

	// Environment variables take precedence over config file settings
	if host := os.Getenv("SEARCHER_OLLAMA_HOST"); host != "" {
		cfg.Host = host
	}
	if model := os.Getenv("SEARCHER_OLLAMA_MODEL"); model != "" {
		cfg.Model = model
	}

	embedder, err := NewOllamaEmbedder(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ollama unavailable: %w\n\nTo fix:\n  1. Start Ollama: ollama serve\n  2. Or use hash embeddings: SEARCHER_EMBEDDER=static", err)
	}
	return embedder, nil
}

// ParseProvider converts a string to ProviderType
func ParseProvider(s string) ProviderType {
	switch strings.ToLower(s) {
	case "static":
		return ProviderStatic
	default:
		return ProviderOllama
	}
}

// String returns the string representation of ProviderType
func (p ProviderType) String() string {
	return string(p)
}

// ValidProviders returns all valid provider names
func ValidProviders() []string {
	return []string{
		string(ProviderOllama),
		string(ProviderStatic),
	}
}

// IsValidProvider checks if a provider name is valid
func IsValidProvider(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range ValidProviders() {
		if lower == p {
			return true
		}
	}
	return false
}

// EmbedderInfo contains information about an embedder
type EmbedderInfo struct {
	Provider   ProviderType
	Model      string
	Dimensions int
	Available  bool
}

// GetInfo returns information about an embedder
func GetInfo(ctx context.Context, embedder Embedder) EmbedderInfo {
	info := EmbedderInfo{
		Model:      embedder.ModelName(),
		Dimensions: embedder.Dimensions(),
		Available:  embedder.Available(ctx),
	}

	// Unwrap cached embedder to get underlying type
	inner := embedder
	if cached, ok := embedder.(*CachedEmbedder); ok {
		inner = cached.inner
	}

	switch inner.(type) {
	case *OllamaEmbedder:
		info.Provider = ProviderOllama
	default:
		info.Provider = ProviderStatic
	}

	return info
}

// MustNewEmbedder creates an embedder and panics on failure.
// Use only in tests or initialization code where failure is fatal.
func MustNewEmbedder(ctx context.Context, provider ProviderType, opts Options) Embedder {
	embedder, err := NewEmbedder(ctx, provider, opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create embedder: %v", err))
	}
	return embedder
}
