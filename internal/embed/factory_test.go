package embed

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbedder_StaticProvider_Succeeds(t *testing.T) {
	ctx := context.Background()
	embedder, err := NewEmbedder(ctx, ProviderStatic, Options{})
	require.NoError(t, err)
	defer embedder.Close()

	assert.Equal(t, "static", embedder.ModelName())
	assert.Equal(t, DefaultDimensions, embedder.Dimensions())
	assert.True(t, embedder.Available(ctx))
}

func TestNewEmbedder_StaticProvider_HonorsDimensions(t *testing.T) {
	ctx := context.Background()
	embedder, err := NewEmbedder(ctx, ProviderStatic, Options{Dimensions: 512})
	require.NoError(t, err)
	defer embedder.Close()

	assert.Equal(t, 512, embedder.Dimensions())
}

func TestNewEmbedder_WrapsWithCacheByDefault(t *testing.T) {
	orig := os.Getenv("SEARCHER_EMBED_CACHE")
	defer os.Setenv("SEARCHER_EMBED_CACHE", orig)
	os.Unsetenv("SEARCHER_EMBED_CACHE")

	ctx := context.Background()
	embedder, err := NewEmbedder(ctx, ProviderStatic, Options{})
	require.NoError(t, err)
	defer embedder.Close()

	_, isCached := embedder.(*CachedEmbedder)
	assert.True(t, isCached, "embedder should be wrapped in CachedEmbedder by default")
}

func TestNewEmbedder_CacheDisabledViaEnv(t *testing.T) {
	orig := os.Getenv("SEARCHER_EMBED_CACHE")
	defer os.Setenv("SEARCHER_EMBED_CACHE", orig)
	os.Setenv("SEARCHER_EMBED_CACHE", "false")

	ctx := context.Background()
	embedder, err := NewEmbedder(ctx, ProviderStatic, Options{})
	require.NoError(t, err)
	defer embedder.Close()

	_, isCached := embedder.(*CachedEmbedder)
	assert.False(t, isCached, "SEARCHER_EMBED_CACHE=false should disable the cache wrapper")
}

func TestNewEmbedder_EnvOverridesProvider(t *testing.T) {
	orig := os.Getenv("SEARCHER_EMBEDDER")
	defer os.Setenv("SEARCHER_EMBEDDER", orig)
	os.Setenv("SEARCHER_EMBEDDER", "static")

	ctx := context.Background()

	// Requesting Ollama but the env pins static: no network call happens.
	embedder, err := NewEmbedder(ctx, ProviderOllama, Options{})
	require.NoError(t, err)
	defer embedder.Close()
	assert.Equal(t, "static", embedder.ModelName())
}

func TestNewEmbedder_OllamaUnavailable_ReturnsError(t *testing.T) {
	origEmbedder := os.Getenv("SEARCHER_EMBEDDER")
	origHost := os.Getenv("SEARCHER_OLLAMA_HOST")
	defer func() {
		os.Setenv("SEARCHER_EMBEDDER", origEmbedder)
		os.Setenv("SEARCHER_OLLAMA_HOST", origHost)
	}()

	os.Unsetenv("SEARCHER_EMBEDDER")
	os.Setenv("SEARCHER_OLLAMA_HOST", "http://localhost:59999")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	embedder, err := NewEmbedder(ctx, ProviderOllama, Options{})

	require.Error(t, err, "embedder should error when the runtime is unavailable, not fall back silently")
	assert.Nil(t, embedder)
	assert.Contains(t, err.Error(), "ollama unavailable")
	assert.Contains(t, err.Error(), "ollama serve")
}

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in   string
		want ProviderType
	}{
		{"static", ProviderStatic},
		{"STATIC", ProviderStatic},
		{"ollama", ProviderOllama},
		{"", ProviderOllama},
		{"anything-else", ProviderOllama},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseProvider(tt.in))
		})
	}
}

func TestIsValidProvider(t *testing.T) {
	assert.True(t, IsValidProvider("ollama"))
	assert.True(t, IsValidProvider("static"))
	assert.True(t, IsValidProvider("Static"))
	assert.False(t, IsValidProvider("mlx"))
	assert.False(t, IsValidProvider(""))
}

func TestGetInfo_UnwrapsCachedEmbedder(t *testing.T) {
	ctx := context.Background()
	inner := NewStaticEmbedder(0)
	cached := NewCachedEmbedder(inner, 10)
	defer cached.Close()

	info := GetInfo(ctx, cached)

	assert.Equal(t, ProviderStatic, info.Provider)
	assert.Equal(t, "static", info.Model)
	assert.Equal(t, DefaultDimensions, info.Dimensions)
	assert.True(t, info.Available)
}
