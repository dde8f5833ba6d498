// Package embed provides query embedding for the search API.
// This file implements model downloading and caching for GGUF embedding
// models, so that EMBEDDINGS_MODEL_PATH can point at a file that does not
// exist yet on a fresh deployment.
package embed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aman-news/searchcore/internal/apperrors"
)

const (
	// DefaultModelName is the default embedding model to use.
	DefaultModelName = "all-MiniLM-L6-v2"

	// DefaultModelFile is the quantized model file to download.
	DefaultModelFile = "all-MiniLM-L6-v2.Q8_0.gguf"

	// DefaultModelURL is the HuggingFace URL for the model.
	DefaultModelURL = "https://huggingface.co/leliuga/all-MiniLM-L6-v2-GGUF/resolve/main/all-MiniLM-L6-v2.Q8_0.gguf"

	// DefaultModelSize is the approximate size of the Q8_0 model in bytes (~25MB).
	DefaultModelSize = 25 * 1024 * 1024

	// MiniLMDimensions is the output dimension of all-MiniLM-L6-v2. It
	// matches the article index's dense-vector dimension.
	MiniLMDimensions = 384

	// ModelDownloadTimeout is the maximum time to wait for model download.
	ModelDownloadTimeout = 30 * time.Minute

	// downloadAttempts bounds the retried model fetch.
	downloadAttempts = 4
)

// ModelManager handles downloading and caching of embedding model files.
// The path it manages is the EMBEDDINGS_MODEL_PATH from configuration;
// concurrent replicas sharing a model volume serialize downloads through a
// cross-process file lock.
type ModelManager struct {
	modelPath string
	lock      *FileLock
	mu        sync.Mutex
}

// NewModelManager creates a model manager for the given model file path.
func NewModelManager(modelPath string) *ModelManager {
	return &ModelManager{
		modelPath: modelPath,
	}
}

// ModelPath returns the path to the model file.
func (m *ModelManager) ModelPath() string {
	return m.modelPath
}

// EnsureModel ensures the embedding model is available, downloading if
// necessary. Returns the path to the model file.
func (m *ModelManager) EnsureModel(ctx context.Context, progressFn func(downloaded, total int64)) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check if model already exists
	if info, err := os.Stat(m.modelPath); err == nil && info.Size() > 0 {
		return m.modelPath, nil
	}

	modelDir := filepath.Dir(m.modelPath)
	if err := os.MkdirAll(modelDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}

	// Acquire file lock to prevent concurrent downloads
	m.lock = NewFileLock(modelDir)
	if err := m.lock.Lock(); err != nil {
		return "", fmt.Errorf("failed to acquire download lock: %w", err)
	}
	defer func() {
		_ = m.lock.Unlock()
	}()

	// Check again after acquiring lock (another process may have downloaded)
	if info, err := os.Stat(m.modelPath); err == nil && info.Size() > 0 {
		return m.modelPath, nil
	}

	err := apperrors.Retry(ctx, apperrors.DefaultDownloadBackoff(), downloadAttempts, func() error {
		return m.downloadModel(ctx, m.modelPath, progressFn)
	})
	if err != nil {
		return "", fmt.Errorf("failed to download model: %w", err)
	}

	return m.modelPath, nil
}

// downloadModel downloads the model from HuggingFace.
func (m *ModelManager) downloadModel(ctx context.Context, destPath string, progressFn func(downloaded, total int64)) error {
	// Create temp file for atomic download
	tmpPath := destPath + ".tmp"
	defer os.Remove(tmpPath) // Clean up on failure

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, DefaultModelURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", "searchcore/1.0")

	client := &http.Client{
		Timeout: ModelDownloadTimeout,
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %s", resp.Status)
	}

	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer file.Close()

	totalSize := resp.ContentLength
	if totalSize <= 0 {
		totalSize = DefaultModelSize
	}

	// Download with progress tracking
	var downloaded int64
	buf := make([]byte, 32*1024)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := file.Write(buf[:n]); writeErr != nil {
				return fmt.Errorf("failed to write: %w", writeErr)
			}
			downloaded += int64(n)
			if progressFn != nil {
				progressFn(downloaded, totalSize)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read: %w", err)
		}
	}

	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename: %w", err)
	}

	return nil
}

// ModelExists checks if the model file exists.
func (m *ModelManager) ModelExists() bool {
	info, err := os.Stat(m.modelPath)
	return err == nil && info.Size() > 0
}

// DeleteModel removes the cached model file.
func (m *ModelManager) DeleteModel() error {
	return os.Remove(m.modelPath)
}

// DefaultModelPath returns the default model file path under the user's
// home directory.
func DefaultModelPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".searchcore", "models", DefaultModelFile)
}
