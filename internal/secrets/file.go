package secrets

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/searchsvc/gateway/internal/observability"
)

// FileProvider reads secrets from files in a base directory, one file
// per secret. This matches the layout of mounted secret volumes.
type FileProvider struct {
	baseDir string
	logger  observability.Logger
}

// FileOption is a functional option for the file provider.
type FileOption func(*FileProvider)

// WithFileLogger sets the logger for the file provider.
func WithFileLogger(logger observability.Logger) FileOption {
	return func(p *FileProvider) {
		p.logger = logger
	}
}

// NewFileProvider creates a new file-based secrets provider rooted at
// baseDir.
func NewFileProvider(baseDir string, opts ...FileOption) (*FileProvider, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("%w: base directory is required", ErrProviderNotConfigured)
	}

	info, err := os.Stat(baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderNotConfigured, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrProviderNotConfigured, baseDir)
	}

	p := &FileProvider{
		baseDir: baseDir,
		logger:  observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Type returns the provider type.
func (p *FileProvider) Type() ProviderType {
	return ProviderTypeFile
}

// Get retrieves a secret from the file named after it. A trailing
// newline is trimmed so `echo secret > file` works as expected.
func (p *FileProvider) Get(_ context.Context, name string) ([]byte, error) {
	if name == "" || strings.Contains(name, "..") {
		return nil, fmt.Errorf("%w: invalid secret name %q", ErrSecretNotFound, name)
	}

	path := filepath.Join(p.baseDir, filepath.Clean(name))
	data, err := os.ReadFile(path) //nolint:gosec // path is rooted at the configured base directory
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, name)
		}
		return nil, fmt.Errorf("failed to read secret %s: %w", name, err)
	}

	return bytes.TrimRight(data, "\r\n"), nil
}

// HealthCheck verifies the base directory is still accessible.
func (p *FileProvider) HealthCheck(_ context.Context) error {
	_, err := os.Stat(p.baseDir)
	return err
}

// Close releases provider resources.
func (p *FileProvider) Close() error {
	return nil
}

var _ Provider = (*FileProvider)(nil)
