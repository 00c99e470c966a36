package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileConfig configures the provider that reads mounted secret files,
// such as Kubernetes secret volumes.
type FileConfig struct {
	BasePath string
}

type fileProvider struct {
	base string
}

func newFileProvider(cfg FileConfig) (provider, error) {
	info, err := os.Stat(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("secrets: base path %s not accessible: %w", cfg.BasePath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("secrets: base path %s is not a directory", cfg.BasePath)
	}
	return &fileProvider{base: cfg.BasePath}, nil
}

func (f *fileProvider) Name() ProviderType { return ProviderFile }

func (f *fileProvider) Close() error { return nil }

// Fetch reads a directory as one file per key, or a single file keyed by its name.
func (f *fileProvider) Fetch(ctx context.Context, ref Reference) (Secret, error) {
	target := filepath.Join(f.base, filepath.Clean("/"+ref.Path))

	info, err := os.Stat(target)
	if err != nil {
		return Secret{}, fmt.Errorf("secrets: %s not found: %w", ref.Path, err)
	}

	data := make(map[string]string)
	if !info.IsDir() {
		content, err := os.ReadFile(target)
		if err != nil {
			return Secret{}, err
		}
		data[filepath.Base(target)] = strings.TrimSpace(string(content))
		return Secret{Data: data}, nil
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		return Secret{}, err
	}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), "..") {
			continue
		}
		content, err := os.ReadFile(filepath.Join(target, entry.Name()))
		if err != nil {
			return Secret{}, err
		}
		data[entry.Name()] = strings.TrimSpace(string(content))
	}
	return Secret{Data: data}, nil
}
