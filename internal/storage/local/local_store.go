// Package local stores reports on the local filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"pilotage-service/internal/models"
	"pilotage-service/internal/storage"
)

type localStore struct {
	root string
}

// NewLocalStore returns a ReportStore rooted at dir, creating it if needed.
func NewLocalStore(dir string) (storage.ReportStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report dir %s: %w", dir, err)
	}
	return &localStore{root: dir}, nil
}

func (s *localStore) Save(ctx context.Context, input storage.SaveInput) (string, error) {
	target, err := s.resolve(input.Key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("failed to create report dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".report-*")
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, input.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close report: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("failed to move report into place: %w", err)
	}
	return target, nil
}

func (s *localStore) Load(ctx context.Context, key string) ([]byte, error) {
	target, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	return data, nil
}

// resolve maps key under root and rejects keys escaping it.
func (s *localStore) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: report key %q", models.ErrInvalidInput, key)
	}
	return filepath.Join(s.root, clean), nil
}
