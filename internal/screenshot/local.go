package screenshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalStore writes screenshots to a directory on disk.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

func (s *LocalStore) Save(ctx context.Context, executionID, name string, data []byte) (string, error) {
	dir := filepath.Join(s.dir, executionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create screenshot dir: %w", err)
	}

	path := filepath.Join(dir, name+".png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write screenshot %s: %w", path, err)
	}
	return path, nil
}
