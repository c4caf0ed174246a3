package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	lockRetryDelay = 50 * time.Millisecond
	lockTimeout    = 5 * time.Second
)

// JSONFiles keeps each document in <dir>/<name>.json. Writes go to a
// temporary file that is renamed over the target, under a cross-process
// lock file next to it.
type JSONFiles struct {
	dir string
}

// NewJSONFiles creates dir if needed.
func NewJSONFiles(dir string) (*JSONFiles, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &JSONFiles{dir: dir}, nil
}

// Path returns the file backing a document.
func (s *JSONFiles) Path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Put implements DocumentStore.
func (s *JSONFiles) Put(ctx context.Context, name string, data []byte) error {
	path := s.Path(name)
	lock := flock.New(path + ".lock")

	if err := acquire(ctx, lock.TryLockContext); err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpFile, path); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Get implements DocumentStore.
func (s *JSONFiles) Get(ctx context.Context, name string) ([]byte, bool, error) {
	path := s.Path(name)
	lock := flock.New(path + ".lock")

	if err := acquire(ctx, lock.TryRLockContext); err != nil {
		return nil, false, err
	}
	defer func() { _ = lock.Unlock() }()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	return data, true, nil
}

// Close implements DocumentStore. Locks are held only during a call.
func (s *JSONFiles) Close() error {
	return nil
}

func acquire(ctx context.Context, try func(context.Context, time.Duration) (bool, error)) error {
	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := try(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("could not acquire file lock")
	}
	return nil
}
