// Package store persists library documents.
//
// A Gateway saves and loads the tracks, hierarchy and color tag documents.
// DocumentGateway implements it over a DocumentStore backend: JSON files,
// Badger, or SQLite (package store/sqlite). Writer runs saves on a
// background goroutine so mutations never wait for disk.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

const docKeyPrefix = "doc:"

// Badger keeps documents in a Badger database under doc:<name> keys.
type Badger struct {
	db     *badger.DB
	logger *slog.Logger
}

// NewBadger opens or creates a Badger database at path.
func NewBadger(path string, logger *slog.Logger) (*Badger, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return &Badger{db: db, logger: logger}, nil
}

// Close gracefully closes the database connection.
func (s *Badger) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// Put implements DocumentStore.
func (s *Badger) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(documentKey(name), data)
	})
}

// Get implements DocumentStore.
func (s *Badger) Get(ctx context.Context, name string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(documentKey(name))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func documentKey(name string) []byte {
	return []byte(docKeyPrefix + name)
}
