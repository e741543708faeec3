package badger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reportrelay/internal/common"
	"github.com/timshannon/badgerhold/v4"
)

// ErrUnsafeReset is returned when reset_on_startup points at a directory
// that does not hold a Badger database
var ErrUnsafeReset = errors.New("refusing to reset a directory that is not a badger database")

// badgerMarkers are files Badger writes into every database directory
var badgerMarkers = []string{"MANIFEST", "KEYREGISTRY"}

// BadgerDB is the run history database
type BadgerDB struct {
	store    *badgerhold.Store
	path     string
	inMemory bool
	logger   arbor.ILogger
}

// Open opens the run history database described by config. An in-memory
// database ignores the path and the reset flag.
func Open(config common.BadgerConfig, logger arbor.ILogger) (*BadgerDB, error) {
	options := badgerhold.DefaultOptions
	options.Logger = nil // badger's own logger is too chatty; arbor covers it

	db := &BadgerDB{inMemory: config.InMemory, logger: logger}

	if config.InMemory {
		options.InMemory = true
	} else {
		path, err := filepath.Abs(config.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve run history path %q: %w", config.Path, err)
		}
		if config.ResetOnStartup {
			if err := resetDir(path, logger); err != nil {
				return nil, err
			}
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create run history directory: %w", err)
		}
		options.Dir = path
		options.ValueDir = path
		db.path = path
	}

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open run history at %s: %w", db.describe(), err)
	}
	db.store = store

	lsm, vlog := store.Badger().Size()
	logger.Info().
		Str("path", db.describe()).
		Int64("lsm_bytes", lsm).
		Int64("vlog_bytes", vlog).
		Msg("Run history store opened")

	return db, nil
}

// resetDir deletes an existing database directory. Anything that does not
// look like a Badger directory is left alone.
func resetDir(path string, logger arbor.ILogger) error {
	entries, err := os.ReadDir(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to inspect run history directory: %w", err)
	}
	if len(entries) > 0 && !isBadgerDir(path) {
		return fmt.Errorf("%w: %s", ErrUnsafeReset, path)
	}

	logger.Warn().Str("path", path).Msg("Deleting run history (reset_on_startup=true)")
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to delete run history directory: %w", err)
	}
	return nil
}

func isBadgerDir(path string) bool {
	for _, name := range badgerMarkers {
		if _, err := os.Stat(filepath.Join(path, name)); err == nil {
			return true
		}
	}
	return false
}

func (b *BadgerDB) describe() string {
	if b.inMemory {
		return "memory"
	}
	return b.path
}

// Path returns the absolute database directory, or "" for an in-memory database
func (b *BadgerDB) Path() string {
	return b.path
}

// Store returns the underlying badgerhold store
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// Close closes the database
func (b *BadgerDB) Close() error {
	if b.store == nil {
		return nil
	}
	b.logger.Debug().Str("path", b.describe()).Msg("Closing run history store")
	return b.store.Close()
}
