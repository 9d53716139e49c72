package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerStoreConfig configures a BadgerStore.
type BadgerStoreConfig struct {
	// DBPath is the database directory. Ignored when InMemory is set.
	DBPath string `mapstructure:"db_path"`

	// InMemory keeps the database entirely in memory.
	InMemory bool `mapstructure:"in_memory"`
}

// BadgerStore persists exchanges in a local BadgerDB.
//
// Key layout:
//
//	x:<run id>:<seq, 10 digits>  ->  JSON encoded Exchange
type BadgerStore struct {
	db *badger.DB

	mu     sync.RWMutex
	closed bool
}

// NewBadgerStore opens (or creates) the database described by cfg.
func NewBadgerStore(ctx context.Context, cfg BadgerStoreConfig) (*BadgerStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.DBPath == "" {
			return nil, fmt.Errorf("badger capture store: db_path is required")
		}
		opts = badger.DefaultOptions(cfg.DBPath)
	}
	opts = opts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.DBPath, err)
	}
	return &BadgerStore{db: db}, nil
}

func keyRunPrefix(runID string) []byte {
	return []byte("x:" + runID + ":")
}

func keyExchange(runID string, seq uint64) []byte {
	return []byte("x:" + runID + ":" + seqKey(seq))
}

func (s *BadgerStore) Append(ctx context.Context, x Exchange) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}

	val, err := json.Marshal(x)
	if err != nil {
		return fmt.Errorf("failed to marshal exchange: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyExchange(x.RunID, x.Seq), val)
	})
}

func (s *BadgerStore) List(ctx context.Context, runID string) ([]Exchange, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	out := []Exchange{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.Prefix = keyRunPrefix(runID)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var x Exchange
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &x)
			})
			if err != nil {
				return fmt.Errorf("failed to decode exchange %s: %w", it.Item().Key(), err)
			}
			out = append(out, x)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
