// ABOUTME: Device-local BadgerDB cache for document history, purchase orders and the API session
// ABOUTME: Backs merge.HistoryStore and api.Session; in-memory mode is used by tests

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
	"github.com/dgraph-io/badger/v3"
	"github.com/harperreed/dealflow/models"
)

const (
	AppName = "dealflow"

	historyPrefix     = "history:"
	purchaseOrdersKey = "poList"
	sessionTokenKey   = "session:token"
)

// Store wraps a BadgerDB instance. All values are JSON.
type Store struct {
	db *badger.DB
	mu sync.RWMutex
}

// DefaultDir returns the cache directory under the XDG data home.
func DefaultDir() string {
	return filepath.Join(xdg.DataHome, AppName, "cache")
}

// Open opens (creating if needed) the cache at dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a cache that lives only as long as the process.
func OpenInMemory() (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory cache: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(key string, out interface{}) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) set(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (s *Store) delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// keysWithPrefix lists keys in byte order.
func (s *Store) keysWithPrefix(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return keys, err
}

// History

// ListAll returns every cached customer history record.
func (s *Store) ListAll(ctx context.Context) ([]models.HistoryRecord, error) {
	keys, err := s.keysWithPrefix(historyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list history keys: %w", err)
	}

	records := make([]models.HistoryRecord, 0, len(keys))
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var rec models.HistoryRecord
		ok, err := s.get(key, &rec)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		rec.Key = key
		records = append(records, rec)
	}
	return records, nil
}

// Save stores a history record under its key, or under history:<customer>
// when the key is empty. A record with no documents is removed.
func (s *Store) Save(_ context.Context, rec models.HistoryRecord) error {
	if rec.Key == "" {
		rec.Key = historyPrefix + rec.Customer
	}
	if len(rec.Documents) == 0 {
		return s.delete(rec.Key)
	}
	return s.set(rec.Key, rec)
}

// PurchaseOrders returns the cached purchase order list.
func (s *Store) PurchaseOrders(context.Context) ([]models.Document, error) {
	var docs []models.Document
	if _, err := s.get(purchaseOrdersKey, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Store) SavePurchaseOrders(_ context.Context, docs []models.Document) error {
	return s.set(purchaseOrdersKey, docs)
}

// Session

// Token returns the stored API token, or "" when logged out.
func (s *Store) Token(context.Context) (string, error) {
	var token string
	if _, err := s.get(sessionTokenKey, &token); err != nil {
		return "", err
	}
	return token, nil
}

func (s *Store) SetToken(_ context.Context, token string) error {
	return s.set(sessionTokenKey, token)
}

// ClearToken forgets the stored token. Clearing an empty session is not an error.
func (s *Store) ClearToken(context.Context) error {
	return s.delete(sessionTokenKey)
}
