package alias

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
)

const badgerKeyPrefix = "alias/"

// BadgerBackend keeps one key per source in an embedded Badger database. A
// save writes every source in a single transaction.
type BadgerBackend struct {
	db *badger.DB
}

func NewBadgerBackend(path string) (*BadgerBackend, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("alias badger path is required")
	}
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return &BadgerBackend{db: db}, nil
}

func (b *BadgerBackend) Load(_ context.Context) (Snapshot, error) {
	snap := Snapshot{}
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(badgerKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			source := strings.TrimPrefix(string(item.Key()), badgerKeyPrefix)
			err := item.Value(func(val []byte) error {
				var n Names
				if err := json.Unmarshal(val, &n); err != nil {
					return fmt.Errorf("decode source %q: %w", source, err)
				}
				snap[source] = n
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (b *BadgerBackend) Save(_ context.Context, snap Snapshot) error {
	return b.db.Update(func(txn *badger.Txn) error {
		for source, n := range snap {
			val, err := json.Marshal(n)
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(badgerKeyPrefix+source), val); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BadgerBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}
