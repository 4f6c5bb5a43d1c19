// SPDX-License-Identifier: MIT

package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/Shansgupta/Bajaj-hackathon/internal/metrics"
)

const badgerPrefix = "vec:"

// Badger is an embedded Store for offline use. Queries scan every vector.
type Badger struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a store in dir.
func OpenBadger(dir string) (*Badger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger vector store: %w", err)
	}
	return &Badger{db: db}, nil
}

// OpenBadgerInMemory opens a non-persistent store (tests).
func OpenBadgerInMemory() (*Badger, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open badger vector store: %w", err)
	}
	return &Badger{db: db}, nil
}

func (b *Badger) Name() string { return "badger" }

// Close releases the database.
func (b *Badger) Close() error { return b.db.Close() }

func (b *Badger) Upsert(_ context.Context, vectors []Vector) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		for _, v := range vectors {
			buf, err := json.Marshal(v)
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(badgerPrefix+v.ID), buf); err != nil {
				return err
			}
		}
		return nil
	})
	metrics.RecordVectorOp(b.Name(), "upsert", err)
	return err
}

func (b *Badger) scan(ctx context.Context, fn func(Vector)) error {
	prefix := []byte(badgerPrefix)
	return b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var v Vector
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &v)
			}); err != nil {
				continue
			}
			fn(v)
		}
		return nil
	})
}

func (b *Badger) Query(ctx context.Context, req QueryRequest) ([]Match, error) {
	var all []Vector
	err := b.scan(ctx, func(v Vector) { all = append(all, v) })
	metrics.RecordVectorOp(b.Name(), "query", err)
	if err != nil {
		return nil, err
	}
	return scoreAll(all, req), nil
}

func (b *Badger) Fetch(_ context.Context, ids []string) ([]Vector, error) {
	out := make([]Vector, 0, len(ids))
	err := b.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			item, err := txn.Get([]byte(badgerPrefix + id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			var v Vector
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &v)
			}); err != nil {
				return err
			}
			out = append(out, v)
		}
		return nil
	})
	metrics.RecordVectorOp(b.Name(), "fetch", err)
	return out, err
}

func (b *Badger) Describe(ctx context.Context) (Stats, error) {
	var st Stats
	err := b.scan(ctx, func(v Vector) {
		st.VectorCount++
		st.Dimension = len(v.Values)
	})
	return st, err
}

// Check verifies the database is open and readable.
func (b *Badger) Check(_ context.Context) error {
	if b.db.IsClosed() {
		return errors.New("badger vector store closed")
	}
	return nil
}
