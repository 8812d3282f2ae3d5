// Package index maps media file paths to stable numeric identifiers.
//
// The index is a badger store with two keyspaces:
//
//	p:<absolute path>   -> id (8 bytes, big endian)
//	i:<id, big endian>  -> absolute path
//
// Identifiers come from a badger sequence and are never reused.
package index

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	badgerdb "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/shuttle"
)

const (
	pathPrefix  = "p:"
	idPrefix    = "i:"
	sequenceKey = "seq:media"

	sequenceBandwidth = 100
)

// Index is a persistent path to media id store
type Index struct {
	db  *badgerdb.DB
	seq *badgerdb.Sequence
	log *zap.Logger

	// serializes writers so a path is never assigned two ids
	mu sync.Mutex
}

// Open opens or creates the index in dir
func Open(dir string, log *zap.Logger) (*Index, error) {
	opts := badgerdb.DefaultOptions(dir).WithLogger(nil)
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", dir, err)
	}
	return newIndex(db, log)
}

// OpenInMemory opens an index that lives only as long as the process
func OpenInMemory(log *zap.Logger) (*Index, error) {
	opts := badgerdb.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory index: %w", err)
	}
	return newIndex(db, log)
}

func newIndex(db *badgerdb.DB, log *zap.Logger) (*Index, error) {
	if log == nil {
		log = zap.NewNop()
	}
	seq, err := db.GetSequence([]byte(sequenceKey), sequenceBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("media sequence: %w", err)
	}
	return &Index{db: db, seq: seq, log: log}, nil
}

// Close releases the sequence lease and closes the store
func (ix *Index) Close() error {
	seqErr := ix.seq.Release()
	dbErr := ix.db.Close()
	return errors.Join(seqErr, dbErr)
}

// Register returns the id for path, assigning a new one on first sight
func (ix *Index) Register(ctx context.Context, path string) (shuttle.MediaID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if existing, err := ix.lookup(path); err == nil {
		return existing, nil
	} else if !errors.Is(err, shuttle.ErrNotIndexed) {
		return 0, err
	}

	n, err := ix.seq.Next()
	if err != nil {
		return 0, fmt.Errorf("next media id: %w", err)
	}
	id := shuttle.MediaID(n + 1)

	err = ix.db.Update(func(txn *badgerdb.Txn) error {
		if err := txn.Set(pathKey(path), encodeID(id)); err != nil {
			return err
		}
		return txn.Set(idKey(id), []byte(path))
	})
	if err != nil {
		return 0, fmt.Errorf("register %s: %w", path, err)
	}

	ix.log.Debug("Registered media", zap.String("path", path), zap.Int64("media_id", int64(id)))
	return id, nil
}

// Lookup returns the id registered for path, or shuttle.ErrNotIndexed
func (ix *Index) Lookup(ctx context.Context, path string) (shuttle.MediaID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return ix.lookup(path)
}

func (ix *Index) lookup(path string) (shuttle.MediaID, error) {
	var id shuttle.MediaID
	err := ix.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(pathKey(path))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			decoded, err := decodeID(val)
			id = decoded
			return err
		})
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return 0, shuttle.ErrNotIndexed
	}
	if err != nil {
		return 0, fmt.Errorf("lookup %s: %w", path, err)
	}
	return id, nil
}

// SourcePath returns the path registered under id, or shuttle.ErrNotIndexed
func (ix *Index) SourcePath(ctx context.Context, id shuttle.MediaID) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var path string
	err := ix.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(idKey(id))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		path = string(val)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return "", shuttle.ErrNotIndexed
	}
	if err != nil {
		return "", fmt.Errorf("source path %d: %w", id, err)
	}
	return path, nil
}

// Remove drops path from the index. Removing an unknown path is a no-op.
func (ix *Index) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	id, err := ix.lookup(path)
	if errors.Is(err, shuttle.ErrNotIndexed) {
		return nil
	}
	if err != nil {
		return err
	}

	return ix.db.Update(func(txn *badgerdb.Txn) error {
		if err := txn.Delete(pathKey(path)); err != nil {
			return err
		}
		return txn.Delete(idKey(id))
	})
}

// Count returns the number of registered paths
func (ix *Index) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count := 0
	err := ix.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(pathPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func pathKey(path string) []byte {
	return []byte(pathPrefix + path)
}

func idKey(id shuttle.MediaID) []byte {
	return append([]byte(idPrefix), encodeID(id)...)
}

func encodeID(id shuttle.MediaID) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

func decodeID(b []byte) (shuttle.MediaID, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("corrupt media id: %d bytes", len(b))
	}
	return shuttle.MediaID(binary.BigEndian.Uint64(b)), nil
}
