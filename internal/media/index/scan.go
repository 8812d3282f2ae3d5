package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	badgerdb "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/providers/filesystem"
)

// ScanResult summarizes one Scan
type ScanResult struct {
	Registered int
	Excluded   int
}

// Scan walks root and registers every image file. Paths relative to root
// that match any exclude pattern (doublestar syntax) are skipped.
func (ix *Index) Scan(ctx context.Context, root string, exclude []string) (ScanResult, error) {
	for _, pattern := range exclude {
		if !doublestar.ValidatePattern(pattern) {
			return ScanResult{}, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return ScanResult{}, fmt.Errorf("resolve root: %w", err)
	}

	var (
		mu       sync.Mutex
		found    []string
		excluded int
	)

	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, root, func(p string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil || d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if !filesystem.IsImage(filesystem.MIMETypeFromName(p)) {
			return nil
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return nil
		}
		skip := matchesAny(exclude, filepath.ToSlash(rel))

		mu.Lock()
		defer mu.Unlock()
		if skip {
			excluded++
			return nil
		}
		found = append(found, p)
		return nil
	})
	if err != nil {
		return ScanResult{}, fmt.Errorf("walk %s: %w", root, err)
	}

	// Walk order is nondeterministic; register in path order so ids are stable
	sort.Strings(found)
	for _, p := range found {
		if _, err := ix.Register(ctx, p); err != nil {
			return ScanResult{}, err
		}
	}

	ix.log.Info("Media scan complete",
		zap.String("root", root),
		zap.Int("registered", len(found)),
		zap.Int("excluded", excluded))
	return ScanResult{Registered: len(found), Excluded: excluded}, nil
}

// Prune removes entries whose files no longer exist and returns how many
// were dropped
func (ix *Index) Prune(ctx context.Context) (int, error) {
	var stale []string
	err := ix.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(pathPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			path := string(it.Item().Key()[len(pathPrefix):])
			if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
				stale = append(stale, path)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}

	for _, path := range stale {
		if err := ix.Remove(ctx, path); err != nil {
			return 0, err
		}
	}
	if len(stale) > 0 {
		ix.log.Info("Pruned media index", zap.Int("removed", len(stale)))
	}
	return len(stale), nil
}

// Refresh prunes entries for vanished files, rescans root, and returns the
// indexed total
func (ix *Index) Refresh(ctx context.Context, root string, exclude []string) (int, error) {
	if _, err := ix.Prune(ctx); err != nil {
		return 0, err
	}
	if _, err := ix.Scan(ctx, root, exclude); err != nil {
		return 0, err
	}
	return ix.Count(ctx)
}

// Rescan calls Refresh every interval until ctx is done. onPass, if set,
// receives the indexed total after each successful pass. A failed pass is
// logged and retried on the next tick.
func (ix *Index) Rescan(ctx context.Context, root string, exclude []string, interval time.Duration, onPass func(total int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		total, err := ix.Refresh(ctx, root, exclude)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			ix.log.Warn("Media rescan failed", zap.Error(err))
			continue
		}
		if onPass != nil {
			onPass(total)
		}
	}
}

func matchesAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
