package tileindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/ironsheep/image-mosaic/internal/imaging"
)

// Persist writes idx to path as indented JSON with sorted keys, replacing
// any previous file. The file is written next to the target and renamed into
// place, so readers never observe a partial cache.
func Persist(idx *Index, path string) error {
	doc := make(map[string][]string, idx.Len())
	for _, k := range idx.keys {
		doc[k.String()] = idx.buckets[k]
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode tile index: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tile-index-*.json")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

// Load reads an index written by Persist.
//
// A missing file returns an error matching fs.ErrNotExist. Every other
// failure wraps ErrCorruptCache.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrCorruptCache, err)
	}

	var doc map[string][]string
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptCache, path, err)
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("%w: %s: no buckets", ErrCorruptCache, path)
	}

	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	idx := New()
	for _, k := range keys {
		c, err := imaging.ParseColor(k)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorruptCache, path, err)
		}
		ids := doc[k]
		if len(ids) == 0 {
			return nil, fmt.Errorf("%w: %s: empty bucket %s", ErrCorruptCache, path, k)
		}
		for _, id := range ids {
			if id == "" {
				return nil, fmt.Errorf("%w: %s: empty tile path in bucket %s", ErrCorruptCache, path, k)
			}
			idx.Add(c, id)
		}
	}
	return idx, nil
}

// EnsureOptions selects the pool, the cache location and the rebuild policy.
type EnsureOptions struct {
	PoolDir   string
	CachePath string
	Force     bool
	Build     BuildOptions
}

// EnsureResult reports how Ensure obtained the index.
type EnsureResult struct {
	Rebuilt bool       `json:"rebuilt"`
	Reason  string     `json:"reason"` // "loaded", "forced", "missing" or "corrupt"
	Stats   BuildStats `json:"stats"`
}

// Ensure returns the index for opts.PoolDir, loading opts.CachePath when
// possible.
//
// The pool is rebuilt when Force is set or the cache is missing or corrupt;
// after a rebuild the cache is written exactly once. Cache corruption is
// logged and otherwise handled silently.
func Ensure(ctx context.Context, opts EnsureOptions) (*Index, *EnsureResult, error) {
	logger := log.WithFields(log.Fields{"pool": opts.PoolDir, "cache": opts.CachePath})
	result := &EnsureResult{Reason: "forced"}

	if !opts.Force {
		idx, err := Load(opts.CachePath)
		switch {
		case err == nil:
			logger.WithFields(log.Fields{"buckets": idx.Len(), "tiles": idx.NumTiles()}).Debug("Loaded tile index cache")
			result.Reason = "loaded"
			result.Stats = BuildStats{Indexed: idx.NumTiles(), Buckets: idx.Len()}
			return idx, result, nil
		case errors.Is(err, fs.ErrNotExist):
			logger.Info("No tile index cache, building")
			result.Reason = "missing"
		default:
			logger.WithError(err).Warn("Tile index cache unusable, rebuilding")
			result.Reason = "corrupt"
		}
	} else {
		logger.Info("Forced tile index rebuild")
	}

	idx, stats, err := Build(ctx, opts.PoolDir, opts.Build)
	if err != nil {
		return nil, nil, err
	}
	if err := Persist(idx, opts.CachePath); err != nil {
		return nil, nil, err
	}
	result.Rebuilt = true
	result.Stats = stats
	logger.Info("Tile index cache written")

	return idx, result, nil
}
