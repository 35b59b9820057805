package tileindex

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/image-mosaic/internal/imaging"
)

// BuildOptions tunes Build.
type BuildOptions struct {
	// Workers bounds concurrent decodes. Values <= 0 use runtime.NumCPU().
	Workers int

	// ReadDir lists the pool directory. Nil uses os.ReadDir.
	ReadDir func(name string) ([]os.DirEntry, error)
}

// BuildStats describes one pool scan.
type BuildStats struct {
	Scanned  int `json:"scanned"`  // directory entries seen
	Eligible int `json:"eligible"` // regular files with an accepted extension
	Indexed  int `json:"indexed"`  // tiles added to the index
	Skipped  int `json:"skipped"`  // eligible files that failed to decode
	Buckets  int `json:"buckets"`  // distinct quantized colors
}

type tileResult struct {
	path  string
	color imaging.Color
	err   error
}

// Build scans poolDir and indexes every decodable .jpg, .jpeg and .png file by
// its quantized average color.
//
// Files that fail to decode are logged and skipped. If nothing can be indexed
// Build returns ErrPoolEmpty.
func Build(ctx context.Context, poolDir string, opts BuildOptions) (*Index, BuildStats, error) {
	var stats BuildStats

	readDir := opts.ReadDir
	if readDir == nil {
		readDir = os.ReadDir
	}
	entries, err := readDir(poolDir)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to read tile pool %s: %w", poolDir, err)
	}
	stats.Scanned = len(entries)

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !imaging.IsTileExtension(filepath.Ext(e.Name())) {
			continue
		}
		paths = append(paths, filepath.Join(poolDir, e.Name()))
	}
	stats.Eligible = len(paths)
	if len(paths) == 0 {
		return nil, stats, fmt.Errorf("%w: %s", ErrPoolEmpty, poolDir)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]tileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = averageTile(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}
	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}

	idx := New()
	for _, r := range results {
		if r.err != nil {
			stats.Skipped++
			log.WithError(r.err).WithField("tile", r.path).Warn("Skipping undecodable tile")
			continue
		}
		idx.Add(r.color, r.path)
	}
	stats.Indexed = idx.NumTiles()
	stats.Buckets = idx.Len()

	if idx.Len() == 0 {
		return nil, stats, fmt.Errorf("%w: none of %d files in %s could be decoded", ErrPoolEmpty, stats.Eligible, poolDir)
	}

	log.WithFields(log.Fields{
		"pool":    poolDir,
		"tiles":   stats.Indexed,
		"buckets": stats.Buckets,
		"skipped": stats.Skipped,
	}).Info("Tile index built")

	return idx, stats, nil
}

func averageTile(path string) tileResult {
	img, err := imaging.Open(path)
	if err != nil {
		return tileResult{path: path, err: err}
	}
	c, err := imaging.AverageColor(img)
	if err != nil {
		return tileResult{path: path, err: fmt.Errorf("%s: %w", path, err)}
	}
	return tileResult{path: path, color: c}
}
