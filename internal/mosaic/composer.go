package mosaic

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math/rand/v2"
	"runtime"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/image-mosaic/internal/imaging"
	"github.com/ironsheep/image-mosaic/internal/match"
	"github.com/ironsheep/image-mosaic/internal/tileindex"
)

// Options configures a Composer.
type Options struct {
	TileWidth  int
	TileHeight int

	// Seed selects the random stream for tile choices. Each cell draws from
	// its own generator seeded with (Seed, cell index), so the output for a
	// given seed does not depend on Workers.
	Seed uint64

	// Workers bounds the cells processed at once; <= 0 means one per CPU.
	Workers int

	// Resampler scales tiles to the cell size. Nil uses the default.
	Resampler imaging.Resampler

	// Tiles caches scaled tiles. Nil creates a private cache.
	Tiles *imaging.ImageCache

	// Progress is told about finished cells. Nil ignores progress.
	Progress ProgressFunc
}

// Composer replaces the cells of a canvas with tiles from an index.
type Composer struct {
	index   *tileindex.Index
	matcher *match.Matcher
	opts    Options
}

// NewComposer binds idx and opts. It fails if idx is empty or the tile size
// is not positive.
func NewComposer(idx *tileindex.Index, opts Options) (*Composer, error) {
	if opts.TileWidth <= 0 || opts.TileHeight <= 0 {
		return nil, fmt.Errorf("tile size must be positive, got %dx%d", opts.TileWidth, opts.TileHeight)
	}
	m, err := match.NewMatcher(idx.Keys())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tileindex.ErrPoolEmpty, err)
	}
	if opts.Resampler == nil {
		r, err := imaging.LookupResampler(imaging.DefaultResampler)
		if err != nil {
			return nil, err
		}
		opts.Resampler = r
	}
	if opts.Tiles == nil {
		opts.Tiles = imaging.NewImageCache()
	}
	if opts.Progress == nil {
		opts.Progress = ProgressIgnore
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Composer{index: idx, matcher: m, opts: opts}, nil
}

// Report summarizes one Compose call.
type Report struct {
	Cells       int `json:"cells"`
	Composed    int `json:"composed"`
	Skipped     int `json:"skipped"` // degenerate cells outside the canvas
	TilesUsed   int `json:"tiles_used"`
	BucketsUsed int `json:"buckets_used"`
}

type cellResult struct {
	done    bool
	skipped bool
	tile    string
	bucket  imaging.Color
}

// Compose overwrites every cell of canvas with a tile and returns canvas.
//
// For each cell the canvas region is averaged, the nearest indexed color is
// found, one tile of that bucket is picked at random and drawn, scaled to the
// tile size, over the region. Cells that fall outside the canvas are skipped.
// Cells are disjoint, so workers write to the canvas without locking.
//
// If ctx is canceled no new cells are started, cells in flight finish, and
// the partly composed canvas is returned with an error wrapping both
// ErrPartialResult and the context error. A tile that cannot be loaded stops
// the run with ErrTileDecode.
func (c *Composer) Compose(ctx context.Context, canvas *image.NRGBA, cells []imaging.Cell) (*image.NRGBA, Report, error) {
	report := Report{Cells: len(cells)}
	if canvas == nil {
		return nil, report, errors.New("canvas is nil")
	}

	results := make([]cellResult, len(cells))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for i, cell := range cells {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			res, err := c.composeCell(canvas, cell)
			if err != nil {
				return err
			}
			results[i] = res
			c.opts.Progress(int(done.Add(1)), len(cells))
			return nil
		})
	}
	err := g.Wait()

	tiles := make(map[string]struct{})
	buckets := make(map[imaging.Color]struct{})
	for _, r := range results {
		switch {
		case !r.done:
		case r.skipped:
			report.Skipped++
		default:
			report.Composed++
			tiles[r.tile] = struct{}{}
			buckets[r.bucket] = struct{}{}
		}
	}
	report.TilesUsed = len(tiles)
	report.BucketsUsed = len(buckets)

	if err != nil {
		return canvas, report, err
	}
	if err := ctx.Err(); err != nil {
		return canvas, report, fmt.Errorf("%w: %d of %d cells composed: %w",
			ErrPartialResult, report.Composed+report.Skipped, report.Cells, err)
	}
	return canvas, report, nil
}

func (c *Composer) composeCell(canvas *image.NRGBA, cell imaging.Cell) (cellResult, error) {
	bounds := canvas.Bounds()
	r := cell.Rect().Add(bounds.Min).Intersect(bounds)
	if r.Empty() {
		log.WithField("cell", cell.Index).Debug("Skipping degenerate cell")
		return cellResult{done: true, skipped: true}, nil
	}

	avg, err := imaging.AverageColor(canvas.SubImage(r))
	if err != nil {
		return cellResult{}, err
	}
	m := c.matcher.Match(avg)
	ids, err := c.index.Get(m.Match)
	if err != nil {
		return cellResult{}, fmt.Errorf("cell %d: %w", cell.Index, err)
	}

	rng := rand.New(rand.NewPCG(c.opts.Seed, uint64(cell.Index)))
	id := ids[rng.IntN(len(ids))]

	tile, err := c.opts.Tiles.LoadScaled(id, c.opts.TileWidth, c.opts.TileHeight, c.opts.Resampler)
	if err != nil {
		return cellResult{}, fmt.Errorf("%w: cell %d: %w", ErrTileDecode, cell.Index, err)
	}
	draw.Draw(canvas, r, tile, tile.Bounds().Min, draw.Src)

	return cellResult{done: true, tile: id, bucket: m.Match}, nil
}
