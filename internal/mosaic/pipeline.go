package mosaic

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ironsheep/image-mosaic/internal/config"
	"github.com/ironsheep/image-mosaic/internal/imaging"
	"github.com/ironsheep/image-mosaic/internal/tileindex"
)

// previewGridColor is semi-transparent red.
var previewGridColor = color.NRGBA{R: 255, G: 0, B: 0, A: 128}

// Result describes a finished (or partially finished) run.
type Result struct {
	RunID           string                 `json:"run_id"`
	OutputPath      string                 `json:"output_path"`
	GridPreviewPath string                 `json:"grid_preview_path,omitempty"`
	Width           int                    `json:"width"`
	Height          int                    `json:"height"`
	Rows            int                    `json:"rows"`
	Cols            int                    `json:"cols"`
	Seed            uint64                 `json:"seed"`
	Index           tileindex.EnsureResult `json:"index"`
	Report          Report                 `json:"report"`
	Duration        time.Duration          `json:"duration_ns"`
}

// EnsureIndex loads or rebuilds the tile index described by cfg.
func EnsureIndex(ctx context.Context, cfg config.Config) (*tileindex.Index, *tileindex.EnsureResult, error) {
	if err := cfg.ValidateIndex(); err != nil {
		return nil, nil, err
	}
	return tileindex.Ensure(ctx, tileindex.EnsureOptions{
		PoolDir:   cfg.PoolDir,
		CachePath: cfg.CachePath,
		Force:     cfg.ForceRebuild,
		Build:     tileindex.BuildOptions{Workers: cfg.Workers},
	})
}

// Run builds one mosaic as described by cfg and writes it to cfg.Output().
//
// The source header is checked first and the tile index is loaded or rebuilt
// before any source pixels are decoded, so a bad source or an empty pool fails
// fast. If ctx is canceled during composition the partial mosaic is still
// written and returned with an error wrapping ErrPartialResult.
func Run(ctx context.Context, cfg config.Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	res := &Result{RunID: uuid.NewString(), OutputPath: cfg.Output()}
	logger := log.WithField("run", res.RunID)

	if _, _, err := imaging.CheckDecodable(cfg.SourcePath); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}

	idx, ensured, err := EnsureIndex(ctx, cfg)
	if err != nil {
		return nil, err
	}
	res.Index = *ensured

	resampler, err := imaging.LookupResampler(cfg.Resampler)
	if err != nil {
		return nil, err
	}
	mode, err := imaging.ParseCropMode(cfg.CropMode)
	if err != nil {
		return nil, err
	}

	src, err := imaging.Open(cfg.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}
	res.Width, res.Height = cfg.CanvasSize()
	canvas, err := imaging.PrepareSource(src, res.Width, res.Height, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}

	cells, err := imaging.PlanGrid(res.Height, res.Width, cfg.TileHeight, cfg.TileWidth)
	if err != nil {
		return nil, err
	}
	res.Rows, res.Cols = imaging.GridSize(res.Height, res.Width, cfg.TileHeight, cfg.TileWidth)

	if cfg.GridPreviewPath != "" {
		preview, err := imaging.DrawGrid(canvas, cfg.TileWidth, cfg.TileHeight, false, previewGridColor)
		if err != nil {
			return nil, err
		}
		if err := imaging.Save(preview, cfg.GridPreviewPath, cfg.JPEGQuality); err != nil {
			return nil, err
		}
		res.GridPreviewPath = cfg.GridPreviewPath
	}

	res.Seed = cfg.Seed
	if !cfg.Seeded {
		res.Seed = rand.Uint64()
	}
	logger.WithFields(log.Fields{
		"source": cfg.SourcePath,
		"cells":  len(cells),
		"grid":   fmt.Sprintf("%dx%d", res.Cols, res.Rows),
		"seed":   res.Seed,
	}).Info("Composing mosaic")

	step := len(cells) / 10
	if step == 0 {
		step = 1
	}
	composer, err := NewComposer(idx, Options{
		TileWidth:  cfg.TileWidth,
		TileHeight: cfg.TileHeight,
		Seed:       res.Seed,
		Workers:    cfg.Workers,
		Resampler:  resampler,
		Progress:   LoggerProgressFunc(logger, step),
	})
	if err != nil {
		return nil, err
	}

	canvas, res.Report, err = composer.Compose(ctx, canvas, cells)
	if err != nil && !errors.Is(err, ErrPartialResult) {
		return nil, err
	}
	composeErr := err

	if err := imaging.Save(canvas, res.OutputPath, cfg.JPEGQuality); err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)

	entry := logger.WithFields(log.Fields{
		"output":   res.OutputPath,
		"composed": res.Report.Composed,
		"tiles":    res.Report.TilesUsed,
		"duration": res.Duration.Round(time.Millisecond),
	})
	if composeErr != nil {
		entry.WithError(composeErr).Warn("Wrote partial mosaic")
		return res, composeErr
	}
	entry.Info("Mosaic written")
	return res, nil
}
