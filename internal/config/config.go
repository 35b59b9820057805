// Package config holds the settings of a mosaic run.
//
// A Config is a plain value: it is assembled once from defaults, MOSAIC_*
// environment variables and command-line flags (flags win), validated, and
// then passed by value to the pipeline. Nothing in this package is global.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-homedir"

	"github.com/ironsheep/image-mosaic/internal/imaging"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Defaults for a run. The grid is 21 tiles high and 16 wide, with 47x63
// pixel tiles, giving a 1008x987 pixel mosaic.
const (
	DefaultPoolDir     = "tile_images"
	DefaultCachePath   = "tile_images_cache/tile_images_cache.json"
	DefaultOutputDir   = "output_mosaics"
	DefaultTileHeight  = 47
	DefaultTileWidth   = 63
	DefaultTilesHigh   = 21
	DefaultTilesWide   = 16
	DefaultJPEGQuality = 95
	DefaultLogLevel    = "info"

	// OutputSuffix is appended to the source file stem to name the output.
	OutputSuffix = "_Mosaic.jpeg"
)

// Environment variables consulted by Load.
const (
	EnvSource    = "MOSAIC_SOURCE"
	EnvPoolDir   = "MOSAIC_POOL_DIR"
	EnvCachePath = "MOSAIC_CACHE_PATH"
	EnvOutputDir = "MOSAIC_OUTPUT_DIR"
	EnvLogLevel  = "MOSAIC_LOG_LEVEL"
)

// Config is the complete, immutable description of one mosaic run.
type Config struct {
	SourcePath string `json:"source_path"`
	PoolDir    string `json:"pool_dir"`
	CachePath  string `json:"cache_path"`

	// OutputPath is the mosaic file. When empty it is derived from
	// OutputDir and the source file name, see Output.
	OutputPath string `json:"output_path,omitempty"`
	OutputDir  string `json:"output_dir"`

	ForceRebuild bool `json:"force_rebuild"`

	TileHeight int `json:"tile_height"`
	TileWidth  int `json:"tile_width"`
	TilesHigh  int `json:"tiles_high"`
	TilesWide  int `json:"tiles_wide"`

	// Seed drives tile selection when Seeded is set. An unseeded run draws a
	// fresh seed and logs it so the run can be reproduced.
	Seed   uint64 `json:"seed"`
	Seeded bool   `json:"seeded"`

	// Workers bounds concurrent decoding; <= 0 means one per CPU.
	Workers int `json:"workers"`

	Resampler   string `json:"resampler"`
	CropMode    string `json:"crop_mode"`
	JPEGQuality int    `json:"jpeg_quality"`

	// GridPreviewPath, when set, receives the prepared source with the tile
	// grid drawn over it.
	GridPreviewPath string `json:"grid_preview_path,omitempty"`

	LogLevel string `json:"log_level"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() Config {
	return Config{
		PoolDir:     DefaultPoolDir,
		CachePath:   DefaultCachePath,
		OutputDir:   DefaultOutputDir,
		TileHeight:  DefaultTileHeight,
		TileWidth:   DefaultTileWidth,
		TilesHigh:   DefaultTilesHigh,
		TilesWide:   DefaultTilesWide,
		Resampler:   imaging.DefaultResampler,
		CropMode:    string(imaging.CropSquare),
		JPEGQuality: DefaultJPEGQuality,
		LogLevel:    DefaultLogLevel,
	}
}

// Load builds a Config from defaults, the environment and args.
//
// getenv is usually os.Getenv. Usage and parse errors are written to output;
// -h returns flag.ErrHelp. A single positional argument is taken as the
// source image when -source is not given. Paths are ~-expanded. The result is
// not validated.
func Load(name string, args []string, getenv func(string) string, output io.Writer) (Config, error) {
	cfg := Defaults()
	applyEnv(&cfg, getenv)

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)

	var seed string
	verbose := false
	fs.StringVar(&cfg.SourcePath, "source", cfg.SourcePath, "source image to turn into a mosaic")
	fs.StringVar(&cfg.PoolDir, "pool", cfg.PoolDir, "directory of tile images (.jpg, .jpeg, .png)")
	fs.StringVar(&cfg.CachePath, "cache", cfg.CachePath, "tile index cache file")
	fs.StringVar(&cfg.OutputPath, "out", cfg.OutputPath, "output image path (default <output-dir>/<source>"+OutputSuffix+")")
	fs.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "directory for derived output paths")
	fs.BoolVar(&cfg.ForceRebuild, "rebuild", cfg.ForceRebuild, "rebuild the tile index even if a cache exists")
	fs.IntVar(&cfg.TileHeight, "tile-height", cfg.TileHeight, "tile height in pixels")
	fs.IntVar(&cfg.TileWidth, "tile-width", cfg.TileWidth, "tile width in pixels")
	fs.IntVar(&cfg.TilesHigh, "tiles-high", cfg.TilesHigh, "number of tile rows")
	fs.IntVar(&cfg.TilesWide, "tiles-wide", cfg.TilesWide, "number of tile columns")
	fs.StringVar(&seed, "seed", "", "seed for tile selection (default random)")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent workers (0 = one per CPU)")
	fs.StringVar(&cfg.Resampler, "resampler", cfg.Resampler, "tile resampler: "+strings.Join(imaging.ResamplerNames(), ", "))
	fs.StringVar(&cfg.CropMode, "crop", cfg.CropMode, "source crop mode: square, fill or stretch")
	fs.IntVar(&cfg.JPEGQuality, "quality", cfg.JPEGQuality, "JPEG output quality (1-100)")
	fs.StringVar(&cfg.GridPreviewPath, "grid-preview", cfg.GridPreviewPath, "also write the prepared source with the grid drawn on it")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	fs.BoolVar(&verbose, "v", false, "shorthand for -log-level debug")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	switch fs.NArg() {
	case 0:
	case 1:
		if cfg.SourcePath == "" {
			cfg.SourcePath = fs.Arg(0)
			break
		}
		fallthrough
	default:
		return cfg, fmt.Errorf("%w: unexpected arguments %q", ErrInvalidConfig, fs.Args())
	}

	if seed != "" {
		v, err := strconv.ParseUint(seed, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("%w: seed %q: %v", ErrInvalidConfig, seed, err)
		}
		cfg.Seed, cfg.Seeded = v, true
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	if err := cfg.expandPaths(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	if getenv == nil {
		return
	}
	for env, dst := range map[string]*string{
		EnvSource:    &cfg.SourcePath,
		EnvPoolDir:   &cfg.PoolDir,
		EnvCachePath: &cfg.CachePath,
		EnvOutputDir: &cfg.OutputDir,
		EnvLogLevel:  &cfg.LogLevel,
	} {
		if v := strings.TrimSpace(getenv(env)); v != "" {
			*dst = v
		}
	}
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.SourcePath, &c.PoolDir, &c.CachePath, &c.OutputPath, &c.OutputDir, &c.GridPreviewPath} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		*p = expanded
	}
	return nil
}

// ValidateIndex checks the settings needed to build or load the tile index.
func (c Config) ValidateIndex() error {
	if c.PoolDir == "" {
		return fmt.Errorf("%w: pool directory is required", ErrInvalidConfig)
	}
	if c.CachePath == "" {
		return fmt.Errorf("%w: cache path is required", ErrInvalidConfig)
	}
	return nil
}

// Validate checks every setting needed for a full mosaic run.
func (c Config) Validate() error {
	if err := c.ValidateIndex(); err != nil {
		return err
	}
	if c.SourcePath == "" {
		return fmt.Errorf("%w: source image is required", ErrInvalidConfig)
	}
	for _, f := range []struct {
		name string
		v    int
	}{
		{"tile height", c.TileHeight},
		{"tile width", c.TileWidth},
		{"tiles high", c.TilesHigh},
		{"tiles wide", c.TilesWide},
	} {
		if f.v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, f.name, f.v)
		}
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("%w: JPEG quality must be 1-100, got %d", ErrInvalidConfig, c.JPEGQuality)
	}
	if _, err := imaging.LookupResampler(c.Resampler); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := imaging.ParseCropMode(c.CropMode); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if out := c.Output(); filepath.Clean(out) == filepath.Clean(c.SourcePath) {
		return fmt.Errorf("%w: output %s would overwrite the source image", ErrInvalidConfig, out)
	}
	return nil
}

// Output returns the mosaic path: OutputPath if set, otherwise
// <OutputDir>/<source stem>_Mosaic.jpeg.
func (c Config) Output() string {
	if c.OutputPath != "" {
		return c.OutputPath
	}
	base := filepath.Base(c.SourcePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(c.OutputDir, stem+OutputSuffix)
}

// CanvasSize returns the mosaic dimensions in pixels.
func (c Config) CanvasSize() (width, height int) {
	return imaging.CanvasSize(c.TilesHigh, c.TilesWide, c.TileHeight, c.TileWidth)
}
