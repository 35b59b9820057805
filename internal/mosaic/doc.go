// Package mosaic composes photo mosaics.
//
// A Composer walks the cells of a planned grid over a canvas. For every cell
// it averages the canvas region, finds the closest color in the tile index,
// picks one tile from that color's bucket at random and draws it, scaled to
// the cell size, over the region:
//
//	idx, _, err := tileindex.Ensure(ctx, opts)
//	cells, err := imaging.PlanGrid(h, w, tileH, tileW)
//	composer, err := mosaic.NewComposer(idx, mosaic.Options{TileWidth: tileW, TileHeight: tileH, Seed: 7})
//	canvas, report, err := composer.Compose(ctx, canvas, cells)
//
// Run wires the whole sequence for a config.Config: source check, index
// load or rebuild, source preparation, grid planning, composition and output.
//
// # Randomness
//
// Tile choice uses one PCG generator per cell, seeded with the run seed and
// the cell index. The same seed, canvas and index therefore give the same
// mosaic regardless of the number of workers.
//
// # Errors
//
// A missing or undecodable source returns ErrSourceUnreadable before the
// index is touched. An empty pool returns tileindex.ErrPoolEmpty before any
// source pixels are decoded. A tile that fails to load aborts composition with
// ErrTileDecode. Cancellation returns the partial canvas with ErrPartialResult.
package mosaic
