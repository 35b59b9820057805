package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// CropMode selects how the source image is fitted to the mosaic canvas.
type CropMode string

const (
	// CropSquare center-crops the largest square and stretches it to the
	// canvas size.
	CropSquare CropMode = "square"
	// CropFill center-crops to the canvas aspect ratio, then scales.
	CropFill CropMode = "fill"
	// CropStretch scales the whole source to the canvas size.
	CropStretch CropMode = "stretch"
)

// ParseCropMode validates a crop mode name. An empty name selects CropSquare.
func ParseCropMode(s string) (CropMode, error) {
	switch CropMode(s) {
	case "":
		return CropSquare, nil
	case CropSquare, CropFill, CropStretch:
		return CropMode(s), nil
	default:
		return "", fmt.Errorf("unknown crop mode %q (available: square, fill, stretch)", s)
	}
}

// CanvasSize returns the canvas dimensions for a grid of tilesWide x tilesHigh
// tiles of tileWidth x tileHeight pixels.
func CanvasSize(tilesHigh, tilesWide, tileHeight, tileWidth int) (width, height int) {
	return tilesWide * tileWidth, tilesHigh * tileHeight
}

// PrepareSource crops src according to mode and resizes it with nearest
// neighbor sampling to exactly width x height.
//
// The result is always a new image that does not share pixels with src, so it
// can be used directly as the mosaic canvas. Because the canvas dimensions are
// exact multiples of the tile size, PlanGrid never yields a partial cell for
// it.
func PrepareSource(src image.Image, width, height int, mode CropMode) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("canvas size must be positive, got %dx%d", width, height)
	}
	bounds := src.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("source image is empty")
	}

	switch mode {
	case CropSquare, "":
		side := bounds.Dx()
		if bounds.Dy() < side {
			side = bounds.Dy()
		}
		square := imaging.CropCenter(src, side, side)
		return imaging.Resize(square, width, height, imaging.NearestNeighbor), nil
	case CropFill:
		return imaging.Fill(src, width, height, imaging.Center, imaging.NearestNeighbor), nil
	case CropStretch:
		return imaging.Resize(src, width, height, imaging.NearestNeighbor), nil
	default:
		return nil, fmt.Errorf("unknown crop mode %q", mode)
	}
}
