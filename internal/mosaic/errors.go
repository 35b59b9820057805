package mosaic

import "errors"

var (
	// ErrSourceUnreadable is returned when the source image is missing or
	// cannot be decoded. Run checks the source before touching the index.
	ErrSourceUnreadable = errors.New("source image unreadable")

	// ErrTileDecode is returned when a selected tile cannot be loaded. The
	// run stops; no other tile is tried.
	ErrTileDecode = errors.New("tile image could not be decoded")

	// ErrPartialResult is returned together with a partially composed canvas
	// when composition is canceled. It wraps the context error as well.
	ErrPartialResult = errors.New("mosaic is incomplete")
)
