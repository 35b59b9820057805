package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// Cell is one rectangle of the tile grid in canvas pixel coordinates.
//
// The rectangle is half-open: rows Y0..Y1-1 and columns X0..X1-1. Index is the
// cell's position in row-major order.
type Cell struct {
	Y0    int `json:"y0"`
	Y1    int `json:"y1"`
	X0    int `json:"x0"`
	X1    int `json:"x1"`
	Row   int `json:"row"`
	Col   int `json:"col"`
	Index int `json:"index"`
}

// Rect returns the cell as an image.Rectangle.
func (c Cell) Rect() image.Rectangle {
	return image.Rect(c.X0, c.Y0, c.X1, c.Y1)
}

// GridSize returns the number of rows and columns PlanGrid produces.
func GridSize(imageHeight, imageWidth, tileHeight, tileWidth int) (rows, cols int) {
	if tileHeight <= 0 || tileWidth <= 0 || imageHeight <= 0 || imageWidth <= 0 {
		return 0, 0
	}
	rows = (imageHeight + tileHeight - 1) / tileHeight
	cols = (imageWidth + tileWidth - 1) / tileWidth
	return rows, cols
}

// PlanGrid divides an imageHeight x imageWidth image into tileHeight x
// tileWidth cells in row-major order.
//
// Cells are not clipped: when a dimension is not an exact multiple of the tile
// size the trailing row or column extends past the image. PrepareSource
// produces exact multiples so this does not happen in a normal run.
//
// Each call returns a fresh slice.
func PlanGrid(imageHeight, imageWidth, tileHeight, tileWidth int) ([]Cell, error) {
	if tileHeight <= 0 || tileWidth <= 0 {
		return nil, fmt.Errorf("tile size must be positive, got %dx%d", tileWidth, tileHeight)
	}
	if imageHeight <= 0 || imageWidth <= 0 {
		return nil, fmt.Errorf("image size must be positive, got %dx%d", imageWidth, imageHeight)
	}

	rows, cols := GridSize(imageHeight, imageWidth, tileHeight, tileWidth)
	cells := make([]Cell, 0, rows*cols)
	for row, y := 0, 0; y < imageHeight; row, y = row+1, y+tileHeight {
		for col, x := 0, 0; x < imageWidth; col, x = col+1, x+tileWidth {
			cells = append(cells, Cell{
				Y0:    y,
				Y1:    y + tileHeight,
				X0:    x,
				X1:    x + tileWidth,
				Row:   row,
				Col:   col,
				Index: len(cells),
			})
		}
	}
	return cells, nil
}

// GridOverlayResult contains the image with grid overlay
type GridOverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Rows        int    `json:"rows"`
	Cols        int    `json:"cols"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// DrawGrid returns a copy of img with the boundaries of a tileWidth x
// tileHeight grid drawn over it.
//
// When showCoordinates is set, every cell is labelled with its "row,col".
func DrawGrid(img image.Image, tileWidth, tileHeight int, showCoordinates bool, gridColor color.Color) (*image.NRGBA, error) {
	if tileWidth <= 0 || tileHeight <= 0 {
		return nil, fmt.Errorf("tile size must be positive, got %dx%d", tileWidth, tileHeight)
	}

	result := imaging.Clone(img)
	bounds := result.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	line := &image.Uniform{C: gridColor}

	for x := tileWidth; x < width; x += tileWidth {
		draw.Draw(result, image.Rect(x, 0, x+1, height), line, image.Point{}, draw.Over)
	}
	for y := tileHeight; y < height; y += tileHeight {
		draw.Draw(result, image.Rect(0, y, width, y+1), line, image.Point{}, draw.Over)
	}

	if showCoordinates {
		labelColor := color.NRGBA{255, 255, 255, 255}
		bgColor := color.NRGBA{0, 0, 0, 180}

		for row, y := 0, 0; y < height; row, y = row+1, y+tileHeight {
			for col, x := 0, 0; x < width; col, x = col+1, x+tileWidth {
				drawLabel(result, x+2, y+2, fmt.Sprintf("%d,%d", row, col), labelColor, bgColor)
			}
		}
	}
	return result, nil
}

// GridOverlay draws the tile grid over img and returns it as a base64 PNG.
func GridOverlay(img image.Image, tileWidth, tileHeight int, showCoordinates bool, gridColorHex string) (*GridOverlayResult, error) {
	gridColor, err := parseHexColor(gridColorHex)
	if err != nil {
		gridColor = color.NRGBA{255, 0, 0, 128} // Default: semi-transparent red
	}

	result, err := DrawGrid(img, tileWidth, tileHeight, showCoordinates, gridColor)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, result); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	bounds := result.Bounds()
	rows, cols := GridSize(bounds.Dy(), bounds.Dx(), tileHeight, tileWidth)
	return &GridOverlayResult{
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		Rows:        rows,
		Cols:        cols,
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// parseHexColor parses a hex color string like "#FF0000" or "#FF000080"
func parseHexColor(hex string) (color.NRGBA, error) {
	if len(hex) == 0 {
		return color.NRGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b, a uint8 = 0, 0, 0, 255

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.NRGBA{}, err
		}
		r = uint8(val >> 16)
		g = uint8(val >> 8)
		b = uint8(val)
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.NRGBA{}, err
		}
		r = uint8(val >> 24)
		g = uint8(val >> 16)
		b = uint8(val >> 8)
		a = uint8(val)
	default:
		return color.NRGBA{}, fmt.Errorf("invalid hex color length")
	}

	return color.NRGBA{R: r, G: g, B: b, A: a}, nil
}

// drawLabel draws a 3x5 pixel digit label with a background box.
func drawLabel(img *image.NRGBA, x, y int, text string, fg, bg color.NRGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
		',': {"000", "000", "000", "010", "010"},
	}

	const charWidth = 4
	const labelHeight = 7
	labelWidth := len(text) * charWidth

	box := image.Rect(x-1, y-1, x+labelWidth, y+labelHeight).Intersect(img.Bounds())
	draw.Draw(img, box, &image.Uniform{C: bg}, image.Point{}, draw.Over)

	bounds := img.Bounds()
	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				px, py := cx+col, y+row
				if pixel == '1' && image.Pt(px, py).In(bounds) {
					img.SetNRGBA(px, py, fg)
				}
			}
		}
		cx += charWidth
	}
}
