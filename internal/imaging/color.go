package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrDegenerateRegion is returned when a color is requested for a region that
// contains no pixels.
var ErrDegenerateRegion = errors.New("degenerate region: zero width or height")

// Color is an integer RGB triple.
//
// Colors produced by AverageColor are quantized: every component is a multiple
// of 10 in the range 0-260.
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// String returns the canonical "(r, g, b)" form used as the cache key.
func (c Color) String() string {
	return fmt.Sprintf("(%d, %d, %d)", c.R, c.G, c.B)
}

// ParseColor parses the canonical "(r, g, b)" form.
//
// Surrounding whitespace and whitespace around components is accepted.
// Anything else, including negative components, is rejected.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return Color{}, fmt.Errorf("invalid color %q: expected \"(r, g, b)\"", s)
	}
	parts := strings.Split(s[1:len(s)-1], ",")
	if len(parts) != 3 {
		return Color{}, fmt.Errorf("invalid color %q: expected 3 components, got %d", s, len(parts))
	}

	var vals [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
		}
		if v < 0 {
			return Color{}, fmt.Errorf("invalid color %q: negative component %d", s, v)
		}
		vals[i] = v
	}
	return Color{R: vals[0], G: vals[1], B: vals[2]}, nil
}

// Less orders colors by R, then G, then B.
func (c Color) Less(o Color) bool {
	if c.R != o.R {
		return c.R < o.R
	}
	if c.G != o.G {
		return c.G < o.G
	}
	return c.B < o.B
}

// DistanceSq returns the squared Euclidean distance between two colors in RGB
// space. It orders candidates exactly like Distance without rounding error.
func (c Color) DistanceSq(o Color) int {
	dr := c.R - o.R
	dg := c.G - o.G
	db := c.B - o.B
	return dr*dr + dg*dg + db*db
}

// Distance returns the Euclidean distance between two colors in RGB space.
func (c Color) Distance(o Color) float64 {
	return math.Sqrt(float64(c.DistanceSq(o)))
}

// colorful converts to a go-colorful value, clamping components to 0-255.
func (c Color) colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}.Clamped()
}

// Hex returns the color as "#RRGGBB". Components above 255 are clamped.
func (c Color) Hex() string {
	return strings.ToUpper(c.colorful().Hex())
}

// ParseHexColor parses "#RRGGBB" (or "#RGB") into an unquantized Color.
func ParseHexColor(hex string) (Color, error) {
	if hex != "" && hex[0] != '#' {
		hex = "#" + hex
	}
	cf, err := colorful.Hex(hex)
	if err != nil {
		return Color{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	r, g, b := cf.RGB255()
	return Color{R: int(r), G: int(g), B: int(b)}, nil
}

// Quantize rounds each channel to the nearest multiple of 10, halves to even.
func Quantize(r, g, b float64) Color {
	return Color{R: quantize(r), G: quantize(g), B: quantize(b)}
}

func quantize(v float64) int {
	return int(math.RoundToEven(v/10) * 10)
}

// AverageColor returns the quantized mean color of every pixel in img.
//
// Channel values are read as 8-bit non-premultiplied components; alpha does
// not participate. An empty region returns ErrDegenerateRegion.
func AverageColor(img image.Image) (Color, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return Color{}, ErrDegenerateRegion
	}

	var rSum, gSum, bSum uint64
	switch src := img.(type) {
	case *image.NRGBA:
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			i := src.PixOffset(bounds.Min.X, y)
			row := src.Pix[i : i+bounds.Dx()*4]
			for j := 0; j < len(row); j += 4 {
				rSum += uint64(row[j])
				gSum += uint64(row[j+1])
				bSum += uint64(row[j+2])
			}
		}
	default:
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				rSum += uint64(c.R)
				gSum += uint64(c.G)
				bSum += uint64(c.B)
			}
		}
	}

	n := float64(bounds.Dx() * bounds.Dy())
	return Quantize(float64(rSum)/n, float64(gSum)/n, float64(bSum)/n), nil
}

// HSLColor represents a color in HSL (Hue, Saturation, Lightness) color space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent (0=gray, 100=vivid)
	L int `json:"l"` // Lightness: 0-100 percent (0=black, 50=normal, 100=white)
}

// ColorResult contains a color value in multiple representations.
//
// It is the reporting form of a Color used by the tool server:
//   - Key: canonical cache key "(r, g, b)"
//   - Hex: "#RRGGBB" for display
//   - RGB: integer components (quantized values may reach 260)
//   - HSL: perceptual view, informational only
type ColorResult struct {
	Key string   `json:"key"`
	Hex string   `json:"hex"`
	RGB Color    `json:"rgb"`
	HSL HSLColor `json:"hsl"`
}

// Describe builds the ColorResult for c.
func Describe(c Color) ColorResult {
	h, s, l := c.colorful().Hsl()
	return ColorResult{
		Key: c.String(),
		Hex: c.Hex(),
		RGB: c,
		HSL: HSLColor{H: int(h), S: int(s * 100), L: int(l * 100)},
	}
}

// Region represents a rectangular region within an image.
//
// Coordinates follow the standard image convention:
//   - (X1, Y1) is the top-left corner (inclusive)
//   - (X2, Y2) is the bottom-right corner (exclusive)
type Region struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// RegionColorResult is the quantized average color of a region.
type RegionColorResult struct {
	Region Region      `json:"region"`
	Pixels int         `json:"pixels"`
	Color  ColorResult `json:"color"`
}

// AverageRegionColor returns the quantized average color of a region of img.
//
// If region is nil, the entire image is sampled. The region is intersected
// with the image bounds first; an empty intersection returns
// ErrDegenerateRegion.
func AverageRegionColor(img image.Image, region *Region) (*RegionColorResult, error) {
	rect := img.Bounds()
	if region != nil {
		rect = image.Rect(region.X1, region.Y1, region.X2, region.Y2).Intersect(rect)
	}
	if rect.Empty() {
		return nil, ErrDegenerateRegion
	}

	c, err := AverageColor(subImage(img, rect))
	if err != nil {
		return nil, err
	}
	return &RegionColorResult{
		Region: Region{X1: rect.Min.X, Y1: rect.Min.Y, X2: rect.Max.X, Y2: rect.Max.Y},
		Pixels: rect.Dx() * rect.Dy(),
		Color:  Describe(c),
	}, nil
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// subImage returns the part of img inside r, sharing pixels when possible.
func subImage(img image.Image, r image.Rectangle) image.Image {
	if s, ok := img.(subImager); ok {
		return s.SubImage(r)
	}
	return cropped{img, r}
}

// cropped restricts an image without SubImage support to a rectangle.
type cropped struct {
	image.Image
	r image.Rectangle
}

func (c cropped) Bounds() image.Rectangle { return c.r }
