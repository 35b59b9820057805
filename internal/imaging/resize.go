package imaging

import (
	"fmt"
	"image"
	"sort"

	"github.com/anthonynsimon/bild/transform"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// DefaultResampler is the resampler used when none is configured.
const DefaultResampler = "linear"

// Resampler scales an image to exactly width x height pixels.
//
// Every implementation is deterministic: the same input always produces the
// same output.
type Resampler interface {
	Name() string
	Resize(img image.Image, width, height int) *image.NRGBA
}

type filterResampler struct {
	name   string
	filter imaging.ResampleFilter
}

func (r filterResampler) Name() string { return r.name }

func (r filterResampler) Resize(img image.Image, width, height int) *image.NRGBA {
	return imaging.Resize(img, width, height, r.filter)
}

type bildResampler struct{}

func (bildResampler) Name() string { return "bild-linear" }

func (bildResampler) Resize(img image.Image, width, height int) *image.NRGBA {
	return imaging.Clone(transform.Resize(img, width, height, transform.Linear))
}

type nfntResampler struct{}

func (nfntResampler) Name() string { return "nfnt-bilinear" }

func (nfntResampler) Resize(img image.Image, width, height int) *image.NRGBA {
	return imaging.Clone(resize.Resize(uint(width), uint(height), img, resize.Bilinear))
}

type catmullRomResampler struct{}

func (catmullRomResampler) Name() string { return "catmullrom" }

func (catmullRomResampler) Resize(img image.Image, width, height int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

var resamplers = map[string]Resampler{
	"linear":        filterResampler{"linear", imaging.Linear},
	"nearest":       filterResampler{"nearest", imaging.NearestNeighbor},
	"lanczos":       filterResampler{"lanczos", imaging.Lanczos},
	"bild-linear":   bildResampler{},
	"nfnt-bilinear": nfntResampler{},
	"catmullrom":    catmullRomResampler{},
}

// LookupResampler returns the resampler registered under name.
// An empty name selects DefaultResampler.
func LookupResampler(name string) (Resampler, error) {
	if name == "" {
		name = DefaultResampler
	}
	r, ok := resamplers[name]
	if !ok {
		return nil, fmt.Errorf("unknown resampler %q (available: %v)", name, ResamplerNames())
	}
	return r, nil
}

// ResamplerNames lists the registered resampler names in sorted order.
func ResamplerNames() []string {
	names := make([]string, 0, len(resamplers))
	for name := range resamplers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
