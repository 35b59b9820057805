package tileindex

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ironsheep/image-mosaic/internal/imaging"
)

var (
	// ErrPoolEmpty is returned when a pool directory yields no usable tile.
	ErrPoolEmpty = errors.New("tile pool contains no eligible images")

	// ErrCorruptCache is returned by Load when the cache file cannot be read
	// or does not describe a valid index.
	ErrCorruptCache = errors.New("corrupt tile index cache")

	// ErrKeyNotFound is returned by Get for a color that was never indexed.
	ErrKeyNotFound = errors.New("color not in tile index")
)

// Record is one bucket of the index: a quantized color and the tiles whose
// average color quantizes to it.
type Record struct {
	Color imaging.Color `json:"color"`
	Tiles []string      `json:"tiles"`
}

// Index maps quantized colors to tile identifiers.
//
// An Index is populated once, by Build or Load, and is read-only afterwards;
// read methods are safe for concurrent use.
type Index struct {
	buckets map[imaging.Color][]string
	keys    []imaging.Color
	tiles   int
}

// New returns an empty index.
func New() *Index {
	return &Index{buckets: make(map[imaging.Color][]string)}
}

// Add appends id to the bucket for c, creating the bucket if needed.
func (idx *Index) Add(c imaging.Color, id string) {
	if _, ok := idx.buckets[c]; !ok {
		i := sort.Search(len(idx.keys), func(i int) bool { return !idx.keys[i].Less(c) })
		idx.keys = append(idx.keys, imaging.Color{})
		copy(idx.keys[i+1:], idx.keys[i:])
		idx.keys[i] = c
	}
	idx.buckets[c] = append(idx.buckets[c], id)
	idx.tiles++
}

// Get returns the tiles indexed under exactly c.
func (idx *Index) Get(c imaging.Color) ([]string, error) {
	ids, ok := idx.buckets[c]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, c)
	}
	return ids, nil
}

// Keys returns the indexed colors ordered by R, then G, then B.
func (idx *Index) Keys() []imaging.Color {
	keys := make([]imaging.Color, len(idx.keys))
	copy(keys, idx.keys)
	return keys
}

// Len returns the number of buckets.
func (idx *Index) Len() int {
	return len(idx.keys)
}

// NumTiles returns the number of indexed tile identifiers.
func (idx *Index) NumTiles() int {
	return idx.tiles
}

// Records returns every bucket in key order.
func (idx *Index) Records() []Record {
	records := make([]Record, 0, len(idx.keys))
	for _, k := range idx.keys {
		tiles := make([]string, len(idx.buckets[k]))
		copy(tiles, idx.buckets[k])
		records = append(records, Record{Color: k, Tiles: tiles})
	}
	return records
}
