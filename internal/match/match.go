// Package match finds the indexed color closest to a query color.
//
// Distance is Euclidean in RGB space. Candidates are scanned in the order
// given and a candidate replaces the current best only when it is strictly
// closer, so among equally close candidates the first one wins. Callers pass
// the tile index's key set, which is sorted by R, then G, then B.
package match

import (
	"errors"
	"math"
	"sync"

	"github.com/ironsheep/image-mosaic/internal/imaging"
)

// ErrEmptyCandidateSet is returned when there is nothing to match against.
var ErrEmptyCandidateSet = errors.New("empty candidate set")

// Nearest returns the candidate closest to query.
func Nearest(query imaging.Color, candidates []imaging.Color) (imaging.Color, error) {
	best, _, err := nearest(query, candidates)
	return best, err
}

func nearest(query imaging.Color, candidates []imaging.Color) (imaging.Color, int, error) {
	if len(candidates) == 0 {
		return imaging.Color{}, 0, ErrEmptyCandidateSet
	}
	best := candidates[0]
	bestDist := query.DistanceSq(best)
	for _, c := range candidates[1:] {
		if d := query.DistanceSq(c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist, nil
}

// Result is the outcome of one match.
type Result struct {
	Query    imaging.Color `json:"query"`
	Match    imaging.Color `json:"match"`
	Distance float64       `json:"distance"`
}

// Matcher matches queries against a fixed candidate set and remembers the
// answers. Quantized cell colors repeat heavily across a mosaic, so most
// lookups hit the memo.
//
// A Matcher is safe for concurrent use.
type Matcher struct {
	candidates []imaging.Color

	mu   sync.RWMutex
	memo map[imaging.Color]Result
}

// NewMatcher returns a Matcher over candidates, which are copied.
func NewMatcher(candidates []imaging.Color) (*Matcher, error) {
	if len(candidates) == 0 {
		return nil, ErrEmptyCandidateSet
	}
	return &Matcher{
		candidates: append([]imaging.Color(nil), candidates...),
		memo:       make(map[imaging.Color]Result),
	}, nil
}

// Match returns the candidate closest to query.
func (m *Matcher) Match(query imaging.Color) Result {
	m.mu.RLock()
	r, ok := m.memo[query]
	m.mu.RUnlock()
	if ok {
		return r
	}

	// candidates is never empty, see NewMatcher.
	best, d, _ := nearest(query, m.candidates)
	r = Result{Query: query, Match: best, Distance: math.Sqrt(float64(d))}

	m.mu.Lock()
	m.memo[query] = r
	m.mu.Unlock()
	return r
}

// Len returns the number of candidates.
func (m *Matcher) Len() int {
	return len(m.candidates)
}

// Memoized returns the number of distinct queries answered so far.
func (m *Matcher) Memoized() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.memo)
}
