// Package semantic scores movies against a free-text query by cosine
// similarity of their embeddings.
package semantic

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ErrDimensionMismatch is returned when a query vector and a stored vector do
// not share the configured dimension. Scores from mismatched vectors are
// meaningless, so callers must fail the request.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Mode names the threshold used by one attempt.
type Mode string

const (
	ModeNone     Mode = "none"
	ModePrimary  Mode = "primary"
	ModeFallback Mode = "fallback"
)

// Predicate is a similarity requirement applied within a single attempt.
type Predicate struct {
	Vector    []float32
	Threshold float64
	Mode      Mode
}

// Resolver holds the configured dimension and the two thresholds. It does not
// pick a threshold itself; the caller asks for the predicate it wants.
type Resolver struct {
	dimension         int
	primaryThreshold  float64
	fallbackThreshold float64
}

func NewResolver(dimension int, primary, fallback float64) *Resolver {
	return &Resolver{
		dimension:         dimension,
		primaryThreshold:  primary,
		fallbackThreshold: fallback,
	}
}

func (r *Resolver) Dimension() int { return r.dimension }

// Predicate builds the predicate for the given mode. The query vector is
// checked against the configured dimension.
func (r *Resolver) Predicate(vector []float32, mode Mode) (*Predicate, error) {
	if err := r.CheckDimension(vector); err != nil {
		return nil, err
	}
	threshold := r.primaryThreshold
	if mode == ModeFallback {
		threshold = r.fallbackThreshold
	}
	return &Predicate{Vector: vector, Threshold: threshold, Mode: mode}, nil
}

// CheckDimension fails loudly when a vector does not have the configured length.
func (r *Resolver) CheckDimension(vector []float32) error {
	if r.dimension > 0 && len(vector) != r.dimension {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), r.dimension)
	}
	return nil
}

// Cosine returns the cosine similarity of a and b in [-1, 1]. ok is false
// when either vector has zero norm, in which case no similarity is defined.
func Cosine(a, b []float32) (similarity float64, ok bool, err error) {
	if len(a) != len(b) {
		return 0, false, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, false, nil
	}

	x := toFloat64(a)
	y := toFloat64(b)

	normX := floats.Norm(x, 2)
	normY := floats.Norm(y, 2)
	if normX == 0 || normY == 0 {
		return 0, false, nil
	}

	sim := floats.Dot(x, y) / (normX * normY)
	// Guard against rounding pushing the result just outside the range.
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}
	return sim, true, nil
}

// Match scores a stored vector against the predicate. A missing stored vector
// never matches.
func (p *Predicate) Match(stored []float32) (similarity float64, matched bool, err error) {
	if len(stored) == 0 {
		return 0, false, nil
	}
	sim, ok, err := Cosine(p.Vector, stored)
	if err != nil || !ok {
		return 0, false, err
	}
	return sim, sim >= p.Threshold, nil
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
