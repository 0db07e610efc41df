package series

import (
	"math"
	"time"

	"gapfill/domain/core"
)

// MinLength is the shortest series any method can work on: one neighbour on
// each side of a single missing value.
const MinLength = 3

// Missing returns the missing-value marker.
func Missing() float64 {
	return math.NaN()
}

// IsMissing reports whether v is the missing-value marker.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// Series is one column of values aligned to an optional timestamp axis.
// The timestamps are for display only; imputation works on index positions.
type Series struct {
	Name       string      `json:"name"`
	Timestamps []time.Time `json:"timestamps,omitempty"`
	Values     []float64   `json:"values"`
}

// New creates a series, copying nothing
func New(name string, timestamps []time.Time, values []float64) Series {
	return Series{Name: name, Timestamps: timestamps, Values: values}
}

// Len returns the number of positions in the series
func (s Series) Len() int {
	return len(s.Values)
}

// Clone returns a deep copy that shares no backing arrays with s
func (s Series) Clone() Series {
	out := Series{Name: s.Name}
	if s.Values != nil {
		out.Values = append(make([]float64, 0, len(s.Values)), s.Values...)
	}
	if s.Timestamps != nil {
		out.Timestamps = append(make([]time.Time, 0, len(s.Timestamps)), s.Timestamps...)
	}
	return out
}

// MissingCount counts the missing markers in the series
func (s Series) MissingCount() int {
	return CountMissing(s.Values)
}

// Validate checks the alignment invariant and the minimum length.
func (s Series) Validate() error {
	if s.Timestamps != nil && len(s.Timestamps) != len(s.Values) {
		return core.NewLengthMismatchError(s.Name, len(s.Values), len(s.Timestamps))
	}
	if len(s.Values) < MinLength {
		return core.NewSeriesTooShortError(s.Name, len(s.Values), MinLength)
	}
	return nil
}

// CountMissing counts missing markers in values
func CountMissing(values []float64) int {
	n := 0
	for _, v := range values {
		if IsMissing(v) {
			n++
		}
	}
	return n
}

// Run is a maximal block of consecutive missing values, expressed as an
// index range into the series it was scanned from.
type Run struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

// End returns the last index inside the run
func (r Run) End() int {
	return r.Start + r.Length - 1
}

// Contains reports whether index i lies inside the run
func (r Run) Contains(i int) bool {
	return i >= r.Start && i <= r.End()
}

// Indices lists the run's positions in ascending order
func (r Run) Indices() []int {
	out := make([]int, r.Length)
	for i := range out {
		out[i] = r.Start + i
	}
	return out
}

// Point is a non-missing (index, value) pair
type Point struct {
	Index int     `json:"index"`
	Value float64 `json:"value"`
}

// SupportWindow holds the neighbours an interpolant is fitted through.
// Before is ordered by ascending index and ends at the run's left neighbour;
// After starts at the run's right neighbour.
type SupportWindow struct {
	Before []Point
	After  []Point
}

// Len returns the total number of support points
func (w SupportWindow) Len() int {
	return len(w.Before) + len(w.After)
}

// Points returns all support points in ascending index order
func (w SupportWindow) Points() []Point {
	out := make([]Point, 0, w.Len())
	out = append(out, w.Before...)
	return append(out, w.After...)
}

// XY splits the window into abscissae and ordinates for fitting
func (w SupportWindow) XY() (xs, ys []float64) {
	points := w.Points()
	xs = make([]float64, len(points))
	ys = make([]float64, len(points))
	for i, p := range points {
		xs[i] = float64(p.Index)
		ys[i] = p.Value
	}
	return xs, ys
}
