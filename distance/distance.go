package distance

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Metric represents the distance metric used for vector comparison.
type Metric int

const (
	Euclidean Metric = iota
	InnerProduct
	Cosine
)

func (m Metric) String() string {
	switch m {
	case Euclidean:
		return "euclidean"
	case InnerProduct:
		return "inner_product"
	case Cosine:
		return "cosine"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// Valid reports whether m is one of the supported metrics.
func (m Metric) Valid() bool {
	return m >= Euclidean && m <= Cosine
}

// ParseMetric parses a metric name. Matching is case-insensitive and accepts
// a few common aliases ("l2", "dot", "angular").
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "euclidean", "l2":
		return Euclidean, nil
	case "inner_product", "innerproduct", "dot", "dotproduct":
		return InnerProduct, nil
	case "cosine", "angular":
		return Cosine, nil
	default:
		return 0, fmt.Errorf("unsupported metric %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Metric) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("unsupported metric %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Metric) UnmarshalText(text []byte) error {
	parsed, err := ParseMetric(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Orientation tells how reported values of a metric are ranked.
type Orientation int

const (
	LowerIsBetter Orientation = iota
	HigherIsBetter
)

// Orientation returns how values returned by External are ranked.
func (m Metric) Orientation() Orientation {
	if m == InnerProduct {
		return HigherIsBetter
	}
	return LowerIsBetter
}

// NormalizesInput reports whether vectors must be unit-normalized before they
// are handed to Func.
func (m Metric) NormalizesInput() bool {
	return m == Cosine
}

// Func computes a lower-is-better distance between two prepared vectors.
// Assumes vectors are the same length (caller's responsibility).
type Func func(a, b []float64) float64

// Func returns the internal distance function for m.
// Cosine expects unit-normalized inputs (see NormalizeL2).
func (m Metric) Func() Func {
	switch m {
	case InnerProduct:
		return negDot
	case Cosine:
		return cosineNormalized
	default:
		return SquaredL2
	}
}

// External converts an internal distance produced by Func into the value
// reported to callers.
func (m Metric) External(d float64) float64 {
	switch m {
	case Euclidean:
		return math.Sqrt(d)
	case InnerProduct:
		return -d
	default:
		return d
	}
}

// Distance computes the reported distance between two raw (not prepared)
// vectors. It is commutative, and non-negative for Euclidean and Cosine.
func (m Metric) Distance(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, &ErrDimensionMismatch{Expected: len(a), Actual: len(b)}
	}
	switch m {
	case Euclidean:
		return math.Sqrt(SquaredL2(a, b)), nil
	case InnerProduct:
		return Dot(a, b), nil
	case Cosine:
		na, nb := math.Sqrt(Dot(a, a)), math.Sqrt(Dot(b, b))
		if na == 0 || nb == 0 {
			return 1, nil
		}
		return clampCosine(1 - Dot(a, b)/(na*nb)), nil
	default:
		return 0, fmt.Errorf("unsupported metric %d", int(m))
	}
}

// ErrDimensionMismatch indicates two vectors of different lengths.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Dot calculates the dot product of two vectors.
func Dot(a, b []float64) float64 {
	return floats.Dot(a, b)
}

// SquaredL2 calculates the squared Euclidean distance between two vectors.
func SquaredL2(a, b []float64) float64 {
	var s0, s1, s2, s3 float64
	n := len(a)
	b = b[:n]
	i := 0
	for ; i+4 <= n; i += 4 {
		d0 := a[i] - b[i]
		d1 := a[i+1] - b[i+1]
		d2 := a[i+2] - b[i+2]
		d3 := a[i+3] - b[i+3]
		s0 += d0 * d0
		s1 += d1 * d1
		s2 += d2 * d2
		s3 += d3 * d3
	}
	for ; i < n; i++ {
		d := a[i] - b[i]
		s0 += d * d
	}
	return (s0 + s1) + (s2 + s3)
}

func negDot(a, b []float64) float64 {
	return -floats.Dot(a, b)
}

func cosineNormalized(a, b []float64) float64 {
	return clampCosine(1 - floats.Dot(a, b))
}

// clampCosine keeps rounding noise from producing negative cosine distances.
func clampCosine(d float64) float64 {
	if d < 0 {
		return 0
	}
	return d
}

// NormalizeL2 writes the unit-normalized src into dst and returns dst.
// Returns false if src has zero L2 norm; dst then holds an unchanged copy.
func NormalizeL2(dst []float64, src []float64) ([]float64, bool) {
	dst = append(dst[:0], src...)
	norm := floats.Norm(dst, 2)
	if norm == 0 {
		return dst, false
	}
	floats.Scale(1/norm, dst)
	return dst, true
}
