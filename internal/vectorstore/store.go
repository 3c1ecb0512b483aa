package vectorstore

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/hnswbench/model"
)

const (
	segmentBits = 12
	segmentSize = 1 << segmentBits
	segmentMask = segmentSize - 1
)

var (
	// ErrInvalidDimension is returned when a store is created with dim <= 0.
	ErrInvalidDimension = errors.New("dimension must be positive")

	// ErrFull is returned when the id space is exhausted.
	ErrFull = errors.New("vector store is full")
)

// ErrDimensionMismatch is returned when a vector doesn't match the store dimension.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrNotFound is returned for ids that were never allocated.
type ErrNotFound struct {
	ID model.NodeID
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("vector %d not found", e.ID)
}

// segment holds segmentSize vectors. Exactly one of the slices is non-nil,
// according to the store's cell type.
type segment struct {
	f64 []float64
	f32 []float32
	f16 []uint16
}

// Store is an append-only vector store with stable per-id storage.
type Store struct {
	dim      int
	cellType CellType

	mu       sync.Mutex // serializes Append
	count    atomic.Uint32
	segments atomic.Pointer[[]*segment]
}

// New creates a store for vectors of the given dimension.
func New(dim int, cellType CellType) (*Store, error) {
	if dim <= 0 {
		return nil, ErrInvalidDimension
	}
	if !cellType.Valid() {
		return nil, fmt.Errorf("vectorstore: unsupported cell type %d", int(cellType))
	}
	s := &Store{dim: dim, cellType: cellType}
	segs := make([]*segment, 0, 4)
	s.segments.Store(&segs)
	return s, nil
}

// Dimension returns the configured dimensionality.
func (s *Store) Dimension() int { return s.dim }

// CellType returns the storage precision.
func (s *Store) CellType() CellType { return s.cellType }

// Len returns the number of published vectors.
func (s *Store) Len() int { return int(s.count.Load()) }

// Bytes returns the number of bytes reserved for vector cells.
func (s *Store) Bytes() int64 {
	segs := s.segments.Load()
	return int64(len(*segs)) * segmentSize * int64(s.dim) * int64(s.cellType.Size())
}

// Append copies v into the store and returns its id.
// The vector is published (visible to Get) when Append returns.
func (s *Store) Append(v []float64) (model.NodeID, error) {
	if len(v) != s.dim {
		return 0, &ErrDimensionMismatch{Expected: s.dim, Actual: len(v)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.count.Load()
	if n == uint32(model.MaxNodeID) {
		return 0, ErrFull
	}
	id := model.NodeID(n)

	seg := s.segmentFor(id)
	off := int(id&segmentMask) * s.dim
	switch s.cellType {
	case CellFloat64:
		copy(seg.f64[off:off+s.dim], v)
	case CellFloat32:
		dst := seg.f32[off : off+s.dim]
		for i, x := range v {
			dst[i] = float32(x)
		}
	case CellFloat16:
		encodeFloat16(seg.f16[off:off+s.dim], v)
	}

	// Publish after the cells are written.
	s.count.Store(n + 1)
	return id, nil
}

// segmentFor returns the segment holding id, allocating it if needed.
// Must be called with s.mu held.
func (s *Store) segmentFor(id model.NodeID) *segment {
	idx := int(id >> segmentBits)
	segs := *s.segments.Load()
	if idx < len(segs) {
		return segs[idx]
	}

	seg := &segment{}
	cells := segmentSize * s.dim
	switch s.cellType {
	case CellFloat64:
		seg.f64 = make([]float64, cells)
	case CellFloat32:
		seg.f32 = make([]float32, cells)
	case CellFloat16:
		seg.f16 = make([]uint16, cells)
	}

	// Copy the table so readers holding the old one stay valid.
	grown := make([]*segment, len(segs)+1, max(2*len(segs), len(segs)+1))
	copy(grown, segs)
	grown[idx] = seg
	s.segments.Store(&grown)
	return seg
}

// Get returns the vector stored under id as float64 values.
// For CellFloat64 the returned slice aliases store memory and must not be
// modified; otherwise the vector is decoded into scratch (grown if needed).
func (s *Store) Get(id model.NodeID, scratch []float64) ([]float64, error) {
	if uint32(id) >= s.count.Load() {
		return nil, &ErrNotFound{ID: id}
	}
	segs := *s.segments.Load()
	idx := int(id >> segmentBits)
	if idx >= len(segs) {
		return nil, &ErrNotFound{ID: id}
	}
	seg := segs[idx]
	off := int(id&segmentMask) * s.dim

	switch s.cellType {
	case CellFloat64:
		return seg.f64[off : off+s.dim : off+s.dim], nil
	case CellFloat32:
		if cap(scratch) < s.dim {
			scratch = make([]float64, s.dim)
		}
		scratch = scratch[:s.dim]
		for i, x := range seg.f32[off : off+s.dim] {
			scratch[i] = float64(x)
		}
		return scratch, nil
	default:
		if cap(scratch) < s.dim {
			scratch = make([]float64, s.dim)
		}
		scratch = scratch[:s.dim]
		decodeFloat16(scratch, seg.f16[off:off+s.dim])
		return scratch, nil
	}
}

// Float32 returns a freshly allocated float32 copy of the vector under id.
func (s *Store) Float32(id model.NodeID) ([]float32, error) {
	v, err := s.Get(id, nil)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out, nil
}

// Close releases all stored vectors.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count.Store(0)
	empty := make([]*segment, 0)
	s.segments.Store(&empty)
	return nil
}
