package hnsw

import (
	"log/slog"
	"math"

	"github.com/hupe1980/hnswbench/distance"
	"github.com/hupe1980/hnswbench/internal/vectorstore"
)

const (
	// DefaultM is the default number of connections per node on levels > 0.
	DefaultM = 16

	// DefaultEFConstruction is the default beam width used while inserting.
	DefaultEFConstruction = 200

	// MaxLevel caps the top level a node can be assigned.
	MaxLevel = 31
)

// Options represents the options for configuring HNSW.
type Options struct {
	Dimension int
	Metric    distance.Metric

	// M bounds neighbor lists on levels > 0.
	M int
	// M0 bounds neighbor lists on level 0. Zero means 2*M.
	M0 int
	// EFConstruction is the beam width of the insertion search.
	EFConstruction int
	// LevelMultiplier scales the level distribution. Zero means 1/ln(M).
	LevelMultiplier float64

	// CellType is the precision vectors are stored with.
	CellType vectorstore.CellType

	// RandomSeed seeds the level generator. nil seeds from the clock.
	RandomSeed *int64
	// LevelSource overrides the level generator's uniform source.
	LevelSource LevelSource

	// BuildWorkers bounds BatchInsert parallelism. Zero means GOMAXPROCS.
	BuildWorkers int

	Logger *slog.Logger
}

// DefaultOptions contains the default options for HNSW.
var DefaultOptions = Options{
	Metric:         distance.Euclidean,
	M:              DefaultM,
	EFConstruction: DefaultEFConstruction,
	CellType:       vectorstore.CellFloat32,
}

func (o *Options) normalize() error {
	if o.Dimension <= 0 {
		return &ErrInvalidOption{Field: "Dimension", Reason: "must be positive"}
	}
	if !o.Metric.Valid() {
		return &ErrInvalidOption{Field: "Metric", Reason: "unsupported metric"}
	}
	if o.M <= 0 {
		return &ErrInvalidOption{Field: "M", Reason: "must be positive"}
	}
	if o.M0 < 0 {
		return &ErrInvalidOption{Field: "M0", Reason: "must not be negative"}
	}
	if o.EFConstruction <= 0 {
		return &ErrInvalidOption{Field: "EFConstruction", Reason: "must be positive"}
	}
	if o.LevelMultiplier < 0 || math.IsNaN(o.LevelMultiplier) || math.IsInf(o.LevelMultiplier, 0) {
		return &ErrInvalidOption{Field: "LevelMultiplier", Reason: "must be a finite non-negative number"}
	}
	if !o.CellType.Valid() {
		return &ErrInvalidOption{Field: "CellType", Reason: "unsupported cell type"}
	}
	if o.BuildWorkers < 0 {
		return &ErrInvalidOption{Field: "BuildWorkers", Reason: "must not be negative"}
	}

	if o.M0 == 0 {
		o.M0 = 2 * o.M
	}
	if o.LevelMultiplier == 0 {
		// ln(1) is zero; a single-link graph still gets a usable hierarchy.
		o.LevelMultiplier = 1 / math.Log(float64(max(o.M, 2)))
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return nil
}
