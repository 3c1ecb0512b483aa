package hnswbench

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/hnswbench/distance"
	"github.com/hupe1980/hnswbench/internal/hnsw"
	"github.com/hupe1980/hnswbench/internal/vectorstore"
)

// Metric selects the distance function of an index.
type Metric = distance.Metric

const (
	MetricEuclidean    = distance.Euclidean
	MetricInnerProduct = distance.InnerProduct
	MetricCosine       = distance.Cosine
)

// CellType is the precision vectors are stored with.
type CellType = vectorstore.CellType

const (
	CellFloat32 = vectorstore.CellFloat32
	CellFloat64 = vectorstore.CellFloat64
	CellFloat16 = vectorstore.CellFloat16
)

// LevelSource yields uniform samples in [0, 1) for level assignment.
type LevelSource = hnsw.LevelSource

// Options configures an Index.
type Options struct {
	Dimension int    `yaml:"dimension" validate:"gt=0"`
	Metric    Metric `yaml:"metric" validate:"metric"`

	// M bounds neighbor lists on levels > 0.
	M int `yaml:"m" validate:"gt=0"`
	// M0 bounds neighbor lists on level 0. Zero means 2*M.
	M0 int `yaml:"m0" validate:"gte=0"`
	// EFConstruction is the beam width used while inserting.
	EFConstruction int `yaml:"ef_construction" validate:"gt=0"`
	// LevelMultiplier scales the level distribution. Zero means 1/ln(M).
	LevelMultiplier float64 `yaml:"level_multiplier" validate:"gte=0"`

	CellType CellType `yaml:"cell_type" validate:"celltype"`

	// RandomSeed makes level assignment reproducible.
	RandomSeed *int64 `yaml:"random_seed,omitempty"`
	// BuildWorkers bounds BatchInsert parallelism. Zero means GOMAXPROCS.
	BuildWorkers int `yaml:"build_workers" validate:"gte=0"`

	// LevelSource overrides the built-in level generator.
	LevelSource LevelSource `yaml:"-" validate:"-"`
	// Logger receives structured logs. Defaults to NoopLogger.
	Logger *Logger `yaml:"-" validate:"-"`
	// MetricsCollector receives per-operation metrics.
	MetricsCollector MetricsCollector `yaml:"-" validate:"-"`
}

// DefaultOptions returns the default index options. Dimension has no
// default and must always be set.
func DefaultOptions() Options {
	return Options{
		Metric:         MetricEuclidean,
		M:              hnsw.DefaultM,
		EFConstruction: hnsw.DefaultEFConstruction,
		CellType:       CellFloat32,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("metric", func(fl validator.FieldLevel) bool {
		m, ok := fl.Field().Interface().(Metric)
		return ok && m.Valid()
	})
	_ = v.RegisterValidation("celltype", func(fl validator.FieldLevel) bool {
		c, ok := fl.Field().Interface().(CellType)
		return ok && c.Valid()
	})
	return v
}

// Validate checks the options. Failures wrap ErrInvalidConfig.
func (o *Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	msgs := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		switch e.Tag() {
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s: must be greater than %s", e.Field(), e.Param()))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s: must be at least %s", e.Field(), e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s: unsupported value %v", e.Field(), e.Value()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

// LoadOptions decodes YAML options from r on top of DefaultOptions and
// validates the result. Unknown keys are rejected.
func LoadOptions(r io.Reader) (Options, error) {
	opts := DefaultOptions()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		return Options{}, fmt.Errorf("%w: decode options: %w", ErrInvalidConfig, err)
	}

	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// LoadOptionsFile reads YAML options from path. See LoadOptions.
func LoadOptionsFile(path string) (Options, error) {
	f, err := os.Open(path)
	if err != nil {
		return Options{}, err
	}
	defer f.Close()

	return LoadOptions(f)
}
