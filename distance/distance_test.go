package distance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDot(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float64
		expected float64
	}{
		{"Simple", []float64{1, 2, 3}, []float64{4, 5, 6}, 32},
		{"Zero", []float64{0, 0, 0}, []float64{0, 0, 0}, 0},
		{"Mixed", []float64{1, -1, 2}, []float64{1, 1, -2}, -4},
		{"Empty", []float64{}, []float64{}, 0},
		{"Single", []float64{2}, []float64{3}, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Dot(tt.a, tt.b), 1e-12)
		})
	}
}

func TestSquaredL2(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float64
		expected float64
	}{
		{"Simple", []float64{1, 2, 3}, []float64{4, 5, 6}, 27},
		{"Zero", []float64{0, 0, 0}, []float64{0, 0, 0}, 0},
		{"Identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 0},
		{"Mixed", []float64{1, -1}, []float64{-1, 1}, 8},
		{"Empty", []float64{}, []float64{}, 0},
		{"Unrolled", []float64{1, 1, 1, 1, 1, 1, 1}, []float64{0, 0, 0, 0, 0, 0, 0}, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, SquaredL2(tt.a, tt.b), 1e-12)
		})
	}
}

func TestMetricDistance(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{-2, 0.5, 4}

	for _, m := range []Metric{Euclidean, InnerProduct, Cosine} {
		t.Run(m.String(), func(t *testing.T) {
			ab, err := m.Distance(a, b)
			require.NoError(t, err)
			ba, err := m.Distance(b, a)
			require.NoError(t, err)
			assert.InDelta(t, ab, ba, 1e-12, "distance must be commutative")

			if m.Orientation() == LowerIsBetter {
				assert.GreaterOrEqual(t, ab, 0.0)
				self, err := m.Distance(a, a)
				require.NoError(t, err)
				assert.InDelta(t, 0, self, 1e-12)
			}
		})
	}

	t.Run("Mismatch", func(t *testing.T) {
		_, err := Euclidean.Distance([]float64{1, 2}, []float64{1, 2, 3})
		var dm *ErrDimensionMismatch
		require.ErrorAs(t, err, &dm)
		assert.Equal(t, 2, dm.Expected)
		assert.Equal(t, 3, dm.Actual)
	})

	t.Run("CosineZeroVector", func(t *testing.T) {
		d, err := Cosine.Distance([]float64{0, 0}, []float64{1, 0})
		require.NoError(t, err)
		assert.Equal(t, 1.0, d)
	})
}

func TestFuncMatchesExternal(t *testing.T) {
	a := []float64{3, 4}
	b := []float64{0, 0}

	d := Euclidean.Func()(a, b)
	assert.Equal(t, 25.0, d)
	assert.Equal(t, 5.0, Euclidean.External(d))

	ip := InnerProduct.Func()([]float64{1, 2}, []float64{3, 4})
	assert.Equal(t, -11.0, ip)
	assert.Equal(t, 11.0, InnerProduct.External(ip))
	assert.Equal(t, HigherIsBetter, InnerProduct.Orientation())

	na, ok := NormalizeL2(nil, []float64{3, 4})
	require.True(t, ok)
	nb, ok := NormalizeL2(nil, []float64{4, 3})
	require.True(t, ok)
	raw, err := Cosine.Distance([]float64{3, 4}, []float64{4, 3})
	require.NoError(t, err)
	assert.InDelta(t, raw, Cosine.External(Cosine.Func()(na, nb)), 1e-12)
}

func TestNormalizeL2(t *testing.T) {
	v, ok := NormalizeL2(nil, []float64{3, 4})
	require.True(t, ok)
	assert.InDelta(t, 0.6, v[0], 1e-12)
	assert.InDelta(t, 0.8, v[1], 1e-12)
	assert.InDelta(t, 1.0, math.Sqrt(Dot(v, v)), 1e-12)

	zero, ok := NormalizeL2(nil, []float64{0, 0})
	assert.False(t, ok)
	assert.Equal(t, []float64{0, 0}, zero)
}

func TestParseMetric(t *testing.T) {
	for in, want := range map[string]Metric{
		"euclidean":     Euclidean,
		"L2":            Euclidean,
		"inner_product": InnerProduct,
		"dot":           InnerProduct,
		"Cosine":        Cosine,
		"angular":       Cosine,
	} {
		got, err := ParseMetric(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMetric("hamming")
	assert.Error(t, err)
	assert.False(t, Metric(42).Valid())
}

func TestMetricYAML(t *testing.T) {
	var cfg struct {
		Metric Metric `yaml:"metric"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("metric: inner_product\n"), &cfg))
	assert.Equal(t, InnerProduct, cfg.Metric)

	out, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(out), "inner_product")
}
