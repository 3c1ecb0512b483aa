package testutil

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/hupe1980/hnswbench/distance"
	"github.com/hupe1980/hnswbench/model"
)

// SearchResult represents a search result.
type SearchResult struct {
	ID       model.NodeID
	Distance float64
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
// RNG can therefore be used as a level source for the index.
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// UniformVectors generates random vectors with values in range [0, 1).
// Uses a single backing array for efficiency.
func (r *RNG) UniformVectors(num int, dimensions int) [][]float32 {
	return r.vectors(num, dimensions, func() float32 { return r.rand.Float32() })
}

// UniformRangeVectors generates random vectors with values in range [-1, 1).
func (r *RNG) UniformRangeVectors(num int, dimensions int) [][]float32 {
	return r.vectors(num, dimensions, func() float32 { return r.rand.Float32()*2 - 1 })
}

// GaussianVectors generates random vectors with values from a standard normal distribution.
func (r *RNG) GaussianVectors(num int, dimensions int) [][]float32 {
	return r.vectors(num, dimensions, func() float32 { return float32(r.rand.NormFloat64()) })
}

// UnitVectors generates L2-normalized random vectors (on the hypersphere).
// Uses Gaussian distribution for uniform distribution on the sphere.
func (r *RNG) UnitVectors(num int, dimensions int) [][]float32 {
	vectors := r.GaussianVectors(num, dimensions)
	for _, vec := range vectors {
		var norm float64
		for _, x := range vec {
			norm += float64(x) * float64(x)
		}
		if norm == 0 {
			continue
		}
		inv := 1 / math.Sqrt(norm)
		for j := range vec {
			vec[j] = float32(float64(vec[j]) * inv)
		}
	}
	return vectors
}

// ClusteredVectors generates vectors clustered around random centroids.
// Useful for testing ANN index performance on non-uniform data.
func (r *RNG) ClusteredVectors(num, dim, clusters int, spread float32) [][]float32 {
	// UnitVectors locks on its own; take the lock only afterwards.
	centroids := r.UnitVectors(clusters, dim)

	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dim)
	vectors := make([][]float32, num)

	for i := range num {
		centroid := centroids[i%clusters]
		vec := data[i*dim : (i+1)*dim]
		for j := range dim {
			vec[j] = centroid[j] + float32(r.rand.NormFloat64())*spread
		}
		vectors[i] = vec
	}

	return vectors
}

func (r *RNG) vectors(num, dimensions int, next func() float32) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimensions)
	vectors := make([][]float32, num)

	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions]
		for j := range vec {
			vec[j] = next()
		}
		vectors[i] = vec
	}

	return vectors
}

// BruteForce returns the exact k nearest neighbors of query among data,
// where data[i] is stored under NodeID i. Distances are reported the way the
// index reports them (see distance.Metric.External) and results are ranked
// best first with ties broken by ascending id.
func BruteForce(metric distance.Metric, query []float32, data [][]float32, k int) []SearchResult {
	q := toFloat64(query)
	results := make([]SearchResult, 0, len(data))
	for i, v := range data {
		d, err := metric.Distance(q, toFloat64(v))
		if err != nil {
			continue
		}
		results = append(results, SearchResult{ID: model.NodeID(i), Distance: d})
	}

	higher := metric.Orientation() == distance.HigherIsBetter
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Distance != b.Distance {
			if higher {
				return a.Distance > b.Distance
			}
			return a.Distance < b.Distance
		}
		return a.ID < b.ID
	})

	if k < len(results) {
		results = results[:k]
	}
	return results
}

// ComputeRecall computes recall@k by comparing approximate results against ground truth.
func ComputeRecall(groundTruth, approximate []SearchResult) float64 {
	if len(groundTruth) == 0 || len(approximate) == 0 {
		if len(groundTruth) == 0 && len(approximate) == 0 {
			return 1.0
		}
		return 0.0
	}

	k := min(len(approximate), len(groundTruth))

	truthSet := make(map[model.NodeID]struct{}, k)
	for i := range k {
		truthSet[groundTruth[i].ID] = struct{}{}
	}

	hits := 0
	for _, r := range approximate {
		if _, ok := truthSet[r.ID]; ok {
			hits++
		}
	}

	return float64(hits) / float64(k)
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
