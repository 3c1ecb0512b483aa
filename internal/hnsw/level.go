package hnsw

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// LevelSource yields uniformly distributed samples in [0, 1).
// *math/rand.Rand and *math/rand/v2.Rand satisfy it.
type LevelSource interface {
	Float64() float64
}

// levelGenerator draws node levels from ℓ = floor(-ln(U) * mult).
type levelGenerator struct {
	mult float64

	seed atomic.Uint64 // lock-free xorshift state

	mu  sync.Mutex // guards src
	src LevelSource
}

func newLevelGenerator(mult float64, seed *int64, src LevelSource) *levelGenerator {
	g := &levelGenerator{mult: mult, src: src}
	if seed != nil {
		g.seed.Store(uint64(*seed))
	} else {
		g.seed.Store(uint64(time.Now().UnixNano()))
	}
	return g
}

// Next returns the level for a new node.
func (g *levelGenerator) Next() int {
	var r float64
	if g.src != nil {
		g.mu.Lock()
		r = g.src.Float64()
		g.mu.Unlock()
	} else {
		r = g.uniform()
	}
	return levelFor(r, g.mult)
}

// uniform is a lock-free xorshift64* step over an atomically advanced seed.
func (g *levelGenerator) uniform() float64 {
	seed := g.seed.Add(0x9E3779B97F4A7C15)
	seed ^= seed >> 12
	seed ^= seed << 25
	seed ^= seed >> 27
	return float64(seed*0x2545F4914F6CDD1D>>11) / float64(1<<53)
}

func levelFor(r, mult float64) int {
	if r >= 1 || math.IsNaN(r) {
		return 0
	}
	if r <= 0 {
		return MaxLevel
	}
	l := math.Floor(-math.Log(r) * mult)
	if l >= MaxLevel {
		return MaxLevel
	}
	return int(l)
}
