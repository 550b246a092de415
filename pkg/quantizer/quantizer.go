// Package quantizer maps raw float32 vectors onto a small, stable set of
// named vector symbols. Observing the same vector twice, or two vectors
// close enough to be indistinguishable, should not mint two different
// symbols — the quantizer is what keeps the symbol vocabulary from
// growing unbounded when a sensor or embedding model emits slightly
// different floats for what is conceptually the same input.
package quantizer

import (
	"fmt"
	"sync"

	"github.com/kato-engine/kato/internal/encoding"
	"github.com/kato-engine/kato/pkg/index"
	"github.com/kato-engine/kato/pkg/symbol"
)

// DefaultK is the number of approximate nearest neighbors consulted when
// deciding whether an incoming vector matches an existing symbol.
const DefaultK = 3

// DefaultTolerance is the maximum cosine distance at which a neighbor is
// considered the "same" vector rather than a new one.
const DefaultTolerance float32 = 1e-6

// Quantizer assigns stable VCTR| symbol names to float32 vectors, backed
// by an approximate nearest-neighbor index.
type Quantizer struct {
	mu        sync.RWMutex
	index     *index.HNSW
	vectors   map[string][]float32 // symbol name -> canonical vector
	summands  map[string][]string  // symbol name -> contributing symbols (Combine provenance)
	k         int
	tolerance float32
	dim       int
}

// New creates a Quantizer using cosine distance and k=3 nearest-neighbor
// lookups, matching the engine's default ANN configuration.
func New() *Quantizer {
	return NewWithDistance(index.CosineDistance)
}

// NewWithDistance creates a Quantizer using a caller-supplied distance
// function in place of the default cosine distance, for callers whose
// vectors are better compared some other way (Euclidean, a domain-specific
// metric, and so on).
func NewWithDistance(dist func(a, b []float32) float32) *Quantizer {
	return &Quantizer{
		index:     index.NewHNSW(16, 200, dist),
		vectors:   make(map[string][]float32),
		summands:  make(map[string][]string),
		k:         DefaultK,
		tolerance: DefaultTolerance,
	}
}

// Quantize returns the symbol name for vector, reusing an existing symbol
// if an indexed vector is within tolerance, or minting and indexing a new
// one otherwise. The returned bool is true when a new symbol was minted.
func (q *Quantizer) Quantize(vector []float32) (string, bool, error) {
	if err := encoding.ValidateVector(vector); err != nil {
		return "", false, fmt.Errorf("quantizer: %w", err)
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.dim == 0 {
		q.dim = len(vector)
	} else if len(vector) != q.dim {
		return "", false, fmt.Errorf("quantizer: vector has dimension %d, want %d", len(vector), q.dim)
	}

	if q.index.Size() > 0 {
		ids, dists := q.index.Search(vector, q.k, q.k*4)
		if len(ids) > 0 && dists[0] <= q.tolerance {
			return ids[0], false, nil
		}
	}

	name := symbol.VectorName(vector)
	if _, exists := q.vectors[name]; exists {
		return name, false, nil
	}
	if err := q.index.Insert(name, vector); err != nil {
		return "", false, fmt.Errorf("quantizer: index insert: %w", err)
	}
	q.vectors[name] = vector
	return name, true, nil
}

// Neighbors returns up to k existing vector symbols nearest to vector,
// along with their cosine distances, without minting a new symbol.
func (q *Quantizer) Neighbors(vector []float32, k int) ([]string, []float32) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if k <= 0 {
		k = q.k
	}
	return q.index.Search(vector, k, k*4)
}

// Vector returns the raw vector behind a previously quantized symbol name.
func (q *Quantizer) Vector(name string) ([]float32, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	v, ok := q.vectors[name]
	return v, ok
}

// Combine unions two or more existing vector symbols into a new vector
// symbol (component-wise mean), recording the contributing symbols as its
// provenance. This mirrors the original implementation's vector-summation
// behavior.
func (q *Quantizer) Combine(names ...string) (string, error) {
	if len(names) < 2 {
		return "", fmt.Errorf("quantizer: Combine requires at least two symbols")
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	var sum []float32
	for _, n := range names {
		v, ok := q.vectors[n]
		if !ok {
			return "", fmt.Errorf("quantizer: unknown symbol %q", n)
		}
		if sum == nil {
			sum = make([]float32, len(v))
		} else if len(v) != len(sum) {
			return "", fmt.Errorf("quantizer: dimension mismatch combining %q", n)
		}
		for i, x := range v {
			sum[i] += x
		}
	}
	for i := range sum {
		sum[i] /= float32(len(names))
	}

	name := symbol.VectorName(sum)
	if _, exists := q.vectors[name]; !exists {
		if err := q.index.Insert(name, sum); err != nil {
			return "", fmt.Errorf("quantizer: index insert: %w", err)
		}
		q.vectors[name] = sum
	}
	combined := append([]string{}, q.summands[name]...)
	combined = append(combined, names...)
	q.summands[name] = combined
	return name, nil
}

// Summands returns the symbol names previously combined to produce name,
// if any.
func (q *Quantizer) Summands(name string) []string {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return append([]string{}, q.summands[name]...)
}

// Size returns the number of distinct vector symbols indexed so far.
func (q *Quantizer) Size() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.index.Size()
}
