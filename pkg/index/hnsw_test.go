package index

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
)

func TestHNSWCosineDistance(t *testing.T) {
	hnsw := NewHNSW(16, 200, CosineDistance)

	normalize := func(v []float32) []float32 {
		var sum float32
		for _, val := range v {
			sum += val * val
		}
		norm := float32(math.Sqrt(float64(sum)))
		result := make([]float32, len(v))
		for i, val := range v {
			result[i] = val / norm
		}
		return result
	}

	vectors := []struct {
		id  string
		vec []float32
	}{
		{"VCTR|1", normalize([]float32{1.0, 0.0, 0.0, 0.0})},
		{"VCTR|2", normalize([]float32{1.0, 1.0, 0.0, 0.0})},
		{"VCTR|3", normalize([]float32{0.0, 1.0, 0.0, 0.0})},
		{"VCTR|4", normalize([]float32{1.0, 0.0, 1.0, 0.0})},
		{"VCTR|5", normalize([]float32{1.0, 1.0, 1.0, 1.0})},
	}

	for _, v := range vectors {
		if err := hnsw.Insert(v.id, v.vec); err != nil {
			t.Fatalf("Failed to insert %s: %v", v.id, err)
		}
	}
	if hnsw.Size() != len(vectors) {
		t.Errorf("expected size %d, got %d", len(vectors), hnsw.Size())
	}

	query := normalize([]float32{1.0, 0.5, 0.0, 0.0})
	ids, distances := hnsw.Search(query, 3, 50)

	if len(ids) == 0 {
		t.Fatal("no results returned")
	}
	if ids[0] != "VCTR|1" && ids[0] != "VCTR|2" {
		t.Errorf("expected the closest normalized vector first, got %s", ids[0])
	}
	for i := 1; i < len(distances); i++ {
		if distances[i] < distances[i-1] {
			t.Error("distances not in ascending order")
		}
	}
}

func TestHNSWLargeScale(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large scale test in short mode")
	}

	hnsw := NewHNSW(16, 200, CosineDistance)

	numVectors := 1000
	dim := 32
	vectors := make([][]float32, numVectors)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < numVectors; i++ {
		vec := make([]float32, dim)
		for j := 0; j < dim; j++ {
			vec[j] = rng.Float32()*2 - 1
		}
		vectors[i] = vec
		if err := hnsw.Insert(fmt.Sprintf("VCTR|%d", i), vec); err != nil {
			t.Fatalf("failed to insert vector %d: %v", i, err)
		}
	}

	query := vectors[0]
	ids, distances := hnsw.Search(query, 10, 100)

	if len(ids) != 10 {
		t.Errorf("expected 10 results, got %d", len(ids))
	}
	if ids[0] != "VCTR|0" {
		t.Errorf("expected the query vector's own symbol first, got %s", ids[0])
	}
	if distances[0] > 0.001 {
		t.Errorf("expected first distance to be ~0, got %.4f", distances[0])
	}
}

func TestHNSWDuplicateInsert(t *testing.T) {
	hnsw := NewHNSW(16, 200, CosineDistance)
	vec := []float32{1.0, 0.0, 0.0, 0.0}

	if err := hnsw.Insert("VCTR|1", vec); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := hnsw.Insert("VCTR|1", vec); err == nil {
		t.Error("expected error for duplicate symbol insert, got nil")
	}
}

func TestHNSWEmptyIndex(t *testing.T) {
	hnsw := NewHNSW(16, 200, CosineDistance)

	ids, distances := hnsw.Search([]float32{1.0, 0.0, 0.0, 0.0}, 5, 50)
	if len(ids) != 0 {
		t.Errorf("expected 0 results from empty index, got %d", len(ids))
	}
	if len(distances) != 0 {
		t.Errorf("expected 0 distances from empty index, got %d", len(distances))
	}
}

func BenchmarkHNSWInsert(b *testing.B) {
	hnsw := NewHNSW(16, 200, CosineDistance)
	dim := 32

	vectors := make([][]float32, b.N)
	for i := 0; i < b.N; i++ {
		vec := make([]float32, dim)
		for j := 0; j < dim; j++ {
			vec[j] = rand.Float32()
		}
		vectors[i] = vec
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := hnsw.Insert(fmt.Sprintf("VCTR|%d", i), vectors[i]); err != nil {
			b.Fatalf("insert failed: %v", err)
		}
	}
}

func BenchmarkHNSWSearch(b *testing.B) {
	hnsw := NewHNSW(16, 200, CosineDistance)
	dim := 32
	numVectors := 5000

	for i := 0; i < numVectors; i++ {
		vec := make([]float32, dim)
		for j := 0; j < dim; j++ {
			vec[j] = rand.Float32()
		}
		if err := hnsw.Insert(fmt.Sprintf("VCTR|%d", i), vec); err != nil {
			b.Fatalf("insert failed: %v", err)
		}
	}

	query := make([]float32, dim)
	for j := 0; j < dim; j++ {
		query[j] = rand.Float32()
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hnsw.Search(query, 10, 50)
	}
}
