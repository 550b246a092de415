// Package index provides vector indexing implementations
package index

import (
	"container/heap"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// HNSWNode is one indexed VCTR| symbol: its raw vector and its
// neighbor lists at each graph level.
type HNSWNode struct {
	ID        string
	Vector    []float32
	Level     int
	Neighbors [][]string // Neighbors at each level
	Deleted   bool
}

// HNSW implements a Hierarchical Navigable Small World index over the
// quantizer's VCTR| symbol vectors, grounded on the quantizer's
// approximate-nearest-neighbor lookup (Quantize/Neighbors in
// pkg/quantizer) needing sublinear search as the vocabulary of observed
// vectors grows.
type HNSW struct {
	// Parameters
	M              int     // Max number of bi-directional links per node
	MaxM           int     // Max number of links for layer 0
	EfConstruction int     // Size of dynamic candidate list
	ML             float64 // Level assignment probability
	Seed           int64   // Random seed

	// Index data
	Nodes      map[string]*HNSWNode
	EntryPoint string

	// Distance function
	DistFunc func(a, b []float32) float32

	mu  sync.RWMutex
	rng *rand.Rand
}

// NewHNSW creates a new HNSW index
func NewHNSW(M, efConstruction int, distFunc func(a, b []float32) float32) *HNSW {
	seed := time.Now().UnixNano()
	return &HNSW{
		M:              M,
		MaxM:           M * 2, // MaxM = 2*M for layer 0
		EfConstruction: efConstruction,
		ML:             1.0 / math.Log(2.0), // This is approximately 1.44
		Seed:           seed,
		Nodes:          make(map[string]*HNSWNode),
		DistFunc:       distFunc,
		rng:            rand.New(rand.NewSource(seed)),
	}
}

func (h *HNSW) calculateDistance(query []float32, node *HNSWNode) float32 {
	if node.Vector == nil {
		return math.MaxFloat32
	}
	return h.DistFunc(query, node.Vector)
}

// selectLevel randomly selects level for a new node
func (h *HNSW) selectLevel() int {
	// Exponential decay with a fixed factor of 1/2 (ML is not consulted):
	// probability of level l is 0.5^(l+1), and levels stop at 17.
	level := 0
	for h.rng.Float64() < 0.5 { // 50% chance to go to next level
		level++
		if level > 16 { // Cap at reasonable maximum
			break
		}
	}
	return level
}

// Insert adds vector under symbol name id to the index.
func (h *HNSW) Insert(id string, vector []float32) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.Nodes[id]; exists {
		return fmt.Errorf("node %s already exists", id)
	}

	level := h.selectLevel()
	node := &HNSWNode{
		ID:        id,
		Vector:    vector,
		Level:     level,
		Neighbors: make([][]string, level+1),
	}
	for i := 0; i <= level; i++ {
		node.Neighbors[i] = make([]string, 0)
	}

	h.Nodes[id] = node

	if h.EntryPoint == "" {
		h.EntryPoint = id
		return nil
	}

	// Search for closest points at all levels, descending from the top
	// layer to the target layer.
	currNearest := []string{h.EntryPoint}
	entryNode := h.Nodes[h.EntryPoint]
	for lc := entryNode.Level; lc > level; lc-- {
		currNearest = h.searchLayerClosest(vector, currNearest, 1, lc)
	}

	for lc := level; lc >= 0; lc-- {
		m := h.M
		if lc == 0 {
			m = h.MaxM
		}

		candidates := h.searchLayer(vector, currNearest, h.EfConstruction, lc)
		neighbors := h.selectNeighborsHeuristic(vector, candidates, m, lc)

		node.Neighbors[lc] = neighbors
		for _, neighbor := range neighbors {
			h.addConnection(neighbor, id, lc)

			neighborNode := h.Nodes[neighbor]
			maxConn := h.M
			if lc == 0 {
				maxConn = h.MaxM
			}
			if lc < len(neighborNode.Neighbors) && len(neighborNode.Neighbors[lc]) > maxConn {
				newNeighbors := h.selectNeighborsHeuristic(
					neighborNode.Vector,
					neighborNode.Neighbors[lc],
					maxConn,
					lc,
				)
				neighborNode.Neighbors[lc] = newNeighbors
			}
		}

		currNearest = neighbors
	}

	if level > h.Nodes[h.EntryPoint].Level {
		h.EntryPoint = id
	}

	return nil
}

// searchLayer performs a greedy search in a specific layer
func (h *HNSW) searchLayer(query []float32, entryPoints []string, ef int, layer int) []string {
	visited := make(map[string]bool)
	candidates := &distHeap{}
	dynamicList := &distHeap{} // max heap for nearest

	for _, point := range entryPoints {
		dist := h.calculateDistance(query, h.Nodes[point])

		heap.Push(candidates, &heapItem{id: point, dist: dist})
		heap.Push(dynamicList, &heapItem{id: point, dist: -dist}) // negative for max heap
		visited[point] = true
	}

	for candidates.Len() > 0 {
		if dynamicList.Len() > 0 {
			lowerBound := (*candidates)[0].dist
			if lowerBound > -(*dynamicList)[0].dist {
				break
			}
		}

		current := heap.Pop(candidates).(*heapItem)
		currentNode := h.Nodes[current.id]

		if layer >= len(currentNode.Neighbors) {
			continue
		}

		for _, neighbor := range currentNode.Neighbors[layer] {
			if !visited[neighbor] {
				visited[neighbor] = true

				dist := h.calculateDistance(query, h.Nodes[neighbor])

				if dist < -(*dynamicList)[0].dist || dynamicList.Len() < ef {
					heap.Push(candidates, &heapItem{id: neighbor, dist: dist})
					heap.Push(dynamicList, &heapItem{id: neighbor, dist: -dist})

					if dynamicList.Len() > ef {
						heap.Pop(dynamicList)
					}
				}
			}
		}
	}

	result := make([]string, 0, dynamicList.Len())
	for dynamicList.Len() > 0 {
		item := heap.Pop(dynamicList).(*heapItem)
		result = append(result, item.id)
	}

	for i := 0; i < len(result)/2; i++ {
		result[i], result[len(result)-1-i] = result[len(result)-1-i], result[i]
	}

	return result
}

// searchLayerClosest finds the closest point in a layer
func (h *HNSW) searchLayerClosest(query []float32, entryPoints []string, num int, layer int) []string {
	candidates := h.searchLayer(query, entryPoints, num, layer)
	if len(candidates) > num {
		return candidates[:num]
	}
	return candidates
}

// selectNeighborsHeuristic selects m neighbors using a heuristic
func (h *HNSW) selectNeighborsHeuristic(query []float32, candidates []string, m int, _ int) []string {
	if len(candidates) <= m {
		return candidates
	}

	type distPair struct {
		id   string
		dist float32
	}

	pairs := make([]distPair, len(candidates))
	for i, candidate := range candidates {
		pairs[i] = distPair{id: candidate, dist: h.calculateDistance(query, h.Nodes[candidate])}
	}

	for i := 0; i < len(pairs)-1; i++ {
		for j := i + 1; j < len(pairs); j++ {
			if pairs[j].dist < pairs[i].dist {
				pairs[i], pairs[j] = pairs[j], pairs[i]
			}
		}
	}

	result := make([]string, 0, m)
	for i := 0; i < m && i < len(pairs); i++ {
		result = append(result, pairs[i].id)
	}

	return result
}

// addConnection adds a connection between two nodes
func (h *HNSW) addConnection(from, to string, layer int) {
	fromNode, exists := h.Nodes[from]
	if !exists || layer >= len(fromNode.Neighbors) {
		return
	}

	for _, neighbor := range fromNode.Neighbors[layer] {
		if neighbor == to {
			return
		}
	}

	fromNode.Neighbors[layer] = append(fromNode.Neighbors[layer], to)
}

// Search returns up to k symbol names nearest to query, along with their
// distances in ascending order, using ef as the dynamic candidate list
// size at layer 0.
func (h *HNSW) Search(query []float32, k int, ef int) ([]string, []float32) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.EntryPoint == "" {
		return []string{}, []float32{}
	}

	entryNode := h.Nodes[h.EntryPoint]
	currNearest := []string{h.EntryPoint}

	for layer := entryNode.Level; layer > 0; layer-- {
		currNearest = h.searchLayerClosest(query, currNearest, 1, layer)
	}

	candidates := h.searchLayer(query, currNearest, ef, 0)

	type result struct {
		id   string
		dist float32
	}

	results := make([]result, 0, len(candidates))
	for _, candidate := range candidates {
		if node, exists := h.Nodes[candidate]; exists && !node.Deleted {
			results = append(results, result{id: candidate, dist: h.calculateDistance(query, node)})
		}
	}

	for i := 0; i < len(results)-1; i++ {
		for j := i + 1; j < len(results); j++ {
			if results[j].dist < results[i].dist {
				results[i], results[j] = results[j], results[i]
			}
		}
	}

	limit := k
	if limit > len(results) {
		limit = len(results)
	}

	ids := make([]string, limit)
	distances := make([]float32, limit)
	for i := 0; i < limit; i++ {
		ids[i] = results[i].id
		distances[i] = results[i].dist
	}

	return ids, distances
}

// Size returns the number of non-deleted symbols in the index.
func (h *HNSW) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, node := range h.Nodes {
		if !node.Deleted {
			count++
		}
	}
	return count
}

type heapItem struct {
	id   string
	dist float32
}

type distHeap []*heapItem

func (h distHeap) Len() int           { return len(h) }
func (h distHeap) Less(i, j int) bool { return h[i].dist < h[j].dist }
func (h distHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *distHeap) Push(x interface{}) {
	*h = append(*h, x.(*heapItem))
}

func (h *distHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}

// CosineDistance computes 1 - cosine similarity between two vectors, the
// distance function the quantizer uses to decide whether an observed
// vector matches an existing VCTR| symbol.
func CosineDistance(a, b []float32) float32 {
	var dotProduct, normA, normB float32
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 1.0
	}

	similarity := dotProduct / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
	return 1.0 - similarity
}
