package index

import "sync"

// Manager coordinates the inverted, bloom, and length-partitioned
// sub-indices to narrow the set of candidate patterns a query's short-term
// memory could match, before the full Ratcliff/Obershelp matcher is run.
// It also keeps an n-gram sub-index in step on add and remove; candidate
// search does not consult it.
// Grounded on index_manager.py's IndexManager.search_candidates, with
// genuine removal across every sub-index (the reference implementation's
// remove_pattern is a documented no-op for the inverted and length
// indices).
type Manager struct {
	mu       sync.RWMutex
	Inverted *Inverted
	Bloom    *Bloom
	Length   *LengthPartitioned
	NGram    *NGram
	patterns map[string][]string // pattern id -> flattened symbols, for Stats/debugging
}

// NewManager creates a Manager with default sub-index configuration.
func NewManager() *Manager {
	return &Manager{
		Inverted: NewInverted(),
		Bloom:    NewBloom(),
		Length:   NewLengthPartitioned(10),
		NGram:    NewNGram(2),
		patterns: make(map[string][]string),
	}
}

// AddPattern indexes a pattern's flattened symbol sequence across every
// sub-index.
func (m *Manager) AddPattern(patternID string, symbols []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Inverted.AddPattern(patternID, symbols)
	m.Bloom.AddPattern(patternID, symbols)
	m.Length.Add(patternID, len(symbols))
	m.NGram.AddPattern(patternID, symbols)
	m.patterns[patternID] = symbols
}

// RemovePattern retracts a pattern from every sub-index.
func (m *Manager) RemovePattern(patternID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Inverted.RemovePattern(patternID)
	m.Bloom.RemovePattern(patternID)
	m.Length.Remove(patternID)
	m.NGram.RemovePattern(patternID)
	delete(m.patterns, patternID)
}

// SearchCandidates returns the set of pattern ids that could plausibly
// match query, combining length-partition tolerance with inverted-index
// symbol lookups. Tolerance and AND/OR mode follow the reference
// implementation exactly: tolerance = max(1, 0.5*|query|/partition_size);
// short queries (len<=2) use OR (permissive, to catch branching shared
// prefixes), longer queries use AND.
func (m *Manager) SearchCandidates(query []string) map[string]struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	queryLen := len(query)
	tolerance := int(0.5 * float64(queryLen) / float64(m.Length.partitionSize))
	if tolerance < 1 {
		tolerance = 1
	}

	candidates := m.Length.Candidates(queryLen, tolerance)

	if len(query) == 0 {
		return candidates
	}

	limited := query
	if len(limited) > 10 {
		limited = limited[:10]
	}
	symbolCandidates := m.Inverted.Search(limited, "OR")

	if queryLen <= 2 {
		for id := range symbolCandidates {
			candidates[id] = struct{}{}
		}
		return candidates
	}

	if len(candidates) == 0 {
		return symbolCandidates
	}
	for id := range candidates {
		if _, ok := symbolCandidates[id]; !ok {
			delete(candidates, id)
		}
	}
	return candidates
}

// Prescreen filters candidates down to those whose bloom filter indicates
// they could contain at least one symbol in query. Callers should still run
// the full matcher on survivors; a false here is a hard prune (zero false
// negatives: the pattern shares no symbol with query), a true is not a
// guarantee.
func (m *Manager) Prescreen(candidates map[string]struct{}, query []string) map[string]struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]struct{}, len(candidates))
	for id := range candidates {
		for _, s := range query {
			if m.Bloom.MightContainAll(id, []string{s}) {
				out[id] = struct{}{}
				break
			}
		}
	}
	return out
}

// Stats reports operational counters across every sub-index, supplemental
// to the core spec but useful for visibility (grounded on index_manager.py's
// get_statistics).
type Stats struct {
	InvertedTerms      int
	InvertedDocs       int
	BloomPatterns      int
	LengthPatterns     int
	TotalPatterns      int
}

// Stats returns current index statistics.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		InvertedTerms:  m.Inverted.Size(),
		InvertedDocs:   m.Inverted.DocCount(),
		BloomPatterns:  m.Bloom.Size(),
		LengthPatterns: m.Length.Size(),
		TotalPatterns:  len(m.patterns),
	}
}

// Clear empties every sub-index.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Inverted.Clear()
	m.Bloom.Clear()
	m.Length.Clear()
	m.NGram.Clear()
	m.patterns = make(map[string][]string)
}
