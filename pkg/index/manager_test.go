package index

import "testing"

func TestManagerAddAndRemoveIsConsistent(t *testing.T) {
	m := NewManager()
	m.AddPattern("p1", []string{"a", "b", "c"})
	m.AddPattern("p2", []string{"a", "x", "y"})

	stats := m.Stats()
	if stats.TotalPatterns != 2 {
		t.Fatalf("expected 2 patterns, got %d", stats.TotalPatterns)
	}

	m.RemovePattern("p1")

	if _, ok := m.Inverted.Search([]string{"a"}, "OR")["p1"]; ok {
		t.Errorf("p1 should have been removed from inverted index")
	}
	if m.Bloom.MightContainAll("p1", []string{"a"}) {
		t.Errorf("p1 should have been removed from bloom index")
	}
	if _, ok := m.Length.Candidates(3, 5)["p1"]; ok {
		t.Errorf("p1 should have been removed from length index")
	}
	stats = m.Stats()
	if stats.TotalPatterns != 1 {
		t.Errorf("expected 1 pattern after removal, got %d", stats.TotalPatterns)
	}
}

func TestSearchCandidatesShortQueryIsPermissive(t *testing.T) {
	m := NewManager()
	m.AddPattern("p1", []string{"a", "b"})
	m.AddPattern("p2", []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"})

	candidates := m.SearchCandidates([]string{"a"})
	if _, ok := candidates["p1"]; !ok {
		t.Errorf("expected p1 in candidates for short query")
	}
}

func TestBloomNeverFalseNegative(t *testing.T) {
	b := NewBloom()
	b.AddPattern("p1", []string{"a", "b", "c"})
	if !b.MightContainAll("p1", []string{"a", "b"}) {
		t.Errorf("bloom filter produced a false negative")
	}
}
