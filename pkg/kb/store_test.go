package kb

import (
	"context"
	"testing"

	"github.com/kato-engine/kato/pkg/symbol"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:", 5)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLearnInsertsNewPattern(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seq := []symbol.Event{{"a", "b"}, {"c"}}

	name, freq, err := s.Learn(ctx, seq, nil)
	if err != nil {
		t.Fatalf("Learn: %v", err)
	}
	if freq != 1 {
		t.Errorf("expected frequency 1, got %d", freq)
	}

	p, err := s.Get(ctx, name)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Length != 3 {
		t.Errorf("expected length 3, got %d", p.Length)
	}
}

func TestLearnIncrementsExistingPattern(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seq := []symbol.Event{{"a"}, {"b"}}

	_, _, err := s.Learn(ctx, seq, nil)
	if err != nil {
		t.Fatalf("Learn: %v", err)
	}
	_, freq, err := s.Learn(ctx, seq, nil)
	if err != nil {
		t.Fatalf("Learn: %v", err)
	}
	if freq != 2 {
		t.Errorf("expected frequency 2 on relearn, got %d", freq)
	}
}

func TestLearnUpdatesSymbolStatsAndTotals(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seq := []symbol.Event{{"a", "a"}, {"b"}}

	if _, _, err := s.Learn(ctx, seq, nil); err != nil {
		t.Fatalf("Learn: %v", err)
	}

	freq, err := s.SymbolFrequency(ctx, "a")
	if err != nil {
		t.Fatalf("SymbolFrequency: %v", err)
	}
	if freq != 2 {
		t.Errorf("expected symbol 'a' frequency 2 (both occurrences in the first event count), got %d", freq)
	}

	totals, err := s.Totals(ctx)
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if totals.TotalPatternFrequency != 1 {
		t.Errorf("expected total pattern frequency 1, got %d", totals.TotalPatternFrequency)
	}
	if totals.TotalSymbolsInPatternsFrequency != 2 {
		t.Errorf("expected 2 distinct symbols counted, got %d", totals.TotalSymbolsInPatternsFrequency)
	}
}

func TestSymbolProbabilityUsesPatternMembershipFrequency(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, _, err := s.Learn(ctx, []symbol.Event{{"a", "a"}, {"b"}}, nil); err != nil {
		t.Fatalf("Learn: %v", err)
	}
	if _, _, err := s.Learn(ctx, []symbol.Event{{"a"}, {"c"}}, nil); err != nil {
		t.Fatalf("Learn: %v", err)
	}

	// 'a' appears in frequency 3 (2+1) but is a *member* of only 2
	// patterns, so its probability must come from pattern_membership_frequency,
	// not the raw occurrence frequency.
	freq, err := s.SymbolFrequency(ctx, "a")
	if err != nil {
		t.Fatalf("SymbolFrequency: %v", err)
	}
	if freq != 3 {
		t.Fatalf("expected symbol 'a' occurrence frequency 3, got %d", freq)
	}

	prob, err := s.SymbolProbability(ctx, "a")
	if err != nil {
		t.Fatalf("SymbolProbability: %v", err)
	}
	if prob != 0.5 {
		t.Errorf("expected P(a) = 2/4 = 0.5, got %v", prob)
	}

	total, err := s.TotalSymbols(ctx)
	if err != nil {
		t.Fatalf("TotalSymbols: %v", err)
	}
	if total != 3 {
		t.Errorf("expected 3 distinct symbols ('a', 'b', 'c'), got %d", total)
	}
}

func TestDeleteRemovesPattern(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	name, _, _ := s.Learn(ctx, []symbol.Event{{"a"}}, nil)

	if err := s.Delete(ctx, name); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, name); err == nil {
		t.Errorf("expected pattern to be gone after delete")
	}
}
