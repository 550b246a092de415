package predictor

import (
	"math"
	"testing"

	"github.com/kato-engine/kato/pkg/matcher"
	"github.com/kato-engine/kato/pkg/symbol"
)

func uniformProb(sym string) float64 { return 0.1 }

func TestRankOrdersByPotentialDescending(t *testing.T) {
	pattern := []symbol.Event{{"a"}, {"b"}, {"c"}}
	query := []symbol.Event{{"a"}, {"b"}}

	strong := matcher.Decompose(pattern, query)
	weak := matcher.Decompose([]symbol.Event{{"x"}, {"y"}, {"z"}}, query)

	candidates := []Candidate{
		{PatternName: "weak", Frequency: 1, Decomp: weak},
		{PatternName: "strong", Frequency: 10, Decomp: strong},
	}

	preds := Rank(candidates, query, uniformProb, 10, 0, 0)
	if len(preds) == 0 {
		t.Fatalf("expected at least one prediction")
	}
	if preds[0].Name != "strong" {
		t.Errorf("expected 'strong' ranked first, got %s", preds[0].Name)
	}
}

func TestRankRespectsRecallThreshold(t *testing.T) {
	pattern := []symbol.Event{{"a"}, {"b"}}
	query := []symbol.Event{{"z"}}
	decomp := matcher.Decompose(pattern, query)

	candidates := []Candidate{{PatternName: "p", Frequency: 1, Decomp: decomp}}
	preds := Rank(candidates, query, uniformProb, 10, 0.9, 0)
	if len(preds) != 0 {
		t.Errorf("expected no predictions above threshold, got %d", len(preds))
	}
}

func TestRankRespectsMaxPredictions(t *testing.T) {
	query := []symbol.Event{{"a"}}
	var candidates []Candidate
	for i := 0; i < 5; i++ {
		pattern := []symbol.Event{{"a"}, {"b"}}
		candidates = append(candidates, Candidate{
			PatternName: string(rune('a' + i)),
			Frequency:   1,
			Decomp:      matcher.Decompose(pattern, query),
		})
	}
	preds := Rank(candidates, query, uniformProb, 10, 0, 2)
	if len(preds) != 2 {
		t.Errorf("expected 2 predictions, got %d", len(preds))
	}
}

func TestITFDFSimilarityUsesFrequencyAndEnsembleTotal(t *testing.T) {
	present := []string{"a", "b"}
	query := []string{"a", "c"}

	// Cosine distance between the weight vectors is 0.5, so the score is
	// 1 - 0.5*10/10 = 0.5 for the full share and 1 - 0.5*2/10 = 0.9 for the
	// partial one: a larger frequency share discounts more.
	full := ITFDFSimilarity(present, query, 10, 10, uniformProb)
	partial := ITFDFSimilarity(present, query, 2, 10, uniformProb)
	if full >= partial {
		t.Errorf("expected a higher-frequency-share candidate to be discounted more: full=%v partial=%v", full, partial)
	}
	if got := ITFDFSimilarity(present, query, 5, 0, uniformProb); got != 0 {
		t.Errorf("expected 0 when totalEnsembleFrequency is 0, got %v", got)
	}
}

func TestConfluenceWeightsByPatternProbability(t *testing.T) {
	present := []string{"a", "b"}
	if got := Confluence(present, uniformProb, 0); got != 0 {
		t.Errorf("expected 0 confluence with 0 pattern probability, got %v", got)
	}
	got := Confluence(present, uniformProb, 1.0)
	want := 1.0 - (0.1 * 0.1)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected confluence %v, got %v", want, got)
	}
}

func TestHamiltonianAndGrandHamiltonianUseTotalSymbols(t *testing.T) {
	present := []string{"a", "b", "a"}
	if got := Hamiltonian(present, 0); got != 0 {
		t.Errorf("expected 0 with 0 total symbols, got %v", got)
	}
	if got := Hamiltonian(present, 4); got != 0.5 {
		t.Errorf("expected 2 distinct / 4 total = 0.5, got %v", got)
	}
	if got := GrandHamiltonian(present, uniformProb, 4); got != 0.05 {
		t.Errorf("expected (0.1+0.1)/4 = 0.05, got %v", got)
	}
}
