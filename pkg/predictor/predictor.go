// Package predictor scores matched candidate patterns against a query
// and ranks them into predictions. Scoring combines the Ratcliff/Obershelp
// similarity from pkg/matcher with information-theoretic measures
// (entropy, hamiltonian, confluence) and an ensemble predictive
// information pass that groups candidates by their predicted future,
// grounded on kato/informatics/predictive_information.py's
// calculate_ensemble_predictive_information and
// kato/workers/pattern_processor.py's predictPattern.
package predictor

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"math"
	"sort"

	"github.com/kato-engine/kato/pkg/matcher"
	"github.com/kato-engine/kato/pkg/symbol"
)

// SymbolProbability looks up the probability of a symbol occurring,
// pattern_membership_frequency/total_symbols_in_patterns_frequency from
// the knowledge base.
type SymbolProbability func(sym string) float64

// Candidate is a pattern matched against the current query, ready for scoring.
type Candidate struct {
	PatternName string
	Frequency   int
	Decomp      matcher.Decomposition
}

// Prediction is a fully scored, ranked candidate.
type Prediction struct {
	Name            string
	Frequency       int
	Similarity      float64
	Past, Present   []string
	Future          []symbol.Event
	Missing, Extras []string

	ITFDFSimilarity       float64
	Entropy               float64
	Hamiltonian           float64
	GrandHamiltonian      float64
	Confluence            float64
	PatternProbability    float64
	PredictiveInformation float64
	Potential             float64
}

// Entropy computes the Shannon entropy (base 2) of a set of symbols
// weighted by their individual occurrence probability.
func Entropy(symbols []string, prob SymbolProbability) float64 {
	h := 0.0
	for _, s := range symbols {
		p := prob(s)
		if p > 0 {
			h -= p * math.Log2(p)
		}
	}
	return h
}

// ITFDFSimilarity scores a pattern's present region against the query's
// flattened symbols as 1 minus the cosine distance between their
// probability-weighted frequency vectors, discounted by the pattern's
// share of the candidate ensemble's total frequency (frequency/S),
// grounded on pattern_processor.py's predictPattern itfdf_similarity
// computation. Returns 0 when totalEnsembleFrequency is 0 (no ensemble
// to discount against).
func ITFDFSimilarity(present, query []string, frequency, totalEnsembleFrequency int, prob SymbolProbability) float64 {
	if totalEnsembleFrequency == 0 {
		return 0
	}

	presentCount := make(map[string]int)
	for _, s := range present {
		presentCount[s]++
	}
	queryCount := make(map[string]int)
	for _, s := range query {
		queryCount[s]++
	}

	allSymbols := make(map[string]struct{})
	for s := range presentCount {
		allSymbols[s] = struct{}{}
	}
	for s := range queryCount {
		allSymbols[s] = struct{}{}
	}

	var dot, normState, normPattern float64
	stateAllZero, patternAllZero := true, true
	for s := range allSymbols {
		p := prob(s)
		stateWeight := p * float64(queryCount[s])
		patternWeight := p * float64(presentCount[s])
		if stateWeight != 0 {
			stateAllZero = false
		}
		if patternWeight != 0 {
			patternAllZero = false
		}
		dot += stateWeight * patternWeight
		normState += stateWeight * stateWeight
		normPattern += patternWeight * patternWeight
	}

	distance := 1.0
	if !stateAllZero && !patternAllZero && normState > 0 && normPattern > 0 {
		similarity := dot / (math.Sqrt(normState) * math.Sqrt(normPattern))
		if !math.IsNaN(similarity) {
			distance = 1 - similarity
		}
	}

	return 1 - (distance * float64(frequency) / float64(totalEnsembleFrequency))
}

// Hamiltonian scores a pattern's present region against total_symbols: the
// fraction of the knowledge base's distinct symbols that the present
// region actually covers. Returns 0 when present is empty or totalSymbols
// is 0.
func Hamiltonian(present []string, totalSymbols int64) float64 {
	if len(present) == 0 || totalSymbols == 0 {
		return 0
	}
	distinct := make(map[string]struct{}, len(present))
	for _, s := range present {
		distinct[s] = struct{}{}
	}
	return float64(len(distinct)) / float64(totalSymbols)
}

// GrandHamiltonian is Hamiltonian weighted by each distinct present
// symbol's individual probability, so a present region covering common,
// high-probability symbols scores higher than one covering the same
// number of rare ones. Returns 0 when present is empty or totalSymbols is 0.
func GrandHamiltonian(present []string, prob SymbolProbability, totalSymbols int64) float64 {
	if len(present) == 0 || totalSymbols == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(present))
	sum := 0.0
	for _, s := range present {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		sum += prob(s)
	}
	return sum / float64(totalSymbols)
}

// conditionalProbability is the probability of the present region
// occurring by chance: the product of each present symbol's individual
// probability, grounded on pattern_processor.py's conditionalProbability.
func conditionalProbability(present []string, prob SymbolProbability) float64 {
	p := 1.0
	for _, s := range present {
		p *= prob(s)
	}
	return p
}

// Confluence measures how strongly the pattern's own predictive weight
// (patternProbability) and the present region's improbability-by-chance
// agree: patternProbability * (1 - conditionalProbability(present)),
// grounded on pattern_processor.py's confluence computation.
func Confluence(present []string, prob SymbolProbability, patternProbability float64) float64 {
	return patternProbability * (1 - conditionalProbability(present, prob))
}

// hashFuture computes a stable digest of a predicted future, used to group
// candidates that predict the same continuation before aggregating their
// weighted strength, grounded on predictive_information.py's hash_future.
func hashFuture(future []symbol.Event) string {
	canon := make([]symbol.Event, len(future))
	for i, e := range future {
		canon[i] = e.Canonical()
	}
	b, _ := json.Marshal(canon)
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}

// Score computes the full set of per-candidate measures that do not
// depend on the ensemble predictive-information pass (PatternProbability,
// Confluence, PredictiveInformation, and Potential are filled in
// afterward by applyEnsemblePredictiveInformation; see Rank).
func Score(c Candidate, querySymbols []string, prob SymbolProbability, totalEnsembleFrequency int, totalSymbols int64) Prediction {
	return Prediction{
		Name:             c.PatternName,
		Frequency:        c.Frequency,
		Similarity:       c.Decomp.Similarity,
		Past:             c.Decomp.Past,
		Present:          c.Decomp.Present,
		Future:           c.Decomp.Future,
		Missing:          c.Decomp.Missing,
		Extras:           c.Decomp.Extras,
		ITFDFSimilarity:  ITFDFSimilarity(c.Decomp.Present, querySymbols, c.Frequency, totalEnsembleFrequency, prob),
		Entropy:          Entropy(c.Decomp.Present, prob),
		Hamiltonian:      Hamiltonian(c.Decomp.Present, totalSymbols),
		GrandHamiltonian: GrandHamiltonian(c.Decomp.Present, prob, totalSymbols),
	}
}

// Rank scores every candidate, runs the ensemble predictive-information
// pass across the whole set, and returns predictions sorted by descending
// potential (ties broken by ascending pattern name for determinism),
// dropping any candidate whose similarity falls below recallThreshold and
// truncating to maxPredictions (0 means unlimited).
func Rank(candidates []Candidate, query []symbol.Event, prob SymbolProbability, totalSymbols int64, recallThreshold float64, maxPredictions int) []Prediction {
	filtered := candidates[:0:0]
	totalEnsembleFrequency := 0
	for _, c := range candidates {
		if c.Decomp.Similarity < recallThreshold {
			continue
		}
		filtered = append(filtered, c)
		totalEnsembleFrequency += c.Frequency
	}

	querySymbols := flattenSymbols(query)

	predictions := make([]Prediction, 0, len(filtered))
	for _, c := range filtered {
		predictions = append(predictions, Score(c, querySymbols, prob, totalEnsembleFrequency, totalSymbols))
	}

	applyEnsemblePredictiveInformation(predictions, prob)

	sort.Slice(predictions, func(i, j int) bool {
		if predictions[i].Potential != predictions[j].Potential {
			return predictions[i].Potential > predictions[j].Potential
		}
		return predictions[i].Name < predictions[j].Name
	})

	if maxPredictions > 0 && len(predictions) > maxPredictions {
		predictions = predictions[:maxPredictions]
	}
	return predictions
}

// applyEnsemblePredictiveInformation fills in PatternProbability,
// Confluence, PredictiveInformation, and Potential for every prediction in
// place, grounded on predictive_information.py's
// calculate_ensemble_predictive_information:
//
//	pattern_probability   = frequency / sum(frequency for all candidates)
//	confluence            = pattern_probability * (1 - conditionalProbability(present))
//	weighted_strength     = similarity * pattern_probability
//	group                 = hash_future(future)
//	aggregate_potential   = sum(weighted_strength in group) / sum(weighted_strength overall)
//	predictive_information = weighted_strength / aggregate_potential, or 0 if aggregate_potential is 0
//	potential             = similarity * predictive_information
func applyEnsemblePredictiveInformation(predictions []Prediction, prob SymbolProbability) {
	if len(predictions) == 0 {
		return
	}

	totalFreq := 0
	for _, p := range predictions {
		totalFreq += p.Frequency
	}

	weightedStrength := make([]float64, len(predictions))
	groupWeighted := make(map[string]float64)
	groupOf := make([]string, len(predictions))

	for i, p := range predictions {
		patternProb := 0.0
		if totalFreq > 0 {
			patternProb = float64(p.Frequency) / float64(totalFreq)
		}
		predictions[i].PatternProbability = patternProb
		predictions[i].Confluence = Confluence(p.Present, prob, patternProb)
		ws := p.Similarity * patternProb
		weightedStrength[i] = ws
		g := hashFuture(p.Future)
		groupOf[i] = g
		groupWeighted[g] += ws
	}

	totalWeighted := 0.0
	for _, ws := range weightedStrength {
		totalWeighted += ws
	}

	for i := range predictions {
		aggregatePotential := 0.0
		if totalWeighted > 0 {
			aggregatePotential = groupWeighted[groupOf[i]] / totalWeighted
		}
		predictiveInformation := 0.0
		if aggregatePotential > 0 {
			predictiveInformation = weightedStrength[i] / aggregatePotential
		}
		predictions[i].PredictiveInformation = predictiveInformation
		predictions[i].Potential = predictions[i].Similarity * predictiveInformation
	}
}

func flattenSymbols(events []symbol.Event) []string {
	var out []string
	for _, e := range events {
		out = append(out, e...)
	}
	return out
}
