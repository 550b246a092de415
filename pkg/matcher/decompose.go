package matcher

import "github.com/kato-engine/kato/pkg/symbol"

// Decomposition is the past/present/missing/extras/future breakdown of
// matching a learned pattern's event sequence against a query sequence
// (typically short-term memory), grounded on
// kato/searches/pattern_search.py's InformationExtractor.extract_prediction_info.
type Decomposition struct {
	// Past is the flattened pattern symbols strictly before the first
	// matched symbol: pattern[:i_0] over the flattened symbol sequence.
	Past []string
	// Present is the flattened pattern symbols spanned by the matched
	// region, inclusive of both endpoints: pattern[i_0 : i_last+1].
	Present []string
	// Future is the pattern's events strictly after the event containing
	// the last matched symbol. Unlike Past/Present, Future stays
	// event-based: a prediction names whole unobserved events, not a
	// partial one.
	Future []symbol.Event
	// Missing is symbols within the present region of the pattern that
	// the query did not observe.
	Missing []string
	// Extras is symbols the query observed that are not part of any
	// matched block against the pattern.
	Extras []string
	// NumBlocks is the number of actual (non-terminator) matching blocks.
	NumBlocks int
	// Similarity is the Ratcliff/Obershelp ratio between the flattened
	// pattern and query symbol sequences.
	Similarity float64
}

// Decompose matches pattern against query and returns the full
// past/present/missing/extras/future decomposition.
func Decompose(pattern, query []symbol.Event) Decomposition {
	pSyms, pEvt := flatten(pattern)
	qSyms, _ := flatten(query)

	blocks := Blocks(pSyms, qSyms)
	numBlocks := len(blocks) - 1

	matched := 0
	for _, blk := range blocks {
		matched += blk.Size
	}
	total := len(pSyms) + len(qSyms)
	similarity := 0.0
	if total > 0 {
		similarity = 2.0 * float64(matched) / float64(total)
	}

	pCovered := make([]bool, len(pSyms))
	qCovered := make([]bool, len(qSyms))
	minIdx, maxIdx := -1, -1
	for _, blk := range blocks {
		if blk.Size == 0 {
			continue
		}
		for i := blk.A; i < blk.A+blk.Size; i++ {
			pCovered[i] = true
			if minIdx == -1 || i < minIdx {
				minIdx = i
			}
			if i > maxIdx {
				maxIdx = i
			}
		}
		for j := blk.B; j < blk.B+blk.Size; j++ {
			qCovered[j] = true
		}
	}

	d := Decomposition{NumBlocks: numBlocks, Similarity: similarity}

	if numBlocks == 0 || minIdx == -1 {
		// No match at all: the whole pattern is unconfirmed future, and
		// every observed symbol is an extra.
		d.Future = append(d.Future, pattern...)
		d.Missing = flattenSymbols(pattern)
		d.Extras = flattenSymbols(query)
		return d
	}

	d.Past = append(d.Past, pSyms[:minIdx]...)
	d.Present = append(d.Present, pSyms[minIdx:maxIdx+1]...)

	maxEvt := pEvt[maxIdx]
	d.Future = append(d.Future, pattern[maxEvt+1:]...)

	for i := minIdx; i <= maxIdx; i++ {
		if !pCovered[i] {
			d.Missing = append(d.Missing, pSyms[i])
		}
	}
	for j, sym := range qSyms {
		if !qCovered[j] {
			d.Extras = append(d.Extras, sym)
		}
	}

	return d
}

func flatten(events []symbol.Event) (syms []string, eventIdx []int) {
	for i, e := range events {
		for _, s := range e {
			syms = append(syms, s)
			eventIdx = append(eventIdx, i)
		}
	}
	return syms, eventIdx
}

func flattenSymbols(events []symbol.Event) []string {
	var out []string
	for _, e := range events {
		out = append(out, e...)
	}
	return out
}
