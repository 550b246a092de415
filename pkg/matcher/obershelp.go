// Package matcher implements Ratcliff/Obershelp block-alignment
// similarity between a learned pattern's symbol sequence and a query
// (typically short-term memory), together with the
// past/present/missing/extras/future decomposition that the predictor
// scores against. Grounded on the matching-blocks algorithm from Python's
// difflib.SequenceMatcher, which the original implementation
// (kato/searches/pattern_search.py) used directly.
package matcher

import "sort"

// Block is a single matching run: a positions of length Size starting at
// A in the first sequence and B in the second.
type Block struct {
	A, B, Size int
}

// Blocks returns the matching blocks between a and b using the
// Ratcliff/Obershelp longest-matching-block recursion, terminated by a
// zero-length sentinel block at {len(a), len(b), 0} exactly as
// difflib.SequenceMatcher.get_matching_blocks does. This lets callers
// compute num_actual_blocks as len(Blocks(a,b))-1.
func Blocks(a, b []string) []Block {
	b2j := indexPositions(b)
	var queue [][4]int
	queue = append(queue, [4]int{0, len(a), 0, len(b)})
	var raw []Block

	for len(queue) > 0 {
		r := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		alo, ahi, blo, bhi := r[0], r[1], r[2], r[3]
		blk := longestMatch(a, b, b2j, alo, ahi, blo, bhi)
		if blk.Size > 0 {
			raw = append(raw, blk)
			if alo < blk.A && blo < blk.B {
				queue = append(queue, [4]int{alo, blk.A, blo, blk.B})
			}
			if blk.A+blk.Size < ahi && blk.B+blk.Size < bhi {
				queue = append(queue, [4]int{blk.A + blk.Size, ahi, blk.B + blk.Size, bhi})
			}
		}
	}

	sort.Slice(raw, func(i, j int) bool {
		if raw[i].A != raw[j].A {
			return raw[i].A < raw[j].A
		}
		return raw[i].B < raw[j].B
	})

	merged := mergeAdjacent(raw)
	merged = append(merged, Block{A: len(a), B: len(b), Size: 0})
	return merged
}

func indexPositions(b []string) map[string][]int {
	m := make(map[string][]int)
	for i, s := range b {
		m[s] = append(m[s], i)
	}
	return m
}

// longestMatch finds the longest matching block within a[alo:ahi] and
// b[blo:bhi], preferring the match starting earliest in a, then earliest
// in b, matching difflib's tie-breaking.
func longestMatch(a, b []string, b2j map[string][]int, alo, ahi, blo, bhi int) Block {
	best := Block{A: alo, B: blo, Size: 0}
	j2len := make(map[int]int)

	for i := alo; i < ahi; i++ {
		newJ2len := make(map[int]int)
		for _, j := range b2j[a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			newJ2len[j] = k
			if k > best.Size {
				best = Block{A: i - k + 1, B: j - k + 1, Size: k}
			}
		}
		j2len = newJ2len
	}
	return best
}

func mergeAdjacent(blocks []Block) []Block {
	if len(blocks) == 0 {
		return blocks
	}
	out := make([]Block, 0, len(blocks))
	cur := blocks[0]
	for _, blk := range blocks[1:] {
		if cur.A+cur.Size == blk.A && cur.B+cur.Size == blk.B {
			cur.Size += blk.Size
			continue
		}
		out = append(out, cur)
		cur = blk
	}
	out = append(out, cur)
	return out
}

// Ratio computes the Ratcliff/Obershelp similarity ratio 2*M/T, where M is
// the total size of matching blocks and T is the combined length of both
// sequences.
func Ratio(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	blocks := Blocks(a, b)
	matched := 0
	for _, blk := range blocks {
		matched += blk.Size
	}
	total := len(a) + len(b)
	if total == 0 {
		return 0
	}
	return 2.0 * float64(matched) / float64(total)
}
