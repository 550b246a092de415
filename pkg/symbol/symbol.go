// Package symbol implements the symbol and vector naming conventions used
// throughout the engine: validation of opaque symbol strings, canonical
// event representation, and content-addressed names for quantized vectors
// and learned patterns.
package symbol

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Reserved prefixes, used by the names of quantized vectors and learned
// patterns. Validate accepts a symbol with one of these prefixes only when
// a well-formed 40-character hex hash follows it; it does not check which
// subsystem minted the symbol.
const (
	VectorPrefix  = "VCTR|"
	PatternPrefix = "PTRN|"
)

// ErrInvalidSymbol is returned when a symbol is empty or uses a reserved
// prefix without the matching well-formed hash suffix.
var ErrInvalidSymbol = errors.New("symbol: invalid symbol")

// Event is a set of symbols observed together. Canonical() returns the
// event with its symbols sorted and de-duplicated.
type Event []string

// Canonical returns a new Event with symbols sorted and de-duplicated.
func (e Event) Canonical() Event {
	seen := make(map[string]struct{}, len(e))
	out := make(Event, 0, len(e))
	for _, s := range e {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Validate checks that s is a non-empty string and, if it uses a reserved
// prefix, that the suffix is a well-formed 40-character hex hash.
func Validate(s string) error {
	if s == "" {
		return ErrInvalidSymbol
	}
	if len(s) >= len(VectorPrefix) && s[:len(VectorPrefix)] == VectorPrefix {
		return validateHashSuffix(s[len(VectorPrefix):])
	}
	if len(s) >= len(PatternPrefix) && s[:len(PatternPrefix)] == PatternPrefix {
		return validateHashSuffix(s[len(PatternPrefix):])
	}
	return nil
}

func validateHashSuffix(suffix string) error {
	if len(suffix) != 40 {
		return ErrInvalidSymbol
	}
	for _, r := range suffix {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')) {
			return ErrInvalidSymbol
		}
	}
	return nil
}

// VectorName computes the content-addressed symbol name for a vector:
// VCTR| followed by the 40-character hex SHA1 of the vector's canonical
// JSON representation.
func VectorName(vector []float32) string {
	return VectorPrefix + hashJSON(vector)
}

// PatternName computes the content-addressed symbol name for a pattern:
// PTRN| followed by the 40-character hex SHA1 of the sequence's canonical
// JSON representation. Each event is assumed already canonicalized by the
// caller via Event.Canonical; PatternName does not re-sort events, since
// order across events is temporally significant while order within an
// event is not.
func PatternName(sequence []Event) string {
	return PatternPrefix + hashJSON(sequence)
}

// hashJSON produces a stable hex-encoded SHA1 digest of v's canonical JSON
// encoding. encoding/json sorts map keys but preserves slice order, which
// is exactly the determinism this needs: event-internal symbol order must
// already be canonical (the caller's job), and event-to-event order must
// be preserved (temporal sequence).
func hashJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// v is always a []float32 or []Event here, which always marshal.
		panic(fmt.Sprintf("symbol: unexpected marshal failure: %v", err))
	}
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}

// Length returns the total number of symbols across all events in a
// sequence, matching the original implementation's pattern-length
// convention (sum of per-event symbol counts, not event count).
func Length(sequence []Event) int {
	n := 0
	for _, e := range sequence {
		n += len(e)
	}
	return n
}
