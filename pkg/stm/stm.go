// Package stm implements short-term memory: a bounded, ordered sequence
// of observed events held per session, plus the auto-learn behavior that
// fires as that sequence grows. Grounded on
// kato/workers/pattern_processor.py's PatternProcessor (STM deque,
// setSTM/clear_stm/processEvents/maintain_rolling_window).
package stm

import "github.com/kato-engine/kato/pkg/symbol"

// Mode selects what happens when short-term memory reaches its configured
// maximum length.
type Mode string

const (
	ModeClear   Mode = "CLEAR"
	ModeRolling Mode = "ROLLING"
	ModeNone    Mode = "NONE"
)

// Action reports what auto-learn decided to do after an observation.
type Action int

const (
	// ActionNone means short-term memory simply grew; no auto-learn fired.
	ActionNone Action = iota
	// ActionLearnAndClear means the accumulated sequence should be learned
	// and short-term memory emptied (CLEAR mode at max length).
	ActionLearnAndClear
	// ActionRolled means the oldest event was dropped to keep short-term
	// memory at its maximum length (ROLLING mode).
	ActionRolled
)

// STM is a bounded, ordered sequence of events.
type STM struct {
	events    []symbol.Event
	maxLength int
	mode      Mode
}

// New creates short-term memory with the given maximum pattern length (0
// means unbounded) and auto-learn mode.
func New(maxLength int, mode Mode) *STM {
	return &STM{maxLength: maxLength, mode: mode}
}

// Observe appends a canonicalized event to short-term memory and applies
// the configured auto-learn mode, reporting what happened.
func (s *STM) Observe(event symbol.Event) Action {
	s.events = append(s.events, event.Canonical())

	if s.maxLength <= 0 {
		return ActionNone
	}

	switch s.mode {
	case ModeClear:
		if len(s.events) >= s.maxLength {
			return ActionLearnAndClear
		}
	case ModeRolling:
		if len(s.events) > s.maxLength {
			s.events = s.events[1:]
			return ActionRolled
		}
	}
	return ActionNone
}

// Events returns the current short-term memory sequence.
func (s *STM) Events() []symbol.Event {
	out := make([]symbol.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Len returns the number of symbols (not events) currently held, matching
// the original implementation's length convention.
func (s *STM) Len() int {
	return symbol.Length(s.events)
}

// EventCount returns the number of events currently held.
func (s *STM) EventCount() int {
	return len(s.events)
}

// Clear empties short-term memory.
func (s *STM) Clear() {
	s.events = nil
}

// SetEvents replaces short-term memory's sequence outright, without
// running auto-learn, for restoring a previously serialized session.
func (s *STM) SetEvents(events []symbol.Event) {
	out := make([]symbol.Event, len(events))
	copy(out, events)
	s.events = out
}

// CanPredict reports whether short-term memory has at least two events,
// the minimum required to generate a prediction.
func (s *STM) CanPredict() bool {
	return len(s.events) >= 2
}
