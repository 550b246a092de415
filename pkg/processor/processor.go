// Package processor implements the orchestrator that wires short-term
// memory, the knowledge base, the index layer, the pattern matcher, and
// the predictor together behind five operations: Observe, Learn,
// GetPredictions, ClearSTM, and ClearAll. Grounded on the overall shape of
// kato/workers/pattern_processor.py's PatternProcessor, which performs
// the same coordination role over the same five operations.
package processor

import (
	"context"
	"fmt"

	"github.com/kato-engine/kato/pkg/index"
	"github.com/kato-engine/kato/pkg/kb"
	"github.com/kato-engine/kato/pkg/matcher"
	"github.com/kato-engine/kato/pkg/predictor"
	"github.com/kato-engine/kato/pkg/session"
	"github.com/kato-engine/kato/pkg/stm"
	"github.com/kato-engine/kato/pkg/symbol"
)

// ErrSTMTooShort is returned by GetPredictions when short-term memory has
// fewer than two events.
var ErrSTMTooShort = fmt.Errorf("processor: short-term memory has fewer than two events")

// ErrSessionNotFound is returned when the given session id is unknown or expired.
var ErrSessionNotFound = fmt.Errorf("processor: session not found")

// Processor coordinates every subsystem behind the engine's public operations.
type Processor struct {
	KB       *kb.Store
	Index    *index.Manager
	Sessions *session.Manager
}

// New creates a Processor over the given subsystems.
func New(store *kb.Store, idx *index.Manager, sessions *session.Manager) *Processor {
	return &Processor{KB: store, Index: idx, Sessions: sessions}
}

// Observe appends event to the named session's short-term memory and
// applies its configured auto-learn mode, returning the pattern name if
// auto-learn triggered a learn.
func (p *Processor) Observe(ctx context.Context, sessionID string, event symbol.Event) (learnedPattern string, err error) {
	sess, ok := p.Sessions.Get(sessionID)
	if !ok {
		return "", ErrSessionNotFound
	}
	unlock := sess.Lock()
	defer unlock()

	action := sess.STM.Observe(event)
	switch action {
	case stm.ActionLearnAndClear:
		name, err := p.learnLocked(ctx, sess)
		if err != nil {
			return "", err
		}
		sess.STM.Clear()
		return name, nil
	default:
		return "", nil
	}
}

// Learn learns the named session's current short-term memory into the
// knowledge base and index layer, without clearing it (the caller decides
// whether to clear, matching explicit-learn semantics distinct from
// auto-learn).
func (p *Processor) Learn(ctx context.Context, sessionID string) (string, error) {
	sess, ok := p.Sessions.Get(sessionID)
	if !ok {
		return "", ErrSessionNotFound
	}
	unlock := sess.Lock()
	defer unlock()
	return p.learnLocked(ctx, sess)
}

func (p *Processor) learnLocked(ctx context.Context, sess *session.Session) (string, error) {
	events := sess.STM.Events()
	if len(events) == 0 {
		return "", fmt.Errorf("processor: learn: short-term memory is empty")
	}
	name, _, err := p.KB.Learn(ctx, events, nil)
	if err != nil {
		return "", fmt.Errorf("processor: learn: %w", err)
	}
	symbols := flatten(events)
	p.Index.AddPattern(name, symbols)
	return name, nil
}

// ClearSTM empties the named session's short-term memory without learning it.
func (p *Processor) ClearSTM(sessionID string) error {
	sess, ok := p.Sessions.Get(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	unlock := sess.Lock()
	defer unlock()
	sess.STM.Clear()
	return nil
}

// ClearAll wipes the entire knowledge base, index layer, and every
// session's short-term memory, matching clear_all_memory's full reset.
func (p *Processor) ClearAll(ctx context.Context) error {
	if err := p.KB.ClearAll(ctx); err != nil {
		return fmt.Errorf("processor: clear all: %w", err)
	}
	p.Index.Clear()
	p.Sessions.ClearAllSTM()
	return nil
}

// GetPredictions matches the named session's short-term memory against
// every candidate pattern the index layer can find, scores them, and
// returns ranked predictions. Returns ErrSTMTooShort if fewer than two
// events have been observed.
func (p *Processor) GetPredictions(ctx context.Context, sessionID string, recallThreshold float64, maxPredictions int) ([]predictor.Prediction, error) {
	sess, ok := p.Sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	unlock := sess.Lock()
	query := sess.STM.Events()
	canPredict := sess.STM.CanPredict()
	unlock()

	if !canPredict {
		return nil, ErrSTMTooShort
	}

	querySymbols := flatten(query)
	candidateIDs := p.Index.SearchCandidates(querySymbols)
	candidateIDs = p.Index.Prescreen(candidateIDs, querySymbols)

	var candidates []predictor.Candidate
	for id := range candidateIDs {
		pattern, err := p.KB.Get(ctx, id)
		if err != nil {
			continue
		}
		decomp := matcher.Decompose(pattern.Sequence, query)
		candidates = append(candidates, predictor.Candidate{
			PatternName: pattern.Name,
			Frequency:   pattern.Frequency,
			Decomp:      decomp,
		})
	}

	prob := func(sym string) float64 {
		v, _ := p.KB.SymbolProbability(ctx, sym)
		return v
	}
	totalSymbols, err := p.KB.TotalSymbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("processor: get predictions: %w", err)
	}

	return predictor.Rank(candidates, query, prob, totalSymbols, recallThreshold, maxPredictions), nil
}

func flatten(events []symbol.Event) []string {
	var out []string
	for _, e := range events {
		out = append(out, e...)
	}
	return out
}
