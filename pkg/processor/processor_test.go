package processor

import (
	"context"
	"testing"
	"time"

	"github.com/kato-engine/kato/pkg/index"
	"github.com/kato-engine/kato/pkg/kb"
	"github.com/kato-engine/kato/pkg/session"
	"github.com/kato-engine/kato/pkg/stm"
	"github.com/kato-engine/kato/pkg/symbol"
)

func newTestProcessor(t *testing.T) (*Processor, context.Context) {
	t.Helper()
	ctx := context.Background()
	store, err := kb.Open(ctx, ":memory:", 5)
	if err != nil {
		t.Fatalf("kb.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	idx := index.NewManager()
	sessions := session.NewManager(time.Hour, true)

	return New(store, idx, sessions), ctx
}

func TestLearnThenPredict(t *testing.T) {
	p, ctx := newTestProcessor(t)
	sess := p.Sessions.Create(session.Config{STMMode: stm.ModeNone})

	for _, sym := range []string{"a", "b", "c"} {
		if _, err := p.Observe(ctx, sess.ID, symbol.Event{sym}); err != nil {
			t.Fatalf("Observe: %v", err)
		}
	}
	if _, err := p.Learn(ctx, sess.ID); err != nil {
		t.Fatalf("Learn: %v", err)
	}
	if err := p.ClearSTM(sess.ID); err != nil {
		t.Fatalf("ClearSTM: %v", err)
	}

	if _, err := p.Observe(ctx, sess.ID, symbol.Event{"a"}); err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if _, err := p.Observe(ctx, sess.ID, symbol.Event{"b"}); err != nil {
		t.Fatalf("Observe: %v", err)
	}

	preds, err := p.GetPredictions(ctx, sess.ID, 0, 0)
	if err != nil {
		t.Fatalf("GetPredictions: %v", err)
	}
	if len(preds) == 0 {
		t.Fatalf("expected at least one prediction")
	}
	found := false
	for _, pred := range preds {
		for _, e := range pred.Future {
			for _, s := range e {
				if s == "c" {
					found = true
				}
			}
		}
	}
	if !found {
		t.Errorf("expected 'c' to appear as a predicted future symbol, got %+v", preds)
	}
}

func TestGetPredictionsRequiresTwoEvents(t *testing.T) {
	p, ctx := newTestProcessor(t)
	sess := p.Sessions.Create(session.Config{STMMode: stm.ModeNone})
	p.Observe(ctx, sess.ID, symbol.Event{"a"})

	_, err := p.GetPredictions(ctx, sess.ID, 0, 0)
	if err != ErrSTMTooShort {
		t.Errorf("expected ErrSTMTooShort, got %v", err)
	}
}

func TestClearAllWipesKnowledge(t *testing.T) {
	p, ctx := newTestProcessor(t)
	sess := p.Sessions.Create(session.Config{STMMode: stm.ModeNone})
	p.Observe(ctx, sess.ID, symbol.Event{"a"})
	p.Observe(ctx, sess.ID, symbol.Event{"b"})
	name, err := p.Learn(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Learn: %v", err)
	}

	p.Observe(ctx, sess.ID, symbol.Event{"c"})

	if err := p.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if _, err := p.KB.Get(ctx, name); err == nil {
		t.Errorf("expected pattern to be gone after ClearAll")
	}
	if sess.STM.EventCount() != 0 {
		t.Errorf("expected ClearAll to also clear every session's short-term memory, got %d events", sess.STM.EventCount())
	}
}

func TestAutoLearnClearMode(t *testing.T) {
	p, ctx := newTestProcessor(t)
	sess := p.Sessions.Create(session.Config{STMMode: stm.ModeClear, MaxPatternLength: 2})

	p.Observe(ctx, sess.ID, symbol.Event{"a"})
	name, err := p.Observe(ctx, sess.ID, symbol.Event{"b"})
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if name == "" {
		t.Errorf("expected auto-learn to fire a pattern name at max length")
	}
	if sess.STM.EventCount() != 0 {
		t.Errorf("expected STM to be cleared after auto-learn, got %d events", sess.STM.EventCount())
	}
}
