package stm

import (
	"testing"

	"github.com/kato-engine/kato/pkg/symbol"
)

func TestObserveGrowsUntilMax(t *testing.T) {
	s := New(3, ModeClear)
	for i := 0; i < 2; i++ {
		if a := s.Observe(symbol.Event{"x"}); a != ActionNone {
			t.Errorf("expected ActionNone, got %v", a)
		}
	}
	if a := s.Observe(symbol.Event{"x"}); a != ActionLearnAndClear {
		t.Errorf("expected ActionLearnAndClear at max length, got %v", a)
	}
}

func TestRollingModeDropsOldest(t *testing.T) {
	s := New(2, ModeRolling)
	s.Observe(symbol.Event{"a"})
	s.Observe(symbol.Event{"b"})
	action := s.Observe(symbol.Event{"c"})
	if action != ActionRolled {
		t.Errorf("expected ActionRolled, got %v", action)
	}
	events := s.Events()
	if len(events) != 2 || events[0][0] != "b" || events[1][0] != "c" {
		t.Errorf("expected rolling window [b c], got %v", events)
	}
}

func TestCanPredictRequiresTwoEvents(t *testing.T) {
	s := New(0, ModeNone)
	if s.CanPredict() {
		t.Errorf("empty STM should not be able to predict")
	}
	s.Observe(symbol.Event{"a"})
	if s.CanPredict() {
		t.Errorf("single-event STM should not be able to predict")
	}
	s.Observe(symbol.Event{"b"})
	if !s.CanPredict() {
		t.Errorf("two-event STM should be able to predict")
	}
}
