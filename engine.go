package kato

import (
	"context"
	"errors"
	"fmt"

	"github.com/kato-engine/kato/pkg/index"
	"github.com/kato-engine/kato/pkg/kb"
	"github.com/kato-engine/kato/pkg/predictor"
	"github.com/kato-engine/kato/pkg/processor"
	"github.com/kato-engine/kato/pkg/quantizer"
	"github.com/kato-engine/kato/pkg/session"
	"github.com/kato-engine/kato/pkg/stm"
	"github.com/kato-engine/kato/pkg/symbol"
)

// Engine is THE CORE's public entry point: it wires the knowledge base,
// index layer, vector quantizer, short-term memory, and session state
// behind Observe/Learn/GetPredictions/ClearSTM/ClearAll, following the
// teacher's "one facade type coordinates several internal subsystems"
// shape (compare core.SQLiteStore coordinating its own index and
// dimension-adapter subsystems).
type Engine struct {
	config    Config
	kb        *kb.Store
	index     *index.Manager
	quantizer *quantizer.Quantizer
	sessions  *session.Manager
	proc      *processor.Processor
	closed    bool
}

// New creates an Engine backed by a SQLite knowledge base at path.
func New(path string, vectorDim int) (*Engine, error) {
	cfg := DefaultConfig()
	cfg.Path = path
	cfg.VectorDim = vectorDim
	return NewWithConfig(cfg)
}

// NewWithConfig creates an Engine from a fully specified Config.
func NewWithConfig(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	store, err := kb.Open(context.Background(), cfg.Path, cfg.Persistence)
	if err != nil {
		if errors.Is(err, kb.ErrUnavailable) {
			return nil, wrapError("init", ErrKBUnavailable)
		}
		return nil, wrapError("init", err)
	}

	idx := index.NewManager()
	sessions := session.NewManager(cfg.DefaultSessionTTL, cfg.SessionAutoExtend)
	proc := processor.New(store, idx, sessions)

	quant := quantizer.New()
	if cfg.SimilarityFn != nil {
		quant = quantizer.NewWithDistance(cfg.SimilarityFn)
	}

	e := &Engine{
		config:    cfg,
		kb:        store,
		index:     idx,
		quantizer: quant,
		sessions:  sessions,
		proc:      proc,
	}

	if err := e.rebuildFromKB(context.Background()); err != nil {
		store.Close()
		return nil, wrapError("init", err)
	}

	cfg.Logger.Info("engine initialized", "path", cfg.Path, "stm_mode", string(cfg.STMMode))
	return e, nil
}

// rebuildFromKB re-populates the index layer and quantizer from whatever
// was already persisted, so a reopened engine behaves as if it had never
// closed.
func (e *Engine) rebuildFromKB(ctx context.Context) error {
	patterns, err := e.kb.All(ctx)
	if err != nil {
		return fmt.Errorf("rebuild: %w", err)
	}
	for _, p := range patterns {
		e.index.AddPattern(p.Name, flattenEvents(p.Sequence))
	}

	vectors, err := e.kb.AllVectors(ctx)
	if err != nil {
		if errors.Is(err, kb.ErrVectorStoreUnavailable) {
			return fmt.Errorf("rebuild: %w", ErrVectorStoreUnavailable)
		}
		return fmt.Errorf("rebuild: %w", err)
	}
	for name, vec := range vectors {
		if _, ok := e.quantizer.Vector(name); !ok {
			if _, _, err := e.quantizer.Quantize(vec); err != nil {
				e.config.Logger.Warn("failed to rebuild quantizer entry", "symbol", name, "err", err)
			}
		}
	}
	return nil
}

// CreateSession starts a new session using the engine's default
// configuration overridden by any non-zero fields in overrides.
func (e *Engine) CreateSession(overrides session.Config) (*session.Session, error) {
	if e.closed {
		return nil, wrapError("create_session", ErrEngineClosed)
	}
	cfg := e.sessionConfig(overrides)
	return e.sessions.Create(cfg), nil
}

func (e *Engine) sessionConfig(overrides session.Config) session.Config {
	cfg := session.Config{
		MaxPatternLength:   e.config.MaxPatternLength,
		STMMode:            stm.Mode(e.config.STMMode),
		Persistence:        e.config.Persistence,
		RecallThreshold:    e.config.RecallThreshold,
		MaxPredictions:     e.config.MaxPredictions,
		IndexerType:        string(e.config.IndexerType),
		SortSymbols:        e.config.SortSymbols,
		ProcessPredictions: e.config.ProcessPredictions,
	}
	if overrides.MaxPatternLength != 0 {
		cfg.MaxPatternLength = overrides.MaxPatternLength
	}
	if overrides.STMMode != "" {
		cfg.STMMode = overrides.STMMode
	}
	if overrides.Persistence != 0 {
		cfg.Persistence = overrides.Persistence
	}
	if overrides.RecallThreshold != 0 {
		cfg.RecallThreshold = overrides.RecallThreshold
	}
	if overrides.MaxPredictions != 0 {
		cfg.MaxPredictions = overrides.MaxPredictions
	}
	if overrides.IndexerType != "" {
		cfg.IndexerType = overrides.IndexerType
	}
	if overrides.SortSymbols {
		cfg.SortSymbols = true
	}
	if overrides.ProcessPredictions {
		cfg.ProcessPredictions = true
	}
	return cfg
}

// Observe appends an event (a set of symbols) to a session's short-term
// memory and returns the learned pattern's name when auto-learn fired.
// Observe takes symbols only; a raw float32 vector becomes a symbol name
// through QuantizeVector.
func (e *Engine) Observe(sessionID string, event symbol.Event) (learnedPattern string, err error) {
	if e.closed {
		return "", wrapError("observe", ErrEngineClosed)
	}
	if err := validateEvent(event); err != nil {
		return "", wrapError("observe", err)
	}
	name, err := e.proc.Observe(context.Background(), sessionID, event)
	if err != nil {
		return "", wrapError("observe", translateProcessorErr(err))
	}
	return name, nil
}

// QuantizeVector assigns a stable VCTR| symbol name to a raw vector,
// persisting it to the knowledge base so the assignment survives restarts.
func (e *Engine) QuantizeVector(vector []float32) (string, error) {
	if e.closed {
		return "", wrapError("quantize_vector", ErrEngineClosed)
	}
	name, minted, err := e.quantizer.Quantize(vector)
	if err != nil {
		return "", wrapError("quantize_vector", ErrInvalidVector)
	}
	if minted {
		if err := e.kb.PutVector(context.Background(), name, vector); err != nil {
			if errors.Is(err, kb.ErrVectorStoreUnavailable) {
				return "", wrapError("quantize_vector", ErrVectorStoreUnavailable)
			}
			return "", wrapError("quantize_vector", err)
		}
	}
	return name, nil
}

// Learn learns a session's current short-term memory into a durable
// pattern, without clearing it.
func (e *Engine) Learn(sessionID string) (patternName string, err error) {
	if e.closed {
		return "", wrapError("learn", ErrEngineClosed)
	}
	name, err := e.proc.Learn(context.Background(), sessionID)
	if err != nil {
		return "", wrapError("learn", translateProcessorErr(err))
	}
	return name, nil
}

// ClearSTM empties a session's short-term memory without learning it.
func (e *Engine) ClearSTM(sessionID string) error {
	if e.closed {
		return wrapError("clear_stm", ErrEngineClosed)
	}
	if err := e.proc.ClearSTM(sessionID); err != nil {
		return wrapError("clear_stm", translateProcessorErr(err))
	}
	return nil
}

// ClearAll wipes every learned pattern, symbol statistic, and aggregate
// total, the index layer, and every session's short-term memory. Quantized
// vector symbols, and the sessions themselves, are kept.
func (e *Engine) ClearAll() error {
	if e.closed {
		return wrapError("clear_all", ErrEngineClosed)
	}
	if err := e.proc.ClearAll(context.Background()); err != nil {
		return wrapError("clear_all", err)
	}
	return nil
}

// GetPredictions returns ranked predictions for a session's current
// short-term memory, using the engine's configured recall threshold and
// prediction cap unless the session's own configuration overrides them.
func (e *Engine) GetPredictions(sessionID string) ([]predictor.Prediction, error) {
	if e.closed {
		return nil, wrapError("get_predictions", ErrEngineClosed)
	}
	sess, ok := e.sessions.Get(sessionID)
	if !ok {
		return nil, wrapError("get_predictions", ErrNotFound)
	}
	threshold := sess.Config.RecallThreshold
	maxPred := sess.Config.MaxPredictions

	preds, err := e.proc.GetPredictions(context.Background(), sessionID, threshold, maxPred)
	if err != nil {
		switch err {
		case processor.ErrSessionNotFound:
			return nil, wrapError("get_predictions", ErrNotFound)
		case processor.ErrSTMTooShort:
			return nil, wrapError("get_predictions", ErrSTMTooShort)
		default:
			return nil, wrapError("get_predictions", fmt.Errorf("%w: %v", ErrPredictionFailed, err))
		}
	}
	return preds, nil
}

// Close closes the underlying knowledge base connection. The Engine must
// not be used afterward.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	return e.kb.Close()
}

func validateEvent(event symbol.Event) error {
	if len(event) == 0 {
		return ErrInvalidSymbol
	}
	for _, s := range event {
		if err := symbol.Validate(s); err != nil {
			return ErrInvalidSymbol
		}
	}
	return nil
}

func flattenEvents(events []symbol.Event) []string {
	var out []string
	for _, e := range events {
		out = append(out, e...)
	}
	return out
}

func translateProcessorErr(err error) error {
	switch err {
	case processor.ErrSessionNotFound:
		return ErrNotFound
	case processor.ErrSTMTooShort:
		return ErrSTMTooShort
	default:
		return err
	}
}
