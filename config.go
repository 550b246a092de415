package kato

import "time"

// STMMode controls what happens to short-term memory as new events arrive.
type STMMode string

const (
	// STMModeClear learns the accumulated STM into a pattern and clears it
	// once the configured max length is reached.
	STMModeClear STMMode = "CLEAR"
	// STMModeRolling drops the oldest event once max length is exceeded,
	// keeping a sliding window instead of clearing.
	STMModeRolling STMMode = "ROLLING"
	// STMModeNone disables auto-learn entirely; STM grows until cleared
	// explicitly or learned explicitly.
	STMModeNone STMMode = "NONE"
)

// IndexerType names an index layer for candidate search. It is carried
// into each session's configuration; candidate search does not consult it.
type IndexerType string

const (
	IndexerVI   IndexerType = "VI"
	IndexerNone IndexerType = "none"
)

// Config configures an Engine.
type Config struct {
	// Path is the SQLite DSN for the knowledge base. Use ":memory:" for a
	// purely in-memory engine.
	Path string

	// VectorDim is the dimensionality of vectors passed to the quantizer.
	// It is validated as non-negative but not passed to the quantizer,
	// which always takes its dimension from the first vector it quantizes.
	VectorDim int

	// MaxPatternLength bounds short-term memory length before auto-learn
	// triggers, per STMMode.
	MaxPatternLength int

	// STMMode selects the auto-learn behavior.
	STMMode STMMode

	// Persistence is the maximum number of emotives samples retained per
	// pattern (a trailing window, oldest dropped first).
	Persistence int

	// RecallThreshold is the minimum pattern-matcher similarity a
	// candidate must reach to be returned as a prediction.
	RecallThreshold float64

	// MaxPredictions caps the number of predictions returned per query;
	// zero means unlimited.
	MaxPredictions int

	// IndexerType is copied into each session's configuration. Candidate
	// search always uses the inverted, length-partitioned, and bloom
	// sub-indices, whatever its value.
	IndexerType IndexerType

	// SortSymbols is copied into each session's configuration. Short-term
	// memory sorts and de-duplicates the symbols of every event whatever
	// its value.
	SortSymbols bool

	// ProcessPredictions is copied into each session's configuration.
	// GetPredictions runs the full scoring pass, including ensemble
	// predictive information, whatever its value.
	ProcessPredictions bool

	// DefaultSessionTTL is the sliding-window TTL applied to new sessions.
	DefaultSessionTTL time.Duration

	// SessionAutoExtend refreshes a session's TTL on every access when true.
	SessionAutoExtend bool

	// Logger receives structured log output. Defaults to a no-op logger.
	Logger Logger

	// SimilarityFn overrides the vector distance function used by the
	// quantizer. Defaults to cosine distance.
	SimilarityFn func(a, b []float32) float32
}

// DefaultConfig returns a Config with the engine's standard defaults.
func DefaultConfig() Config {
	return Config{
		Path:               ":memory:",
		VectorDim:          0,
		MaxPatternLength:   0,
		STMMode:            STMModeClear,
		Persistence:        5,
		RecallThreshold:    0.1,
		MaxPredictions:     100,
		IndexerType:        IndexerVI,
		SortSymbols:        true,
		ProcessPredictions: true,
		DefaultSessionTTL:  3600 * time.Second,
		SessionAutoExtend:  true,
		Logger:             nopLogger{},
	}
}

func (c *Config) validate() error {
	if c.Path == "" {
		return wrapError("config", errNonEmpty("Path"))
	}
	if c.VectorDim < 0 {
		return wrapError("config", errNonNegative("VectorDim"))
	}
	if c.MaxPatternLength < 0 {
		return wrapError("config", errNonNegative("MaxPatternLength"))
	}
	if c.Persistence < 0 {
		return wrapError("config", errNonNegative("Persistence"))
	}
	switch c.STMMode {
	case STMModeClear, STMModeRolling, STMModeNone:
	default:
		return wrapError("config", errInvalidField("STMMode", string(c.STMMode)))
	}
	if c.Logger == nil {
		c.Logger = nopLogger{}
	}
	return nil
}

func errNonEmpty(field string) error    { return &fieldError{field, "must not be empty"} }
func errNonNegative(field string) error { return &fieldError{field, "must be non-negative"} }
func errInvalidField(field, val string) error {
	return &fieldError{field, "has invalid value " + val}
}

type fieldError struct {
	field, reason string
}

func (e *fieldError) Error() string { return e.field + " " + e.reason }

func (e *fieldError) Is(target error) bool { return target == ErrInvalidConfig }
