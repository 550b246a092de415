// Package kato implements THE CORE: a pattern-learning and prediction
// engine over sequences of observed symbols.
//
// An Engine observes events (sets of symbols occurring together), holds
// them in a bounded short-term memory per session, learns them into
// durable patterns on demand or automatically, and predicts future events
// by matching the current short-term memory against previously learned
// patterns.
//
// # Key Components
//
//   - Engine: the main entry point, coordinating the knowledge base, the
//     index layer, the pattern matcher, the predictor, short-term memory,
//     and session state behind a single facade.
//   - Knowledge Base: durable storage for learned patterns, per-symbol
//     statistics, and aggregate totals, backed by SQLite.
//   - Index Layer: inverted, length-partitioned, and bloom sub-indices used
//     to narrow the candidate set before full matching, plus an n-gram
//     sub-index kept in step with them.
//   - Pattern Matcher: Ratcliff/Obershelp block-alignment similarity and
//     past/present/missing/extras/future decomposition.
//   - Predictor: ensemble predictive information scoring over matched
//     candidates, producing ranked predictions.
//
// # Observability
//
// The engine supports pluggable structured logging through the Logger
// interface.
package kato
