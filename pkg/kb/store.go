// Package kb implements the knowledge base: durable storage for learned
// patterns, per-symbol statistics, and aggregate totals, backed by
// SQLite. Grounded on pkg/core/store_init.go's connection setup (pure-Go
// driver, WAL journal mode, busy timeout) and on
// kato/informatics/knowledge_base.py's SuperKnowledgeBase.learnModel for
// the atomic upsert and totals-increment contract.
package kb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kato-engine/kato/internal/encoding"
	"github.com/kato-engine/kato/pkg/symbol"

	_ "modernc.org/sqlite"
)

// ErrUnavailable is wrapped into the error returned by Open when the
// backing SQLite database cannot be opened or initialized.
var ErrUnavailable = errors.New("kb: unavailable")

// ErrVectorStoreUnavailable is wrapped into the error returned by
// PutVector and AllVectors when the persisted vector table cannot be
// written to or read from.
var ErrVectorStoreUnavailable = errors.New("kb: vector store unavailable")

// Pattern is a learned pattern as stored in the knowledge base.
type Pattern struct {
	Name      string
	Sequence  []symbol.Event
	Length    int
	Frequency int
	Emotives  []map[string]float64
}

// Totals holds the knowledge base's running aggregate counters.
type Totals struct {
	TotalPatternFrequency           int64
	TotalSymbolFrequency            int64
	TotalSymbolsInPatternsFrequency int64
}

// Store is a SQLite-backed knowledge base.
type Store struct {
	mu          sync.Mutex
	db          *sql.DB
	persistence int // max emotives samples retained per pattern
}

// Open creates (or opens) a knowledge base at path, applying the same
// WAL/busy-timeout pragmas the teacher store uses for a single-writer,
// many-reader workload.
func Open(ctx context.Context, path string, persistence int) (*Store, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_cache_size=-2000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("kb: open: %w: %w", ErrUnavailable, err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)

	s := &Store{db: db, persistence: persistence}
	if err := s.createTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS patterns (
			name TEXT PRIMARY KEY,
			sequence_json TEXT NOT NULL,
			length INTEGER NOT NULL,
			frequency INTEGER NOT NULL DEFAULT 0,
			emotives_json TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE TABLE IF NOT EXISTS symbols (
			name TEXT PRIMARY KEY,
			frequency INTEGER NOT NULL DEFAULT 0,
			pattern_membership_frequency INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS totals (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			total_pattern_frequency INTEGER NOT NULL DEFAULT 0,
			total_symbol_frequency INTEGER NOT NULL DEFAULT 0,
			total_symbols_in_patterns_frequency INTEGER NOT NULL DEFAULT 0
		)`,
		`INSERT OR IGNORE INTO totals (id) VALUES (1)`,
		`CREATE TABLE IF NOT EXISTS vectors (
			name TEXT PRIMARY KEY,
			vector_blob BLOB NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("kb: create tables: %w: %w", ErrUnavailable, err)
		}
	}
	return nil
}

// Learn atomically upserts a pattern built from sequence: a new pattern is
// inserted with frequency 1, an existing one has its frequency
// incremented and the new emotives sample appended (trailing window of at
// most persistence samples). Every unique symbol in sequence has its
// frequency incremented by its occurrence count in this pattern and its
// pattern-membership frequency incremented by one, and the knowledge
// base's aggregate totals are updated to match, exactly mirroring
// SuperKnowledgeBase.learnModel's semantics.
func (s *Store) Learn(ctx context.Context, sequence []symbol.Event, emotives map[string]float64) (name string, frequency int, err error) {
	name = symbol.PatternName(sequence)
	length := symbol.Length(sequence)

	symbolCounts := make(map[string]int)
	for _, e := range sequence {
		for _, sym := range e {
			symbolCounts[sym]++
		}
	}
	var totalSymbolOccurrences int64
	for _, c := range symbolCounts {
		totalSymbolOccurrences += int64(c)
	}
	distinctSymbols := int64(len(symbolCounts))

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, fmt.Errorf("kb: learn: begin: %w", err)
	}
	defer tx.Rollback()

	seqJSON, err := json.Marshal(sequence)
	if err != nil {
		return "", 0, fmt.Errorf("kb: learn: marshal sequence: %w", err)
	}

	var existingEmotives string
	err = tx.QueryRowContext(ctx, `SELECT emotives_json FROM patterns WHERE name = ?`, name).Scan(&existingEmotives)
	switch {
	case err == sql.ErrNoRows:
		emotivesList := []map[string]float64{}
		if emotives != nil {
			emotivesList = append(emotivesList, emotives)
		}
		emJSON, _ := json.Marshal(emotivesList)
		_, err = tx.ExecContext(ctx, `INSERT INTO patterns (name, sequence_json, length, frequency, emotives_json) VALUES (?, ?, ?, 1, ?)`,
			name, string(seqJSON), length, string(emJSON))
		if err != nil {
			return "", 0, fmt.Errorf("kb: learn: insert pattern: %w", err)
		}
		frequency = 1
	case err != nil:
		return "", 0, fmt.Errorf("kb: learn: lookup pattern: %w", err)
	default:
		var list []map[string]float64
		_ = json.Unmarshal([]byte(existingEmotives), &list)
		if emotives != nil {
			list = append(list, emotives)
		}
		if s.persistence > 0 && len(list) > s.persistence {
			list = list[len(list)-s.persistence:]
		}
		emJSON, _ := json.Marshal(list)
		res, err := tx.ExecContext(ctx, `UPDATE patterns SET frequency = frequency + 1, emotives_json = ? WHERE name = ?`, string(emJSON), name)
		if err != nil {
			return "", 0, fmt.Errorf("kb: learn: update pattern: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return "", 0, fmt.Errorf("kb: learn: pattern %q vanished mid-transaction", name)
		}
		if err := tx.QueryRowContext(ctx, `SELECT frequency FROM patterns WHERE name = ?`, name).Scan(&frequency); err != nil {
			return "", 0, fmt.Errorf("kb: learn: reread frequency: %w", err)
		}
	}

	for sym, count := range symbolCounts {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO symbols (name, frequency, pattern_membership_frequency) VALUES (?, ?, 1)
			ON CONFLICT(name) DO UPDATE SET
				frequency = frequency + excluded.frequency,
				pattern_membership_frequency = pattern_membership_frequency + 1
		`, sym, count)
		if err != nil {
			return "", 0, fmt.Errorf("kb: learn: upsert symbol %q: %w", sym, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE totals SET
			total_pattern_frequency = total_pattern_frequency + 1,
			total_symbol_frequency = total_symbol_frequency + ?,
			total_symbols_in_patterns_frequency = total_symbols_in_patterns_frequency + ?
		WHERE id = 1
	`, totalSymbolOccurrences, distinctSymbols)
	if err != nil {
		return "", 0, fmt.Errorf("kb: learn: update totals: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", 0, fmt.Errorf("kb: learn: commit: %w", err)
	}
	return name, frequency, nil
}

// Get returns a pattern by name.
func (s *Store) Get(ctx context.Context, name string) (*Pattern, error) {
	row := s.db.QueryRowContext(ctx, `SELECT name, sequence_json, length, frequency, emotives_json FROM patterns WHERE name = ?`, name)
	var p Pattern
	var seqJSON, emJSON string
	if err := row.Scan(&p.Name, &seqJSON, &p.Length, &p.Frequency, &emJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("kb: get: %w", err)
	}
	if err := json.Unmarshal([]byte(seqJSON), &p.Sequence); err != nil {
		return nil, fmt.Errorf("kb: get: unmarshal sequence: %w", err)
	}
	_ = json.Unmarshal([]byte(emJSON), &p.Emotives)
	return &p, nil
}

// Delete removes a pattern. It does not touch symbol statistics or
// totals: those are historical aggregates, not a live index of what
// currently exists, matching the original implementation's treatment of
// deletion as distinct from unlearning.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM patterns WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("kb: delete: %w", err)
	}
	return nil
}

// ClearAll wipes every pattern, symbol statistic, and aggregate total,
// matching PatternProcessor.clear_all_memory's full-reset semantics.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stmts := []string{
		`DELETE FROM patterns`,
		`DELETE FROM symbols`,
		`UPDATE totals SET total_pattern_frequency = 0, total_symbol_frequency = 0, total_symbols_in_patterns_frequency = 0 WHERE id = 1`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("kb: clear all: %w", err)
		}
	}
	return nil
}

// All returns every pattern's name and flattened symbol sequence, used to
// rebuild the index layer on startup.
func (s *Store) All(ctx context.Context) ([]Pattern, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, sequence_json, length, frequency, emotives_json FROM patterns`)
	if err != nil {
		return nil, fmt.Errorf("kb: all: %w", err)
	}
	defer rows.Close()

	var out []Pattern
	for rows.Next() {
		var p Pattern
		var seqJSON, emJSON string
		if err := rows.Scan(&p.Name, &seqJSON, &p.Length, &p.Frequency, &emJSON); err != nil {
			return nil, fmt.Errorf("kb: all: scan: %w", err)
		}
		_ = json.Unmarshal([]byte(seqJSON), &p.Sequence)
		_ = json.Unmarshal([]byte(emJSON), &p.Emotives)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, rows.Err()
}

// SymbolFrequency returns a symbol's total occurrence frequency across
// every learned pattern.
func (s *Store) SymbolFrequency(ctx context.Context, sym string) (int64, error) {
	var freq int64
	err := s.db.QueryRowContext(ctx, `SELECT frequency FROM symbols WHERE name = ?`, sym).Scan(&freq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("kb: symbol frequency: %w", err)
	}
	return freq, nil
}

// Totals returns the knowledge base's running aggregate counters.
func (s *Store) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	err := s.db.QueryRowContext(ctx, `SELECT total_pattern_frequency, total_symbol_frequency, total_symbols_in_patterns_frequency FROM totals WHERE id = 1`).
		Scan(&t.TotalPatternFrequency, &t.TotalSymbolFrequency, &t.TotalSymbolsInPatternsFrequency)
	if err != nil {
		return Totals{}, fmt.Errorf("kb: totals: %w", err)
	}
	return t, nil
}

// SymbolProbability returns a symbol's empirical probability of pattern
// membership: pattern_membership_frequency / total_symbols_in_patterns_frequency,
// or 0 if either is unavailable.
func (s *Store) SymbolProbability(ctx context.Context, sym string) (float64, error) {
	var freq int64
	err := s.db.QueryRowContext(ctx, `SELECT pattern_membership_frequency FROM symbols WHERE name = ?`, sym).Scan(&freq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("kb: symbol probability: %w", err)
	}
	totals, err := s.Totals(ctx)
	if err != nil {
		return 0, err
	}
	if totals.TotalSymbolsInPatternsFrequency == 0 {
		return 0, nil
	}
	return float64(freq) / float64(totals.TotalSymbolsInPatternsFrequency), nil
}

// TotalSymbols returns the count of distinct symbols recorded in the
// knowledge base, used as total_symbols by the predictor's hamiltonian
// and grand_hamiltonian measures.
func (s *Store) TotalSymbols(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM symbols`).Scan(&n); err != nil {
		return 0, fmt.Errorf("kb: total symbols: %w", err)
	}
	return n, nil
}

// PutVector persists a quantized vector under its symbol name, so the
// vector quantizer's in-memory ANN index can be rebuilt after a restart.
func (s *Store) PutVector(ctx context.Context, name string, vector []float32) error {
	blob, err := encoding.EncodeVector(vector)
	if err != nil {
		return fmt.Errorf("kb: put vector: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO vectors (name, vector_blob) VALUES (?, ?)`, name, blob)
	if err != nil {
		return fmt.Errorf("kb: put vector: %w: %w", ErrVectorStoreUnavailable, err)
	}
	return nil
}

// AllVectors returns every persisted vector symbol and its raw components,
// used to rebuild the quantizer's ANN index on startup.
func (s *Store) AllVectors(ctx context.Context) (map[string][]float32, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, vector_blob FROM vectors`)
	if err != nil {
		return nil, fmt.Errorf("kb: all vectors: %w: %w", ErrVectorStoreUnavailable, err)
	}
	defer rows.Close()

	out := make(map[string][]float32)
	for rows.Next() {
		var name string
		var blob []byte
		if err := rows.Scan(&name, &blob); err != nil {
			return nil, fmt.Errorf("kb: all vectors: scan: %w", err)
		}
		vec, err := encoding.DecodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("kb: all vectors: decode %q: %w", name, err)
		}
		out[name] = vec
	}
	return out, rows.Err()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
