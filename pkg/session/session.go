// Package session implements session state: a TTL sliding window per
// session id, a per-session lock for request serialization, and
// session-scoped configuration overrides. Grounded on
// kato/sessions/redis_session_manager.py's RedisSessionManager
// (default_ttl_seconds, auto_extend, a TTL-only extend primitive so
// concurrent state writes are never clobbered by an expiry refresh, and a
// per-session lock).
package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kato-engine/kato/pkg/stm"
	"github.com/kato-engine/kato/pkg/symbol"
)

// Config holds the session-scoped, dynamically settable options named in
// the engine's external interface: max_pattern_length, stm_mode,
// persistence, recall_threshold, max_predictions, indexer_type,
// sort_symbols, process_predictions.
type Config struct {
	MaxPatternLength   int
	STMMode            stm.Mode
	Persistence        int
	RecallThreshold    float64
	MaxPredictions     int
	IndexerType        string
	SortSymbols        bool
	ProcessPredictions bool
}

// Session is a single user's sliding-window state: its short-term memory
// and its effective configuration, guarded by its own lock so concurrent
// requests for the same session serialize instead of racing.
type Session struct {
	ID        string
	Config    Config
	STM       *stm.STM
	expiresAt time.Time
	ttl       time.Duration
	mu        sync.Mutex
}

// Manager tracks sessions and their TTL sliding windows.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	defaultTTL  time.Duration
	autoExtend  bool
}

// NewManager creates a session manager with the given default TTL and
// auto-extend behavior.
func NewManager(defaultTTL time.Duration, autoExtend bool) *Manager {
	return &Manager{
		sessions:   make(map[string]*Session),
		defaultTTL: defaultTTL,
		autoExtend: autoExtend,
	}
}

// Create starts a new session with a fresh id and the given configuration.
func (m *Manager) Create(cfg Config) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		Config:    cfg,
		STM:       stm.New(cfg.MaxPatternLength, cfg.STMMode),
		ttl:       m.defaultTTL,
		expiresAt: nowPlus(m.defaultTTL),
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns a session by id if it exists and has not expired, applying
// the sliding-window TTL refresh if auto-extend is enabled. The refresh
// only ever touches the expiry timestamp, never the session's state, so
// it can never race with or clobber a concurrent state write.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}

	s.mu.Lock()
	expired := time.Now().After(s.expiresAt)
	if !expired && m.autoExtend {
		s.expiresAt = nowPlus(s.ttl)
	}
	s.mu.Unlock()

	if expired {
		m.Delete(id)
		return nil, false
	}
	return s, true
}

// Extend refreshes a session's TTL without touching any other state, the
// TTL-only primitive the sliding window relies on.
func (m *Manager) Extend(id string) bool {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	s.mu.Lock()
	s.expiresAt = nowPlus(s.ttl)
	s.mu.Unlock()
	return true
}

// Delete removes a session.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Lock acquires a session's per-session lock, serializing concurrent
// requests against the same session. Callers must call the returned
// unlock function.
func (s *Session) Lock() func() {
	s.mu.Lock()
	return s.mu.Unlock
}

// Len returns the number of tracked sessions. Expired sessions are only
// reaped lazily on Get, so this is an upper bound on the live ones.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ClearAllSTM clears every tracked session's short-term memory in place,
// without deleting the sessions themselves, for clear_all's full-reset
// semantics.
func (m *Manager) ClearAllSTM() {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	for _, s := range sessions {
		unlock := s.Lock()
		s.STM.Clear()
		unlock()
	}
}

func nowPlus(d time.Duration) time.Time {
	return time.Now().Add(d)
}

// wireSession is the JSON shape a Session serializes to, so it can be
// written to a backend store with its TTL and restored later, grounded on
// RedisSessionManager's practice of persisting session state as a single
// blob alongside its own expiry.
type wireSession struct {
	ID        string         `json:"id"`
	Config    Config         `json:"config"`
	Events    []symbol.Event `json:"events"`
	ExpiresAt time.Time      `json:"expires_at"`
	TTL       time.Duration  `json:"ttl"`
}

// Marshal serializes the session to JSON for a backend store, capturing
// its configuration, short-term memory, and TTL sliding-window state.
func (s *Session) Marshal() ([]byte, error) {
	unlock := s.Lock()
	defer unlock()
	w := wireSession{
		ID:        s.ID,
		Config:    s.Config,
		Events:    s.STM.Events(),
		ExpiresAt: s.expiresAt,
		TTL:       s.ttl,
	}
	b, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("session: marshal: %w", err)
	}
	return b, nil
}

// Unmarshal restores a session previously serialized with Marshal. The
// returned session is not registered with any Manager; callers that want
// it tracked must add it themselves.
func Unmarshal(data []byte) (*Session, error) {
	var w wireSession
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("session: unmarshal: %w", err)
	}
	s := &Session{
		ID:        w.ID,
		Config:    w.Config,
		STM:       stm.New(w.Config.MaxPatternLength, w.Config.STMMode),
		expiresAt: w.ExpiresAt,
		ttl:       w.TTL,
	}
	s.STM.SetEvents(w.Events)
	return s, nil
}
