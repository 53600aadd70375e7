// Package session keeps one conversation (log, plan store, controller) per
// browser page load.
package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ashureev/planchat/internal/conversation"
	"github.com/ashureev/planchat/internal/metrics"
	"github.com/ashureev/planchat/internal/plan"
	"github.com/ashureev/planchat/internal/transcript"
	"github.com/google/uuid"
)

// Session is the in-memory state of one page load.
type Session struct {
	ID         string
	Log        *conversation.Log
	Plans      *plan.Store
	Controller *conversation.Controller
	CreatedAt  time.Time

	lastSeen atomic.Int64
}

// Touch marks the session as active.
func (s *Session) Touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

// LastSeen returns the last activity time.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// Config holds the dependencies shared by every session.
type Config struct {
	Gateway    conversation.Gateway
	Metrics    *metrics.Recorder
	Logger     *slog.Logger
	Transcript transcript.Logger
	TTL        time.Duration
}

// EvictCallback is called after a session is evicted.
type EvictCallback func(sessionID string)

// Manager creates, looks up and evicts sessions.
type Manager struct {
	cfg Config
	now func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	onEvict  []EvictCallback
}

// NewManager creates a session manager.
func NewManager(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Transcript == nil {
		cfg.Transcript = transcript.Noop{}
	}
	return &Manager{
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// OnEvict registers a callback run after each eviction.
func (m *Manager) OnEvict(fn EvictCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEvict = append(m.onEvict, fn)
}

// Get returns an existing session and marks it active.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		sess.Touch(m.now())
	}
	return sess, ok
}

// GetOrCreate returns the session with the given id, creating it when
// missing. An empty id always creates a session with a fresh id. created
// reports whether the caller should run the initial plan load.
func (m *Manager) GetOrCreate(id string) (sess *Session, created bool) {
	if id != "" {
		if sess, ok := m.Get(id); ok {
			return sess, false
		}
	} else {
		id = uuid.NewString()
	}

	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		existing.Touch(m.now())
		return existing, false
	}
	sess = m.newSession(id)
	m.sessions[id] = sess
	n := len(m.sessions)
	m.mu.Unlock()

	m.cfg.Metrics.SessionsActive(n)
	m.cfg.Logger.Info("session created", "session_id", id)
	return sess, true
}

func (m *Manager) newSession(id string) *Session {
	log := conversation.NewLog()
	log.Subscribe(transcript.Observer(m.cfg.Transcript, id))
	plans := plan.NewStore()
	ctrl := conversation.NewController(m.cfg.Gateway, log, plans, conversation.ControllerConfig{
		Metrics: m.cfg.Metrics,
		Logger:  m.cfg.Logger.With("session_id", id),
	})
	now := m.now()
	sess := &Session{
		ID:         id,
		Log:        log,
		Plans:      plans,
		Controller: ctrl,
		CreatedAt:  now,
	}
	sess.Touch(now)
	return sess
}

// Remove deletes a session and runs the eviction callbacks.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	callbacks := append([]EvictCallback(nil), m.onEvict...)
	m.mu.Unlock()

	if !ok {
		return false
	}
	m.cfg.Metrics.SessionsActive(n)
	for _, fn := range callbacks {
		fn(id)
	}
	return true
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// IDs returns the live session ids in sorted order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Sweep evicts sessions idle for longer than the TTL. Sessions with a
// round-trip in flight are kept. It returns the number evicted.
func (m *Manager) Sweep() int {
	if m.cfg.TTL <= 0 {
		return 0
	}
	threshold := m.now().Add(-m.cfg.TTL)

	var expired []string
	m.mu.RLock()
	for id, sess := range m.sessions {
		if sess.LastSeen().Before(threshold) && len(sess.Log.Pending()) == 0 {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	if len(expired) == 0 {
		return 0
	}

	evicted := 0
	for _, id := range expired {
		if m.Remove(id) {
			evicted++
			m.cfg.Logger.Info("TTL worker evicted session", "session_id", id)
		}
	}
	return evicted
}

// StartTTLWorker runs a background goroutine that periodically sweeps for
// idle sessions until ctx is done.
func (m *Manager) StartTTLWorker(ctx context.Context, interval time.Duration) {
	if m.cfg.TTL <= 0 || interval <= 0 {
		m.cfg.Logger.Info("TTL worker disabled")
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		m.cfg.Logger.Info("TTL worker started", "interval", interval, "ttl", m.cfg.TTL)

		for {
			select {
			case <-ticker.C:
				if n := m.Sweep(); n > 0 {
					m.cfg.Logger.Info("TTL worker cleanup completed", "evicted", n, "remaining", m.Len())
				}
			case <-ctx.Done():
				m.cfg.Logger.Info("TTL worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
