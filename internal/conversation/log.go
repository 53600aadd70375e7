// Package conversation implements the chat log and the controller that
// drives one command round-trip against the scheduling service.
package conversation

import (
	"sync"
	"time"

	"github.com/ashureev/planchat/internal/domain"
	"github.com/google/uuid"
)

const (
	// WelcomeMessage seeds a new log.
	WelcomeMessage = "👋 Hi! I'm your study scheduling assistant. Add subjects, set availability, then generate a schedule."
	// ClearedMessage seeds the log after an explicit clear.
	ClearedMessage = "👋 Chat cleared! Ready for new commands."
)

// EventKind identifies a log state transition.
type EventKind string

const (
	EventTurnAppended   EventKind = "turn_appended"
	EventPendingShown   EventKind = "pending_shown"
	EventPendingRemoved EventKind = "pending_removed"
	EventCleared        EventKind = "cleared"
)

// Event is delivered to observers after each transition. TurnAppended
// tells the renderer to show Turn and scroll to the end. Cleared carries the
// seed turn that replaced the whole log.
type Event struct {
	Kind      EventKind    `json:"kind"`
	Seq       uint64       `json:"seq"`
	Turn      *domain.Turn `json:"turn,omitempty"`
	PendingID string       `json:"pending_id,omitempty"`
}

// Observer receives log events. Observers are called serially in mutation
// order while the log is locked: they must not block or call back into the
// log.
type Observer func(Event)

// Log is the ordered, append-only record of rendered turns plus the set of
// pending indicators for round-trips in flight.
type Log struct {
	mu        sync.Mutex
	turns     []domain.Turn
	pending   []string
	seq       uint64
	observers []Observer
	now       func() time.Time
}

// NewLog creates a log seeded with the welcome greeting.
func NewLog() *Log {
	l := &Log{now: time.Now}
	l.turns = []domain.Turn{l.stamp(BotTurn(WelcomeMessage))}
	return l
}

// UserTurn builds a user-authored turn.
func UserTurn(content string) domain.Turn {
	return domain.Turn{Content: content, Role: domain.RoleUser}
}

// BotTurn builds a bot-authored turn.
func BotTurn(content string) domain.Turn {
	return domain.Turn{Content: content, Role: domain.RoleBot}
}

// FormattedTurn builds a bot turn rendered as one preformatted block.
func FormattedTurn(content string) domain.Turn {
	return domain.Turn{Content: content, Role: domain.RoleBot, Formatted: true}
}

// Subscribe registers an observer.
func (l *Log) Subscribe(obs Observer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, obs)
}

// Append records t, assigning an ID and timestamp when missing, and returns
// the stored turn. It never fails.
func (l *Log) Append(t domain.Turn) domain.Turn {
	l.mu.Lock()
	defer l.mu.Unlock()

	t = l.stamp(t)
	l.turns = append(l.turns, t)
	stored := t
	l.emit(Event{Kind: EventTurnAppended, Turn: &stored})
	return t
}

// Clear drops every turn and re-seeds a single greeting. Pending indicators
// belong to round-trips still in flight and survive the clear.
func (l *Log) Clear() domain.Turn {
	l.mu.Lock()
	defer l.mu.Unlock()

	seed := l.stamp(BotTurn(ClearedMessage))
	l.turns = []domain.Turn{seed}
	stored := seed
	l.emit(Event{Kind: EventCleared, Turn: &stored})
	return seed
}

// All returns a snapshot of the turns in order.
func (l *Log) All() []domain.Turn {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Len returns the number of turns.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.turns)
}

// ShowPending adds a pending indicator and returns its unique ID.
func (l *Log) ShowPending() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := uuid.NewString()
	l.pending = append(l.pending, id)
	l.emit(Event{Kind: EventPendingShown, PendingID: id})
	return id
}

// RemovePending removes the indicator with the given ID and reports whether
// it was present. Other indicators are left alone.
func (l *Log) RemovePending(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, p := range l.pending {
		if p != id {
			continue
		}
		l.pending = append(l.pending[:i], l.pending[i+1:]...)
		l.emit(Event{Kind: EventPendingRemoved, PendingID: id})
		return true
	}
	return false
}

// Pending returns the IDs of the indicators currently shown, oldest first.
func (l *Log) Pending() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.pending...)
}

// Snapshot returns turns and pending IDs taken under one lock, with the
// sequence number of the last event included in it.
func (l *Log) Snapshot() (turns []domain.Turn, pending []string, seq uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	turns = make([]domain.Turn, len(l.turns))
	copy(turns, l.turns)
	return turns, append([]string{}, l.pending...), l.seq
}

func (l *Log) stamp(t domain.Turn) domain.Turn {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = l.now()
	}
	return t
}

// emit must be called with l.mu held.
func (l *Log) emit(ev Event) {
	l.seq++
	ev.Seq = l.seq
	for _, obs := range l.observers {
		obs(ev)
	}
}
