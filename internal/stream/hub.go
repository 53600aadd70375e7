// Package stream pushes conversation and plan events to connected pages
// over WebSocket.
package stream

import (
	"log/slog"
	"sync"

	"github.com/ashureev/planchat/internal/conversation"
	"github.com/ashureev/planchat/internal/domain"
	"github.com/ashureev/planchat/internal/plan"
	"github.com/ashureev/planchat/internal/session"
)

// Frame types sent to the page. Log events reuse the conversation event
// kind as their type.
const (
	FrameSnapshot    = "snapshot"
	FramePlan        = "plan"
	FrameSuggestions = "suggestions"
	FramePong        = "pong"
	FrameError       = "error"
)

// Frame is one server-to-page message.
type Frame struct {
	Type        string                  `json:"type"`
	SessionID   string                  `json:"session_id,omitempty"`
	Seq         uint64                  `json:"seq,omitempty"`
	Turns       []conversation.TurnView `json:"turns,omitempty"`
	Turn        *conversation.TurnView  `json:"turn,omitempty"`
	Pending     []string                `json:"pending,omitempty"`
	PendingID   string                  `json:"pending_id,omitempty"`
	Plan        *plan.Summary           `json:"plan,omitempty"`
	Suggestions []string                `json:"suggestions,omitempty"`
	Error       string                  `json:"error,omitempty"`
}

// outbound is queued per client. A plan change carries no data: the writer
// renders the store as it is when the frame goes out, so a late frame can
// never show an older plan.
type outbound struct {
	frame       *Frame
	planChanged bool
}

const clientQueueSize = 64

type client struct {
	send   chan outbound
	once   sync.Once
	closed chan struct{}
}

func newClient() *client {
	return &client{
		send:   make(chan outbound, clientQueueSize),
		closed: make(chan struct{}),
	}
}

// offer queues out without blocking. A client that falls behind is closed
// and reconnects to a fresh snapshot.
func (c *client) offer(out outbound) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- out:
		return true
	default:
		c.close()
		return false
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.closed) })
}

// room fans the events of one session out to its clients.
type room struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	dropped bool
}

func (r *room) broadcast(out outbound) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := range r.clients {
		c.offer(out)
	}
}

func (r *room) join(c *client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dropped {
		return false
	}
	r.clients[c] = struct{}{}
	return true
}

func (r *room) leave(c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, c)
}

func (r *room) drop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped = true
	for c := range r.clients {
		c.close()
	}
	r.clients = nil
}

func (r *room) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Hub tracks one room per live session.
type Hub struct {
	mu     sync.Mutex
	rooms  map[*session.Session]*room
	byID   map[string]*session.Session
	logger *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:  make(map[*session.Session]*room),
		byID:   make(map[string]*session.Session),
		logger: logger,
	}
}

// roomFor returns the room of sess, subscribing it to the session's log and
// plan store the first time.
func (h *Hub) roomFor(sess *session.Session) *room {
	h.mu.Lock()
	defer h.mu.Unlock()

	if r, ok := h.rooms[sess]; ok {
		return r
	}
	r := &room{clients: make(map[*client]struct{})}
	h.rooms[sess] = r
	h.byID[sess.ID] = sess

	// Observers capture the room, not the id, so a recreated session with
	// the same id never receives events from its predecessor.
	sess.Log.Subscribe(func(ev conversation.Event) {
		r.broadcast(outbound{frame: eventFrame(ev)})
	})
	sess.Plans.Subscribe(func(*domain.Plan) {
		r.broadcast(outbound{planChanged: true})
	})
	return r
}

// Drop disconnects every client of a session. It is registered as the
// session manager's eviction callback.
func (h *Hub) Drop(sessionID string) {
	h.mu.Lock()
	sess, ok := h.byID[sessionID]
	var r *room
	if ok {
		r = h.rooms[sess]
		delete(h.rooms, sess)
		delete(h.byID, sessionID)
	}
	h.mu.Unlock()

	if r != nil {
		r.drop()
		h.logger.Info("stream room dropped", "session_id", sessionID)
	}
}

// Clients returns the number of connected clients of a session.
func (h *Hub) Clients(sessionID string) int {
	h.mu.Lock()
	sess, ok := h.byID[sessionID]
	r := h.rooms[sess]
	h.mu.Unlock()
	if !ok || r == nil {
		return 0
	}
	return r.size()
}

func eventFrame(ev conversation.Event) *Frame {
	f := &Frame{Type: string(ev.Kind), Seq: ev.Seq, PendingID: ev.PendingID}
	if ev.Turn != nil {
		v := conversation.View(*ev.Turn)
		f.Turn = &v
	}
	return f
}

func planFrame(p *domain.Plan) *Frame {
	summary := plan.Summarize(p)
	return &Frame{Type: FramePlan, Plan: &summary}
}

func snapshotFrame(sess *session.Session) (*Frame, uint64) {
	turns, pending, seq := sess.Log.Snapshot()
	summary := plan.Summarize(sess.Plans.Get())
	return &Frame{
		Type:      FrameSnapshot,
		SessionID: sess.ID,
		Seq:       seq,
		Turns:     conversation.Views(turns),
		Pending:   pending,
		Plan:      &summary,
	}, seq
}
