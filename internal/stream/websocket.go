package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/planchat/internal/conversation"
	"github.com/ashureev/planchat/internal/identity"
	"github.com/ashureev/planchat/internal/session"
	"github.com/ashureev/planchat/internal/suggest"
	"github.com/coder/websocket"
)

const (
	writeTimeout    = 10 * time.Second
	initialSyncWait = 5 * time.Second
)

// wsMessage is a page-to-server message.
type wsMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// Handler upgrades page connections and serves one session's stream.
type Handler struct {
	hub           *Hub
	sessions      *session.Manager
	suggest       *suggest.Engine
	allowedOrigin string
	isDev         bool
	logger        *slog.Logger
}

// NewHandler creates a WebSocket handler.
func NewHandler(hub *Hub, sessions *session.Manager, engine *suggest.Engine, allowedOrigin string, isDev bool, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if engine == nil {
		engine = suggest.New(suggest.DefaultCatalogue)
	}
	return &Handler{
		hub:           hub,
		sessions:      sessions,
		suggest:       engine,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
		logger:        logger,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromContext(r.Context())
	logger := h.logger.With("session_id", sessionID)
	logger.Info("WebSocket connection request", "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		logger.Error("Failed to accept WebSocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			logger.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	sess, created := h.sessions.GetOrCreate(sessionID)
	if created {
		syncCtx, cancel := context.WithTimeout(r.Context(), initialSyncWait)
		_ = sess.Controller.SyncPlan(syncCtx)
		cancel()
	}

	rm := h.hub.roomFor(sess)
	c := newClient()
	if !rm.join(c) {
		return
	}
	defer rm.leave(c)

	// Events emitted between join and snapshot are already in the snapshot;
	// the writer skips them by sequence number.
	snapshot, snapSeq := snapshotFrame(sess)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		defer cancel()
		h.writeLoop(ctx, ws, sess, c, snapshot, snapSeq)
	}()

	h.readLoop(ctx, ws, sess, c, logger)
	logger.Info("Chat stream ended")
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	h.logger.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *Handler) writeLoop(ctx context.Context, ws *websocket.Conn, sess *session.Session, c *client, snapshot *Frame, snapSeq uint64) {
	if err := writeJSON(ctx, ws, snapshot); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closed:
			_ = ws.Close(websocket.StatusTryAgainLater, "stream closed")
			return
		case out := <-c.send:
			frame := out.frame
			if out.planChanged {
				frame = planFrame(sess.Plans.Get())
			} else if frame.Seq != 0 && frame.Seq <= snapSeq {
				continue
			}
			if err := writeJSON(ctx, ws, frame); err != nil {
				h.logger.Debug("WebSocket write error", "session_id", sess.ID, "error", err)
				return
			}
		}
	}
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, sess *session.Session, c *client, logger *slog.Logger) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				logger.Debug("WebSocket closed")
			} else {
				logger.Warn("WebSocket read error", "error", err)
			}
			return
		}
		sess.Touch(time.Now())

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.offer(outbound{frame: &Frame{Type: FrameError, Error: "malformed message"}})
			continue
		}
		h.dispatch(sess, c, msg, logger)
	}
}

// dispatch handles one page message. Work that talks to the scheduling
// service runs off the read loop; its results reach the page as log and
// plan events.
func (h *Handler) dispatch(sess *session.Session, c *client, msg wsMessage, logger *slog.Logger) {
	ctrl := sess.Controller
	bg := context.Background()

	switch msg.Type {
	case "command":
		if _, err := ctrl.Dispatch(bg, msg.Content); err != nil {
			if errors.Is(err, conversation.ErrEmptyCommand) {
				return
			}
			c.offer(outbound{frame: &Frame{Type: FrameError, Error: err.Error()}})
		}
	case "suggest":
		c.offer(outbound{frame: &Frame{Type: FrameSuggestions, Suggestions: h.suggest.Suggest(msg.Content)}})
	case "clear":
		ctrl.ClearConversation()
	case "schedule":
		go ctrl.ShowSchedule(bg)
	case "schedules":
		go ctrl.ListSchedules(bg)
	case "load":
		go func() {
			if _, err := ctrl.LoadSchedule(bg, msg.Content); err != nil {
				c.offer(outbound{frame: &Frame{Type: FrameError, Error: err.Error()}})
			}
		}()
	case "ping":
		c.offer(outbound{frame: &Frame{Type: FramePong}})
	default:
		logger.Debug("Unknown WebSocket message", "type", msg.Type)
		c.offer(outbound{frame: &Frame{Type: FrameError, Error: "unknown message type"}})
	}
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(writeCtx, websocket.MessageText, data)
}
