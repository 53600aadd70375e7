package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/ashureev/planchat/internal/conversation"
	"github.com/ashureev/planchat/internal/domain"
	"github.com/ashureev/planchat/internal/plan"
	"github.com/ashureev/planchat/internal/suggest"
	"github.com/go-chi/chi/v5"
)

// ChatHandler serves the conversation and plan endpoints.
type ChatHandler struct {
	*Handler
	suggest *suggest.Engine
}

// NewChatHandler creates a chat handler. A nil engine uses the default
// command catalogue.
func NewChatHandler(base *Handler, engine *suggest.Engine) *ChatHandler {
	if engine == nil {
		engine = suggest.New(suggest.DefaultCatalogue)
	}
	return &ChatHandler{Handler: base, suggest: engine}
}

// RegisterRoutes registers chat routes.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/chat/command", h.Command)
		r.Get("/chat/turns", h.Turns)
		r.Post("/chat/clear", h.Clear)
		r.Get("/chat/suggest", h.Suggest)
		r.Get("/chat/schedule", h.Schedule)
		r.Get("/chat/schedules", h.Schedules)
		r.Post("/chat/schedules/load", h.LoadSchedule)
		r.Get("/plan", h.Plan)
	})
}

type outcomeResponse struct {
	Kind       conversation.OutcomeKind `json:"kind"`
	Turn       conversation.TurnView    `json:"turn"`
	PlanSynced bool                     `json:"plan_synced"`
}

func newOutcomeResponse(out conversation.Outcome) outcomeResponse {
	return outcomeResponse{
		Kind:       out.Kind,
		Turn:       conversation.View(out.Turn),
		PlanSynced: out.PlanSynced,
	}
}

// Command dispatches a command. The round-trip completes in the background
// and its turns reach the page over the stream; with ?wait=true the call
// blocks and returns the outcome instead.
func (h *ChatHandler) Command(w http.ResponseWriter, r *http.Request) {
	var req domain.CommandRequest
	if !decode(w, r, &req) {
		return
	}
	sess := h.session(r)

	if r.URL.Query().Get("wait") == "true" {
		out, err := sess.Controller.Submit(r.Context(), req.Command)
		if errors.Is(err, conversation.ErrEmptyCommand) {
			Error(w, http.StatusBadRequest, "command is required")
			return
		}
		JSON(w, http.StatusOK, newOutcomeResponse(out))
		return
	}

	if _, err := sess.Controller.Dispatch(context.WithoutCancel(r.Context()), req.Command); err != nil {
		Error(w, http.StatusBadRequest, "command is required")
		return
	}
	JSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "session_id": sess.ID})
}

type turnsResponse struct {
	SessionID string                  `json:"session_id"`
	Seq       uint64                  `json:"seq"`
	Turns     []conversation.TurnView `json:"turns"`
	Pending   []string                `json:"pending"`
}

// Turns returns the conversation log with render blocks.
func (h *ChatHandler) Turns(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)
	turns, pending, seq := sess.Log.Snapshot()
	JSON(w, http.StatusOK, turnsResponse{
		SessionID: sess.ID,
		Seq:       seq,
		Turns:     conversation.Views(turns),
		Pending:   pending,
	})
}

// Clear resets the conversation. The plan is left as it is.
func (h *ChatHandler) Clear(w http.ResponseWriter, r *http.Request) {
	turn := h.session(r).Controller.ClearConversation()
	JSON(w, http.StatusOK, map[string]any{"turn": conversation.View(turn)})
}

// Suggest returns command completions for the partial input in q.
func (h *ChatHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string][]string{"suggestions": h.suggest.Suggest(r.URL.Query().Get("q"))})
}

// Schedule appends the service's formatted schedule to the conversation.
func (h *ChatHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	turn := h.session(r).Controller.ShowSchedule(r.Context())
	JSON(w, http.StatusOK, map[string]any{"turn": conversation.View(turn)})
}

// Schedules appends the list of saved schedules to the conversation.
func (h *ChatHandler) Schedules(w http.ResponseWriter, r *http.Request) {
	turn := h.session(r).Controller.ListSchedules(r.Context())
	JSON(w, http.StatusOK, map[string]any{"turn": conversation.View(turn)})
}

// LoadSchedule loads a saved schedule and refreshes the plan.
func (h *ChatHandler) LoadSchedule(w http.ResponseWriter, r *http.Request) {
	var req domain.LoadScheduleRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := h.session(r).Controller.LoadSchedule(r.Context(), req.Filepath)
	if errors.Is(err, conversation.ErrEmptyCommand) {
		Error(w, http.StatusBadRequest, "filepath is required")
		return
	}
	JSON(w, http.StatusOK, newOutcomeResponse(out))
}

// Plan returns the sidebar summary of the current plan.
func (h *ChatHandler) Plan(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, plan.Summarize(h.session(r).Plans.Get()))
}
