package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/planchat/internal/domain"
	"github.com/ashureev/planchat/internal/gateway"
	"github.com/ashureev/planchat/internal/metrics"
	"github.com/ashureev/planchat/internal/plan"
)

// ErrEmptyCommand is returned for input that is empty after trimming.
var ErrEmptyCommand = errors.New("command is empty")

// Gateway is the subset of the scheduling service client the controller
// drives.
type Gateway interface {
	Send(ctx context.Context, command string) (*domain.CommandResult, error)
	FetchPlan(ctx context.Context) (*domain.Plan, error)
	FetchScheduleText(ctx context.Context) (string, error)
	ListSchedules(ctx context.Context) ([]domain.ScheduleFile, error)
	LoadSchedule(ctx context.Context, path string) (*domain.LoadResult, error)
}

// Ensure the HTTP client satisfies Gateway.
var _ Gateway = (*gateway.Client)(nil)

// OutcomeKind is the terminal state of a round-trip.
type OutcomeKind string

const (
	OutcomeSuccess            OutcomeKind = "success"
	OutcomeApplicationFailure OutcomeKind = "application_failure"
	OutcomeTransportFailure   OutcomeKind = "transport_failure"
)

// Outcome reports how a round-trip ended.
type Outcome struct {
	Kind OutcomeKind
	// Turn is the terminal bot turn appended to the log.
	Turn domain.Turn
	// Err is the primary command error; nil on success.
	Err error
	// PlanSynced is false when the follow-up plan re-fetch failed.
	PlanSynced bool
}

// PlanSyncError wraps a failed plan re-fetch. It is logged and counted but
// never shown in the conversation.
type PlanSyncError struct {
	Err error
}

func (e *PlanSyncError) Error() string { return "plan sync: " + e.Err.Error() }

func (e *PlanSyncError) Unwrap() error { return e.Err }

// ControllerConfig holds optional controller dependencies.
type ControllerConfig struct {
	Metrics *metrics.Recorder
	Logger  *slog.Logger
}

// Controller runs command round-trips: it records the user turn, shows a
// pending indicator, calls the gateway, reconciles the plan store and
// appends the terminal bot turn. Round-trips may overlap; each owns its own
// indicator.
type Controller struct {
	gw      Gateway
	log     *Log
	plans   *plan.Store
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// NewController wires a controller to its log and plan store.
func NewController(gw Gateway, log *Log, plans *plan.Store, cfg ControllerConfig) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		gw:      gw,
		log:     log,
		plans:   plans,
		metrics: cfg.Metrics,
		logger:  logger,
	}
}

// Log returns the conversation log the controller writes to.
func (c *Controller) Log() *Log { return c.log }

// Plans returns the plan store the controller reconciles.
func (c *Controller) Plans() *plan.Store { return c.plans }

type roundTrip struct {
	command   string
	pendingID string
	started   time.Time
}

// Submit runs one round-trip to completion.
func (c *Controller) Submit(ctx context.Context, text string) (Outcome, error) {
	rt, err := c.begin(text)
	if err != nil {
		return Outcome{}, err
	}
	return c.finish(ctx, rt), nil
}

// Dispatch records the user turn and pending indicator before returning,
// then finishes the round-trip on its own goroutine. The channel yields the
// outcome once.
func (c *Controller) Dispatch(ctx context.Context, text string) (<-chan Outcome, error) {
	rt, err := c.begin(text)
	if err != nil {
		return nil, err
	}
	done := make(chan Outcome, 1)
	go func() {
		defer close(done)
		done <- c.finish(ctx, rt)
	}()
	return done, nil
}

func (c *Controller) begin(text string) (*roundTrip, error) {
	command := strings.TrimSpace(text)
	if command == "" {
		return nil, ErrEmptyCommand
	}

	c.log.Append(UserTurn(command))
	id := c.log.ShowPending()
	c.metrics.PendingShown()

	return &roundTrip{command: command, pendingID: id, started: time.Now()}, nil
}

// finish drives a started round-trip to its terminal state. The caller's
// cancellation does not abort it: once submitted, a command always ends in
// a rendered turn and a plan re-fetch attempt.
func (c *Controller) finish(ctx context.Context, rt *roundTrip) Outcome {
	ctx = context.WithoutCancel(ctx)
	logger := c.logger.With("pending_id", rt.pendingID)

	res, err := c.gw.Send(ctx, rt.command)

	var (
		out     Outcome
		content string
		cleared bool
		appErr  *gateway.ApplicationError
	)
	switch {
	case err == nil && res != nil:
		out.Kind = OutcomeSuccess
		content = ComposeSuccess(res)
		cleared = IsClearedMessage(res.Message)
	case errors.As(err, &appErr):
		out.Kind = OutcomeApplicationFailure
		out.Err = err
		content = ComposeApplicationFailure(appErr.Message)
	default:
		if err == nil {
			err = &gateway.TransportError{Op: "send_command", Err: errors.New("empty result")}
		}
		out.Kind = OutcomeTransportFailure
		out.Err = err
		content = ComposeTransportFailure(transportReason(err))
	}

	// The indicator goes away exactly once and before the terminal turn.
	if c.log.RemovePending(rt.pendingID) {
		c.metrics.PendingRemoved()
	} else {
		logger.Warn("pending indicator already removed")
	}

	if cleared {
		c.plans.Clear()
	}
	out.Turn = c.log.Append(BotTurn(content))

	// The re-fetch runs after every command, cleared included.
	out.PlanSynced = c.SyncPlan(ctx) == nil

	c.metrics.RoundTrip(string(out.Kind))
	logger.Info("round-trip finished",
		"outcome", out.Kind,
		"plan_synced", out.PlanSynced,
		"duration", time.Since(rt.started),
	)
	return out
}

// SyncPlan re-fetches the plan and replaces the store with whatever the
// service returns. On failure the store is left unchanged and a
// *PlanSyncError is returned for logging only.
func (c *Controller) SyncPlan(ctx context.Context) error {
	p, err := c.gw.FetchPlan(ctx)
	if err != nil {
		c.metrics.PlanSyncFailed()
		c.logger.Warn("failed to fetch plan", "error", err)
		return &PlanSyncError{Err: err}
	}
	c.plans.Replace(p)
	return nil
}

// ShowSchedule appends the service's preformatted schedule as a formatted
// turn, or an error turn when it cannot be fetched.
func (c *Controller) ShowSchedule(ctx context.Context) domain.Turn {
	text, err := c.gw.FetchScheduleText(ctx)
	if err != nil {
		return c.log.Append(BotTurn(ComposeScheduleFailure(transportReason(err))))
	}
	return c.log.Append(FormattedTurn(text))
}

// ListSchedules appends a turn listing the schedules saved by the service.
func (c *Controller) ListSchedules(ctx context.Context) domain.Turn {
	files, err := c.gw.ListSchedules(ctx)
	if err != nil {
		return c.log.Append(BotTurn(ComposeTransportFailure(transportReason(err))))
	}
	return c.log.Append(BotTurn(ComposeScheduleList(files)))
}

// LoadSchedule asks the service to load a saved schedule, reports the
// result as a bot turn and re-fetches the plan.
func (c *Controller) LoadSchedule(ctx context.Context, path string) (Outcome, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Outcome{}, ErrEmptyCommand
	}

	res, err := c.gw.LoadSchedule(ctx, path)
	var (
		out    Outcome
		appErr *gateway.ApplicationError
	)
	switch {
	case err == nil && res != nil:
		out.Kind = OutcomeSuccess
		out.Turn = c.log.Append(BotTurn(successGlyph + " " + res.Message))
	case errors.As(err, &appErr):
		out.Kind = OutcomeApplicationFailure
		out.Err = err
		out.Turn = c.log.Append(BotTurn(ComposeApplicationFailure(appErr.Message)))
	default:
		out.Kind = OutcomeTransportFailure
		out.Err = err
		out.Turn = c.log.Append(BotTurn(ComposeTransportFailure(transportReason(err))))
	}
	out.PlanSynced = c.SyncPlan(ctx) == nil
	return out, nil
}

// ClearConversation resets the log. The plan store is not touched.
func (c *Controller) ClearConversation() domain.Turn {
	return c.log.Clear()
}

func transportReason(err error) string {
	var te *gateway.TransportError
	if errors.As(err, &te) {
		return te.Reason()
	}
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
