// Package gateway is the HTTP client for the remote scheduling command
// service.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ashureev/planchat/internal/domain"
	"github.com/ashureev/planchat/internal/metrics"
)

// maxResponseSize bounds how much of a response body is read (4MB).
const maxResponseSize = 4 << 20

const (
	opSend          = "send_command"
	opFetchPlan     = "fetch_plan"
	opFetchSchedule = "fetch_schedule"
	opListSchedules = "list_schedules"
	opLoadSchedule  = "load_schedule"
)

// Config holds configuration for the gateway client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8080/api/chatbot",
		Timeout: 30 * time.Second,
	}
}

// Client sends commands and reads state from the scheduling service. Every
// call issues exactly one HTTP request and never retries: a retried
// "add subject" would be applied twice.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Recorder
	logger     *slog.Logger
}

// NewClient creates a gateway client. rec and logger may be nil.
func NewClient(cfg Config, rec *metrics.Recorder, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", cfg.BaseURL)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		metrics:    rec,
		logger:     logger,
	}, nil
}

// Send executes one command. A response with success:false yields the
// decoded result together with an *ApplicationError; anything that prevents
// decoding a result yields a *TransportError.
func (c *Client) Send(ctx context.Context, command string) (*domain.CommandResult, error) {
	started := time.Now()
	result, err := c.send(ctx, command)
	c.observe(opSend, started, err)
	return result, err
}

func (c *Client) send(ctx context.Context, command string) (*domain.CommandResult, error) {
	status, body, err := c.do(ctx, opSend, http.MethodPost, "/command", domain.CommandRequest{Command: command})
	if err != nil {
		return nil, err
	}

	var result domain.CommandResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &TransportError{Op: opSend, Status: nonOK(status), Err: fmt.Errorf("decode response: %w", err)}
	}
	if !isOK(status) && (result.Success || result.Message == "") {
		// An error page that happens to be JSON is not a command result.
		return nil, &TransportError{Op: opSend, Status: status, Err: errUnexpectedStatus}
	}
	if !result.Success {
		return &result, &ApplicationError{Message: result.Message}
	}
	return &result, nil
}

// FetchPlan reads the current plan. An empty body means no plan exists yet
// and returns nil without error.
func (c *Client) FetchPlan(ctx context.Context) (*domain.Plan, error) {
	started := time.Now()
	plan, err := c.fetchPlan(ctx)
	c.observe(opFetchPlan, started, err)
	return plan, err
}

func (c *Client) fetchPlan(ctx context.Context) (*domain.Plan, error) {
	status, body, err := c.do(ctx, opFetchPlan, http.MethodGet, "/plan", nil)
	if err != nil {
		return nil, err
	}
	if !isOK(status) {
		return nil, &TransportError{Op: opFetchPlan, Status: status, Err: errUnexpectedStatus}
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var plan domain.Plan
	if err := json.Unmarshal(trimmed, &plan); err != nil {
		return nil, &TransportError{Op: opFetchPlan, Err: fmt.Errorf("decode plan: %w", err)}
	}
	return &plan, nil
}

// FetchScheduleText returns the service's preformatted schedule verbatim.
func (c *Client) FetchScheduleText(ctx context.Context) (string, error) {
	started := time.Now()
	status, body, err := c.do(ctx, opFetchSchedule, http.MethodGet, "/schedule", nil)
	if err == nil && !isOK(status) {
		err = &TransportError{Op: opFetchSchedule, Status: status, Err: errUnexpectedStatus}
	}
	c.observe(opFetchSchedule, started, err)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// ListSchedules returns the schedules the service has saved.
func (c *Client) ListSchedules(ctx context.Context) ([]domain.ScheduleFile, error) {
	started := time.Now()
	files, err := c.listSchedules(ctx)
	c.observe(opListSchedules, started, err)
	return files, err
}

func (c *Client) listSchedules(ctx context.Context) ([]domain.ScheduleFile, error) {
	status, body, err := c.do(ctx, opListSchedules, http.MethodGet, "/schedules/history", nil)
	if err != nil {
		return nil, err
	}
	if !isOK(status) {
		return nil, &TransportError{Op: opListSchedules, Status: status, Err: errUnexpectedStatus}
	}

	var files []domain.ScheduleFile
	if len(bytes.TrimSpace(body)) == 0 {
		return files, nil
	}
	if err := json.Unmarshal(body, &files); err != nil {
		return nil, &TransportError{Op: opListSchedules, Err: fmt.Errorf("decode schedules: %w", err)}
	}
	return files, nil
}

// LoadSchedule asks the service to load a saved schedule file.
func (c *Client) LoadSchedule(ctx context.Context, path string) (*domain.LoadResult, error) {
	started := time.Now()
	result, err := c.loadSchedule(ctx, path)
	c.observe(opLoadSchedule, started, err)
	return result, err
}

func (c *Client) loadSchedule(ctx context.Context, path string) (*domain.LoadResult, error) {
	status, body, err := c.do(ctx, opLoadSchedule, http.MethodPost, "/schedules/load", domain.LoadScheduleRequest{Filepath: path})
	if err != nil {
		return nil, err
	}

	var result domain.LoadResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &TransportError{Op: opLoadSchedule, Status: nonOK(status), Err: fmt.Errorf("decode response: %w", err)}
	}
	if !isOK(status) && (result.Success || result.Message == "") {
		return nil, &TransportError{Op: opLoadSchedule, Status: status, Err: errUnexpectedStatus}
	}
	if !result.Success {
		return &result, &ApplicationError{Message: result.Message}
	}
	return &result, nil
}

// do performs one request and returns the status and body. Only failures
// that prevent reading a response are returned as errors.
func (c *Client) do(ctx context.Context, op, method, path string, payload any) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, &TransportError{Op: op, Err: fmt.Errorf("marshal request: %w", err)}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, &TransportError{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json, text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Op: op, Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close response body", "op", op, "error", closeErr)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, nil, &TransportError{Op: op, Status: nonOK(resp.StatusCode), Err: fmt.Errorf("read response: %w", err)}
	}
	return resp.StatusCode, body, nil
}

func (c *Client) observe(op string, started time.Time, err error) {
	// Rejected commands are a healthy exchange with the service.
	if IsApplication(err) {
		err = nil
	}
	c.metrics.GatewayCall(op, started, err)
	if err != nil {
		c.logger.Warn("scheduler request failed", "op", op, "duration", time.Since(started), "error", err)
	}
}

func isOK(status int) bool {
	return status >= 200 && status < 300
}

// nonOK returns status if it is a failure status and 0 otherwise.
func nonOK(status int) int {
	if isOK(status) {
		return 0
	}
	return status
}
