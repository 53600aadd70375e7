package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ashureev/planchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL, Timeout: 2 * time.Second}, nil, nil)
	require.NoError(t, err)
	return c
}

func TestSendPostsCommandOnce(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/command", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req domain.CommandRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, `add subject "Math" hours 10 priority HIGH`, req.Command)

		_, _ = io.WriteString(w, `{"success":true,"message":"Added Math"}`)
	})

	res, err := c.Send(context.Background(), `add subject "Math" hours 10 priority HIGH`)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Added Math", res.Message)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSendApplicationError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"success":false,"message":"Unknown subject"}`)
	})

	res, err := c.Send(context.Background(), "delete subject \"Art\"")
	require.Error(t, err)

	var appErr *ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "Unknown subject", appErr.Message)
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.False(t, IsTransport(err))
}

func TestSendNonOKWithResultBodyIsApplicationError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"success":false,"message":"Syntax errors found"}`)
	})

	_, err := c.Send(context.Background(), "bogus")
	assert.True(t, IsApplication(err))
}

func TestSendNonOKWithUnparseableBodyIsTransportError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>bad gateway</html>")
	})

	_, err := c.Send(context.Background(), "list subjects")
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusBadGateway, te.Status)
}

func TestSendNonOKErrorPageJSONIsTransportError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"status":500,"error":"Internal Server Error"}`)
	})

	_, err := c.Send(context.Background(), "list subjects")
	assert.True(t, IsTransport(err))
}

func TestSendMalformedJSONIsTransportError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"success":tru`)
	})

	_, err := c.Send(context.Background(), "list subjects")
	assert.True(t, IsTransport(err))
}

func TestSendNetworkFailureIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(Config{BaseURL: url, Timeout: time.Second}, nil, nil)
	require.NoError(t, err)

	_, err = c.Send(context.Background(), "list subjects")
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Zero(t, te.Status)
	assert.NotEmpty(t, te.Reason())
}

func TestFetchPlanEmptyBodyMeansNoPlan(t *testing.T) {
	for _, body := range []string{"", "   \n", "null"} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/plan", r.URL.Path)
			_, _ = io.WriteString(w, body)
		})

		plan, err := c.FetchPlan(context.Background())
		require.NoError(t, err, "body %q", body)
		assert.Nil(t, plan, "body %q", body)
	}
}

func TestFetchPlanDecodesCourses(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"courses":[{"id":"Math","workloadHours":10,"priority":"HIGH"},{"id":"Art","workloadHours":2.5,"priority":"LOW"}]}`)
	})

	plan, err := c.FetchPlan(context.Background())
	require.NoError(t, err)
	require.Len(t, plan.Courses, 2)
	assert.Equal(t, domain.Course{ID: "Math", WorkloadHours: 10, Priority: domain.PriorityHigh}, plan.Courses[0])
	assert.Equal(t, 2.5, plan.Courses[1].WorkloadHours)
}

func TestFetchPlanFailures(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		_, err := c.FetchPlan(context.Background())
		assert.True(t, IsTransport(err))
	})

	t.Run("malformed", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"courses":`)
		})
		_, err := c.FetchPlan(context.Background())
		assert.True(t, IsTransport(err))
	})
}

func TestFetchScheduleTextVerbatim(t *testing.T) {
	text := "Mon 2025-12-20\n  09:00-10:30  Math\n\n  10:45-12:15  Art\n"
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/schedule", r.URL.Path)
		_, _ = io.WriteString(w, text)
	})

	got, err := c.FetchScheduleText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, text, got)
}

func TestListAndLoadSchedules(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/schedules/history":
			_, _ = io.WriteString(w, `[{"path":"/data/schedule_1.json","filename":"schedule_1.json","timestamp":1734652800000}]`)
		case "/schedules/load":
			var req domain.LoadScheduleRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if req.Filepath == "/missing.json" {
				_, _ = io.WriteString(w, `{"success":false,"message":"File not found"}`)
				return
			}
			_, _ = io.WriteString(w, `{"success":true,"message":"Schedule loaded"}`)
		default:
			http.NotFound(w, r)
		}
	})

	files, err := c.ListSchedules(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "schedule_1.json", files[0].Filename)

	res, err := c.LoadSchedule(context.Background(), "/data/schedule_1.json")
	require.NoError(t, err)
	assert.Equal(t, "Schedule loaded", res.Message)

	_, err = c.LoadSchedule(context.Background(), "/missing.json")
	assert.True(t, IsApplication(err))
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "ftp://example.com"}, nil, nil)
	assert.Error(t, err)

	_, err = NewClient(Config{BaseURL: "://"}, nil, nil)
	assert.Error(t, err)
}
