package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/planchat/internal/conversation"
	"github.com/ashureev/planchat/internal/domain"
	"github.com/ashureev/planchat/internal/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGateway struct{}

func (stubGateway) Send(context.Context, string) (*domain.CommandResult, error) {
	return &domain.CommandResult{Success: true, Message: "ok"}, nil
}

func (stubGateway) FetchPlan(context.Context) (*domain.Plan, error) { return nil, nil }

func (stubGateway) FetchScheduleText(context.Context) (string, error) { return "", nil }

func (stubGateway) ListSchedules(context.Context) ([]domain.ScheduleFile, error) { return nil, nil }

func (stubGateway) LoadSchedule(context.Context, string) (*domain.LoadResult, error) {
	return &domain.LoadResult{Success: true}, nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestManager(ttl time.Duration) (*Manager, *clock) {
	c := &clock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	m := NewManager(Config{Gateway: stubGateway{}, TTL: ttl})
	m.now = c.Now
	return m, c
}

func TestGetOrCreate(t *testing.T) {
	m, _ := newTestManager(time.Minute)

	a, created := m.GetOrCreate("page-1")
	require.True(t, created)
	assert.Equal(t, "page-1", a.ID)
	assert.Equal(t, 1, a.Log.Len(), "new session starts with the welcome turn")

	again, created := m.GetOrCreate("page-1")
	assert.False(t, created)
	assert.Same(t, a, again)

	fresh, created := m.GetOrCreate("")
	assert.True(t, created)
	assert.NotEmpty(t, fresh.ID)
	assert.NotEqual(t, a.ID, fresh.ID)
	assert.Equal(t, 2, m.Len())
}

func TestSessionsAreIsolated(t *testing.T) {
	m, _ := newTestManager(time.Minute)
	a, _ := m.GetOrCreate("a")
	b, _ := m.GetOrCreate("b")

	_, err := a.Controller.Submit(context.Background(), "list subjects")
	require.NoError(t, err)

	assert.Equal(t, 3, a.Log.Len())
	assert.Equal(t, 1, b.Log.Len())
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	m, c := newTestManager(time.Minute)
	var evicted []string
	m.OnEvict(func(id string) { evicted = append(evicted, id) })

	m.GetOrCreate("old")
	c.Advance(45 * time.Second)
	m.GetOrCreate("new")
	c.Advance(30 * time.Second)

	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, []string{"old"}, evicted)
	assert.Equal(t, []string{"new"}, m.IDs())
}

func TestSweepKeepsSessionsWithPendingRoundTrips(t *testing.T) {
	m, c := newTestManager(time.Minute)
	sess, _ := m.GetOrCreate("busy")
	id := sess.Log.ShowPending()

	c.Advance(2 * time.Minute)
	assert.Equal(t, 0, m.Sweep())

	sess.Log.RemovePending(id)
	assert.Equal(t, 1, m.Sweep())
}

func TestGetTouchesSession(t *testing.T) {
	m, c := newTestManager(time.Minute)
	m.GetOrCreate("a")
	c.Advance(50 * time.Second)
	_, ok := m.Get("a")
	require.True(t, ok)
	c.Advance(50 * time.Second)

	assert.Equal(t, 0, m.Sweep())
}

func TestSweepDisabledWithoutTTL(t *testing.T) {
	m, c := newTestManager(0)
	m.GetOrCreate("a")
	c.Advance(24 * time.Hour)
	assert.Equal(t, 0, m.Sweep())
}

func TestRemoveUnknown(t *testing.T) {
	m, _ := newTestManager(time.Minute)
	assert.False(t, m.Remove("nope"))
}

type recordingTranscript struct {
	mu       sync.Mutex
	events   int
	released []string
}

func (r *recordingTranscript) Log(transcript.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events++
}

func (r *recordingTranscript) Release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = append(r.released, id)
}

func (r *recordingTranscript) Close() error { return nil }

func TestEvictionReleasesTranscript(t *testing.T) {
	rec := &recordingTranscript{}
	m := NewManager(Config{Gateway: stubGateway{}, Transcript: rec, TTL: time.Minute})
	m.OnEvict(rec.Release)

	sess, _ := m.GetOrCreate("page-1")
	sess.Log.Append(conversation.UserTurn("list subjects"))
	require.True(t, m.Remove("page-1"))
	assert.False(t, m.Remove("page-1"))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 1, rec.events)
	assert.Equal(t, []string{"page-1"}, rec.released)
}
