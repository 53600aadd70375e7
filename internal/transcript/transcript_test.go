package transcript

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/planchat/internal/conversation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out []Event
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var ev Event
		require.NoError(t, json.Unmarshal([]byte(line), &ev))
		out = append(out, ev)
	}
	return out
}

func TestFileLoggerWritesPerSessionNDJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	l, err := New(Config{Enabled: true, Dir: dir, QueueSize: 16}, slog.Default())
	require.NoError(t, err)

	l.Log(Event{SessionID: "sess-1", EventType: "turn_appended", Role: "user", Content: "list subjects"})
	l.Log(Event{SessionID: "sess-2", EventType: "cleared"})
	require.NoError(t, l.Close())

	events := readEvents(t, filepath.Join(dir, "sess-1.ndjson"))
	require.Len(t, events, 1)
	assert.Equal(t, "list subjects", events[0].Content)
	assert.NotEmpty(t, events[0].Timestamp)

	assert.Len(t, readEvents(t, filepath.Join(dir, "sess-2.ndjson")), 1)
}

func TestObserverRecordsLogEvents(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	l, err := New(Config{Enabled: true, Dir: dir, QueueSize: 16}, nil)
	require.NoError(t, err)

	log := conversation.NewLog()
	log.Subscribe(Observer(l, "sess-1"))
	log.Append(conversation.UserTurn("add subject Math"))
	id := log.ShowPending()
	log.RemovePending(id)
	log.Append(conversation.BotTurn("✅ Added Math"))
	require.NoError(t, l.Close())

	events := readEvents(t, filepath.Join(dir, "sess-1.ndjson"))
	require.Len(t, events, 4)
	assert.Equal(t, "turn_appended", events[0].EventType)
	assert.Equal(t, "user", events[0].Role)
	assert.Equal(t, "pending_shown", events[1].EventType)
	assert.Equal(t, id, events[1].PendingID)
	assert.Equal(t, "pending_removed", events[2].EventType)
	assert.Equal(t, "✅ Added Math", events[3].Content)
	assert.Equal(t, uint64(4), events[3].Seq)
}

func TestDisabledIsNoop(t *testing.T) {
	l, err := New(Config{Enabled: false}, nil)
	require.NoError(t, err)
	_, ok := l.(Noop)
	assert.True(t, ok)
	l.Log(Event{SessionID: "x"})
	assert.NoError(t, l.Close())
}

func TestLogAfterCloseIsIgnored(t *testing.T) {
	l, err := New(Config{Enabled: true, Dir: t.TempDir()}, nil)
	require.NoError(t, err)
	require.NoError(t, l.Close())
	l.Log(Event{SessionID: "late"})
	assert.NoError(t, l.Close())
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "abc-123", safeName("abc-123"))
	assert.Equal(t, "______etc_passwd", safeName("../../etc/passwd"))
	assert.Equal(t, "unknown", safeName(""))
	assert.Equal(t, "unknown", safeName("../"))
}

func TestReleaseClosesSessionFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	l, err := New(Config{Enabled: true, Dir: dir, QueueSize: 128}, nil)
	require.NoError(t, err)
	fl := l.(*FileLogger)
	t.Cleanup(func() { _ = fl.Close() })

	ids := make([]string, 50)
	for i := range ids {
		ids[i] = fmt.Sprintf("sess-%d", i)
		fl.Log(Event{SessionID: ids[i], EventType: "turn_appended"})
	}
	require.Eventually(t, func() bool { return fl.openFiles() == 50 }, 2*time.Second, 10*time.Millisecond)

	for _, id := range ids {
		fl.Release(id)
	}
	require.Eventually(t, func() bool { return fl.openFiles() == 0 }, 2*time.Second, 10*time.Millisecond)

	// A late event reopens the file and appends to it.
	fl.Log(Event{SessionID: "sess-0", EventType: "cleared"})
	require.NoError(t, fl.Close())
	assert.Equal(t, 0, fl.openFiles())
	assert.Len(t, readEvents(t, filepath.Join(dir, "sess-0.ndjson")), 2)
}

func TestReleaseAfterCloseIsIgnored(t *testing.T) {
	t.Parallel()

	l, err := New(Config{Enabled: true, Dir: t.TempDir(), QueueSize: 1}, nil)
	require.NoError(t, err)
	require.NoError(t, l.Close())
	l.Release("sess-1")
	Noop{}.Release("sess-1")
}
