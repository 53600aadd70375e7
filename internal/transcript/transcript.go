// Package transcript writes conversation events to per-session NDJSON
// files in the background.
package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/planchat/internal/conversation"
)

// Config controls transcript logging.
type Config struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Event is one transcript line.
type Event struct {
	Timestamp string         `json:"ts"`
	SessionID string         `json:"session_id"`
	Seq       uint64         `json:"seq"`
	EventType string         `json:"event_type"`
	Role      string         `json:"role,omitempty"`
	TurnID    string         `json:"turn_id,omitempty"`
	Content   string         `json:"content,omitempty"`
	Formatted bool           `json:"formatted,omitempty"`
	PendingID string         `json:"pending_id,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// Logger records transcript events.
type Logger interface {
	Log(ev Event)
	// Release closes the file of a session that is gone. A later event for
	// the same session reopens it in append mode.
	Release(sessionID string)
	Close() error
}

// Noop discards every event.
type Noop struct{}

func (Noop) Log(Event) {}

func (Noop) Release(string) {}

func (Noop) Close() error { return nil }

// FileLogger appends events to <dir>/<session>.ndjson from a single writer
// goroutine. Log never blocks: when the queue is full the event is dropped.
type FileLogger struct {
	dir    string
	queue  chan entry
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	// files is owned by the run goroutine; filesMu lets Close and
	// openFiles look at it.
	filesMu sync.Mutex
	files   map[string]*os.File
}

// entry is either an event to write or a request to close a session file.
type entry struct {
	ev      Event
	release bool
}

// New returns a FileLogger, or Noop when transcripts are disabled.
func New(cfg Config, logger *slog.Logger) (Logger, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dir == "" {
		return nil, errors.New("transcript dir is required")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}

	l := &FileLogger{
		dir:    cfg.Dir,
		queue:  make(chan entry, cfg.QueueSize),
		logger: logger,
		files:  make(map[string]*os.File),
	}
	l.wg.Add(1)
	go l.run()
	return l, nil
}

// Log queues ev for writing.
func (l *FileLogger) Log(ev Event) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	if ev.Timestamp == "" {
		ev.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	select {
	case l.queue <- entry{ev: ev}:
	default:
		l.logger.Warn("transcript queue full, dropping event",
			"session_id", ev.SessionID,
			"event_type", ev.EventType,
		)
	}
}

// Release queues a close of the session's file behind its pending events.
// Unlike Log it waits for queue space, since a dropped release leaks the
// handle.
func (l *FileLogger) Release(sessionID string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	l.queue <- entry{ev: Event{SessionID: sessionID}, release: true}
}

// Close drains the queue and closes every open file.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	l.wg.Wait()

	l.filesMu.Lock()
	defer l.filesMu.Unlock()
	var errs []error
	for id, f := range l.files {
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close transcript %s: %w", id, err))
		}
		delete(l.files, id)
	}
	return errors.Join(errs...)
}

func (l *FileLogger) run() {
	defer l.wg.Done()
	for e := range l.queue {
		if e.release {
			l.release(e.ev.SessionID)
			continue
		}
		if err := l.write(e.ev); err != nil {
			l.logger.Warn("failed to write transcript event", "session_id", e.ev.SessionID, "error", err)
		}
	}
}

func (l *FileLogger) release(sessionID string) {
	name := safeName(sessionID)
	l.filesMu.Lock()
	f, ok := l.files[name]
	delete(l.files, name)
	l.filesMu.Unlock()
	if !ok {
		return
	}
	if err := f.Close(); err != nil {
		l.logger.Warn("failed to close transcript", "session_id", sessionID, "error", err)
	}
}

// openFiles returns the number of session files currently open.
func (l *FileLogger) openFiles() int {
	l.filesMu.Lock()
	defer l.filesMu.Unlock()
	return len(l.files)
}

func (l *FileLogger) write(ev Event) error {
	f, err := l.file(ev.SessionID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	data = append(data, '\n')
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (l *FileLogger) file(sessionID string) (*os.File, error) {
	name := safeName(sessionID)
	l.filesMu.Lock()
	defer l.filesMu.Unlock()
	if f, ok := l.files[name]; ok {
		return f, nil
	}
	f, err := os.OpenFile(filepath.Join(l.dir, name+".ndjson"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	l.files[name] = f
	return f, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// safeName keeps session ids from escaping the transcript directory.
func safeName(id string) string {
	name := unsafeChars.ReplaceAllString(id, "_")
	if strings.Trim(name, "_") == "" {
		return "unknown"
	}
	return name
}

// Observer returns a conversation log observer that records every event of
// one session.
func Observer(l Logger, sessionID string) conversation.Observer {
	return func(ev conversation.Event) {
		out := Event{
			SessionID: sessionID,
			Seq:       ev.Seq,
			EventType: string(ev.Kind),
			PendingID: ev.PendingID,
		}
		if ev.Turn != nil {
			out.Role = string(ev.Turn.Role)
			out.TurnID = ev.Turn.ID
			out.Content = ev.Turn.Content
			out.Formatted = ev.Turn.Formatted
			out.Timestamp = ev.Turn.Timestamp.UTC().Format(time.RFC3339Nano)
		}
		l.Log(out)
	}
}
