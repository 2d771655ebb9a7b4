// Package runlog provides the run-scoped event logger. Every event is written
// twice: a human-readable line to run_<id>.log and a line-delimited JSON
// object to run_<id>.jsonl. Both sinks are flushed on every emit so a crash
// loses at most the event being written.
package runlog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/kosterlab/kosterscan/pkg/run"
)

// Level classifies an event.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Fields carries optional structured data attached to an event.
type Fields map[string]any

// Event is the unit of the structured log stream. Consumers must tolerate
// additional unknown fields; each JSONL line is independently parseable.
type Event struct {
	Timestamp string `json:"timestamp"`
	RunID     string `json:"run_id"`
	Level     Level  `json:"level"`
	Message   string `json:"message"`
	Fields    Fields `json:"fields,omitempty"`
}

// Logger writes the dual event stream for one run. Safe for concurrent use;
// writes are serialized so interleaved events never corrupt either file.
//
// Emit never fails the calling operation: if a sink becomes unwritable the
// logger downgrades to stderr and records one degraded-mode warning.
type Logger struct {
	mu       sync.Mutex
	runID    string
	text     io.WriteCloser
	jsonl    io.WriteCloser
	fallback io.Writer
	degraded bool
	now      func() time.Time
}

// New opens both log sinks for the given run context.
func New(rc *run.Context) (*Logger, error) {
	text, err := openAppend(rc.TextLogPath())
	if err != nil {
		return nil, fmt.Errorf("opening text log: %w", err)
	}
	jsonl, err := openAppend(rc.JSONLogPath())
	if err != nil {
		_ = text.Close()
		return nil, fmt.Errorf("opening jsonl log: %w", err)
	}

	return &Logger{
		runID:    rc.RunID,
		text:     text,
		jsonl:    jsonl,
		fallback: os.Stderr,
		now:      time.Now,
	}, nil
}

func openAppend(path string) (*os.File, error) {
	// O_APPEND keeps lines intact even if another handle touches the file.
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) // #nosec G304 -- path derived from run context
}

// Info logs an informational event.
func (l *Logger) Info(msg string, fields Fields) { l.emit(LevelInfo, msg, fields) }

// Warn logs a warning event.
func (l *Logger) Warn(msg string, fields Fields) { l.emit(LevelWarn, msg, fields) }

// Error logs an error event.
func (l *Logger) Error(msg string, fields Fields) { l.emit(LevelError, msg, fields) }

func (l *Logger) emit(level Level, msg string, fields Fields) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ev := Event{
		Timestamp: l.now().Format(time.RFC3339),
		RunID:     l.runID,
		Level:     level,
		Message:   msg,
		Fields:    fields,
	}

	textLine := fmt.Sprintf("%s\t%s\t%s", ev.Timestamp, level, msg)
	for _, kv := range sortedFields(fields) {
		textLine += fmt.Sprintf(" %s=%v", kv.key, kv.val)
	}

	jsonLine, err := json.Marshal(ev)
	if err != nil {
		// Unmarshalable field values: keep the stream valid with a stub line.
		stub := Event{Timestamp: ev.Timestamp, RunID: ev.RunID, Level: LevelWarn, Message: "event dropped: unencodable fields"}
		jsonLine, _ = json.Marshal(stub)
	}

	okText := l.write(l.text, textLine+"\n")
	okJSON := l.write(l.jsonl, string(jsonLine)+"\n")

	if (!okText || !okJSON) && !l.degraded {
		l.degraded = true
		fmt.Fprintf(l.fallback, "%s\t%s\tlogger degraded: log sink unwritable, falling back to stderr\n", ev.Timestamp, LevelWarn)
	}
	if l.degraded && (!okText || !okJSON) {
		fmt.Fprintln(l.fallback, textLine)
	}
}

func (l *Logger) write(w io.Writer, line string) bool {
	if w == nil {
		return false
	}
	if _, err := io.WriteString(w, line); err != nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		if err := f.Sync(); err != nil {
			return false
		}
	}
	return true
}

// Degraded reports whether the logger has fallen back to stderr.
func (l *Logger) Degraded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.degraded
}

// Close releases both sinks. The logger must not be used afterwards.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, c := range []io.WriteCloser{l.text, l.jsonl} {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.text, l.jsonl = nil, nil
	return firstErr
}

type fieldKV struct {
	key string
	val any
}

// sortedFields gives the text line a stable field order.
func sortedFields(fields Fields) []fieldKV {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]fieldKV, len(keys))
	for i, k := range keys {
		out[i] = fieldKV{key: k, val: fields[k]}
	}
	return out
}
