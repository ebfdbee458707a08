// Package logging provides the two log sinks h_slcand can run with:
// syslog when daemonized, or stdout with a numeric priority prefix in
// the foreground. Both sit behind a slog front-end so the rest of the
// program logs the same way regardless of mode; the sink is selected
// once at startup and injected.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"log/syslog"
	"strings"
	"sync"
)

// LevelNotice sits between slog's Info and Warn, matching the syslog
// NOTICE priority the original daemon logs most of its messages at.
const LevelNotice = slog.Level(2)

// Logger wraps slog.Logger with a Notice level.
//
// All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger
}

// Notice logs at LevelNotice (syslog priority 5).
func (l *Logger) Notice(msg string, args ...any) {
	l.Log(context.Background(), LevelNotice, msg, args...)
}

// With returns a new Logger carrying additional default attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// NewConsole returns a Logger that writes each record to w as a single
// line prefixed with the record's numeric syslog priority, e.g.
//
//	[5] attached TTY to netdevice device=/dev/ttyUSB0 netdevice=slcan0
func NewConsole(w io.Writer) *Logger {
	return &Logger{Logger: slog.New(&consoleHandler{w: w, mu: &sync.Mutex{}})}
}

// NewSyslog returns a Logger backed by the system logging facility,
// using the given tag. Records are dispatched to syslog at the
// priority matching their level.
func NewSyslog(tag string) (*Logger, error) {
	w, err := syslog.New(syslog.LOG_NOTICE|syslog.LOG_LOCAL5, tag)
	if err != nil {
		return nil, fmt.Errorf("open syslog: %w", err)
	}
	return &Logger{Logger: slog.New(&syslogHandler{w: w})}, nil
}

// priority maps a slog level onto the syslog numeric priority.
func priority(level slog.Level) int {
	switch {
	case level >= slog.LevelError:
		return 3
	case level >= slog.LevelWarn:
		return 4
	case level >= LevelNotice:
		return 5
	case level >= slog.LevelInfo:
		return 6
	default:
		return 7
	}
}

// formatRecord renders the message and attributes as a single line.
func formatRecord(r slog.Record, attrs []slog.Attr) string {
	var b strings.Builder
	b.WriteString(r.Message)
	write := func(a slog.Attr) {
		b.WriteByte(' ')
		b.WriteString(a.Key)
		b.WriteByte('=')
		b.WriteString(a.Value.String())
	}
	for _, a := range attrs {
		write(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		write(a)
		return true
	})
	return b.String()
}

// consoleHandler prints "[<priority>] message key=value" lines.
// Groups are not used by this program and are ignored.
type consoleHandler struct {
	w     io.Writer
	mu    *sync.Mutex
	attrs []slog.Attr
}

func (h *consoleHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	line := fmt.Sprintf("[%d] %s\n", priority(r.Level), formatRecord(r, h.attrs))
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line)
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &consoleHandler{w: h.w, mu: h.mu, attrs: append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...)}
}

func (h *consoleHandler) WithGroup(string) slog.Handler { return h }

// syslogHandler dispatches records to a syslog writer by priority.
type syslogHandler struct {
	w     *syslog.Writer
	attrs []slog.Attr
}

func (h *syslogHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *syslogHandler) Handle(_ context.Context, r slog.Record) error {
	msg := formatRecord(r, h.attrs)
	switch priority(r.Level) {
	case 3:
		return h.w.Err(msg)
	case 4:
		return h.w.Warning(msg)
	case 5:
		return h.w.Notice(msg)
	case 7:
		return h.w.Debug(msg)
	default:
		return h.w.Info(msg)
	}
}

func (h *syslogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &syslogHandler{w: h.w, attrs: append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...)}
}

func (h *syslogHandler) WithGroup(string) slog.Handler { return h }
