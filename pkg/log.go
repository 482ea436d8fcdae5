package pkg

import (
	"context"
	"io"
	"log/slog"

	"github.com/phsym/console-slog"
)

const TraceLevel = slog.Level(-8)

var _ slog.Handler = (*MultiLogHandler)(nil)

func ParseLevel(level string) slog.Level {
	var lv slog.LevelVar
	if level == "trace" {
		lv.Set(TraceLevel)
	} else {
		lv.UnmarshalText([]byte(level))
	}
	return lv.Level()
}

// NewLogger writes human readable records to w and copies them to every extra
// handler, e.g. a file or JSON handler supplied by the application.
func NewLogger(w io.Writer, level string, extra ...slog.Handler) *slog.Logger {
	m := NewMultiLogHandler(ParseLevel(level))
	m.handlers = append(m.handlers, console.NewHandler(w, &console.HandlerOptions{
		NoColor:    true,
		Level:      m.level,
		TimeFormat: "2006-01-02 15:04:05.000",
	}))
	m.handlers = append(m.handlers, extra...)
	return slog.New(m)
}

// MultiLogHandler fans records out to several handlers. Loggers derived with
// With or WithGroup share the level of the handler they came from.
type MultiLogHandler struct {
	handlers []slog.Handler
	level    *slog.LevelVar
}

func NewMultiLogHandler(level slog.Level, handlers ...slog.Handler) *MultiLogHandler {
	m := &MultiLogHandler{handlers: handlers, level: new(slog.LevelVar)}
	m.level.Set(level)
	return m
}

func (m *MultiLogHandler) SetLevel(level slog.Level) {
	m.level.Set(level)
}

// Enabled implements slog.Handler.
func (m *MultiLogHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= m.level.Level()
}

// Handle implements slog.Handler.
func (m *MultiLogHandler) Handle(ctx context.Context, rec slog.Record) (err error) {
	for _, h := range m.handlers {
		if !h.Enabled(ctx, rec.Level) {
			continue
		}
		// 第一个错误返回，其余handler照常输出
		if e := h.Handle(ctx, rec.Clone()); e != nil && err == nil {
			err = e
		}
	}
	return
}

// WithAttrs implements slog.Handler.
func (m *MultiLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.derive(func(h slog.Handler) slog.Handler {
		return h.WithAttrs(attrs)
	})
}

// WithGroup implements slog.Handler.
func (m *MultiLogHandler) WithGroup(name string) slog.Handler {
	return m.derive(func(h slog.Handler) slog.Handler {
		return h.WithGroup(name)
	})
}

func (m *MultiLogHandler) derive(fn func(slog.Handler) slog.Handler) *MultiLogHandler {
	result := &MultiLogHandler{
		handlers: make([]slog.Handler, len(m.handlers)),
		level:    m.level,
	}
	for i, h := range m.handlers {
		result.handlers[i] = fn(h)
	}
	return result
}
