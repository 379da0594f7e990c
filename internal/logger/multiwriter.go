package logger

import (
	"context"
	"errors"
	"log/slog"
)

// multiWriterHandler fans a record out to the console and file handlers
type multiWriterHandler struct {
	handlers []slog.Handler
}

func newMultiWriterHandler(handlers ...slog.Handler) slog.Handler {
	return &multiWriterHandler{handlers: handlers}
}

// Enabled reports whether any child handler accepts the level
func (h *multiWriterHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle passes the record to each child that accepts its level.
//
//nolint:gocritic // slog.Handler interface requires record by value, not pointer
func (h *multiWriterHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *multiWriterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &multiWriterHandler{handlers: h.mapHandlers(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })}
}

func (h *multiWriterHandler) WithGroup(name string) slog.Handler {
	return &multiWriterHandler{handlers: h.mapHandlers(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })}
}

func (h *multiWriterHandler) mapHandlers(fn func(slog.Handler) slog.Handler) []slog.Handler {
	out := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		out[i] = fn(handler)
	}
	return out
}
