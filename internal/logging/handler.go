// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

// Package logging configures the host's structured logger. Every record
// carries the service identity, and records emitted under an active trace
// span carry the trace and span IDs so pipeline and command spans can be
// correlated with their log lines.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// Options selects the output format and verbosity of the host logger.
type Options struct {
	// Format is "text" or "json". Empty means json.
	Format string

	// Level is "debug", "info", "warn", or "error". Empty means info.
	Level string

	// Writer receives the log stream. Nil means os.Stderr.
	Writer io.Writer
}

// spanHandler decorates records with the service identity and, when
// present, the active span's trace context.
type spanHandler struct {
	inner   slog.Handler
	service string
	version string
}

func (h *spanHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(
		slog.String("service", h.service),
		slog.String("version", h.version),
	)

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	//nolint:wrapcheck // Handler interface requires unwrapped error passthrough
	return h.inner.Handle(ctx, r)
}

func (h *spanHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *spanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &spanHandler{inner: h.inner.WithAttrs(attrs), service: h.service, version: h.version}
}

func (h *spanHandler) WithGroup(name string) slog.Handler {
	return &spanHandler{inner: h.inner.WithGroup(name), service: h.service, version: h.version}
}

// ParseLevel maps a level name to its slog level, defaulting to info for
// anything it does not recognize.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup creates the host logger.
func Setup(service, version string, opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	hopts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var base slog.Handler
	if opts.Format == "text" {
		base = slog.NewTextHandler(w, hopts)
	} else {
		base = slog.NewJSONHandler(w, hopts)
	}

	return slog.New(&spanHandler{inner: base, service: service, version: version})
}

// SetDefault installs the host logger as the process default, which the
// plugin drivers log through.
func SetDefault(service, version string, opts Options) {
	slog.SetDefault(Setup(service, version, opts))
}
