// Package testutil provides a capturing slog handler so tests can
// assert on what a component logged.
package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// Record is one captured log line.
type Record struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// CaptureHandler buffers every record it handles.
type CaptureHandler struct {
	mu      sync.Mutex
	records []Record
}

// NewTestLogger returns a logger whose output is captured for
// assertions.
func NewTestLogger(t *testing.T) (*slog.Logger, *CaptureHandler) {
	t.Helper()
	h := &CaptureHandler{}
	return slog.New(h), h
}

// Handle implements slog.Handler.
func (h *CaptureHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any)
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, Record{
		Level:   r.Level,
		Message: r.Message,
		Attrs:   attrs,
	})
	return nil
}

// Enabled implements slog.Handler. Tests want every level.
func (h *CaptureHandler) Enabled(context.Context, slog.Level) bool { return true }

// WithAttrs implements slog.Handler. Grouped attrs are flattened away;
// assertions work on the record's own attrs.
func (h *CaptureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

// WithGroup implements slog.Handler.
func (h *CaptureHandler) WithGroup(string) slog.Handler { return h }

// Records returns a copy of everything captured so far.
func (h *CaptureHandler) Records() []Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Record, len(h.records))
	copy(out, h.records)
	return out
}

// AssertLogContains fails the test unless a record at level contains
// message as a substring.
func AssertLogContains(t *testing.T, h *CaptureHandler, level slog.Level, message string) {
	t.Helper()
	for _, r := range h.Records() {
		if r.Level == level && strings.Contains(r.Message, message) {
			return
		}
	}
	t.Errorf("no %s log containing %q", level, message)
}

// AssertLogAttr fails the test unless some record carries the
// attribute. slog stores ints as int64, so pass int64 for numerics.
func AssertLogAttr(t *testing.T, h *CaptureHandler, key string, want any) {
	t.Helper()
	for _, r := range h.Records() {
		if got, ok := r.Attrs[key]; ok && got == want {
			return
		}
	}
	t.Errorf("no log with attribute %s=%v", key, want)
}

// AssertNoErrors fails the test if anything was logged at error level.
func AssertNoErrors(t *testing.T, h *CaptureHandler) {
	t.Helper()
	for _, r := range h.Records() {
		if r.Level >= slog.LevelError {
			t.Errorf("unexpected error log: %s %v", r.Message, r.Attrs)
		}
	}
}
