package goSession

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// AuditEvent is one security-relevant session outcome.
//
// ID and Timestamp are stamped by the engine when the event is queued. ID is
// a ULID, so events sort by creation time. Reason carries the flow's
// classification (for example "refresh_reuse" or "store_timeout"); Method is
// set for request-bound events.
type AuditEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	UserID    string    `json:"user_id,omitempty"`
	IP        string    `json:"ip,omitempty"`
	Method    string    `json:"method,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// AuditSink receives audit events from the engine's dispatcher goroutine.
// Emit is never called concurrently by a single engine.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards every event.
type NoOpSink struct{}

// Emit implements [AuditSink].
func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink forwards events to a buffered channel read through Events.
type ChannelSink struct {
	events chan AuditEvent
}

// NewChannelSink returns a ChannelSink with the given buffer (minimum 1).
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan AuditEvent, buffer),
	}
}

// Emit blocks until the event is buffered or ctx is done.
func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink returns a sink writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

// Emit implements [AuditSink].
func (s *JSONWriterSink) Emit(ctx context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
}

// LogSink writes events through a zerolog logger. Failures log at warn,
// reuse detections at error, everything else at info.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink returns a sink writing to log.
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

// Emit implements [AuditSink].
func (s *LogSink) Emit(_ context.Context, event AuditEvent) {
	var ev *zerolog.Event
	switch {
	case event.EventType == auditEventRefreshReuseDetected:
		ev = s.log.Error()
	case !event.Success:
		ev = s.log.Warn()
	default:
		ev = s.log.Info()
	}

	ev = ev.Str("audit_id", event.ID).
		Time("at", event.Timestamp).
		Bool("success", event.Success)
	if event.UserID != "" {
		ev = ev.Str("subject_id", event.UserID)
	}
	if event.IP != "" {
		ev = ev.Str("ip", event.IP)
	}
	if event.Method != "" {
		ev = ev.Str("method", event.Method)
	}
	if event.Error != "" {
		ev = ev.Str("error", event.Error)
	}
	if event.Reason != "" {
		ev = ev.Str("reason", event.Reason)
	}
	ev.Msg(event.EventType)
}
