package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kirillkom/news-classifier/internal/core/domain"
)

// Sink is one destination for audit records. Writes are best-effort; a
// failing sink is logged and skipped.
type Sink interface {
	Name() string
	Write(ctx context.Context, rec domain.AuditRecord) error
}

// Recorder decouples the response path from the audit sinks: Record is a
// non-blocking enqueue into a bounded buffer drained by one worker
// goroutine. When the buffer is full the record is dropped, never queued
// synchronously — a slow sink must not add caller-visible latency.
type Recorder struct {
	records      chan domain.AuditRecord
	sinks        []Sink
	writeTimeout time.Duration
	onDrop       func()
	done         chan struct{}

	mu     sync.RWMutex
	closed bool
}

type RecorderOptions struct {
	BufferSize   int
	WriteTimeout time.Duration
	// OnDrop is invoked for each record lost to a full buffer.
	OnDrop func()
}

func NewRecorder(options RecorderOptions, sinks ...Sink) *Recorder {
	bufferSize := options.BufferSize
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	writeTimeout := options.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}

	r := &Recorder{
		records:      make(chan domain.AuditRecord, bufferSize),
		sinks:        sinks,
		writeTimeout: writeTimeout,
		onDrop:       options.OnDrop,
		done:         make(chan struct{}),
	}
	go r.drain()
	return r
}

func (r *Recorder) Record(rec domain.AuditRecord) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	// A record arriving after Close (in-flight handlers during shutdown)
	// is dropped like a full buffer, never a send on a closed channel.
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.drop(rec)
		return
	}
	select {
	case r.records <- rec:
	default:
		r.drop(rec)
	}
}

func (r *Recorder) drop(rec domain.AuditRecord) {
	if r.onDrop != nil {
		r.onDrop()
	}
	slog.Warn("audit_record_dropped", "request_id", rec.RequestID)
}

// Depth reports the number of buffered, not yet flushed records.
func (r *Recorder) Depth() int {
	return len(r.records)
}

func (r *Recorder) drain() {
	defer close(r.done)
	for rec := range r.records {
		for _, sink := range r.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
			if err := sink.Write(ctx, rec); err != nil {
				slog.Warn("audit_sink_write_failed",
					"sink", sink.Name(),
					"request_id", rec.RequestID,
					"error", domain.WrapError(domain.ErrLogSink, sink.Name(), err),
				)
			}
			cancel()
		}
	}
}

// Close stops accepting records and waits for the worker to flush the
// buffer, up to the given timeout.
func (r *Recorder) Close(timeout time.Duration) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.records)
	r.mu.Unlock()
	select {
	case <-r.done:
	case <-time.After(timeout):
		slog.Warn("audit_recorder_close_timeout", "pending", len(r.records))
	}
}
