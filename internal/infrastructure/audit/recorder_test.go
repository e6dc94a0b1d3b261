package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/news-classifier/internal/core/domain"
)

type captureSink struct {
	mu      sync.Mutex
	records []domain.AuditRecord
	block   chan struct{}
}

func (s *captureSink) Name() string { return "capture" }

func (s *captureSink) Write(_ context.Context, rec domain.AuditRecord) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func TestRecorderDeliversToSink(t *testing.T) {
	sink := &captureSink{}
	recorder := NewRecorder(RecorderOptions{BufferSize: 8}, sink)

	recorder.Record(domain.AuditRecord{RequestID: "req-1", Topic: "SPORTS"})
	recorder.Record(domain.AuditRecord{RequestID: "req-2", Topic: "WORLD"})
	recorder.Close(time.Second)

	if sink.count() != 2 {
		t.Fatalf("expected 2 records delivered, got %d", sink.count())
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.records[0].RequestID != "req-1" || sink.records[1].RequestID != "req-2" {
		t.Fatalf("records delivered out of order: %+v", sink.records)
	}
	if sink.records[0].CreatedAt.IsZero() {
		t.Fatalf("expected CreatedAt to be stamped")
	}
}

func TestRecorderDropsWhenBufferFull(t *testing.T) {
	block := make(chan struct{})
	sink := &captureSink{block: block}
	drops := 0
	recorder := NewRecorder(RecorderOptions{
		BufferSize: 1,
		OnDrop:     func() { drops++ },
	}, sink)

	// First record occupies the worker, second fills the buffer, the rest
	// must be dropped without blocking.
	for i := 0; i < 5; i++ {
		recorder.Record(domain.AuditRecord{RequestID: "req"})
	}
	close(block)
	recorder.Close(time.Second)

	if drops == 0 {
		t.Fatalf("expected dropped records when buffer is full")
	}
	if sink.count()+drops != 5 {
		t.Fatalf("delivered %d + dropped %d, want 5 total", sink.count(), drops)
	}
}

func TestRecorderRecordAfterCloseDrops(t *testing.T) {
	sink := &captureSink{}
	drops := 0
	recorder := NewRecorder(RecorderOptions{
		BufferSize: 8,
		OnDrop:     func() { drops++ },
	}, sink)

	recorder.Record(domain.AuditRecord{RequestID: "req-1"})
	recorder.Close(time.Second)

	// In-flight handlers can still record during shutdown; the call must
	// degrade to a drop, never panic.
	recorder.Record(domain.AuditRecord{RequestID: "req-late"})

	if drops != 1 {
		t.Fatalf("expected 1 dropped record after close, got %d", drops)
	}
	if sink.count() != 1 {
		t.Fatalf("expected only the pre-close record delivered, got %d", sink.count())
	}
}

func TestRecorderCloseIsIdempotent(t *testing.T) {
	recorder := NewRecorder(RecorderOptions{BufferSize: 8}, &captureSink{})
	recorder.Close(time.Second)
	recorder.Close(time.Second)
}

func TestRecorderCloseFlushesBuffer(t *testing.T) {
	sink := &captureSink{}
	recorder := NewRecorder(RecorderOptions{BufferSize: 64}, sink)

	for i := 0; i < 10; i++ {
		recorder.Record(domain.AuditRecord{RequestID: "req"})
	}
	recorder.Close(time.Second)

	if sink.count() != 10 {
		t.Fatalf("expected flush of all 10 records on close, got %d", sink.count())
	}
}
