package ports

import (
	"context"
	"time"

	"github.com/kirillkom/news-classifier/internal/core/domain"
)

// Classifier wraps the trained model behind its serving backend. Infer is
// deterministic for a fixed model version and input, synchronous and
// potentially slow; callers must treat it as the long-latency operation of
// the request path.
type Classifier interface {
	Infer(ctx context.Context, text string) (domain.LabelDistribution, error)
	ModelVersion() string
	Ping(ctx context.Context) error
}

// ResultCache maps a text fingerprint to a previously computed prediction.
// An expired entry is never returned. Backend errors are reported to the
// caller, which degrades them to a miss; the cache is an optimization,
// never a correctness dependency.
type ResultCache interface {
	Get(ctx context.Context, fingerprint string) (*domain.CachedPrediction, bool, error)
	Put(ctx context.Context, fingerprint string, entry *domain.CachedPrediction) error
	Flush(ctx context.Context) error
	Ping(ctx context.Context) error
}

// AuditLog records completed prediction attempts. Record must never block
// the response path and never surfaces an error.
type AuditLog interface {
	Record(rec domain.AuditRecord)
}

// AuditReader exposes aggregate views over the audit store. It is consumed
// only by the HTTP stats surface, never by the prediction path.
type AuditReader interface {
	Stats(ctx context.Context, window time.Duration) (*domain.AuditStats, error)
}

// Pinger is implemented by external collaborators that can report
// reachability for health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}
