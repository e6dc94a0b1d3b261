package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirillkom/news-classifier/internal/core/domain"
	"github.com/kirillkom/news-classifier/internal/core/ports"
)

// PredictUseCase orchestrates the request-to-response path: normalize,
// consult the cache, fall back to inference, write through, audit.
//
// The cache carries no at-most-once guarantee per fingerprint: two
// concurrent misses on the same text may both reach the classifier and
// both write the cache. Inference is deterministic, so the entries are
// identical and last-write-wins is safe. No lock is held across the
// inference call.
type PredictUseCase struct {
	classifier ports.Classifier
	cache      ports.ResultCache // nil disables caching
	audit      ports.AuditLog    // nil disables auditing

	maxChars         int
	batchMaxItems    int
	batchConcurrency int
}

type Config struct {
	MaxTextChars     int
	BatchMaxItems    int
	BatchConcurrency int
}

func NewPredictUseCase(
	classifier ports.Classifier,
	cache ports.ResultCache,
	audit ports.AuditLog,
	cfg Config,
) *PredictUseCase {
	if cfg.MaxTextChars <= 0 {
		cfg.MaxTextChars = 512
	}
	if cfg.BatchMaxItems <= 0 {
		cfg.BatchMaxItems = 100
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 8
	}
	return &PredictUseCase{
		classifier:       classifier,
		cache:            cache,
		audit:            audit,
		maxChars:         cfg.MaxTextChars,
		batchMaxItems:    cfg.BatchMaxItems,
		batchConcurrency: cfg.BatchConcurrency,
	}
}

func (uc *PredictUseCase) Predict(ctx context.Context, text string, useCache bool) (*domain.PredictionResult, error) {
	start := time.Now()

	normalized, err := domain.Normalize(text, uc.maxChars)
	if err != nil {
		// Rejected before any cache lookup or inference call.
		uc.recordFailure(ctx, text, "", start, err)
		return nil, err
	}

	fingerprint := ""
	if useCache && uc.cache != nil {
		fingerprint = domain.Fingerprint(normalized)
		entry, ok, cacheErr := uc.cache.Get(ctx, fingerprint)
		if cacheErr != nil {
			// Degrade to a miss; the cache is never a correctness dependency.
			slog.Warn("cache_read_degraded", "error", cacheErr)
		} else if ok {
			result := &domain.PredictionResult{
				Topic:         entry.Topic,
				Confidence:    entry.Confidence,
				Probabilities: entry.Probabilities,
				Cached:        true,
				LatencyMS:     elapsedMS(start),
				ModelVersion:  entry.ModelVersion,
			}
			uc.recordSuccess(ctx, normalized, fingerprint, result)
			return result, nil
		}
	}

	dist, err := uc.classifier.Infer(ctx, normalized)
	if err != nil {
		// No cache write on failure; the attempt is still audited.
		uc.recordFailure(ctx, normalized, fingerprint, start, err)
		return nil, err
	}

	topic, confidence := dist.Top()
	result := &domain.PredictionResult{
		Topic:         topic,
		Confidence:    confidence,
		Probabilities: dist,
		Cached:        false,
		LatencyMS:     elapsedMS(start),
		ModelVersion:  uc.classifier.ModelVersion(),
	}

	if uc.cache != nil {
		if fingerprint == "" {
			fingerprint = domain.Fingerprint(normalized)
		}
		entry := &domain.CachedPrediction{
			Topic:         topic,
			Confidence:    confidence,
			Probabilities: dist,
			ModelVersion:  result.ModelVersion,
		}
		if putErr := uc.cache.Put(ctx, fingerprint, entry); putErr != nil {
			slog.Warn("cache_write_degraded", "error", putErr)
		}
	}

	uc.recordSuccess(ctx, normalized, fingerprint, result)
	return result, nil
}

func (uc *PredictUseCase) recordSuccess(ctx context.Context, text, fingerprint string, result *domain.PredictionResult) {
	if uc.audit == nil {
		return
	}
	uc.audit.Record(domain.AuditRecord{
		RequestID:    domain.RequestIDFromContext(ctx),
		Text:         text,
		Fingerprint:  fingerprint,
		Topic:        result.Topic,
		Confidence:   result.Confidence,
		Cached:       result.Cached,
		LatencyMS:    result.LatencyMS,
		ModelVersion: result.ModelVersion,
		CreatedAt:    time.Now().UTC(),
	})
}

func (uc *PredictUseCase) recordFailure(ctx context.Context, text, fingerprint string, start time.Time, err error) {
	if uc.audit == nil {
		return
	}
	uc.audit.Record(domain.AuditRecord{
		RequestID:    domain.RequestIDFromContext(ctx),
		Text:         text,
		Fingerprint:  fingerprint,
		LatencyMS:    elapsedMS(start),
		ModelVersion: uc.classifier.ModelVersion(),
		Error:        err.Error(),
		CreatedAt:    time.Now().UTC(),
	})
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
