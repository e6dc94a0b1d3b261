package usecase

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/news-classifier/internal/core/domain"
)

// PredictBatch fans the texts out through the single-prediction path with
// bounded concurrency. Results land in their input slot, so output order
// matches input order regardless of completion order. One item's failure
// fills only its own slot; siblings are unaffected.
func (uc *PredictUseCase) PredictBatch(ctx context.Context, texts []string, useCache bool) (*domain.BatchResult, error) {
	start := time.Now()

	if len(texts) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "batch", errors.New("texts is empty"))
	}
	if len(texts) > uc.batchMaxItems {
		// Rejected wholesale before dispatching any item.
		return nil, domain.WrapError(domain.ErrBatchTooLarge, "batch", errors.New("batch exceeds configured maximum"))
	}

	items := make([]domain.BatchItemResult, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.batchConcurrency)
	for i, text := range texts {
		g.Go(func() error {
			result, err := uc.Predict(gctx, text, useCache)
			items[i] = domain.BatchItemResult{
				Index:  i,
				Text:   text,
				Result: result,
				Err:    err,
			}
			// Per-item failures are isolated in their slot, never
			// propagated through the group.
			return nil
		})
	}
	_ = g.Wait()

	return &domain.BatchResult{
		Items:     items,
		LatencyMS: elapsedMS(start),
	}, nil
}
