package ports

import (
	"context"

	"github.com/kirillkom/news-classifier/internal/core/domain"
)

// Predictor is the inbound contract for single and batch classification.
type Predictor interface {
	Predict(ctx context.Context, text string, useCache bool) (*domain.PredictionResult, error)
	PredictBatch(ctx context.Context, texts []string, useCache bool) (*domain.BatchResult, error)
}
