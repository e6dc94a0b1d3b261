package domain

import (
	"fmt"
	"math"
	"time"
)

// Labels is the fixed, canonically ordered topic set of the trained model.
// The order is load-bearing: exact probability ties resolve to the earlier
// label, so reordering changes prediction output.
var Labels = []string{
	"BUSINESS",
	"ENTERTAINMENT",
	"HEALTH",
	"NATION",
	"SCIENCE",
	"SPORTS",
	"TECHNOLOGY",
	"WORLD",
}

// DistributionTolerance is the accepted deviation of a probability
// distribution's sum from 1.
const DistributionTolerance = 1e-3

// LabelDistribution maps each label to its predicted probability.
type LabelDistribution map[string]float64

// Top returns the highest-probability label and its probability, walking
// Labels in canonical order so ties are deterministic.
func (d LabelDistribution) Top() (string, float64) {
	top := ""
	best := math.Inf(-1)
	for _, label := range Labels {
		if p, ok := d[label]; ok && p > best {
			top = label
			best = p
		}
	}
	return top, best
}

// Validate checks that the distribution covers the full label set with
// probabilities in [0,1] summing to 1 within DistributionTolerance.
func (d LabelDistribution) Validate() error {
	sum := 0.0
	for _, label := range Labels {
		p, ok := d[label]
		if !ok {
			return fmt.Errorf("distribution missing label %s", label)
		}
		if p < 0 || p > 1 {
			return fmt.Errorf("probability for %s out of range: %g", label, p)
		}
		sum += p
	}
	if math.Abs(sum-1) > DistributionTolerance {
		return fmt.Errorf("probabilities sum to %g", sum)
	}
	return nil
}

// PredictionResult is the per-request response assembled by the
// orchestrator. Instances are not shared across requests.
type PredictionResult struct {
	Topic         string            `json:"topic"`
	Confidence    float64           `json:"confidence"`
	Probabilities LabelDistribution `json:"all_probabilities"`
	Cached        bool              `json:"cached"`
	LatencyMS     float64           `json:"latency_ms"`
	ModelVersion  string            `json:"model_version"`
}

// CachedPrediction is the cache-resident form of a prediction: everything
// per-request (latency, cached flag) is stripped before storage.
type CachedPrediction struct {
	Topic         string            `json:"topic"`
	Confidence    float64           `json:"confidence"`
	Probabilities LabelDistribution `json:"probabilities"`
	ModelVersion  string            `json:"model_version"`
}

// BatchItemResult holds one slot of a batch response. Exactly one of
// Result and Err is set.
type BatchItemResult struct {
	Index  int
	Text   string
	Result *PredictionResult
	Err    error
}

// BatchResult preserves input order position-for-position.
type BatchResult struct {
	Items     []BatchItemResult
	LatencyMS float64
}

// AuditRecord captures a completed prediction attempt for the audit sinks.
type AuditRecord struct {
	RequestID    string    `json:"request_id,omitempty"`
	Text         string    `json:"text"`
	Fingerprint  string    `json:"fingerprint,omitempty"`
	Topic        string    `json:"topic,omitempty"`
	Confidence   float64   `json:"confidence"`
	Cached       bool      `json:"cached"`
	LatencyMS    float64   `json:"latency_ms"`
	ModelVersion string    `json:"model_version"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuditStats is an aggregate view over recent audit records.
type AuditStats struct {
	WindowHours   int              `json:"window_hours"`
	TotalRequests int64            `json:"total_requests"`
	AvgConfidence float64          `json:"avg_confidence"`
	AvgLatencyMS  float64          `json:"avg_latency_ms"`
	CacheHitRate  float64          `json:"cache_hit_rate"`
	TopicCounts   map[string]int64 `json:"topic_counts"`
}
