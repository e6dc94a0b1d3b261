package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/kirillkom/news-classifier/internal/core/domain"
)

const healthCheckTimeout = 2 * time.Second

type predictRequest struct {
	Text     string `json:"text"`
	UseCache *bool  `json:"use_cache"`
}

type batchRequest struct {
	Texts    []string `json:"texts"`
	UseCache *bool    `json:"use_cache"`
}

type batchItemResponse struct {
	Index      int     `json:"index"`
	Text       string  `json:"text"`
	Topic      string  `json:"topic,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Cached     bool    `json:"cached,omitempty"`
	Error      string  `json:"error,omitempty"`
	ErrorCode  string  `json:"error_code,omitempty"`
}

type batchResponse struct {
	Predictions  []batchItemResponse `json:"predictions"`
	Count        int                 `json:"count"`
	LatencyMS    float64             `json:"latency_ms"`
	ModelVersion string              `json:"model_version"`
}

func useCacheOrDefault(flag *bool) bool {
	if flag == nil {
		return true
	}
	return *flag
}

func (rt *Router) predict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, "malformed request body")
		return
	}

	result, err := rt.predictor.Predict(r.Context(), req.Text, useCacheOrDefault(req.UseCache))
	if err != nil {
		if rt.metrics != nil {
			rt.metrics.RecordPrediction(rt.opts.ServiceName, "error", false, 0)
		}
		writeDomainError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordPrediction(rt.opts.ServiceName, "success", result.Cached, result.LatencyMS)
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) predictBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, "malformed request body")
		return
	}

	batch, err := rt.predictor.PredictBatch(r.Context(), req.Texts, useCacheOrDefault(req.UseCache))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordBatch(rt.opts.ServiceName, len(batch.Items))
	}

	resp := batchResponse{
		Predictions:  make([]batchItemResponse, len(batch.Items)),
		Count:        len(batch.Items),
		LatencyMS:    batch.LatencyMS,
		ModelVersion: rt.opts.ModelVersion,
	}
	for i, item := range batch.Items {
		slot := batchItemResponse{Index: item.Index, Text: item.Text}
		if item.Err != nil {
			slot.Error = item.Err.Error()
			slot.ErrorCode = errorCodeFor(item.Err)
		} else {
			slot.Topic = item.Result.Topic
			slot.Confidence = item.Result.Confidence
			slot.Cached = item.Result.Cached
		}
		resp.Predictions[i] = slot
	}
	writeJSON(w, http.StatusOK, resp)
}

func errorCodeFor(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return codeInvalidInput
	case domain.IsKind(err, domain.ErrModelUnavailable):
		return codeServiceUnavailable
	default:
		return codeInternalError
	}
}

func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()
	if rt.classifier == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	if err := rt.classifier.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"reason": "model backend unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type componentHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (rt *Router) healthDetailed(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	components := make(map[string]componentHealth, len(rt.components))
	degraded := false
	for name, pinger := range rt.components {
		if err := pinger.Ping(ctx); err != nil {
			components[name] = componentHealth{Status: "down", Error: err.Error()}
			degraded = true
			continue
		}
		components[name] = componentHealth{Status: "up"}
	}

	status := "healthy"
	if degraded {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"components": components,
	})
}

func (rt *Router) modelInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"model_version": rt.opts.ModelVersion,
		"labels":        domain.Labels,
	})
}

func (rt *Router) stats(w http.ResponseWriter, r *http.Request) {
	if rt.auditStore == nil {
		writeError(w, r, http.StatusServiceUnavailable, codeServiceUnavailable, "audit store is not configured")
		return
	}
	window := 24 * time.Hour
	if raw := r.URL.Query().Get("hours"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			writeError(w, r, http.StatusBadRequest, codeInvalidInput, "hours must be a positive integer")
			return
		}
		window = time.Duration(hours) * time.Hour
	}
	stats, err := rt.auditStore.Stats(r.Context(), window)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, codeInternalError, "stats query failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *Router) cacheFlush(w http.ResponseWriter, r *http.Request) {
	if rt.cache == nil {
		writeError(w, r, http.StatusServiceUnavailable, codeServiceUnavailable, "cache is not configured")
		return
	}
	if err := rt.cache.Flush(r.Context()); err != nil {
		writeError(w, r, http.StatusInternalServerError, codeInternalError, "cache flush failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "flushed"})
}
