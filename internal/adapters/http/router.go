package httpadapter

import (
	"net/http"

	"github.com/kirillkom/news-classifier/internal/core/ports"
	"github.com/kirillkom/news-classifier/internal/observability/metrics"
)

type Router struct {
	predictor  ports.Predictor
	classifier ports.Pinger
	cache      ports.ResultCache // nil when caching is disabled
	auditStore ports.AuditReader // nil when the audit store is disabled
	components map[string]ports.Pinger
	metrics    *metrics.ServerMetrics
	opts       Options
}

type Options struct {
	ServiceName  string
	ModelVersion string

	APIKey         string
	RateLimitRPS   int
	RateLimitBurst int
	MaxInFlight    int
}

func NewRouter(
	predictor ports.Predictor,
	classifier ports.Pinger,
	cache ports.ResultCache,
	auditStore ports.AuditReader,
	components map[string]ports.Pinger,
	serverMetrics *metrics.ServerMetrics,
	opts Options,
) *Router {
	if opts.ServiceName == "" {
		opts.ServiceName = "news-classifier"
	}
	return &Router{
		predictor:  predictor,
		classifier: classifier,
		cache:      cache,
		auditStore: auditStore,
		components: components,
		metrics:    serverMetrics,
		opts:       opts,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /readyz", rt.readyz)
	mux.HandleFunc("GET /health/detailed", rt.healthDetailed)

	mux.HandleFunc("POST /predict", rt.authenticated(rt.predict))
	mux.HandleFunc("POST /predict/batch", rt.authenticated(rt.predictBatch))

	mux.HandleFunc("GET /v1/model", rt.modelInfo)
	mux.HandleFunc("GET /v1/stats", rt.authenticated(rt.stats))
	mux.HandleFunc("POST /v1/cache/flush", rt.authenticated(rt.cacheFlush))

	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.opts.MaxInFlight, backpressureWait)
	handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.opts.ServiceName, handler)
	}
	handler = recoverMiddleware(handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}
