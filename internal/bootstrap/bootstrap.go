package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	httpadapter "github.com/kirillkom/news-classifier/internal/adapters/http"
	"github.com/kirillkom/news-classifier/internal/config"
	"github.com/kirillkom/news-classifier/internal/core/ports"
	"github.com/kirillkom/news-classifier/internal/core/usecase"
	"github.com/kirillkom/news-classifier/internal/infrastructure/audit"
	natssink "github.com/kirillkom/news-classifier/internal/infrastructure/audit/nats"
	pgsink "github.com/kirillkom/news-classifier/internal/infrastructure/audit/postgres"
	rediscache "github.com/kirillkom/news-classifier/internal/infrastructure/cache/redis"
	"github.com/kirillkom/news-classifier/internal/infrastructure/inference/bertserver"
	"github.com/kirillkom/news-classifier/internal/infrastructure/resilience"
	"github.com/kirillkom/news-classifier/internal/observability/metrics"
)

const recorderCloseTimeout = 10 * time.Second

// App wires configuration into the running object graph. Optional
// collaborators (cache, audit sinks) stay nil when unconfigured and the
// rest of the system degrades around them.
type App struct {
	Config  config.Config
	Handler http.Handler

	predictor ports.Predictor
	recorder  *audit.Recorder
	closeFns  []func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{Config: cfg}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	serverMetrics := metrics.NewServerMetrics("news-classifier")

	classifier := bertserver.New(cfg.InferenceURL, cfg.ModelVersion, bertserver.Options{
		Timeout:            time.Duration(cfg.InferenceTimeoutSeconds) * time.Second,
		ResilienceExecutor: executor,
	})

	components := map[string]ports.Pinger{"model": classifier}

	var cache ports.ResultCache
	if cfg.RedisURL != "" {
		redisCache, err := rediscache.New(cfg.RedisURL, rediscache.Options{
			TTL:       time.Duration(cfg.CacheTTLSeconds) * time.Second,
			OpTimeout: time.Duration(cfg.CacheOpTimeoutMS) * time.Millisecond,
			OnError:   func() { serverMetrics.RecordCacheError("news-classifier") },
		})
		if err != nil {
			return nil, fmt.Errorf("init redis cache: %w", err)
		}
		cache = redisCache
		components["cache"] = redisCache
		app.closeFns = append(app.closeFns, func() { _ = redisCache.Close() })
	} else {
		slog.Warn("result cache disabled, REDIS_URL is empty")
	}

	var sinks []audit.Sink
	var auditReader ports.AuditReader
	if cfg.PostgresDSN != "" {
		db, err := pgsink.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		app.closeFns = append(app.closeFns, func() { _ = db.Close() })

		sink := pgsink.NewSink(db)
		if err := sink.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure audit schema: %w", err)
		}
		sinks = append(sinks, sink)
		auditReader = sink
		components["audit_store"] = sink
	} else {
		slog.Warn("audit store disabled, POSTGRES_DSN is empty")
	}

	if cfg.NATSURL != "" {
		sink, err := natssink.New(cfg.NATSURL, cfg.NATSSubject, natssink.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			return nil, fmt.Errorf("init nats sink: %w", err)
		}
		sinks = append(sinks, sink)
		components["nats"] = sink
		app.closeFns = append(app.closeFns, sink.Close)
	}

	var auditLog ports.AuditLog
	if len(sinks) > 0 {
		recorder := audit.NewRecorder(audit.RecorderOptions{
			BufferSize: cfg.AuditBufferSize,
			OnDrop:     serverMetrics.RecordAuditDrop,
		}, sinks...)
		app.recorder = recorder
		auditLog = recorder
		app.closeFns = append(app.closeFns, sampleQueueDepth(recorder, serverMetrics))
	}

	app.predictor = usecase.NewPredictUseCase(classifier, cache, auditLog, usecase.Config{
		MaxTextChars:     cfg.MaxTextChars,
		BatchMaxItems:    cfg.BatchMaxItems,
		BatchConcurrency: cfg.BatchConcurrency,
	})

	router := httpadapter.NewRouter(
		app.predictor,
		classifier,
		cache,
		auditReader,
		components,
		serverMetrics,
		httpadapter.Options{
			ServiceName:    "news-classifier",
			ModelVersion:   cfg.ModelVersion,
			APIKey:         cfg.APIKey,
			RateLimitRPS:   cfg.APIRateLimitRPS,
			RateLimitBurst: cfg.APIRateLimitBurst,
			MaxInFlight:    cfg.APIMaxInFlight,
		},
	)
	app.Handler = router.Handler()
	return app, nil
}

// sampleQueueDepth exports the recorder backlog as a gauge on a fixed
// period. The returned function stops the sampler.
func sampleQueueDepth(recorder *audit.Recorder, serverMetrics *metrics.ServerMetrics) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				serverMetrics.SetAuditQueueDepth(recorder.Depth())
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}

// Close drains the audit recorder first so records already accepted reach
// their sinks before the sinks go away.
func (a *App) Close() {
	if a.recorder != nil {
		a.recorder.Close(recorderCloseTimeout)
	}
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
}
