package bertserver

import (
	"context"
	"strings"
	"time"

	"github.com/kirillkom/news-classifier/internal/core/domain"
	"github.com/kirillkom/news-classifier/internal/infrastructure/resilience"
)

// Client talks to the model server that hosts the trained topic classifier.
// The backend exposes POST /v1/predict returning the full probability
// distribution; the classifier itself is opaque to this service.
type Client struct {
	baseURL      string
	modelVersion string
	timeout      time.Duration
	httpClient   httpDoer
	executor     *resilience.Executor
}

type Options struct {
	// Timeout bounds a single Infer call end to end, retries included.
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, modelVersion string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		modelVersion: modelVersion,
		timeout:      timeout,
		httpClient:   newHTTPClient(timeout),
		executor:     options.ResilienceExecutor,
	}
}

func (c *Client) ModelVersion() string {
	return c.modelVersion
}

// Infer sends normalized text to the model server and returns the label
// distribution. The call is bounded by the configured deadline; a timeout
// surfaces as an inference failure with no retry beyond the executor's own
// transient-error policy.
func (c *Client) Infer(ctx context.Context, text string) (domain.LabelDistribution, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	request := map[string]any{"text": text}
	var response struct {
		Probabilities domain.LabelDistribution `json:"probabilities"`
	}

	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/v1/predict", request, &response, "predict")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "bertserver.predict", call, classifyBackendError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapInferenceError("predict", err)
	}

	if err := response.Probabilities.Validate(); err != nil {
		return nil, domain.WrapError(domain.ErrInference, "predict", err)
	}
	return response.Probabilities, nil
}

// Ping reports backend reachability for readiness probes.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.getOK(ctx, "/healthz", "ping"); err != nil {
		return domain.WrapError(domain.ErrModelUnavailable, "ping", err)
	}
	return nil
}
