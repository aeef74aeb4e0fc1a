package inference

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/oselight/stripdeck/internal/config"
	"github.com/oselight/stripdeck/pkg/logger"
)

// Client talks to an OpenAI-compatible completion endpoint. One network
// round trip per call, no internal retries: retry policy belongs to the
// caller, and the assist service deliberately has none — it falls back to
// local analysis instead.
type Client struct {
	api     openai.Client
	model   string
	timeout time.Duration
	stop    []string

	defaultMaxTokens   int
	defaultTemperature float64

	logger *logger.Logger
}

// NewClient creates a new inference client
func NewClient(cfg config.InferenceConfig, log *logger.Logger) *Client {
	if cfg.APIKey == "" {
		log.Warn("Inference API key is empty - remote analysis will fail over to local rules")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// The assist service treats any failure as a signal to fall back,
		// so SDK-level retries would only delay that.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		api:                openai.NewClient(opts...),
		model:              cfg.Model,
		timeout:            time.Duration(cfg.TimeoutSeconds) * time.Second,
		stop:               cfg.StopSequences,
		defaultMaxTokens:   cfg.MaxTokens,
		defaultTemperature: cfg.Temperature,
		logger:             log.Named("inference"),
	}
}

// Complete sends a single completion request and returns the raw response
// text. Any transport error, timeout, or non-success status is returned as
// a *Failure.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.defaultMaxTokens
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.defaultTemperature
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := []openai.ChatCompletionMessageParamUnion{}
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    messages,
		MaxTokens:   openai.Int(int64(maxTokens)),
		Temperature: openai.Float(temperature),
	}

	var reqOpts []option.RequestOption
	if len(c.stop) > 0 {
		reqOpts = append(reqOpts, option.WithJSONSet("stop", c.stop))
	}

	start := time.Now()
	resp, err := c.api.Chat.Completions.New(callCtx, params, reqOpts...)
	if err != nil {
		failure := classify(err)
		c.logger.Warn("Completion call failed",
			logger.String("kind", string(failure.Kind)),
			logger.Int("status", failure.StatusCode),
			logger.Duration("elapsed", time.Since(start)),
			logger.Error(err))
		return "", failure
	}

	if len(resp.Choices) == 0 {
		c.logger.Warn("Completion response carried no choices",
			logger.String("model", c.model))
		return "", nil
	}

	text := resp.Choices[0].Message.Content
	c.logger.Debug("Completion call succeeded",
		logger.String("model", c.model),
		logger.Int("response_chars", len(text)),
		logger.Duration("elapsed", time.Since(start)))

	return text, nil
}

// Healthy reports whether the inference endpoint is reachable. The host uses
// this to surface a degraded-mode indicator; nothing in the assist service
// depends on it, since every call path has a fallback.
func (c *Client) Healthy(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := c.api.Models.List(probeCtx)
	if err != nil {
		c.logger.Debug("Inference health probe failed", logger.Error(err))
		return false
	}
	return true
}

// classify maps an SDK error onto the failure taxonomy
func classify(err error) *Failure {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == 401 || apierr.StatusCode == 403:
			return &Failure{Kind: FailureUnauthorized, StatusCode: apierr.StatusCode, Err: err}
		default:
			return &Failure{Kind: FailureServer, StatusCode: apierr.StatusCode, Err: err}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Failure{Kind: FailureTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Failure{Kind: FailureTimeout, Err: err}
	}

	return &Failure{Kind: FailureUnreachable, Err: err}
}
