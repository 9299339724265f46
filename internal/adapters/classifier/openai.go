package classifier

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"
	cb "github.com/sony/gobreaker"

	"github.com/okian/repute/pkg/logger"
	"github.com/okian/repute/pkg/metrics"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxRetries  = 3
	defaultTemperature = 0.2
	defaultMaxTokens   = 400
)

// ChatCompleter is the slice of the OpenAI client this package uses.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Option applies a configuration option to the OpenAI classifier.
type Option func(*OpenAI)

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(o *OpenAI) {
		if model != "" {
			o.model = model
		}
	}
}

// WithTimeout sets the per-attempt request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *OpenAI) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithMaxRetries sets how many times a transient failure is retried.
func WithMaxRetries(n int) Option {
	return func(o *OpenAI) {
		if n >= 0 {
			o.maxRetries = uint64(n)
		}
	}
}

// WithClient replaces the underlying chat client.
func WithClient(c ChatCompleter) Option {
	return func(o *OpenAI) {
		if c != nil {
			o.client = c
		}
	}
}

// WithTripThreshold sets how many consecutive failures open the breaker.
func WithTripThreshold(n uint32) Option {
	return func(o *OpenAI) {
		if n > 0 {
			o.tripAfter = n
		}
	}
}

// OpenAI classifies text with a chat-completion model. Calls go through a
// circuit breaker, and transient failures are retried with backoff.
type OpenAI struct {
	client     ChatCompleter
	model      string
	timeout    time.Duration
	maxRetries uint64
	tripAfter  uint32
	breaker    *cb.CircuitBreaker
	log        logger.Logger
}

var _ Classifier = (*OpenAI)(nil)

// NewOpenAI creates a classifier. An empty apiKey is a configuration error
// unless a client is injected with WithClient.
func NewOpenAI(apiKey string, opts ...Option) (*OpenAI, error) {
	o := &OpenAI{
		model:      openai.GPT4oMini,
		timeout:    defaultTimeout,
		maxRetries: defaultMaxRetries,
		tripAfter:  5,
		log:        logger.Named("classifier"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.client == nil {
		if apiKey == "" {
			return nil, ErrMissingAPIKey
		}
		o.client = openai.NewClient(apiKey)
	}

	o.breaker = cb.NewCircuitBreaker(cb.Settings{
		Name:        "classifier",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts cb.Counts) bool {
			return counts.ConsecutiveFailures >= o.tripAfter
		},
		OnStateChange: func(name string, from, to cb.State) {
			metrics.UpdateBreakerState(int(to))
			o.log.Warn(context.Background(), "circuit breaker state change",
				logger.String("name", name), logger.String("from", from.String()), logger.String("to", to.String()))
		},
	})
	return o, nil
}

// ExtractPromise implements Classifier.
func (o *OpenAI) ExtractPromise(ctx context.Context, req ExtractionRequest) (Extraction, error) {
	raw, err := o.complete(ctx, OpExtract, extractSystemPrompt, extractUserPrompt(req))
	if err != nil {
		return Extraction{}, err
	}
	out, err := ParseExtraction(raw)
	if err != nil {
		metrics.RecordClassifierError(OpExtract, "parse")
		return Extraction{}, err
	}
	return out, nil
}

// VerifyPromise implements Classifier.
func (o *OpenAI) VerifyPromise(ctx context.Context, req VerificationRequest) (Verdict, error) {
	raw, err := o.complete(ctx, OpVerify, verifySystemPrompt, verifyUserPrompt(req))
	if err != nil {
		return Verdict{}, err
	}
	v, err := ParseVerdict(raw)
	if err != nil {
		metrics.RecordClassifierError(OpVerify, "parse")
		return Verdict{}, err
	}
	return v, nil
}

func (o *OpenAI) complete(ctx context.Context, op, system, user string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}

	start := time.Now()
	result, err := o.breaker.Execute(func() (interface{}, error) {
		var content string
		attempt := func() error {
			callCtx, cancel := context.WithTimeout(ctx, o.timeout)
			defer cancel()
			resp, err := o.client.CreateChatCompletion(callCtx, req)
			if err != nil {
				if permanent(err) {
					return backoff.Permanent(err)
				}
				return err
			}
			if len(resp.Choices) == 0 {
				return backoff.Permanent(ErrEmptyResponse)
			}
			content = resp.Choices[0].Message.Content
			return nil
		}
		bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), o.maxRetries)
		err := backoff.Retry(attempt, backoff.WithContext(bo, ctx))
		return content, err
	})
	metrics.RecordClassifierCall(op, float64(time.Since(start).Milliseconds()))

	if errors.Is(err, cb.ErrOpenState) || errors.Is(err, cb.ErrTooManyRequests) {
		metrics.RecordClassifierError(op, "unavailable")
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil && ctx.Err() == nil && unreachable(err) {
		metrics.RecordClassifierError(op, "unavailable")
		return "", fmt.Errorf("%w: classifier %s: %w", ErrUnavailable, op, err)
	}
	if err != nil {
		metrics.RecordClassifierError(op, "request")
		return "", fmt.Errorf("classifier %s: %w", op, err)
	}
	return result.(string), nil
}

// unreachable reports failures that say nothing about the request itself:
// rejected credentials, throttling or server errors that outlived the
// retries, and transport failures. No call can succeed until they clear.
func unreachable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return unusableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return unusableStatus(reqErr.HTTPStatusCode)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func unusableStatus(code int) bool {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return true
	}
	return code >= http.StatusInternalServerError
}

// permanent reports client errors that retrying cannot fix.
func permanent(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.HTTPStatusCode
		return code >= http.StatusBadRequest && code < http.StatusInternalServerError && code != http.StatusTooManyRequests
	}
	return false
}
