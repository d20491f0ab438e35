// Package retry wraps a model so that requests failing to reach the server
// are retried with exponential backoff.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"syscall"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// Config controls how many attempts are made and how long to wait between them.
type Config struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	JitterFactor      float64
}

// DefaultConfig is used when retries are enabled.
var DefaultConfig = Config{
	MaxAttempts:       3,
	InitialBackoff:    250 * time.Millisecond,
	MaxBackoff:        5 * time.Second,
	BackoffMultiplier: 2.0,
	JitterFactor:      0.1,
}

// Do calls fn until it succeeds, returns an error that is not retryable,
// or cfg.MaxAttempts is reached.
func Do[T any](ctx context.Context, cfg Config, fn func(context.Context) (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	attempts := max(cfg.MaxAttempts, 1)
	for attempt := 0; attempt < attempts; attempt++ {
		result, err = fn(ctx)
		if err == nil || !Retryable(ctx, err) || attempt == attempts-1 {
			return result, err
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(backoff(attempt, cfg)):
		}
	}
	return result, err
}

func backoff(attempt int, cfg Config) time.Duration {
	d := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffMultiplier, float64(attempt))
	if d > float64(cfg.MaxBackoff) {
		d = float64(cfg.MaxBackoff)
	}
	d += (rand.Float64()*2 - 1) * cfg.JitterFactor * d
	return time.Duration(d)
}

// Retryable reports whether err means the server could not be reached.
// Cancellation is never retried.
func Retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// Model retries GenerateContent on connection failures. A streaming
// request is retried only if nothing has been streamed yet.
type Model struct {
	llms.Model
	config Config
}

// Wrap returns model with retries.
func Wrap(model llms.Model, cfg Config) *Model {
	return &Model{Model: model, config: cfg}
}

// Call implements the llms.Model interface.
func (m *Model) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// GenerateContent implements the llms.Model interface.
func (m *Model) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}
	streamed := false
	if opts.StreamingFunc != nil {
		inner := opts.StreamingFunc
		options = append(options, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			streamed = true
			return inner(ctx, chunk)
		}))
	}

	resp, err := Do(ctx, m.config, func(ctx context.Context) (*llms.ContentResponse, error) {
		resp, err := m.Model.GenerateContent(ctx, messages, options...)
		if err != nil && streamed {
			return resp, &permanentError{err}
		}
		return resp, err
	})
	var perm *permanentError
	if errors.As(err, &perm) {
		err = perm.err
	}
	return resp, err
}

// permanentError stops retries after output has begun.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }
