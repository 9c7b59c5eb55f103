// Package retry provides the generic exponential-backoff operation runner
// used in front of every unreliable external provider.
package retry

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/dailymirror/mirror-go/internal/infrastructure/observability/logging"
	"github.com/dailymirror/mirror-go/pkg/config"
)

// ErrorContext is the audit record created for each failed attempt. It feeds
// logging and telemetry and never drives control flow.
type ErrorContext struct {
	Service    string    `json:"service"`
	Operation  string    `json:"operation"`
	UserID     string    `json:"userId,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Err        string    `json:"error"`
	RetryCount int       `json:"retryCount"`
}

// OperationContext names the operation being retried for audit purposes.
type OperationContext struct {
	Service   string
	Operation string
	UserID    string
}

// Options tune a single execution. Zero fields fall back to the configured
// defaults.
type Options struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	JitterMax  time.Duration
}

// DefaultOptions returns the configured retry tuning.
func DefaultOptions() Options {
	return Options{
		MaxRetries: config.RetryMaxAttempts,
		BaseDelay:  config.RetryBaseDelay,
		MaxDelay:   config.RetryMaxDelay,
		JitterMax:  config.RetryJitterMax,
	}
}

const auditCap = 100

// Executor runs operations with exponential backoff and jitter. It records an
// ErrorContext per failed attempt; after the final attempt it returns the
// last error unchanged. Fallback is always the caller's responsibility.
type Executor struct {
	logger   *logging.ChanneledLogger
	defaults Options

	mu     sync.Mutex
	audits []ErrorContext
}

// NewExecutor creates an executor with the configured default options.
func NewExecutor(logger *logging.ChanneledLogger) *Executor {
	return &Executor{logger: logger, defaults: DefaultOptions()}
}

// Do runs op until it succeeds or the attempt budget is exhausted. A nil opts
// uses the executor defaults. Context cancellation aborts the backoff wait
// and returns ctx.Err().
func Do[T any](ctx context.Context, e *Executor, opCtx OperationContext, opts *Options, op func(context.Context) (T, error)) (T, error) {
	var zero T
	options := e.resolve(opts)

	var lastErr error
	for attempt := 0; attempt <= options.MaxRetries; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		e.recordFailure(opCtx, err, attempt)

		if attempt == options.MaxRetries {
			break
		}

		delay := backoffDelay(attempt, options) + jitter(options.JitterMax)
		if delay > options.MaxDelay {
			delay = options.MaxDelay
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, lastErr
}

// RecentFailures returns the retained audit records, newest last.
func (e *Executor) RecentFailures() []ErrorContext {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]ErrorContext(nil), e.audits...)
}

func (e *Executor) resolve(opts *Options) Options {
	options := e.defaults
	if opts == nil {
		return options
	}
	if opts.MaxRetries > 0 {
		options.MaxRetries = opts.MaxRetries
	}
	if opts.BaseDelay > 0 {
		options.BaseDelay = opts.BaseDelay
	}
	if opts.MaxDelay > 0 {
		options.MaxDelay = opts.MaxDelay
	}
	if opts.JitterMax > 0 {
		options.JitterMax = opts.JitterMax
	}
	return options
}

func (e *Executor) recordFailure(opCtx OperationContext, err error, attempt int) {
	audit := ErrorContext{
		Service:    opCtx.Service,
		Operation:  opCtx.Operation,
		UserID:     opCtx.UserID,
		Timestamp:  time.Now().UTC(),
		Err:        err.Error(),
		RetryCount: attempt,
	}

	e.mu.Lock()
	e.audits = append(e.audits, audit)
	if len(e.audits) > auditCap {
		e.audits = e.audits[len(e.audits)-auditCap:]
	}
	e.mu.Unlock()

	if e.logger != nil {
		e.logger.LogRetryAttempt(opCtx.Service, opCtx.Operation, attempt, err)
	}
}

// backoffDelay returns the deterministic component: base << attempt, capped.
func backoffDelay(attempt int, opts Options) time.Duration {
	delay := opts.BaseDelay << uint(attempt)
	if delay > opts.MaxDelay || delay <= 0 {
		return opts.MaxDelay
	}
	return delay
}

func jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}
