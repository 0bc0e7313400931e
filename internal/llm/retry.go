package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/RitaRen1003/medical-rag-system/internal/config"
)

// RetryPolicy configures retries of the completion call. The zero policy and
// a MaxAttempts of 1 both mean a single attempt.
type RetryPolicy struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	Retryable     func(error) bool
}

// DefaultRetryPolicy returns the policy used by callers that opt into
// retrying: three attempts with exponential backoff, all errors retryable.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		Retryable: func(_ error) bool {
			return true
		},
	}
}

// PolicyFromConfig converts the config retry section into a policy. A nil
// result means no retrying.
func PolicyFromConfig(rc config.RetryConfig) *RetryPolicy {
	if rc.MaxAttempts <= 1 {
		return nil
	}
	p := &RetryPolicy{
		MaxAttempts:   rc.MaxAttempts,
		InitialDelay:  time.Duration(rc.InitialDelayMS) * time.Millisecond,
		MaxDelay:      time.Duration(rc.MaxDelayMS) * time.Millisecond,
		BackoffFactor: rc.BackoffFactor,
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 100 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 5 * time.Second
	}
	if p.BackoffFactor < 1 {
		p.BackoffFactor = 2.0
	}
	return p
}

// WithRetry wraps an LLMClient with the given policy. A nil policy or a
// single-attempt policy returns the client unchanged.
func WithRetry(c LLMClient, policy *RetryPolicy) LLMClient {
	if policy == nil || policy.MaxAttempts <= 1 {
		return c
	}
	return &retryClient{inner: c, policy: policy}
}

type retryClient struct {
	inner  LLMClient
	policy *RetryPolicy
}

func (r *retryClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	var lastErr error
	delay := r.policy.InitialDelay

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("retry cancelled: %w", ctx.Err())
		default:
		}

		result, err := r.inner.Generate(ctx, system, prompt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if r.policy.Retryable != nil && !r.policy.Retryable(err) {
			return "", err
		}

		if attempt < r.policy.MaxAttempts {
			select {
			case <-time.After(delay):
				delay = min(time.Duration(float64(delay)*r.policy.BackoffFactor), r.policy.MaxDelay)
			case <-ctx.Done():
				return "", fmt.Errorf("retry cancelled during backoff: %w", ctx.Err())
			}
		}
	}

	return "", fmt.Errorf("max attempts (%d) exceeded: %w", r.policy.MaxAttempts, lastErr)
}
