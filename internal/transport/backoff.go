package transport

import (
	"context"
	"math/rand"
	"time"
)

const (
	defaultBackoffBaseDelay = 500 * time.Millisecond
	defaultBackoffMaxDelay  = 15 * time.Second
)

// BackoffPolicy configures reconnect pacing. Reconnects retry forever; the
// policy only bounds how fast.
type BackoffPolicy struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// NormalizeBackoffPolicy fills unset backoff settings with defaults.
func NormalizeBackoffPolicy(policy BackoffPolicy) BackoffPolicy {
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = defaultBackoffBaseDelay
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = defaultBackoffMaxDelay
	}
	if policy.MaxDelay < policy.BaseDelay {
		policy.MaxDelay = policy.BaseDelay
	}
	return policy
}

// ComputeBackoffDelay returns exponential backoff with jitter for a reconnect
// attempt.
func ComputeBackoffDelay(policy BackoffPolicy, attempt int) time.Duration {
	delay := policy.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= policy.MaxDelay {
			delay = policy.MaxDelay
			break
		}
	}
	if delay > policy.MaxDelay {
		delay = policy.MaxDelay
	}
	jitter := 0.8 + rand.Float64()*0.4
	return time.Duration(float64(delay) * jitter)
}

// sleepContext waits for delay unless the context is canceled first.
func sleepContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
