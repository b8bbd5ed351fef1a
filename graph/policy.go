package graph

import (
	"math/rand"
	"time"
)

// VertexPolicy bounds a single vertex's builds: an optional per-build
// timeout and an optional retry policy. Resolved at Prepare from the
// definition's per-node settings, falling back to engine defaults.
type VertexPolicy struct {
	// Timeout bounds one build attempt. Zero means the engine default (or
	// no limit when that is also zero).
	Timeout time.Duration

	// Retry, if non-nil, re-attempts failed builds with backoff.
	Retry *RetryPolicy
}

// RetryPolicy controls re-attempts of a failed build. Timeouts and context
// cancellation are not retried; only component errors are.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int

	// BaseDelay is the backoff before the second attempt; each further
	// attempt doubles it.
	BaseDelay time.Duration

	// MaxDelay caps the backoff. Zero means no cap.
	MaxDelay time.Duration
}

// attempts returns the effective attempt count.
func (p *RetryPolicy) attempts() int {
	if p == nil || p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// computeBackoff returns the delay before the given retry (1-based: retry 1
// follows the first failure). Exponential doubling from BaseDelay with full
// jitter, capped at MaxDelay.
func (p *RetryPolicy) computeBackoff(retry int) time.Duration {
	if p == nil || p.BaseDelay <= 0 {
		return 0
	}

	d := p.BaseDelay
	for i := 1; i < retry; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}

	// Full jitter keeps concurrent retries from synchronizing.
	return time.Duration(rand.Int63n(int64(d)) + 1)
}

// policyFromData resolves a node's declared policy against engine defaults.
func policyFromData(n NodeData, defaultTimeout time.Duration) *VertexPolicy {
	p := &VertexPolicy{Timeout: defaultTimeout}
	if n.TimeoutMS > 0 {
		p.Timeout = time.Duration(n.TimeoutMS) * time.Millisecond
	}
	if n.Retry != nil {
		p.Retry = &RetryPolicy{
			MaxAttempts: n.Retry.MaxAttempts,
			BaseDelay:   time.Duration(n.Retry.BaseDelayMS) * time.Millisecond,
			MaxDelay:    time.Duration(n.Retry.MaxDelayMS) * time.Millisecond,
		}
	}
	return p
}
