package ytclient

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/hevcd/hevcd/internal/cookies"
)

// Retry policy
const (
	// DefaultMaxAttempts bounds calls to the underlying fetch capability per
	// operation.
	DefaultMaxAttempts = 3

	// retryWaitBase is the floor of the inter-retry wait.
	retryWaitBase = 10 * time.Second

	// retryWaitCap bounds the deterministic part of the inter-retry wait.
	retryWaitCap = 30 * time.Second

	// retryWaitJitter is the random spread added on top of the base wait.
	retryWaitJitter = 10 * time.Second
)

// Pre-request shaping
const (
	// preDelayFloor is the minimum pre-request delay on a first attempt.
	preDelayFloor = 1 * time.Second

	// preDelayJitter is the random spread of the pre-request delay.
	preDelayJitter = 2 * time.Second

	// preDelayPerAttempt grows the delay window on each retry.
	preDelayPerAttempt = 2 * time.Second

	// preDelayPerFailure grows the delay window with the process-wide
	// cumulative failure count.
	preDelayPerFailure = 1 * time.Second

	// preDelayFailureCap bounds the failure-count contribution.
	preDelayFailureCap = 10
)

// userAgentPool is the fixed set of client identities rotated per attempt.
var userAgentPool = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) Version/17.4 Safari/605.1.15",
}

// browserHeaders are fixed headers that make requests look like a regular
// browser session.
var browserHeaders = []string{
	"Accept: text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Accept-Language: en-US,en;q=0.9",
	"Sec-Fetch-Mode: navigate",
}

// RequestOptions is the options bag handed to the fetch capability for one
// attempt.
type RequestOptions struct {
	Credentials      cookies.Source
	UserAgent        string
	Headers          []string
	Format           string  // download format selector
	OutputTemplate   string  // download output path template
	MergeFormat      string  // container forced on multi-track merges
	SleepRequests    float64 // seconds the capability sleeps between its own requests
	GeoBypassCountry string
	BypassAgeGate    bool
}

// FailureCounter is the process-wide cumulative failure count feeding the
// pre-request delay window. Shared between the extractor and the fetcher.
type FailureCounter struct {
	n atomic.Int64
}

func (c *FailureCounter) Inc() {
	c.n.Add(1)
}

func (c *FailureCounter) Load() int64 {
	return c.n.Load()
}

// randomUserAgent picks a client identity from the fixed pool.
func randomUserAgent() string {
	return userAgentPool[rand.Intn(len(userAgentPool))]
}

// preRequestDelay is the mandatory jittered delay applied before every
// attempt. The window grows with the retry count and the cumulative failure
// count; this is deliberate rate shaping.
func preRequestDelay(attempt int, failures int64) time.Duration {
	if failures > preDelayFailureCap {
		failures = preDelayFailureCap
	}
	base := preDelayFloor +
		time.Duration(attempt-1)*preDelayPerAttempt +
		time.Duration(failures)*preDelayPerFailure
	return base + time.Duration(rand.Int63n(int64(preDelayJitter)))
}

// retryWait is the escalating wait between retries of a retryable failure.
func retryWait(attempt int) time.Duration {
	base := time.Duration(attempt) * retryWaitBase
	if base > retryWaitCap {
		base = retryWaitCap
	}
	return base + time.Duration(rand.Int63n(int64(retryWaitJitter)))
}

// sleeper suspends cooperatively so concurrent jobs keep making progress.
type sleeper func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
