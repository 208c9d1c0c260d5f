package ytclient

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/hevcd/hevcd/internal/cookies"
	"github.com/hevcd/hevcd/internal/model"
)

// ExtractorConfig configures the extraction engine.
type ExtractorConfig struct {
	Runner      Runner
	Classifier  Classifier
	Credentials *cookies.Resolver
	Failures    *FailureCounter
	MaxAttempts int
	Logger      *logrus.Entry
}

func (c *ExtractorConfig) defaults() {
	if c.Classifier == nil {
		c.Classifier = SubstringClassifier{}
	}
	if c.Failures == nil {
		c.Failures = &FailureCounter{}
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
}

// Extractor wraps the metadata-extraction capability with anti-blocking
// request shaping, bounded retries and the fallback strategy sweep.
type Extractor struct {
	runner      Runner
	classifier  Classifier
	creds       *cookies.Resolver
	failures    *FailureCounter
	maxAttempts int
	sleep       sleeper
	logger      *logrus.Entry
}

// NewExtractor creates the extraction engine.
func NewExtractor(cfg ExtractorConfig) *Extractor {
	cfg.defaults()
	return &Extractor{
		runner:      cfg.Runner,
		classifier:  cfg.Classifier,
		creds:       cfg.Credentials,
		failures:    cfg.Failures,
		maxAttempts: cfg.MaxAttempts,
		sleep:       sleepCtx,
		logger:      cfg.Logger.WithField("svc", "extractor"),
	}
}

// baseOptions builds the per-attempt request configuration: a random client
// identity, browser-like headers, and credentials resolved for this attempt.
func (e *Extractor) baseOptions() RequestOptions {
	return RequestOptions{
		Credentials:   e.creds.Resolve(),
		UserAgent:     randomUserAgent(),
		Headers:       browserHeaders,
		SleepRequests: 1,
	}
}

// Extract fetches video metadata with bounded retries. Rate-limited and
// blocked failures are retried with escalating waits; everything else
// surfaces immediately.
func (e *Extractor) Extract(ctx context.Context, url string) (*Metadata, error) {
	var lastErr error

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if err := e.sleep(ctx, preRequestDelay(attempt, e.failures.Load())); err != nil {
			return nil, err
		}

		meta, err := e.runner.Extract(ctx, url, e.baseOptions())
		if err == nil && meta != nil {
			return meta, nil
		}
		if err == nil {
			err = fmt.Errorf("extraction returned no metadata")
		}

		e.failures.Inc()
		category := e.classifier.Classify(err)
		lastErr = model.NewClassified(category, err)
		e.logger.Warnf("Extraction attempt %d/%d failed (%s): %v", attempt, e.maxAttempts, category, err)

		if !category.Retryable() {
			return nil, lastErr
		}
		if attempt < e.maxAttempts {
			if err := e.sleep(ctx, retryWait(attempt)); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// ExtractWithFallback runs the fallback strategy sweep: each named strategy
// is tried once, in priority order, with its own jittered delay. The sweep
// stops at the first strategy producing a result; if all fail, the last
// error observed is surfaced.
func (e *Extractor) ExtractWithFallback(ctx context.Context, url string) (*Metadata, error) {
	var lastErr error

	for _, strategy := range e.strategies() {
		opts, ok := strategy.Apply(e.baseOptions())
		if !ok {
			e.logger.Debugf("Fallback strategy %s not applicable, skipping", strategy.Name)
			continue
		}

		if err := e.sleep(ctx, preRequestDelay(1, e.failures.Load())); err != nil {
			return nil, err
		}

		e.logger.Infof("Trying fallback strategy: %s", strategy.Name)
		meta, err := e.runner.Extract(ctx, url, opts)
		if err == nil && meta != nil {
			e.logger.Infof("Fallback strategy %s succeeded", strategy.Name)
			return meta, nil
		}
		if err == nil {
			err = fmt.Errorf("extraction returned no metadata")
		}

		e.failures.Inc()
		lastErr = model.NewClassified(e.classifier.Classify(err), err)
		e.logger.Warnf("Fallback strategy %s failed: %v", strategy.Name, err)
	}

	if lastErr == nil {
		lastErr = model.Classifiedf(model.CategoryOther, "no applicable fallback strategies")
	}
	return nil, lastErr
}
