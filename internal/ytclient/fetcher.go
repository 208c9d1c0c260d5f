package ytclient

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/hevcd/hevcd/internal/cookies"
	"github.com/hevcd/hevcd/internal/model"
	"github.com/hevcd/hevcd/internal/platform"
)

// Format policy: cap at 720p, prefer widely compatible combinations, force a
// single container when separate tracks get merged.
const (
	CompatFormat = "best[height<=720]/best[height<=480]/best"
	MergeFormat  = "mp4"
)

// Prober validates that a downloaded file structurally contains video before
// it is handed to the transcode step.
type Prober interface {
	HasVideoStream(ctx context.Context, path string) (bool, error)
}

// FetcherConfig configures the media fetcher.
type FetcherConfig struct {
	Runner      Runner
	Classifier  Classifier
	Credentials *cookies.Resolver
	Prober      Prober
	Failures    *FailureCounter
	WorkDir     string
	MaxAttempts int
	Logger      *logrus.Entry
}

func (c *FetcherConfig) defaults() {
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

// Fetcher wraps the media-download capability with the same anti-blocking
// shaping and retry policy as the extractor, plus post-download candidate
// selection and validation. No partial artifacts survive a failed fetch.
type Fetcher struct {
	runner      Runner
	classifier  Classifier
	creds       *cookies.Resolver
	prober      Prober
	failures    *FailureCounter
	workDir     string
	maxAttempts int
	sleep       sleeper
	logger      *logrus.Entry
}

// NewFetcher creates the media fetcher.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	cfg.defaults()
	return &Fetcher{
		runner:      cfg.Runner,
		classifier:  cfg.Classifier,
		creds:       cfg.Credentials,
		prober:      cfg.Prober,
		failures:    cfg.Failures,
		workDir:     cfg.WorkDir,
		maxAttempts: cfg.MaxAttempts,
		sleep:       sleepCtx,
		logger:      cfg.Logger.WithField("svc", "fetcher"),
	}
}

func (f *Fetcher) options(taskID string) RequestOptions {
	return RequestOptions{
		Credentials:    f.creds.Resolve(),
		UserAgent:      randomUserAgent(),
		Headers:        browserHeaders,
		SleepRequests:  1,
		Format:         CompatFormat,
		MergeFormat:    MergeFormat,
		OutputTemplate: platform.TempTemplate(f.workDir, taskID),
	}
}

// Fetch downloads the media for a task and returns the path of the selected
// candidate file in the working directory.
func (f *Fetcher) Fetch(ctx context.Context, url, taskID string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if err := f.sleep(ctx, preRequestDelay(attempt, f.failures.Load())); err != nil {
			return "", err
		}

		if err := f.runner.Download(ctx, url, f.options(taskID)); err != nil {
			f.failures.Inc()
			category := f.classifier.Classify(err)
			lastErr = model.NewClassified(category, err)
			f.logger.Warnf("Download attempt %d/%d failed (%s): %v", attempt, f.maxAttempts, category, err)

			f.purge(taskID)
			if !category.Retryable() {
				return "", lastErr
			}
			if attempt < f.maxAttempts {
				if err := f.sleep(ctx, retryWait(attempt)); err != nil {
					return "", err
				}
			}
			continue
		}

		path, err := f.selectCandidate(ctx, taskID)
		if err == nil {
			return path, nil
		}
		lastErr = err

		// Zero-byte results are cleaned up and retried; structural failures
		// are final.
		if model.CategoryOf(err) != model.CategoryEmptyFile {
			return "", err
		}
		f.failures.Inc()
		f.logger.Warnf("Download attempt %d/%d produced no usable file", attempt, f.maxAttempts)
	}

	f.purge(taskID)
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

// selectCandidate picks the largest downloaded file for the task, discards
// the other candidates and validates the result.
func (f *Fetcher) selectCandidate(ctx context.Context, taskID string) (string, error) {
	best, ok, err := platform.LargestCandidate(f.workDir, taskID)
	if err != nil {
		f.purge(taskID)
		return "", model.NewClassified(model.CategoryOther, err)
	}
	if !ok {
		f.purge(taskID)
		return "", model.Classifiedf(model.CategoryEmptyFile, "download produced no usable file")
	}

	if err := platform.PurgeCandidatesExcept(f.workDir, taskID, best.Path); err != nil {
		f.logger.Warnf("Failed to discard extra candidates for task %s: %v", taskID, err)
	}

	hasVideo, err := f.prober.HasVideoStream(ctx, best.Path)
	if err != nil {
		f.purge(taskID)
		return "", model.Classifiedf(model.CategoryInvalidFile, "downloaded file failed validation: %v", err)
	}
	if !hasVideo {
		f.purge(taskID)
		return "", model.Classifiedf(model.CategoryInvalidFile, "downloaded file contains no video stream")
	}

	f.logger.Infof("Selected candidate %s (%d bytes) for task %s", best.Path, best.Size, taskID)
	return best.Path, nil
}

func (f *Fetcher) purge(taskID string) {
	if err := platform.PurgeCandidates(f.workDir, taskID); err != nil {
		f.logger.Warnf("Failed to purge partial files for task %s: %v", taskID, err)
	}
}
