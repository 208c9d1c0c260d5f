package task

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hevcd/hevcd/internal/model"
	"github.com/hevcd/hevcd/internal/platform"
	"github.com/hevcd/hevcd/internal/ytclient"
)

// DefaultMaxParallel bounds how many tasks run the pipeline concurrently.
// Extra tasks queue up and start as slots free.
const DefaultMaxParallel = 2

// Extractor fetches video metadata, with a fallback sweep for blocked
// extractions.
type Extractor interface {
	Extract(ctx context.Context, url string) (*ytclient.Metadata, error)
	ExtractWithFallback(ctx context.Context, url string) (*ytclient.Metadata, error)
}

// Fetcher downloads the media for a task and returns the path of the file it
// settled on.
type Fetcher interface {
	Fetch(ctx context.Context, url, taskID string) (string, error)
}

// Transcoder converts a downloaded file into the final artifact.
type Transcoder interface {
	Transcode(ctx context.Context, inputPath, outputPath string) error
}

// OrchestratorConfig wires the pipeline components into the orchestrator.
type OrchestratorConfig struct {
	Store       *Store
	Extractor   Extractor
	Fetcher     Fetcher
	Transcoder  Transcoder
	WorkDir     string
	MaxParallel int

	// HasCredentials reports whether any cookie source is configured. Used
	// to fail fast on videos that will not download anonymously.
	HasCredentials func() bool

	Logger *logrus.Entry
}

func (c *OrchestratorConfig) defaults() {
	if c.MaxParallel <= 0 {
		c.MaxParallel = DefaultMaxParallel
	}
	if c.HasCredentials == nil {
		c.HasCredentials = func() bool { return false }
	}
	if c.Logger == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		c.Logger = logrus.NewEntry(logger)
	}
}

// Orchestrator runs each task through the extract, download and convert
// phases on its own goroutine, bounded by MaxParallel. State transitions go
// through the store so API readers always see a consistent snapshot.
type Orchestrator struct {
	store          *Store
	extractor      Extractor
	fetcher        Fetcher
	transcoder     Transcoder
	workDir        string
	maxParallel    int
	hasCredentials func() bool
	logger         *logrus.Entry

	mu          sync.Mutex
	activeCount int
	pending     []string
}

// NewOrchestrator creates an orchestrator from the config.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	cfg.defaults()
	return &Orchestrator{
		store:          cfg.Store,
		extractor:      cfg.Extractor,
		fetcher:        cfg.Fetcher,
		transcoder:     cfg.Transcoder,
		workDir:        cfg.WorkDir,
		maxParallel:    cfg.MaxParallel,
		hasCredentials: cfg.HasCredentials,
		logger:         cfg.Logger,
	}
}

// Enqueue registers a new task and starts it immediately if a slot is free,
// otherwise it waits in the pending queue. The returned copy is already in
// the starting phase.
func (o *Orchestrator) Enqueue(url, rename string) model.Task {
	t := o.store.Create(url, rename)

	o.mu.Lock()
	if o.activeCount < o.maxParallel {
		o.activeCount++
		go o.run(t.ID)
	} else {
		o.pending = append(o.pending, t.ID)
	}
	o.mu.Unlock()

	return t
}

// Active returns the number of tasks currently holding a pipeline slot.
func (o *Orchestrator) Active() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.activeCount
}

// run drives one task through the full pipeline. It always releases its slot
// and hands it to the next pending task.
func (o *Orchestrator) run(id string) {
	defer func() {
		o.mu.Lock()
		o.activeCount--
		o.mu.Unlock()
		o.startNextPending()
	}()

	// Tasks outlive the request that created them.
	ctx := context.Background()

	t, ok := o.store.Get(id)
	if !ok {
		return
	}
	log := o.logger.WithField("task", id)

	o.setPhase(id, model.PhaseExtracting, "Extracting video information...")
	meta, err := o.extractor.Extract(ctx, t.URL)
	if err != nil && model.CategoryOf(err) == model.CategoryBlocked {
		log.Warn("Extraction blocked, trying alternative methods")
		o.setPhase(id, model.PhaseExtracting, "YouTube blocked the request, trying alternative methods...")
		meta, err = o.extractor.ExtractWithFallback(ctx, t.URL)
	}
	if err != nil {
		o.fail(id, err)
		return
	}
	if meta.NeedsCredentials() && !o.hasCredentials() {
		o.fail(id, model.Classifiedf(model.CategoryForbidden,
			"video requires a signed-in session and no cookies are configured"))
		return
	}

	info := &model.VideoInfo{
		Title:     meta.Title,
		Thumbnail: meta.Thumbnail,
		Duration:  platform.FormatDuration(int(meta.Duration)),
	}
	o.store.Update(id, func(t *model.Task) { t.VideoInfo = info })
	log.Infof("Extracted metadata: %q (%s)", meta.Title, info.Duration)

	o.setPhase(id, model.PhaseDownloading, fmt.Sprintf("Downloading: %s", meta.Title))
	mediaPath, err := o.fetcher.Fetch(ctx, t.URL, id)
	if err != nil {
		o.fail(id, err)
		return
	}

	o.setPhase(id, model.PhaseConverting, "Converting video...")
	outputPath := o.store.OutputPath(id)
	if err := o.transcoder.Transcode(ctx, mediaPath, outputPath); err != nil {
		o.removeWorkFile(id, mediaPath)
		o.fail(id, err)
		return
	}
	o.removeWorkFile(id, mediaPath)

	filename := o.outputFilename(t.Rename, meta.Title)
	o.store.Update(id, func(t *model.Task) {
		t.Phase = model.PhaseReady
		t.Message = "Your video is ready for download!"
		t.OutputFilename = filename
		t.FinishedAt = time.Now()
	})
	log.Infof("Task ready: %s", filename)
}

// outputFilename derives the download filename presented to the user: the
// rename hint when given, otherwise the video title.
func (o *Orchestrator) outputFilename(rename, title string) string {
	name := rename
	if name == "" {
		name = title
	}
	name = platform.SanitizeFilename(name)
	if name == "" {
		name = "video"
	}
	return platform.EnsureMKVExtension(name)
}

func (o *Orchestrator) setPhase(id string, phase model.Phase, message string) {
	o.store.Update(id, func(t *model.Task) {
		t.Phase = phase
		t.Message = message
	})
}

// fail marks the task as errored with user-facing guidance and sweeps any
// leftover work files.
func (o *Orchestrator) fail(id string, err error) {
	category, msg := failureMessage(err)
	o.logger.WithFields(logrus.Fields{
		"task":     id,
		"category": string(category),
	}).Warnf("Task failed: %v", err)

	o.store.Update(id, func(t *model.Task) {
		t.Phase = model.PhaseError
		t.Message = msg
		t.FinishedAt = time.Now()
	})
	if err := platform.PurgeCandidates(o.workDir, id); err != nil {
		o.logger.Warnf("Failed to purge work files for task %s: %v", id, err)
	}
}

func (o *Orchestrator) removeWorkFile(id, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		o.logger.Warnf("Failed to remove work file for task %s: %v", id, err)
	}
}

// startNextPending claims a free slot for the oldest pending task, if any.
func (o *Orchestrator) startNextPending() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.activeCount >= o.maxParallel || len(o.pending) == 0 {
		return
	}
	next := o.pending[0]
	o.pending = o.pending[1:]
	o.activeCount++
	go o.run(next)
}
