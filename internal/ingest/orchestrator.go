// Package ingest runs the discover, extract, render and upsert pipeline over
// a fixed pool of workers.
package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/acsql/acsql/internal/config"
	"github.com/acsql/acsql/internal/database"
	"github.com/acsql/acsql/internal/discover"
	"github.com/acsql/acsql/internal/extract"
	"github.com/acsql/acsql/internal/models"
	"github.com/acsql/acsql/internal/render"
)

// Discoverer lists the files a run should consider.
type Discoverer interface {
	Discover(ctx context.Context, target discover.Target) ([]models.DataFile, error)
}

// Extractor reads record metadata from a file.
type Extractor interface {
	Extract(file models.DataFile) (*extract.Result, error)
}

// Generator writes the preview artifacts of a file.
type Generator interface {
	Generate(file models.DataFile) (models.Artifacts, error)
	Fresh(file models.DataFile) bool
}

// Options tunes a run.
type Options struct {
	Workers int
	// Force re-ingests files that are unchanged since their last ingest.
	Force      bool
	RetryDelay time.Duration
}

// Summary is the outcome of a run.
type Summary struct {
	RunID      string
	Target     string
	StartedAt  time.Time
	Duration   time.Duration
	Discovered int
	Processed  int
	Skipped    int
	Failed     int
	Inserted   int
	Updated    int
	Rendered   int
	Failures   []models.FileError
}

// OK reports whether every file was ingested or skipped.
func (s *Summary) OK() bool {
	return s.Failed == 0
}

// Orchestrator drives ingest runs against one store.
type Orchestrator struct {
	store      database.Store
	discoverer Discoverer
	extractor  Extractor
	generator  Generator
	upserter   *Upserter
	opts       Options
	log        logrus.FieldLogger
}

// New wires an Orchestrator from its stages.
func New(store database.Store, discoverer Discoverer, extractor Extractor, generator Generator, opts Options, logger logrus.FieldLogger) *Orchestrator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	return &Orchestrator{
		store:      store,
		discoverer: discoverer,
		extractor:  extractor,
		generator:  generator,
		upserter:   NewUpserter(opts.RetryDelay, logger.WithField("component", "upsert")),
		opts:       opts,
		log:        logger,
	}
}

// NewFromConfig builds the standard pipeline for cfg.
func NewFromConfig(cfg *config.Config, store database.Store, force bool, logger logrus.FieldLogger) *Orchestrator {
	return New(
		store,
		discover.New(cfg.FilesystemRoot, logger.WithField("component", "discover")),
		extract.New(),
		render.New(cfg.JPEGDir, cfg.ThumbnailDir, logger.WithField("component", "render")),
		Options{Workers: cfg.Workers, Force: force},
		logger,
	)
}

// Run ingests every file selected by target. Per-file failures are collected
// in the summary; only discovery failures, store failures while planning the
// run and cancellation are returned as errors.
func (o *Orchestrator) Run(ctx context.Context, target Target) (*Summary, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}

	summary := &Summary{
		RunID:     uuid.NewString(),
		Target:    target.String(),
		StartedAt: time.Now(),
	}
	log := o.log.WithField("run", summary.RunID)
	log.Infof("Starting ingest of %s with %d workers", summary.Target, o.opts.Workers)

	files, err := o.discoverer.Discover(ctx, target.discoverTarget())
	if err != nil {
		return nil, err
	}
	summary.Discovered = len(files)

	if target.Mode == ModeNew {
		if files, err = o.selectNew(ctx, files); err != nil {
			return nil, err
		}
		log.Infof("%d of %d files are new since the last run", len(files), summary.Discovered)
	}

	partitions := Partition(files, o.opts.Workers)

	failures := make(chan models.FileError, len(partitions))
	var collector sync.WaitGroup
	collector.Add(1)
	go func() {
		defer collector.Done()
		for failure := range failures {
			log.WithFields(logrus.Fields{
				"identifier": failure.Identifier,
				"stage":      failure.Stage,
			}).Errorf("Failed: %v", failure.Err)
			summary.Failures = append(summary.Failures, failure)
		}
	}()

	results := make([]workerResult, len(partitions))
	g, gctx := errgroup.WithContext(ctx)
	for i, part := range partitions {
		w := &worker{
			id:        i + 1,
			orch:      o,
			session:   newScopedSession(o.store),
			failures:  failures,
			result:    &results[i],
			log:       log.WithField("worker", i+1),
			partition: part,
		}
		g.Go(func() error {
			return w.run(gctx)
		})
	}
	runErr := g.Wait()
	close(failures)
	collector.Wait()

	for _, r := range results {
		summary.Processed += r.processed
		summary.Skipped += r.skipped
		summary.Inserted += r.inserted
		summary.Updated += r.updated
		summary.Rendered += r.rendered
	}
	summary.Failed = len(summary.Failures)
	summary.Duration = time.Since(summary.StartedAt)

	if runErr == nil {
		o.saveRun(ctx, summary)
	}

	log.WithFields(logrus.Fields{
		"processed": summary.Processed,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
		"duration":  summary.Duration.Round(time.Millisecond),
	}).Info("Ingest finished")

	return summary, runErr
}

func (o *Orchestrator) selectNew(ctx context.Context, files []models.DataFile) ([]models.DataFile, error) {
	known, err := o.store.Rootnames(ctx)
	if err != nil {
		return nil, err
	}
	var since time.Time
	last, err := o.store.LastRun(ctx)
	switch {
	case err == nil:
		since = last.StartedAt
	case !errors.Is(err, database.ErrNotFound):
		return nil, err
	}

	selected := files[:0:0]
	for _, f := range files {
		if !known[f.Rootname] || f.ModTime.After(since) {
			selected = append(selected, f)
		}
	}
	return selected, nil
}

func (o *Orchestrator) saveRun(ctx context.Context, summary *Summary) {
	run := database.IngestRun{
		ID:         summary.RunID,
		Target:     summary.Target,
		StartedAt:  summary.StartedAt,
		FinishedAt: summary.StartedAt.Add(summary.Duration),
		Processed:  int64(summary.Processed),
		Skipped:    int64(summary.Skipped),
		Failed:     int64(summary.Failed),
	}
	if err := o.store.SaveRun(ctx, run); err != nil {
		o.log.Warnf("Could not record ingest run %s: %v", summary.RunID, err)
	}
}
