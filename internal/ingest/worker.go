package ingest

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/acsql/acsql/internal/database"
	"github.com/acsql/acsql/internal/models"
)

type workerResult struct {
	processed int
	skipped   int
	inserted  int
	updated   int
	rendered  int
}

// worker owns one partition and one database session for the whole run.
type worker struct {
	id        int
	orch      *Orchestrator
	session   *scopedSession
	partition []models.DataFile
	failures  chan<- models.FileError
	result    *workerResult
	log       logrus.FieldLogger
}

func (w *worker) run(ctx context.Context) error {
	defer w.session.Release()

	w.log.Debugf("Worker %d starting with %d files", w.id, len(w.partition))
	for _, file := range w.partition {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.process(ctx, file); err != nil {
			w.failures <- models.FileError{
				Identifier: file.Identifier(),
				Path:       file.Path,
				Stage:      models.StageOf(err),
				Err:        err,
			}
		}
	}
	w.log.Debugf("Worker %d finished", w.id)
	return nil
}

func (w *worker) process(ctx context.Context, file models.DataFile) error {
	log := w.log.WithField("identifier", file.Identifier())

	if !w.orch.opts.Force && w.unchanged(ctx, file, log) {
		log.Debug("Unchanged, skipping")
		w.result.skipped++
		return nil
	}

	result, err := w.orch.extractor.Extract(file)
	if err != nil {
		return err
	}

	artifacts, err := w.orch.generator.Generate(file)
	if err != nil {
		return err
	}
	if artifacts.Rendered {
		w.result.rendered++
	}

	record := result.Record
	record.JPEGPath = artifacts.JPEGPath
	record.ThumbnailPath = artifacts.ThumbnailPath

	outcome, err := w.orch.upserter.Upsert(ctx, w.session, record, result.Headers)
	if err != nil {
		return err
	}

	w.result.processed++
	switch outcome {
	case database.Inserted:
		w.result.inserted++
	case database.Updated:
		w.result.updated++
	}
	log.Infof("Ingested (%s)", outcome)
	return nil
}

// unchanged reports whether the stored record is at least as new as the file
// and every artifact is fresh. Lookup failures count as changed so the
// upsert path, which retries, gets to handle them.
func (w *worker) unchanged(ctx context.Context, file models.DataFile, log logrus.FieldLogger) bool {
	session, err := w.session.get(ctx)
	if err != nil {
		log.Warnf("Could not acquire session for freshness check: %v", err)
		return false
	}
	record, err := session.FindRecord(ctx, file.Identifier())
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			log.Warnf("Could not look up existing record: %v", err)
			if database.IsConnectivityError(err) {
				w.session.reset()
			}
		}
		return false
	}
	return !record.SourceModTime.Before(file.ModTime) && w.orch.generator.Fresh(file)
}
