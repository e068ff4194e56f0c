// Package usecase composes store and filesystem operations that span more
// than one component.
package usecase

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/acsql/acsql/internal/config"
	"github.com/acsql/acsql/internal/database"
	"github.com/acsql/acsql/internal/filesystem"
)

// ResetResult reports what a reset removed.
type ResetResult struct {
	JPEGs      int
	Thumbnails int
}

// Reset clears every catalog table and the generated preview images.
// Source FITS files are never touched.
type Reset struct {
	store database.Store
	cfg   *config.Config
	log   logrus.FieldLogger
}

func NewReset(store database.Store, cfg *config.Config, logger logrus.FieldLogger) *Reset {
	return &Reset{store: store, cfg: cfg, log: logger}
}

func (u *Reset) Run(ctx context.Context) (*ResetResult, error) {
	if err := u.store.Clear(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear database: %w", err)
	}
	u.log.Info("Cleared records, header keywords and ingest runs")

	result := &ResetResult{}
	var err error
	if result.JPEGs, err = filesystem.RemoveContents(u.cfg.JPEGDir); err != nil {
		return result, fmt.Errorf("failed to clear %s: %w", u.cfg.JPEGDir, err)
	}
	if result.Thumbnails, err = filesystem.RemoveContents(u.cfg.ThumbnailDir); err != nil {
		return result, fmt.Errorf("failed to clear %s: %w", u.cfg.ThumbnailDir, err)
	}
	u.log.Infof("Removed %d JPEG and %d thumbnail entries", result.JPEGs, result.Thumbnails)

	return result, nil
}
