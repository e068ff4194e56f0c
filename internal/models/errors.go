package models

import (
	"errors"
	"fmt"
)

// Stage names the pipeline step a failure happened in.
type Stage string

const (
	StageDiscover Stage = "discover"
	StageExtract  Stage = "extract"
	StageRender   Stage = "render"
	StageUpsert   Stage = "upsert"
)

// DiscoveryError aborts a run: the filesystem root could not be walked.
type DiscoveryError struct {
	Root string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery failed for %s: %v", e.Root, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// ExtractionError means the header of a file could not be read or lacked required fields.
type ExtractionError struct {
	Identifier string
	Path       string
	Err        error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: extraction failed for %s: %v", e.Identifier, e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// RenderError means the image data of a file could not be turned into artifacts.
type RenderError struct {
	Identifier string
	Path       string
	Err        error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("%s: render failed for %s: %v", e.Identifier, e.Path, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// UpsertError means the record could not be written to the store.
type UpsertError struct {
	Identifier string
	Err        error
}

func (e *UpsertError) Error() string {
	return fmt.Sprintf("%s: upsert failed: %v", e.Identifier, e.Err)
}

func (e *UpsertError) Unwrap() error { return e.Err }

// FileError is a per-file failure as reported in a run summary.
type FileError struct {
	Identifier string
	Path       string
	Stage      Stage
	Err        error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s [%s]: %v", e.Identifier, e.Stage, e.Err)
}

// StageOf classifies err by the typed pipeline error it wraps.
func StageOf(err error) Stage {
	var (
		discoveryErr  *DiscoveryError
		extractionErr *ExtractionError
		renderErr     *RenderError
		upsertErr     *UpsertError
	)
	switch {
	case errors.As(err, &discoveryErr):
		return StageDiscover
	case errors.As(err, &extractionErr):
		return StageExtract
	case errors.As(err, &renderErr):
		return StageRender
	case errors.As(err, &upsertErr):
		return StageUpsert
	default:
		return ""
	}
}
