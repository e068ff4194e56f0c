package services

import (
	"context"
	"errors"
	"strings"

	"github.com/acsql/acsql/internal/database"
	"github.com/acsql/acsql/internal/models"
)

// ErrNotFound is returned when a requested record is not found.
var ErrNotFound = errors.New("record not found")

// RecordInfo is a record with its header keywords and the other filetypes
// ingested for the same rootname.
type RecordInfo struct {
	Record    models.Record          `json:"record"`
	Filetypes []string               `json:"filetypes"`
	Headers   []models.HeaderKeyword `json:"headers,omitempty"`
}

// RecordService looks up single records.
type RecordService struct {
	store database.Reader
}

// NewRecordService creates a new RecordService.
func NewRecordService(store database.Reader) *RecordService {
	return &RecordService{store: store}
}

// Info returns the record stored under identifier. A bare rootname resolves
// to its flt record.
func (s *RecordService) Info(ctx context.Context, identifier string, withHeaders bool) (*RecordInfo, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if _, _, ok := models.SplitIdentifier(identifier); !ok {
		identifier = models.Identifier(identifier, DefaultFiletype)
	}

	record, err := s.store.FindRecord(ctx, identifier)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	filetypes, err := s.store.ListFiletypes(ctx, record.Rootname)
	if err != nil {
		return nil, err
	}

	info := &RecordInfo{Record: *record, Filetypes: filetypes}
	if withHeaders {
		if info.Headers, err = s.store.HeaderKeywords(ctx, identifier); err != nil {
			return nil, err
		}
	}
	return info, nil
}
