package database

import (
	"context"
	"time"

	"github.com/acsql/acsql/internal/models"
)

// UpsertOutcome tells whether an upsert created or replaced a row.
type UpsertOutcome int

const (
	Inserted UpsertOutcome = iota + 1
	Updated
)

func (o UpsertOutcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	default:
		return "unknown"
	}
}

// Sort keys accepted by RecordQuery.
const (
	SortExpStart = "expstart"
	SortExpTime  = "exptime"
	SortRootname = "rootname"
	SortTargName = "targname"
)

// SortKeys lists the valid RecordQuery.Sort values.
var SortKeys = []string{SortExpStart, SortExpTime, SortRootname, SortTargName}

// RecordQuery narrows ListByProposal. Empty fields match everything.
type RecordQuery struct {
	Filetype string `json:"filetype,omitempty"`
	Detector string `json:"detector,omitempty"`
	Visit    string `json:"visit,omitempty"`
	Target   string `json:"target,omitempty"`
	// Filter matches either filter wheel.
	Filter string `json:"filter,omitempty"`
	// Sort defaults to SortExpStart; ties are broken by rootname then filetype.
	Sort string `json:"sort,omitempty"`
}

// ProposalSummary is one row of the proposal index.
type ProposalSummary struct {
	ProposalID     string    `json:"proposal_id"`
	Records        int64     `json:"records"`
	Rootnames      int64     `json:"rootnames"`
	LastIngestedAt time.Time `json:"last_ingested_at"`
}

// IngestRun records the outcome of one orchestrator run.
type IngestRun struct {
	ID         string
	Target     string
	StartedAt  time.Time
	FinishedAt time.Time
	Processed  int64
	Skipped    int64
	Failed     int64
}

// Reader is the read-only query surface used by the catalog views.
type Reader interface {
	FindRecord(ctx context.Context, identifier string) (*models.Record, error)
	ListByProposal(ctx context.Context, proposalID string, query RecordQuery) ([]models.Record, error)
	ListProposals(ctx context.Context) ([]ProposalSummary, error)
	ListFiletypes(ctx context.Context, rootname string) ([]string, error)
	HeaderKeywords(ctx context.Context, identifier string) ([]models.HeaderKeyword, error)
}

// Store is a database backend.
type Store interface {
	Reader

	// Acquire checks out a dedicated connection. Callers must Release it.
	Acquire(ctx context.Context) (Session, error)
	Rootnames(ctx context.Context) (map[string]bool, error)
	// LastRun returns ErrNotFound when no run has been recorded.
	LastRun(ctx context.Context) (*IngestRun, error)
	SaveRun(ctx context.Context, run IngestRun) error
	Clear(ctx context.Context) error
	Close() error
}

// Session is one checked-out connection, owned by a single worker.
type Session interface {
	// FindRecord returns ErrNotFound when identifier has never been ingested.
	FindRecord(ctx context.Context, identifier string) (*models.Record, error)
	// UpsertRecord writes record and replaces its header keywords in one
	// transaction. LastIngestedAt defaults to now.
	UpsertRecord(ctx context.Context, record models.Record, headers []models.HeaderKeyword) (UpsertOutcome, error)
	Release()
}
