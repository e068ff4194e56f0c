package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqldb "github.com/acsql/acsql/internal/database/sqlc"
	"github.com/acsql/acsql/internal/models"
)

// SQLiteStore is the Store backed by a local SQLite file.
type SQLiteStore struct {
	ctx *Context
}

// NewSQLiteStore wraps an opened database.
func NewSQLiteStore(dbCtx *Context) *SQLiteStore {
	return &SQLiteStore{ctx: dbCtx}
}

func (s *SQLiteStore) queries() (*sqldb.Queries, error) {
	if s.ctx == nil || s.ctx.DB == nil {
		return nil, fmt.Errorf("sqlite store: missing database context")
	}
	if s.ctx.Queries != nil {
		return s.ctx.Queries, nil
	}
	return sqldb.New(s.ctx.DB), nil
}

func (s *SQLiteStore) Acquire(ctx context.Context) (Session, error) {
	if s.ctx == nil || s.ctx.DB == nil {
		return nil, fmt.Errorf("sqlite store: missing database context")
	}
	conn, err := s.ctx.DB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &sqliteSession{conn: conn, queries: sqldb.New(conn)}, nil
}

func (s *SQLiteStore) FindRecord(ctx context.Context, identifier string) (*models.Record, error) {
	queries, err := s.queries()
	if err != nil {
		return nil, err
	}
	return findRecord(ctx, queries, identifier)
}

func (s *SQLiteStore) ListByProposal(ctx context.Context, proposalID string, query RecordQuery) ([]models.Record, error) {
	queries, err := s.queries()
	if err != nil {
		return nil, err
	}

	rows, err := queries.ListRecordsByProposal(ctx, sqldb.ListRecordsByProposalParams{
		ProposalID: proposalID,
		Filetype:   query.Filetype,
		Detector:   query.Detector,
		Visit:      query.Visit,
		Targname:   query.Target,
		Filter:     query.Filter,
	})
	if err != nil {
		return nil, err
	}

	records := make([]models.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, RecordFromRow(row))
	}
	sortRecords(records, query.Sort)
	return records, nil
}

func (s *SQLiteStore) ListProposals(ctx context.Context) ([]ProposalSummary, error) {
	queries, err := s.queries()
	if err != nil {
		return nil, err
	}
	rows, err := queries.ListProposals(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]ProposalSummary, 0, len(rows))
	for _, row := range rows {
		result = append(result, proposalSummaryFromRow(row))
	}
	return result, nil
}

func (s *SQLiteStore) ListFiletypes(ctx context.Context, rootname string) ([]string, error) {
	queries, err := s.queries()
	if err != nil {
		return nil, err
	}
	return queries.ListFiletypesByRootname(ctx, rootname)
}

func (s *SQLiteStore) HeaderKeywords(ctx context.Context, identifier string) ([]models.HeaderKeyword, error) {
	queries, err := s.queries()
	if err != nil {
		return nil, err
	}
	rows, err := queries.ListHeaderKeywords(ctx, identifier)
	if err != nil {
		return nil, err
	}
	result := make([]models.HeaderKeyword, 0, len(rows))
	for _, row := range rows {
		result = append(result, HeaderKeywordFromRow(row))
	}
	return result, nil
}

func (s *SQLiteStore) Rootnames(ctx context.Context) (map[string]bool, error) {
	queries, err := s.queries()
	if err != nil {
		return nil, err
	}
	rows, err := queries.ListRootnames(ctx)
	if err != nil {
		return nil, err
	}
	result := make(map[string]bool, len(rows))
	for _, rootname := range rows {
		result[rootname] = true
	}
	return result, nil
}

func (s *SQLiteStore) LastRun(ctx context.Context) (*IngestRun, error) {
	queries, err := s.queries()
	if err != nil {
		return nil, err
	}
	row, err := queries.GetLastIngestRun(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	run := IngestRunFromRow(row)
	return &run, nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run IngestRun) error {
	queries, err := s.queries()
	if err != nil {
		return err
	}
	return queries.InsertIngestRun(ctx, ingestRunParams(run))
}

func (s *SQLiteStore) Clear(_ context.Context) error {
	return ClearDatabase(s.ctx)
}

func (s *SQLiteStore) Close() error {
	return CloseDatabase(s.ctx)
}

type sqliteSession struct {
	conn    *sql.Conn
	queries *sqldb.Queries
}

func (s *sqliteSession) FindRecord(ctx context.Context, identifier string) (*models.Record, error) {
	return findRecord(ctx, s.queries, identifier)
}

func (s *sqliteSession) UpsertRecord(ctx context.Context, record models.Record, headers []models.HeaderKeyword) (UpsertOutcome, error) {
	ingestedAt := record.LastIngestedAt
	if ingestedAt.IsZero() {
		ingestedAt = time.Now()
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	queries := s.queries.WithTx(tx)

	outcome, err := func() (UpsertOutcome, error) {
		exists, err := queries.RecordExists(ctx, record.Identifier)
		if err != nil {
			return 0, fmt.Errorf("failed to check record: %w", err)
		}
		if err := queries.UpsertRecord(ctx, RecordParams(record, ingestedAt)); err != nil {
			return 0, fmt.Errorf("failed to upsert record: %w", err)
		}
		if err := queries.DeleteHeaderKeywords(ctx, record.Identifier); err != nil {
			return 0, fmt.Errorf("failed to delete header keywords: %w", err)
		}
		for _, h := range headers {
			if err := queries.InsertHeaderKeyword(ctx, headerKeywordParams(record.Identifier, h)); err != nil {
				return 0, fmt.Errorf("failed to insert header keyword %s: %w", h.Keyword, err)
			}
		}
		if exists != 0 {
			return Updated, nil
		}
		return Inserted, nil
	}()
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return 0, fmt.Errorf("%w (rollback error: %w)", err, rbErr)
		}
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit upsert: %w", err)
	}
	return outcome, nil
}

func (s *sqliteSession) Release() {
	_ = s.conn.Close()
}

func findRecord(ctx context.Context, queries *sqldb.Queries, identifier string) (*models.Record, error) {
	row, err := queries.GetRecord(ctx, identifier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	record := RecordFromRow(row)
	return &record, nil
}
