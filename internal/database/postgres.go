package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	pgmigrations "github.com/acsql/acsql/db/migrations/postgres"
	sqldb "github.com/acsql/acsql/internal/database/sqlc"
	"github.com/acsql/acsql/internal/models"

	// Registers the "pgx" database/sql driver used by the migrator.
	_ "github.com/jackc/pgx/v5/stdlib"
)

const pgRecordColumns = `identifier, rootname, filetype, program, proposal_id, visit,
    detector, aperture, filter1, filter2, expstart, exptime, expflag, quality,
    targname, date_obs, time_obs, ra_targ, dec_targ, pi_first_name, pi_last_name,
    jpeg_path, thumbnail_path, source_path, source_mtime, checksum,
    first_ingested_at, last_ingested_at`

const pgUpsertRecord = `INSERT INTO records (` + pgRecordColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)
ON CONFLICT (identifier) DO UPDATE SET
    rootname = EXCLUDED.rootname,
    filetype = EXCLUDED.filetype,
    program = EXCLUDED.program,
    proposal_id = EXCLUDED.proposal_id,
    visit = EXCLUDED.visit,
    detector = EXCLUDED.detector,
    aperture = EXCLUDED.aperture,
    filter1 = EXCLUDED.filter1,
    filter2 = EXCLUDED.filter2,
    expstart = EXCLUDED.expstart,
    exptime = EXCLUDED.exptime,
    expflag = EXCLUDED.expflag,
    quality = EXCLUDED.quality,
    targname = EXCLUDED.targname,
    date_obs = EXCLUDED.date_obs,
    time_obs = EXCLUDED.time_obs,
    ra_targ = EXCLUDED.ra_targ,
    dec_targ = EXCLUDED.dec_targ,
    pi_first_name = EXCLUDED.pi_first_name,
    pi_last_name = EXCLUDED.pi_last_name,
    jpeg_path = EXCLUDED.jpeg_path,
    thumbnail_path = EXCLUDED.thumbnail_path,
    source_path = EXCLUDED.source_path,
    source_mtime = EXCLUDED.source_mtime,
    checksum = EXCLUDED.checksum,
    last_ingested_at = EXCLUDED.last_ingested_at
RETURNING (xmax = 0) AS inserted`

const pgGetRecord = `SELECT ` + pgRecordColumns + ` FROM records WHERE identifier = $1`

const pgListRecordsByProposal = `SELECT ` + pgRecordColumns + `
FROM records
WHERE proposal_id = $1
  AND ($2 = '' OR filetype = $2)
  AND ($3 = '' OR detector = $3)
  AND ($4 = '' OR visit = $4)
  AND ($5 = '' OR targname = $5)
  AND ($6 = '' OR filter1 = $6 OR filter2 = $6)
ORDER BY expstart, rootname, filetype`

var headerKeywordColumns = []string{"identifier", "extension", "position", "keyword", "value"}

// PostgresStore is the Store backed by a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres applies the PostgreSQL migrations and connects a pool.
func OpenPostgres(ctx context.Context, connStr string) (*PostgresStore, error) {
	if err := runPostgresMigrations(connStr); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func runPostgresMigrations(connStr string) error {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer func() { _ = db.Close() }()

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("failed to initialise migrate driver: %w", err)
	}

	sourceDriver, err := iofs.New(pgmigrations.Files, ".")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	defer func() {
		_ = sourceDriver.Close()
	}()

	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, "pgx", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) Acquire(ctx context.Context) (Session, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &postgresSession{conn: conn}, nil
}

func (s *PostgresStore) FindRecord(ctx context.Context, identifier string) (*models.Record, error) {
	return pgFindRecord(ctx, s.pool, identifier)
}

func (s *PostgresStore) ListByProposal(ctx context.Context, proposalID string, query RecordQuery) ([]models.Record, error) {
	rows, err := s.pool.Query(ctx, pgListRecordsByProposal,
		proposalID, query.Filetype, query.Detector, query.Visit, query.Target, query.Filter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		row, err := pgScanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, RecordFromRow(row))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortRecords(records, query.Sort)
	return records, nil
}

func (s *PostgresStore) ListProposals(ctx context.Context) ([]ProposalSummary, error) {
	rows, err := s.pool.Query(ctx, `SELECT proposal_id, COUNT(*), COUNT(DISTINCT rootname), MAX(last_ingested_at)
FROM records GROUP BY proposal_id ORDER BY proposal_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ProposalSummary
	for rows.Next() {
		var row sqldb.ListProposalsRow
		if err := rows.Scan(&row.ProposalID, &row.RecordCount, &row.RootnameCount, &row.LastIngestedAt); err != nil {
			return nil, err
		}
		result = append(result, proposalSummaryFromRow(row))
	}
	return result, rows.Err()
}

func (s *PostgresStore) ListFiletypes(ctx context.Context, rootname string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT filetype FROM records WHERE rootname = $1 ORDER BY filetype`, rootname)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *PostgresStore) HeaderKeywords(ctx context.Context, identifier string) ([]models.HeaderKeyword, error) {
	rows, err := s.pool.Query(ctx, `SELECT identifier, extension, position, keyword, value
FROM header_keywords WHERE identifier = $1 ORDER BY extension, position`, identifier)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.HeaderKeyword
	for rows.Next() {
		var row sqldb.HeaderKeyword
		if err := rows.Scan(&row.Identifier, &row.Extension, &row.Position, &row.Keyword, &row.Value); err != nil {
			return nil, err
		}
		result = append(result, HeaderKeywordFromRow(row))
	}
	return result, rows.Err()
}

func (s *PostgresStore) Rootnames(ctx context.Context) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT rootname FROM records`)
	if err != nil {
		return nil, err
	}
	rootnames, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	result := make(map[string]bool, len(rootnames))
	for _, rootname := range rootnames {
		result[rootname] = true
	}
	return result, nil
}

func (s *PostgresStore) LastRun(ctx context.Context) (*IngestRun, error) {
	var row sqldb.IngestRun
	err := s.pool.QueryRow(ctx, `SELECT id, target, started_at, finished_at, processed, skipped, failed
FROM ingest_runs ORDER BY started_at DESC LIMIT 1`).
		Scan(&row.ID, &row.Target, &row.StartedAt, &row.FinishedAt, &row.Processed, &row.Skipped, &row.Failed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	run := IngestRunFromRow(row)
	return &run, nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, run IngestRun) error {
	p := ingestRunParams(run)
	_, err := s.pool.Exec(ctx, `INSERT INTO ingest_runs (id, target, started_at, finished_at, processed, skipped, failed)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, p.ID, p.Target, p.StartedAt, p.FinishedAt, p.Processed, p.Skipped, p.Failed)
	return err
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE header_keywords, records, ingest_runs`); err != nil {
		return fmt.Errorf("failed to clear database: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

type postgresSession struct {
	conn *pgxpool.Conn
}

func (s *postgresSession) FindRecord(ctx context.Context, identifier string) (*models.Record, error) {
	return pgFindRecord(ctx, s.conn, identifier)
}

func (s *postgresSession) UpsertRecord(ctx context.Context, record models.Record, headers []models.HeaderKeyword) (UpsertOutcome, error) {
	ingestedAt := record.LastIngestedAt
	if ingestedAt.IsZero() {
		ingestedAt = time.Now()
	}
	p := RecordParams(record, ingestedAt)

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("error beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var inserted bool
	err = tx.QueryRow(ctx, pgUpsertRecord,
		p.Identifier, p.Rootname, p.Filetype, p.Program, p.ProposalID, p.Visit,
		p.Detector, p.Aperture, p.Filter1, p.Filter2, p.Expstart, p.Exptime, p.Expflag, p.Quality,
		p.Targname, p.DateObs, p.TimeObs, p.RaTarg, p.DecTarg, p.PiFirstName, p.PiLastName,
		p.JpegPath, p.ThumbnailPath, p.SourcePath, p.SourceMtime, p.Checksum,
		p.FirstIngestedAt, p.LastIngestedAt,
	).Scan(&inserted)
	if err != nil {
		return 0, fmt.Errorf("error upserting record: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM header_keywords WHERE identifier = $1`, record.Identifier); err != nil {
		return 0, fmt.Errorf("error deleting header keywords: %w", err)
	}
	_, err = tx.CopyFrom(ctx, pgx.Identifier{"header_keywords"}, headerKeywordColumns,
		pgx.CopyFromSlice(len(headers), func(i int) ([]any, error) {
			h := headerKeywordParams(record.Identifier, headers[i])
			return []any{h.Identifier, h.Extension, h.Position, h.Keyword, h.Value}, nil
		}))
	if err != nil {
		return 0, fmt.Errorf("error copying header keywords: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("error committing transaction: %w", err)
	}
	if inserted {
		return Inserted, nil
	}
	return Updated, nil
}

func (s *postgresSession) Release() {
	s.conn.Release()
}

type pgQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func pgFindRecord(ctx context.Context, q pgQuerier, identifier string) (*models.Record, error) {
	row, err := pgScanRecord(q.QueryRow(ctx, pgGetRecord, identifier))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	record := RecordFromRow(row)
	return &record, nil
}

func pgScanRecord(row pgx.Row) (sqldb.Record, error) {
	var i sqldb.Record
	err := row.Scan(
		&i.Identifier, &i.Rootname, &i.Filetype, &i.Program, &i.ProposalID, &i.Visit,
		&i.Detector, &i.Aperture, &i.Filter1, &i.Filter2, &i.Expstart, &i.Exptime, &i.Expflag, &i.Quality,
		&i.Targname, &i.DateObs, &i.TimeObs, &i.RaTarg, &i.DecTarg, &i.PiFirstName, &i.PiLastName,
		&i.JpegPath, &i.ThumbnailPath, &i.SourcePath, &i.SourceMtime, &i.Checksum,
		&i.FirstIngestedAt, &i.LastIngestedAt,
	)
	return i, err
}
