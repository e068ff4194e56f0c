package sqldb

import "context"

const insertIngestRun = `INSERT INTO ingest_runs (id, target, started_at, finished_at, processed, skipped, failed)
VALUES (?, ?, ?, ?, ?, ?, ?)`

type InsertIngestRunParams = IngestRun

func (q *Queries) InsertIngestRun(ctx context.Context, arg InsertIngestRunParams) error {
	_, err := q.db.ExecContext(ctx, insertIngestRun,
		arg.ID,
		arg.Target,
		arg.StartedAt,
		arg.FinishedAt,
		arg.Processed,
		arg.Skipped,
		arg.Failed,
	)
	return err
}

const getLastIngestRun = `SELECT id, target, started_at, finished_at, processed, skipped, failed
FROM ingest_runs
ORDER BY started_at DESC
LIMIT 1`

func (q *Queries) GetLastIngestRun(ctx context.Context) (IngestRun, error) {
	row := q.db.QueryRowContext(ctx, getLastIngestRun)
	var i IngestRun
	err := row.Scan(&i.ID, &i.Target, &i.StartedAt, &i.FinishedAt, &i.Processed, &i.Skipped, &i.Failed)
	return i, err
}
