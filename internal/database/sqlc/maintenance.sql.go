package sqldb

import "context"

const deleteAllHeaderKeywords = `DELETE FROM header_keywords`

func (q *Queries) DeleteAllHeaderKeywords(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllHeaderKeywords)
	return err
}

const deleteAllRecords = `DELETE FROM records`

func (q *Queries) DeleteAllRecords(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllRecords)
	return err
}

const deleteAllIngestRuns = `DELETE FROM ingest_runs`

func (q *Queries) DeleteAllIngestRuns(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllIngestRuns)
	return err
}
