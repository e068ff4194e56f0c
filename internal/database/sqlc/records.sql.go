package sqldb

import "context"

const recordExists = `SELECT EXISTS(SELECT 1 FROM records WHERE identifier = ?)`

func (q *Queries) RecordExists(ctx context.Context, identifier string) (int64, error) {
	row := q.db.QueryRowContext(ctx, recordExists, identifier)
	var exists int64
	err := row.Scan(&exists)
	return exists, err
}

const upsertRecord = `INSERT INTO records (
    identifier, rootname, filetype, program, proposal_id, visit,
    detector, aperture, filter1, filter2, expstart, exptime, expflag, quality,
    targname, date_obs, time_obs, ra_targ, dec_targ, pi_first_name, pi_last_name,
    jpeg_path, thumbnail_path, source_path, source_mtime, checksum,
    first_ingested_at, last_ingested_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(identifier) DO UPDATE SET
    rootname = excluded.rootname,
    filetype = excluded.filetype,
    program = excluded.program,
    proposal_id = excluded.proposal_id,
    visit = excluded.visit,
    detector = excluded.detector,
    aperture = excluded.aperture,
    filter1 = excluded.filter1,
    filter2 = excluded.filter2,
    expstart = excluded.expstart,
    exptime = excluded.exptime,
    expflag = excluded.expflag,
    quality = excluded.quality,
    targname = excluded.targname,
    date_obs = excluded.date_obs,
    time_obs = excluded.time_obs,
    ra_targ = excluded.ra_targ,
    dec_targ = excluded.dec_targ,
    pi_first_name = excluded.pi_first_name,
    pi_last_name = excluded.pi_last_name,
    jpeg_path = excluded.jpeg_path,
    thumbnail_path = excluded.thumbnail_path,
    source_path = excluded.source_path,
    source_mtime = excluded.source_mtime,
    checksum = excluded.checksum,
    last_ingested_at = excluded.last_ingested_at`

type UpsertRecordParams = Record

func (q *Queries) UpsertRecord(ctx context.Context, arg UpsertRecordParams) error {
	_, err := q.db.ExecContext(ctx, upsertRecord,
		arg.Identifier,
		arg.Rootname,
		arg.Filetype,
		arg.Program,
		arg.ProposalID,
		arg.Visit,
		arg.Detector,
		arg.Aperture,
		arg.Filter1,
		arg.Filter2,
		arg.Expstart,
		arg.Exptime,
		arg.Expflag,
		arg.Quality,
		arg.Targname,
		arg.DateObs,
		arg.TimeObs,
		arg.RaTarg,
		arg.DecTarg,
		arg.PiFirstName,
		arg.PiLastName,
		arg.JpegPath,
		arg.ThumbnailPath,
		arg.SourcePath,
		arg.SourceMtime,
		arg.Checksum,
		arg.FirstIngestedAt,
		arg.LastIngestedAt,
	)
	return err
}

const recordColumns = `identifier, rootname, filetype, program, proposal_id, visit,
    detector, aperture, filter1, filter2, expstart, exptime, expflag, quality,
    targname, date_obs, time_obs, ra_targ, dec_targ, pi_first_name, pi_last_name,
    jpeg_path, thumbnail_path, source_path, source_mtime, checksum,
    first_ingested_at, last_ingested_at`

const getRecord = `SELECT ` + recordColumns + `
FROM records
WHERE identifier = ?`

func (q *Queries) GetRecord(ctx context.Context, identifier string) (Record, error) {
	row := q.db.QueryRowContext(ctx, getRecord, identifier)
	return scanRecord(row)
}

const listRecordsByProposal = `SELECT ` + recordColumns + `
FROM records
WHERE proposal_id = ?
  AND (? = '' OR filetype = ?)
  AND (? = '' OR detector = ?)
  AND (? = '' OR visit = ?)
  AND (? = '' OR targname = ?)
  AND (? = '' OR filter1 = ? OR filter2 = ?)
ORDER BY expstart, rootname, filetype`

type ListRecordsByProposalParams struct {
	ProposalID string
	Filetype   string
	Detector   string
	Visit      string
	Targname   string
	Filter     string
}

func (q *Queries) ListRecordsByProposal(ctx context.Context, arg ListRecordsByProposalParams) ([]Record, error) {
	rows, err := q.db.QueryContext(ctx, listRecordsByProposal,
		arg.ProposalID,
		arg.Filetype, arg.Filetype,
		arg.Detector, arg.Detector,
		arg.Visit, arg.Visit,
		arg.Targname, arg.Targname,
		arg.Filter, arg.Filter, arg.Filter,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Record
	for rows.Next() {
		i, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listProposals = `SELECT proposal_id, COUNT(*) AS record_count, COUNT(DISTINCT rootname) AS rootname_count,
    MAX(last_ingested_at) AS last_ingested_at
FROM records
GROUP BY proposal_id
ORDER BY proposal_id`

type ListProposalsRow struct {
	ProposalID     string
	RecordCount    int64
	RootnameCount  int64
	LastIngestedAt int64
}

func (q *Queries) ListProposals(ctx context.Context) ([]ListProposalsRow, error) {
	rows, err := q.db.QueryContext(ctx, listProposals)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListProposalsRow
	for rows.Next() {
		var i ListProposalsRow
		if err := rows.Scan(&i.ProposalID, &i.RecordCount, &i.RootnameCount, &i.LastIngestedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listFiletypesByRootname = `SELECT filetype FROM records WHERE rootname = ? ORDER BY filetype`

func (q *Queries) ListFiletypesByRootname(ctx context.Context, rootname string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listFiletypesByRootname, rootname)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var filetype string
		if err := rows.Scan(&filetype); err != nil {
			return nil, err
		}
		items = append(items, filetype)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listRootnames = `SELECT DISTINCT rootname FROM records ORDER BY rootname`

func (q *Queries) ListRootnames(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listRootnames)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var rootname string
		if err := rows.Scan(&rootname); err != nil {
			return nil, err
		}
		items = append(items, rootname)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var i Record
	err := row.Scan(
		&i.Identifier,
		&i.Rootname,
		&i.Filetype,
		&i.Program,
		&i.ProposalID,
		&i.Visit,
		&i.Detector,
		&i.Aperture,
		&i.Filter1,
		&i.Filter2,
		&i.Expstart,
		&i.Exptime,
		&i.Expflag,
		&i.Quality,
		&i.Targname,
		&i.DateObs,
		&i.TimeObs,
		&i.RaTarg,
		&i.DecTarg,
		&i.PiFirstName,
		&i.PiLastName,
		&i.JpegPath,
		&i.ThumbnailPath,
		&i.SourcePath,
		&i.SourceMtime,
		&i.Checksum,
		&i.FirstIngestedAt,
		&i.LastIngestedAt,
	)
	return i, err
}
