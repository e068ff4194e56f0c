package database

import (
	"time"

	sqldb "github.com/acsql/acsql/internal/database/sqlc"
	"github.com/acsql/acsql/internal/models"
)

// RecordFromRow converts a records row to a models.Record.
func RecordFromRow(row sqldb.Record) models.Record {
	return models.Record{
		Identifier:      row.Identifier,
		Rootname:        row.Rootname,
		Filetype:        row.Filetype,
		Program:         row.Program,
		ProposalID:      row.ProposalID,
		Visit:           row.Visit,
		Detector:        row.Detector,
		Aperture:        row.Aperture,
		Filter1:         row.Filter1,
		Filter2:         row.Filter2,
		ExpStart:        optionalFloat64(row.Expstart),
		ExpTime:         optionalFloat64(row.Exptime),
		ExpFlag:         row.Expflag,
		Quality:         row.Quality,
		TargName:        row.Targname,
		DateObs:         row.DateObs,
		TimeObs:         row.TimeObs,
		RA:              optionalFloat64(row.RaTarg),
		Dec:             optionalFloat64(row.DecTarg),
		PIFirstName:     row.PiFirstName,
		PILastName:      row.PiLastName,
		JPEGPath:        row.JpegPath,
		ThumbnailPath:   row.ThumbnailPath,
		SourcePath:      row.SourcePath,
		SourceModTime:   optionalTime(row.SourceMtime),
		Checksum:        row.Checksum,
		FirstIngestedAt: optionalTime(row.FirstIngestedAt),
		LastIngestedAt:  optionalTime(row.LastIngestedAt),
	}
}

// RecordParams builds upsert parameters. The ingest time stamps both
// first_ingested_at (kept by the conflict clause) and last_ingested_at.
func RecordParams(rec models.Record, ingestedAt time.Time) sqldb.UpsertRecordParams {
	return sqldb.UpsertRecordParams{
		Identifier:      rec.Identifier,
		Rootname:        rec.Rootname,
		Filetype:        rec.Filetype,
		Program:         rec.Program,
		ProposalID:      rec.ProposalID,
		Visit:           rec.Visit,
		Detector:        rec.Detector,
		Aperture:        rec.Aperture,
		Filter1:         rec.Filter1,
		Filter2:         rec.Filter2,
		Expstart:        nullFloat64(rec.ExpStart),
		Exptime:         nullFloat64(rec.ExpTime),
		Expflag:         rec.ExpFlag,
		Quality:         rec.Quality,
		Targname:        rec.TargName,
		DateObs:         rec.DateObs,
		TimeObs:         rec.TimeObs,
		RaTarg:          nullFloat64(rec.RA),
		DecTarg:         nullFloat64(rec.Dec),
		PiFirstName:     rec.PIFirstName,
		PiLastName:      rec.PILastName,
		JpegPath:        rec.JPEGPath,
		ThumbnailPath:   rec.ThumbnailPath,
		SourcePath:      rec.SourcePath,
		SourceMtime:     unixNano(rec.SourceModTime),
		Checksum:        rec.Checksum,
		FirstIngestedAt: unixNano(ingestedAt),
		LastIngestedAt:  unixNano(ingestedAt),
	}
}

// HeaderKeywordFromRow converts a header_keywords row.
func HeaderKeywordFromRow(row sqldb.HeaderKeyword) models.HeaderKeyword {
	return models.HeaderKeyword{
		Extension: int(row.Extension),
		Position:  int(row.Position),
		Keyword:   row.Keyword,
		Value:     row.Value,
	}
}

func headerKeywordParams(identifier string, h models.HeaderKeyword) sqldb.InsertHeaderKeywordParams {
	return sqldb.InsertHeaderKeywordParams{
		Identifier: identifier,
		Extension:  int64(h.Extension),
		Position:   int64(h.Position),
		Keyword:    h.Keyword,
		Value:      h.Value,
	}
}

// IngestRunFromRow converts an ingest_runs row.
func IngestRunFromRow(row sqldb.IngestRun) IngestRun {
	return IngestRun{
		ID:         row.ID,
		Target:     row.Target,
		StartedAt:  optionalTime(row.StartedAt),
		FinishedAt: optionalTime(row.FinishedAt),
		Processed:  row.Processed,
		Skipped:    row.Skipped,
		Failed:     row.Failed,
	}
}

func ingestRunParams(run IngestRun) sqldb.InsertIngestRunParams {
	return sqldb.InsertIngestRunParams{
		ID:         run.ID,
		Target:     run.Target,
		StartedAt:  unixNano(run.StartedAt),
		FinishedAt: unixNano(run.FinishedAt),
		Processed:  run.Processed,
		Skipped:    run.Skipped,
		Failed:     run.Failed,
	}
}

func proposalSummaryFromRow(row sqldb.ListProposalsRow) ProposalSummary {
	return ProposalSummary{
		ProposalID:     row.ProposalID,
		Records:        row.RecordCount,
		Rootnames:      row.RootnameCount,
		LastIngestedAt: optionalTime(row.LastIngestedAt),
	}
}
