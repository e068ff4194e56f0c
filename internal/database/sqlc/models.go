package sqldb

import "database/sql"

type Record struct {
	Identifier      string
	Rootname        string
	Filetype        string
	Program         string
	ProposalID      string
	Visit           string
	Detector        string
	Aperture        string
	Filter1         string
	Filter2         string
	Expstart        sql.NullFloat64
	Exptime         sql.NullFloat64
	Expflag         string
	Quality         string
	Targname        string
	DateObs         string
	TimeObs         string
	RaTarg          sql.NullFloat64
	DecTarg         sql.NullFloat64
	PiFirstName     string
	PiLastName      string
	JpegPath        string
	ThumbnailPath   string
	SourcePath      string
	SourceMtime     int64
	Checksum        string
	FirstIngestedAt int64
	LastIngestedAt  int64
}

type HeaderKeyword struct {
	Identifier string
	Extension  int64
	Position   int64
	Keyword    string
	Value      string
}

type IngestRun struct {
	ID         string
	Target     string
	StartedAt  int64
	FinishedAt int64
	Processed  int64
	Skipped    int64
	Failed     int64
}
