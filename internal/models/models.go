// Package models holds the types shared by the ingest pipeline stages.
package models

import (
	"strings"
	"time"
)

// ValidFiletypes lists the file suffixes the pipeline knows how to ingest.
var ValidFiletypes = []string{"jif", "jit", "flt", "flc", "drz", "drc", "raw", "crj", "crc", "spt", "asn"}

// IsValidFiletype reports whether filetype is one of ValidFiletypes.
func IsValidFiletype(filetype string) bool {
	for _, ft := range ValidFiletypes {
		if ft == filetype {
			return true
		}
	}
	return false
}

// Identifier joins a rootname and filetype into the unique record key.
func Identifier(rootname, filetype string) string {
	return rootname + "_" + filetype
}

// SplitIdentifier is the inverse of Identifier.
func SplitIdentifier(identifier string) (rootname, filetype string, ok bool) {
	idx := strings.LastIndex(identifier, "_")
	if idx <= 0 || idx == len(identifier)-1 {
		return "", "", false
	}
	return identifier[:idx], identifier[idx+1:], true
}

// DataFile describes one FITS file found under the filesystem root.
type DataFile struct {
	ProposalID string
	Rootname   string
	Filetype   string
	Path       string
	ModTime    time.Time
	Size       int64
}

// Identifier returns the record key for the file.
func (f DataFile) Identifier() string {
	return Identifier(f.Rootname, f.Filetype)
}

// Record is one ingested file as stored in the catalog.
type Record struct {
	Identifier string `json:"identifier"`
	Rootname   string `json:"rootname"`
	Filetype   string `json:"filetype"`
	Program    string `json:"program"`
	ProposalID string `json:"proposal_id"`
	Visit      string `json:"visit"`

	Detector    string   `json:"detector"`
	Aperture    string   `json:"aperture"`
	Filter1     string   `json:"filter1"`
	Filter2     string   `json:"filter2"`
	ExpStart    *float64 `json:"expstart,omitempty"`
	ExpTime     *float64 `json:"exptime,omitempty"`
	ExpFlag     string   `json:"expflag"`
	Quality     string   `json:"quality"`
	TargName    string   `json:"targname"`
	DateObs     string   `json:"date_obs"`
	TimeObs     string   `json:"time_obs"`
	RA          *float64 `json:"ra,omitempty"`
	Dec         *float64 `json:"dec,omitempty"`
	PIFirstName string   `json:"pi_first_name"`
	PILastName  string   `json:"pi_last_name"`

	JPEGPath      string `json:"jpeg_path"`
	ThumbnailPath string `json:"thumbnail_path"`

	SourcePath    string    `json:"source_path"`
	SourceModTime time.Time `json:"source_mtime"`
	Checksum      string    `json:"checksum"`

	FirstIngestedAt time.Time `json:"first_ingested_at"`
	LastIngestedAt  time.Time `json:"last_ingested_at"`
}

// HeaderKeyword is a single header card of an ingested file.
type HeaderKeyword struct {
	Extension int    `json:"extension"`
	Position  int    `json:"position"`
	Keyword   string `json:"keyword"`
	Value     string `json:"value"`
}

// Artifacts are the derived images written for a DataFile.
type Artifacts struct {
	JPEGPath      string
	ThumbnailPath string
	// Rendered is true when at least one artifact was (re)written.
	Rendered bool
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
