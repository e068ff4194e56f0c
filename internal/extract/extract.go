// Package extract turns FITS headers into catalog records.
package extract

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/acsql/acsql/internal/filesystem"
	"github.com/acsql/acsql/internal/fits"
	"github.com/acsql/acsql/internal/models"
)

// skippedKeywords are not copied into the header keyword store.
var skippedKeywords = map[string]bool{
	"HISTORY":  true,
	"COMMENT":  true,
	"ROOTNAME": true,
	"FILENAME": true,
	"":         true,
}

// Result is everything read from one file.
type Result struct {
	Record  models.Record
	Headers []models.HeaderKeyword
}

// Extractor reads metadata from FITS files.
type Extractor struct{}

// New returns an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract parses every header of file. Any failure is a *models.ExtractionError.
func (e *Extractor) Extract(file models.DataFile) (*Result, error) {
	result, err := e.extract(file)
	if err != nil {
		return nil, &models.ExtractionError{Identifier: file.Identifier(), Path: file.Path, Err: err}
	}
	return result, nil
}

func (e *Extractor) extract(file models.DataFile) (*Result, error) {
	f, err := fits.Open(file.Path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	primary := f.Primary().Header

	detector, err := detectorOf(file.Filetype, primary)
	if err != nil {
		return nil, err
	}

	record := models.Record{
		Identifier:    file.Identifier(),
		Rootname:      file.Rootname,
		Filetype:      file.Filetype,
		Program:       file.ProposalID,
		ProposalID:    file.ProposalID,
		Visit:         visitOf(file.Rootname),
		Detector:      detector,
		Aperture:      primary.String("APERTURE"),
		Filter1:       primary.String("FILTER1"),
		Filter2:       primary.String("FILTER2"),
		ExpFlag:       primary.String("EXPFLAG"),
		Quality:       primary.String("QUALITY"),
		TargName:      primary.String("TARGNAME"),
		DateObs:       primary.String("DATE-OBS"),
		TimeObs:       primary.String("TIME-OBS"),
		PIFirstName:   primary.String("PR_INV_F"),
		PILastName:    primary.String("PR_INV_L"),
		SourcePath:    file.Path,
		SourceModTime: file.ModTime,
	}
	if proposid := primary.String("PROPOSID"); proposid != "" {
		record.ProposalID = proposid
	}

	for keyword, dst := range map[string]**float64{
		"EXPSTART": &record.ExpStart,
		"EXPTIME":  &record.ExpTime,
		"RA_TARG":  &record.RA,
		"DEC_TARG": &record.Dec,
	} {
		value, ok, err := primary.Float(keyword)
		if err != nil {
			return nil, err
		}
		if ok {
			*dst = models.Float(value)
		}
	}

	record.Checksum, err = filesystem.Checksum(file.Path)
	if err != nil {
		return nil, err
	}

	var headers []models.HeaderKeyword
	for _, hdu := range f.HDUs {
		for pos, card := range hdu.Header.Cards() {
			if skippedKeywords[card.Keyword] {
				continue
			}
			headers = append(headers, models.HeaderKeyword{
				Extension: hdu.Index,
				Position:  pos,
				Keyword:   card.Keyword,
				Value:     card.Value,
			})
		}
	}

	return &Result{Record: record, Headers: headers}, nil
}

// detectorOf reads DETECTOR, or CONFIG for jitter files ("ACS/WFC" -> "WFC").
// Jitter files of FGS-only observations ("S/C") have no detector.
func detectorOf(filetype string, h *fits.Header) (string, error) {
	if filetype == "jit" || filetype == "jif" {
		config, ok := h.Get("CONFIG")
		if !ok {
			return "", errors.New("missing required keyword CONFIG")
		}
		if config == "S/C" {
			return "", nil
		}
		if _, after, found := strings.Cut(config, "/"); found {
			return strings.ToUpper(strings.TrimSpace(after)), nil
		}
		return strings.ToUpper(config), nil
	}

	detector := strings.ToUpper(strings.TrimSpace(h.String("DETECTOR")))
	if detector == "" {
		return "", errors.New("missing required keyword DETECTOR")
	}
	return detector, nil
}

// visitOf returns the visit component of an IPPPSSOOT rootname.
func visitOf(rootname string) string {
	if len(rootname) < 6 {
		return ""
	}
	return strings.ToUpper(rootname[4:6])
}
