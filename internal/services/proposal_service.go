package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/acsql/acsql/internal/database"
	"github.com/acsql/acsql/internal/models"
)

// DefaultFiletype is shown when a proposal view does not ask for one.
const DefaultFiletype = "flt"

// ErrInvalidQuery is returned for unknown sort keys or filetypes.
var ErrInvalidQuery = errors.New("invalid query")

// FilterPair is one filter1/filter2 combination used in a proposal.
type FilterPair struct {
	Filter1 string `json:"filter1"`
	Filter2 string `json:"filter2"`
}

// Facets are the distinct values a proposal view can be narrowed by.
type Facets struct {
	Detectors []string     `json:"detectors"`
	Visits    []string     `json:"visits"`
	Targets   []string     `json:"targets"`
	Filters   []FilterPair `json:"filters"`
}

// ProposalView is everything a catalog page for one proposal shows.
type ProposalView struct {
	ProposalID string               `json:"proposal_id"`
	Query      database.RecordQuery `json:"query"`
	Records    []models.Record      `json:"records"`
	Facets     Facets               `json:"facets"`
	// ViewLinks holds one /archive/<proposal>/<rootname>/ link per rootname, in record order.
	ViewLinks []string `json:"view_links"`
}

// ProposalService answers read-only questions about proposals.
type ProposalService struct {
	store database.Reader
}

// NewProposalService creates a new ProposalService.
func NewProposalService(store database.Reader) *ProposalService {
	return &ProposalService{store: store}
}

// List returns every proposal with its record counts.
func (s *ProposalService) List(ctx context.Context) ([]database.ProposalSummary, error) {
	return s.store.ListProposals(ctx)
}

// Records returns the records of a proposal. An unknown proposal yields an empty list.
func (s *ProposalService) Records(ctx context.Context, proposalID string, query database.RecordQuery) ([]models.Record, error) {
	query, err := NormalizeQuery(query)
	if err != nil {
		return nil, err
	}
	return s.store.ListByProposal(ctx, proposalID, query)
}

// View returns the filtered records of a proposal together with the facets
// of all its records of the requested filetype.
func (s *ProposalService) View(ctx context.Context, proposalID string, query database.RecordQuery) (*ProposalView, error) {
	query, err := NormalizeQuery(query)
	if err != nil {
		return nil, err
	}

	records, err := s.store.ListByProposal(ctx, proposalID, query)
	if err != nil {
		return nil, err
	}

	all := records
	if query.Detector != "" || query.Visit != "" || query.Target != "" || query.Filter != "" {
		all, err = s.store.ListByProposal(ctx, proposalID, database.RecordQuery{Filetype: query.Filetype})
		if err != nil {
			return nil, err
		}
	}

	return &ProposalView{
		ProposalID: proposalID,
		Query:      query,
		Records:    records,
		Facets:     facetsOf(all),
		ViewLinks:  viewLinks(proposalID, records),
	}, nil
}

// NormalizeQuery applies defaults and validates a RecordQuery. The filetype
// "all" removes the filetype restriction.
func NormalizeQuery(query database.RecordQuery) (database.RecordQuery, error) {
	query.Filetype = strings.ToLower(strings.TrimSpace(query.Filetype))
	switch query.Filetype {
	case "":
		query.Filetype = DefaultFiletype
	case "all":
		query.Filetype = ""
	default:
		if !models.IsValidFiletype(query.Filetype) {
			return query, fmt.Errorf("%w: unknown filetype %q", ErrInvalidQuery, query.Filetype)
		}
	}

	query.Detector = strings.ToUpper(strings.TrimSpace(query.Detector))
	query.Visit = strings.ToUpper(strings.TrimSpace(query.Visit))
	query.Filter = strings.ToUpper(strings.TrimSpace(query.Filter))

	query.Sort = strings.ToLower(strings.TrimSpace(query.Sort))
	if query.Sort == "" {
		query.Sort = database.SortExpStart
	}
	for _, key := range database.SortKeys {
		if query.Sort == key {
			return query, nil
		}
	}
	return query, fmt.Errorf("%w: unknown sort key %q (want one of %s)", ErrInvalidQuery, query.Sort, strings.Join(database.SortKeys, ", "))
}

// ViewLink is the catalog page of one rootname.
func ViewLink(proposalID, rootname string) string {
	return "/archive/" + proposalID + "/" + rootname + "/"
}

func viewLinks(proposalID string, records []models.Record) []string {
	seen := make(map[string]bool, len(records))
	links := make([]string, 0, len(records))
	for _, rec := range records {
		if seen[rec.Rootname] {
			continue
		}
		seen[rec.Rootname] = true
		links = append(links, ViewLink(proposalID, rec.Rootname))
	}
	return links
}

func facetsOf(records []models.Record) Facets {
	detectors := map[string]bool{}
	visits := map[string]bool{}
	targets := map[string]bool{}
	filters := map[FilterPair]bool{}
	for _, rec := range records {
		if rec.Detector != "" {
			detectors[rec.Detector] = true
		}
		if rec.Visit != "" {
			visits[rec.Visit] = true
		}
		if rec.TargName != "" {
			targets[rec.TargName] = true
		}
		filters[FilterPair{Filter1: rec.Filter1, Filter2: rec.Filter2}] = true
	}

	pairs := make([]FilterPair, 0, len(filters))
	for pair := range filters {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Filter1 != pairs[j].Filter1 {
			return pairs[i].Filter1 < pairs[j].Filter1
		}
		return pairs[i].Filter2 < pairs[j].Filter2
	})

	return Facets{
		Detectors: sortedKeys(detectors),
		Visits:    sortedKeys(visits),
		Targets:   sortedKeys(targets),
		Filters:   pairs,
	}
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
