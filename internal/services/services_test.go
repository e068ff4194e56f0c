package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/acsql/acsql/internal/database"
	"github.com/acsql/acsql/internal/models"
)

func setupServiceStore(t *testing.T) *database.SQLiteStore {
	t.Helper()
	ctx, err := database.CreateDatabase(":memory:")
	if err != nil {
		t.Fatalf("CreateDatabase error: %v", err)
	}

	t.Cleanup(func() {
		if err := database.CloseDatabase(ctx); err != nil {
			t.Fatalf("CloseDatabase error: %v", err)
		}
	})

	return database.NewSQLiteStore(ctx)
}

func seed(t *testing.T, store database.Store, records ...models.Record) {
	t.Helper()
	session, err := store.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	defer session.Release()
	for _, rec := range records {
		headers := []models.HeaderKeyword{{Keyword: "DETECTOR", Value: rec.Detector}}
		if _, err := session.UpsertRecord(context.Background(), rec, headers); err != nil {
			t.Fatalf("UpsertRecord %s error: %v", rec.Identifier, err)
		}
	}
}

func record(rootname, filetype, detector, filter1, filter2, target string, expstart float64) models.Record {
	return models.Record{
		Identifier:    models.Identifier(rootname, filetype),
		Rootname:      rootname,
		Filetype:      filetype,
		ProposalID:    "10325",
		Program:       "jbm1",
		Visit:         "10",
		Detector:      detector,
		Filter1:       filter1,
		Filter2:       filter2,
		TargName:      target,
		ExpStart:      models.Float(expstart),
		SourcePath:    "/data/" + rootname,
		SourceModTime: time.Unix(1700000000, 0),
	}
}

func TestProposalServiceView(t *testing.T) {
	store := setupServiceStore(t)
	seed(t, store,
		record("jbm110u2q", "flt", "WFC", "F606W", "CLEAR2L", "NGC-104", 53901),
		record("jbm110u2q", "raw", "WFC", "F606W", "CLEAR2L", "NGC-104", 53901),
		record("jbm110u3q", "flt", "WFC", "F814W", "CLEAR2L", "NGC-104", 53902),
		record("jbm110u4q", "flt", "HRC", "CLEAR1S", "F435W", "NGC-6397", 53900),
	)
	svc := NewProposalService(store)
	ctx := context.Background()

	view, err := svc.View(ctx, "10325", database.RecordQuery{})
	if err != nil {
		t.Fatalf("View error: %v", err)
	}
	if view.Query.Filetype != "flt" || view.Query.Sort != database.SortExpStart {
		t.Fatalf("expected flt/expstart defaults, got %+v", view.Query)
	}
	if len(view.Records) != 3 {
		t.Fatalf("expected 3 flt records, got %d", len(view.Records))
	}
	wantLinks := []string{"/archive/10325/jbm110u4q/", "/archive/10325/jbm110u2q/", "/archive/10325/jbm110u3q/"}
	if fmt.Sprint(view.ViewLinks) != fmt.Sprint(wantLinks) {
		t.Fatalf("expected links %v, got %v", wantLinks, view.ViewLinks)
	}
	if fmt.Sprint(view.Facets.Detectors) != "[HRC WFC]" {
		t.Fatalf("unexpected detector facets %v", view.Facets.Detectors)
	}
	if len(view.Facets.Filters) != 3 || view.Facets.Filters[0] != (FilterPair{Filter1: "CLEAR1S", Filter2: "F435W"}) {
		t.Fatalf("unexpected filter facets %v", view.Facets.Filters)
	}

	filtered, err := svc.View(ctx, "10325", database.RecordQuery{Detector: "wfc", Sort: "rootname"})
	if err != nil {
		t.Fatalf("View error: %v", err)
	}
	if len(filtered.Records) != 2 || filtered.Records[0].Identifier != "jbm110u2q_flt" {
		t.Fatalf("unexpected filtered records %+v", filtered.Records)
	}
	if len(filtered.Facets.Detectors) != 2 {
		t.Fatalf("expected facets over the whole proposal, got %v", filtered.Facets.Detectors)
	}

	all, err := svc.Records(ctx, "10325", database.RecordQuery{Filetype: "all"})
	if err != nil {
		t.Fatalf("Records error: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 records across filetypes, got %d", len(all))
	}

	empty, err := svc.View(ctx, "00000", database.RecordQuery{})
	if err != nil {
		t.Fatalf("View error: %v", err)
	}
	if len(empty.Records) != 0 || len(empty.ViewLinks) != 0 {
		t.Fatalf("expected empty view, got %+v", empty)
	}
}

func TestNormalizeQueryRejectsUnknownValues(t *testing.T) {
	if _, err := NormalizeQuery(database.RecordQuery{Sort: "brightness"}); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery for sort, got %v", err)
	}
	if _, err := NormalizeQuery(database.RecordQuery{Filetype: "trl"}); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery for filetype, got %v", err)
	}
}

func TestRecordServiceInfo(t *testing.T) {
	store := setupServiceStore(t)
	seed(t, store,
		record("jbm110u2q", "flt", "WFC", "F606W", "CLEAR2L", "NGC-104", 53901),
		record("jbm110u2q", "raw", "WFC", "F606W", "CLEAR2L", "NGC-104", 53901),
	)
	svc := NewRecordService(store)
	ctx := context.Background()

	info, err := svc.Info(ctx, "JBM110U2Q", true)
	if err != nil {
		t.Fatalf("Info error: %v", err)
	}
	if info.Record.Identifier != "jbm110u2q_flt" {
		t.Fatalf("expected bare rootname to resolve to flt, got %s", info.Record.Identifier)
	}
	if fmt.Sprint(info.Filetypes) != "[flt raw]" {
		t.Fatalf("unexpected filetypes %v", info.Filetypes)
	}
	if len(info.Headers) != 1 || info.Headers[0].Value != "WFC" {
		t.Fatalf("unexpected headers %+v", info.Headers)
	}

	if _, err := svc.Info(ctx, "jbm110u2q_spt", false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
