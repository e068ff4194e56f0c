package database

import (
	"database/sql"
	"sort"
	"time"

	"github.com/acsql/acsql/internal/models"
)

func nullFloat64(value *float64) sql.NullFloat64 {
	if value == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *value, Valid: true}
}

func optionalFloat64(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	return models.Float(nf.Float64)
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func optionalTime(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}

// sortRecords orders records by key, nil values last, then rootname and filetype.
func sortRecords(records []models.Record, key string) {
	float := func(v *float64) (float64, bool) {
		if v == nil {
			return 0, false
		}
		return *v, true
	}
	tiebreak := func(a, b models.Record) bool {
		if a.Rootname != b.Rootname {
			return a.Rootname < b.Rootname
		}
		return a.Filetype < b.Filetype
	}
	byFloat := func(a, b *float64, ra, rb models.Record) bool {
		va, oka := float(a)
		vb, okb := float(b)
		switch {
		case oka && okb && va != vb:
			return va < vb
		case oka != okb:
			return oka
		default:
			return tiebreak(ra, rb)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		switch key {
		case SortExpTime:
			return byFloat(a.ExpTime, b.ExpTime, a, b)
		case SortTargName:
			if a.TargName != b.TargName {
				return a.TargName < b.TargName
			}
			return tiebreak(a, b)
		case SortRootname:
			return tiebreak(a, b)
		default:
			return byFloat(a.ExpStart, b.ExpStart, a, b)
		}
	})
}
