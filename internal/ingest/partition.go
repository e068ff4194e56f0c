package ingest

import (
	"sort"

	"github.com/acsql/acsql/internal/models"
)

// Partition splits files into at most workers disjoint slices. All files of
// a rootname land in the same slice; rootname groups go to the least loaded
// slice in sorted order, so the split is deterministic. Empty slices are dropped.
func Partition(files []models.DataFile, workers int) [][]models.DataFile {
	if workers < 1 {
		workers = 1
	}

	groups := map[string][]models.DataFile{}
	var rootnames []string
	for _, f := range files {
		if _, ok := groups[f.Rootname]; !ok {
			rootnames = append(rootnames, f.Rootname)
		}
		groups[f.Rootname] = append(groups[f.Rootname], f)
	}
	sort.Strings(rootnames)

	parts := make([][]models.DataFile, workers)
	for _, rootname := range rootnames {
		target := 0
		for i := range parts {
			if len(parts[i]) < len(parts[target]) {
				target = i
			}
		}
		parts[target] = append(parts[target], groups[rootname]...)
	}

	result := parts[:0]
	for _, p := range parts {
		if len(p) > 0 {
			result = append(result, p)
		}
	}
	return result
}
