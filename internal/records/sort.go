package records

import (
	"sort"

	"carteira/internal/core"
)

// SortByDateDesc orders records most recent first, breaking date ties by id
// ascending so the ordering is deterministic across reloads.
func SortByDateDesc(recs []core.Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].Date.Equal(recs[j].Date) {
			return recs[i].Date.After(recs[j].Date)
		}
		return recs[i].ID < recs[j].ID
	})
}
