package grid

import (
	"sort"
	"time"

	"meetgrid/internal/model"
)

// GroupByDay buckets candidates by local calendar day in loc. A window that
// crosses local midnight lands in both its start day and its end day; the
// layout step clips each copy to its own day. Input order is preserved
// inside every bucket.
func GroupByDay(candidates []model.Candidate, loc *time.Location) map[string][]model.Candidate {
	out := make(map[string][]model.Candidate)
	for _, c := range candidates {
		startDay := DayKeyOf(c.Start, loc)
		endDay := DayKeyOf(c.End, loc)

		out[startDay] = append(out[startDay], c)
		if endDay != startDay {
			out[endDay] = append(out[endDay], c)
		}
	}
	return out
}

// UniqueDayKeys returns every day key touched by a candidate's start or end,
// sorted ascending. Lexicographic order equals chronological order for
// YYYY-MM-DD keys.
func UniqueDayKeys(candidates []model.Candidate, loc *time.Location) []string {
	seen := make(map[string]struct{}, len(candidates))
	keys := make([]string, 0, len(candidates))
	add := func(k string) {
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	for _, c := range candidates {
		add(DayKeyOf(c.Start, loc))
		add(DayKeyOf(c.End, loc))
	}
	sort.Strings(keys)
	return keys
}
