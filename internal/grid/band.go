package grid

import (
	"sort"
	"time"

	"meetgrid/internal/model"
)

// LayoutBand places one candidate on one day of the grid. EndSlot is
// exclusive. Bands on the same DayKey whose slot ranges overlap never share
// a Column, and every band of a day carries the same TotalColumns.
//
// A candidate that crosses local midnight produces two bands, one per day,
// both holding the same Candidate value.
type LayoutBand struct {
	Candidate    model.Candidate `json:"candidate"`
	DayKey       string          `json:"day_key"`
	StartSlot    int             `json:"start_slot"`
	EndSlot      int             `json:"end_slot"`
	Column       int             `json:"column"`
	TotalColumns int             `json:"total_columns"`
}

// Overlaps reports whether two bands share at least one slot on the same day.
func (b LayoutBand) Overlaps(o LayoutBand) bool {
	return b.DayKey == o.DayKey && b.StartSlot < o.EndSlot && o.StartSlot < b.EndSlot
}

// LayoutBands computes bands for all candidates in loc. Days are emitted in
// ascending key order; bands within a day in ascending StartSlot order, ties
// kept in input order.
//
// Columns are assigned first-fit: each range goes into the first column whose
// last band has ended, or a new column otherwise. This is a greedy interval
// coloring with no backtracking. It can open more columns than the minimum
// for some overlap patterns; the resulting column assignment is part of the
// observable layout and must not be "optimized".
func LayoutBands(candidates []model.Candidate, loc *time.Location) []LayoutBand {
	groups := GroupByDay(candidates, loc)
	result := make([]LayoutBand, 0, len(candidates))

	for _, dayKey := range sortedKeys(groups) {
		result = append(result, layoutDay(dayKey, groups[dayKey], loc)...)
	}
	return result
}

func layoutDay(dayKey string, dayCandidates []model.Candidate, loc *time.Location) []LayoutBand {
	bands := make([]LayoutBand, 0, len(dayCandidates))
	for _, c := range dayCandidates {
		start, end := clipToDay(c, dayKey, loc)
		bands = append(bands, LayoutBand{
			Candidate: c,
			DayKey:    dayKey,
			StartSlot: start,
			EndSlot:   end,
		})
	}

	sort.SliceStable(bands, func(i, j int) bool {
		return bands[i].StartSlot < bands[j].StartSlot
	})

	// columnEnds[i] is the EndSlot of the band most recently placed in column i.
	columnEnds := make([]int, 0, 4)
	for i := range bands {
		placed := false
		for col, end := range columnEnds {
			if end <= bands[i].StartSlot {
				columnEnds[col] = bands[i].EndSlot
				bands[i].Column = col
				placed = true
				break
			}
		}
		if !placed {
			bands[i].Column = len(columnEnds)
			columnEnds = append(columnEnds, bands[i].EndSlot)
		}
	}

	for i := range bands {
		bands[i].TotalColumns = len(columnEnds)
	}
	return bands
}

// clipToDay returns the visible [start, end) slot range of c on dayKey.
func clipToDay(c model.Candidate, dayKey string, loc *time.Location) (int, int) {
	startDay := DayKeyOf(c.Start, loc)
	endDay := DayKeyOf(c.End, loc)

	var start, end int
	switch {
	case startDay == endDay:
		start = SlotOf(c.Start, loc)
		end = SlotOf(c.End, loc)
	case dayKey == startDay:
		start = SlotOf(c.Start, loc)
		end = SlotsPerDay
	default:
		start = 0
		end = SlotOf(c.End, loc)
	}

	// Zero-length or inverted windows still get one visible slot.
	if end <= start {
		end = start + 1
	}
	return start, end
}

// DayLayout groups the bands of a single day.
type DayLayout struct {
	DayKey       string       `json:"day_key"`
	TotalColumns int          `json:"total_columns"`
	Bands        []LayoutBand `json:"bands"`
}

// GroupBands splits the output of LayoutBands into per-day layouts, keeping
// band order. Days appear in the order their first band appears.
func GroupBands(bands []LayoutBand) []DayLayout {
	days := make([]DayLayout, 0)
	index := make(map[string]int)
	for _, b := range bands {
		i, ok := index[b.DayKey]
		if !ok {
			i = len(days)
			index[b.DayKey] = i
			days = append(days, DayLayout{DayKey: b.DayKey, TotalColumns: b.TotalColumns})
		}
		days[i].Bands = append(days[i].Bands, b)
	}
	return days
}

func sortedKeys(m map[string][]model.Candidate) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
