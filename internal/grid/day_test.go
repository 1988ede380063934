package grid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"meetgrid/internal/model"
)

func TestGroupByDay(t *testing.T) {
	tokyo := mustLoad(t, "Asia/Tokyo")

	// 22:00-01:00 JST crosses local midnight.
	crossing := model.Candidate{
		ID:    "crossing",
		Start: time.Date(2026, 3, 15, 13, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 15, 16, 0, 0, 0, time.UTC),
	}
	// 19:00-20:00 JST.
	evening := model.Candidate{
		ID:    "evening",
		Start: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 15, 11, 0, 0, 0, time.UTC),
	}
	// 08:00-08:30 JST on the 16th, which is still the 15th in UTC.
	morning := model.Candidate{
		ID:    "morning",
		Start: time.Date(2026, 3, 15, 23, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 15, 23, 30, 0, 0, time.UTC),
	}
	candidates := []model.Candidate{crossing, evening, morning}

	groups := GroupByDay(candidates, tokyo)
	assert.Equal(t, map[string][]model.Candidate{
		"2026-03-15": {crossing, evening},
		"2026-03-16": {crossing, morning},
	}, groups)

	assert.Equal(t, []string{"2026-03-15", "2026-03-16"}, UniqueDayKeys(candidates, tokyo))

	// The same instants all fall on the 15th in UTC.
	assert.Equal(t, []string{"2026-03-15"}, UniqueDayKeys(candidates, time.UTC))
	assert.Len(t, GroupByDay(candidates, time.UTC)["2026-03-15"], 3)
}

func TestUniqueDayKeysSorted(t *testing.T) {
	mk := func(id string, day int) model.Candidate {
		start := time.Date(2026, 3, day, 9, 0, 0, 0, time.UTC)
		return model.Candidate{ID: id, Start: start, End: start.Add(time.Hour)}
	}
	candidates := []model.Candidate{mk("c", 20), mk("a", 2), mk("b", 11), mk("a2", 2)}

	assert.Equal(t, []string{"2026-03-02", "2026-03-11", "2026-03-20"}, UniqueDayKeys(candidates, time.UTC))
	assert.Empty(t, UniqueDayKeys(nil, time.UTC))
	assert.Empty(t, GroupByDay(nil, time.UTC))
}
