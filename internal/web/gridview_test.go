package web

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetgrid/internal/grid"
	"meetgrid/internal/model"
	"meetgrid/internal/vote"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := grid.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestBuildGridViewEmpty(t *testing.T) {
	view, err := BuildGridView(GridInput{Now: baseNow})
	require.NoError(t, err)
	assert.Equal(t, "UTC", view.Timezone)
	assert.Empty(t, view.DayKeys)
	assert.Empty(t, view.Days)
	assert.Empty(t, view.Candidates)
	assert.Empty(t, view.BestCandidateID)
	assert.Len(t, view.HourLabels, 24)
	assert.Equal(t, grid.SlotsPerDay, view.SlotsPerDay)
	assert.Equal(t, grid.InitialScrollSlot, view.InitialScrollSlot)
}

func TestBuildGridViewTiers(t *testing.T) {
	start := time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC)
	candidates := make([]model.Candidate, 4)
	for i := range candidates {
		s := start.Add(time.Duration(i) * time.Hour)
		candidates[i] = model.Candidate{ID: fmt.Sprintf("c%d", i+1), Start: s, End: s.Add(time.Hour)}
	}

	// c1: 5/5 ok, c2: 4/5, c3: 3/5 (exactly the ratio), c4: none.
	guests := make([]model.Guest, 5)
	for i := range guests {
		g := model.Guest{ID: fmt.Sprintf("g%d", i+1), Name: fmt.Sprintf("Guest %d", i+1)}
		g.Answers = append(g.Answers, model.Answer{CandidateID: "c1", Status: model.StatusOK})
		if i < 4 {
			g.Answers = append(g.Answers, model.Answer{CandidateID: "c2", Status: model.StatusOK})
		}
		if i < 3 {
			g.Answers = append(g.Answers, model.Answer{CandidateID: "c3", Status: model.StatusOK})
		}
		g.Answers = append(g.Answers, model.Answer{CandidateID: "c4", Status: model.StatusNG})
		guests[i] = g
	}

	view, err := BuildGridView(GridInput{
		Candidates: candidates,
		Guests:     guests,
		Location:   mustLoad(t, "Asia/Tokyo"),
		Now:        baseNow,
	})
	require.NoError(t, err)

	want := map[string]vote.Tier{
		"c1": vote.TierWinning,
		"c2": vote.TierStrong,
		"c3": vote.TierSomeInterest,
		"c4": vote.TierNoInterest,
	}
	require.Len(t, view.Candidates, 4)
	for _, c := range view.Candidates {
		assert.Equal(t, want[c.CandidateID], c.Tier, c.CandidateID)
	}
	require.Len(t, view.Days, 1)
	for _, b := range view.Days[0].Bands {
		assert.Equal(t, want[b.CandidateID], b.Tier, b.CandidateID)
	}
	assert.Equal(t, "c1", view.BestCandidateID)
	assert.Equal(t, 5, view.TotalGuests)
	assert.Equal(t, 5, view.Candidates[3].NGCount)
	assert.Equal(t, "Asia/Tokyo (JST)", view.TimezoneLabel)
	assert.Equal(t, "3/10 (火) 10:00", view.Candidates[0].Label)
	assert.Equal(t, "2026年3月10日 (火) 10:00 - 11:00", view.Candidates[0].RangeLabel)
}

func TestBuildGridViewSecondaryAndHost(t *testing.T) {
	c := model.Candidate{
		ID:    "c1",
		Start: time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC),
	}
	view, err := BuildGridView(GridInput{
		Candidates:       []model.Candidate{c},
		Location:         mustLoad(t, "Asia/Tokyo"),
		Secondary:        mustLoad(t, "America/New_York"),
		Host:             time.UTC,
		Locale:           grid.LocaleEN,
		FixedCandidateID: "c1",
		Now:              baseNow,
	})
	require.NoError(t, err)

	assert.Equal(t, "America/New_York", view.SecondaryTimezone)
	assert.Equal(t, "c1", view.FixedCandidateID)
	require.Len(t, view.Days, 1)
	day := view.Days[0]
	assert.Equal(t, "2026-03-10", day.DayKey)
	require.Len(t, day.SecondaryLabels, 24)
	// 00:00 JST on Mar 10 is 11:00 EDT on Mar 9.
	assert.Equal(t, "11:00", day.SecondaryLabels[0])

	require.NotNil(t, view.Candidates[0].HostTime)
	assert.Equal(t, grid.DualTime{
		Guest: "Mar 10 (Tue) 7:00 PM",
		Host:  "Mar 10 (Tue) 10:00 AM",
	}, *view.Candidates[0].HostTime)
	assert.Equal(t, vote.TierNoInterest, view.Candidates[0].Tier)
}
