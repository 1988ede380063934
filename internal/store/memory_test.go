package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetgrid/internal/model"
)

var t0 = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func newEvent(id string, expires time.Time) model.Event {
	return model.Event{
		ID:       id,
		Title:    "Event " + id,
		Duration: 60,
		Timezone: "UTC",
		Status:   model.EventPlanning,
		Candidates: []model.Candidate{
			{ID: "c1", Start: t0.Add(24 * time.Hour), End: t0.Add(25 * time.Hour)},
		},
		ExpiresAt: expires,
		CreatedAt: t0,
		UpdatedAt: t0,
	}
}

func TestMemoryEventLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	ev := newEvent("ev1", t0.AddDate(0, 0, 90))
	require.NoError(t, m.CreateEvent(ctx, ev))
	assert.ErrorIs(t, m.CreateEvent(ctx, ev), ErrAlreadyExists)

	got, err := m.GetEvent(ctx, "ev1")
	require.NoError(t, err)
	assert.Equal(t, ev, got)

	// Returned copies do not alias stored state.
	got.Candidates[0].ID = "mutated"
	again, err := m.GetEvent(ctx, "ev1")
	require.NoError(t, err)
	assert.Equal(t, "c1", again.Candidates[0].ID)

	got.Title = "Renamed"
	got.Candidates[0].ID = "c1"
	require.NoError(t, m.UpdateEvent(ctx, got))
	again, err = m.GetEvent(ctx, "ev1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", again.Title)

	assert.ErrorIs(t, m.UpdateEvent(ctx, newEvent("missing", t0)), ErrNotFound)

	require.NoError(t, m.DeleteEvent(ctx, "ev1"))
	_, err = m.GetEvent(ctx, "ev1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.DeleteEvent(ctx, "ev1"), ErrNotFound)
}

func TestMemoryGuests(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.CreateEvent(ctx, newEvent("ev1", t0.AddDate(0, 0, 90))))

	g1 := model.Guest{ID: "g1", Name: "Alice", Email: "alice@example.com"}
	g2 := model.Guest{ID: "g2", Name: "Bob"}
	g3 := model.Guest{ID: "g3", Name: "Carol"}
	require.NoError(t, m.CreateGuest(ctx, "ev1", g1))
	require.NoError(t, m.CreateGuest(ctx, "ev1", g2))
	require.NoError(t, m.CreateGuest(ctx, "ev1", g3))

	assert.ErrorIs(t, m.CreateGuest(ctx, "ev1", model.Guest{ID: "g4", Name: "Dup", Email: "alice@example.com"}), ErrDuplicateEmail)
	assert.ErrorIs(t, m.CreateGuest(ctx, "ev1", g2), ErrAlreadyExists)
	assert.ErrorIs(t, m.CreateGuest(ctx, "nope", model.Guest{ID: "g5"}), ErrNotFound)

	guests, err := m.ListGuests(ctx, "ev1")
	require.NoError(t, err)
	require.Len(t, guests, 3)
	assert.Equal(t, []string{"g1", "g2", "g3"}, []string{guests[0].ID, guests[1].ID, guests[2].ID})

	g2.Answers = []model.Answer{{CandidateID: "c1", Status: model.StatusOK}}
	require.NoError(t, m.UpdateGuest(ctx, "ev1", g2))
	got, err := m.GetGuest(ctx, "ev1", "g2")
	require.NoError(t, err)
	assert.Equal(t, g2.Answers, got.Answers)

	assert.ErrorIs(t, m.UpdateGuest(ctx, "ev1", model.Guest{ID: "ghost"}), ErrNotFound)
	_, err = m.GetGuest(ctx, "ev1", "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.ListGuests(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUpdateEventWithGuestsIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	ev := newEvent("ev1", t0.AddDate(0, 0, 90))
	require.NoError(t, m.CreateEvent(ctx, ev))
	require.NoError(t, m.CreateGuest(ctx, "ev1", model.Guest{ID: "g1", Name: "Alice",
		Answers: []model.Answer{{CandidateID: "c1", Status: model.StatusOK}}}))

	ev.Candidates = nil
	ev.Title = "Cleared"
	err := m.UpdateEvent(ctx, ev, model.Guest{ID: "g1", Name: "Alice"}, model.Guest{ID: "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := m.GetEvent(ctx, "ev1")
	require.NoError(t, err)
	assert.Equal(t, "Event ev1", got.Title)

	require.NoError(t, m.UpdateEvent(ctx, ev, model.Guest{ID: "g1", Name: "Alice"}))
	g, err := m.GetGuest(ctx, "ev1", "g1")
	require.NoError(t, err)
	assert.Empty(t, g.Answers)
}

func TestMemoryDeleteExpired(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.CreateEvent(ctx, newEvent("old", t0)))
	require.NoError(t, m.CreateEvent(ctx, newEvent("edge", t0.Add(time.Hour))))
	require.NoError(t, m.CreateEvent(ctx, newEvent("fresh", t0.Add(2*time.Hour))))

	n, err := m.DeleteExpired(ctx, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = m.GetEvent(ctx, "fresh")
	assert.NoError(t, err)
	_, err = m.GetEvent(ctx, "edge")
	assert.ErrorIs(t, err, ErrNotFound)
}
