// Package store persists events and their guests. Implementations return
// copies, so callers may mutate what they get back freely.
package store

import (
	"context"
	"errors"
	"time"

	"meetgrid/internal/model"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered for this event")
	ErrAlreadyExists  = errors.New("already exists")
)

// Store is the persistence boundary used by the event service.
type Store interface {
	CreateEvent(ctx context.Context, ev model.Event) error
	GetEvent(ctx context.Context, id string) (model.Event, error)
	// UpdateEvent replaces the event row and, in the same unit of work,
	// any guests passed along (used when removed candidates strip answers).
	UpdateEvent(ctx context.Context, ev model.Event, guests ...model.Guest) error
	// DeleteEvent removes the event and all of its guests.
	DeleteEvent(ctx context.Context, id string) error

	// ListGuests returns guests in registration order.
	ListGuests(ctx context.Context, eventID string) ([]model.Guest, error)
	GetGuest(ctx context.Context, eventID, guestID string) (model.Guest, error)
	// CreateGuest fails with ErrDuplicateEmail when a non-empty email is
	// already taken within the event.
	CreateGuest(ctx context.Context, eventID string, g model.Guest) error
	UpdateGuest(ctx context.Context, eventID string, g model.Guest) error

	// DeleteExpired removes events whose ExpiresAt is at or before now and
	// reports how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)

	Close() error
}

// CloneEvent returns a copy of ev that shares no slices with it.
func CloneEvent(ev model.Event) model.Event {
	if ev.Candidates != nil {
		ev.Candidates = append([]model.Candidate(nil), ev.Candidates...)
	}
	return ev
}

// CloneGuest returns a copy of g that shares no slices with it.
func CloneGuest(g model.Guest) model.Guest {
	if g.Answers != nil {
		g.Answers = append([]model.Answer(nil), g.Answers...)
	}
	return g
}
