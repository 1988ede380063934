package store

import (
	"context"
	"sync"
	"time"

	"meetgrid/internal/model"
)

type eventRecord struct {
	event  model.Event
	guests []model.Guest
}

var _ Store = (*Memory)(nil)

// Memory is an in-process Store. Data is lost on restart.
type Memory struct {
	mu     sync.RWMutex
	events map[string]*eventRecord
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{events: make(map[string]*eventRecord)}
}

func (m *Memory) CreateEvent(_ context.Context, ev model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[ev.ID]; ok {
		return ErrAlreadyExists
	}
	m.events[ev.ID] = &eventRecord{event: CloneEvent(ev)}
	return nil
}

func (m *Memory) GetEvent(_ context.Context, id string) (model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.events[id]
	if !ok {
		return model.Event{}, ErrNotFound
	}
	return CloneEvent(rec.event), nil
}

func (m *Memory) UpdateEvent(_ context.Context, ev model.Event, guests ...model.Guest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.events[ev.ID]
	if !ok {
		return ErrNotFound
	}
	idx := make([]int, len(guests))
	for i, g := range guests {
		idx[i] = rec.guestIndex(g.ID)
		if idx[i] < 0 {
			return ErrNotFound
		}
	}

	rec.event = CloneEvent(ev)
	for i, g := range guests {
		rec.guests[idx[i]] = CloneGuest(g)
	}
	return nil
}

func (m *Memory) DeleteEvent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[id]; !ok {
		return ErrNotFound
	}
	delete(m.events, id)
	return nil
}

func (m *Memory) ListGuests(_ context.Context, eventID string) ([]model.Guest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.events[eventID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]model.Guest, 0, len(rec.guests))
	for _, g := range rec.guests {
		out = append(out, CloneGuest(g))
	}
	return out, nil
}

func (m *Memory) GetGuest(_ context.Context, eventID, guestID string) (model.Guest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.events[eventID]
	if !ok {
		return model.Guest{}, ErrNotFound
	}
	i := rec.guestIndex(guestID)
	if i < 0 {
		return model.Guest{}, ErrNotFound
	}
	return CloneGuest(rec.guests[i]), nil
}

func (m *Memory) CreateGuest(_ context.Context, eventID string, g model.Guest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.events[eventID]
	if !ok {
		return ErrNotFound
	}
	if rec.guestIndex(g.ID) >= 0 {
		return ErrAlreadyExists
	}
	if g.Email != "" {
		for _, other := range rec.guests {
			if other.Email == g.Email {
				return ErrDuplicateEmail
			}
		}
	}
	rec.guests = append(rec.guests, CloneGuest(g))
	return nil
}

func (m *Memory) UpdateGuest(_ context.Context, eventID string, g model.Guest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.events[eventID]
	if !ok {
		return ErrNotFound
	}
	i := rec.guestIndex(g.ID)
	if i < 0 {
		return ErrNotFound
	}
	rec.guests[i] = CloneGuest(g)
	return nil
}

func (m *Memory) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, rec := range m.events {
		if !rec.event.ExpiresAt.After(now) {
			delete(m.events, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) Close() error { return nil }

func (r *eventRecord) guestIndex(id string) int {
	for i, g := range r.guests {
		if g.ID == id {
			return i
		}
	}
	return -1
}
