// Package event owns every mutation of an event and its guests: creation,
// host edits, fixing a candidate, guest registration and answer updates,
// and expiry. Callers authenticate with the plain tokens returned at
// creation/registration; only their sha256 hashes are stored.
package event

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"meetgrid/internal/grid"
	appLog "meetgrid/internal/log"
	"meetgrid/internal/model"
	"meetgrid/internal/store"
	"meetgrid/internal/vote"
)

const (
	// DefaultTTL is how long an event lives after creation or fixing.
	DefaultTTL = 90 * 24 * time.Hour
	// DefaultGuestSoftLimit is the guest count above which a warning is logged.
	DefaultGuestSoftLimit = 20
)

// Service applies validated mutations to a store.Store.
type Service struct {
	store     store.Store
	now       func() time.Time
	newID     func() string
	ttl       time.Duration
	softLimit int
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces uuid.NewString for ids and tokens.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// WithTTL sets how long an event lives after creation or fixing.
func WithTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithGuestSoftLimit sets the guest count above which registration logs a
// warning. Registration is never refused.
func WithGuestSoftLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.softLimit = n
		}
	}
}

// NewService returns a Service over st with uuid ids, time.Now and the
// default TTL and soft limit unless opts say otherwise.
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:     st,
		now:       time.Now,
		newID:     uuid.NewString,
		ttl:       DefaultTTL,
		softLimit: DefaultGuestSoftLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput is a host's request for a new event.
type CreateInput struct {
	HostName    string           `json:"host_name"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Duration    int              `json:"duration"`
	Timezone    string           `json:"timezone"`
	Candidates  []CandidateInput `json:"candidates"`
}

// CreateResult carries the new event id and the plain host token, which
// is never retrievable again.
type CreateResult struct {
	EventID   string `json:"event_id"`
	HostToken string `json:"host_token"`
}

// Create validates in and stores a new planning event.
func (s *Service) Create(ctx context.Context, in CreateInput) (CreateResult, error) {
	now := s.now()
	fe := fieldErrors{}

	in.Title = strings.TrimSpace(in.Title)
	in.HostName = strings.TrimSpace(in.HostName)
	validateTitle(fe, in.Title)
	validateDescription(fe, in.Description)
	validateDuration(fe, in.Duration)
	validateName(fe, "host_name", in.HostName, false)
	if _, err := grid.LoadLocation(in.Timezone); err != nil {
		fe.add("timezone", "is not a known IANA time zone")
	}
	if len(in.Candidates) == 0 {
		fe.add("candidates", "at least one candidate is required")
	}
	candidates := buildCandidates(fe, "candidates", in.Candidates, in.Duration, now, s.newID)
	if err := fe.err(); err != nil {
		return CreateResult{}, err
	}

	token := s.newID()
	ev := model.Event{
		ID:            s.newID(),
		HostName:      in.HostName,
		HostTokenHash: HashToken(token),
		Title:         in.Title,
		Description:   in.Description,
		Duration:      in.Duration,
		Timezone:      in.Timezone,
		Candidates:    candidates,
		Status:        model.EventPlanning,
		ExpiresAt:     now.Add(s.ttl).UTC(),
		CreatedAt:     now.UTC(),
		UpdatedAt:     now.UTC(),
	}
	if err := s.store.CreateEvent(ctx, ev); err != nil {
		return CreateResult{}, fmt.Errorf("create event: %w", err)
	}

	appLog.Info("event created", "event_id", ev.ID, "candidates", len(candidates), "timezone", ev.Timezone)
	return CreateResult{EventID: ev.ID, HostToken: token}, nil
}

// Get returns the event and its guests in registration order.
func (s *Service) Get(ctx context.Context, id string) (model.Event, []model.Guest, error) {
	ev, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return model.Event{}, nil, err
	}
	guests, err := s.store.ListGuests(ctx, id)
	if err != nil {
		return model.Event{}, nil, err
	}
	return ev, guests, nil
}

// UpdateInput carries optional host edits. Nil pointers leave a field as
// is. Removals are applied before additions.
type UpdateInput struct {
	EventID              string           `json:"-"`
	HostToken            string           `json:"-"`
	Title                *string          `json:"title,omitempty"`
	Description          *string          `json:"description,omitempty"`
	Duration             *int             `json:"duration,omitempty"`
	CandidatesToAdd      []CandidateInput `json:"candidates_to_add,omitempty"`
	CandidateIDsToRemove []string         `json:"candidate_ids_to_remove,omitempty"`
}

// Update applies host edits to a planning event. A duration change rewrites
// every existing candidate's end to start plus the new duration, removed
// candidates are stripped from guest answers, and added candidates always
// span exactly the (possibly new) duration.
func (s *Service) Update(ctx context.Context, in UpdateInput) (model.Event, error) {
	ev, err := s.authorizeHost(ctx, in.EventID, in.HostToken)
	if err != nil {
		return model.Event{}, err
	}
	if ev.Status == model.EventFixed {
		return model.Event{}, ErrEventFixed
	}

	now := s.now()
	fe := fieldErrors{}
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		validateTitle(fe, t)
		ev.Title = t
	}
	if in.Description != nil {
		validateDescription(fe, *in.Description)
		ev.Description = *in.Description
	}
	if in.Duration != nil {
		validateDuration(fe, *in.Duration)
		if *in.Duration != ev.Duration {
			ev.Duration = *in.Duration
			d := time.Duration(ev.Duration) * time.Minute
			for i := range ev.Candidates {
				ev.Candidates[i].End = ev.Candidates[i].Start.Add(d)
			}
		}
	}

	removed := make(map[string]bool, len(in.CandidateIDsToRemove))
	for _, id := range in.CandidateIDsToRemove {
		removed[id] = true
	}
	if len(removed) > 0 {
		kept := ev.Candidates[:0]
		for _, c := range ev.Candidates {
			if !removed[c.ID] {
				kept = append(kept, c)
			}
		}
		ev.Candidates = kept
	}

	adds := make([]CandidateInput, len(in.CandidatesToAdd))
	for i, c := range in.CandidatesToAdd {
		adds[i] = CandidateInput{Start: c.Start}
	}
	ev.Candidates = append(ev.Candidates, buildCandidates(fe, "candidates_to_add", adds, ev.Duration, now, s.newID)...)
	if len(ev.Candidates) == 0 {
		fe.add("candidates", "at least one candidate is required")
	}
	if err := fe.err(); err != nil {
		return model.Event{}, err
	}

	var touched []model.Guest
	if len(removed) > 0 {
		guests, err := s.store.ListGuests(ctx, ev.ID)
		if err != nil {
			return model.Event{}, err
		}
		for _, g := range guests {
			kept := make([]model.Answer, 0, len(g.Answers))
			for _, a := range g.Answers {
				if !removed[a.CandidateID] {
					kept = append(kept, a)
				}
			}
			if len(kept) != len(g.Answers) {
				g.Answers = kept
				g.UpdatedAt = now.UTC()
				touched = append(touched, g)
			}
		}
	}

	ev.UpdatedAt = now.UTC()
	if err := s.store.UpdateEvent(ctx, ev, touched...); err != nil {
		return model.Event{}, fmt.Errorf("update event: %w", err)
	}
	appLog.Info("event updated", "event_id", ev.ID, "candidates", len(ev.Candidates), "guests_touched", len(touched))
	return ev, nil
}

// Delete removes an event and all of its guests.
func (s *Service) Delete(ctx context.Context, id, hostToken string) error {
	if _, err := s.authorizeHost(ctx, id, hostToken); err != nil {
		return err
	}
	if err := s.store.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	appLog.Info("event deleted", "event_id", id)
	return nil
}

// Fix locks the event onto candidateID and restarts its TTL.
func (s *Service) Fix(ctx context.Context, id, candidateID, hostToken string) (model.Event, error) {
	ev, err := s.authorizeHost(ctx, id, hostToken)
	if err != nil {
		return model.Event{}, err
	}
	if ev.Status == model.EventFixed {
		return model.Event{}, ErrEventFixed
	}
	if _, ok := ev.Candidate(candidateID); !ok {
		return model.Event{}, fmt.Errorf("%w: %q", ErrUnknownCandidate, candidateID)
	}

	now := s.now()
	ev.Status = model.EventFixed
	ev.FixedCandidateID = candidateID
	ev.ExpiresAt = now.Add(s.ttl).UTC()
	ev.UpdatedAt = now.UTC()
	if err := s.store.UpdateEvent(ctx, ev); err != nil {
		return model.Event{}, fmt.Errorf("fix event: %w", err)
	}
	appLog.Info("event fixed", "event_id", ev.ID, "candidate_id", candidateID)
	return ev, nil
}

// SuggestFix returns the candidate a host would most likely fix on: the
// one with the most ok answers, earliest listed on a tie.
func (s *Service) SuggestFix(ctx context.Context, id string) (string, bool, error) {
	ev, guests, err := s.Get(ctx, id)
	if err != nil {
		return "", false, err
	}
	best, ok := vote.BestCandidate(ev.Candidates, guests)
	return best, ok, nil
}

// PurgeExpired deletes every event whose ExpiresAt has passed.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	n, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge expired: %w", err)
	}
	if n > 0 {
		appLog.Info("expired events purged", "count", n)
	}
	return n, nil
}

func (s *Service) authorizeHost(ctx context.Context, id, token string) (model.Event, error) {
	ev, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return model.Event{}, err
	}
	if !VerifyToken(token, ev.HostTokenHash) {
		appLog.Warn("host token rejected", "event_id", id)
		return model.Event{}, ErrUnauthorized
	}
	return ev, nil
}

// HashToken returns the hex sha256 of token, the form tokens are stored in.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// VerifyToken reports whether token hashes to storedHash. Empty values
// never match.
func VerifyToken(token, storedHash string) bool {
	if token == "" || storedHash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(storedHash)) == 1
}
