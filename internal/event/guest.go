package event

import (
	"context"
	"fmt"
	"strings"

	appLog "meetgrid/internal/log"
	"meetgrid/internal/model"
)

// RegisterInput is a guest's first set of answers.
type RegisterInput struct {
	EventID string         `json:"-"`
	Name    string         `json:"name"`
	Email   string         `json:"email"`
	Answers []model.Answer `json:"answers"`
}

// RegisterResult carries the guest id and the plain edit token.
type RegisterResult struct {
	GuestID   string `json:"guest_id"`
	EditToken string `json:"edit_token"`
}

// RegisterGuest adds a respondent to a planning event. A non-empty email
// must be unique within the event; the store reports a clash as
// store.ErrDuplicateEmail.
func (s *Service) RegisterGuest(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	ev, err := s.store.GetEvent(ctx, in.EventID)
	if err != nil {
		return RegisterResult{}, err
	}
	if ev.Status == model.EventFixed {
		return RegisterResult{}, ErrEventFixed
	}

	fe := fieldErrors{}
	name := strings.TrimSpace(in.Name)
	validateName(fe, "name", name, true)
	email := normalizeEmail(fe, in.Email)
	answers, err := normalizeAnswers(fe, in.Answers, ev)
	if err != nil {
		return RegisterResult{}, err
	}
	if err := fe.err(); err != nil {
		return RegisterResult{}, err
	}

	now := s.now().UTC()
	token := s.newID()
	g := model.Guest{
		ID:            s.newID(),
		Name:          name,
		Email:         email,
		EditTokenHash: HashToken(token),
		Answers:       answers,
		RegisteredAt:  now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateGuest(ctx, ev.ID, g); err != nil {
		return RegisterResult{}, fmt.Errorf("register guest: %w", err)
	}

	appLog.Info("guest registered", "event_id", ev.ID, "guest_id", g.ID, "answers", len(answers))
	if guests, err := s.store.ListGuests(ctx, ev.ID); err == nil && len(guests) > s.softLimit {
		appLog.Warn("guest soft limit exceeded", "event_id", ev.ID, "guests", len(guests), "limit", s.softLimit)
	}
	return RegisterResult{GuestID: g.ID, EditToken: token}, nil
}

// UpdateAnswersInput replaces a guest's answers; EditToken authorizes it.
type UpdateAnswersInput struct {
	EventID   string         `json:"-"`
	GuestID   string         `json:"-"`
	EditToken string         `json:"-"`
	Answers   []model.Answer `json:"answers"`
}

// UpdateAnswers replaces a guest's answers after checking their edit
// token. Answers the guest leaves out become unanswered.
func (s *Service) UpdateAnswers(ctx context.Context, in UpdateAnswersInput) (model.Guest, error) {
	ev, err := s.store.GetEvent(ctx, in.EventID)
	if err != nil {
		return model.Guest{}, err
	}
	if ev.Status == model.EventFixed {
		return model.Guest{}, ErrEventFixed
	}
	g, err := s.store.GetGuest(ctx, in.EventID, in.GuestID)
	if err != nil {
		return model.Guest{}, err
	}
	if !VerifyToken(in.EditToken, g.EditTokenHash) {
		appLog.Warn("edit token rejected", "event_id", in.EventID, "guest_id", in.GuestID)
		return model.Guest{}, ErrUnauthorized
	}

	fe := fieldErrors{}
	answers, err := normalizeAnswers(fe, in.Answers, ev)
	if err != nil {
		return model.Guest{}, err
	}
	if err := fe.err(); err != nil {
		return model.Guest{}, err
	}

	g.Answers = answers
	g.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateGuest(ctx, ev.ID, g); err != nil {
		return model.Guest{}, fmt.Errorf("update answers: %w", err)
	}
	appLog.Info("guest answers updated", "event_id", ev.ID, "guest_id", g.ID, "answers", len(answers))
	return g, nil
}
