package event

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"meetgrid/internal/model"
)

const (
	MaxTitleLen       = 100
	MaxDescriptionLen = 500
	MaxNameLen        = 50
)

// CandidateInput is a proposed window before it gets an id. A zero End
// means Start plus the event duration.
type CandidateInput struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func validateTitle(fe fieldErrors, title string) {
	switch n := utf8.RuneCountInString(title); {
	case n == 0:
		fe.add("title", "is required")
	case n > MaxTitleLen:
		fe.add("title", fmt.Sprintf("must be at most %d characters", MaxTitleLen))
	}
}

func validateDescription(fe fieldErrors, desc string) {
	if utf8.RuneCountInString(desc) > MaxDescriptionLen {
		fe.add("description", fmt.Sprintf("must be at most %d characters", MaxDescriptionLen))
	}
}

func validateDuration(fe fieldErrors, minutes int) {
	if !model.ValidDuration(minutes) {
		fe.add("duration", fmt.Sprintf("must be one of %v", model.Durations))
	}
}

func validateName(fe fieldErrors, field, name string, required bool) {
	switch n := utf8.RuneCountInString(name); {
	case n == 0 && required:
		fe.add(field, "is required")
	case n > MaxNameLen:
		fe.add(field, fmt.Sprintf("must be at most %d characters", MaxNameLen))
	}
}

// normalizeEmail trims and lowercases email and rejects anything that is
// not a bare address. Empty input is allowed.
func normalizeEmail(fe fieldErrors, email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ""
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		fe.add("email", "is not a valid email address")
	}
	return email
}

// buildCandidates turns inputs into stored candidates. Every start must be
// after now and every end after its start.
func buildCandidates(fe fieldErrors, field string, in []CandidateInput, duration int, now time.Time, newID func() string) []model.Candidate {
	out := make([]model.Candidate, 0, len(in))
	for i, c := range in {
		key := fmt.Sprintf("%s[%d]", field, i)
		end := c.End
		if end.IsZero() {
			end = c.Start.Add(time.Duration(duration) * time.Minute)
		}
		switch {
		case c.Start.IsZero():
			fe.add(key, "start is required")
			continue
		case !c.Start.After(now):
			fe.add(key, "start must be in the future")
			continue
		case !end.After(c.Start):
			fe.add(key, "end must be after start")
			continue
		}
		out = append(out, model.Candidate{ID: newID(), Start: c.Start.UTC(), End: end.UTC()})
	}
	return out
}

// normalizeAnswers checks statuses and candidate ids and collapses repeated
// candidates: the first occurrence keeps its position, the last status wins.
func normalizeAnswers(fe fieldErrors, answers []model.Answer, ev model.Event) ([]model.Answer, error) {
	out := make([]model.Answer, 0, len(answers))
	pos := make(map[string]int, len(answers))
	for i, a := range answers {
		if !a.Status.Valid() {
			fe.add(fmt.Sprintf("answers[%d].status", i), "must be one of ok, maybe, ng")
			continue
		}
		if _, ok := ev.Candidate(a.CandidateID); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCandidate, a.CandidateID)
		}
		if j, ok := pos[a.CandidateID]; ok {
			out[j].Status = a.Status
			continue
		}
		pos[a.CandidateID] = len(out)
		out = append(out, a)
	}
	return out, nil
}
