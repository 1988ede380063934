package model

import "time"

// VoteStatus is a guest's answer for one candidate.
type VoteStatus string

const (
	StatusOK    VoteStatus = "ok"
	StatusMaybe VoteStatus = "maybe"
	StatusNG    VoteStatus = "ng"
)

// Valid reports whether s is one of the three known statuses.
func (s VoteStatus) Valid() bool {
	switch s {
	case StatusOK, StatusMaybe, StatusNG:
		return true
	}
	return false
}

// EventStatus tracks whether the host has locked in a candidate.
type EventStatus string

const (
	EventPlanning EventStatus = "planning"
	EventFixed    EventStatus = "fixed"
)

// Durations lists the meeting lengths a host may pick, in minutes.
var Durations = []int{30, 60, 90, 120}

// ValidDuration reports whether minutes is one of Durations.
func ValidDuration(minutes int) bool {
	for _, d := range Durations {
		if d == minutes {
			return true
		}
	}
	return false
}

// Candidate is a proposed meeting window. Start and End are UTC instants and
// End is after Start. A candidate is never edited in place; moving one means
// removing it and adding a new one.
type Candidate struct {
	ID    string    `json:"id"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Answer is one guest's status for one candidate.
type Answer struct {
	CandidateID string     `json:"candidate_id"`
	Status      VoteStatus `json:"status"`
}

// Guest is a respondent and their answers. Answers is stored as a list but
// holds at most one entry per candidate; a candidate without an entry means
// the guest has not answered it.
type Guest struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email,omitempty"`
	EditTokenHash string    `json:"-"`
	Answers       []Answer  `json:"answers"`
	RegisteredAt  time.Time `json:"registered_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AnswerFor returns the guest's status for candidateID. The first matching
// entry wins if the list somehow holds duplicates.
func (g Guest) AnswerFor(candidateID string) (VoteStatus, bool) {
	for _, a := range g.Answers {
		if a.CandidateID == candidateID {
			return a.Status, true
		}
	}
	return "", false
}

// Event is a scheduling poll owned by a host.
type Event struct {
	ID               string      `json:"id"`
	HostName         string      `json:"host_name"`
	HostTokenHash    string      `json:"-"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	Duration         int         `json:"duration"`
	Timezone         string      `json:"timezone"`
	Candidates       []Candidate `json:"candidates"`
	Status           EventStatus `json:"status"`
	FixedCandidateID string      `json:"fixed_candidate_id,omitempty"`
	ExpiresAt        time.Time   `json:"expires_at"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// Candidate looks up a candidate by id.
func (e Event) Candidate(id string) (Candidate, bool) {
	for _, c := range e.Candidates {
		if c.ID == id {
			return c, true
		}
	}
	return Candidate{}, false
}
