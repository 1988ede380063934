// Package vote aggregates guest answers per candidate and picks the best
// candidate. All functions are pure and tolerate empty input; answers that
// reference unknown candidates simply never match.
package vote

import "meetgrid/internal/model"

// StrongRatio is the ok share above which a candidate is shown as strong.
const StrongRatio = 0.6

// Respondent is one guest's answer for a candidate.
type Respondent struct {
	GuestID string           `json:"guest_id"`
	Name    string           `json:"name"`
	Status  model.VoteStatus `json:"status"`
}

// CandidateVoteSummary is the per-candidate tally shown in grids and popovers.
type CandidateVoteSummary struct {
	CandidateID string       `json:"candidate_id"`
	OKCount     int          `json:"ok_count"`
	MaybeCount  int          `json:"maybe_count"`
	NGCount     int          `json:"ng_count"`
	IsBest      bool         `json:"is_best"`
	Respondents []Respondent `json:"respondents"`
}

// CountStatus counts guests holding status for candidateID.
func CountStatus(guests []model.Guest, candidateID string, status model.VoteStatus) int {
	n := 0
	for _, g := range guests {
		for _, a := range g.Answers {
			if a.CandidateID == candidateID && a.Status == status {
				n++
				break
			}
		}
	}
	return n
}

// BestCandidate returns the candidate with the most ok answers. Candidates are
// scanned in list order and only a strictly greater count replaces the
// current best, so the earliest candidate wins a tie. It reports false when
// there are no guests or no candidate has a single ok.
func BestCandidate(candidates []model.Candidate, guests []model.Guest) (string, bool) {
	if len(guests) == 0 {
		return "", false
	}

	bestID := ""
	bestOK := -1
	for _, c := range candidates {
		ok := CountStatus(guests, c.ID, model.StatusOK)
		if ok > bestOK {
			bestOK = ok
			bestID = c.ID
		}
	}
	if bestOK <= 0 {
		return "", false
	}
	return bestID, true
}

// Summarize builds the summary of one candidate. Respondents follow guest
// order and only include guests who answered this candidate.
func Summarize(candidateID string, candidates []model.Candidate, guests []model.Guest) CandidateVoteSummary {
	bestID, hasBest := BestCandidate(candidates, guests)
	return summarize(candidateID, guests, hasBest && bestID == candidateID)
}

// Tally summarizes every candidate in list order. It matches calling
// Summarize per candidate but computes the best candidate once.
func Tally(candidates []model.Candidate, guests []model.Guest) []CandidateVoteSummary {
	bestID, hasBest := BestCandidate(candidates, guests)
	out := make([]CandidateVoteSummary, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, summarize(c.ID, guests, hasBest && bestID == c.ID))
	}
	return out
}

func summarize(candidateID string, guests []model.Guest, isBest bool) CandidateVoteSummary {
	s := CandidateVoteSummary{
		CandidateID: candidateID,
		OKCount:     CountStatus(guests, candidateID, model.StatusOK),
		MaybeCount:  CountStatus(guests, candidateID, model.StatusMaybe),
		NGCount:     CountStatus(guests, candidateID, model.StatusNG),
		IsBest:      isBest,
		Respondents: make([]Respondent, 0),
	}
	for _, g := range guests {
		status, ok := g.AnswerFor(candidateID)
		if !ok {
			continue
		}
		s.Respondents = append(s.Respondents, Respondent{GuestID: g.ID, Name: g.Name, Status: status})
	}
	return s
}
