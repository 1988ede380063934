package web

import (
	"fmt"
	"net/http"

	"meetgrid/internal/event"
	"meetgrid/internal/ics"
	"meetgrid/internal/model"
	"meetgrid/internal/vote"
)

type createEventResponse struct {
	EventID   string `json:"event_id"`
	HostToken string `json:"host_token"`
	ShareURL  string `json:"share_url"`
}

// eventResponse is the public view of an event. Guest emails are left
// out since anyone holding the link can read it.
type eventResponse struct {
	Event           model.Event   `json:"event"`
	Guests          []model.Guest `json:"guests"`
	ShareURL        string        `json:"share_url"`
	BestCandidateID string        `json:"best_candidate_id,omitempty"`
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var in event.CreateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := s.svc.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createEventResponse{
		EventID:   res.EventID,
		HostToken: res.HostToken,
		ShareURL:  s.shareURL(res.EventID),
	})
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, guests, err := s.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	public := make([]model.Guest, 0, len(guests))
	for _, g := range guests {
		g.Email = ""
		public = append(public, g)
	}
	best, _ := vote.BestCandidate(ev.Candidates, guests)
	writeJSON(w, http.StatusOK, eventResponse{
		Event:           ev,
		Guests:          public,
		ShareURL:        s.shareURL(ev.ID),
		BestCandidateID: best,
	})
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var in event.UpdateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.EventID = r.PathValue("id")
	in.HostToken = r.Header.Get(tokenHeader)

	ev, err := s.svc.Update(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.svc.Delete(r.Context(), id, r.Header.Get(tokenHeader)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}

type fixRequest struct {
	CandidateID string `json:"candidate_id"`
}

func (req *fixRequest) Validate() []string {
	if req.CandidateID == "" {
		return []string{"candidate_id is required"}
	}
	return nil
}

func (s *Server) handleFixEvent(w http.ResponseWriter, r *http.Request) {
	var req fixRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ev, err := s.svc.Fix(r.Context(), r.PathValue("id"), req.CandidateID, r.Header.Get(tokenHeader))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

type suggestResponse struct {
	CandidateID string `json:"candidate_id,omitempty"`
	Found       bool   `json:"found"`
}

func (s *Server) handleSuggestFix(w http.ResponseWriter, r *http.Request) {
	id, ok, err := s.svc.SuggestFix(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestResponse{CandidateID: id, Found: ok})
}

func (s *Server) handleRegisterGuest(w http.ResponseWriter, r *http.Request) {
	var in event.RegisterInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.EventID = r.PathValue("id")

	res, err := s.svc.RegisterGuest(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleUpdateAnswers(w http.ResponseWriter, r *http.Request) {
	var in event.UpdateAnswersInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.EventID = r.PathValue("id")
	in.GuestID = r.PathValue("guestID")
	in.EditToken = r.Header.Get(tokenHeader)

	g, err := s.svc.UpdateAnswers(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// handleCalendar serves the event as an .ics download.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	ev, guests, err := s.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	body := ics.Export(ev, guests, ics.ExportOptions{BaseURL: s.cfg.BaseURL, Now: s.now()})

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.ics"`, ev.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
