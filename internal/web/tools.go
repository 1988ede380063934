package web

import (
	"io"
	"net/http"
	"time"

	"meetgrid/internal/grid"
	"meetgrid/internal/ics"
	"meetgrid/internal/model"
)

const (
	// defaultExpandWindow bounds recurrence expansion when no end is given.
	defaultExpandWindow = 90 * 24 * time.Hour
	// maxExpandWindow is the longest range a caller may ask for.
	maxExpandWindow = 366 * 24 * time.Hour
)

type expandRequest struct {
	RRule    string    `json:"rrule"`
	Start    time.Time `json:"start"`
	Duration int       `json:"duration"`
	Until    time.Time `json:"until"`
	Timezone string    `json:"timezone"`
	Max      int       `json:"max"`
}

func (req *expandRequest) Validate() []string {
	var errs []string
	if req.RRule == "" {
		errs = append(errs, "rrule is required")
	}
	if req.Start.IsZero() {
		errs = append(errs, "start is required")
	}
	if !model.ValidDuration(req.Duration) {
		errs = append(errs, "duration must be one of 30, 60, 90, 120")
	}
	switch {
	case req.Max < 0:
		errs = append(errs, "max must not be negative")
	case req.Max > ics.CandidateLimit:
		req.Max = ics.CandidateLimit
	}
	if !req.Until.IsZero() && req.Until.Sub(req.Start) > maxExpandWindow {
		errs = append(errs, "until must be within 366 days of start")
	}
	return errs
}

// handleExpand turns a recurrence rule into candidate windows.
//
// POST /api/candidates/expand
//
//	{"rrule":"FREQ=WEEKLY;BYDAY=MO,WE","start":"...","duration":60,
//	 "until":"...","timezone":"Asia/Tokyo","max":50}
func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	var req expandRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	loc, err := grid.LoadLocation(valueOr(req.Timezone, s.cfg.Timezone))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	until := req.Until
	if until.IsZero() {
		until = req.Start.Add(defaultExpandWindow)
	}

	res, err := ics.ExpandCandidates(r.Context(), req.RRule, req.Start, time.Duration(req.Duration)*time.Minute, ics.ExpandConfig{
		Location:      loc,
		RangeStart:    req.Start,
		RangeEnd:      until,
		MaxCandidates: req.Max,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleImport reads candidate windows from an uploaded calendar.
//
// POST /api/candidates/import?tz=&from=&until=
//   - body:  raw text/calendar
//   - tz:    zone for floating times (default: config timezone)
//   - from:  RFC 3339 lower bound (default: now)
//   - until: RFC 3339 upper bound (default: from + 90 days)
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	loc, err := grid.LoadLocation(valueOr(q.Get("tz"), s.cfg.Timezone))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	from, ok := parseTimeParam(w, q.Get("from"), "from", s.now())
	if !ok {
		return
	}
	until, ok := parseTimeParam(w, q.Get("until"), "until", from.Add(defaultExpandWindow))
	if !ok {
		return
	}

	if until.Sub(from) > maxExpandWindow {
		badRequest(w, "until must be within 366 days of from")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		badRequest(w, "failed to read calendar body: "+err.Error())
		return
	}

	res, err := ics.ParseCandidates(r.Context(), body, ics.ExpandConfig{
		Location:   loc,
		RangeStart: from,
		RangeEnd:   until,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type timezoneDTO struct {
	Name   string `json:"name"`
	Abbr   string `json:"abbr"`
	Offset string `json:"offset"`
	Label  string `json:"label"`
}

// handleTimezones lists the zone picker entries with the abbreviation and
// offset currently in effect.
func (s *Server) handleTimezones(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	out := make([]timezoneDTO, 0, len(grid.CommonTimezones))
	for _, name := range grid.CommonTimezones {
		loc, err := grid.LoadLocation(name)
		if err != nil {
			continue
		}
		out = append(out, timezoneDTO{
			Name:   name,
			Abbr:   grid.ZoneAbbr(loc, now),
			Offset: grid.UTCOffset(loc, now),
			Label:  grid.ZoneName(loc, now),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func parseTimeParam(w http.ResponseWriter, v, name string, def time.Time) (time.Time, bool) {
	if v == "" {
		return def, true
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		badRequest(w, name+" must be an RFC 3339 timestamp")
		return time.Time{}, false
	}
	return t, true
}
