package web

import (
	"net/http"
	"time"

	"meetgrid/internal/grid"
	"meetgrid/internal/model"
	"meetgrid/internal/vote"
)

// GridInput is everything a calendar grid is drawn from.
type GridInput struct {
	Candidates []model.Candidate
	Guests     []model.Guest
	// Location is the primary axis zone. Nil means UTC.
	Location *time.Location
	// Secondary, if set, adds a per-day label column in that zone.
	Secondary *time.Location
	// Host, if set and different from Location, adds host wall-clock
	// strings to every candidate.
	Host             *time.Location
	Locale           grid.Locale
	FixedCandidateID string
	// Now picks the zone abbreviation shown next to the zone name.
	Now time.Time
}

// GridView is the render-ready layout returned by the grid endpoints.
type GridView struct {
	Timezone          string          `json:"timezone"`
	TimezoneLabel     string          `json:"timezone_label"`
	SecondaryTimezone string          `json:"secondary_timezone,omitempty"`
	Locale            grid.Locale     `json:"locale"`
	SlotsPerDay       int             `json:"slots_per_day"`
	InitialScrollSlot int             `json:"initial_scroll_slot"`
	HourLabels        []string        `json:"hour_labels"`
	DayKeys           []string        `json:"day_keys"`
	Days              []DayView       `json:"days"`
	Candidates        []CandidateView `json:"candidates"`
	TotalGuests       int             `json:"total_guests"`
	BestCandidateID   string          `json:"best_candidate_id,omitempty"`
	FixedCandidateID  string          `json:"fixed_candidate_id,omitempty"`
}

type DayView struct {
	DayKey          string     `json:"day_key"`
	TotalColumns    int        `json:"total_columns"`
	SecondaryLabels []string   `json:"secondary_labels,omitempty"`
	Bands           []BandView `json:"bands"`
}

type BandView struct {
	CandidateID  string    `json:"candidate_id"`
	StartSlot    int       `json:"start_slot"`
	EndSlot      int       `json:"end_slot"`
	Column       int       `json:"column"`
	TotalColumns int       `json:"total_columns"`
	Tier         vote.Tier `json:"tier"`
}

// CandidateView is a candidate's tally plus its display strings.
type CandidateView struct {
	vote.CandidateVoteSummary
	Start      time.Time      `json:"start"`
	End        time.Time      `json:"end"`
	Label      string         `json:"label"`
	RangeLabel string         `json:"range_label"`
	Tier       vote.Tier      `json:"tier"`
	HostTime   *grid.DualTime `json:"host_time,omitempty"`
}

// BuildGridView lays out candidates on the half-hour grid and colors each
// band by its vote tier.
func BuildGridView(in GridInput) (GridView, error) {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	locale := grid.ParseLocale(string(in.Locale))
	total := len(in.Guests)

	view := GridView{
		Timezone:          loc.String(),
		TimezoneLabel:     grid.ZoneName(loc, now),
		Locale:            locale,
		SlotsPerDay:       grid.SlotsPerDay,
		InitialScrollSlot: grid.InitialScrollSlot,
		HourLabels:        grid.HourLabels(),
		DayKeys:           grid.UniqueDayKeys(in.Candidates, loc),
		Days:              make([]DayView, 0),
		Candidates:        make([]CandidateView, 0, len(in.Candidates)),
		TotalGuests:       total,
		FixedCandidateID:  in.FixedCandidateID,
	}
	if in.Secondary != nil {
		view.SecondaryTimezone = in.Secondary.String()
	}
	showHost := in.Host != nil && in.Host.String() != loc.String()

	tiers := make(map[string]vote.Tier, len(in.Candidates))
	for i, s := range vote.Tally(in.Candidates, in.Guests) {
		c := in.Candidates[i]
		tier := s.Tier(total)
		tiers[c.ID] = tier
		if s.IsBest {
			view.BestCandidateID = c.ID
		}
		cv := CandidateView{
			CandidateVoteSummary: s,
			Start:                c.Start,
			End:                  c.End,
			Label:                grid.FormatCandidate(c.Start, loc, locale),
			RangeLabel:           grid.FormatCandidateRange(c.Start, c.End, loc, locale),
			Tier:                 tier,
		}
		if showHost {
			dual := grid.FormatDual(c.Start, loc, in.Host, locale)
			cv.HostTime = &dual
		}
		view.Candidates = append(view.Candidates, cv)
	}

	for _, day := range grid.GroupBands(grid.LayoutBands(in.Candidates, loc)) {
		dv := DayView{
			DayKey:       day.DayKey,
			TotalColumns: day.TotalColumns,
			Bands:        make([]BandView, 0, len(day.Bands)),
		}
		if in.Secondary != nil {
			labels, err := grid.SecondaryTimeLabels(day.DayKey, loc, in.Secondary)
			if err != nil {
				return GridView{}, err
			}
			dv.SecondaryLabels = labels
		}
		for _, b := range day.Bands {
			dv.Bands = append(dv.Bands, BandView{
				CandidateID:  b.Candidate.ID,
				StartSlot:    b.StartSlot,
				EndSlot:      b.EndSlot,
				Column:       b.Column,
				TotalColumns: b.TotalColumns,
				Tier:         tiers[b.Candidate.ID],
			})
		}
		view.Days = append(view.Days, dv)
	}
	return view, nil
}

// handleEventGrid renders a stored event.
//
// GET /api/events/{id}/grid?tz=&secondary_tz=&locale=
//   - tz:           primary zone (default: the event's zone)
//   - secondary_tz: extra label column (default: config secondary_timezone)
//   - locale:       "ja" (default) or "en"
func (s *Server) handleEventGrid(w http.ResponseWriter, r *http.Request) {
	ev, guests, err := s.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	q := r.URL.Query()
	loc, err := grid.LoadLocation(valueOr(q.Get("tz"), ev.Timezone))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	host, err := grid.LoadLocation(ev.Timezone)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var secondary *time.Location
	if name := valueOr(q.Get("secondary_tz"), s.cfg.SecondaryTimezone); name != "" {
		if secondary, err = grid.LoadLocation(name); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}

	view, err := BuildGridView(GridInput{
		Candidates:       ev.Candidates,
		Guests:           guests,
		Location:         loc,
		Secondary:        secondary,
		Host:             host,
		Locale:           grid.ParseLocale(q.Get("locale")),
		FixedCandidateID: ev.FixedCandidateID,
		Now:              s.now(),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type layoutRequest struct {
	Candidates        []model.Candidate `json:"candidates"`
	Guests            []layoutGuest     `json:"guests"`
	Timezone          string            `json:"timezone"`
	SecondaryTimezone string            `json:"secondary_timezone"`
	HostTimezone      string            `json:"host_timezone"`
	Locale            string            `json:"locale"`
	FixedCandidateID  string            `json:"fixed_candidate_id"`
}

type layoutGuest struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Answers []model.Answer `json:"answers"`
}

func (req *layoutRequest) Validate() []string {
	var errs []string
	seen := make(map[string]bool, len(req.Candidates))
	for _, c := range req.Candidates {
		switch {
		case c.ID == "":
			errs = append(errs, "candidate id is required")
		case seen[c.ID]:
			errs = append(errs, "duplicate candidate id "+c.ID)
		case !c.End.After(c.Start):
			errs = append(errs, "candidate "+c.ID+": end must be after start")
		}
		seen[c.ID] = true
	}
	return errs
}

// handleLayout runs the grid engine on caller-supplied data without
// touching the store.
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	loc, err := grid.LoadLocation(valueOr(req.Timezone, s.cfg.Timezone))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var secondary, host *time.Location
	if req.SecondaryTimezone != "" {
		if secondary, err = grid.LoadLocation(req.SecondaryTimezone); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}
	if req.HostTimezone != "" {
		if host, err = grid.LoadLocation(req.HostTimezone); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}

	guests := make([]model.Guest, 0, len(req.Guests))
	for _, g := range req.Guests {
		guests = append(guests, model.Guest{ID: g.ID, Name: g.Name, Answers: g.Answers})
	}

	view, err := BuildGridView(GridInput{
		Candidates:       req.Candidates,
		Guests:           guests,
		Location:         loc,
		Secondary:        secondary,
		Host:             host,
		Locale:           grid.ParseLocale(req.Locale),
		FixedCandidateID: req.FixedCandidateID,
		Now:              s.now(),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
