package ics

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"meetgrid/internal/model"
	"meetgrid/internal/vote"
)

// ExportOptions carries the values Export cannot derive from the event.
type ExportOptions struct {
	// BaseURL prefixes the share link written to URL and DESCRIPTION.
	BaseURL string
	// Now stamps DTSTAMP. Zero means time.Now().
	Now time.Time
}

// Export renders an event as a VCALENDAR. A planning event yields one
// tentative, transparent VEVENT per candidate whose summary carries the
// ok count; a fixed event yields a single confirmed VEVENT with guests
// who left an email listed as attendees.
func Export(ev model.Event, guests []model.Guest, opts ExportOptions) string {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	link := ""
	if opts.BaseURL != "" {
		link = strings.TrimSuffix(opts.BaseURL, "/") + "/events/" + ev.ID
	}

	cal := ical.NewCalendarFor("meetgrid")
	cal.SetMethod(ical.MethodPublish)
	cal.SetXWRCalName(ev.Title)
	if ev.Timezone != "" {
		cal.SetXWRTimezone(ev.Timezone)
	}

	if ev.Status == model.EventFixed {
		if c, ok := ev.Candidate(ev.FixedCandidateID); ok {
			ve := cal.AddEvent(ev.ID + "@meetgrid")
			fillCommon(ve, ev, c, now, link)
			ve.SetSummary(ev.Title)
			ve.SetStatus(ical.ObjectStatusConfirmed)
			ve.SetTimeTransparency(ical.TransparencyOpaque)
			for _, g := range guests {
				if g.Email == "" {
					continue
				}
				status, _ := g.AnswerFor(c.ID)
				ve.AddAttendee(g.Email, ical.WithCN(g.Name), partStat(status))
			}
		}
		return cal.Serialize()
	}

	total := len(guests)
	for _, s := range vote.Tally(ev.Candidates, guests) {
		c, _ := ev.Candidate(s.CandidateID)
		ve := cal.AddEvent(c.ID + "@meetgrid")
		fillCommon(ve, ev, c, now, link)
		summary := fmt.Sprintf("%s (OK %d/%d)", ev.Title, s.OKCount, total)
		if s.IsBest {
			summary = "★ " + summary
		}
		ve.SetSummary(summary)
		ve.SetStatus(ical.ObjectStatusTentative)
		ve.SetTimeTransparency(ical.TransparencyTransparent)
	}
	return cal.Serialize()
}

func fillCommon(ve *ical.VEvent, ev model.Event, c model.Candidate, now time.Time, link string) {
	ve.SetDtStampTime(now)
	if !ev.CreatedAt.IsZero() {
		ve.SetCreatedTime(ev.CreatedAt)
	}
	if !ev.UpdatedAt.IsZero() {
		ve.SetModifiedAt(ev.UpdatedAt)
	}
	ve.SetStartAt(c.Start)
	ve.SetEndAt(c.End)

	desc := ev.Description
	if link != "" {
		ve.SetURL(link)
		if desc != "" {
			desc += "\n\n"
		}
		desc += link
	}
	if desc != "" {
		ve.SetDescription(desc)
	}
}

func partStat(s model.VoteStatus) ical.ParticipationStatus {
	switch s {
	case model.StatusOK:
		return ical.ParticipationStatusAccepted
	case model.StatusMaybe:
		return ical.ParticipationStatusTentative
	case model.StatusNG:
		return ical.ParticipationStatusDeclined
	default:
		return ical.ParticipationStatusNeedsAction
	}
}
