package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "meetgrid/internal/log"
)

var (
	// ErrEmptyCalendar is returned for an empty ICS payload.
	ErrEmptyCalendar = errors.New("empty ICS body")
	// ErrInvalidCalendar wraps syntax errors from the ICS parser.
	ErrInvalidCalendar = errors.New("invalid ICS body")
)

// ParsedEvent is the normalized representation of an imported VEVENT.
// Recurrence is kept raw and expanded by ExpandEvents.
type ParsedEvent struct {
	UID     string
	Summary string

	Start  time.Time
	End    time.Time
	AllDay bool

	RawRRule string
	ExDates  []time.Time
}

// ParseICS parses an ICS payload into a list of ParsedEvent.
//
//   - DTSTART/DTEND with TZID go through the library's zone handling.
//   - Floating times (no TZID, no trailing Z) are read in loc.
//   - Events missing a usable DTSTART are logged and skipped.
//   - A missing DTEND falls back to DTSTART (zero length).
func ParseICS(body []byte, loc *time.Location) ([]ParsedEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyCalendar
	}
	if loc == nil {
		loc = time.UTC
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "bytes", len(body))
		return nil, fmt.Errorf("%w: %v", ErrInvalidCalendar, err)
	}

	events := make([]ParsedEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(comp, loc)
		if perr != nil {
			appLog.Warn("ics vevent skipped", "uid", comp.Id(), "reason", perr.Error())
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics parse completed", "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (ParsedEvent, error) {
	var out ParsedEvent

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		out.UID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return out, errors.New("missing DTSTART")
	}
	start, allDay, err := propTime(ve, startProp, ical.ComponentPropertyDtStart, loc)
	if err != nil {
		return out, err
	}
	out.Start = start
	out.AllDay = allDay
	out.End = start

	if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil {
		end, _, err := propTime(ve, endProp, ical.ComponentPropertyDtEnd, loc)
		if err != nil {
			return out, err
		}
		out.End = end
	} else if allDay {
		out.End = start.AddDate(0, 0, 1)
	}
	if out.End.Before(out.Start) {
		return out, errors.New("DTEND before DTSTART")
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			exLoc := loc
			if tzs, ok := p.ICalParameters["TZID"]; ok && len(tzs) > 0 {
				if l, err := time.LoadLocation(tzs[0]); err == nil {
					exLoc = l
				}
			}
			if t, err := parseICSTime(part, exLoc); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	return out, nil
}

// propTime reads a DATE or DATE-TIME property. TZID-qualified values use
// the library parser; everything else goes through parseICSTime in loc.
func propTime(ve *ical.VEvent, p *ical.IANAProperty, which ical.ComponentProperty, loc *time.Location) (time.Time, bool, error) {
	allDay := !strings.Contains(p.Value, "T")
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		allDay = true
	}

	if _, ok := p.ICalParameters["TZID"]; ok && !allDay {
		if which == ical.ComponentPropertyDtEnd {
			t, err := ve.GetEndAt()
			return t, false, err
		}
		t, err := ve.GetStartAt()
		return t, false, err
	}

	t, err := parseICSTime(p.Value, loc)
	return t, allDay, err
}

// parseICSTime parses a basic ICS date/date-time string. UTC values keep
// UTC; floating and date-only values are placed in loc.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g., 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}

	// Floating date-time, e.g., 20250101T090000
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}

	// Date-only (all-day), e.g., 20250101
	return time.ParseInLocation("20060102", v, loc)
}
