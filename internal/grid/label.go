package grid

import (
	"fmt"
	"time"
)

// Locale selects the label language.
type Locale string

const (
	LocaleJA Locale = "ja"
	LocaleEN Locale = "en"
)

// ParseLocale falls back to Japanese for anything but "en".
func ParseLocale(s string) Locale {
	if s == string(LocaleEN) {
		return LocaleEN
	}
	return LocaleJA
}

// CommonTimezones is the zone picker list offered to hosts and guests.
var CommonTimezones = []string{
	"Pacific/Honolulu",
	"America/Anchorage",
	"America/Los_Angeles",
	"America/Denver",
	"America/Chicago",
	"America/New_York",
	"America/Sao_Paulo",
	"Atlantic/Reykjavik",
	"Europe/London",
	"Europe/Paris",
	"Europe/Helsinki",
	"Asia/Dubai",
	"Asia/Kolkata",
	"Asia/Bangkok",
	"Asia/Shanghai",
	"Asia/Seoul",
	"Asia/Tokyo",
	"Australia/Sydney",
	"Pacific/Auckland",
}

var jaWeekdays = [...]string{"日", "月", "火", "水", "木", "金", "土"}

// SlotLabel renders the wall-clock start of a slot, e.g. 17 -> "08:30".
func SlotLabel(slot int) string {
	return fmt.Sprintf("%02d:%02d", slot/2, (slot%2)*SlotMinutes)
}

// HourLabels returns the 24 row labels of the primary axis.
func HourLabels() []string {
	labels := make([]string, 0, SlotsPerDay/2)
	for slot := 0; slot < SlotsPerDay; slot += 2 {
		labels = append(labels, SlotLabel(slot))
	}
	return labels
}

// SecondaryTimeLabels projects each hour row of dayKey in primary into the
// secondary zone's wall clock ("HH:MM"). The result has one entry per hour.
func SecondaryTimeLabels(dayKey string, primary, secondary *time.Location) ([]string, error) {
	labels := make([]string, 0, SlotsPerDay/2)
	for slot := 0; slot < SlotsPerDay; slot += 2 {
		t, err := InstantOf(dayKey, slot, primary)
		if err != nil {
			return nil, err
		}
		labels = append(labels, t.In(secondary).Format("15:04"))
	}
	return labels, nil
}

// FormatCandidate renders a start time for list and table cells.
//
//	ja: "3/15 (日) 19:00"
//	en: "Mar 15 (Sun) 7:00 PM"
func FormatCandidate(t time.Time, loc *time.Location, locale Locale) string {
	local := t.In(loc)
	if locale == LocaleEN {
		return local.Format("Jan 2 (Mon) 3:04 PM")
	}
	return fmt.Sprintf("%d/%d (%s) %s",
		int(local.Month()), local.Day(), jaWeekdays[local.Weekday()], local.Format("15:04"))
}

// FormatCandidateRange renders a full window for the event detail view.
//
//	ja: "2026年3月15日 (日) 19:00 - 20:00"
//	en: "March 15, 2026 (Sun) 7:00 PM - 8:00 PM"
func FormatCandidateRange(start, end time.Time, loc *time.Location, locale Locale) string {
	s := start.In(loc)
	e := end.In(loc)
	if locale == LocaleEN {
		return s.Format("January 2, 2006 (Mon) 3:04 PM") + " - " + e.Format("3:04 PM")
	}
	return fmt.Sprintf("%d年%d月%d日 (%s) %s - %s",
		s.Year(), int(s.Month()), s.Day(), jaWeekdays[s.Weekday()],
		s.Format("15:04"), e.Format("15:04"))
}

// DualTime is a candidate start shown in the guest's and the host's zones.
type DualTime struct {
	Guest string `json:"guest"`
	Host  string `json:"host"`
}

// FormatDual renders t for both the guest and the host.
func FormatDual(t time.Time, guest, host *time.Location, locale Locale) DualTime {
	return DualTime{
		Guest: FormatCandidate(t, guest, locale),
		Host:  FormatCandidate(t, host, locale),
	}
}

// ZoneAbbr returns the zone abbreviation in effect at t, e.g. "JST" or
// "EDT". Zones without a customary abbreviation yield a numeric form such
// as "+04", as recorded in the tz database.
func ZoneAbbr(loc *time.Location, at time.Time) string {
	name, _ := at.In(loc).Zone()
	if name == "" {
		return loc.String()
	}
	return name
}

// ZoneName returns a display name such as "Asia/Tokyo (JST)". The tz
// database carries no localized long names, so the IANA id stands in.
func ZoneName(loc *time.Location, at time.Time) string {
	return fmt.Sprintf("%s (%s)", loc.String(), ZoneAbbr(loc, at))
}

// UTCOffset formats the offset in effect at t as "+09:00".
func UTCOffset(loc *time.Location, at time.Time) string {
	return at.In(loc).Format("-07:00")
}
