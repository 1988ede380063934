package ics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "meetgrid/internal/log"
	"meetgrid/internal/model"
)

const (
	// CandidateLimit caps the candidates one expansion may return.
	CandidateLimit = 200
	// StepBudget caps iterator steps per call, including occurrences
	// before RangeStart that are skipped.
	StepBudget = 100_000
)

// ctxCheckEvery is how many iterator steps pass between context checks.
const ctxCheckEvery = 1024

var (
	ErrInvalidRange    = errors.New("expand: range end is before range start")
	ErrInvalidRule     = errors.New("expand: invalid RRULE")
	ErrSubHourlyRule   = errors.New("expand: sub-hourly RRULE frequency is not supported")
	ErrInvalidDuration = errors.New("expand: duration must be positive")
)

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// Location is the zone recurrences are evaluated in, so a weekly
	// 19:00 stays 19:00 local across DST. If nil, time.UTC is used.
	Location *time.Location

	// RangeStart / RangeEnd bound occurrence starts, inclusive.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxCandidates caps the output. Zero or anything above
	// CandidateLimit means CandidateLimit.
	MaxCandidates int
}

// ExpandResult holds generated candidate windows. Candidate IDs are left
// empty; the event service assigns them on save.
type ExpandResult struct {
	Candidates []model.Candidate `json:"candidates"`
	Truncated  bool              `json:"truncated"`
}

func (cfg *ExpandConfig) normalize() error {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return ErrInvalidRange
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MaxCandidates <= 0 || cfg.MaxCandidates > CandidateLimit {
		cfg.MaxCandidates = CandidateLimit
	}
	return nil
}

// ExpandCandidates turns an RRULE anchored at first into candidate
// windows of the given duration. Occurrences are walked lazily so an
// unbounded rule stops at RangeEnd, the cap or StepBudget, whichever comes
// first. Cancelling ctx aborts the walk with ctx.Err().
func ExpandCandidates(ctx context.Context, rule string, first time.Time, duration time.Duration, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult
	if err := cfg.normalize(); err != nil {
		return result, err
	}
	if duration <= 0 {
		return result, ErrInvalidDuration
	}

	r, err := buildRule(rule, first.In(cfg.Location), cfg.Location)
	if err != nil {
		return result, err
	}

	w := &walker{ctx: ctx}
	starts, truncated, err := w.walk(r.Iterator(), cfg.RangeStart, cfg.RangeEnd, cfg.MaxCandidates, nil)
	if err != nil {
		return ExpandResult{}, err
	}
	result.Truncated = truncated
	result.Candidates = make([]model.Candidate, 0, len(starts))
	for _, s := range starts {
		result.Candidates = append(result.Candidates, model.Candidate{Start: s, End: s.Add(duration)})
	}
	if truncated {
		appLog.Warn("expand: truncated candidates at cap", "rrule", rule, "cap", cfg.MaxCandidates)
	}
	return result, nil
}

// ExpandEvents converts parsed VEVENTs into candidate windows. All-day
// events are skipped, recurring events are expanded with their EXDATEs
// removed, and the output is sorted by start. All recurring events share
// one StepBudget.
func ExpandEvents(ctx context.Context, events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult
	if err := cfg.normalize(); err != nil {
		return result, err
	}

	w := &walker{ctx: ctx}
	out := make([]model.Candidate, 0)
	for _, ev := range events {
		if ev.AllDay || !ev.End.After(ev.Start) {
			continue
		}
		dur := ev.End.Sub(ev.Start)

		if ev.RawRRule == "" {
			if inRange(ev.Start, cfg) {
				out = append(out, model.Candidate{Start: ev.Start.In(cfg.Location), End: ev.End.In(cfg.Location)})
			}
			continue
		}

		r, err := buildRule(ev.RawRRule, ev.Start, ev.Start.Location())
		if err != nil {
			appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
			continue
		}
		starts, truncated, err := w.walk(r.Iterator(), cfg.RangeStart, cfg.RangeEnd, cfg.MaxCandidates, ev.ExDates)
		if err != nil {
			return ExpandResult{}, err
		}
		if truncated {
			result.Truncated = true
		}
		for _, s := range starts {
			out = append(out, model.Candidate{Start: s.In(cfg.Location), End: s.Add(dur).In(cfg.Location)})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	if len(out) > cfg.MaxCandidates {
		out = out[:cfg.MaxCandidates]
		result.Truncated = true
	}
	if result.Truncated {
		appLog.Warn("expand: truncated imported candidates at cap", "cap", cfg.MaxCandidates)
	}
	result.Candidates = out
	return result, nil
}

// ParseCandidates parses an ICS payload and expands it into candidate
// windows in one step. Floating times are read in cfg.Location.
func ParseCandidates(ctx context.Context, body []byte, cfg ExpandConfig) (ExpandResult, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	events, err := ParseICS(body, loc)
	if err != nil {
		return ExpandResult{}, err
	}
	return ExpandEvents(ctx, events, cfg)
}

func buildRule(rule string, dtstart time.Time, loc *time.Location) (*rrule.RRule, error) {
	opt, err := rrule.StrToROptionInLocation(rule, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	if opt.Freq == rrule.MINUTELY || opt.Freq == rrule.SECONDLY {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRule, ErrSubHourlyRule)
	}
	opt.Dtstart = dtstart
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return r, nil
}

// walker counts iterator steps across walk calls against StepBudget.
type walker struct {
	ctx   context.Context
	steps int
}

// walk collects iterator values inside [from, until], skipping exdates.
// It reports whether the cap or the step budget stopped it before the
// range was exhausted.
func (w *walker) walk(next rrule.Next, from, until time.Time, max int, exdates []time.Time) ([]time.Time, bool, error) {
	out := make([]time.Time, 0)
	for {
		if w.steps >= StepBudget {
			appLog.Warn("expand: step budget exhausted", "budget", StepBudget)
			return out, true, nil
		}
		w.steps++
		if w.steps%ctxCheckEvery == 0 {
			if err := w.ctx.Err(); err != nil {
				return nil, false, err
			}
		}

		t, ok := next()
		if !ok || t.After(until) {
			return out, false, nil
		}
		if t.Before(from) || excluded(t, exdates) {
			continue
		}
		if len(out) == max {
			return out, true, nil
		}
		out = append(out, t)
	}
}

func excluded(t time.Time, exdates []time.Time) bool {
	for _, ex := range exdates {
		if ex.Equal(t) {
			return true
		}
	}
	return false
}

func inRange(t time.Time, cfg ExpandConfig) bool {
	return !t.Before(cfg.RangeStart) && !t.After(cfg.RangeEnd)
}
