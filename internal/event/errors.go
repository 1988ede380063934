package event

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrEventFixed       = errors.New("event is already fixed")
	ErrUnknownCandidate = errors.New("unknown candidate")
)

// ValidationError reports every invalid input field at once, keyed by the
// field's JSON name.
type ValidationError struct {
	FieldErrors map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.FieldErrors))
	for k := range e.FieldErrors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.FieldErrors[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{FieldErrors: f}
}
