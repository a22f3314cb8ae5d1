// Package window decides which meal dates are open for submission at a given instant.
package window

import (
	"errors"
	"strings"
	"time"

	"github.com/ullaszensar/mealtrackpro/internal/domain"
)

// DefaultCutoffHour is the local hour from which tomorrow is closed.
const DefaultCutoffHour = 22

// ErrInvalidDate is returned for meal dates that cannot be parsed.
var ErrInvalidDate = errors.New("invalid date format")

// Validator evaluates the submission window in a fixed location.
type Validator struct {
	Location   *time.Location
	CutoffHour int
}

// New constructs a Validator. A nil location means time.Local.
func New(loc *time.Location, cutoffHour int) Validator {
	if loc == nil {
		loc = time.Local
	}
	return Validator{Location: loc, CutoffHour: cutoffHour}
}

// Earliest returns the first meal date accepted at now, as a calendar date.
func (v Validator) Earliest(now time.Time) time.Time {
	local := now.In(v.location())
	leadDays := 1
	if local.Hour() >= v.CutoffHour {
		leadDays = 2
	}
	return domain.CalendarDate(local).AddDate(0, 0, leadDays)
}

// IsSubmittable reports whether target may be submitted at now.
// Only the calendar day of target is considered.
func (v Validator) IsSubmittable(target, now time.Time) bool {
	return !domain.CalendarDate(target).Before(v.Earliest(now))
}

// ParseDate parses a YYYY-MM-DD date or an RFC 3339 timestamp into a calendar date.
// Timestamps are moved into the validator's location before truncation.
func (v Validator) ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrInvalidDate
	}
	if d, err := time.Parse(domain.DateLayout, raw); err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return domain.CalendarDate(ts.In(v.location())), nil
}

func (v Validator) location() *time.Location {
	if v.Location == nil {
		return time.Local
	}
	return v.Location
}
