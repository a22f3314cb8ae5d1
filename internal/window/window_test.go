package window

import (
	"errors"
	"testing"
	"time"
)

func mustDate(t *testing.T, v Validator, raw string) time.Time {
	t.Helper()
	d, err := v.ParseDate(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return d
}

func TestIsSubmittableScenarios(t *testing.T) {
	v := New(time.UTC, DefaultCutoffHour)
	cases := []struct {
		now    time.Time
		target string
		want   bool
	}{
		{time.Date(2024, 1, 10, 21, 59, 0, 0, time.UTC), "2024-01-11", true},
		{time.Date(2024, 1, 10, 21, 59, 59, 999, time.UTC), "2024-01-11", true},
		{time.Date(2024, 1, 10, 22, 0, 0, 0, time.UTC), "2024-01-11", false},
		{time.Date(2024, 1, 10, 22, 0, 0, 0, time.UTC), "2024-01-12", true},
		{time.Date(2024, 1, 10, 23, 59, 0, 0, time.UTC), "2024-01-12", true},
		{time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC), "2024-01-10", false},
		{time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC), "2024-01-09", false},
		{time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC), "2030-06-01", true},
		{time.Date(2024, 12, 31, 22, 30, 0, 0, time.UTC), "2025-01-02", true},
		{time.Date(2024, 12, 31, 22, 30, 0, 0, time.UTC), "2025-01-01", false},
	}
	for _, tc := range cases {
		got := v.IsSubmittable(mustDate(t, v, tc.target), tc.now)
		if got != tc.want {
			t.Fatalf("now=%s target=%s: got %v want %v", tc.now.Format(time.RFC3339), tc.target, got, tc.want)
		}
	}
}

func TestIsSubmittableHoldsForEveryMinuteOfTheDay(t *testing.T) {
	v := New(time.UTC, DefaultCutoffHour)
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	today := day
	tomorrow := day.AddDate(0, 0, 1)
	dayAfter := day.AddDate(0, 0, 2)

	for minute := 0; minute < 24*60; minute++ {
		now := day.Add(time.Duration(minute) * time.Minute)
		if v.IsSubmittable(today, now) {
			t.Fatalf("today accepted at %s", now.Format("15:04"))
		}
		if !v.IsSubmittable(dayAfter, now) {
			t.Fatalf("day after tomorrow rejected at %s", now.Format("15:04"))
		}
		wantTomorrow := now.Hour() < DefaultCutoffHour
		if got := v.IsSubmittable(tomorrow, now); got != wantTomorrow {
			t.Fatalf("tomorrow at %s: got %v want %v", now.Format("15:04"), got, wantTomorrow)
		}
	}
}

func TestIsSubmittableUsesConfiguredLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	v := New(loc, DefaultCutoffHour)
	// 19:30 UTC is 22:30 local: tomorrow is already closed.
	now := time.Date(2024, 1, 10, 19, 30, 0, 0, time.UTC)
	if v.IsSubmittable(mustDate(t, v, "2024-01-11"), now) {
		t.Fatalf("expected local cutoff to apply")
	}
	if !v.IsSubmittable(mustDate(t, v, "2024-01-12"), now) {
		t.Fatalf("expected day after tomorrow to be accepted")
	}
}

func TestEarliest(t *testing.T) {
	v := New(time.UTC, DefaultCutoffHour)
	got := v.Earliest(time.Date(2024, 2, 28, 22, 0, 0, 0, time.UTC))
	if want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestParseDate(t *testing.T) {
	v := New(time.UTC, DefaultCutoffHour)
	for _, raw := range []string{"", "tomorrow", "2024-13-01", "2024-02-30", "11/01/2024"} {
		if _, err := v.ParseDate(raw); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q: expected ErrInvalidDate got %v", raw, err)
		}
	}
	d := mustDate(t, v, "2024-01-11T23:30:00-02:00")
	if got := d.Format("2006-01-02"); got != "2024-01-12" {
		t.Fatalf("expected timestamp converted to UTC day, got %s", got)
	}
}
