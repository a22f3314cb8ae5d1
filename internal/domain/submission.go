package domain

import (
	"fmt"
	"math"
	"time"
)

// SubmissionStatus enumerates review states for meal submissions.
type SubmissionStatus string

const (
	SubmissionStatusPending         SubmissionStatus = "pending"
	SubmissionStatusApproved        SubmissionStatus = "approved"
	SubmissionStatusNeedsAdjustment SubmissionStatus = "needs_adjustment"
)

// SubmissionStatuses lists every status in display order.
var SubmissionStatuses = []SubmissionStatus{
	SubmissionStatusPending,
	SubmissionStatusApproved,
	SubmissionStatusNeedsAdjustment,
}

// ParseSubmissionStatus validates a raw status value.
func ParseSubmissionStatus(raw string) (SubmissionStatus, error) {
	switch SubmissionStatus(raw) {
	case SubmissionStatusPending, SubmissionStatusApproved, SubmissionStatusNeedsAdjustment:
		return SubmissionStatus(raw), nil
	default:
		return "", fmt.Errorf("unknown submission status %q", raw)
	}
}

// MealType names a meal slot within a day.
type MealType string

// DefaultMealTypes is the slot set used when none is configured.
var DefaultMealTypes = []MealType{"breakfast", "lunch", "dinner"}

// DateLayout is the key format for calendar dates on every read and write path.
const DateLayout = "2006-01-02"

// MealSubmission is one staff member's headcount for a single meal date.
type MealSubmission struct {
	ID          string
	UserID      string
	SubmittedAt time.Time
	MealDate    time.Time
	Status      SubmissionStatus
	Notes       *string
	UpdatedAt   time.Time
}

// MealDateKey returns the stable calendar key of the meal date.
func (s *MealSubmission) MealDateKey() string {
	return s.MealDate.UTC().Format(DateLayout)
}

// MaxHeadcount bounds each adult or child count; stored columns are 32-bit.
const MaxHeadcount = math.MaxInt32

// MealCount holds headcounts for one meal type of a submission.
type MealCount struct {
	ID                  string
	SubmissionID        string
	MealType            MealType
	AdultCount          int
	ChildCount          int
	SpecialRequirements *string
}

// Total returns adults plus children.
func (c MealCount) Total() int {
	return c.AdultCount + c.ChildCount
}

// Submission is a meal submission joined with its owner and counts.
type Submission struct {
	MealSubmission
	User   User
	Counts []MealCount
}

// CountFor returns the count row for a meal type.
func (s *Submission) CountFor(mealType MealType) (MealCount, bool) {
	for _, c := range s.Counts {
		if c.MealType == mealType {
			return c, true
		}
	}
	return MealCount{}, false
}
