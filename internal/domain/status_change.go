package domain

import "time"

// StatusChange is an immutable audit entry written on every status transition.
type StatusChange struct {
	ID           string
	SubmissionID string
	OldStatus    SubmissionStatus
	NewStatus    SubmissionStatus
	ChangedByID  string
	CreatedAt    time.Time
}
