package events

import (
	"time"

	"github.com/ullaszensar/mealtrackpro/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSubmissionCreated       EventType = "meal_submission_created"
	EventSubmissionStatusChanged EventType = "meal_submission_status_changed"
	EventUserProvisioned         EventType = "user_provisioned"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID           string      `json:"id"`
	Type         EventType   `json:"type"`
	SubmissionID string      `json:"submission_id,omitempty"`
	Actor        Actor       `json:"actor"`
	Timestamp    time.Time   `json:"timestamp"`
	Payload      interface{} `json:"payload"`
}

// SubmissionCreatedPayload payload.
type SubmissionCreatedPayload struct {
	MealDate    string `json:"meal_date"`
	TotalPeople int    `json:"total_people"`
}

// SubmissionStatusChangedPayload payload.
type SubmissionStatusChangedPayload struct {
	OldStatus domain.SubmissionStatus `json:"old_status"`
	NewStatus domain.SubmissionStatus `json:"new_status"`
	OwnerID   string                  `json:"owner_id"`
}

// UserProvisionedPayload payload.
type UserProvisionedPayload struct {
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
}
