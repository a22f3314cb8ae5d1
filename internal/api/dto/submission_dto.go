package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ullaszensar/mealtrackpro/internal/domain"
	apperrors "github.com/ullaszensar/mealtrackpro/pkg/util/errorutil"
)

// CountRequest is one meal type's block in a create payload.
type CountRequest struct {
	AdultCount          *json.Number `json:"adultCount"`
	ChildCount          *json.Number `json:"childCount"`
	SpecialRequirements *string      `json:"specialRequirements"`
}

// CountValues is a decoded, integer-checked CountRequest.
type CountValues struct {
	AdultCount          int
	ChildCount          int
	SpecialRequirements *string
}

// CreateSubmissionRequest is the decoded create payload. Every top-level key
// other than mealDate and notes names a meal type.
type CreateSubmissionRequest struct {
	MealDate string
	Notes    *string
	Counts   map[domain.MealType]CountValues
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// DecodeCreateSubmission parses a create payload. Counts must be JSON integers.
func DecodeCreateSubmission(body []byte) (*CreateSubmissionRequest, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, apperrors.NewValidationError("invalid payload", nil)
	}

	req := &CreateSubmissionRequest{Counts: make(map[domain.MealType]CountValues)}
	for key, value := range raw {
		switch key {
		case "mealDate":
			if err := json.Unmarshal(value, &req.MealDate); err != nil {
				return nil, apperrors.NewValidationError("mealDate must be a string", nil)
			}
		case "notes":
			if err := json.Unmarshal(value, &req.Notes); err != nil {
				return nil, apperrors.NewValidationError("notes must be a string", nil)
			}
		default:
			mealType := domain.MealType(strings.ToLower(strings.TrimSpace(key)))
			values, err := decodeCount(mealType, value)
			if err != nil {
				return nil, err
			}
			if _, dup := req.Counts[mealType]; dup {
				return nil, apperrors.NewValidationError("duplicate meal type", map[string]any{"mealType": string(mealType)})
			}
			req.Counts[mealType] = values
		}
	}
	if strings.TrimSpace(req.MealDate) == "" {
		return nil, apperrors.NewValidationError("mealDate is required", nil)
	}
	return req, nil
}

func decodeCount(mealType domain.MealType, value json.RawMessage) (CountValues, error) {
	var block CountRequest
	dec := json.NewDecoder(bytes.NewReader(value))
	dec.UseNumber()
	if err := dec.Decode(&block); err != nil {
		return CountValues{}, apperrors.NewValidationError("meal counts must be an object", map[string]any{"mealType": string(mealType)})
	}
	adults, err := integerField(mealType, "adultCount", block.AdultCount)
	if err != nil {
		return CountValues{}, err
	}
	children, err := integerField(mealType, "childCount", block.ChildCount)
	if err != nil {
		return CountValues{}, err
	}
	return CountValues{AdultCount: adults, ChildCount: children, SpecialRequirements: block.SpecialRequirements}, nil
}

func integerField(mealType domain.MealType, field string, n *json.Number) (int, error) {
	details := map[string]any{"mealType": string(mealType), "field": field}
	if n == nil {
		return 0, apperrors.NewValidationError(field+" is required", details)
	}
	v, err := n.Int64()
	if err != nil {
		details["value"] = n.String()
		return 0, apperrors.NewValidationError(field+" must be an integer", details)
	}
	if v > domain.MaxHeadcount {
		details["value"] = n.String()
		details["max"] = domain.MaxHeadcount
		return 0, apperrors.NewValidationError(fmt.Sprintf("%s must be at most %d", field, domain.MaxHeadcount), details)
	}
	return int(v), nil
}

// MealCountResponse is one count row.
type MealCountResponse struct {
	ID                  string          `json:"id"`
	MealType            domain.MealType `json:"mealType"`
	AdultCount          int             `json:"adultCount"`
	ChildCount          int             `json:"childCount"`
	Total               int             `json:"total"`
	SpecialRequirements *string         `json:"specialRequirements"`
}

// SubmissionResponse is a joined submission.
type SubmissionResponse struct {
	ID          string                  `json:"id"`
	UserID      string                  `json:"userId"`
	User        UserResponse            `json:"user"`
	SubmittedAt time.Time               `json:"submittedAt"`
	MealDate    string                  `json:"mealDate"`
	Status      domain.SubmissionStatus `json:"status"`
	Notes       *string                 `json:"notes"`
	UpdatedAt   time.Time               `json:"updatedAt"`
	Counts      []MealCountResponse     `json:"counts"`
}

// StatusChangeResponse is one audit entry.
type StatusChangeResponse struct {
	ID          string                  `json:"id"`
	OldStatus   domain.SubmissionStatus `json:"oldStatus"`
	NewStatus   domain.SubmissionStatus `json:"newStatus"`
	ChangedByID string                  `json:"changedById"`
	CreatedAt   time.Time               `json:"createdAt"`
}

// WindowResponse describes the open submission window.
type WindowResponse struct {
	Earliest   string            `json:"earliest"`
	CutoffHour int               `json:"cutoffHour"`
	Timezone   string            `json:"timezone"`
	MealTypes  []domain.MealType `json:"mealTypes"`
}

// NewSubmissionResponse maps a joined submission.
func NewSubmissionResponse(sub *domain.Submission) SubmissionResponse {
	counts := make([]MealCountResponse, 0, len(sub.Counts))
	for _, c := range sub.Counts {
		counts = append(counts, MealCountResponse{
			ID:                  c.ID,
			MealType:            c.MealType,
			AdultCount:          c.AdultCount,
			ChildCount:          c.ChildCount,
			Total:               c.Total(),
			SpecialRequirements: c.SpecialRequirements,
		})
	}
	return SubmissionResponse{
		ID:          sub.ID,
		UserID:      sub.UserID,
		User:        NewUserResponse(&sub.User),
		SubmittedAt: sub.SubmittedAt,
		MealDate:    sub.MealDateKey(),
		Status:      sub.Status,
		Notes:       sub.Notes,
		UpdatedAt:   sub.UpdatedAt,
		Counts:      counts,
	}
}

// NewSubmissionList maps submissions in their given order.
func NewSubmissionList(subs []domain.Submission) []SubmissionResponse {
	items := make([]SubmissionResponse, 0, len(subs))
	for i := range subs {
		items = append(items, NewSubmissionResponse(&subs[i]))
	}
	return items
}

// NewStatusChangeList maps audit entries.
func NewStatusChangeList(changes []domain.StatusChange) []StatusChangeResponse {
	items := make([]StatusChangeResponse, 0, len(changes))
	for _, ch := range changes {
		items = append(items, StatusChangeResponse{
			ID:          ch.ID,
			OldStatus:   ch.OldStatus,
			NewStatus:   ch.NewStatus,
			ChangedByID: ch.ChangedByID,
			CreatedAt:   ch.CreatedAt,
		})
	}
	return items
}
