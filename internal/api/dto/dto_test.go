package dto

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/ullaszensar/mealtrackpro/internal/domain"
	apperrors "github.com/ullaszensar/mealtrackpro/pkg/util/errorutil"
)

func TestDecodeCreateSubmission(t *testing.T) {
	body := `{"mealDate":"2024-01-11","notes":"late","Breakfast":{"adultCount":3,"childCount":1},
		"lunch":{"adultCount":2,"childCount":0,"specialRequirements":"vegan"}}`
	req, err := DecodeCreateSubmission([]byte(body))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.MealDate != "2024-01-11" || req.Notes == nil || *req.Notes != "late" {
		t.Fatalf("unexpected header fields %+v", req)
	}
	if len(req.Counts) != 2 {
		t.Fatalf("expected 2 meal blocks got %d", len(req.Counts))
	}
	if b := req.Counts["breakfast"]; b.AdultCount != 3 || b.ChildCount != 1 {
		t.Fatalf("unexpected breakfast %+v", b)
	}
	if l := req.Counts["lunch"]; l.SpecialRequirements == nil || *l.SpecialRequirements != "vegan" {
		t.Fatalf("unexpected lunch %+v", l)
	}
}

func TestDecodeCreateSubmissionRejects(t *testing.T) {
	cases := map[string]string{
		"not json":       `{`,
		"missing date":   `{"breakfast":{"adultCount":1,"childCount":0}}`,
		"fractional":     `{"mealDate":"2024-01-11","breakfast":{"adultCount":1.5,"childCount":0}}`,
		"exponent":       `{"mealDate":"2024-01-11","breakfast":{"adultCount":1e2,"childCount":0}}`,
		"missing child":  `{"mealDate":"2024-01-11","breakfast":{"adultCount":1}}`,
		"not an object":  `{"mealDate":"2024-01-11","breakfast":4}`,
		"string date":    `{"mealDate":20240111}`,
		"duplicate case": `{"mealDate":"2024-01-11","lunch":{"adultCount":1,"childCount":0},"LUNCH":{"adultCount":1,"childCount":0}}`,
		"above max":      `{"mealDate":"2024-01-11","breakfast":{"adultCount":2147483648,"childCount":0}}`,
		"beyond int64":   `{"mealDate":"2024-01-11","breakfast":{"adultCount":1,"childCount":9223372036854775808}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeCreateSubmission([]byte(body))
			if !apperrors.HasCode(err, apperrors.CodeValidation) {
				t.Fatalf("expected validation error got %v", err)
			}
		})
	}
}

func TestDecodeAcceptsMaxHeadcount(t *testing.T) {
	req, err := DecodeCreateSubmission([]byte(`{"mealDate":"2024-01-11","breakfast":{"adultCount":2147483647,"childCount":0}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Counts["breakfast"].AdultCount != domain.MaxHeadcount {
		t.Fatalf("expected %d got %d", domain.MaxHeadcount, req.Counts["breakfast"].AdultCount)
	}
}

func TestDecodeKeepsNegativeForServiceValidation(t *testing.T) {
	req, err := DecodeCreateSubmission([]byte(`{"mealDate":"2024-01-11","breakfast":{"adultCount":-1,"childCount":0}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Counts["breakfast"].AdultCount != -1 {
		t.Fatalf("expected -1 passed through")
	}
}

func TestSubmissionResponseOmitsCredential(t *testing.T) {
	sub := &domain.Submission{
		MealSubmission: domain.MealSubmission{
			ID:       "s1",
			UserID:   "u1",
			MealDate: time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
			Status:   domain.SubmissionStatusPending,
		},
		User:   domain.User{ID: "u1", Username: "staff", PasswordHash: "$2a$secret-hash", Role: domain.RoleStaff},
		Counts: []domain.MealCount{{ID: "c1", MealType: "breakfast", AdultCount: 2, ChildCount: 1}},
	}
	raw, err := json.Marshal(NewSubmissionResponse(sub))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := string(raw)
	if strings.Contains(out, "secret-hash") || strings.Contains(strings.ToLower(out), "password") {
		t.Fatalf("credential leaked: %s", out)
	}
	if !strings.Contains(out, `"mealDate":"2024-01-11"`) || !strings.Contains(out, `"total":3`) {
		t.Fatalf("unexpected body %s", out)
	}
}
