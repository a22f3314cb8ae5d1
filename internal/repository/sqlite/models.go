package sqlite

import (
	"time"

	"github.com/ullaszensar/mealtrackpro/internal/domain"
)

// userRow maps the users table.
type userRow struct {
	ID           string `gorm:"primaryKey;size:36"`
	Username     string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	DisplayName  string `gorm:"not null"`
	Role         string `gorm:"not null;default:staff"`
	CreatedAt    time.Time
}

func (userRow) TableName() string { return "users" }

// submissionRow maps meal_submissions; MealDate holds the YYYY-MM-DD key.
type submissionRow struct {
	ID          string    `gorm:"primaryKey;size:36"`
	UserID      string    `gorm:"not null;index"`
	User        userRow   `gorm:"foreignKey:UserID"`
	SubmittedAt time.Time `gorm:"not null"`
	MealDate    string    `gorm:"size:10;not null;index"`
	Status      string    `gorm:"not null;default:pending"`
	Notes       *string
	UpdatedAt   time.Time
	Counts      []countRow `gorm:"foreignKey:SubmissionID"`
}

func (submissionRow) TableName() string { return "meal_submissions" }

// countRow maps meal_counts.
type countRow struct {
	ID                  string `gorm:"primaryKey;size:36"`
	SubmissionID        string `gorm:"not null;index"`
	MealType            string `gorm:"not null"`
	Position            int    `gorm:"not null"`
	AdultCount          int    `gorm:"not null;default:0"`
	ChildCount          int    `gorm:"not null;default:0"`
	SpecialRequirements *string
}

func (countRow) TableName() string { return "meal_counts" }

// historyRow maps submission_status_history.
type historyRow struct {
	ID           string `gorm:"primaryKey;size:36"`
	SubmissionID string `gorm:"not null;index"`
	OldStatus    string `gorm:"not null"`
	NewStatus    string `gorm:"not null"`
	ChangedByID  string `gorm:"not null"`
	CreatedAt    time.Time
}

func (historyRow) TableName() string { return "submission_status_history" }

// Models lists every table for AutoMigrate.
func Models() []any {
	return []any{&userRow{}, &submissionRow{}, &countRow{}, &historyRow{}}
}

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		DisplayName:  r.DisplayName,
		Role:         domain.Role(r.Role),
		CreatedAt:    r.CreatedAt,
	}
}

func (r submissionRow) toDomain() domain.Submission {
	mealDate, _ := time.Parse(domain.DateLayout, r.MealDate)
	counts := make([]domain.MealCount, 0, len(r.Counts))
	for _, c := range r.Counts {
		counts = append(counts, domain.MealCount{
			ID:                  c.ID,
			SubmissionID:        c.SubmissionID,
			MealType:            domain.MealType(c.MealType),
			AdultCount:          c.AdultCount,
			ChildCount:          c.ChildCount,
			SpecialRequirements: c.SpecialRequirements,
		})
	}
	return domain.Submission{
		MealSubmission: domain.MealSubmission{
			ID:          r.ID,
			UserID:      r.UserID,
			SubmittedAt: r.SubmittedAt,
			MealDate:    mealDate,
			Status:      domain.SubmissionStatus(r.Status),
			Notes:       r.Notes,
			UpdatedAt:   r.UpdatedAt,
		},
		User:   r.User.toDomain(),
		Counts: counts,
	}
}

func (r historyRow) toDomain() domain.StatusChange {
	return domain.StatusChange{
		ID:           r.ID,
		SubmissionID: r.SubmissionID,
		OldStatus:    domain.SubmissionStatus(r.OldStatus),
		NewStatus:    domain.SubmissionStatus(r.NewStatus),
		ChangedByID:  r.ChangedByID,
		CreatedAt:    r.CreatedAt,
	}
}
