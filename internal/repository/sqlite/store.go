// Package sqlite implements repository.Store on gorm with the sqlite driver.
package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ullaszensar/mealtrackpro/internal/domain"
	"github.com/ullaszensar/mealtrackpro/internal/repository"
)

// New returns repositories backed by db. Tables must already exist (see Migrate).
func New(db *gorm.DB) repository.Store {
	return repository.Store{
		Users:       &userRepository{db: db},
		Submissions: &submissionRepository{db: db},
		History:     &historyRepository{db: db},
	}
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repository.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repository.ErrDuplicate
	default:
		return err
	}
}

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&userRow{}).Where("username = ?", user.Username).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return repository.ErrDuplicate
		}
		row := userRow{
			ID:           uuid.NewString(),
			Username:     user.Username,
			PasswordHash: user.PasswordHash,
			DisplayName:  user.DisplayName,
			Role:         string(user.Role),
		}
		if err := tx.Create(&row).Error; err != nil {
			return translate(err)
		}
		user.ID = row.ID
		user.CreatedAt = row.CreatedAt
		return nil
	})
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var row userRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	user := row.toDomain()
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var row userRow
	if err := r.db.WithContext(ctx).First(&row, "username = ?", username).Error; err != nil {
		return nil, translate(err)
	}
	user := row.toDomain()
	return &user, nil
}

func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	var rows []userRow
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toDomain())
	}
	return users, nil
}

type submissionRepository struct {
	db *gorm.DB
}

func (r *submissionRepository) CreateWithCounts(ctx context.Context, sub *domain.MealSubmission, counts []domain.MealCount, opts repository.CreateOptions) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner userRow
		if err := tx.Select("id").First(&owner, "id = ?", sub.UserID).Error; err != nil {
			return translate(err)
		}
		if opts.UniquePerUserDate {
			var taken int64
			if err := tx.Model(&submissionRow{}).
				Where("user_id = ? AND meal_date = ?", sub.UserID, dateKey(sub.MealDate)).
				Count(&taken).Error; err != nil {
				return err
			}
			if taken > 0 {
				return repository.ErrDuplicate
			}
		}

		row := submissionRow{
			ID:          uuid.NewString(),
			UserID:      sub.UserID,
			SubmittedAt: sub.SubmittedAt,
			MealDate:    sub.MealDate.UTC().Format(domain.DateLayout),
			Status:      string(sub.Status),
			Notes:       sub.Notes,
			UpdatedAt:   sub.SubmittedAt,
		}
		for i, c := range counts {
			row.Counts = append(row.Counts, countRow{
				ID:                  uuid.NewString(),
				MealType:            string(c.MealType),
				Position:            i,
				AdultCount:          c.AdultCount,
				ChildCount:          c.ChildCount,
				SpecialRequirements: c.SpecialRequirements,
			})
		}
		if err := tx.Omit("User").Create(&row).Error; err != nil {
			return translate(err)
		}

		sub.ID = row.ID
		sub.UpdatedAt = row.UpdatedAt
		for i := range counts {
			counts[i].ID = row.Counts[i].ID
			counts[i].SubmissionID = row.ID
		}
		return nil
	})
}

func (r *submissionRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("User").
		Preload("Counts", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") })
}

func (r *submissionRepository) GetByID(ctx context.Context, id string) (*domain.Submission, error) {
	var row submissionRow
	if err := r.preloaded(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	sub := row.toDomain()
	return &sub, nil
}

func (r *submissionRepository) List(ctx context.Context, filter repository.SubmissionFilter) ([]domain.Submission, error) {
	query := r.preloaded(ctx)
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.MealDate != nil {
		query = query.Where("meal_date = ?", dateKey(*filter.MealDate))
	}
	if filter.MealDateFrom != nil {
		query = query.Where("meal_date >= ?", dateKey(*filter.MealDateFrom))
	}
	if filter.MealDateTo != nil {
		query = query.Where("meal_date <= ?", dateKey(*filter.MealDateTo))
	}

	var rows []submissionRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	subs := make([]domain.Submission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.toDomain())
	}
	return subs, nil
}

func (r *submissionRepository) UpdateStatusWithHistory(ctx context.Context, change *domain.StatusChange) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current submissionRow
		if err := tx.Select("id", "status").First(&current, "id = ?", change.SubmissionID).Error; err != nil {
			return translate(err)
		}
		var changer userRow
		if err := tx.Select("id").First(&changer, "id = ?", change.ChangedByID).Error; err != nil {
			return translate(err)
		}

		now := time.Now().UTC()
		if err := tx.Model(&submissionRow{}).Where("id = ?", current.ID).
			Updates(map[string]any{"status": string(change.NewStatus), "updated_at": now}).Error; err != nil {
			return err
		}
		row := historyRow{
			ID:           uuid.NewString(),
			SubmissionID: current.ID,
			OldStatus:    current.Status,
			NewStatus:    string(change.NewStatus),
			ChangedByID:  change.ChangedByID,
			CreatedAt:    now,
		}
		if err := tx.Create(&row).Error; err != nil {
			return translate(err)
		}
		change.ID = row.ID
		change.OldStatus = domain.SubmissionStatus(row.OldStatus)
		change.CreatedAt = row.CreatedAt
		return nil
	})
}

type historyRepository struct {
	db *gorm.DB
}

func (r *historyRepository) ListBySubmission(ctx context.Context, submissionID string) ([]domain.StatusChange, error) {
	var rows []historyRow
	if err := r.db.WithContext(ctx).Where("submission_id = ?", submissionID).
		Order("created_at ASC").Order("rowid ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	changes := make([]domain.StatusChange, 0, len(rows))
	for _, row := range rows {
		changes = append(changes, row.toDomain())
	}
	return changes, nil
}

func dateKey(t time.Time) string {
	return t.UTC().Format(domain.DateLayout)
}
