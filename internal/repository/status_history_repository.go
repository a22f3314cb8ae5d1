package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ullaszensar/mealtrackpro/internal/domain"
)

// StatusHistoryRepository reads status audit entries. Entries are written by
// SubmissionRepository.UpdateStatusWithHistory.
type StatusHistoryRepository interface {
	ListBySubmission(ctx context.Context, submissionID string) ([]domain.StatusChange, error)
}

type statusHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewStatusHistoryRepository builds repository.
func NewStatusHistoryRepository(pool *pgxpool.Pool) StatusHistoryRepository {
	return &statusHistoryRepository{pool: pool}
}

func (r *statusHistoryRepository) ListBySubmission(ctx context.Context, submissionID string) ([]domain.StatusChange, error) {
	const query = `
        SELECT id, submission_id, old_status, new_status, changed_by_id, created_at
        FROM submission_status_history WHERE submission_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusChange
	for rows.Next() {
		var change domain.StatusChange
		if err := rows.Scan(
			&change.ID,
			&change.SubmissionID,
			&change.OldStatus,
			&change.NewStatus,
			&change.ChangedByID,
			&change.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, change)
	}
	return result, rows.Err()
}
