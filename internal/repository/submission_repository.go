package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ullaszensar/mealtrackpro/internal/domain"
)

// SubmissionFilter narrows submission listings. Date bounds are inclusive calendar dates.
type SubmissionFilter struct {
	UserID       *string
	MealDate     *time.Time
	MealDateFrom *time.Time
	MealDateTo   *time.Time
}

// Matches reports whether sub passes every set criterion.
func (f SubmissionFilter) Matches(sub *domain.MealSubmission) bool {
	if f.UserID != nil && sub.UserID != *f.UserID {
		return false
	}
	key := sub.MealDateKey()
	if f.MealDate != nil && key != dateKey(*f.MealDate) {
		return false
	}
	if f.MealDateFrom != nil && key < dateKey(*f.MealDateFrom) {
		return false
	}
	if f.MealDateTo != nil && key > dateKey(*f.MealDateTo) {
		return false
	}
	return true
}

func dateKey(t time.Time) string {
	return t.UTC().Format(domain.DateLayout)
}

// CreateOptions tunes CreateWithCounts.
type CreateOptions struct {
	// UniquePerUserDate fails the write with ErrDuplicate when the owner already
	// has a submission for the same meal date.
	UniquePerUserDate bool
}

// SubmissionRepository encapsulates meal submission persistence.
type SubmissionRepository interface {
	// CreateWithCounts stores the submission and its counts as one atomic batch,
	// assigning IDs to both.
	CreateWithCounts(ctx context.Context, sub *domain.MealSubmission, counts []domain.MealCount, opts CreateOptions) error
	GetByID(ctx context.Context, id string) (*domain.Submission, error)
	List(ctx context.Context, filter SubmissionFilter) ([]domain.Submission, error)
	// UpdateStatusWithHistory sets the submission's status to change.NewStatus and
	// appends change to its history in one atomic write. OldStatus, ID and
	// CreatedAt are filled from the stored state.
	UpdateStatusWithHistory(ctx context.Context, change *domain.StatusChange) error
}

type submissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository instantiates repository.
func NewSubmissionRepository(pool *pgxpool.Pool) SubmissionRepository {
	return &submissionRepository{pool: pool}
}

func (r *submissionRepository) CreateWithCounts(ctx context.Context, sub *domain.MealSubmission, counts []domain.MealCount, opts CreateOptions) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if opts.UniquePerUserDate {
		// Locking the owner row serialises concurrent creates by the same user.
		var owner string
		if err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id=$1 FOR UPDATE`, sub.UserID).Scan(&owner); err != nil {
			return translate(err)
		}
		var taken bool
		const existsQuery = `SELECT EXISTS (SELECT 1 FROM meal_submissions WHERE user_id=$1 AND meal_date=$2::date)`
		if err := tx.QueryRow(ctx, existsQuery, sub.UserID, dateKey(sub.MealDate)).Scan(&taken); err != nil {
			return translate(err)
		}
		if taken {
			return ErrDuplicate
		}
	}

	const insertSubmission = `
        INSERT INTO meal_submissions (user_id, submitted_at, meal_date, status, notes)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, updated_at`
	if err := tx.QueryRow(ctx, insertSubmission,
		sub.UserID,
		sub.SubmittedAt,
		sub.MealDate,
		sub.Status,
		sub.Notes,
	).Scan(&sub.ID, &sub.UpdatedAt); err != nil {
		return translate(err)
	}

	const insertCount = `
        INSERT INTO meal_counts (submission_id, meal_type, position, adult_count, child_count, special_requirements)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	batch := &pgx.Batch{}
	for i := range counts {
		counts[i].SubmissionID = sub.ID
		batch.Queue(insertCount,
			sub.ID,
			counts[i].MealType,
			i,
			counts[i].AdultCount,
			counts[i].ChildCount,
			counts[i].SpecialRequirements,
		)
	}
	results := tx.SendBatch(ctx, batch)
	for i := range counts {
		if err := results.QueryRow().Scan(&counts[i].ID); err != nil {
			_ = results.Close()
			return translate(err)
		}
	}
	if err := results.Close(); err != nil {
		return translate(err)
	}

	return tx.Commit(ctx)
}

const submissionSelect = `
        SELECT s.id, s.user_id, s.submitted_at, s.meal_date, s.status, s.notes, s.updated_at,
               u.id, u.username, u.password_hash, u.display_name, u.role, u.created_at
        FROM meal_submissions s
        JOIN users u ON u.id = s.user_id`

func (r *submissionRepository) GetByID(ctx context.Context, id string) (*domain.Submission, error) {
	rows, err := r.pool.Query(ctx, submissionSelect+` WHERE s.id=$1`, id)
	if err != nil {
		return nil, translate(err)
	}
	subs, err := r.collect(ctx, rows)
	if err != nil {
		return nil, translate(err)
	}
	if len(subs) == 0 {
		return nil, ErrNotFound
	}
	return &subs[0], nil
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]domain.Submission, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("s.user_id=$%d", len(args)))
	}
	if filter.MealDate != nil {
		args = append(args, dateKey(*filter.MealDate))
		clauses = append(clauses, fmt.Sprintf("s.meal_date=$%d::date", len(args)))
	}
	if filter.MealDateFrom != nil {
		args = append(args, dateKey(*filter.MealDateFrom))
		clauses = append(clauses, fmt.Sprintf("s.meal_date >= $%d::date", len(args)))
	}
	if filter.MealDateTo != nil {
		args = append(args, dateKey(*filter.MealDateTo))
		clauses = append(clauses, fmt.Sprintf("s.meal_date <= $%d::date", len(args)))
	}

	query := fmt.Sprintf(`%s WHERE %s`, submissionSelect, strings.Join(clauses, " AND "))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return r.collect(ctx, rows)
}

func (r *submissionRepository) UpdateStatusWithHistory(ctx context.Context, change *domain.StatusChange) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const lockQuery = `SELECT status FROM meal_submissions WHERE id=$1 FOR UPDATE`
	if err := tx.QueryRow(ctx, lockQuery, change.SubmissionID).Scan(&change.OldStatus); err != nil {
		return translate(err)
	}

	const updateQuery = `UPDATE meal_submissions SET status=$1, updated_at=NOW() WHERE id=$2`
	if _, err := tx.Exec(ctx, updateQuery, change.NewStatus, change.SubmissionID); err != nil {
		return translate(err)
	}

	const insertHistory = `
        INSERT INTO submission_status_history (submission_id, old_status, new_status, changed_by_id)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	if err := tx.QueryRow(ctx, insertHistory,
		change.SubmissionID,
		change.OldStatus,
		change.NewStatus,
		change.ChangedByID,
	).Scan(&change.ID, &change.CreatedAt); err != nil {
		return translate(err)
	}

	return tx.Commit(ctx)
}

// collect scans joined submission rows and attaches their counts.
func (r *submissionRepository) collect(ctx context.Context, rows pgx.Rows) ([]domain.Submission, error) {
	subs, err := scanSubmissions(rows)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return subs, nil
	}

	ids := make([]string, len(subs))
	index := make(map[string]int, len(subs))
	for i := range subs {
		ids[i] = subs[i].ID
		index[subs[i].ID] = i
	}

	const countsQuery = `
        SELECT id, submission_id, meal_type, adult_count, child_count, special_requirements
        FROM meal_counts WHERE submission_id = ANY($1) ORDER BY submission_id, position`
	countRows, err := r.pool.Query(ctx, countsQuery, ids)
	if err != nil {
		return nil, err
	}
	defer countRows.Close()

	for countRows.Next() {
		var c domain.MealCount
		if err := countRows.Scan(
			&c.ID,
			&c.SubmissionID,
			&c.MealType,
			&c.AdultCount,
			&c.ChildCount,
			&c.SpecialRequirements,
		); err != nil {
			return nil, err
		}
		if i, ok := index[c.SubmissionID]; ok {
			subs[i].Counts = append(subs[i].Counts, c)
		}
	}
	return subs, countRows.Err()
}

func scanSubmissions(rows pgx.Rows) ([]domain.Submission, error) {
	defer rows.Close()
	var result []domain.Submission
	for rows.Next() {
		var sub domain.Submission
		if err := rows.Scan(
			&sub.ID,
			&sub.UserID,
			&sub.SubmittedAt,
			&sub.MealDate,
			&sub.Status,
			&sub.Notes,
			&sub.UpdatedAt,
			&sub.User.ID,
			&sub.User.Username,
			&sub.User.PasswordHash,
			&sub.User.DisplayName,
			&sub.User.Role,
			&sub.User.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, sub)
	}
	return result, rows.Err()
}
