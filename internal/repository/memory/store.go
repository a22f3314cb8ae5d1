// Package memory keeps every record in process memory. A single lock spans
// each batch so readers never observe a submission without its counts.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ullaszensar/mealtrackpro/internal/domain"
	"github.com/ullaszensar/mealtrackpro/internal/repository"
)

type store struct {
	mu          sync.RWMutex
	users       map[string]domain.User
	usernames   map[string]string
	submissions map[string]domain.MealSubmission
	counts      map[string][]domain.MealCount
	history     map[string][]domain.StatusChange
	now         func() time.Time
}

// New returns an empty in-memory store.
func New() repository.Store {
	s := &store{
		users:       make(map[string]domain.User),
		usernames:   make(map[string]string),
		submissions: make(map[string]domain.MealSubmission),
		counts:      make(map[string][]domain.MealCount),
		history:     make(map[string][]domain.StatusChange),
		now:         time.Now,
	}
	return repository.Store{
		Users:       (*userRepo)(s),
		Submissions: (*submissionRepo)(s),
		History:     (*historyRepo)(s),
	}
}

type userRepo store

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.usernames[user.Username]; taken {
		return repository.ErrDuplicate
	}
	user.ID = uuid.NewString()
	user.CreatedAt = r.now().UTC()
	r.users[user.ID] = *user
	r.usernames[user.Username] = user.ID
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.usernames[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	user := r.users[id]
	return &user, nil
}

func (r *userRepo) List(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.User, 0, len(r.users))
	for _, user := range r.users {
		result = append(result, user)
	}
	return result, nil
}

type submissionRepo store

func (r *submissionRepo) CreateWithCounts(_ context.Context, sub *domain.MealSubmission, counts []domain.MealCount, opts repository.CreateOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[sub.UserID]; !ok {
		return repository.ErrNotFound
	}
	if opts.UniquePerUserDate {
		owner, date := sub.UserID, sub.MealDate
		filter := repository.SubmissionFilter{UserID: &owner, MealDate: &date}
		for _, existing := range r.submissions {
			if filter.Matches(&existing) {
				return repository.ErrDuplicate
			}
		}
	}
	sub.ID = uuid.NewString()
	sub.UpdatedAt = sub.SubmittedAt
	stored := make([]domain.MealCount, len(counts))
	for i := range counts {
		counts[i].ID = uuid.NewString()
		counts[i].SubmissionID = sub.ID
		stored[i] = cloneCount(counts[i])
	}
	r.submissions[sub.ID] = cloneSubmission(*sub)
	r.counts[sub.ID] = stored
	return nil
}

func (r *submissionRepo) GetByID(_ context.Context, id string) (*domain.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.submissions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	joined := r.join(sub)
	return &joined, nil
}

func (r *submissionRepo) List(_ context.Context, filter repository.SubmissionFilter) ([]domain.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Submission
	for _, sub := range r.submissions {
		if !filter.Matches(&sub) {
			continue
		}
		result = append(result, r.join(sub))
	}
	return result, nil
}

func (r *submissionRepo) UpdateStatusWithHistory(_ context.Context, change *domain.StatusChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.submissions[change.SubmissionID]
	if !ok {
		return repository.ErrNotFound
	}
	if _, ok := r.users[change.ChangedByID]; !ok {
		return repository.ErrNotFound
	}
	now := r.now().UTC()
	change.ID = uuid.NewString()
	change.OldStatus = sub.Status
	change.CreatedAt = now
	sub.Status = change.NewStatus
	sub.UpdatedAt = now
	r.submissions[sub.ID] = sub
	r.history[sub.ID] = append(r.history[sub.ID], *change)
	return nil
}

// join must be called with the lock held.
func (r *submissionRepo) join(sub domain.MealSubmission) domain.Submission {
	counts := make([]domain.MealCount, len(r.counts[sub.ID]))
	for i, c := range r.counts[sub.ID] {
		counts[i] = cloneCount(c)
	}
	return domain.Submission{
		MealSubmission: cloneSubmission(sub),
		User:           r.users[sub.UserID],
		Counts:         counts,
	}
}

type historyRepo store

func (r *historyRepo) ListBySubmission(_ context.Context, submissionID string) ([]domain.StatusChange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := r.history[submissionID]
	result := make([]domain.StatusChange, len(entries))
	copy(result, entries)
	return result, nil
}

func cloneSubmission(sub domain.MealSubmission) domain.MealSubmission {
	sub.Notes = cloneString(sub.Notes)
	return sub
}

func cloneCount(c domain.MealCount) domain.MealCount {
	c.SpecialRequirements = cloneString(c.SpecialRequirements)
	return c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
