package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ullaszensar/mealtrackpro/internal/config"
	"github.com/ullaszensar/mealtrackpro/internal/domain"
	"github.com/ullaszensar/mealtrackpro/internal/events"
	"github.com/ullaszensar/mealtrackpro/internal/repository"
	"github.com/ullaszensar/mealtrackpro/internal/window"
	apperrors "github.com/ullaszensar/mealtrackpro/pkg/util/errorutil"
)

// MealService coordinates the meal submission workflow.
type MealService struct {
	users       repository.UserRepository
	submissions repository.SubmissionRepository
	history     repository.StatusHistoryRepository
	window      window.Validator
	mealTypes   []domain.MealType
	enforceUniq bool
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	now         func() time.Time
}

// MealDependencies bundles collaborators for the meal service. A nil Now means time.Now.
type MealDependencies struct {
	Store      repository.Store
	Meals      config.MealConfig
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Now        func() time.Time
}

// CountInput carries the headcount for one meal type.
type CountInput struct {
	AdultCount          int
	ChildCount          int
	SpecialRequirements *string
}

// SubmissionCreateInput describes a new submission.
type SubmissionCreateInput struct {
	MealDate string
	Notes    *string
	Counts   map[domain.MealType]CountInput
}

// NewMealService constructs the service.
func NewMealService(deps MealDependencies) *MealService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	mealTypes := deps.Meals.Types
	if len(mealTypes) == 0 {
		mealTypes = domain.DefaultMealTypes
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MealService{
		users:       deps.Store.Users,
		submissions: deps.Store.Submissions,
		history:     deps.Store.History,
		window:      window.New(deps.Meals.Location, deps.Meals.CutoffHour),
		mealTypes:   mealTypes,
		enforceUniq: deps.Meals.EnforceUniquePerDate,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		now:         now,
	}
}

// MealTypes returns the configured meal types in display order.
func (s *MealService) MealTypes() []domain.MealType {
	return append([]domain.MealType(nil), s.mealTypes...)
}

// Window returns the validator used for new submissions.
func (s *MealService) Window() window.Validator {
	return s.window
}

// EarliestDate returns the first meal date open for submission right now.
func (s *MealService) EarliestDate() time.Time {
	return s.window.Earliest(s.now())
}

// ParseDate parses a meal date in the configured location.
func (s *MealService) ParseDate(raw string) (time.Time, error) {
	d, err := s.window.ParseDate(raw)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError("invalid date format", map[string]any{"date": raw})
	}
	return d, nil
}

// Create validates and stores a submission owned by userID.
func (s *MealService) Create(ctx context.Context, userID string, input SubmissionCreateInput) (*domain.Submission, error) {
	mealDate, err := s.window.ParseDate(input.MealDate)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid meal date", map[string]any{"mealDate": input.MealDate})
	}

	now := s.now()
	if !s.window.IsSubmittable(mealDate, now) {
		earliest := s.window.Earliest(now)
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("meal date is outside the submission window; earliest allowed date is %s", earliest.Format(domain.DateLayout)),
			map[string]any{"mealDate": mealDate.Format(domain.DateLayout), "earliest": earliest.Format(domain.DateLayout)},
		)
	}

	counts, err := s.buildCounts(input.Counts)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, mapRepoError(err, "user", map[string]any{"userId": userID})
	}

	sub := &domain.MealSubmission{
		UserID:      userID,
		SubmittedAt: now.UTC(),
		MealDate:    mealDate,
		Status:      domain.SubmissionStatusPending,
		Notes:       input.Notes,
	}
	opts := repository.CreateOptions{UniquePerUserDate: s.enforceUniq}
	if err := s.submissions.CreateWithCounts(ctx, sub, counts, opts); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, s.duplicateError(ctx, userID, mealDate)
		}
		return nil, mapRepoError(err, "user", map[string]any{"userId": userID})
	}

	created, err := s.Get(ctx, sub.ID)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, c := range created.Counts {
		total += c.Total()
	}
	s.publish(ctx, events.Event{
		Type:         events.EventSubmissionCreated,
		SubmissionID: created.ID,
		Actor:        events.Actor{UserID: userID, Role: created.User.Role},
		Payload:      events.SubmissionCreatedPayload{MealDate: created.MealDateKey(), TotalPeople: total},
	})
	return created, nil
}

func (s *MealService) duplicateError(ctx context.Context, userID string, mealDate time.Time) error {
	details := map[string]any{"mealDate": mealDate.Format(domain.DateLayout)}
	existing, err := s.submissions.List(ctx, repository.SubmissionFilter{UserID: &userID, MealDate: &mealDate})
	if err == nil && len(existing) > 0 {
		details["submissionId"] = existing[0].ID
	}
	return apperrors.NewConflict("a submission for this date already exists", details)
}

// buildCounts requires exactly one count in [0, MaxHeadcount] per configured meal type.
func (s *MealService) buildCounts(input map[domain.MealType]CountInput) ([]domain.MealCount, error) {
	known := make(map[domain.MealType]struct{}, len(s.mealTypes))
	for _, mt := range s.mealTypes {
		known[mt] = struct{}{}
	}
	for mt := range input {
		if _, ok := known[mt]; !ok {
			return nil, apperrors.NewValidationError("unknown meal type", map[string]any{"mealType": string(mt)})
		}
	}

	counts := make([]domain.MealCount, 0, len(s.mealTypes))
	for _, mt := range s.mealTypes {
		in, ok := input[mt]
		if !ok {
			return nil, apperrors.NewValidationError("missing counts for meal type", map[string]any{"mealType": string(mt)})
		}
		if in.AdultCount < 0 || in.ChildCount < 0 {
			return nil, apperrors.NewValidationError("counts must be non-negative integers", map[string]any{
				"mealType":   string(mt),
				"adultCount": in.AdultCount,
				"childCount": in.ChildCount,
			})
		}
		if in.AdultCount > domain.MaxHeadcount || in.ChildCount > domain.MaxHeadcount {
			return nil, apperrors.NewValidationError(fmt.Sprintf("counts must be at most %d", domain.MaxHeadcount), map[string]any{
				"mealType":   string(mt),
				"adultCount": in.AdultCount,
				"childCount": in.ChildCount,
				"max":        domain.MaxHeadcount,
			})
		}
		counts = append(counts, domain.MealCount{
			MealType:            mt,
			AdultCount:          in.AdultCount,
			ChildCount:          in.ChildCount,
			SpecialRequirements: in.SpecialRequirements,
		})
	}
	return counts, nil
}

// Transition relabels a submission's status. Only administrators may do this.
func (s *MealService) Transition(ctx context.Context, actor *domain.User, submissionID, rawStatus string) (*domain.Submission, error) {
	if actor == nil || !actor.Role.CanReviewSubmissions() {
		return nil, apperrors.NewForbidden("only administrators can change submission status")
	}

	status, err := domain.ParseSubmissionStatus(rawStatus)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{
			"status":  rawStatus,
			"allowed": domain.SubmissionStatuses,
		})
	}

	change := &domain.StatusChange{
		SubmissionID: submissionID,
		NewStatus:    status,
		ChangedByID:  actor.ID,
	}
	if err := s.submissions.UpdateStatusWithHistory(ctx, change); err != nil {
		return nil, mapRepoError(err, "submission", map[string]any{"id": submissionID})
	}

	updated, err := s.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:         events.EventSubmissionStatusChanged,
		SubmissionID: submissionID,
		Actor:        events.Actor{UserID: actor.ID, Role: actor.Role},
		Payload: events.SubmissionStatusChangedPayload{
			OldStatus: change.OldStatus,
			NewStatus: status,
			OwnerID:   updated.UserID,
		},
	})
	return updated, nil
}

// Get returns one joined submission.
func (s *MealService) Get(ctx context.Context, id string) (*domain.Submission, error) {
	sub, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "submission", map[string]any{"id": id})
	}
	s.orderCounts(sub)
	return sub, nil
}

// ListByUser returns every submission owned by userID.
func (s *MealService) ListByUser(ctx context.Context, userID string) ([]domain.Submission, error) {
	return s.list(ctx, repository.SubmissionFilter{UserID: &userID})
}

// ListByDate returns every submission for one meal date.
func (s *MealService) ListByDate(ctx context.Context, date time.Time) ([]domain.Submission, error) {
	date = domain.CalendarDate(date)
	return s.list(ctx, repository.SubmissionFilter{MealDate: &date})
}

// ListByRange returns submissions with start <= meal date <= end.
func (s *MealService) ListByRange(ctx context.Context, start, end time.Time) ([]domain.Submission, error) {
	start, end = domain.CalendarDate(start), domain.CalendarDate(end)
	if start.After(end) {
		return nil, apperrors.NewValidationError("start date must not be after end date", map[string]any{
			"start": start.Format(domain.DateLayout),
			"end":   end.Format(domain.DateLayout),
		})
	}
	return s.list(ctx, repository.SubmissionFilter{MealDateFrom: &start, MealDateTo: &end})
}

// ListAll returns every submission.
func (s *MealService) ListAll(ctx context.Context) ([]domain.Submission, error) {
	return s.list(ctx, repository.SubmissionFilter{})
}

// History returns the status changes of a submission, oldest first.
func (s *MealService) History(ctx context.Context, submissionID string) ([]domain.StatusChange, error) {
	if _, err := s.submissions.GetByID(ctx, submissionID); err != nil {
		return nil, mapRepoError(err, "submission", map[string]any{"id": submissionID})
	}
	changes, err := s.history.ListBySubmission(ctx, submissionID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return changes, nil
}

func (s *MealService) list(ctx context.Context, filter repository.SubmissionFilter) ([]domain.Submission, error) {
	subs, err := s.submissions.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for i := range subs {
		s.orderCounts(&subs[i])
	}
	return subs, nil
}

// orderCounts sorts counts into configured meal-type order; unconfigured types go last.
func (s *MealService) orderCounts(sub *domain.Submission) {
	rank := make(map[domain.MealType]int, len(s.mealTypes))
	for i, mt := range s.mealTypes {
		rank[mt] = i
	}
	ordered := make([]domain.MealCount, 0, len(sub.Counts))
	for _, mt := range s.mealTypes {
		if c, ok := sub.CountFor(mt); ok {
			ordered = append(ordered, c)
		}
	}
	for _, c := range sub.Counts {
		if _, ok := rank[c.MealType]; !ok {
			ordered = append(ordered, c)
		}
	}
	sub.Counts = ordered
}

func (s *MealService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = s.now().UTC()
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.String("submission_id", event.SubmissionID),
			zap.Error(err),
		)
	}
}
