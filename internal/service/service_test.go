package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ullaszensar/mealtrackpro/internal/config"
	"github.com/ullaszensar/mealtrackpro/internal/domain"
	"github.com/ullaszensar/mealtrackpro/internal/events"
	"github.com/ullaszensar/mealtrackpro/internal/repository"
	"github.com/ullaszensar/mealtrackpro/internal/repository/memory"
	apperrors "github.com/ullaszensar/mealtrackpro/pkg/util/errorutil"
)

type fixture struct {
	store      repository.Store
	meals      *MealService
	reports    *ReportService
	dispatcher events.Dispatcher
	published  []events.Event
	now        time.Time
	admin      *domain.User
	staff      *domain.User
}

func newFixture(t *testing.T, enforceUnique bool) *fixture {
	t.Helper()
	f := &fixture{
		store:      memory.New(),
		dispatcher: events.NewInMemoryDispatcher(),
		now:        time.Date(2024, 1, 10, 21, 59, 0, 0, time.UTC),
	}
	for _, et := range []events.EventType{events.EventSubmissionCreated, events.EventSubmissionStatusChanged, events.EventUserProvisioned} {
		f.dispatcher.Subscribe(et, func(_ context.Context, e events.Event) error {
			f.published = append(f.published, e)
			return nil
		})
	}
	f.admin = f.seedUser(t, "admin", domain.RoleAdmin)
	f.staff = f.seedUser(t, "staff", domain.RoleStaff)
	f.meals = NewMealService(MealDependencies{
		Store: f.store,
		Meals: config.MealConfig{
			Types:                domain.DefaultMealTypes,
			CutoffHour:           22,
			Location:             time.UTC,
			EnforceUniquePerDate: enforceUnique,
		},
		Dispatcher: f.dispatcher,
		Now:        func() time.Time { return f.now },
	})
	f.reports = NewReportService(f.meals)
	return f
}

func (f *fixture) seedUser(t *testing.T, username string, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{Username: username, PasswordHash: "hash", DisplayName: username, Role: role}
	if err := f.store.Users.Create(context.Background(), u); err != nil {
		t.Fatalf("seed %s: %v", username, err)
	}
	return u
}

func validCounts() map[domain.MealType]CountInput {
	note := "no nuts"
	return map[domain.MealType]CountInput{
		"breakfast": {AdultCount: 3, ChildCount: 1},
		"lunch":     {AdultCount: 2, ChildCount: 0, SpecialRequirements: &note},
		"dinner":    {AdultCount: 4, ChildCount: 2},
	}
}

func (f *fixture) create(t *testing.T, userID, date string) *domain.Submission {
	t.Helper()
	sub, err := f.meals.Create(context.Background(), userID, SubmissionCreateInput{MealDate: date, Counts: validCounts()})
	if err != nil {
		t.Fatalf("create %s: %v", date, err)
	}
	return sub
}

func expectCode(t *testing.T, err error, code string) {
	t.Helper()
	if !apperrors.HasCode(err, code) {
		t.Fatalf("expected %s got %v", code, err)
	}
}

func TestCreateRoundTrip(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	created := f.create(t, f.staff.ID, "2024-01-11")
	if created.Status != domain.SubmissionStatusPending {
		t.Fatalf("expected pending got %s", created.Status)
	}
	if !created.SubmittedAt.Equal(f.now) {
		t.Fatalf("expected submittedAt from clock got %v", created.SubmittedAt)
	}

	day, _ := f.meals.ParseDate("2024-01-11")
	subs, err := f.meals.ListByDate(ctx, day)
	if err != nil {
		t.Fatalf("list by date: %v", err)
	}
	if len(subs) != 1 || subs[0].ID != created.ID {
		t.Fatalf("expected exactly the created submission, got %d", len(subs))
	}
	got := subs[0]
	if len(got.Counts) != 3 {
		t.Fatalf("expected 3 counts got %d", len(got.Counts))
	}
	for i, mt := range domain.DefaultMealTypes {
		if got.Counts[i].MealType != mt {
			t.Fatalf("count %d: expected %s got %s", i, mt, got.Counts[i].MealType)
		}
		want := validCounts()[mt]
		if got.Counts[i].AdultCount != want.AdultCount || got.Counts[i].ChildCount != want.ChildCount {
			t.Fatalf("%s: counts differ %+v", mt, got.Counts[i])
		}
	}
	if got.User.ID != f.staff.ID {
		t.Fatalf("expected joined owner")
	}
	if len(f.published) != 1 || f.published[0].Type != events.EventSubmissionCreated {
		t.Fatalf("expected one created event, got %+v", f.published)
	}
	payload := f.published[0].Payload.(events.SubmissionCreatedPayload)
	if payload.TotalPeople != 12 || payload.MealDate != "2024-01-11" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestCreateWindowScenarios(t *testing.T) {
	cases := []struct {
		name   string
		now    time.Time
		date   string
		accept bool
	}{
		{"before cutoff tomorrow", time.Date(2024, 1, 10, 21, 59, 0, 0, time.UTC), "2024-01-11", true},
		{"before cutoff today", time.Date(2024, 1, 10, 21, 59, 0, 0, time.UTC), "2024-01-10", false},
		{"at cutoff tomorrow", time.Date(2024, 1, 10, 22, 0, 0, 0, time.UTC), "2024-01-11", false},
		{"at cutoff day after", time.Date(2024, 1, 10, 22, 0, 0, 0, time.UTC), "2024-01-12", true},
		{"past date", time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC), "2023-12-31", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, true)
			f.now = tc.now
			_, err := f.meals.Create(context.Background(), f.staff.ID, SubmissionCreateInput{MealDate: tc.date, Counts: validCounts()})
			if tc.accept && err != nil {
				t.Fatalf("expected accept got %v", err)
			}
			if !tc.accept {
				expectCode(t, err, apperrors.CodeValidation)
			}
		})
	}
}

func TestCreateRejectsInvalidCountsWithoutPersisting(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	bad := validCounts()
	bad["breakfast"] = CountInput{AdultCount: -1}
	_, err := f.meals.Create(ctx, f.staff.ID, SubmissionCreateInput{MealDate: "2024-01-11", Counts: bad})
	expectCode(t, err, apperrors.CodeValidation)

	missing := validCounts()
	delete(missing, "dinner")
	_, err = f.meals.Create(ctx, f.staff.ID, SubmissionCreateInput{MealDate: "2024-01-11", Counts: missing})
	expectCode(t, err, apperrors.CodeValidation)

	unknown := validCounts()
	unknown["brunch"] = CountInput{AdultCount: 1}
	_, err = f.meals.Create(ctx, f.staff.ID, SubmissionCreateInput{MealDate: "2024-01-11", Counts: unknown})
	expectCode(t, err, apperrors.CodeValidation)

	_, err = f.meals.Create(ctx, f.staff.ID, SubmissionCreateInput{MealDate: "11/01/2024", Counts: validCounts()})
	expectCode(t, err, apperrors.CodeValidation)

	all, err := f.meals.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected nothing persisted, found %d", len(all))
	}
	if len(f.published) != 0 {
		t.Fatalf("expected no events")
	}
}

func TestCreateUnknownUser(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.meals.Create(context.Background(), "ghost", SubmissionCreateInput{MealDate: "2024-01-11", Counts: validCounts()})
	expectCode(t, err, apperrors.CodeNotFound)
}

func TestUniquenessPerUserPerDate(t *testing.T) {
	t.Run("enforced", func(t *testing.T) {
		f := newFixture(t, true)
		f.create(t, f.staff.ID, "2024-01-11")
		_, err := f.meals.Create(context.Background(), f.staff.ID, SubmissionCreateInput{MealDate: "2024-01-11", Counts: validCounts()})
		expectCode(t, err, apperrors.CodeConflict)
		// Another user and another date are unaffected.
		f.create(t, f.admin.ID, "2024-01-11")
		f.create(t, f.staff.ID, "2024-01-12")
	})
	t.Run("disabled", func(t *testing.T) {
		f := newFixture(t, false)
		f.create(t, f.staff.ID, "2024-01-11")
		f.create(t, f.staff.ID, "2024-01-11")
		subs, err := f.meals.ListByUser(context.Background(), f.staff.ID)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(subs) != 2 {
			t.Fatalf("expected 2 submissions got %d", len(subs))
		}
	})
}

// slowSubmissions delays List so a read-then-write uniqueness check would race.
type slowSubmissions struct {
	repository.SubmissionRepository
}

func (s slowSubmissions) List(ctx context.Context, filter repository.SubmissionFilter) ([]domain.Submission, error) {
	time.Sleep(5 * time.Millisecond)
	return s.SubmissionRepository.List(ctx, filter)
}

func TestConcurrentCreatesKeepOnePerDate(t *testing.T) {
	f := newFixture(t, true)
	store := f.store
	store.Submissions = slowSubmissions{store.Submissions}
	meals := NewMealService(MealDependencies{
		Store: store,
		Meals: config.MealConfig{Types: domain.DefaultMealTypes, CutoffHour: 22, Location: time.UTC, EnforceUniquePerDate: true},
		Now:   func() time.Time { return f.now },
	})

	const attempts = 20
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = meals.Create(context.Background(), f.staff.ID, SubmissionCreateInput{MealDate: "2024-01-11", Counts: validCounts()})
		}(i)
	}
	wg.Wait()

	created := 0
	for i, err := range errs {
		switch {
		case err == nil:
			created++
		case apperrors.HasCode(err, apperrors.CodeConflict):
		default:
			t.Fatalf("attempt %d: unexpected error %v", i, err)
		}
	}
	if created != 1 {
		t.Fatalf("expected exactly one accepted submission, got %d", created)
	}
	subs, err := meals.ListByUser(context.Background(), f.staff.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected one stored submission got %d", len(subs))
	}
}

func TestConflictNamesExistingSubmission(t *testing.T) {
	f := newFixture(t, true)
	first := f.create(t, f.staff.ID, "2024-01-11")
	_, err := f.meals.Create(context.Background(), f.staff.ID, SubmissionCreateInput{MealDate: "2024-01-11", Counts: validCounts()})
	expectCode(t, err, apperrors.CodeConflict)
	de := apperrors.ToDomainError(err)
	if de.Details["submissionId"] != first.ID || de.Details["mealDate"] != "2024-01-11" {
		t.Fatalf("unexpected conflict details %+v", de.Details)
	}
}

func TestCreateBoundsCounts(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	for name, in := range map[string]CountInput{
		"adult overflow": {AdultCount: math.MaxInt, ChildCount: 1},
		"child overflow": {AdultCount: 1, ChildCount: domain.MaxHeadcount + 1},
	} {
		counts := validCounts()
		counts["breakfast"] = in
		_, err := f.meals.Create(ctx, f.staff.ID, SubmissionCreateInput{MealDate: "2024-01-11", Counts: counts})
		if !apperrors.HasCode(err, apperrors.CodeValidation) {
			t.Fatalf("%s: expected validation error got %v", name, err)
		}
	}
	all, err := f.meals.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected nothing persisted, found %d", len(all))
	}

	counts := validCounts()
	counts["breakfast"] = CountInput{AdultCount: domain.MaxHeadcount, ChildCount: domain.MaxHeadcount}
	sub, err := f.meals.Create(ctx, f.staff.ID, SubmissionCreateInput{MealDate: "2024-01-11", Counts: counts})
	if err != nil {
		t.Fatalf("create at max: %v", err)
	}
	if b, _ := sub.CountFor("breakfast"); b.AdultCount != domain.MaxHeadcount || b.ChildCount != domain.MaxHeadcount {
		t.Fatalf("unexpected breakfast %+v", b)
	}
}

func TestTransition(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	sub := f.create(t, f.staff.ID, "2024-01-11")

	if _, err := f.meals.Transition(ctx, f.admin, sub.ID, "approved"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	updated, err := f.meals.Transition(ctx, f.admin, sub.ID, "needs_adjustment")
	if err != nil {
		t.Fatalf("flag: %v", err)
	}
	if updated.Status != domain.SubmissionStatusNeedsAdjustment {
		t.Fatalf("expected needs_adjustment got %s", updated.Status)
	}
	stored, err := f.meals.Get(ctx, sub.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != domain.SubmissionStatusNeedsAdjustment {
		t.Fatalf("expected persisted needs_adjustment got %s", stored.Status)
	}

	history, err := f.meals.History(ctx, sub.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries got %d", len(history))
	}
	if history[0].OldStatus != domain.SubmissionStatusPending || history[0].NewStatus != domain.SubmissionStatusApproved {
		t.Fatalf("unexpected first change %+v", history[0])
	}
	if history[1].OldStatus != domain.SubmissionStatusApproved || history[1].ChangedByID != f.admin.ID {
		t.Fatalf("unexpected second change %+v", history[1])
	}

	// Flat relabelling allows returning to pending.
	if _, err := f.meals.Transition(ctx, f.admin, sub.ID, "pending"); err != nil {
		t.Fatalf("back to pending: %v", err)
	}
}

func TestTransitionErrors(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	sub := f.create(t, f.staff.ID, "2024-01-11")

	_, err := f.meals.Transition(ctx, f.staff, sub.ID, "approved")
	expectCode(t, err, apperrors.CodeForbidden)

	_, err = f.meals.Transition(ctx, nil, sub.ID, "approved")
	expectCode(t, err, apperrors.CodeForbidden)

	_, err = f.meals.Transition(ctx, f.admin, sub.ID, "rejected")
	expectCode(t, err, apperrors.CodeValidation)

	_, err = f.meals.Transition(ctx, f.admin, "missing", "approved")
	expectCode(t, err, apperrors.CodeNotFound)

	stored, _ := f.meals.Get(ctx, sub.ID)
	if stored.Status != domain.SubmissionStatusPending {
		t.Fatalf("expected status unchanged got %s", stored.Status)
	}

	_, err = f.meals.History(ctx, "missing")
	expectCode(t, err, apperrors.CodeNotFound)
}

func TestTransitionFailureLeavesStatusAndHistory(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	sub := f.create(t, f.staff.ID, "2024-01-11")
	f.published = nil

	// An admin that no longer exists cannot be recorded as the changer.
	ghost := &domain.User{ID: "ghost", Role: domain.RoleAdmin}
	_, err := f.meals.Transition(ctx, ghost, sub.ID, "approved")
	expectCode(t, err, apperrors.CodeNotFound)

	stored, err := f.meals.Get(ctx, sub.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != domain.SubmissionStatusPending {
		t.Fatalf("expected status unchanged got %s", stored.Status)
	}
	history, err := f.meals.History(ctx, sub.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected no history got %d", len(history))
	}
	if len(f.published) != 0 {
		t.Fatalf("expected no events after a failed transition")
	}
}

func TestPublishFailuresAreLogged(t *testing.T) {
	f := newFixture(t, true)
	core, logs := observer.New(zapcore.WarnLevel)
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventSubmissionCreated, func(context.Context, events.Event) error {
		return errors.New("mailer down")
	})
	meals := NewMealService(MealDependencies{
		Store:      f.store,
		Meals:      config.MealConfig{Types: domain.DefaultMealTypes, CutoffHour: 22, Location: time.UTC},
		Dispatcher: dispatcher,
		Logger:     zap.New(core),
		Now:        func() time.Time { return f.now },
	})

	sub, err := meals.Create(context.Background(), f.staff.ID, SubmissionCreateInput{MealDate: "2024-01-11", Counts: validCounts()})
	if err != nil {
		t.Fatalf("handler failure must not fail the create: %v", err)
	}
	entries := logs.FilterMessage("event handlers failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one warning got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["submission_id"] != sub.ID || fields["event_type"] != string(events.EventSubmissionCreated) {
		t.Fatalf("unexpected log fields %+v", fields)
	}
	if fields["error"] != "mailer down" {
		t.Fatalf("expected handler error logged, got %v", fields["error"])
	}
}

func TestListByRangeInclusive(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.now = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	f.create(t, f.staff.ID, "2024-01-02")
	f.create(t, f.staff.ID, "2024-01-03")
	f.create(t, f.staff.ID, "2024-01-04")

	start, _ := f.meals.ParseDate("2024-01-02")
	end, _ := f.meals.ParseDate("2024-01-03")
	subs, err := f.meals.ListByRange(ctx, start, end)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 got %d", len(subs))
	}
	for _, s := range subs {
		if key := s.MealDateKey(); key != "2024-01-02" && key != "2024-01-03" {
			t.Fatalf("unexpected date %s", key)
		}
	}

	_, err = f.meals.ListByRange(ctx, end, start)
	expectCode(t, err, apperrors.CodeValidation)
}

func TestReports(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.now = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	f.create(t, f.staff.ID, "2024-01-02")
	f.create(t, f.admin.ID, "2024-01-02")
	f.create(t, f.staff.ID, "2024-01-03")

	start, _ := f.meals.ParseDate("2024-01-02")
	end, _ := f.meals.ParseDate("2024-01-05")
	rng, err := f.reports.Range(ctx, start, end)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if rng.Submissions != 3 || rng.Overall.Total != 36 || rng.Days != 2 || rng.AveragePerDay != 18 {
		t.Fatalf("unexpected range report %+v", rng.Report)
	}
	if len(rng.ByDate) != 2 || rng.ByDate[0].Date != "2024-01-02" || rng.ByDate[0].Overall.Total != 24 {
		t.Fatalf("unexpected buckets %+v", rng.ByDate)
	}

	summary, err := f.reports.Summary(ctx, start)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Submissions != 2 || summary.ByMealType["breakfast"].Adults != 6 {
		t.Fatalf("unexpected summary %+v", summary.Totals)
	}
	if summary.StatusCounts[domain.SubmissionStatusPending] != 2 {
		t.Fatalf("unexpected status counts %+v", summary.StatusCounts)
	}

	_, err = f.reports.Range(ctx, end, start)
	expectCode(t, err, apperrors.CodeValidation)
}

func newAuthService(t *testing.T, store repository.Store, dispatcher events.Dispatcher, revoked *fakeRevocations) *AuthService {
	t.Helper()
	deps := AuthDependencies{UserRepo: store.Users, Dispatcher: dispatcher, Logger: zap.NewNop()}
	if revoked != nil {
		deps.Revocations = revoked
	}
	return NewAuthService(config.AuthConfig{JWTSecret: "secret", AccessTokenTTLMinutes: 60, BcryptCost: 4}, deps)
}

type fakeRevocations struct {
	revoked map[string]time.Duration
}

func (f *fakeRevocations) Revoke(_ context.Context, id string, ttl time.Duration) error {
	f.revoked[id] = ttl
	return nil
}

func (f *fakeRevocations) IsRevoked(_ context.Context, id string) (bool, error) {
	_, ok := f.revoked[id]
	return ok, nil
}

func TestAuthSeedLoginLogout(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	revoked := &fakeRevocations{revoked: map[string]time.Duration{}}
	svc := newAuthService(t, store, nil, revoked)

	if err := svc.SeedDemoUsers(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := svc.SeedDemoUsers(ctx); err != nil {
		t.Fatalf("reseed should be idempotent: %v", err)
	}
	users, err := svc.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 2 || users[0].Username != "admin" || users[1].Username != "staff" {
		t.Fatalf("unexpected users %+v", users)
	}

	res, err := svc.Login(ctx, "admin", DemoPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Token == "" || res.User.Role != domain.RoleAdmin {
		t.Fatalf("unexpected login result %+v", res)
	}

	_, err = svc.Login(ctx, "admin", "nope")
	expectCode(t, err, apperrors.CodeUnauthorized)
	_, err = svc.Login(ctx, "nobody", DemoPassword)
	expectCode(t, err, apperrors.CodeUnauthorized)
	_, err = svc.Login(ctx, "", "")
	expectCode(t, err, apperrors.CodeValidation)

	token, err := svc.TokenManager().ParseToken(res.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if ttl, ok := revoked.revoked[token.ID]; !ok || ttl <= 0 {
		t.Fatalf("expected token revoked with positive ttl, got %v %v", ttl, ok)
	}

	me, err := svc.Me(ctx, res.User.ID)
	if err != nil || me.Username != "admin" {
		t.Fatalf("me: %v %+v", err, me)
	}
	_, err = svc.Me(ctx, "missing")
	expectCode(t, err, apperrors.CodeNotFound)
}

func TestProvisionUser(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	dispatcher := events.NewInMemoryDispatcher()
	var provisioned []events.Event
	dispatcher.Subscribe(events.EventUserProvisioned, func(_ context.Context, e events.Event) error {
		provisioned = append(provisioned, e)
		return nil
	})
	svc := newAuthService(t, store, dispatcher, nil)
	admin := &domain.User{ID: "a1", Role: domain.RoleAdmin}
	staff := &domain.User{ID: "s1", Role: domain.RoleStaff}

	input := ProvisionInput{Username: "cook", Password: "secret", DisplayName: "Cook", Role: "staff"}
	user, err := svc.ProvisionUser(ctx, admin, input)
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if user.ID == "" || user.PasswordHash == "secret" || user.Role != domain.RoleStaff {
		t.Fatalf("unexpected user %+v", user)
	}
	if len(provisioned) != 1 {
		t.Fatalf("expected provisioned event")
	}

	_, err = svc.ProvisionUser(ctx, admin, input)
	expectCode(t, err, apperrors.CodeConflict)

	_, err = svc.ProvisionUser(ctx, staff, ProvisionInput{Username: "x", Password: "y", DisplayName: "z", Role: "staff"})
	expectCode(t, err, apperrors.CodeForbidden)

	_, err = svc.ProvisionUser(ctx, admin, ProvisionInput{Username: "x", Password: "y", DisplayName: "z", Role: "chef"})
	expectCode(t, err, apperrors.CodeValidation)

	_, err = svc.ProvisionUser(ctx, admin, ProvisionInput{Username: "x", Role: "staff"})
	expectCode(t, err, apperrors.CodeValidation)

	if _, err := svc.Login(ctx, "cook", "secret"); err != nil {
		t.Fatalf("login as provisioned user: %v", err)
	}
}

func TestNotificationServiceHandlesEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewNotificationService(dispatcher, zap.NewNop(), nil, config.NotificationConfig{EmailFrom: "a@b.c", WebhookURL: "http://hook"})
	svc.RegisterHandlers()
	for _, et := range []events.EventType{events.EventSubmissionCreated, events.EventSubmissionStatusChanged, events.EventUserProvisioned} {
		if err := dispatcher.Publish(context.Background(), events.Event{Type: et}); err != nil {
			t.Fatalf("%s: %v", et, err)
		}
	}
}
