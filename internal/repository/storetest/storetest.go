// Package storetest holds behaviour checks shared by every repository.Store backend.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ullaszensar/mealtrackpro/internal/domain"
	"github.com/ullaszensar/mealtrackpro/internal/repository"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) repository.Store

// Run executes the conformance suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("UserCreateAndLookup", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("DuplicateUsername", func(t *testing.T) { testDuplicateUsername(t, newStore(t)) })
	t.Run("CreateWithCountsRoundTrip", func(t *testing.T) { testRoundTrip(t, newStore(t)) })
	t.Run("CreateForUnknownUser", func(t *testing.T) { testUnknownUser(t, newStore(t)) })
	t.Run("ListFilters", func(t *testing.T) { testListFilters(t, newStore(t)) })
	t.Run("UniquePerUserDate", func(t *testing.T) { testUniquePerUserDate(t, newStore(t)) })
	t.Run("ConcurrentUniqueCreates", func(t *testing.T) { testConcurrentUniqueCreates(t, newStore(t)) })
	t.Run("UpdateStatusWithHistory", func(t *testing.T) { testUpdateStatusWithHistory(t, newStore(t)) })
	t.Run("StatusChangeIsAtomic", func(t *testing.T) { testStatusChangeIsAtomic(t, newStore(t)) })
}

// Day returns 2024-01-d as a calendar date.
func Day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

// SeedUser creates a staff user with the given username.
func SeedUser(t *testing.T, store repository.Store, username string) *domain.User {
	t.Helper()
	user := &domain.User{Username: username, PasswordHash: "hash", DisplayName: username, Role: domain.RoleStaff}
	if err := store.Users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return user
}

// SeedSubmission creates a pending submission with breakfast/lunch/dinner counts.
func SeedSubmission(t *testing.T, store repository.Store, userID string, mealDate time.Time) *domain.MealSubmission {
	t.Helper()
	sub := newPending(userID, mealDate)
	counts := []domain.MealCount{
		{MealType: "breakfast", AdultCount: 2, ChildCount: 1},
		{MealType: "lunch", AdultCount: 3, ChildCount: 0},
		{MealType: "dinner", AdultCount: 4, ChildCount: 2},
	}
	if err := store.Submissions.CreateWithCounts(context.Background(), sub, counts, repository.CreateOptions{}); err != nil {
		t.Fatalf("seed submission: %v", err)
	}
	return sub
}

func testUsers(t *testing.T, store repository.Store) {
	ctx := context.Background()
	user := SeedUser(t, store, "alice")
	if user.ID == "" {
		t.Fatalf("expected ID assigned")
	}
	byID, err := store.Users.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID.Username != "alice" || byID.Role != domain.RoleStaff {
		t.Fatalf("unexpected user %+v", byID)
	}
	byName, err := store.Users.GetByUsername(ctx, "alice")
	if err != nil || byName.ID != user.ID {
		t.Fatalf("get by username: %v %+v", err, byName)
	}
	if _, err := store.Users.GetByID(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
	if _, err := store.Users.GetByUsername(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
	SeedUser(t, store, "bob")
	all, err := store.Users.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 users got %d", len(all))
	}
}

func testDuplicateUsername(t *testing.T, store repository.Store) {
	SeedUser(t, store, "alice")
	dup := &domain.User{Username: "alice", PasswordHash: "x", DisplayName: "Other", Role: domain.RoleAdmin}
	if err := store.Users.Create(context.Background(), dup); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate got %v", err)
	}
}

func testRoundTrip(t *testing.T, store repository.Store) {
	ctx := context.Background()
	user := SeedUser(t, store, "alice")
	notes := "delivery at 7"
	special := "2 vegetarian"
	sub := &domain.MealSubmission{
		UserID:      user.ID,
		SubmittedAt: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		MealDate:    Day(11),
		Status:      domain.SubmissionStatusPending,
		Notes:       &notes,
	}
	counts := []domain.MealCount{
		{MealType: "breakfast", AdultCount: 5, ChildCount: 2, SpecialRequirements: &special},
		{MealType: "lunch", AdultCount: 6},
	}
	if err := store.Submissions.CreateWithCounts(ctx, sub, counts, repository.CreateOptions{}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if sub.ID == "" || counts[0].ID == "" || counts[1].SubmissionID != sub.ID {
		t.Fatalf("expected IDs assigned: %+v %+v", sub, counts)
	}

	got, err := store.Submissions.GetByID(ctx, sub.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.User.ID != user.ID || got.User.Username != "alice" {
		t.Fatalf("expected joined user, got %+v", got.User)
	}
	if got.MealDateKey() != "2024-01-11" {
		t.Fatalf("expected meal date 2024-01-11 got %s", got.MealDateKey())
	}
	if got.Notes == nil || *got.Notes != notes {
		t.Fatalf("notes not persisted: %v", got.Notes)
	}
	if len(got.Counts) != 2 {
		t.Fatalf("expected 2 counts got %d", len(got.Counts))
	}
	breakfast, ok := got.CountFor("breakfast")
	if !ok || breakfast.AdultCount != 5 || breakfast.ChildCount != 2 {
		t.Fatalf("unexpected breakfast %+v", breakfast)
	}
	if breakfast.SpecialRequirements == nil || *breakfast.SpecialRequirements != special {
		t.Fatalf("special requirements not persisted")
	}

	if _, err := store.Submissions.GetByID(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}

func testUnknownUser(t *testing.T, store repository.Store) {
	ctx := context.Background()
	sub := &domain.MealSubmission{
		UserID:      "00000000-0000-0000-0000-000000000000",
		SubmittedAt: time.Now(),
		MealDate:    Day(11),
		Status:      domain.SubmissionStatusPending,
	}
	err := store.Submissions.CreateWithCounts(ctx, sub, []domain.MealCount{{MealType: "lunch"}}, repository.CreateOptions{UniquePerUserDate: true})
	if err == nil {
		t.Fatalf("expected error for unknown user")
	}
	all, err := store.Submissions.List(ctx, repository.SubmissionFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected nothing persisted, got %d", len(all))
	}
}

func testListFilters(t *testing.T, store repository.Store) {
	ctx := context.Background()
	alice := SeedUser(t, store, "alice")
	bob := SeedUser(t, store, "bob")
	SeedSubmission(t, store, alice.ID, Day(1))
	SeedSubmission(t, store, alice.ID, Day(2))
	SeedSubmission(t, store, bob.ID, Day(3))

	from, to := Day(1), Day(2)
	ranged, err := store.Submissions.List(ctx, repository.SubmissionFilter{MealDateFrom: &from, MealDateTo: &to})
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(ranged) != 2 {
		t.Fatalf("expected 2 in range got %d", len(ranged))
	}
	for _, sub := range ranged {
		if key := sub.MealDateKey(); key != "2024-01-01" && key != "2024-01-02" {
			t.Fatalf("unexpected date in range: %s", key)
		}
		if len(sub.Counts) != 3 {
			t.Fatalf("expected 3 counts got %d", len(sub.Counts))
		}
	}

	day3 := Day(3)
	byDate, err := store.Submissions.List(ctx, repository.SubmissionFilter{MealDate: &day3})
	if err != nil {
		t.Fatalf("by date: %v", err)
	}
	if len(byDate) != 1 || byDate[0].UserID != bob.ID {
		t.Fatalf("expected bob's day-3 submission, got %+v", byDate)
	}

	byUser, err := store.Submissions.List(ctx, repository.SubmissionFilter{UserID: &alice.ID})
	if err != nil {
		t.Fatalf("by user: %v", err)
	}
	if len(byUser) != 2 {
		t.Fatalf("expected 2 for alice got %d", len(byUser))
	}

	all, err := store.Submissions.List(ctx, repository.SubmissionFilter{})
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 total got %d", len(all))
	}
}

func newPending(userID string, mealDate time.Time) *domain.MealSubmission {
	return &domain.MealSubmission{
		UserID:      userID,
		SubmittedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		MealDate:    mealDate,
		Status:      domain.SubmissionStatusPending,
	}
}

func testUniquePerUserDate(t *testing.T, store repository.Store) {
	ctx := context.Background()
	alice := SeedUser(t, store, "alice")
	bob := SeedUser(t, store, "bob")
	unique := repository.CreateOptions{UniquePerUserDate: true}

	if err := store.Submissions.CreateWithCounts(ctx, newPending(alice.ID, Day(7)), []domain.MealCount{{MealType: "lunch", AdultCount: 1}}, unique); err != nil {
		t.Fatalf("first create: %v", err)
	}
	err := store.Submissions.CreateWithCounts(ctx, newPending(alice.ID, Day(7)), []domain.MealCount{{MealType: "lunch", AdultCount: 2}}, unique)
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate got %v", err)
	}
	if err := store.Submissions.CreateWithCounts(ctx, newPending(alice.ID, Day(8)), []domain.MealCount{{MealType: "lunch"}}, unique); err != nil {
		t.Fatalf("other date: %v", err)
	}
	if err := store.Submissions.CreateWithCounts(ctx, newPending(bob.ID, Day(7)), []domain.MealCount{{MealType: "lunch"}}, unique); err != nil {
		t.Fatalf("other user: %v", err)
	}
	if err := store.Submissions.CreateWithCounts(ctx, newPending(alice.ID, Day(7)), []domain.MealCount{{MealType: "lunch"}}, repository.CreateOptions{}); err != nil {
		t.Fatalf("unenforced create: %v", err)
	}

	day7 := Day(7)
	stored, err := store.Submissions.List(ctx, repository.SubmissionFilter{UserID: &alice.ID, MealDate: &day7})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 submissions for alice on day 7 got %d", len(stored))
	}
	for _, sub := range stored {
		if len(sub.Counts) == 1 && sub.Counts[0].AdultCount == 2 {
			t.Fatalf("rejected duplicate was persisted")
		}
	}
}

func testConcurrentUniqueCreates(t *testing.T, store repository.Store) {
	ctx := context.Background()
	user := SeedUser(t, store, "alice")
	const attempts = 20

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			counts := []domain.MealCount{{MealType: "lunch", AdultCount: i}}
			errs[i] = store.Submissions.CreateWithCounts(ctx, newPending(user.ID, Day(11)), counts, repository.CreateOptions{UniquePerUserDate: true})
		}(i)
	}
	wg.Wait()

	created := 0
	for i, err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, repository.ErrDuplicate):
		default:
			t.Fatalf("attempt %d: unexpected error %v", i, err)
		}
	}
	if created != 1 {
		t.Fatalf("expected exactly one create to succeed, got %d", created)
	}
	day := Day(11)
	stored, err := store.Submissions.List(ctx, repository.SubmissionFilter{UserID: &user.ID, MealDate: &day})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected one stored submission got %d", len(stored))
	}
}

func testUpdateStatusWithHistory(t *testing.T, store repository.Store) {
	ctx := context.Background()
	user := SeedUser(t, store, "alice")
	sub := SeedSubmission(t, store, user.ID, Day(5))

	steps := []struct{ from, to domain.SubmissionStatus }{
		{domain.SubmissionStatusPending, domain.SubmissionStatusApproved},
		{domain.SubmissionStatusApproved, domain.SubmissionStatusNeedsAdjustment},
	}
	for _, step := range steps {
		change := &domain.StatusChange{SubmissionID: sub.ID, NewStatus: step.to, ChangedByID: user.ID}
		if err := store.Submissions.UpdateStatusWithHistory(ctx, change); err != nil {
			t.Fatalf("update to %s: %v", step.to, err)
		}
		if change.ID == "" || change.CreatedAt.IsZero() {
			t.Fatalf("expected history ID and timestamp, got %+v", change)
		}
		if change.OldStatus != step.from {
			t.Fatalf("expected old status %s got %s", step.from, change.OldStatus)
		}
	}

	got, err := store.Submissions.GetByID(ctx, sub.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.SubmissionStatusNeedsAdjustment {
		t.Fatalf("expected needs_adjustment got %s", got.Status)
	}
	if len(got.Counts) != 3 {
		t.Fatalf("status update must not touch counts, got %d", len(got.Counts))
	}

	entries, err := store.History.ListBySubmission(ctx, sub.ID)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	if len(entries) != len(steps) {
		t.Fatalf("expected %d history entries got %d", len(steps), len(entries))
	}
	for i, step := range steps {
		if entries[i].OldStatus != step.from || entries[i].NewStatus != step.to || entries[i].ChangedByID != user.ID {
			t.Fatalf("history entry %d out of order: %+v", i, entries[i])
		}
	}
}

func testStatusChangeIsAtomic(t *testing.T, store repository.Store) {
	ctx := context.Background()
	user := SeedUser(t, store, "alice")
	sub := SeedSubmission(t, store, user.ID, Day(5))
	missing := "00000000-0000-0000-0000-000000000000"

	err := store.Submissions.UpdateStatusWithHistory(ctx, &domain.StatusChange{
		SubmissionID: missing, NewStatus: domain.SubmissionStatusApproved, ChangedByID: user.ID,
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("unknown submission: expected ErrNotFound got %v", err)
	}

	err = store.Submissions.UpdateStatusWithHistory(ctx, &domain.StatusChange{
		SubmissionID: sub.ID, NewStatus: domain.SubmissionStatusApproved, ChangedByID: missing,
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("unknown changer: expected ErrNotFound got %v", err)
	}
	got, err := store.Submissions.GetByID(ctx, sub.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.SubmissionStatusPending {
		t.Fatalf("failed history write changed status to %s", got.Status)
	}
	entries, err := store.History.ListBySubmission(ctx, sub.ID)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no history after failed change, got %d", len(entries))
	}
}
