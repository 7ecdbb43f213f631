package sqlite_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jmolas/spagate/internal/adapter/sqlite"
	"github.com/jmolas/spagate/internal/domain"
)

// newTestRepo creates an in-memory SQLite repository for testing.
func newTestRepo(t *testing.T) *sqlite.SpaRepository {
	t.Helper()
	repo, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("creating test repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustCreate(t *testing.T, repo *sqlite.SpaRepository, spa domain.Spa) {
	t.Helper()
	if err := repo.Create(context.Background(), spa); err != nil {
		t.Fatalf("mustCreate failed: %v", err)
	}
}

func mustSwap(t *testing.T, repo *sqlite.SpaRepository, expected domain.Status, spa domain.Spa) {
	t.Helper()
	ok, err := repo.CompareAndSwapStatus(context.Background(), spa.ID, expected, spa)
	if err != nil {
		t.Fatalf("mustSwap failed: %v", err)
	}
	if !ok {
		t.Fatalf("mustSwap guard failed for %q", spa.ID)
	}
}

func testNow() time.Time {
	return time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
}

func TestCreate_And_GetByID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	spa := domain.NewSpa("s-1", "Lotus Wellness", "owner@lotus.example", testNow())

	if err := repo.Create(ctx, spa); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "s-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	if got.ID != "s-1" {
		t.Errorf("ID = %q, want %q", got.ID, "s-1")
	}
	if got.Name != "Lotus Wellness" {
		t.Errorf("Name = %q, want %q", got.Name, "Lotus Wellness")
	}
	if got.OwnerEmail != "owner@lotus.example" {
		t.Errorf("OwnerEmail = %q, want %q", got.OwnerEmail, "owner@lotus.example")
	}
	if got.Status != domain.StatusPending {
		t.Errorf("Status = %q, want %q", got.Status, domain.StatusPending)
	}
	if got.PaymentDueDate != nil {
		t.Errorf("PaymentDueDate = %v, want nil", got.PaymentDueDate)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should not be zero")
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, domain.ErrSpaNotFound) {
		t.Errorf("expected ErrSpaNotFound, got %v", err)
	}
}

func TestDueDate_RoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	spa := domain.NewSpa("s-1", "Lotus", "o@x.example", testNow())
	spa.Status = domain.StatusVerified
	due := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	spa.PaymentDueDate = &due
	spa.PaymentPaid = true
	mustCreate(t, repo, spa)

	got, err := repo.GetByID(ctx, "s-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.PaymentDueDate == nil || !got.PaymentDueDate.Equal(due) {
		t.Errorf("PaymentDueDate = %v, want %v", got.PaymentDueDate, due)
	}
	if !got.PaymentPaid {
		t.Error("PaymentPaid = false, want true")
	}
}

func TestCompareAndSwapStatus(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	spa := domain.NewSpa("s-1", "Lotus", "o@x.example", testNow())
	mustCreate(t, repo, spa)

	spa.Status = domain.StatusUnverified
	spa.UpdatedAt = testNow().Add(time.Minute)

	ok, err := repo.CompareAndSwapStatus(ctx, "s-1", domain.StatusPending, spa)
	if err != nil {
		t.Fatalf("CompareAndSwapStatus failed: %v", err)
	}
	if !ok {
		t.Fatal("swap reported guard failure on matching status")
	}

	got, _ := repo.GetByID(ctx, "s-1")
	if got.Status != domain.StatusUnverified {
		t.Errorf("Status = %q, want %q", got.Status, domain.StatusUnverified)
	}
}

func TestCompareAndSwapStatus_GuardFails(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	spa := domain.NewSpa("s-1", "Lotus", "o@x.example", testNow())
	mustCreate(t, repo, spa)

	// Guard expects "verified" but the row holds "pending".
	spa.Status = domain.StatusUnverified
	ok, err := repo.CompareAndSwapStatus(ctx, "s-1", domain.StatusVerified, spa)
	if err != nil {
		t.Fatalf("CompareAndSwapStatus failed: %v", err)
	}
	if ok {
		t.Fatal("swap succeeded despite stale expected status")
	}

	got, _ := repo.GetByID(ctx, "s-1")
	if got.Status != domain.StatusPending {
		t.Errorf("Status = %q after failed guard, want pending", got.Status)
	}
}

func TestCompareAndSwapStatus_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	spa := domain.NewSpa("nonexistent", "X", "x@x.example", testNow())
	_, err := repo.CompareAndSwapStatus(context.Background(), "nonexistent", domain.StatusPending, spa)
	if !errors.Is(err, domain.ErrSpaNotFound) {
		t.Errorf("expected ErrSpaNotFound, got %v", err)
	}
}

func TestCompareAndSwapStatus_ClearsDueDate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	spa := domain.NewSpa("s-1", "Lotus", "o@x.example", testNow())
	spa.Status = domain.StatusVerified
	due := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	spa.PaymentDueDate = &due
	mustCreate(t, repo, spa)

	spa.Status = domain.StatusBlacklisted
	spa.PaymentDueDate = nil
	mustSwap(t, repo, domain.StatusVerified, spa)

	got, _ := repo.GetByID(ctx, "s-1")
	if got.PaymentDueDate != nil {
		t.Errorf("PaymentDueDate = %v after clearing, want nil", got.PaymentDueDate)
	}
}

func TestList_All(t *testing.T) {
	repo := newTestRepo(t)

	mustCreate(t, repo, domain.NewSpa("s-1", "A", "a@x.example", testNow()))
	mustCreate(t, repo, domain.NewSpa("s-2", "B", "b@x.example", testNow()))

	spas, err := repo.List(context.Background(), domain.ListFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(spas) != 2 {
		t.Errorf("got %d spas, want 2", len(spas))
	}
}

func TestList_FilterByStatus(t *testing.T) {
	repo := newTestRepo(t)

	s1 := domain.NewSpa("s-1", "A", "a@x.example", testNow())
	mustCreate(t, repo, s1)

	s2 := domain.NewSpa("s-2", "B", "b@x.example", testNow())
	mustCreate(t, repo, s2)

	s2.Status = domain.StatusUnverified
	mustSwap(t, repo, domain.StatusPending, s2)

	status := domain.StatusUnverified
	spas, err := repo.List(context.Background(), domain.ListFilter{Status: &status})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(spas) != 1 {
		t.Fatalf("got %d spas, want 1", len(spas))
	}
	if spas[0].ID != "s-2" {
		t.Errorf("ID = %q, want %q", spas[0].ID, "s-2")
	}
}

func TestList_Pagination(t *testing.T) {
	repo := newTestRepo(t)

	for i := range 5 {
		id := fmt.Sprintf("s-%d", i)
		email := fmt.Sprintf("o%d@x.example", i)
		mustCreate(t, repo, domain.NewSpa(id, "S", email, testNow()))
	}

	spas, err := repo.List(context.Background(), domain.ListFilter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(spas) != 2 {
		t.Errorf("got %d spas, want 2", len(spas))
	}
}
