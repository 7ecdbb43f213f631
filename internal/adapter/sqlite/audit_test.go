package sqlite_test

import (
	"context"
	"testing"

	"github.com/jmolas/spagate/internal/adapter/sqlite"
	"github.com/jmolas/spagate/internal/domain"
)

func newTestAuditLog(t *testing.T) *sqlite.AuditLog {
	t.Helper()
	repo := newTestRepo(t)
	return sqlite.NewAuditLog(repo.DB())
}

func TestAuditLog_RecordAndList(t *testing.T) {
	log := newTestAuditLog(t)
	ctx := context.Background()

	entries := []domain.AuditEffect{
		{
			SpaID:   "s-1",
			Event:   domain.EventApprove,
			From:    domain.StatusPending,
			To:      domain.StatusUnverified,
			ActorID: "admin-7",
			At:      testNow(),
		},
		{
			SpaID:   "s-1",
			Event:   domain.EventConfirmPayment,
			From:    domain.StatusUnverified,
			To:      domain.StatusVerified,
			ActorID: "owner-1",
			At:      testNow(),
		},
	}

	for _, e := range entries {
		if err := log.Record(ctx, e); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	got, err := log.ListBySpa(ctx, "s-1")
	if err != nil {
		t.Fatalf("ListBySpa failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}

	// Oldest first.
	if got[0].Event != domain.EventApprove {
		t.Errorf("first Event = %q, want %q", got[0].Event, domain.EventApprove)
	}
	if got[1].From != domain.StatusUnverified || got[1].To != domain.StatusVerified {
		t.Errorf("second transition = %q -> %q, want unverified -> verified", got[1].From, got[1].To)
	}
}

func TestAuditLog_RecordReason(t *testing.T) {
	log := newTestAuditLog(t)
	ctx := context.Background()

	e := domain.AuditEffect{
		SpaID:   "s-1",
		Event:   domain.EventBlacklist,
		From:    domain.StatusVerified,
		To:      domain.StatusBlacklisted,
		ActorID: "admin-7",
		Reason:  "fraudulent slips",
		At:      testNow(),
	}
	if err := log.Record(ctx, e); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	got, err := log.ListBySpa(ctx, "s-1")
	if err != nil {
		t.Fatalf("ListBySpa failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d entries, want 1", len(got))
	}
	if got[0].Reason != "fraudulent slips" {
		t.Errorf("Reason = %q, want the stored reason", got[0].Reason)
	}
}

func TestAuditLog_ListBySpa_FiltersOtherSpas(t *testing.T) {
	log := newTestAuditLog(t)
	ctx := context.Background()

	if err := log.Record(ctx, domain.AuditEffect{
		SpaID: "s-1", Event: domain.EventApprove,
		From: domain.StatusPending, To: domain.StatusUnverified,
		ActorID: "admin-7", At: testNow(),
	}); err != nil {
		t.Fatal(err)
	}
	if err := log.Record(ctx, domain.AuditEffect{
		SpaID: "s-2", Event: domain.EventReject,
		From: domain.StatusPending, To: domain.StatusRejected,
		ActorID: "admin-7", Reason: "incomplete licence", At: testNow(),
	}); err != nil {
		t.Fatal(err)
	}

	got, err := log.ListBySpa(ctx, "s-1")
	if err != nil {
		t.Fatalf("ListBySpa failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d entries, want 1", len(got))
	}
	if got[0].SpaID != "s-1" {
		t.Errorf("SpaID = %q, want %q", got[0].SpaID, "s-1")
	}
}
