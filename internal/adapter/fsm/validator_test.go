package fsm_test

import (
	"context"
	"errors"
	"testing"

	adapter "github.com/jmolas/spagate/internal/adapter/fsm"
	"github.com/jmolas/spagate/internal/domain"
)

func TestValidator_AllTransitions(t *testing.T) {
	v := adapter.New()
	ctx := context.Background()

	for _, tr := range domain.Transitions {
		dst, err := v.Apply(ctx, tr.Src, tr.Event)
		if err != nil {
			t.Errorf("Apply(%q, %q) unexpected error: %v", tr.Src, tr.Event, err)
			continue
		}
		if dst != tr.Dst {
			t.Errorf("Apply(%q, %q) = %q, want %q", tr.Src, tr.Event, dst, tr.Dst)
		}
	}
}

func TestValidator_InvalidTransition(t *testing.T) {
	v := adapter.New()
	ctx := context.Background()

	// Can't confirm a payment from "rejected".
	_, err := v.Apply(ctx, domain.StatusRejected, domain.EventConfirmPayment)
	var trErr *domain.IllegalTransitionError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected IllegalTransitionError, got %v", err)
	}
	if trErr.Event != domain.EventConfirmPayment {
		t.Errorf("event = %q, want %q", trErr.Event, domain.EventConfirmPayment)
	}
	if trErr.Current != domain.StatusRejected {
		t.Errorf("current = %q, want %q", trErr.Current, domain.StatusRejected)
	}
}

func TestValidator_FullLifecycle(t *testing.T) {
	v := adapter.New()
	ctx := context.Background()

	steps := []struct {
		from  domain.Status
		event domain.Event
		want  domain.Status
	}{
		{domain.StatusPending, domain.EventApprove, domain.StatusUnverified},
		{domain.StatusUnverified, domain.EventConfirmPayment, domain.StatusVerified},
		{domain.StatusVerified, domain.EventPaymentLapsed, domain.StatusUnverified},
		{domain.StatusUnverified, domain.EventConfirmPayment, domain.StatusVerified},
		{domain.StatusVerified, domain.EventBlacklist, domain.StatusBlacklisted},
	}

	for _, step := range steps {
		got, err := v.Apply(ctx, step.from, step.event)
		if err != nil {
			t.Fatalf("Apply(%q, %q) error: %v", step.from, step.event, err)
		}
		if got != step.want {
			t.Errorf("Apply(%q, %q) = %q, want %q", step.from, step.event, got, step.want)
		}
	}
}

func TestValidator_BlacklistedIsTerminal(t *testing.T) {
	v := adapter.New()
	ctx := context.Background()

	events := []domain.Event{
		domain.EventApprove,
		domain.EventReject,
		domain.EventConfirmPayment,
		domain.EventPaymentLapsed,
		domain.EventBlacklist,
	}

	for _, event := range events {
		_, err := v.Apply(ctx, domain.StatusBlacklisted, event)
		var trErr *domain.IllegalTransitionError
		if !errors.As(err, &trErr) {
			t.Errorf("Apply(blacklisted, %q) = %v, want IllegalTransitionError", event, err)
		}
	}
}

func TestValidator_BlacklistFromRejected(t *testing.T) {
	v := adapter.New()
	ctx := context.Background()

	// Blacklist is valid from every non-terminal status, including rejected.
	got, err := v.Apply(ctx, domain.StatusRejected, domain.EventBlacklist)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != domain.StatusBlacklisted {
		t.Errorf("got %q, want %q", got, domain.StatusBlacklisted)
	}
}
