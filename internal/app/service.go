package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmolas/spagate/internal/domain"
)

// casAttempts bounds the optimistic-write retry loop. Each retry re-reads the
// spa and re-validates the transition table against the fresh status.
const casAttempts = 3

// LifecycleService orchestrates spa lifecycle operations: registration, admin
// transitions, and the pure read paths for access gating.
type LifecycleService struct {
	spas      domain.SpaRepository
	sink      domain.EffectSink
	validator domain.TransitionValidator
	clock     domain.Clock
}

// NewLifecycleService creates a service with the given adapters.
func NewLifecycleService(spas domain.SpaRepository, sink domain.EffectSink, validator domain.TransitionValidator, clock domain.Clock) *LifecycleService {
	return &LifecycleService{
		spas:      spas,
		sink:      sink,
		validator: validator,
		clock:     clock,
	}
}

// Register persists a new spa in the pending state, awaiting admin review.
func (s *LifecycleService) Register(ctx context.Context, name, ownerEmail string) (domain.Spa, error) {
	id, err := generateID()
	if err != nil {
		return domain.Spa{}, fmt.Errorf("generating spa id: %w", err)
	}

	spa := domain.NewSpa(id, name, ownerEmail, s.clock.Now())

	if err := s.spas.Create(ctx, spa); err != nil {
		return domain.Spa{}, fmt.Errorf("creating spa: %w", err)
	}

	return spa, nil
}

// GetByID returns a spa by its unique identifier.
func (s *LifecycleService) GetByID(ctx context.Context, id string) (domain.Spa, error) {
	return s.spas.GetByID(ctx, id)
}

// List returns spas matching the given filter.
func (s *LifecycleService) List(ctx context.Context, filter domain.ListFilter) ([]domain.Spa, error) {
	return s.spas.List(ctx, filter)
}

// Access resolves the spa's current access decision. Pure read: recomputed
// from the persisted status on every call, never cached, never mutating.
func (s *LifecycleService) Access(ctx context.Context, id string) (domain.AccessDecision, error) {
	spa, err := s.spas.GetByID(ctx, id)
	if err != nil {
		return domain.AccessDecision{}, err
	}
	return domain.Resolve(spa)
}

// PaymentWindow evaluates the spa's due date against the current time. Pure
// read: overdue recomputation never mutates state here; only the sweep does.
func (s *LifecycleService) PaymentWindow(ctx context.Context, id string) (domain.PaymentWindow, error) {
	spa, err := s.spas.GetByID(ctx, id)
	if err != nil {
		return domain.PaymentWindow{}, err
	}
	return domain.EvaluatePayment(spa, s.clock.Now()), nil
}

// Approve moves a pending spa to unverified. Full access stays payment-gated
// until the first fee is settled. Notes are optional and land in the audit trail.
func (s *LifecycleService) Approve(ctx context.Context, id, actorID, notes string) (domain.Spa, error) {
	return s.applyEvent(ctx, id, domain.EventApprove, actorID, notes, nil)
}

// Reject moves a pending spa to rejected. The reason is mandatory and is
// surfaced to the spa through its access decision.
func (s *LifecycleService) Reject(ctx context.Context, id, actorID, reason string) (domain.Spa, error) {
	return s.applyEvent(ctx, id, domain.EventReject, actorID, reason, func(spa *domain.Spa) {
		spa.RejectReason = reason
		spa.PaymentDueDate = nil
		spa.PaymentPaid = false
	})
}

// Blacklist moves a spa to blacklisted from any non-terminal state. The reason
// is mandatory. Blacklisted is terminal; there is no restore event.
func (s *LifecycleService) Blacklist(ctx context.Context, id, actorID, reason string) (domain.Spa, error) {
	return s.applyEvent(ctx, id, domain.EventBlacklist, actorID, reason, func(spa *domain.Spa) {
		spa.BlacklistReason = reason
		spa.RejectReason = ""
		spa.PaymentDueDate = nil
		spa.PaymentPaid = false
	})
}

// applyEvent validates and applies one transition with an optimistic
// compare-and-swap on the status read in the same attempt. Losing the race
// re-reads and re-validates, so a status changed underneath us is rechecked
// against the legal table rather than silently overwritten. Effects are
// dispatched after the write commits and never fail the transition.
func (s *LifecycleService) applyEvent(ctx context.Context, id string, event domain.Event, actorID, reason string, mutate func(*domain.Spa)) (domain.Spa, error) {
	if event.RequiresReason() && strings.TrimSpace(reason) == "" {
		return domain.Spa{}, &domain.MissingReasonError{Op: string(event)}
	}

	for range casAttempts {
		spa, err := s.spas.GetByID(ctx, id)
		if err != nil {
			return domain.Spa{}, err
		}

		dst, err := s.validator.Apply(ctx, spa.Status, event)
		if err != nil {
			return domain.Spa{}, err
		}

		from := spa.Status
		spa.Status = dst
		if mutate != nil {
			mutate(&spa)
		}
		now := s.clock.Now().UTC()
		spa.UpdatedAt = now

		ok, err := s.spas.CompareAndSwapStatus(ctx, id, from, spa)
		if err != nil {
			return domain.Spa{}, fmt.Errorf("updating spa: %w", err)
		}
		if !ok {
			// Lost to a concurrent writer; retry against the fresh status.
			continue
		}

		rec := domain.TransitionRecord{
			SpaID:   id,
			Event:   event,
			From:    from,
			To:      dst,
			ActorID: actorID,
			Reason:  reason,
			At:      now,
		}
		dispatchEffects(ctx, s.sink, spa, rec)

		return spa, nil
	}

	return domain.Spa{}, fmt.Errorf("applying %q to spa %s: too much write contention", event, id)
}

// dispatchEffects sends the transition's notification/audit pair. Best-effort:
// failures are logged for out-of-band retry and never propagate, so a slow or
// broken channel cannot roll back or delay an already-committed transition.
func dispatchEffects(ctx context.Context, sink domain.EffectSink, spa domain.Spa, rec domain.TransitionRecord) {
	note, audit := domain.TransitionEffects(spa, rec)

	if err := sink.Notify(ctx, note); err != nil {
		slog.ErrorContext(ctx, "notification dispatch failed",
			"spa_id", spa.ID,
			"event", rec.Event,
			"error", err,
		)
	}

	if err := sink.Audit(ctx, audit); err != nil {
		slog.ErrorContext(ctx, "audit dispatch failed",
			"spa_id", spa.ID,
			"event", rec.Event,
			"error", err,
		)
	}
}
