package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmolas/spagate/internal/domain"
)

// SweepActorID identifies the scheduler in audit entries for time-driven
// downgrades. Every other transition carries a real admin actor.
const SweepActorID = "system:sweeper"

// TransitionApplied reports one downgrade performed by a sweep.
type TransitionApplied struct {
	SpaID string
	From  domain.Status
	To    domain.Status
}

// Sweeper re-evaluates verified spas and downgrades the ones whose payment
// grace window has expired. This is the only place status changes purely by
// time rather than by an administrative actor.
type Sweeper struct {
	spas      domain.SpaRepository
	sink      domain.EffectSink
	validator domain.TransitionValidator
	clock     domain.Clock
}

// NewSweeper creates a sweeper with the given adapters.
func NewSweeper(spas domain.SpaRepository, sink domain.EffectSink, validator domain.TransitionValidator, clock domain.Clock) *Sweeper {
	return &Sweeper{
		spas:      spas,
		sink:      sink,
		validator: validator,
		clock:     clock,
	}
}

// SetSink binds the effect sink after construction. The sweeper is built
// before the job queue that implements the sink, so the composition root
// closes the cycle here before any sweep runs.
func (s *Sweeper) SetSink(sink domain.EffectSink) {
	s.sink = sink
}

// Run sweeps at the sweeper's clock time. Convenience for the periodic job.
func (s *Sweeper) Run(ctx context.Context) ([]TransitionApplied, error) {
	return s.Sweep(ctx, s.clock.Now())
}

// Sweep downgrades every verified spa whose due date is past the grace
// window. Idempotent: each downgrade is guarded by a compare-and-swap on the
// verified status, so a concurrent sweep or a racing admin action makes this
// skip the spa instead of double-applying the transition or its effects.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) ([]TransitionApplied, error) {
	verified := domain.StatusVerified
	spas, err := s.spas.List(ctx, domain.ListFilter{Status: &verified})
	if err != nil {
		return nil, err
	}

	var applied []TransitionApplied
	for _, spa := range spas {
		window := domain.EvaluatePayment(spa, now)
		if !window.GraceExpired {
			continue
		}

		dst, err := s.validator.Apply(ctx, spa.Status, domain.EventPaymentLapsed)
		if err != nil {
			// Listed as verified but no longer downgradable; skip.
			continue
		}

		from := spa.Status
		spa.Status = dst
		spa.PaymentPaid = false
		spa.UpdatedAt = now.UTC()

		ok, err := s.spas.CompareAndSwapStatus(ctx, spa.ID, from, spa)
		if err != nil {
			// One bad row must not stall the whole sweep.
			slog.ErrorContext(ctx, "sweep downgrade failed",
				"spa_id", spa.ID,
				"error", err,
			)
			continue
		}
		if !ok {
			// A racing writer already moved it; nothing left to do here.
			continue
		}

		rec := domain.TransitionRecord{
			SpaID:   spa.ID,
			Event:   domain.EventPaymentLapsed,
			From:    from,
			To:      dst,
			ActorID: SweepActorID,
			Reason:  "payment grace window expired",
			At:      now.UTC(),
		}
		dispatchEffects(ctx, s.sink, spa, rec)

		slog.InfoContext(ctx, "downgraded overdue spa",
			"spa_id", spa.ID,
			"due_date", spa.PaymentDueDate,
		)

		applied = append(applied, TransitionApplied{SpaID: spa.ID, From: from, To: dst})
	}

	return applied, nil
}
