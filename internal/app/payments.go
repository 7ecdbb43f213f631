package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/jmolas/spagate/internal/domain"
)

// PaymentService handles fee submissions and the bank-transfer approval
// sub-workflow. Card payments settle synchronously; bank transfers wait in
// pending_approval until an admin confirms the slip.
type PaymentService struct {
	spas      domain.SpaRepository
	payments  domain.PaymentRepository
	lifecycle *LifecycleService
	clock     domain.Clock
}

// NewPaymentService creates a payment service sharing the lifecycle service's
// transition machinery.
func NewPaymentService(spas domain.SpaRepository, payments domain.PaymentRepository, lifecycle *LifecycleService, clock domain.Clock) *PaymentService {
	return &PaymentService{
		spas:      spas,
		payments:  payments,
		lifecycle: lifecycle,
		clock:     clock,
	}
}

// GetByID returns a payment by its unique identifier.
func (s *PaymentService) GetByID(ctx context.Context, id string) (domain.Payment, error) {
	return s.payments.GetByID(ctx, id)
}

// ListBySpa returns all payments submitted by a spa, newest first.
func (s *PaymentService) ListBySpa(ctx context.Context, spaID string) ([]domain.Payment, error) {
	return s.payments.ListBySpa(ctx, spaID)
}

// Submit records a new fee payment for a spa. Payments are refused while the
// current plan still runs (the window opens at the due date). A card payment
// settles immediately; a bank transfer is parked in pending_approval.
func (s *PaymentService) Submit(ctx context.Context, spaID, actorID string, plan domain.Plan, method domain.PaymentMethod, slipRef string) (domain.Payment, error) {
	if !plan.Valid() {
		return domain.Payment{}, fmt.Errorf("unknown plan %q", plan)
	}

	spa, err := s.spas.GetByID(ctx, spaID)
	if err != nil {
		return domain.Payment{}, err
	}

	window := domain.EvaluatePayment(spa, s.clock.Now())
	if !window.CanInitiate {
		return domain.Payment{}, &domain.PaymentWindowClosedError{DaysRemaining: window.DaysRemaining}
	}

	// Only spas that can hold a due date may pay. Anything else has no
	// payment relationship with the platform.
	if spa.Status != domain.StatusUnverified && spa.Status != domain.StatusVerified {
		return domain.Payment{}, &domain.IllegalTransitionError{
			Event:   domain.EventConfirmPayment,
			Current: spa.Status,
		}
	}

	now := s.clock.Now().UTC()
	pmt := domain.Payment{
		ID:        uuid.NewString(),
		SpaID:     spaID,
		Plan:      plan,
		Method:    method,
		Amount:    plan.Amount(),
		SlipRef:   slipRef,
		CreatedAt: now,
		UpdatedAt: now,
	}

	switch method {
	case domain.MethodCard:
		// Synchronous settlement: the gateway has already charged, so the
		// payment is born completed and the spa advances immediately.
		pmt.State = domain.PaymentCompleted
		if err := s.payments.Create(ctx, pmt); err != nil {
			return domain.Payment{}, fmt.Errorf("creating payment: %w", err)
		}
		if _, err := s.settle(ctx, spaID, pmt, actorID); err != nil {
			return domain.Payment{}, err
		}
	case domain.MethodBankTransfer:
		pmt.State = domain.PaymentPendingApproval
		if err := s.payments.Create(ctx, pmt); err != nil {
			return domain.Payment{}, fmt.Errorf("creating payment: %w", err)
		}
	default:
		return domain.Payment{}, fmt.Errorf("unknown payment method %q", method)
	}

	return pmt, nil
}

// Approve confirms a pending bank transfer: the spa's due date moves forward
// by the plan's term and the spa becomes verified.
func (s *PaymentService) Approve(ctx context.Context, paymentID, actorID string) (domain.Payment, error) {
	pmt, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return domain.Payment{}, err
	}

	if pmt.State != domain.PaymentPendingApproval {
		return domain.Payment{}, &domain.PaymentStateError{PaymentID: pmt.ID, State: pmt.State, Op: "approve"}
	}

	// Complete the payment first, guarded on pending_approval, so two admins
	// racing on the same slip apply the fee exactly once.
	completed := pmt
	completed.State = domain.PaymentCompleted
	completed.UpdatedAt = s.clock.Now().UTC()

	ok, err := s.payments.CompareAndSwapState(ctx, pmt.ID, domain.PaymentPendingApproval, completed)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("updating payment: %w", err)
	}
	if !ok {
		current, err := s.payments.GetByID(ctx, pmt.ID)
		if err != nil {
			return domain.Payment{}, err
		}
		return domain.Payment{}, &domain.PaymentStateError{PaymentID: current.ID, State: current.State, Op: "approve"}
	}

	if _, err := s.settle(ctx, pmt.SpaID, completed, actorID); err != nil {
		// The fee never reached the spa. Park the slip back in
		// pending_approval so the approval can be retried.
		if _, revertErr := s.payments.CompareAndSwapState(ctx, pmt.ID, domain.PaymentCompleted, pmt); revertErr != nil {
			slog.ErrorContext(ctx, "reverting payment after failed settlement",
				"payment_id", pmt.ID,
				"spa_id", pmt.SpaID,
				"error", revertErr,
			)
		}
		return domain.Payment{}, err
	}

	return completed, nil
}

// Reject declines a pending bank transfer. The reason is mandatory and is
// shown to the spa so it can correct the slip.
func (s *PaymentService) Reject(ctx context.Context, paymentID, actorID, reason string) (domain.Payment, error) {
	if strings.TrimSpace(reason) == "" {
		return domain.Payment{}, &domain.MissingReasonError{Op: "payment rejection"}
	}

	pmt, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return domain.Payment{}, err
	}

	if pmt.State != domain.PaymentPendingApproval {
		return domain.Payment{}, &domain.PaymentStateError{PaymentID: pmt.ID, State: pmt.State, Op: "reject"}
	}

	from := pmt.State
	pmt.State = domain.PaymentRejected
	pmt.RejectReason = reason
	pmt.UpdatedAt = s.clock.Now().UTC()

	ok, err := s.payments.CompareAndSwapState(ctx, pmt.ID, from, pmt)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("updating payment: %w", err)
	}
	if !ok {
		// A racing approval already settled the slip.
		current, err := s.payments.GetByID(ctx, pmt.ID)
		if err != nil {
			return domain.Payment{}, err
		}
		return domain.Payment{}, &domain.PaymentStateError{PaymentID: current.ID, State: current.State, Op: "reject"}
	}

	slog.InfoContext(ctx, "payment rejected",
		"payment_id", pmt.ID,
		"spa_id", pmt.SpaID,
		"actor_id", actorID,
		"reason", reason,
	)

	return pmt, nil
}

// Resubmit returns a rejected bank transfer to pending_approval with a new
// slip. Only annual-plan transfers qualify; amount and plan stay untouched.
func (s *PaymentService) Resubmit(ctx context.Context, paymentID, slipRef string) (domain.Payment, error) {
	pmt, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return domain.Payment{}, err
	}

	if pmt.State != domain.PaymentRejected || pmt.Method != domain.MethodBankTransfer || pmt.Plan != domain.PlanAnnual {
		return domain.Payment{}, &domain.PaymentStateError{PaymentID: pmt.ID, State: pmt.State, Op: "resubmit"}
	}

	from := pmt.State
	pmt.State = domain.PaymentPendingApproval
	pmt.RejectReason = ""
	pmt.SlipRef = slipRef
	pmt.UpdatedAt = s.clock.Now().UTC()

	ok, err := s.payments.CompareAndSwapState(ctx, pmt.ID, from, pmt)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("updating payment: %w", err)
	}
	if !ok {
		current, err := s.payments.GetByID(ctx, pmt.ID)
		if err != nil {
			return domain.Payment{}, err
		}
		return domain.Payment{}, &domain.PaymentStateError{PaymentID: current.ID, State: current.State, Op: "resubmit"}
	}

	return pmt, nil
}

// settle applies a completed payment to the spa: the due date advances by the
// plan's term (from the existing boundary when one is set, so a term is never
// shortened) and the period is marked paid. An unverified spa transitions to
// verified; a verified spa just rolls its period forward.
func (s *PaymentService) settle(ctx context.Context, spaID string, pmt domain.Payment, actorID string) (domain.Spa, error) {
	now := s.clock.Now().UTC()
	advance := func(spa *domain.Spa) {
		base := now
		if spa.PaymentDueDate != nil {
			base = *spa.PaymentDueDate
		}
		due := base.AddDate(0, pmt.Plan.Months(), 0)
		spa.PaymentDueDate = &due
		spa.PaymentPaid = true
	}

	spa, err := s.spas.GetByID(ctx, spaID)
	if err != nil {
		return domain.Spa{}, err
	}

	if spa.Status == domain.StatusVerified {
		// Renewal: no status transition, only the period moves.
		from := spa.Status
		advance(&spa)
		spa.UpdatedAt = now

		ok, err := s.spas.CompareAndSwapStatus(ctx, spaID, from, spa)
		if err != nil {
			return domain.Spa{}, fmt.Errorf("updating spa: %w", err)
		}
		if !ok {
			// The sweep downgraded it between our read and write; the
			// confirm_payment path below handles the unverified status.
			return s.lifecycle.applyEvent(ctx, spaID, domain.EventConfirmPayment, actorID, "", advance)
		}
		return spa, nil
	}

	return s.lifecycle.applyEvent(ctx, spaID, domain.EventConfirmPayment, actorID, "", advance)
}
