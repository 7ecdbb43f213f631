package domain

import "time"

// GraceDays is the number of whole days past the due date during which an
// overdue payment does not yet force a downgrade.
const GraceDays = 5

// Plan identifies a payment plan by its billing term.
type Plan string

const (
	PlanMonthly   Plan = "monthly"
	PlanQuarterly Plan = "quarterly"
	PlanHalfYear  Plan = "half_year"
	PlanAnnual    Plan = "annual"
)

// Months returns the plan's term length. Zero for unknown plans.
func (p Plan) Months() int {
	switch p {
	case PlanMonthly:
		return 1
	case PlanQuarterly:
		return 3
	case PlanHalfYear:
		return 6
	case PlanAnnual:
		return 12
	default:
		return 0
	}
}

// Amount returns the plan's fee in satang.
func (p Plan) Amount() int64 {
	switch p {
	case PlanMonthly:
		return 150000
	case PlanQuarterly:
		return 420000
	case PlanHalfYear:
		return 800000
	case PlanAnnual:
		return 1500000
	default:
		return 0
	}
}

// Valid reports whether p is a recognized plan.
func (p Plan) Valid() bool { return p.Months() > 0 }

// PaymentMethod distinguishes the two supported payment channels.
type PaymentMethod string

const (
	// MethodCard settles synchronously with the gateway.
	MethodCard PaymentMethod = "card"
	// MethodBankTransfer requires a slip and a separate admin approval.
	MethodBankTransfer PaymentMethod = "bank_transfer"
)

// PaymentState is the state of one submitted payment.
type PaymentState string

const (
	PaymentPendingApproval PaymentState = "pending_approval"
	PaymentCompleted       PaymentState = "completed"
	PaymentRejected        PaymentState = "rejected"
)

// Payment is one fee submission for a spa. Card payments are born completed;
// bank transfers start pending_approval and carry a slip reference.
type Payment struct {
	ID           string
	SpaID        string
	Plan         Plan
	Method       PaymentMethod
	State        PaymentState
	Amount       int64
	SlipRef      string
	RejectReason string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PaymentWindow is the result of evaluating a spa's due date against a point
// in time. All fields use whole calendar days; a partial day never counts,
// so an entity flips overdue only once the full day boundary has passed.
type PaymentWindow struct {
	// Overdue: the due date has arrived. Settling a fee advances the due
	// date by the plan's term, so a paid-up spa only becomes overdue again
	// once that term runs out.
	Overdue bool
	// GraceExpired: overdue by more than GraceDays whole days. The spa must
	// lose full access; this is the only time-driven status mutation.
	GraceExpired bool
	// DaysRemaining: whole days until the due date; zero once it has arrived.
	DaysRemaining int
	// CanInitiate: payments are refused before the due date. A plan is locked
	// for its full term once selected, so mid-term switching is impossible.
	// A spa with no due date yet (fresh approval) may always pay.
	CanInitiate bool
}

// EvaluatePayment computes the payment window for a spa at the given instant.
// Pure; the caller supplies now from its Clock.
func EvaluatePayment(spa Spa, now time.Time) PaymentWindow {
	if spa.PaymentDueDate == nil {
		return PaymentWindow{CanInitiate: true}
	}

	due := *spa.PaymentDueDate
	if now.Before(due) {
		return PaymentWindow{DaysRemaining: wholeDays(due.Sub(now))}
	}

	return PaymentWindow{
		CanInitiate:  true,
		Overdue:      true,
		GraceExpired: wholeDays(now.Sub(due)) > GraceDays,
	}
}

// wholeDays floors a duration to calendar days. Flooring keeps behavior stable
// near midnight boundaries: a spa is never overdue, and grace never expires,
// on a fraction of a day.
func wholeDays(d time.Duration) int {
	return int(d / (24 * time.Hour))
}
