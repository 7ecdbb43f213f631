package domain

import "time"

// Status represents the lifecycle state of a spa tenant. It is the single
// source of truth for access gating: everything an account may do is derived
// from it via Resolve.
type Status string

const (
	StatusPending     Status = "pending"
	StatusUnverified  Status = "unverified"
	StatusVerified    Status = "verified"
	StatusRejected    Status = "rejected"
	StatusBlacklisted Status = "blacklisted"
)

// Event represents an action that triggers a state transition.
type Event string

const (
	EventApprove        Event = "approve"
	EventReject         Event = "reject"
	EventConfirmPayment Event = "confirm_payment"
	EventPaymentLapsed  Event = "payment_lapsed"
	EventBlacklist      Event = "blacklist"
)

// RequiresReason reports whether the event must carry a non-empty reason.
// Rejections and blacklistings are always explained to the affected spa.
func (e Event) RequiresReason() bool {
	return e == EventReject || e == EventBlacklist
}

// Transition defines a valid state change: an event moves a spa from Src to Dst.
type Transition struct {
	Event Event
	Src   Status
	Dst   Status
}

// Transitions defines all valid state changes in the spa lifecycle.
// This is domain knowledge consumed by the FSM adapter. Approval lands in
// "unverified" rather than "verified" because full access stays payment-gated
// until the first fee is settled. Blacklisted is terminal: no event leads out
// of it.
var Transitions = []Transition{
	{Event: EventApprove, Src: StatusPending, Dst: StatusUnverified},
	{Event: EventReject, Src: StatusPending, Dst: StatusRejected},
	{Event: EventConfirmPayment, Src: StatusUnverified, Dst: StatusVerified},
	{Event: EventPaymentLapsed, Src: StatusVerified, Dst: StatusUnverified},
	{Event: EventBlacklist, Src: StatusPending, Dst: StatusBlacklisted},
	{Event: EventBlacklist, Src: StatusUnverified, Dst: StatusBlacklisted},
	{Event: EventBlacklist, Src: StatusVerified, Dst: StatusBlacklisted},
	{Event: EventBlacklist, Src: StatusRejected, Dst: StatusBlacklisted},
}

// Spa is the core domain entity: a registered spa business under lifecycle
// management. PaymentDueDate is nil until a plan has been paid for; it is only
// ever set while the spa is verified or unverified.
type Spa struct {
	ID              string
	Name            string
	OwnerEmail      string
	Status          Status
	PaymentDueDate  *time.Time
	PaymentPaid     bool
	RejectReason    string
	BlacklistReason string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewSpa creates a spa in the initial "pending" state, awaiting admin review.
func NewSpa(id, name, ownerEmail string, now time.Time) Spa {
	now = now.UTC()
	return Spa{
		ID:         id,
		Name:       name,
		OwnerEmail: ownerEmail,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
