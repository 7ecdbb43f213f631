package domain

// AccessLevel is the coarse access bucket derived from a spa's status.
type AccessLevel string

const (
	AccessNone         AccessLevel = "no_access"
	AccessRestricted   AccessLevel = "restricted"
	AccessPaymentGated AccessLevel = "payment_gated"
	AccessFull         AccessLevel = "full"
)

// Capability is a named permission unlocking one UI/API surface. The string
// values are a stable contract with the frontend; never rename them.
type Capability string

const (
	CapabilityDashboard           Capability = "dashboard"
	CapabilityPaymentPlans        Capability = "paymentPlans"
	CapabilityNotificationHistory Capability = "notificationHistory"
	CapabilityAddStaff            Capability = "addStaff"
	CapabilityViewStaff           Capability = "viewStaff"
	CapabilityManageStaff         Capability = "manageStaff"
	CapabilityResubmitApplication Capability = "resubmitApplication"
	CapabilityViewProfile         Capability = "viewProfile"
)

// AccessDecision is derived from a spa snapshot, never persisted. Callers must
// recompute it on every access check so it always reflects the latest status.
type AccessDecision struct {
	Level         AccessLevel
	Capabilities  []Capability
	StatusMessage string
	CanLogin      bool
}

// Resolve maps a spa's persisted status to its access decision. It is pure and
// exhaustive; an unknown status fails closed with an InvalidStateError rather
// than defaulting to any permissive level.
func Resolve(spa Spa) (AccessDecision, error) {
	switch spa.Status {
	case StatusPending:
		return AccessDecision{
			Level:         AccessNone,
			Capabilities:  []Capability{},
			StatusMessage: "registration is awaiting review",
			CanLogin:      false,
		}, nil
	case StatusRejected:
		return AccessDecision{
			Level:         AccessRestricted,
			Capabilities:  []Capability{CapabilityResubmitApplication, CapabilityViewProfile},
			StatusMessage: "registration was rejected: " + spa.RejectReason,
			CanLogin:      true,
		}, nil
	case StatusUnverified:
		return AccessDecision{
			Level:         AccessPaymentGated,
			Capabilities:  []Capability{CapabilityPaymentPlans, CapabilityViewProfile},
			StatusMessage: "payment required to unlock full access",
			CanLogin:      true,
		}, nil
	case StatusVerified:
		return AccessDecision{
			Level: AccessFull,
			Capabilities: []Capability{
				CapabilityDashboard,
				CapabilityPaymentPlans,
				CapabilityNotificationHistory,
				CapabilityAddStaff,
				CapabilityViewStaff,
				CapabilityManageStaff,
				CapabilityViewProfile,
			},
			StatusMessage: "account in good standing",
			CanLogin:      true,
		}, nil
	case StatusBlacklisted:
		// The record exists, but login itself is refused.
		return AccessDecision{
			Level:         AccessNone,
			Capabilities:  []Capability{},
			StatusMessage: "account blacklisted: " + spa.BlacklistReason,
			CanLogin:      false,
		}, nil
	default:
		return AccessDecision{Level: AccessNone, Capabilities: []Capability{}},
			&InvalidStateError{Status: spa.Status}
	}
}
