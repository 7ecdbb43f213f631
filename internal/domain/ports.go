package domain

import (
	"context"
	"time"
)

// SpaRepository defines the persistence contract for spas. Status mutation
// goes through CompareAndSwapStatus exclusively so racing writers (an admin
// action vs. the sweep) lose cleanly instead of overwriting each other.
type SpaRepository interface {
	Create(ctx context.Context, spa Spa) error
	GetByID(ctx context.Context, id string) (Spa, error)
	List(ctx context.Context, filter ListFilter) ([]Spa, error)
	// CompareAndSwapStatus writes spa iff the persisted status still equals
	// expected. Returns false without error when the guard fails.
	CompareAndSwapStatus(ctx context.Context, id string, expected Status, spa Spa) (bool, error)
}

// ListFilter holds optional criteria for listing spas.
type ListFilter struct {
	Status *Status
	Limit  int
	Offset int
}

// PaymentRepository defines the persistence contract for payments. State
// changes on the approval sub-workflow go through CompareAndSwapState so two
// admins racing on the same slip cannot both complete it.
type PaymentRepository interface {
	Create(ctx context.Context, p Payment) error
	GetByID(ctx context.Context, id string) (Payment, error)
	ListBySpa(ctx context.Context, spaID string) ([]Payment, error)
	Update(ctx context.Context, p Payment) error
	// CompareAndSwapState writes p iff the persisted state still equals
	// expected. Returns false without error when the guard fails.
	CompareAndSwapState(ctx context.Context, id string, expected PaymentState, p Payment) (bool, error)
}

// EffectSink receives the side effects a transition produces. Both methods are
// best-effort: callers log failures and never roll back the status change.
type EffectSink interface {
	Notify(ctx context.Context, e NotificationEffect) error
	Audit(ctx context.Context, e AuditEffect) error
}

// TransitionValidator checks an event against the legal transition table.
type TransitionValidator interface {
	Apply(ctx context.Context, current Status, event Event) (Status, error)
}

// Clock supplies the current time. Injected so temporal logic is deterministic
// in tests.
type Clock interface {
	Now() time.Time
}
