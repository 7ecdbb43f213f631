package app_test

import (
	"context"
	"sync"
	"time"

	"github.com/jmolas/spagate/internal/domain"
)

// fixedClock returns a settable instant so temporal assertions are exact.
type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

// tableValidator applies the domain transition table directly, standing in for
// the fsm adapter.
type tableValidator struct{}

func (tableValidator) Apply(_ context.Context, current domain.Status, event domain.Event) (domain.Status, error) {
	for _, t := range domain.Transitions {
		if t.Event == event && t.Src == current {
			return t.Dst, nil
		}
	}
	return "", &domain.IllegalTransitionError{Event: event, Current: current}
}

// mockSpaRepo is an in-memory SpaRepository. beforeSwap, when set, runs before
// each compare-and-swap so tests can interleave a concurrent writer.
type mockSpaRepo struct {
	mu         sync.Mutex
	spas       map[string]domain.Spa
	beforeSwap func(*mockSpaRepo)
}

func newMockSpaRepo() *mockSpaRepo {
	return &mockSpaRepo{spas: make(map[string]domain.Spa)}
}

func (r *mockSpaRepo) Create(_ context.Context, spa domain.Spa) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spas[spa.ID] = spa
	return nil
}

func (r *mockSpaRepo) GetByID(_ context.Context, id string) (domain.Spa, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	spa, ok := r.spas[id]
	if !ok {
		return domain.Spa{}, domain.ErrSpaNotFound
	}
	return spa, nil
}

func (r *mockSpaRepo) List(_ context.Context, filter domain.ListFilter) ([]domain.Spa, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Spa
	for _, spa := range r.spas {
		if filter.Status != nil && spa.Status != *filter.Status {
			continue
		}
		out = append(out, spa)
	}
	return out, nil
}

func (r *mockSpaRepo) CompareAndSwapStatus(_ context.Context, id string, expected domain.Status, spa domain.Spa) (bool, error) {
	if r.beforeSwap != nil {
		r.beforeSwap(r)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.spas[id]
	if !ok {
		return false, domain.ErrSpaNotFound
	}
	if stored.Status != expected {
		return false, nil
	}
	r.spas[id] = spa
	return true, nil
}

// put seeds a spa directly, bypassing Create.
func (r *mockSpaRepo) put(spa domain.Spa) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spas[spa.ID] = spa
}

// mockPaymentRepo is an in-memory PaymentRepository. beforeSwap, when set,
// runs before each compare-and-swap so tests can interleave a racing admin.
type mockPaymentRepo struct {
	mu         sync.Mutex
	payments   map[string]domain.Payment
	beforeSwap func(*mockPaymentRepo)
}

func newMockPaymentRepo() *mockPaymentRepo {
	return &mockPaymentRepo{payments: make(map[string]domain.Payment)}
}

func (r *mockPaymentRepo) Create(_ context.Context, p domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments[p.ID] = p
	return nil
}

func (r *mockPaymentRepo) GetByID(_ context.Context, id string) (domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return p, nil
}

func (r *mockPaymentRepo) ListBySpa(_ context.Context, spaID string) ([]domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Payment
	for _, p := range r.payments {
		if p.SpaID == spaID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *mockPaymentRepo) Update(_ context.Context, p domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[p.ID]; !ok {
		return domain.ErrPaymentNotFound
	}
	r.payments[p.ID] = p
	return nil
}

func (r *mockPaymentRepo) CompareAndSwapState(_ context.Context, id string, expected domain.PaymentState, p domain.Payment) (bool, error) {
	if r.beforeSwap != nil {
		r.beforeSwap(r)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.payments[id]
	if !ok {
		return false, domain.ErrPaymentNotFound
	}
	if stored.State != expected {
		return false, nil
	}
	r.payments[id] = p
	return true, nil
}

// put seeds a payment directly, bypassing Create.
func (r *mockPaymentRepo) put(p domain.Payment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments[p.ID] = p
}

// recordSink captures dispatched effects for assertion.
type recordSink struct {
	mu     sync.Mutex
	notes  []domain.NotificationEffect
	audits []domain.AuditEffect
}

func (s *recordSink) Notify(_ context.Context, e domain.NotificationEffect) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, e)
	return nil
}

func (s *recordSink) Audit(_ context.Context, e domain.AuditEffect) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, e)
	return nil
}

// failingSink errors on every dispatch.
type failingSink struct {
	err error
}

func (s *failingSink) Notify(context.Context, domain.NotificationEffect) error { return s.err }
func (s *failingSink) Audit(context.Context, domain.AuditEffect) error         { return s.err }
