package river

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/riverqueue/river"

	"github.com/jmolas/spagate/internal/domain"
)

// Compile-time check: Publisher implements domain.EffectSink.
var _ domain.EffectSink = (*Publisher)(nil)

// NotificationJobArgs carries a notification effect into the queue. It
// snapshots everything the worker needs, so delivery never re-reads the spa.
type NotificationJobArgs struct {
	SpaID     string    `json:"spa_id"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	At        time.Time `json:"at"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (NotificationJobArgs) Kind() string { return "effect.notification" }

// AuditJobArgs carries an audit effect into the queue.
type AuditJobArgs struct {
	SpaID      string    `json:"spa_id"`
	Event      string    `json:"event"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ActorID    string    `json:"actor_id"`
	Reason     string    `json:"reason"`
	At         time.Time `json:"at"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (AuditJobArgs) Kind() string { return "effect.audit" }

// SweepJobArgs triggers one payment-lapse sweep. No payload: the sweep reads
// its own state.
type SweepJobArgs struct{}

// Kind returns the unique job type identifier used by River's job routing.
func (SweepJobArgs) Kind() string { return "lifecycle.sweep" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EffectSink by enqueuing River jobs. Handing
// effects to the queue keeps dispatch asynchronous: a slow notification
// channel never delays the transition that produced it.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Notify enqueues a notification effect.
func (p *Publisher) Notify(ctx context.Context, e domain.NotificationEffect) error {
	_, err := p.client.Insert(ctx, NotificationJobArgs{
		SpaID:     e.SpaID,
		Recipient: e.Recipient,
		Subject:   e.Subject,
		Body:      e.Body,
		At:        e.At,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing notification job: %w", err)
	}
	return nil
}

// TriggerSweep enqueues an on-demand payment-lapse sweep, the same job the
// periodic schedule inserts.
func (p *Publisher) TriggerSweep(ctx context.Context) error {
	_, err := p.client.Insert(ctx, SweepJobArgs{}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing sweep job: %w", err)
	}
	return nil
}

// Audit enqueues an audit effect.
func (p *Publisher) Audit(ctx context.Context, e domain.AuditEffect) error {
	_, err := p.client.Insert(ctx, AuditJobArgs{
		SpaID:      e.SpaID,
		Event:      string(e.Event),
		FromStatus: string(e.From),
		ToStatus:   string(e.To),
		ActorID:    e.ActorID,
		Reason:     e.Reason,
		At:         e.At,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing audit job: %w", err)
	}
	return nil
}
