package river

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/jmolas/spagate/internal/app"
	"github.com/jmolas/spagate/internal/domain"
)

// NotificationWorker delivers status-change notifications to the spa's
// primary contact. The real channel (email/SMS) is an external collaborator;
// for now it logs the delivery.
type NotificationWorker struct {
	river.WorkerDefaults[NotificationJobArgs]
}

// Work processes a single notification job.
func (w *NotificationWorker) Work(ctx context.Context, job *river.Job[NotificationJobArgs]) error {
	slog.InfoContext(ctx, "delivering notification",
		"spa_id", job.Args.SpaID,
		"recipient", job.Args.Recipient,
		"subject", job.Args.Subject,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}

// AuditRecorder is the slice of persistence the audit worker needs.
type AuditRecorder interface {
	Record(ctx context.Context, e domain.AuditEffect) error
}

// AuditWorker appends status changes to the persistent audit trail.
type AuditWorker struct {
	river.WorkerDefaults[AuditJobArgs]

	log AuditRecorder
}

// NewAuditWorker creates a worker writing to the given recorder.
func NewAuditWorker(log AuditRecorder) *AuditWorker {
	return &AuditWorker{log: log}
}

// Work persists a single audit entry. Returning the error lets River retry.
func (w *AuditWorker) Work(ctx context.Context, job *river.Job[AuditJobArgs]) error {
	return w.log.Record(ctx, domain.AuditEffect{
		SpaID:   job.Args.SpaID,
		Event:   domain.Event(job.Args.Event),
		From:    domain.Status(job.Args.FromStatus),
		To:      domain.Status(job.Args.ToStatus),
		ActorID: job.Args.ActorID,
		Reason:  job.Args.Reason,
		At:      job.Args.At,
	})
}

// SweepWorker runs the payment-lapse sweep. Scheduled periodically by the
// River client; also enqueued on demand by the ops endpoint.
type SweepWorker struct {
	river.WorkerDefaults[SweepJobArgs]

	sweeper *app.Sweeper
}

// NewSweepWorker creates a worker driving the given sweeper.
func NewSweepWorker(sweeper *app.Sweeper) *SweepWorker {
	return &SweepWorker{sweeper: sweeper}
}

// Work performs one sweep.
func (w *SweepWorker) Work(ctx context.Context, job *river.Job[SweepJobArgs]) error {
	applied, err := w.sweeper.Run(ctx)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "sweep complete",
		"downgraded", len(applied),
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}
