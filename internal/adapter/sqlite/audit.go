package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmolas/spagate/internal/domain"
)

// AuditLog persists audit effects. The river audit worker writes here; the
// engine itself only emits the effect and never touches this table.
type AuditLog struct {
	db *sql.DB
}

// NewAuditLog wraps a migrated database connection.
func NewAuditLog(db *sql.DB) *AuditLog {
	return &AuditLog{db: db}
}

// Record appends one audit entry.
func (l *AuditLog) Record(ctx context.Context, e domain.AuditEffect) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO audit_log (spa_id, event, from_status, to_status, actor_id, reason, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.SpaID, string(e.Event), string(e.From), string(e.To),
		e.ActorID, e.Reason, e.At.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

// ListBySpa returns a spa's audit trail, oldest first.
func (l *AuditLog) ListBySpa(ctx context.Context, spaID string) ([]domain.AuditEffect, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT spa_id, event, from_status, to_status, actor_id, reason, occurred_at
		 FROM audit_log WHERE spa_id = ? ORDER BY id ASC`, spaID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEffect
	for rows.Next() {
		var e domain.AuditEffect
		var event, from, to, occurredAt string

		if err := rows.Scan(&e.SpaID, &event, &from, &to, &e.ActorID, &e.Reason, &occurredAt); err != nil {
			return nil, fmt.Errorf("scanning audit row: %w", err)
		}

		e.Event = domain.Event(event)
		e.From = domain.Status(from)
		e.To = domain.Status(to)
		e.At, _ = time.Parse(timeFormat, occurredAt)

		entries = append(entries, e)
	}

	return entries, rows.Err()
}
