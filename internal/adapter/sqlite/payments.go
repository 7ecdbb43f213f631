package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmolas/spagate/internal/domain"
)

// Compile-time check: PaymentRepository implements domain.PaymentRepository.
var _ domain.PaymentRepository = (*PaymentRepository)(nil)

// PaymentRepository implements domain.PaymentRepository using SQLite.
// It shares the spa repository's connection and migrations.
type PaymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository wraps a migrated database connection.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p domain.Payment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (id, spa_id, plan, method, state, amount, slip_ref,
		                       reject_reason, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.SpaID, string(p.Plan), string(p.Method), string(p.State),
		p.Amount, p.SlipRef, p.RejectReason,
		p.CreatedAt.Format(timeFormat),
		p.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (domain.Payment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, spa_id, plan, method, state, amount, slip_ref, reject_reason, created_at, updated_at
		 FROM payments WHERE id = ?`, id,
	)

	var p domain.Payment
	var plan, method, state, createdAt, updatedAt string

	err := row.Scan(&p.ID, &p.SpaID, &plan, &method, &state, &p.Amount,
		&p.SlipRef, &p.RejectReason, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Payment{}, domain.ErrPaymentNotFound
		}
		return domain.Payment{}, fmt.Errorf("scanning payment: %w", err)
	}

	p.Plan = domain.Plan(plan)
	p.Method = domain.PaymentMethod(method)
	p.State = domain.PaymentState(state)
	p.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	p.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return p, nil
}

func (r *PaymentRepository) ListBySpa(ctx context.Context, spaID string) ([]domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, spa_id, plan, method, state, amount, slip_ref, reject_reason, created_at, updated_at
		 FROM payments WHERE spa_id = ? ORDER BY created_at DESC`, spaID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		var plan, method, state, createdAt, updatedAt string

		err := rows.Scan(&p.ID, &p.SpaID, &plan, &method, &state, &p.Amount,
			&p.SlipRef, &p.RejectReason, &createdAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning payment row: %w", err)
		}

		p.Plan = domain.Plan(plan)
		p.Method = domain.PaymentMethod(method)
		p.State = domain.PaymentState(state)
		p.CreatedAt, _ = time.Parse(timeFormat, createdAt)
		p.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

		payments = append(payments, p)
	}

	return payments, rows.Err()
}

func (r *PaymentRepository) Update(ctx context.Context, p domain.Payment) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE payments SET state = ?, slip_ref = ?, reject_reason = ?, updated_at = ?
		 WHERE id = ?`,
		string(p.State), p.SlipRef, p.RejectReason,
		p.UpdatedAt.UTC().Format(timeFormat), p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating payment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrPaymentNotFound
	}

	return nil
}

// CompareAndSwapState writes the payment iff the persisted state still equals
// expected. Guard and write share one UPDATE, mirroring the spa repository's
// status discipline, so two admins approving the same slip cannot both win.
func (r *PaymentRepository) CompareAndSwapState(ctx context.Context, id string, expected domain.PaymentState, p domain.Payment) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE payments SET state = ?, slip_ref = ?, reject_reason = ?, updated_at = ?
		 WHERE id = ? AND state = ?`,
		string(p.State), p.SlipRef, p.RejectReason,
		p.UpdatedAt.UTC().Format(timeFormat),
		id, string(expected),
	)
	if err != nil {
		return false, fmt.Errorf("updating payment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	if rows > 0 {
		return true, nil
	}

	// Guard failed: distinguish a missing row from a state mismatch.
	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM payments WHERE id = ?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, domain.ErrPaymentNotFound
	}
	if err != nil {
		return false, fmt.Errorf("checking payment existence: %w", err)
	}

	return false, nil
}
