package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/jmolas/spagate/internal/domain"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// SpaRepository implements domain.SpaRepository using SQLite.
type SpaRepository struct {
	db *sql.DB
}

// New opens a SQLite database, runs migrations, and returns a ready repository.
func New(dataSourceName string) (*SpaRepository, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign keys (off by default in SQLite).
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return NewFromDB(db)
}

// NewFromDB wraps an existing database connection, runs migrations, and returns a ready repository.
// Use this when the *sql.DB has been pre-configured (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB) (*SpaRepository, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return &SpaRepository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *SpaRepository) Close() error {
	return r.db.Close()
}

// DB returns the underlying database connection for use by other adapters
// (payments, audit log, river).
func (r *SpaRepository) DB() *sql.DB {
	return r.db
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

const timeFormat = "2006-01-02T15:04:05Z"

// nullableTime formats an optional time for storage; nil stays NULL.
func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeFormat)
}

func (r *SpaRepository) Create(ctx context.Context, s domain.Spa) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO spas (id, name, owner_email, status, payment_due_date, payment_paid,
		                   reject_reason, blacklist_reason, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.OwnerEmail, string(s.Status),
		nullableTime(s.PaymentDueDate), s.PaymentPaid,
		s.RejectReason, s.BlacklistReason,
		s.CreatedAt.Format(timeFormat),
		s.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting spa: %w", err)
	}
	return nil
}

func (r *SpaRepository) GetByID(ctx context.Context, id string) (domain.Spa, error) {
	return r.scanSpa(r.db.QueryRowContext(ctx,
		`SELECT id, name, owner_email, status, payment_due_date, payment_paid,
		        reject_reason, blacklist_reason, created_at, updated_at
		 FROM spas WHERE id = ?`, id,
	))
}

func (r *SpaRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Spa, error) {
	query := `SELECT id, name, owner_email, status, payment_due_date, payment_paid,
	                 reject_reason, blacklist_reason, created_at, updated_at
	          FROM spas`
	var args []any

	if filter.Status != nil {
		query += ` WHERE status = ?`
		args = append(args, string(*filter.Status))
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing spas: %w", err)
	}
	defer rows.Close()

	var spas []domain.Spa
	for rows.Next() {
		s, err := r.scanSpaFromRows(rows)
		if err != nil {
			return nil, err
		}
		spas = append(spas, s)
	}

	return spas, rows.Err()
}

// CompareAndSwapStatus writes the spa iff the persisted status still equals
// expected. The guard and the write share one UPDATE statement, so a racing
// writer never produces a lost update: the loser's guard simply misses.
func (r *SpaRepository) CompareAndSwapStatus(ctx context.Context, id string, expected domain.Status, s domain.Spa) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE spas SET name = ?, owner_email = ?, status = ?, payment_due_date = ?,
		                 payment_paid = ?, reject_reason = ?, blacklist_reason = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		s.Name, s.OwnerEmail, string(s.Status),
		nullableTime(s.PaymentDueDate), s.PaymentPaid,
		s.RejectReason, s.BlacklistReason,
		s.UpdatedAt.UTC().Format(timeFormat),
		id, string(expected),
	)
	if err != nil {
		return false, fmt.Errorf("updating spa: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	if rows > 0 {
		return true, nil
	}

	// Guard failed: distinguish a missing row from a status mismatch.
	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM spas WHERE id = ?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, domain.ErrSpaNotFound
	}
	if err != nil {
		return false, fmt.Errorf("checking spa existence: %w", err)
	}

	return false, nil
}

// scanSpa scans a single row from QueryRow into a domain.Spa.
func (r *SpaRepository) scanSpa(row *sql.Row) (domain.Spa, error) {
	var s domain.Spa
	var status, createdAt, updatedAt string
	var dueDate sql.NullString

	err := row.Scan(&s.ID, &s.Name, &s.OwnerEmail, &status, &dueDate, &s.PaymentPaid,
		&s.RejectReason, &s.BlacklistReason, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Spa{}, domain.ErrSpaNotFound
		}
		return domain.Spa{}, fmt.Errorf("scanning spa: %w", err)
	}

	return r.hydrate(s, status, dueDate, createdAt, updatedAt), nil
}

// scanSpaFromRows scans a single row from Rows (used in List).
func (r *SpaRepository) scanSpaFromRows(rows *sql.Rows) (domain.Spa, error) {
	var s domain.Spa
	var status, createdAt, updatedAt string
	var dueDate sql.NullString

	err := rows.Scan(&s.ID, &s.Name, &s.OwnerEmail, &status, &dueDate, &s.PaymentPaid,
		&s.RejectReason, &s.BlacklistReason, &createdAt, &updatedAt)
	if err != nil {
		return domain.Spa{}, fmt.Errorf("scanning spa row: %w", err)
	}

	return r.hydrate(s, status, dueDate, createdAt, updatedAt), nil
}

func (r *SpaRepository) hydrate(s domain.Spa, status string, dueDate sql.NullString, createdAt, updatedAt string) domain.Spa {
	s.Status = domain.Status(status)
	if dueDate.Valid {
		t, err := time.Parse(timeFormat, dueDate.String)
		if err == nil {
			s.PaymentDueDate = &t
		}
	}
	s.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	s.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)
	return s
}
