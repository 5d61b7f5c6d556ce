package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aspire-solar/billdesk/internal/platform/db"
)

const clearedPaymentConstraint = "payments_cleared_payment_id_key"

// PGRepository provides PostgreSQL backed persistence for ledger entries.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const paymentColumns = `id, employee_id, type, amount, payment_date, description, cleared_payment_id, created_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	if err := row.Scan(&p.ID, &p.EmployeeID, &p.Type, &p.Amount, &p.Date, &p.Description, &p.ClearedPaymentID, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// EmployeeName returns the employee's name or ErrEmployeeNotFound.
func (r *PGRepository) EmployeeName(ctx context.Context, employeeID string) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT name FROM employees WHERE id = $1`, employeeID).Scan(&name)
	if db.IsMissing(err) {
		return "", ErrEmployeeNotFound
	}
	if err != nil {
		return "", fmt.Errorf("ledger: employee: %w", err)
	}
	return name, nil
}

// Insert stores p and fills its id.
func (r *PGRepository) Insert(ctx context.Context, p *Payment) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO payments (employee_id, type, amount, payment_date, description, cleared_payment_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		p.EmployeeID, p.Type, p.Amount, p.Date, p.Description, p.ClearedPaymentID,
	).Scan(&p.ID, &p.CreatedAt)
	switch {
	case db.IsUniqueViolation(err, clearedPaymentConstraint):
		return ErrAlreadyCleared
	case db.IsForeignKeyViolation(err) && p.ClearedPaymentID != nil:
		return ErrNotFound
	case db.IsForeignKeyViolation(err), db.IsInvalidText(err):
		return ErrEmployeeNotFound
	case err != nil:
		return fmt.Errorf("ledger: insert: %w", err)
	}
	return nil
}

// Get loads a single entry.
func (r *PGRepository) Get(ctx context.Context, id string) (*Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if db.IsMissing(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: get: %w", err)
	}
	return p, nil
}

// ClearingFor looks up the clearing entry through the unique index.
func (r *PGRepository) ClearingFor(ctx context.Context, originID string) (*Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE cleared_payment_id = $1`, originID))
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: clearing for: %w", err)
	}
	return p, nil
}

// ListByEmployee returns entries oldest first.
func (r *PGRepository) ListByEmployee(ctx context.Context, employeeID string) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+paymentColumns+` FROM payments
		WHERE employee_id = $1 ORDER BY payment_date, created_at`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("ledger: list: %w", err)
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("ledger: scan: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Delete removes id; the foreign key cascades to its clearing entry.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if db.IsInvalidText(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("ledger: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
