package attendance

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aspire-solar/billdesk/internal/platform/db"
)

// PGRepository provides PostgreSQL backed persistence for attendance.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Upsert relies on the (employee_id, month, year) unique constraint.
func (r *PGRepository) Upsert(ctx context.Context, rec *Record) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO attendance (employee_id, month, year, days_worked)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (employee_id, month, year) DO UPDATE
			SET days_worked = EXCLUDED.days_worked, updated_at = NOW()
		RETURNING id, updated_at`,
		rec.EmployeeID, rec.Month, rec.Year, rec.DaysWorked,
	).Scan(&rec.ID, &rec.UpdatedAt)
	if db.IsForeignKeyViolation(err) || db.IsInvalidText(err) {
		return ErrEmployeeNotFound
	}
	if err != nil {
		return fmt.Errorf("attendance: upsert: %w", err)
	}
	return nil
}

// List returns records newest month first.
func (r *PGRepository) List(ctx context.Context, employeeID string, year int) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, employee_id, month, year, days_worked, updated_at
		FROM attendance
		WHERE employee_id::text = $1 AND ($2 = 0 OR year = $2)
		ORDER BY year DESC, month DESC`, employeeID, year)
	if err != nil {
		return nil, fmt.Errorf("attendance: list: %w", err)
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.EmployeeID, &rec.Month, &rec.Year, &rec.DaysWorked, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("attendance: scan: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
