package employees

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aspire-solar/billdesk/internal/platform/db"
)

const slugConstraint = "employees_unique_slug_key"

// PGRepository provides PostgreSQL backed persistence for employees.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const employeeColumns = `id, name, phone, email, address, designation, join_date, unique_slug, created_at, updated_at`

func scanEmployee(row pgx.Row) (*Employee, error) {
	var (
		e        Employee
		joinDate pgtype.Date
	)
	if err := row.Scan(&e.ID, &e.Name, &e.Phone, &e.Email, &e.Address, &e.Designation, &joinDate,
		&e.UniqueSlug, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if joinDate.Valid {
		d := joinDate.Time
		e.JoinDate = &d
	}
	return &e, nil
}

func dateParam(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: *t, Valid: true}
}

// Create inserts e and fills its id and timestamps.
func (r *PGRepository) Create(ctx context.Context, e *Employee) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO employees (name, phone, email, address, designation, join_date, unique_slug)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		e.Name, e.Phone, e.Email, e.Address, e.Designation, dateParam(e.JoinDate), e.UniqueSlug,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if db.IsUniqueViolation(err, slugConstraint) {
		return ErrSlugTaken
	}
	if err != nil {
		return fmt.Errorf("employees: create: %w", err)
	}
	return nil
}

func (r *PGRepository) getBy(ctx context.Context, column, value string) (*Employee, error) {
	e, err := scanEmployee(r.pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE `+column+` = $1`, value))
	if db.IsMissing(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("employees: get: %w", err)
	}
	return e, nil
}

// Get loads one employee.
func (r *PGRepository) Get(ctx context.Context, id string) (*Employee, error) {
	return r.getBy(ctx, "id", id)
}

// GetBySlug loads the employee owning slug.
func (r *PGRepository) GetBySlug(ctx context.Context, slug string) (*Employee, error) {
	return r.getBy(ctx, "unique_slug", slug)
}

// List returns a page of employees ordered by name.
func (r *PGRepository) List(ctx context.Context, limit, offset int) ([]Employee, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+employeeColumns+` FROM employees
		ORDER BY name, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("employees: list: %w", err)
	}
	defer rows.Close()
	var out []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("employees: scan: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Update rewrites an employee's details.
func (r *PGRepository) Update(ctx context.Context, e *Employee) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE employees SET name = $2, phone = $3, email = $4, address = $5, designation = $6,
			join_date = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		e.ID, e.Name, e.Phone, e.Email, e.Address, e.Designation, dateParam(e.JoinDate),
	).Scan(&e.UpdatedAt)
	if db.IsNoRows(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("employees: update: %w", err)
	}
	return nil
}

// DeleteMany removes employees in one transaction. Payments, attendance and
// document rows cascade; the document file names are returned.
func (r *PGRepository) DeleteMany(ctx context.Context, ids []string) (int, []string, error) {
	var (
		deleted int
		files   []string
	)
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT file_name FROM employee_documents WHERE employee_id::text = ANY($1)`, ids)
		if err != nil {
			return err
		}
		files, err = pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM employees WHERE id::text = ANY($1)`, ids)
		if err != nil {
			return err
		}
		deleted = int(tag.RowsAffected())
		return nil
	})
	if err != nil {
		return 0, nil, fmt.Errorf("employees: delete: %w", err)
	}
	return deleted, files, nil
}

// InsertDocument stores d and fills its id.
func (r *PGRepository) InsertDocument(ctx context.Context, d *Document) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO employee_documents (employee_id, title, file_name, file_url, mime_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		d.EmployeeID, d.Title, d.FileName, d.FileURL, d.MimeType, d.Size,
	).Scan(&d.ID, &d.CreatedAt)
	if db.IsForeignKeyViolation(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("employees: insert document: %w", err)
	}
	return nil
}

// ListDocuments returns an employee's documents, newest first.
func (r *PGRepository) ListDocuments(ctx context.Context, employeeID string) ([]Document, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, employee_id, title, file_name, file_url, mime_type, size_bytes, created_at
		FROM employee_documents WHERE employee_id = $1 ORDER BY created_at DESC`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("employees: list documents: %w", err)
	}
	defer rows.Close()
	var out []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.EmployeeID, &d.Title, &d.FileName, &d.FileURL, &d.MimeType, &d.Size, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("employees: scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteDocument removes a document row and returns its file name.
func (r *PGRepository) DeleteDocument(ctx context.Context, employeeID, documentID string) (string, error) {
	var fileName string
	err := r.pool.QueryRow(ctx, `
		DELETE FROM employee_documents WHERE id = $1 AND employee_id = $2
		RETURNING file_name`, documentID, employeeID).Scan(&fileName)
	if db.IsMissing(err) {
		return "", ErrDocumentNotFound
	}
	if err != nil {
		return "", fmt.Errorf("employees: delete document: %w", err)
	}
	return fileName, nil
}
