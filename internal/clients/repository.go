package clients

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/aspire-solar/billdesk/internal/platform/db"
)

// PGRepository provides PostgreSQL backed persistence for clients.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const clientColumns = `id, name, address_line1, address_line2, city, state, pin, gst_number,
	pan_number, contact_person, phone, email, created_at, updated_at`

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.Name, &c.AddressLine1, &c.AddressLine2, &c.City, &c.State, &c.Pin, &c.GSTNumber,
		&c.PANNumber, &c.ContactPerson, &c.Phone, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts c and fills its id and timestamps.
func (r *PGRepository) Create(ctx context.Context, c *Client) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO clients (name, address_line1, address_line2, city, state, pin, gst_number,
			pan_number, contact_person, phone, email)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`,
		c.Name, c.AddressLine1, c.AddressLine2, c.City, c.State, c.Pin, c.GSTNumber,
		c.PANNumber, c.ContactPerson, c.Phone, c.Email,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("clients: create: %w", err)
	}
	return nil
}

// Get loads one client.
func (r *PGRepository) Get(ctx context.Context, id string) (*Client, error) {
	c, err := scanClient(r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if db.IsMissing(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("clients: get: %w", err)
	}
	return c, nil
}

// List returns every client ordered by name.
func (r *PGRepository) List(ctx context.Context) ([]Client, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("clients: list: %w", err)
	}
	defer rows.Close()
	var out []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("clients: scan: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Update rewrites the client's details.
func (r *PGRepository) Update(ctx context.Context, c *Client) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE clients SET name = $2, address_line1 = $3, address_line2 = $4, city = $5, state = $6,
			pin = $7, gst_number = $8, pan_number = $9, contact_person = $10, phone = $11, email = $12,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		c.ID, c.Name, c.AddressLine1, c.AddressLine2, c.City, c.State, c.Pin, c.GSTNumber,
		c.PANNumber, c.ContactPerson, c.Phone, c.Email,
	).Scan(&c.UpdatedAt)
	if db.IsNoRows(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("clients: update: %w", err)
	}
	return nil
}

// Delete removes a client. Payments cascade, invoices are unlinked.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if db.IsInvalidText(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("clients: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertPayment stores p and fills its id.
func (r *PGRepository) InsertPayment(ctx context.Context, p *Payment) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO client_payments (client_id, amount, payment_date, mode, reference, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		p.ClientID, p.Amount, p.Date, p.Mode, p.Reference, p.Notes,
	).Scan(&p.ID, &p.CreatedAt)
	if db.IsForeignKeyViolation(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("clients: insert payment: %w", err)
	}
	return nil
}

// ListPayments returns a client's payments newest first.
func (r *PGRepository) ListPayments(ctx context.Context, clientID string) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, client_id, amount, payment_date, mode, reference, notes, created_at
		FROM client_payments WHERE client_id = $1
		ORDER BY payment_date DESC, created_at DESC`, clientID)
	if err != nil {
		return nil, fmt.Errorf("clients: list payments: %w", err)
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.ClientID, &p.Amount, &p.Date, &p.Mode, &p.Reference, &p.Notes, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("clients: scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Invoices without a client id are attributed by exact client name. When the
// name is shared, the earliest created client owns the invoice; see NameOwner.
const invoiceTotalsSQL = `
	SELECT owner, SUM(grand_total) FROM (
		SELECT COALESCE(i.client_id, named.id)::text AS owner, i.grand_total
		FROM invoices i
		LEFT JOIN LATERAL (
			SELECT c.id FROM clients c
			WHERE i.client_id IS NULL AND i.client_name <> '' AND c.name = i.client_name
			ORDER BY c.created_at, c.id::text
			LIMIT 1
		) named ON true
	) attributed
	WHERE owner IS NOT NULL AND ($1 = '' OR owner = $1)
	GROUP BY owner`

const paymentTotalsSQL = `
	SELECT client_id::text, SUM(amount) FROM client_payments
	WHERE $1 = '' OR client_id::text = $1
	GROUP BY client_id`

// InvoiceTotals sums invoice grand totals per client.
func (r *PGRepository) InvoiceTotals(ctx context.Context, clientID string) (map[string]decimal.Decimal, error) {
	return r.totals(ctx, invoiceTotalsSQL, clientID)
}

// PaymentTotals sums payments per client.
func (r *PGRepository) PaymentTotals(ctx context.Context, clientID string) (map[string]decimal.Decimal, error) {
	return r.totals(ctx, paymentTotalsSQL, clientID)
}

func (r *PGRepository) totals(ctx context.Context, query, clientID string) (map[string]decimal.Decimal, error) {
	rows, err := r.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("clients: totals: %w", err)
	}
	defer rows.Close()
	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var (
			id  string
			sum decimal.Decimal
		)
		if err := rows.Scan(&id, &sum); err != nil {
			return nil, fmt.Errorf("clients: scan totals: %w", err)
		}
		out[id] = sum
	}
	return out, rows.Err()
}
