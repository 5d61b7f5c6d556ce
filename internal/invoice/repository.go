package invoice

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aspire-solar/billdesk/internal/platform/db"
)

const invoiceNumberConstraint = "invoices_invoice_number_key"

// PGRepository provides PostgreSQL backed persistence for invoices.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx runs fn in a ReadCommitted transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxOptions(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// issuedSequenceSQL is the highest sequence among stored invoice numbers of
// a financial year. Numbers that do not end in digits are ignored.
const issuedSequenceSQL = `
	SELECT COALESCE(MAX(split_part(invoice_number, '/', 3)::int), 0)
	FROM invoices
	WHERE financial_year = $1 AND split_part(invoice_number, '/', 3) ~ '^[0-9]+$'`

const lastSequenceSQL = `
	SELECT GREATEST(
		COALESCE((SELECT last_value FROM invoice_sequences WHERE financial_year = $1), 0),
		(` + issuedSequenceSQL + `))`

const reserveSequenceSQL = `
	INSERT INTO invoice_sequences (financial_year, last_value)
	VALUES ($1, (` + issuedSequenceSQL + `) + 1)
	ON CONFLICT (financial_year) DO UPDATE
		SET last_value = GREATEST(invoice_sequences.last_value, EXCLUDED.last_value - 1) + 1
	RETURNING last_value`

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func lastSequence(ctx context.Context, q rowQuerier, fy string) (int, error) {
	var seq int
	if err := q.QueryRow(ctx, lastSequenceSQL, fy).Scan(&seq); err != nil {
		return 0, fmt.Errorf("invoice: last sequence: %w", err)
	}
	return seq, nil
}

func reserveSequence(ctx context.Context, q rowQuerier, fy string) (int, error) {
	var seq int
	if err := q.QueryRow(ctx, reserveSequenceSQL, fy).Scan(&seq); err != nil {
		return 0, fmt.Errorf("invoice: reserve sequence: %w", err)
	}
	return seq, nil
}

// LastSequence reads the highest reserved or issued sequence for fy.
func (r *PGRepository) LastSequence(ctx context.Context, fy string) (int, error) {
	return lastSequence(ctx, r.pool, fy)
}

// ReserveSequence reserves the next sequence outside any caller transaction.
func (r *PGRepository) ReserveSequence(ctx context.Context, fy string) (int, error) {
	return reserveSequence(ctx, r.pool, fy)
}

func (t *txRepo) LastSequence(ctx context.Context, fy string) (int, error) {
	return lastSequence(ctx, t.tx, fy)
}

// ReserveSequence is seeded from the numbers already stored, so a retry
// after a rolled-back collision sees the committed winner and moves past it.
func (t *txRepo) ReserveSequence(ctx context.Context, fy string) (int, error) {
	return reserveSequence(ctx, t.tx, fy)
}

// Insert stores the invoice and its line items. The caller's transaction
// makes both visible together.
func (t *txRepo) Insert(ctx context.Context, inv *Invoice) error {
	const query = `
		INSERT INTO invoices (
			client_id, client_name, invoice_number, financial_year, invoice_date,
			work_order_reference, work_order_date,
			company_name, address_line1, address_line2, city, state, pin, gst_number,
			total_basic_amount, cgst_percentage, cgst_amount, sgst_percentage, sgst_amount,
			grand_total, amount_in_words, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		RETURNING id, created_at, updated_at`

	var woDate pgtype.Date
	if inv.WorkOrderDate != nil {
		woDate = pgtype.Date{Time: *inv.WorkOrderDate, Valid: true}
	}
	c := inv.Customer
	err := t.tx.QueryRow(ctx, query,
		inv.ClientID, inv.ClientName, inv.InvoiceNumber, inv.FinancialYear, inv.InvoiceDate,
		inv.WorkOrderReference, woDate,
		c.CompanyName, c.AddressLine1, c.AddressLine2, c.City, c.State, c.Pin, c.GSTNumber,
		inv.TotalBasicAmount, inv.CGSTPercentage, inv.CGSTAmount, inv.SGSTPercentage, inv.SGSTAmount,
		inv.GrandTotal, inv.AmountInWords, inv.CreatedBy,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if db.IsUniqueViolation(err, invoiceNumberConstraint) {
		return fmt.Errorf("%w: %s", ErrDuplicateNumber, inv.InvoiceNumber)
	}
	if db.IsForeignKeyViolation(err) {
		return ErrClientNotFound
	}
	if err != nil {
		return fmt.Errorf("invoice: insert: %w", err)
	}

	const lineQuery = `
		INSERT INTO invoice_line_items (
			invoice_id, serial_number, description, hsn_sac_code, rate, quantity, unit, amount
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	for i := range inv.LineItems {
		line := &inv.LineItems[i]
		if err := t.tx.QueryRow(ctx, lineQuery,
			inv.ID, line.SerialNumber, line.Description, line.HSNSACCode,
			line.Rate, line.Quantity, line.Unit, line.Amount,
		).Scan(&line.ID); err != nil {
			return fmt.Errorf("invoice: insert line %d: %w", line.SerialNumber, err)
		}
	}
	return nil
}

const selectInvoiceColumns = `
	SELECT id, client_id, client_name, invoice_number, financial_year, invoice_date,
		work_order_reference, work_order_date,
		company_name, address_line1, address_line2, city, state, pin, gst_number,
		total_basic_amount, cgst_percentage, cgst_amount, sgst_percentage, sgst_amount,
		grand_total, amount_in_words, file_name, file_url, created_by, created_at, updated_at
	FROM invoices`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var woDate pgtype.Date
	c := &inv.Customer
	err := row.Scan(
		&inv.ID, &inv.ClientID, &inv.ClientName, &inv.InvoiceNumber, &inv.FinancialYear, &inv.InvoiceDate,
		&inv.WorkOrderReference, &woDate,
		&c.CompanyName, &c.AddressLine1, &c.AddressLine2, &c.City, &c.State, &c.Pin, &c.GSTNumber,
		&inv.TotalBasicAmount, &inv.CGSTPercentage, &inv.CGSTAmount, &inv.SGSTPercentage, &inv.SGSTAmount,
		&inv.GrandTotal, &inv.AmountInWords, &inv.FileName, &inv.FileURL, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if woDate.Valid {
		d := woDate.Time
		inv.WorkOrderDate = &d
	}
	return &inv, nil
}

// Get loads an invoice with its line items.
func (r *PGRepository) Get(ctx context.Context, id string) (*Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, selectInvoiceColumns+` WHERE id = $1`, id))
	if db.IsMissing(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invoice: get: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, serial_number, description, hsn_sac_code, rate, quantity, unit, amount
		FROM invoice_line_items WHERE invoice_id = $1 ORDER BY serial_number`, id)
	if err != nil {
		return nil, fmt.Errorf("invoice: list lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var line LineItem
		if err := rows.Scan(&line.ID, &line.SerialNumber, &line.Description, &line.HSNSACCode,
			&line.Rate, &line.Quantity, &line.Unit, &line.Amount); err != nil {
			return nil, fmt.Errorf("invoice: scan line: %w", err)
		}
		inv.LineItems = append(inv.LineItems, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("invoice: list lines: %w", err)
	}
	return inv, nil
}

// List returns invoices without line items, newest first.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	var (
		where []string
		args  []any
	)
	if filter.ClientID != "" {
		args = append(args, filter.ClientID)
		where = append(where, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if filter.FinancialYear != "" {
		args = append(args, filter.FinancialYear)
		where = append(where, fmt.Sprintf("financial_year = $%d", len(args)))
	}
	if filter.MissingDocument {
		where = append(where, "COALESCE(file_name, '') = ''")
	}
	query := selectInvoiceColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit, max(filter.Offset, 0))
	query += fmt.Sprintf(" ORDER BY invoice_date DESC, invoice_number DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("invoice: list: %w", err)
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("invoice: scan: %w", err)
		}
		out = append(out, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("invoice: list: %w", err)
	}
	return out, nil
}

// AttachDocument records the stored PDF for an invoice.
func (r *PGRepository) AttachDocument(ctx context.Context, id, fileName, fileURL string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE invoices SET file_name = $2, file_url = $3, updated_at = NOW() WHERE id = $1`,
		id, fileName, fileURL)
	if db.IsInvalidText(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("invoice: attach document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the invoice and returns the file name it referenced.
func (r *PGRepository) Delete(ctx context.Context, id string) (string, error) {
	var fileName string
	err := r.pool.QueryRow(ctx, `DELETE FROM invoices WHERE id = $1 RETURNING file_name`, id).Scan(&fileName)
	if db.IsMissing(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("invoice: delete: %w", err)
	}
	return fileName, nil
}

// ClientName resolves the display name of a client.
func (r *PGRepository) ClientName(ctx context.Context, clientID string) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT name FROM clients WHERE id = $1`, clientID).Scan(&name)
	if db.IsMissing(err) {
		return "", ErrClientNotFound
	}
	if err != nil {
		return "", fmt.Errorf("invoice: client name: %w", err)
	}
	return name, nil
}
