package challans

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aspire-solar/billdesk/internal/platform/db"
)

// PGRepository provides PostgreSQL backed persistence for challans.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// The row is locked through the subquery, so prior.file_name is the value this
// statement overwrote even when another upload committed first.
const replaceSQL = `
	UPDATE pf_esi_challans c
	SET file_name = $4, file_url = $5, uploaded_by = $6, updated_at = NOW()
	FROM (
		SELECT id, file_name FROM pf_esi_challans
		WHERE month = $1 AND year = $2 AND type = $3
		FOR UPDATE
	) prior
	WHERE c.id = prior.id
	RETURNING c.id, c.created_at, c.updated_at, prior.file_name`

const insertSQL = `
	INSERT INTO pf_esi_challans (type, month, year, file_name, file_url, uploaded_by)
	VALUES ($3, $1, $2, $4, $5, $6)
	ON CONFLICT (month, year, type) DO NOTHING
	RETURNING id, created_at, updated_at`

// maxUpsertAttempts bounds the replace/insert loop. A lost insert race turns
// into a replace on the next pass.
const maxUpsertAttempts = 3

// Upsert replaces the (month, year, type) row or inserts it. The returned
// file name belongs to the row this call overwrote.
func (r *PGRepository) Upsert(ctx context.Context, c *Challan) (string, error) {
	args := []any{c.Month, c.Year, c.Type, c.FileName, c.FileURL, c.UploadedBy}
	for range maxUpsertAttempts {
		var previous string
		err := r.pool.QueryRow(ctx, replaceSQL, args...).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt, &previous)
		if err == nil {
			return previous, nil
		}
		if !db.IsNoRows(err) {
			return "", fmt.Errorf("challans: replace: %w", err)
		}
		err = r.pool.QueryRow(ctx, insertSQL, args...).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
		if err == nil {
			return "", nil
		}
		if !db.IsNoRows(err) {
			return "", fmt.Errorf("challans: insert: %w", err)
		}
	}
	return "", fmt.Errorf("challans: upsert: period %d/%d %s kept changing", c.Month, c.Year, c.Type)
}

// List returns challans matching filter, newest period first.
func (r *PGRepository) List(ctx context.Context, filter Filter) ([]Challan, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, type, month, year, file_name, file_url, uploaded_by, created_at, updated_at
		FROM pf_esi_challans
		WHERE ($1 = '' OR type = $1) AND ($2 = 0 OR year = $2)
		ORDER BY year DESC, month DESC, type`, string(filter.Type), filter.Year)
	if err != nil {
		return nil, fmt.Errorf("challans: list: %w", err)
	}
	defer rows.Close()
	var out []Challan
	for rows.Next() {
		var c Challan
		if err := rows.Scan(&c.ID, &c.Type, &c.Month, &c.Year, &c.FileName, &c.FileURL, &c.UploadedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("challans: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete removes a challan and returns its file name.
func (r *PGRepository) Delete(ctx context.Context, id string) (string, error) {
	var fileName string
	err := r.pool.QueryRow(ctx, `DELETE FROM pf_esi_challans WHERE id = $1 RETURNING file_name`, id).Scan(&fileName)
	if db.IsMissing(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("challans: delete: %w", err)
	}
	return fileName, nil
}
