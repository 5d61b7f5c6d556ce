package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository stores the settings row in PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const selectSQL = `
	SELECT company_name, wordmark_primary, wordmark_secondary, address_line1, address_line2,
		phone, email, gst_number, proprietor_name, bank_name, account_number, ifsc_code,
		branch, logo_file, stamp_file, updated_at
	FROM company_settings WHERE id = 1`

// Get loads the singleton row.
func (r *PGRepository) Get(ctx context.Context) (*Settings, error) {
	var s Settings
	err := r.pool.QueryRow(ctx, selectSQL).Scan(
		&s.CompanyName, &s.WordmarkPrimary, &s.WordmarkSecondary, &s.AddressLine1, &s.AddressLine2,
		&s.Phone, &s.Email, &s.GSTNumber, &s.ProprietorName, &s.BankName, &s.AccountNumber, &s.IFSCCode,
		&s.Branch, &s.LogoFile, &s.StampFile, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("settings: get: %w", err)
	}
	return &s, nil
}

// InsertIfAbsent writes defaults unless a row already exists. It reports
// whether a row was created.
func (r *PGRepository) InsertIfAbsent(ctx context.Context, s Settings) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO company_settings (
			id, company_name, wordmark_primary, wordmark_secondary, address_line1, address_line2,
			phone, email, gst_number, proprietor_name, bank_name, account_number, ifsc_code, branch
		) VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING`,
		s.CompanyName, s.WordmarkPrimary, s.WordmarkSecondary, s.AddressLine1, s.AddressLine2,
		s.Phone, s.Email, s.GSTNumber, s.ProprietorName, s.BankName, s.AccountNumber, s.IFSCCode, s.Branch,
	)
	if err != nil {
		return false, fmt.Errorf("settings: ensure: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Update overwrites the text fields.
func (r *PGRepository) Update(ctx context.Context, s *Settings) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE company_settings SET
			company_name = $1, wordmark_primary = $2, wordmark_secondary = $3,
			address_line1 = $4, address_line2 = $5, phone = $6, email = $7,
			gst_number = $8, proprietor_name = $9, bank_name = $10,
			account_number = $11, ifsc_code = $12, branch = $13, updated_at = NOW()
		WHERE id = 1
		RETURNING updated_at`,
		s.CompanyName, s.WordmarkPrimary, s.WordmarkSecondary, s.AddressLine1, s.AddressLine2,
		s.Phone, s.Email, s.GSTNumber, s.ProprietorName, s.BankName, s.AccountNumber, s.IFSCCode, s.Branch,
	).Scan(&s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("settings: update: %w", err)
	}
	return nil
}

// SetImage points the kind slot at fileName and returns the file it replaced.
func (r *PGRepository) SetImage(ctx context.Context, kind ImageKind, fileName string) (string, error) {
	column := "logo_file"
	if kind == ImageStamp {
		column = "stamp_file"
	}
	query := fmt.Sprintf(`
		UPDATE company_settings AS s SET %[1]s = $1, updated_at = NOW()
		FROM (SELECT %[1]s AS previous FROM company_settings WHERE id = 1 FOR UPDATE) AS old
		WHERE s.id = 1
		RETURNING old.previous`, column)
	var previous string
	err := r.pool.QueryRow(ctx, query, fileName).Scan(&previous)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("settings: set %s: %w", kind, err)
	}
	return previous, nil
}
