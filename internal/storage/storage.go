// Package storage keeps uploaded and generated files.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/gabriel-vasile/mimetype"

	"github.com/aspire-solar/billdesk/internal/platform/httpx"
)

var (
	// ErrTooLarge rejects uploads above the configured limit.
	ErrTooLarge = fmt.Errorf("storage: file too large: %w", httpx.ErrValidation)
	// ErrMimeNotAllowed rejects uploads whose detected type is not whitelisted.
	ErrMimeNotAllowed = fmt.Errorf("storage: file type not allowed: %w", httpx.ErrValidation)
	// ErrEmpty rejects zero byte uploads.
	ErrEmpty = fmt.Errorf("storage: empty file: %w", httpx.ErrValidation)
	// ErrNotFound is returned for unknown file names.
	ErrNotFound = fmt.Errorf("storage: %w", httpx.ErrNotFound)
	// ErrStorage wraps backend failures.
	ErrStorage = fmt.Errorf("storage: backend failure: %w", httpx.ErrUpstream)
)

// Allowed MIME type sets.
var (
	PDFTypes      = []string{"application/pdf"}
	ImageTypes    = []string{"image/png", "image/jpeg"}
	DocumentTypes = []string{"application/pdf", "image/png", "image/jpeg"}
)

// Object describes a stored file.
type Object struct {
	FileName string `json:"fileName"`
	URL      string `json:"fileUrl"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// Store is the file storage contract used by the domain packages.
type Store interface {
	// Upload validates data against the size limit and the allowed MIME
	// types, then persists it under folder.
	Upload(ctx context.Context, data []byte, folder string, allowed []string) (Object, error)
	// Open reads a stored file back.
	Open(ctx context.Context, fileName string) ([]byte, error)
	// Delete removes a stored file. Deleting a missing file is not an error.
	Delete(ctx context.Context, fileName string) error
}

// Remover schedules or performs removal of a stored file.
type Remover interface {
	Remove(ctx context.Context, fileName string) error
}

// Detect sniffs data and checks it against allowed. An empty allowed list
// accepts any type.
func Detect(data []byte, allowed []string) (*mimetype.MIME, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	detected := mimetype.Detect(data)
	if len(allowed) == 0 {
		return detected, nil
	}
	for _, want := range allowed {
		if detected.Is(want) {
			return detected, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrMimeNotAllowed, detected.String())
}

// IsNotFound reports whether err means the file does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
