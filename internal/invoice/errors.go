package invoice

import (
	"errors"
	"fmt"

	"github.com/aspire-solar/billdesk/internal/platform/httpx"
)

var (
	// ErrNotFound indicates the invoice does not exist.
	ErrNotFound = fmt.Errorf("invoice: %w", httpx.ErrNotFound)
	// ErrClientNotFound indicates the referenced client does not exist.
	ErrClientNotFound = fmt.Errorf("invoice: client %w", httpx.ErrNotFound)
	// ErrDuplicateNumber is raised by the store when an invoice number is
	// already taken.
	ErrDuplicateNumber = errors.New("invoice: duplicate invoice number")
	// ErrNumberExhausted means allocation kept colliding and gave up.
	ErrNumberExhausted = fmt.Errorf("invoice: could not allocate a unique number: %w", httpx.ErrConflict)
	// ErrDocumentMissing means the invoice has no attached PDF yet.
	ErrDocumentMissing = fmt.Errorf("invoice: document %w", httpx.ErrNotFound)
)
