package fiscal

import (
	"context"
	"fmt"
)

// SequenceStore is the persistence needed to number invoices.
type SequenceStore interface {
	// LastSequence returns the highest sequence already reserved or issued
	// for the year without reserving anything. Issued numbers count even when
	// no reservation was recorded for them, such as imported invoices.
	LastSequence(ctx context.Context, fy string) (int, error)
	// ReserveSequence atomically reserves and returns LastSequence+1 for the
	// year. Implementations must never hand out the same value twice.
	ReserveSequence(ctx context.Context, fy string) (int, error)
}

// Allocator hands out invoice numbers for a financial year.
type Allocator struct {
	store SequenceStore
}

// NewAllocator builds an Allocator on top of store.
func NewAllocator(store SequenceStore) *Allocator {
	return &Allocator{store: store}
}

// Next reserves the next invoice number for fy.
func (a *Allocator) Next(ctx context.Context, fy string) (string, error) {
	if err := ValidateFinancialYear(fy); err != nil {
		return "", err
	}
	seq, err := a.store.ReserveSequence(ctx, fy)
	if err != nil {
		return "", fmt.Errorf("fiscal: reserve sequence: %w", err)
	}
	return FormatInvoiceNumber(fy, seq), nil
}

// Peek previews the number the next invoice would receive without reserving
// it.
func (a *Allocator) Peek(ctx context.Context, fy string) (string, error) {
	if err := ValidateFinancialYear(fy); err != nil {
		return "", err
	}
	last, err := a.store.LastSequence(ctx, fy)
	if err != nil {
		return "", fmt.Errorf("fiscal: last sequence: %w", err)
	}
	return FormatInvoiceNumber(fy, last+1), nil
}
