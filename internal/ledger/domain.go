// Package ledger records employee dues and advances and the entries that
// clear them.
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aspire-solar/billdesk/internal/platform/httpx"
)

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

// PaymentType classifies a ledger entry.
type PaymentType string

const (
	TypeDue           PaymentType = "DUE"
	TypeAdvance       PaymentType = "ADVANCE"
	TypeDueCleared    PaymentType = "DUE_CLEARED"
	TypeAdvanceRepaid PaymentType = "ADVANCE_REPAID"
)

// Valid reports whether t is a known type.
func (t PaymentType) Valid() bool {
	switch t {
	case TypeDue, TypeAdvance, TypeDueCleared, TypeAdvanceRepaid:
		return true
	}
	return false
}

// IsOrigin reports whether entries of type t can be cleared.
func (t PaymentType) IsOrigin() bool {
	return t == TypeDue || t == TypeAdvance
}

// ClearingType returns the type that clears an origin of type t.
func (t PaymentType) ClearingType() (PaymentType, bool) {
	switch t {
	case TypeDue:
		return TypeDueCleared, true
	case TypeAdvance:
		return TypeAdvanceRepaid, true
	}
	return "", false
}

var (
	// ErrNotFound indicates the payment does not exist.
	ErrNotFound = fmt.Errorf("ledger: payment %w", httpx.ErrNotFound)
	// ErrEmployeeNotFound indicates the employee does not exist.
	ErrEmployeeNotFound = fmt.Errorf("ledger: employee %w", httpx.ErrNotFound)
	// ErrNotClearable rejects clearing an entry that is itself a clearing.
	ErrNotClearable = fmt.Errorf("ledger: only DUE and ADVANCE entries can be cleared: %w", httpx.ErrConflict)
	// ErrAlreadyCleared rejects a second clearing of the same entry.
	ErrAlreadyCleared = fmt.Errorf("ledger: payment already cleared: %w", httpx.ErrConflict)
)

// Payment is one ledger entry.
type Payment struct {
	ID               string          `json:"id"`
	EmployeeID       string          `json:"employeeId"`
	Type             PaymentType     `json:"type"`
	Amount           decimal.Decimal `json:"amount"`
	Date             time.Time       `json:"date"`
	Description      string          `json:"description,omitempty"`
	ClearedPaymentID *string         `json:"clearedPaymentId,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// Entry is a payment annotated with its clearing state.
type Entry struct {
	Payment
	IsCleared         bool    `json:"isCleared"`
	ClearingPaymentID *string `json:"clearingPaymentId,omitempty"`
}

// Summary is the derived balance of an employee.
type Summary struct {
	EmployeeID  string          `json:"employeeId"`
	NetDues     decimal.Decimal `json:"netDues"`
	NetAdvances decimal.Decimal `json:"netAdvances"`
	// NetBalance is NetAdvances minus NetDues.
	NetBalance decimal.Decimal `json:"netBalance"`
	Entries    []Entry         `json:"entries"`
}

// Summarize derives balances and clearing flags from payments.
func Summarize(employeeID string, payments []Payment) Summary {
	clearedBy := make(map[string]string, len(payments))
	for _, p := range payments {
		if p.ClearedPaymentID != nil {
			clearedBy[*p.ClearedPaymentID] = p.ID
		}
	}

	s := Summary{
		EmployeeID:  employeeID,
		NetDues:     decimal.Zero,
		NetAdvances: decimal.Zero,
		Entries:     make([]Entry, 0, len(payments)),
	}
	for _, p := range payments {
		entry := Entry{Payment: p}
		if clearing, ok := clearedBy[p.ID]; ok && p.Type.IsOrigin() {
			entry.IsCleared = true
			id := clearing
			entry.ClearingPaymentID = &id
		}
		switch p.Type {
		case TypeDue:
			s.NetDues = s.NetDues.Add(p.Amount)
		case TypeDueCleared:
			s.NetDues = s.NetDues.Sub(p.Amount)
		case TypeAdvance:
			s.NetAdvances = s.NetAdvances.Add(p.Amount)
		case TypeAdvanceRepaid:
			s.NetAdvances = s.NetAdvances.Sub(p.Amount)
		}
		s.Entries = append(s.Entries, entry)
	}
	s.NetBalance = s.NetAdvances.Sub(s.NetDues)
	return s
}

// RecordRequest creates a DUE or ADVANCE.
type RecordRequest struct {
	EmployeeID  string          `json:"-"`
	Type        PaymentType     `json:"type" validate:"required,oneof=DUE ADVANCE"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	Date        string          `json:"date" validate:"required,datetime=2006-01-02"`
	Description string          `json:"description" validate:"max=500"`
}

// ClearRequest optionally overrides the clearing entry's date and text.
type ClearRequest struct {
	Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Description string `json:"description" validate:"max=500"`
}

// defaultClearingDescription references the origin's date.
func defaultClearingDescription(origin *Payment) string {
	date := origin.Date.Format("02 Jan 2006")
	if origin.Type == TypeAdvance {
		return "Repaid advance from " + date
	}
	return "Cleared due from " + date
}
