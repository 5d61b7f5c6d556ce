package ledger

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aspire-solar/billdesk/internal/observability"
	"github.com/aspire-solar/billdesk/internal/shared"
)

// Repository defines data access for ledger entries.
type Repository interface {
	EmployeeName(ctx context.Context, employeeID string) (string, error)
	Insert(ctx context.Context, p *Payment) error
	Get(ctx context.Context, id string) (*Payment, error)
	// ClearingFor returns the entry clearing originID, or nil.
	ClearingFor(ctx context.Context, originID string) (*Payment, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]Payment, error)
	// Delete removes id. A clearing entry pointing at it goes with it.
	Delete(ctx context.Context, id string) error
}

// Service implements the due and advance state machine.
type Service struct {
	repo      Repository
	metrics   *observability.Metrics
	logger    *slog.Logger
	now       func() time.Time
	validator *validator.Validate
}

// NewService builds Service instance.
func NewService(repo Repository, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, metrics: metrics, logger: logger, now: time.Now, validator: shared.NewValidator()}
}

// Record adds a DUE or ADVANCE for an existing employee.
func (s *Service) Record(ctx context.Context, req RecordRequest) (*Payment, error) {
	req.Description = strings.TrimSpace(req.Description)
	if err := shared.ValidateStruct(s.validator, req); err != nil {
		return nil, err
	}
	if _, err := s.repo.EmployeeName(ctx, req.EmployeeID); err != nil {
		return nil, err
	}
	date, err := time.Parse(DateLayout, req.Date)
	if err != nil {
		return nil, err
	}
	p := &Payment{
		EmployeeID:  req.EmployeeID,
		Type:        req.Type,
		Amount:      req.Amount.Round(2),
		Date:        date,
		Description: req.Description,
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		return nil, err
	}
	s.metrics.LedgerEntry(string(p.Type))
	return p, nil
}

// Clear settles a DUE or ADVANCE with a matching DUE_CLEARED or
// ADVANCE_REPAID entry of the same amount.
func (s *Service) Clear(ctx context.Context, paymentID string, req ClearRequest) (*Payment, error) {
	req.Description = strings.TrimSpace(req.Description)
	if err := shared.ValidateStruct(s.validator, req); err != nil {
		return nil, err
	}
	origin, err := s.repo.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	clearingType, ok := origin.Type.ClearingType()
	if !ok {
		return nil, ErrNotClearable
	}
	existing, err := s.repo.ClearingFor(ctx, origin.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyCleared
	}

	date := s.today()
	if req.Date != "" {
		if date, err = time.Parse(DateLayout, req.Date); err != nil {
			return nil, err
		}
	}
	description := req.Description
	if description == "" {
		description = defaultClearingDescription(origin)
	}
	originID := origin.ID
	clearing := &Payment{
		EmployeeID:       origin.EmployeeID,
		Type:             clearingType,
		Amount:           origin.Amount,
		Date:             date,
		Description:      description,
		ClearedPaymentID: &originID,
	}
	// The unique index on cleared_payment_id turns a concurrent second
	// clearing into ErrAlreadyCleared here.
	if err := s.repo.Insert(ctx, clearing); err != nil {
		return nil, err
	}
	s.metrics.LedgerEntry(string(clearing.Type))
	s.logger.Info("payment cleared", slog.String("origin", origin.ID), slog.String("clearing", clearing.ID))
	return clearing, nil
}

// Delete hard deletes an entry. Deleting an origin also deletes its
// clearing entry; deleting a clearing entry re-opens its origin.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Summary returns the balances and entries of an employee.
func (s *Service) Summary(ctx context.Context, employeeID string) (*Summary, error) {
	if _, err := s.repo.EmployeeName(ctx, employeeID); err != nil {
		return nil, err
	}
	payments, err := s.repo.ListByEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	summary := Summarize(employeeID, payments)
	return &summary, nil
}

func (s *Service) today() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
