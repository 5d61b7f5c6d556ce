package clients

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/aspire-solar/billdesk/internal/shared"
)

// Repository defines data access for clients and their payments.
type Repository interface {
	Create(ctx context.Context, c *Client) error
	Get(ctx context.Context, id string) (*Client, error)
	List(ctx context.Context) ([]Client, error)
	Update(ctx context.Context, c *Client) error
	Delete(ctx context.Context, id string) error

	InsertPayment(ctx context.Context, p *Payment) error
	ListPayments(ctx context.Context, clientID string) ([]Payment, error)

	// InvoiceTotals sums invoice grand totals per client id. Invoices linked
	// only by client name count towards the client of that name.
	InvoiceTotals(ctx context.Context, clientID string) (map[string]decimal.Decimal, error)
	// PaymentTotals sums payments per client id.
	PaymentTotals(ctx context.Context, clientID string) (map[string]decimal.Decimal, error)
}

// Service implements client management and due balances.
type Service struct {
	repo      Repository
	logger    *slog.Logger
	validator *validator.Validate
}

// NewService builds Service instance.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, validator: shared.NewValidator()}
}

func normalize(req *Request) {
	for _, field := range []*string{
		&req.Name, &req.AddressLine1, &req.AddressLine2, &req.City, &req.State, &req.Pin,
		&req.ContactPerson, &req.Phone, &req.Email,
	} {
		*field = strings.TrimSpace(*field)
	}
	req.GSTNumber = strings.ToUpper(strings.TrimSpace(req.GSTNumber))
	req.PANNumber = strings.ToUpper(strings.TrimSpace(req.PANNumber))
}

// Create stores a new client.
func (s *Service) Create(ctx context.Context, req Request) (*Client, error) {
	normalize(&req)
	if err := shared.ValidateStruct(s.validator, req); err != nil {
		return nil, err
	}
	var c Client
	req.apply(&c)
	if err := s.repo.Create(ctx, &c); err != nil {
		return nil, err
	}
	s.logger.Info("client created", slog.String("client_id", c.ID))
	return &c, nil
}

// Update replaces a client's details.
func (s *Service) Update(ctx context.Context, id string, req Request) (*Client, error) {
	normalize(&req)
	if err := shared.ValidateStruct(s.validator, req); err != nil {
		return nil, err
	}
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	req.apply(c)
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Get loads a client.
func (s *Service) Get(ctx context.Context, id string) (*Client, error) {
	return s.repo.Get(ctx, id)
}

// List returns all clients by name.
func (s *Service) List(ctx context.Context) ([]Client, error) {
	return s.repo.List(ctx)
}

// Delete removes a client and its payments. Its invoices stay, unlinked.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// RecordPayment stores money received from a client.
func (s *Service) RecordPayment(ctx context.Context, req PaymentRequest) (*Payment, error) {
	req.Mode = strings.TrimSpace(req.Mode)
	req.Reference = strings.TrimSpace(req.Reference)
	req.Notes = strings.TrimSpace(req.Notes)
	if err := shared.ValidateStruct(s.validator, req); err != nil {
		return nil, err
	}
	if _, err := s.repo.Get(ctx, req.ClientID); err != nil {
		return nil, err
	}
	date, err := time.Parse(DateLayout, req.Date)
	if err != nil {
		return nil, err
	}
	p := &Payment{
		ClientID:  req.ClientID,
		Amount:    req.Amount.Round(2),
		Date:      date,
		Mode:      req.Mode,
		Reference: req.Reference,
		Notes:     req.Notes,
	}
	if err := s.repo.InsertPayment(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Payments lists a client's payments, newest first.
func (s *Service) Payments(ctx context.Context, clientID string) ([]Payment, error) {
	if _, err := s.repo.Get(ctx, clientID); err != nil {
		return nil, err
	}
	return s.repo.ListPayments(ctx, clientID)
}

// Balance derives one client's due amount.
func (s *Service) Balance(ctx context.Context, clientID string) (*Balance, error) {
	clients, invoiced, paid, err := s.load(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if len(clients) == 0 {
		return nil, ErrNotFound
	}
	b := NewBalance(clients[0], total(invoiced, clientID), total(paid, clientID))
	return &b, nil
}

// Dues derives every client's balance and the aggregate totals.
func (s *Service) Dues(ctx context.Context) (*DueOverview, error) {
	clients, invoiced, paid, err := s.load(ctx, "")
	if err != nil {
		return nil, err
	}
	balances := make([]Balance, 0, len(clients))
	for _, c := range clients {
		balances = append(balances, NewBalance(c, total(invoiced, c.ID), total(paid, c.ID)))
	}
	overview := Aggregate(balances)
	return &overview, nil
}

// load fetches clients and both totals concurrently. An empty clientID loads
// every client.
func (s *Service) load(ctx context.Context, clientID string) ([]Client, map[string]decimal.Decimal, map[string]decimal.Decimal, error) {
	var (
		clients  []Client
		invoiced map[string]decimal.Decimal
		paid     map[string]decimal.Decimal
	)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if clientID == "" {
			list, err := s.repo.List(ctx)
			clients = list
			return err
		}
		c, err := s.repo.Get(ctx, clientID)
		if err != nil {
			return err
		}
		clients = []Client{*c}
		return nil
	})

	g.Go(func() error {
		totals, err := s.repo.InvoiceTotals(ctx, clientID)
		invoiced = totals
		return err
	})

	g.Go(func() error {
		totals, err := s.repo.PaymentTotals(ctx, clientID)
		paid = totals
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	return clients, invoiced, paid, nil
}

func total(totals map[string]decimal.Decimal, clientID string) decimal.Decimal {
	if v, ok := totals[clientID]; ok {
		return v
	}
	return decimal.Zero
}
