package invoice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aspire-solar/billdesk/internal/fiscal"
	"github.com/aspire-solar/billdesk/internal/observability"
	"github.com/aspire-solar/billdesk/internal/storage"
)

// maxAllocationAttempts bounds retries after an invoice number collision.
const maxAllocationAttempts = 3

// documentFolder is the storage folder for rendered invoices.
const documentFolder = "invoices"

// TxRepository is the persistence available inside a creation transaction.
type TxRepository interface {
	fiscal.SequenceStore
	Insert(ctx context.Context, inv *Invoice) error
}

// Repository defines data access for invoices.
type Repository interface {
	fiscal.SequenceStore
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id string) (*Invoice, error)
	List(ctx context.Context, filter ListFilter) ([]Invoice, error)
	AttachDocument(ctx context.Context, id, fileName, fileURL string) error
	Delete(ctx context.Context, id string) (string, error)
	ClientName(ctx context.Context, clientID string) (string, error)
}

// DocumentRenderer turns an invoice into PDF bytes.
type DocumentRenderer interface {
	RenderInvoice(ctx context.Context, inv *Invoice) ([]byte, error)
}

// RenderScheduler queues a later attempt to render and attach a document.
type RenderScheduler interface {
	ScheduleInvoiceRender(ctx context.Context, invoiceID string) error
}

// Deps groups Service collaborators. Scheduler and Metrics are optional.
type Deps struct {
	Repo      Repository
	Renderer  DocumentRenderer
	Store     storage.Store
	Remover   storage.Remover
	Scheduler RenderScheduler
	Metrics   *observability.Metrics
	Logger    *slog.Logger
	Now       func() time.Time
}

// Service handles invoice business logic.
type Service struct {
	repo      Repository
	renderer  DocumentRenderer
	store     storage.Store
	remover   storage.Remover
	scheduler RenderScheduler
	metrics   *observability.Metrics
	logger    *slog.Logger
	now       func() time.Time
	validator requestValidator
}

// NewService builds Service instance.
func NewService(deps Deps) *Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      deps.Repo,
		renderer:  deps.Renderer,
		store:     deps.Store,
		remover:   deps.Remover,
		scheduler: deps.Scheduler,
		metrics:   deps.Metrics,
		logger:    logger,
		now:       now,
		validator: newRequestValidator(),
	}
}

// SetScheduler installs the render scheduler after construction.
func (s *Service) SetScheduler(scheduler RenderScheduler) {
	s.scheduler = scheduler
}

// Create validates req, computes totals, allocates the invoice number and
// stores the invoice, then renders and attaches its PDF. A failure after the
// invoice is stored is reported in CreateResult.Warnings.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if err := s.validator.validate(&req); err != nil {
		return nil, err
	}
	inv, err := s.build(ctx, req)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			number, err := fiscal.NewAllocator(tx).Next(ctx, inv.FinancialYear)
			if err != nil {
				return err
			}
			inv.InvoiceNumber = number
			return tx.Insert(ctx, inv)
		})
		if err == nil {
			break
		}
		if !errors.Is(err, ErrDuplicateNumber) {
			return nil, err
		}
		s.logger.Warn("invoice number collision", slog.String("number", inv.InvoiceNumber), slog.Int("attempt", attempt))
		if attempt == maxAllocationAttempts {
			return nil, ErrNumberExhausted
		}
	}
	s.metrics.InvoiceCreated()
	s.logger.Info("invoice created", slog.String("id", inv.ID), slog.String("number", inv.InvoiceNumber))

	result := &CreateResult{Invoice: inv}
	if err := s.attachDocument(ctx, inv); err != nil {
		s.metrics.DocumentFailed("invoice")
		s.logger.Error("attach invoice document", slog.String("id", inv.ID), slog.Any("error", err))
		result.Warnings = append(result.Warnings, fmt.Sprintf("invoice %s was saved but its PDF could not be stored: %v", inv.InvoiceNumber, err))
		if s.scheduler != nil {
			if serr := s.scheduler.ScheduleInvoiceRender(ctx, inv.ID); serr != nil {
				s.logger.Warn("schedule invoice render", slog.String("id", inv.ID), slog.Any("error", serr))
			} else {
				result.Warnings = append(result.Warnings, "PDF generation has been queued for retry")
			}
		}
	}
	return result, nil
}

func (s *Service) build(ctx context.Context, req CreateRequest) (*Invoice, error) {
	invoiceDate, err := parseDate(req.InvoiceDate)
	if err != nil {
		return nil, fmt.Errorf("invoice: invoice date: %w", err)
	}
	if invoiceDate == nil {
		now := s.now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		invoiceDate = &today
	}
	workOrderDate, err := parseDate(req.WorkOrderDate)
	if err != nil {
		return nil, fmt.Errorf("invoice: work order date: %w", err)
	}

	comp, err := Compute(ComputeInput{
		Lines:          req.LineItems,
		CGSTPercentage: req.CGSTPercentage,
		SGSTPercentage: req.SGSTPercentage,
	})
	if err != nil {
		return nil, err
	}

	fy := req.FinancialYear
	if fy == "" {
		fy = fiscal.CurrentFinancialYear(*invoiceDate)
	}

	inv := &Invoice{
		ClientName:         req.ClientName,
		FinancialYear:      fy,
		InvoiceDate:        *invoiceDate,
		WorkOrderReference: req.WorkOrderReference,
		WorkOrderDate:      workOrderDate,
		Customer: Customer{
			CompanyName:  req.CompanyName,
			AddressLine1: req.AddressLine1,
			AddressLine2: req.AddressLine2,
			City:         req.City,
			State:        req.State,
			Pin:          req.Pin,
			GSTNumber:    req.GSTNumber,
		},
		LineItems:        comp.LineItems,
		TotalBasicAmount: comp.TotalBasicAmount,
		CGSTPercentage:   req.CGSTPercentage,
		CGSTAmount:       comp.CGSTAmount,
		SGSTPercentage:   req.SGSTPercentage,
		SGSTAmount:       comp.SGSTAmount,
		GrandTotal:       comp.GrandTotal,
		AmountInWords:    comp.AmountInWords,
	}
	if req.ClientID != "" {
		name, err := s.repo.ClientName(ctx, req.ClientID)
		if err != nil {
			return nil, err
		}
		clientID := req.ClientID
		inv.ClientID = &clientID
		if inv.ClientName == "" {
			inv.ClientName = name
		}
	}
	if inv.ClientName == "" {
		inv.ClientName = req.CompanyName
	}
	if req.CreatedBy != "" {
		createdBy := req.CreatedBy
		inv.CreatedBy = &createdBy
	}
	return inv, nil
}

// attachDocument renders, uploads and links the invoice PDF. An uploaded file
// that cannot be linked is removed again.
func (s *Service) attachDocument(ctx context.Context, inv *Invoice) error {
	if s.renderer == nil || s.store == nil {
		return errors.New("invoice: document rendering not configured")
	}
	data, err := s.renderer.RenderInvoice(ctx, inv)
	if err != nil {
		return fmt.Errorf("invoice: render: %w", err)
	}
	obj, err := s.store.Upload(ctx, data, documentFolder, storage.PDFTypes)
	if err != nil {
		return fmt.Errorf("invoice: upload: %w", err)
	}
	if err := s.repo.AttachDocument(ctx, inv.ID, obj.FileName, obj.URL); err != nil {
		s.removeFile(ctx, obj.FileName)
		return fmt.Errorf("invoice: attach: %w", err)
	}
	inv.FileName = obj.FileName
	inv.FileURL = obj.URL
	return nil
}

// RegenerateDocument renders the invoice again and replaces its attached PDF.
func (s *Service) RegenerateDocument(ctx context.Context, id string) (*Invoice, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := inv.FileName
	if err := s.attachDocument(ctx, inv); err != nil {
		s.metrics.DocumentFailed("invoice")
		return nil, err
	}
	if previous != "" && previous != inv.FileName {
		s.removeFile(ctx, previous)
	}
	return inv, nil
}

// Document returns the PDF for an invoice. When none is attached yet it is
// rendered on the fly without being stored.
func (s *Service) Document(ctx context.Context, id string) (*Invoice, []byte, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if inv.HasDocument() && s.store != nil {
		data, err := s.store.Open(ctx, inv.FileName)
		if err == nil {
			return inv, data, nil
		}
		if !storage.IsNotFound(err) {
			return nil, nil, err
		}
		s.logger.Warn("invoice document missing from storage", slog.String("id", id), slog.String("file", inv.FileName))
	}
	if s.renderer == nil {
		return nil, nil, ErrDocumentMissing
	}
	data, err := s.renderer.RenderInvoice(ctx, inv)
	if err != nil {
		return nil, nil, fmt.Errorf("invoice: render: %w", err)
	}
	return inv, data, nil
}

// Get returns a single invoice.
func (s *Service) Get(ctx context.Context, id string) (*Invoice, error) {
	return s.repo.Get(ctx, id)
}

// List returns invoices matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	return s.repo.List(ctx, filter)
}

// NextNumber previews the number the next invoice in fy would get. An empty
// fy means the current financial year.
func (s *Service) NextNumber(ctx context.Context, fy string) (string, error) {
	if fy == "" {
		fy = fiscal.CurrentFinancialYear(s.now())
	}
	return fiscal.NewAllocator(s.repo).Peek(ctx, fy)
}

// Delete removes an invoice and schedules removal of its PDF.
func (s *Service) Delete(ctx context.Context, id string) error {
	fileName, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.removeFile(ctx, fileName)
	return nil
}

func (s *Service) removeFile(ctx context.Context, fileName string) {
	if fileName == "" || s.remover == nil {
		return
	}
	if err := s.remover.Remove(ctx, fileName); err != nil {
		s.logger.Warn("remove invoice file", slog.String("file", fileName), slog.Any("error", err))
	}
}
