package employees

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/aspire-solar/billdesk/internal/shared"
	"github.com/aspire-solar/billdesk/internal/storage"
)

const (
	slugAttempts      = 3
	removeConcurrency = 4
	documentFolder    = "employees"
)

// Repository defines data access for employees and documents.
type Repository interface {
	Create(ctx context.Context, e *Employee) error
	Get(ctx context.Context, id string) (*Employee, error)
	GetBySlug(ctx context.Context, slug string) (*Employee, error)
	List(ctx context.Context, limit, offset int) ([]Employee, error)
	Update(ctx context.Context, e *Employee) error
	// DeleteMany removes the employees and returns the stored file names of
	// their documents. Unknown ids are ignored.
	DeleteMany(ctx context.Context, ids []string) (deleted int, files []string, err error)

	InsertDocument(ctx context.Context, d *Document) error
	ListDocuments(ctx context.Context, employeeID string) ([]Document, error)
	// DeleteDocument removes the document and returns its stored file name.
	DeleteDocument(ctx context.Context, employeeID, documentID string) (string, error)
}

// Service implements employee management.
type Service struct {
	repo      Repository
	store     storage.Store
	remover   storage.Remover
	logger    *slog.Logger
	validator *validator.Validate
}

// NewService builds Service instance.
func NewService(repo Repository, store storage.Store, remover storage.Remover, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, store: store, remover: remover, logger: logger, validator: shared.NewValidator()}
}

func (s *Service) prepare(req *Request) (*time.Time, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Email = strings.TrimSpace(req.Email)
	req.Address = strings.TrimSpace(req.Address)
	req.Designation = strings.TrimSpace(req.Designation)
	if err := shared.ValidateStruct(s.validator, *req); err != nil {
		return nil, err
	}
	if req.JoinDate == "" {
		return nil, nil
	}
	d, err := time.Parse(DateLayout, req.JoinDate)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Create stores a new employee under a fresh slug.
func (s *Service) Create(ctx context.Context, req Request) (*Employee, error) {
	joinDate, err := s.prepare(&req)
	if err != nil {
		return nil, err
	}
	e := &Employee{
		Name:        req.Name,
		Phone:       req.Phone,
		Email:       req.Email,
		Address:     req.Address,
		Designation: req.Designation,
		JoinDate:    joinDate,
	}
	for attempt := 1; ; attempt++ {
		e.UniqueSlug = NewSlug(e.Name)
		err = s.repo.Create(ctx, e)
		if err == nil || !errors.Is(err, ErrSlugTaken) || attempt == slugAttempts {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("employee created", slog.String("employee_id", e.ID), slog.String("slug", e.UniqueSlug))
	return e, nil
}

// Update replaces an employee's details. The slug never changes.
func (s *Service) Update(ctx context.Context, id string, req Request) (*Employee, error) {
	joinDate, err := s.prepare(&req)
	if err != nil {
		return nil, err
	}
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	e.Name = req.Name
	e.Phone = req.Phone
	e.Email = req.Email
	e.Address = req.Address
	e.Designation = req.Designation
	e.JoinDate = joinDate
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Get returns an employee with documents.
func (s *Service) Get(ctx context.Context, id string) (*Details, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	docs, err := s.repo.ListDocuments(ctx, id)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []Document{}
	}
	return &Details{Employee: *e, Documents: docs}, nil
}

// List returns a page of employees ordered by name.
func (s *Service) List(ctx context.Context, page shared.Page) ([]Employee, error) {
	return s.repo.List(ctx, page.Limit(), page.Offset())
}

// Profile returns the public profile for slug.
func (s *Service) Profile(ctx context.Context, slug string) (*Profile, error) {
	e, err := s.repo.GetBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return nil, err
	}
	return &Profile{Name: e.Name, Designation: e.Designation, JoinDate: e.JoinDate, Slug: e.UniqueSlug}, nil
}

// Delete removes one employee with their ledger, attendance and documents.
func (s *Service) Delete(ctx context.Context, id string) error {
	result, err := s.BulkDelete(ctx, BulkDeleteRequest{IDs: []string{id}})
	if err != nil {
		return err
	}
	if result.Deleted == 0 {
		return ErrNotFound
	}
	return nil
}

// BulkDelete removes employees and hands their document files to the
// remover. Rows are gone before files are removed; a file that cannot be
// scheduled is logged and counted, never rolled back.
func (s *Service) BulkDelete(ctx context.Context, req BulkDeleteRequest) (*BulkDeleteResult, error) {
	if err := shared.ValidateStruct(s.validator, req); err != nil {
		return nil, err
	}
	deleted, files, err := s.repo.DeleteMany(ctx, dedupe(req.IDs))
	if err != nil {
		return nil, err
	}
	result := &BulkDeleteResult{Deleted: deleted, Files: len(files)}
	result.FileErrors = s.removeFiles(ctx, files)
	s.logger.Info("employees deleted",
		slog.Int("deleted", deleted), slog.Int("files", len(files)), slog.Int("file_errors", result.FileErrors))
	return result, nil
}

func (s *Service) removeFiles(ctx context.Context, files []string) int {
	if s.remover == nil || len(files) == 0 {
		return 0
	}
	var failed atomic.Int32
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(removeConcurrency)
	for _, file := range files {
		g.Go(func() error {
			if err := s.remover.Remove(gctx, file); err != nil {
				failed.Add(1)
				s.logger.Warn("remove employee document", slog.String("file", file), slog.Any("error", err))
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(failed.Load())
}

// UploadDocument stores a PDF or image against an employee.
func (s *Service) UploadDocument(ctx context.Context, employeeID, title string, data []byte) (*Document, error) {
	title = strings.TrimSpace(title)
	if title == "" || len(title) > 200 {
		return nil, shared.MergeFieldErrors(nil, map[string]string{"title": "is required and at most 200 characters"})
	}
	if _, err := s.repo.Get(ctx, employeeID); err != nil {
		return nil, err
	}
	obj, err := s.store.Upload(ctx, data, documentFolder+"/"+employeeID, storage.DocumentTypes)
	if err != nil {
		return nil, err
	}
	doc := &Document{
		EmployeeID: employeeID,
		Title:      title,
		FileName:   obj.FileName,
		FileURL:    obj.URL,
		MimeType:   obj.MimeType,
		Size:       obj.Size,
	}
	if err := s.repo.InsertDocument(ctx, doc); err != nil {
		s.removeFiles(ctx, []string{obj.FileName})
		return nil, err
	}
	return doc, nil
}

// DeleteDocument removes a document and its stored file.
func (s *Service) DeleteDocument(ctx context.Context, employeeID, documentID string) error {
	fileName, err := s.repo.DeleteDocument(ctx, employeeID, documentID)
	if err != nil {
		return err
	}
	s.removeFiles(ctx, []string{fileName})
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
