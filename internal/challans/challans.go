// Package challans stores the monthly PF and ESI payment challans.
package challans

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aspire-solar/billdesk/internal/platform/httpx"
	"github.com/aspire-solar/billdesk/internal/shared"
	"github.com/aspire-solar/billdesk/internal/storage"
)

// Type is the statutory scheme a challan pays into.
type Type string

const (
	TypePF  Type = "PF"
	TypeESI Type = "ESI"
)

// ErrNotFound indicates the challan does not exist.
var ErrNotFound = fmt.Errorf("challans: challan %w", httpx.ErrNotFound)

const folder = "challans"

// Challan is the uploaded receipt for one (month, year, type).
type Challan struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	Month      int       `json:"month"`
	Year       int       `json:"year"`
	FileName   string    `json:"fileName"`
	FileURL    string    `json:"fileUrl"`
	UploadedBy *string   `json:"uploadedBy,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// UploadRequest carries the form fields of an upload.
type UploadRequest struct {
	Type       Type   `json:"type" validate:"required,oneof=PF ESI"`
	Month      int    `json:"month" validate:"required,min=1,max=12"`
	Year       int    `json:"year" validate:"required,min=2000,max=2100"`
	UploadedBy string `json:"-"`
	Data       []byte `json:"-"`
}

// Filter narrows listings. Zero values match everything.
type Filter struct {
	Type Type
	Year int
}

// Repository defines data access for challans.
type Repository interface {
	// Upsert inserts or replaces the (month, year, type) row and returns the
	// file name it replaced, if any.
	Upsert(ctx context.Context, c *Challan) (previous string, err error)
	List(ctx context.Context, filter Filter) ([]Challan, error)
	// Delete removes the challan and returns its file name.
	Delete(ctx context.Context, id string) (string, error)
}

// Service implements challan uploads.
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

// Upload stores the file and links it to its period. A re-upload for the
// same period replaces the reference and schedules the old file for removal.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*Challan, error) {
	req.Type = Type(strings.ToUpper(strings.TrimSpace(string(req.Type))))
	if err := shared.ValidateStruct(s.validator, req); err != nil {
		return nil, err
	}
	obj, err := s.store.Upload(ctx, req.Data, fmt.Sprintf("%s/%d", folder, req.Year), storage.DocumentTypes)
	if err != nil {
		return nil, err
	}
	c := &Challan{Type: req.Type, Month: req.Month, Year: req.Year, FileName: obj.FileName, FileURL: obj.URL}
	if req.UploadedBy != "" {
		by := req.UploadedBy
		c.UploadedBy = &by
	}
	previous, err := s.repo.Upsert(ctx, c)
	if err != nil {
		s.remove(ctx, obj.FileName)
		return nil, err
	}
	if previous != "" && previous != obj.FileName {
		s.remove(ctx, previous)
	}
	s.logger.Info("challan uploaded",
		slog.String("type", string(c.Type)), slog.Int("month", c.Month), slog.Int("year", c.Year),
		slog.Bool("replaced", previous != ""))
	return c, nil
}

// List returns challans newest period first.
func (s *Service) List(ctx context.Context, filter Filter) ([]Challan, error) {
	return s.repo.List(ctx, filter)
}

// Delete removes a challan and its file.
func (s *Service) Delete(ctx context.Context, id string) error {
	fileName, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.remove(ctx, fileName)
	return nil
}

func (s *Service) remove(ctx context.Context, fileName string) {
	if s.remover == nil || fileName == "" {
		return
	}
	if err := s.remover.Remove(ctx, fileName); err != nil {
		s.logger.Warn("remove challan file", slog.String("file", fileName), slog.Any("error", err))
	}
}
