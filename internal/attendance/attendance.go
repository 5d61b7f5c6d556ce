// Package attendance records how many days each employee worked per month.
package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aspire-solar/billdesk/internal/platform/httpx"
	"github.com/aspire-solar/billdesk/internal/rbac"
	"github.com/aspire-solar/billdesk/internal/shared"
)

// ErrEmployeeNotFound indicates the employee does not exist.
var ErrEmployeeNotFound = fmt.Errorf("attendance: employee %w", httpx.ErrNotFound)

// Record is the attendance of one employee for one month.
type Record struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employeeId"`
	Month      int       `json:"month"`
	Year       int       `json:"year"`
	DaysWorked int       `json:"daysWorked"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// UpsertRequest sets the days worked in a month.
type UpsertRequest struct {
	EmployeeID string `json:"-"`
	Month      int    `json:"month" validate:"required,min=1,max=12"`
	Year       int    `json:"year" validate:"required,min=2000,max=2100"`
	DaysWorked *int   `json:"daysWorked" validate:"required,min=0,max=31"`
}

// Repository defines data access for attendance.
type Repository interface {
	// Upsert inserts or replaces the (employee, month, year) row.
	Upsert(ctx context.Context, r *Record) error
	// List returns an employee's records, optionally for one year, newest first.
	List(ctx context.Context, employeeID string, year int) ([]Record, error)
}

// Service implements attendance rules.
type Service struct {
	repo      Repository
	validator *validator.Validate
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validator: shared.NewValidator()}
}

// Upsert records days worked. Repeating a month overwrites it.
func (s *Service) Upsert(ctx context.Context, req UpsertRequest) (*Record, error) {
	if err := shared.ValidateStruct(s.validator, req); err != nil {
		return nil, err
	}
	if limit := daysIn(req.Month, req.Year); *req.DaysWorked > limit {
		return nil, httpx.NewValidationError(map[string]string{
			"daysWorked": "must be at most " + strconv.Itoa(limit) + " for this month",
		})
	}
	rec := &Record{EmployeeID: req.EmployeeID, Month: req.Month, Year: req.Year, DaysWorked: *req.DaysWorked}
	if err := s.repo.Upsert(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns an employee's attendance. A zero year lists every year.
func (s *Service) List(ctx context.Context, employeeID string, year int) ([]Record, error) {
	return s.repo.List(ctx, employeeID, year)
}

func daysIn(month, year int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Handler exposes attendance below /employees/{id}/attendance.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers attendance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAuthenticated()).Get("/", h.list)
	r.With(h.rbac.RequireRoles(shared.RoleAdmin, shared.RoleAccountant)).Put("/", h.upsert)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	year := 0
	if raw := r.URL.Query().Get("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			httpx.RespondError(w, httpx.NewValidationError(map[string]string{"year": "must be a number"}))
			return
		}
		year = y
	}
	records, err := h.service.List(r.Context(), chi.URLParam(r, "id"), year)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if records == nil {
		records = []Record{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"attendance": records})
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request) {
	var req UpsertRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	req.EmployeeID = chi.URLParam(r, "id")
	rec, err := h.service.Upsert(r.Context(), req)
	if err != nil {
		h.logger.Error("upsert attendance", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}
