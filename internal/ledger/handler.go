package ledger

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aspire-solar/billdesk/internal/platform/httpx"
	"github.com/aspire-solar/billdesk/internal/rbac"
	"github.com/aspire-solar/billdesk/internal/shared"
)

// Handler exposes ledger endpoints.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	statements *StatementBuilder
	rbac       rbac.Middleware
}

// NewHandler builds Handler instance. statements may be nil when no PDF
// renderer is configured.
func NewHandler(logger *slog.Logger, service *Service, statements *StatementBuilder, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, statements: statements, rbac: rbac}
}

// MountEmployeeRoutes registers routes below /employees/{id}/payments.
func (h *Handler) MountEmployeeRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuthenticated())
		r.Get("/", h.summary)
		r.Get("/statement", h.statement)
	})
	r.With(h.rbac.RequireRoles(shared.RoleAdmin, shared.RoleAccountant)).Post("/", h.record)
}

// MountRoutes registers routes below /payments.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRoles(shared.RoleAdmin, shared.RoleAccountant))
		r.Post("/{id}/clear", h.clear)
		r.Delete("/{id}", h.delete)
	})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) statement(w http.ResponseWriter, r *http.Request) {
	if h.statements == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "statement rendering is not configured")
		return
	}
	pdf, err := h.statements.PDF(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("render ledger statement", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.PDF(w, "ledger-statement.pdf", pdf)
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	var req RecordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	req.EmployeeID = chi.URLParam(r, "id")
	p, err := h.service.Record(r.Context(), req)
	if err != nil {
		h.logger.Error("record payment", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	var req ClearRequest
	if err := httpx.DecodeOptionalJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Clear(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.logger.Warn("clear payment", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
