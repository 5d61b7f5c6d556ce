package invoice

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aspire-solar/billdesk/internal/platform/httpx"
	"github.com/aspire-solar/billdesk/internal/rbac"
	"github.com/aspire-solar/billdesk/internal/shared"
)

// Handler manages invoice endpoints.
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

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuthenticated())
		r.Get("/", h.list)
		r.Get("/next-number", h.nextNumber)
		r.Get("/{id}", h.get)
		r.Get("/{id}/pdf", h.document)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRoles(shared.RoleAdmin))
		r.Post("/", h.create)
		r.Post("/{id}/pdf", h.regenerate)
		r.Delete("/{id}", h.delete)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := shared.PageFromQuery(q)
	invoices, err := h.service.List(r.Context(), ListFilter{
		ClientID:      q.Get("clientId"),
		FinancialYear: q.Get("financialYear"),
		Limit:         page.Limit(),
		Offset:        page.Offset(),
	})
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if invoices == nil {
		invoices = []Invoice{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}

func (h *Handler) nextNumber(w http.ResponseWriter, r *http.Request) {
	fy := r.URL.Query().Get("financialYear")
	number, err := h.service.NextNumber(r.Context(), fy)
	if err != nil {
		h.logger.Error("next invoice number", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"invoiceNumber": number})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) document(w http.ResponseWriter, r *http.Request) {
	inv, data, err := h.service.Document(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("invoice document", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.PDF(w, inv.DocumentName(), data)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	req.CreatedBy = shared.CurrentUserID(r.Context())

	result, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("create invoice", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) regenerate(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.RegenerateDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("regenerate invoice document", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.logger.Error("delete invoice", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
