package challans

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aspire-solar/billdesk/internal/platform/httpx"
	"github.com/aspire-solar/billdesk/internal/rbac"
	"github.com/aspire-solar/billdesk/internal/shared"
)

// Handler exposes challan endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	rbac     rbac.Middleware
	maxBytes int64
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, maxBytes int64) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac, maxBytes: maxBytes}
}

// MountRoutes registers challan routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAuthenticated()).Get("/", h.list)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRoles(shared.RoleAdmin, shared.RoleAccountant))
		r.Post("/", h.upload)
		r.Delete("/{id}", h.delete)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, _ := strconv.Atoi(q.Get("year"))
	challans, err := h.service.List(r.Context(), Filter{Type: Type(strings.ToUpper(q.Get("type"))), Year: year})
	if err != nil {
		h.logger.Error("list challans", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if challans == nil {
		challans = []Challan{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"challans": challans})
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	data, _, err := httpx.ReadUpload(w, r, httpx.UploadField, h.maxBytes)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	month, _ := strconv.Atoi(r.FormValue("month"))
	year, _ := strconv.Atoi(r.FormValue("year"))
	c, err := h.service.Upload(r.Context(), UploadRequest{
		Type:       Type(r.FormValue("type")),
		Month:      month,
		Year:       year,
		UploadedBy: shared.CurrentUserID(r.Context()),
		Data:       data,
	})
	if err != nil {
		h.logger.Error("upload challan", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
