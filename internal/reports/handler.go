package reports

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/backoffice/internal/sales"
)

// Handler exposes report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/sales-summary", h.salesSummary)
}

func (h *Handler) salesSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		filter Filter
		err    error
	)
	if filter.From, err = sales.ParseDate(q.Get("from"), "from"); err != nil {
		h.fail(w, r, err)
		return
	}
	if filter.To, err = sales.ParseDate(q.Get("to"), "to"); err != nil {
		h.fail(w, r, err)
		return
	}
	summary, err := h.service.SalesSummary(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if httpx.IsInternal(err) {
		h.logger.Error("report request failed", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
