package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/FACorreiaa/sales-analytics/internal/domain/analytics/repository"
	"github.com/FACorreiaa/sales-analytics/internal/domain/analytics/service"
	importrepo "github.com/FACorreiaa/sales-analytics/internal/domain/import/repository"
	"github.com/FACorreiaa/sales-analytics/pkg/middleware"
	"github.com/FACorreiaa/sales-analytics/pkg/respond"
)

const dateLayout = "2006-01-02"

// DataSources resolves a data source for the requesting owner.
type DataSources interface {
	Get(ctx context.Context, ownerID string, id int64) (*importrepo.DataSource, error)
}

// AnalyticsHandler serves the sales analytics endpoints of one data source.
type AnalyticsHandler struct {
	svc         *service.Service
	dataSources DataSources
	logger      *slog.Logger
}

func NewAnalyticsHandler(svc *service.Service, dataSources DataSources, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc, dataSources: dataSources, logger: logger}
}

// Routes mounts the handler under /analytics/sales. Every endpoint accepts
// optional from and to query parameters (yyyy-MM-dd, inclusive).
func (h *AnalyticsHandler) Routes(r chi.Router) {
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/summary", h.Summary)
		r.Get("/monthly", h.Monthly)
		r.Get("/top-products", h.TopProducts)
		r.Get("/top-customers", h.TopCustomers)
		r.Get("/group-by", h.GroupBy)
		r.Get("/dashboard", h.Dashboard)
		r.Get("/search", h.Search)
		r.Get("/export.csv", h.Export)
	})
}

func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	summary, err := h.svc.Summary(r.Context(), f)
	h.reply(w, r, summary, err)
}

func (h *AnalyticsHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	points, err := h.svc.MonthlyTrend(r.Context(), f)
	h.reply(w, r, points, err)
}

func (h *AnalyticsHandler) TopProducts(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	top, ok := intQuery(w, r, "top", service.DefaultTop)
	if !ok {
		return
	}
	points, err := h.svc.TopProducts(r.Context(), f, top)
	h.reply(w, r, points, err)
}

func (h *AnalyticsHandler) TopCustomers(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	top, ok := intQuery(w, r, "top", service.DefaultTop)
	if !ok {
		return
	}
	points, err := h.svc.TopCustomers(r.Context(), f, top)
	h.reply(w, r, points, err)
}

// GroupBy totals per ?dimension=Product|Customer|Date.
func (h *AnalyticsHandler) GroupBy(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	points, err := h.svc.GroupBy(r.Context(), f, r.URL.Query().Get("dimension"))
	h.reply(w, r, points, err)
}

func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	dashboard, err := h.svc.Dashboard(r.Context(), f)
	h.reply(w, r, dashboard, err)
}

// Search ranks product or customer names against ?q. Query parameters:
// dimension (default product), q, limit.
func (h *AnalyticsHandler) Search(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	limit, ok := intQuery(w, r, "limit", service.DefaultSearchLimit)
	if !ok {
		return
	}
	dimension := r.URL.Query().Get("dimension")
	if dimension == "" {
		dimension = string(importrepo.DimProduct)
	}
	hits, err := h.svc.Search(r.Context(), f.DataSourceID, dimension, r.URL.Query().Get("q"), limit)
	h.reply(w, r, hits, err)
}

// Export streams the filtered facts as a CSV attachment.
func (h *AnalyticsHandler) Export(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="sales-%d.csv"`, f.DataSourceID))
	if _, err := h.svc.ExportCSV(r.Context(), f, w); err != nil {
		h.logger.Error("export failed", slog.Int64("data_source_id", f.DataSourceID), slog.Any("error", err))
	}
}

// filter resolves the owned data source and the date range of the request.
func (h *AnalyticsHandler) filter(w http.ResponseWriter, r *http.Request) (repository.Filter, bool) {
	id, ok := respond.IDParam(r, "id")
	if !ok {
		respond.Error(w, http.StatusBadRequest, "invalid data source id")
		return repository.Filter{}, false
	}
	f := repository.Filter{DataSourceID: id}

	var err error
	if f.From, err = dateQuery(r, "from"); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return repository.Filter{}, false
	}
	if f.To, err = dateQuery(r, "to"); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return repository.Filter{}, false
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		respond.Error(w, http.StatusBadRequest, "from must not be after to")
		return repository.Filter{}, false
	}

	owner, _ := middleware.OwnerFromContext(r.Context())
	if _, err := h.dataSources.Get(r.Context(), owner, id); err != nil {
		h.writeError(w, r, err)
		return repository.Filter{}, false
	}
	return f, true
}

func (h *AnalyticsHandler) reply(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, v)
}

func (h *AnalyticsHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, importrepo.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "Data source not found.")
	case errors.Is(err, service.ErrInvalidDimension):
		respond.Error(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("analytics request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
	}
}

func dateQuery(r *http.Request, name string) (*time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return nil, fmt.Errorf("%s must be a yyyy-MM-dd date", name)
	}
	return &t, nil
}

func intQuery(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > 1000 {
		respond.Error(w, http.StatusBadRequest, name+" must be between 1 and 1000")
		return 0, false
	}
	return n, true
}
