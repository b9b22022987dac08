package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/FACorreiaa/sales-analytics/internal/domain/datasource/service"
	"github.com/FACorreiaa/sales-analytics/internal/domain/import/repository"
	"github.com/FACorreiaa/sales-analytics/pkg/middleware"
	"github.com/FACorreiaa/sales-analytics/pkg/respond"
)

// DataSourceHandler serves the data source endpoints.
type DataSourceHandler struct {
	svc    *service.Service
	logger *slog.Logger
}

func NewDataSourceHandler(svc *service.Service, logger *slog.Logger) *DataSourceHandler {
	return &DataSourceHandler{svc: svc, logger: logger}
}

// Routes mounts the handler under /datasources.
func (h *DataSourceHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/mapping", h.GetMapping)
	r.Put("/{id}/mapping", h.UpsertMapping)
}

func (h *DataSourceHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.OwnerFromContext(r.Context())
	list, err := h.svc.List(r.Context(), owner)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*repository.DataSource{}
	}
	respond.JSON(w, http.StatusOK, list)
}

func (h *DataSourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CreateInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	owner, _ := middleware.OwnerFromContext(r.Context())
	ds, err := h.svc.Create(r.Context(), owner, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, ds)
}

func (h *DataSourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := respond.IDParam(r, "id")
	if !ok {
		respond.Error(w, http.StatusBadRequest, "invalid data source id")
		return
	}
	owner, _ := middleware.OwnerFromContext(r.Context())
	ds, err := h.svc.Get(r.Context(), owner, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, ds)
}

func (h *DataSourceHandler) GetMapping(w http.ResponseWriter, r *http.Request) {
	id, ok := respond.IDParam(r, "id")
	if !ok {
		respond.Error(w, http.StatusBadRequest, "invalid data source id")
		return
	}
	owner, _ := middleware.OwnerFromContext(r.Context())
	m, err := h.svc.Mapping(r.Context(), owner, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if m == nil {
		respond.Error(w, http.StatusNotFound, "Mapping not found.")
		return
	}
	respond.JSON(w, http.StatusOK, m)
}

func (h *DataSourceHandler) UpsertMapping(w http.ResponseWriter, r *http.Request) {
	id, ok := respond.IDParam(r, "id")
	if !ok {
		respond.Error(w, http.StatusBadRequest, "invalid data source id")
		return
	}
	var in service.MappingInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	owner, _ := middleware.OwnerFromContext(r.Context())
	m, err := h.svc.UpsertMapping(r.Context(), owner, id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, m)
}

func (h *DataSourceHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "Data source not found.")
	default:
		h.logger.Error("data source request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
	}
}
