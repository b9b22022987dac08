package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/FACorreiaa/sales-analytics/internal/domain/import/parser"
	"github.com/FACorreiaa/sales-analytics/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/sales-analytics/internal/domain/import/service"
	"github.com/FACorreiaa/sales-analytics/internal/domain/import/sniffer"
	"github.com/FACorreiaa/sales-analytics/pkg/middleware"
	"github.com/FACorreiaa/sales-analytics/pkg/respond"
	"github.com/FACorreiaa/sales-analytics/pkg/storage"
)

// multipartOverhead is allowed on top of the file limit for form boundaries
// and headers.
const multipartOverhead = 1 << 20

// DataSources resolves a data source for the requesting owner.
type DataSources interface {
	Get(ctx context.Context, ownerID string, id int64) (*repository.DataSource, error)
}

// ImportHandler serves upload, preview and parse endpoints.
type ImportHandler struct {
	importSvc   *importservice.ImportService
	dataSources DataSources
	maxBytes    int64
	logger      *slog.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(importSvc *importservice.ImportService, dataSources DataSources, maxBytes int64, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{
		importSvc:   importSvc,
		dataSources: dataSources,
		maxBytes:    maxBytes,
		logger:      logger,
	}
}

// Upload stores a multipart "file" for the data source in the URL and
// creates a Staged import.
func (h *ImportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	id, ok := respond.IDParam(r, "id")
	if !ok {
		respond.Error(w, http.StatusBadRequest, "invalid data source id")
		return
	}
	owner, _ := middleware.OwnerFromContext(r.Context())
	ds, err := h.dataSources.Get(r.Context(), owner, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(w, http.StatusRequestEntityTooLarge, storage.ErrTooLarge.Error())
			return
		}
		respond.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	job, err := h.importSvc.Stage(r.Context(), ds, header.Filename, file)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, job)
}

func (h *ImportHandler) GetImport(w http.ResponseWriter, r *http.Request) {
	job, ok := h.ownedImport(w, r)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, job)
}

// Preview returns headers, sample rows and a suggested mapping. Query
// parameters: sheet, rows.
func (h *ImportHandler) Preview(w http.ResponseWriter, r *http.Request) {
	job, ok := h.ownedImport(w, r)
	if !ok {
		return
	}
	sample := parser.DefaultPreviewRows
	if v := r.URL.Query().Get("rows"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			respond.Error(w, http.StatusBadRequest, "rows must be between 1 and 500")
			return
		}
		sample = n
	}

	result, err := h.importSvc.Preview(r.Context(), job.ID, r.URL.Query().Get("sheet"), sample)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, result)
}

// Parse runs the import. The body is always an ImportResult; failures are
// 422.
func (h *ImportHandler) Parse(w http.ResponseWriter, r *http.Request) {
	job, ok := h.ownedImport(w, r)
	if !ok {
		return
	}
	result := h.importSvc.ParseAndImport(r.Context(), job.ID)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	respond.JSON(w, status, result)
}

func (h *ImportHandler) ownedImport(w http.ResponseWriter, r *http.Request) (*repository.ImportJob, bool) {
	id, ok := respond.IDParam(r, "id")
	if !ok {
		respond.Error(w, http.StatusBadRequest, "invalid import id")
		return nil, false
	}
	job, err := h.importSvc.GetImport(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	owner, _ := middleware.OwnerFromContext(r.Context())
	if _, err := h.dataSources.Get(r.Context(), owner, job.DataSourceID); err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return job, true
}

func (h *ImportHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var unsupported *parser.UnsupportedFileTypeError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "Not found.")
	case errors.Is(err, storage.ErrNotFound):
		respond.Error(w, http.StatusGone, "Stored file is missing.")
	case errors.Is(err, storage.ErrTooLarge):
		respond.Error(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, importservice.ErrUnsupportedFile), errors.As(err, &unsupported):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, importservice.ErrEmptyFile), errors.Is(err, sniffer.ErrEmptyFile):
		respond.Error(w, http.StatusBadRequest, "File is empty.")
	case errors.Is(err, parser.ErrNoHeaders):
		respond.Error(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("import request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
	}
}
