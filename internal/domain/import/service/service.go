// Package service provides the import orchestration logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/sales-analytics/internal/domain/import/inference"
	"github.com/FACorreiaa/sales-analytics/internal/domain/import/parser"
	"github.com/FACorreiaa/sales-analytics/internal/domain/import/repository"
	"github.com/FACorreiaa/sales-analytics/pkg/storage"
)

const DefaultBatchSize = 1000

var (
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrEmptyFile       = errors.New("empty file")
)

// Config tunes the import pipeline. A nil ErrorThreshold means
// DefaultErrorThreshold; zero rejects any row error.
type Config struct {
	BatchSize       int
	ErrorThreshold  *float64
	MaxErrorSamples int
	DefaultCulture  string
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:       DefaultBatchSize,
		ErrorThreshold:  Threshold(DefaultErrorThreshold),
		MaxErrorSamples: DefaultMaxErrorSamples,
		DefaultCulture:  parser.DefaultCulture,
	}
}

// Threshold returns a pointer for Config.ErrorThreshold.
func Threshold(rate float64) *float64 {
	return &rate
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.ErrorThreshold == nil || *c.ErrorThreshold < 0 {
		c.ErrorThreshold = d.ErrorThreshold
	}
	if c.MaxErrorSamples <= 0 {
		c.MaxErrorSamples = d.MaxErrorSamples
	}
	if strings.TrimSpace(c.DefaultCulture) == "" {
		c.DefaultCulture = d.DefaultCulture
	}
	return c
}

// ImportResult contains the result of an import operation
type ImportResult struct {
	Rows    int     `json:"rows"`
	Success bool    `json:"success"`
	Error   *string `json:"error,omitempty"`
}

// Notifier is told about imports that end Failed.
type Notifier interface {
	ImportFailed(ctx context.Context, job *repository.ImportJob, message string) error
}

// ImportService orchestrates file staging, preview and parsing.
type ImportService struct {
	repo     repository.ImportRepository
	files    storage.Storage
	matcher  *inference.Matcher
	cfg      Config
	metrics  *Metrics
	notifier Notifier // Optional: nil if notifications are disabled
	tracer   trace.Tracer
	logger   *slog.Logger
	now      func() time.Time
}

// NewImportService creates a new import service
func NewImportService(repo repository.ImportRepository, files storage.Storage, cfg Config, logger *slog.Logger) *ImportService {
	return &ImportService{
		repo:    repo,
		files:   files,
		matcher: inference.DefaultMatcher(),
		cfg:     cfg.withDefaults(),
		tracer:  otel.Tracer("github.com/FACorreiaa/sales-analytics/import"),
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithMatcher replaces the built-in header matcher
func (s *ImportService) WithMatcher(m *inference.Matcher) *ImportService {
	s.matcher = m
	return s
}

// WithMetrics enables Prometheus metrics
func (s *ImportService) WithMetrics(m *Metrics) *ImportService {
	s.metrics = m
	return s
}

// WithNotifier adds failure notifications
func (s *ImportService) WithNotifier(n Notifier) *ImportService {
	s.notifier = n
	return s
}

// Stage stores an uploaded file and creates a Staged import for it.
func (s *ImportService) Stage(ctx context.Context, ds *repository.DataSource, filename string, r io.Reader) (*repository.ImportJob, error) {
	if !parser.IsSupported(filename) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filename)
	}

	info, err := s.files.Save(ctx, ds.OwnerID, filename, r)
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}
	if info.Size == 0 {
		_ = s.files.Delete(ctx, info.Path)
		return nil, ErrEmptyFile
	}

	job := &repository.ImportJob{
		DataSourceID: ds.ID,
		FilePath:     info.Path,
		OriginalName: filename,
		Status:       repository.StatusStaged,
	}
	if err := s.repo.CreateImport(ctx, job); err != nil {
		_ = s.files.Delete(ctx, info.Path)
		return nil, fmt.Errorf("failed to create import: %w", err)
	}

	s.logger.Info("import staged",
		slog.Int64("import_id", job.ID),
		slog.Int64("data_source_id", ds.ID),
		slog.String("file", filename),
		slog.Int64("bytes", info.Size),
	)
	return job, nil
}

// GetImport returns an import by id.
func (s *ImportService) GetImport(ctx context.Context, id int64) (*repository.ImportJob, error) {
	return s.repo.GetImport(ctx, id)
}

// Preview reads the headers and first rows of a staged file. sheet overrides
// the sheet stored in the data source mapping.
func (s *ImportService) Preview(ctx context.Context, id int64, sheet string, sample int) (*parser.PreviewResult, error) {
	job, err := s.repo.GetImport(ctx, id)
	if err != nil {
		return nil, err
	}
	mapping, err := s.repo.GetMapping(ctx, job.DataSourceID)
	if err != nil {
		return nil, err
	}

	culture := s.cfg.DefaultCulture
	if mapping != nil {
		if strings.TrimSpace(mapping.Culture) != "" {
			culture = mapping.Culture
		}
		if sheet == "" && mapping.SheetName != nil {
			sheet = *mapping.SheetName
		}
	}

	src, err := parser.Open(job.FilePath, s.files.Open, sheet)
	if err != nil {
		return nil, err
	}
	return parser.Preview(ctx, src, s.matcher, sample, culture)
}

// ParseAndImport parses a Staged import into the sales star schema. Row
// level problems are counted against the error budget; anything else fails
// the import. The outcome is always reported through the result.
func (s *ImportService) ParseAndImport(ctx context.Context, id int64) ImportResult {
	ctx, span := s.tracer.Start(ctx, "import.ParseAndImport", trace.WithAttributes(attribute.Int64("import.id", id)))
	defer span.End()

	job, err := s.repo.GetImport(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return rejected("Import not found.")
	}
	if err != nil {
		span.RecordError(err)
		return rejected(err.Error())
	}
	if job.Status != repository.StatusStaged {
		return rejected(fmt.Sprintf("Invalid status: %s.", job.Status))
	}
	job, err = s.repo.ClaimImport(ctx, id)
	if errors.Is(err, repository.ErrNotStaged) {
		return rejected("Import is already being parsed.")
	}
	if err != nil {
		span.RecordError(err)
		return rejected(err.Error())
	}

	logger := s.logger.With(slog.Int64("import_id", job.ID), slog.Int64("data_source_id", job.DataSourceID))
	logger.Info("import started", slog.String("file", job.OriginalName))
	started := time.Now()

	budget, err := s.run(ctx, job, logger)
	if err != nil {
		span.RecordError(err)
		s.metrics.observe("failed", budget.Errors, started)
		return s.fail(ctx, job, err.Error(), logger)
	}

	decision := budget.Decide()
	span.SetAttributes(
		attribute.Int("import.rows", budget.Rows),
		attribute.Int("import.errors", budget.Errors),
		attribute.Float64("import.error_rate", decision.Rate),
	)
	if !decision.Accept {
		s.metrics.observe("rejected", budget.Errors, started)
		return s.fail(ctx, job, decision.Message, logger)
	}

	now := s.now()
	job.Status = repository.StatusParsed
	job.Rows = budget.Rows
	job.CompletedAt = &now
	job.ErrorMessage = nil
	if decision.Message != "" {
		msg := decision.Message
		job.ErrorMessage = &msg
	}
	if err := s.repo.SaveImport(context.WithoutCancel(ctx), job); err != nil {
		span.RecordError(err)
		s.metrics.observe("failed", budget.Errors, started)
		return s.fail(ctx, job, err.Error(), logger)
	}

	s.metrics.observe("parsed", budget.Errors, started)
	logger.Info("import parsed",
		slog.Int("rows", budget.Rows),
		slog.Int("errors", budget.Errors),
		slog.Duration("elapsed", time.Since(started)),
	)
	return ImportResult{Rows: budget.Rows, Success: true}
}

// run streams every row of job into fact batches.
func (s *ImportService) run(ctx context.Context, job *repository.ImportJob, logger *slog.Logger) (ErrorBudget, error) {
	budget := NewErrorBudget(*s.cfg.ErrorThreshold, s.cfg.MaxErrorSamples)

	mapping, err := s.repo.GetMapping(ctx, job.DataSourceID)
	if err != nil {
		return budget, err
	}

	culture := s.cfg.DefaultCulture
	sheet := ""
	var persisted inference.HeaderMapping
	if mapping != nil {
		if strings.TrimSpace(mapping.Culture) != "" {
			culture = strings.TrimSpace(mapping.Culture)
		}
		if mapping.SheetName != nil {
			sheet = *mapping.SheetName
		}
		persisted = mapping.ColumnMap
	}
	loc, err := parser.LookupLocale(culture)
	if err != nil {
		return budget, err
	}

	src, err := parser.Open(job.FilePath, s.files.Open, sheet)
	if err != nil {
		return budget, err
	}

	headers, _, err := src.Headers(ctx)
	if err != nil {
		return budget, err
	}
	headerMap := s.matcher.Resolve(headers, persisted)
	if missing := headerMap.Missing(); len(missing) > 0 {
		return budget, fmt.Errorf("Missing column mapping for: %s.", inference.FormatFields(missing))
	}
	logger.Debug("columns resolved",
		slog.String("culture", loc.String()),
		slog.Any("mapping", headerMap),
	)

	rowParser := parser.NewRowParser(loc)
	dims := NewDimensionResolver(s.repo)

	batch := make([]repository.FactRecord, 0, s.cfg.BatchSize)
	seenDates := make(map[int]bool)
	var pendingDates []repository.DimDate

	flush := func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(pendingDates) > 0 {
			if err := s.repo.EnsureDates(ctx, pendingDates); err != nil {
				return err
			}
			pendingDates = pendingDates[:0]
		}
		if len(batch) == 0 {
			return nil
		}
		if err := s.repo.AppendFacts(ctx, batch); err != nil {
			return err
		}
		s.metrics.rows(len(batch))
		logger.Debug("facts flushed", slog.Int("count", len(batch)), slog.Int("rows", budget.Rows))
		batch = batch[:0]
		return nil
	}

	for row, err := range src.Rows(ctx) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return budget, ctxErr
		}
		if err != nil {
			var rowErr *parser.RowError
			if errors.As(err, &rowErr) {
				budget.Record(rowErr)
				continue
			}
			return budget, err
		}

		fact, err := rowParser.Parse(row, headerMap)
		if err != nil {
			budget.Record(err)
			continue
		}

		dateKey := repository.DateKey(fact.Date)
		if !seenDates[dateKey] {
			seenDates[dateKey] = true
			pendingDates = append(pendingDates, repository.NewDimDate(fact.Date))
		}
		productKey, err := dims.Resolve(ctx, repository.DimProduct, fact.Product)
		if err != nil {
			return budget, fmt.Errorf("failed to resolve product: %w", err)
		}
		customerKey, err := dims.Resolve(ctx, repository.DimCustomer, fact.Customer)
		if err != nil {
			return budget, fmt.Errorf("failed to resolve customer: %w", err)
		}

		batch = append(batch, repository.FactRecord{
			DataSourceID: job.DataSourceID,
			ImportID:     job.ID,
			DateKey:      dateKey,
			ProductKey:   productKey,
			CustomerKey:  customerKey,
			Quantity:     fact.Quantity,
			Amount:       fact.Amount,
		})
		budget.Success()

		if len(batch) >= s.cfg.BatchSize {
			if err := flush(); err != nil {
				return budget, err
			}
		}
	}

	return budget, flush()
}

// fail marks job Failed. The state is saved even when ctx is cancelled.
func (s *ImportService) fail(ctx context.Context, job *repository.ImportJob, msg string, logger *slog.Logger) ImportResult {
	saveCtx := context.WithoutCancel(ctx)
	trace.SpanFromContext(ctx).SetStatus(codes.Error, msg)

	now := s.now()
	job.Status = repository.StatusFailed
	job.ErrorMessage = &msg
	job.CompletedAt = &now
	if err := s.repo.SaveImport(saveCtx, job); err != nil {
		logger.Error("failed to save failed import", slog.Any("error", err))
	}
	logger.Warn("import failed", slog.String("reason", msg))

	if s.notifier != nil {
		if err := s.notifier.ImportFailed(saveCtx, job, msg); err != nil {
			logger.Warn("failed to send import failure notification", slog.Any("error", err))
		}
	}
	return rejected(msg)
}

func rejected(msg string) ImportResult {
	return ImportResult{Error: &msg}
}

// SweepStaged parses Staged imports older than minAge, at most workers at a
// time, and returns how many were attempted.
func (s *ImportService) SweepStaged(ctx context.Context, minAge time.Duration, limit, workers int) (int, error) {
	jobs, err := s.repo.ListStagedImports(ctx, s.now().Add(-minAge), limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list staged imports: %w", err)
	}
	if workers <= 0 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, job := range jobs {
		id := job.ID
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := s.ParseAndImport(gctx, id)
			if !res.Success {
				s.logger.Debug("swept import not parsed", slog.Int64("import_id", id), slog.String("reason", *res.Error))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return len(jobs), err
	}
	return len(jobs), nil
}
