// Package service computes sales analytics over imported facts.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/sales-analytics/internal/domain/analytics/repository"
	"github.com/FACorreiaa/sales-analytics/internal/domain/import/parser"
	importrepo "github.com/FACorreiaa/sales-analytics/internal/domain/import/repository"
	"github.com/FACorreiaa/sales-analytics/pkg/money"
)

const (
	DefaultTop         = 10
	DashboardTop       = 5
	DefaultSearchLimit = 10
	dimensionDate      = "date"
)

// ErrInvalidDimension is returned for a group-by or search dimension other
// than product, customer or date.
var ErrInvalidDimension = errors.New("invalid dimension")

// Summary holds the headline figures of a data source.
type Summary struct {
	Total          decimal.Decimal `json:"total"`
	Average        decimal.Decimal `json:"average"`
	Min            decimal.Decimal `json:"min"`
	Max            decimal.Decimal `json:"max"`
	Count          int64           `json:"count"`
	FormattedTotal string          `json:"formattedTotal"`
}

// MonthlyPoint is one month of the trend, dated on the first of the month.
type MonthlyPoint struct {
	Month  time.Time       `json:"month"`
	Total  decimal.Decimal `json:"total"`
	Orders int64           `json:"orders"`
}

type Dashboard struct {
	Summary      Summary                    `json:"summary"`
	Monthly      []MonthlyPoint             `json:"monthly"`
	TopProducts  []repository.CategoryPoint `json:"topProducts"`
	TopCustomers []repository.CategoryPoint `json:"topCustomers"`
}

// SearchHit is a dimension name ranked by edit distance to the query.
type SearchHit struct {
	Name     string `json:"name"`
	Distance int    `json:"distance"`
}

// Service answers analytics queries for one currency and display culture.
type Service struct {
	repo     repository.Repository
	currency string
	culture  string
	tracer   trace.Tracer
	logger   *slog.Logger
}

func NewService(repo repository.Repository, culture string, logger *slog.Logger) *Service {
	if culture == "" {
		culture = parser.DefaultCulture
	}
	return &Service{
		repo:     repo,
		currency: money.DefaultCurrency,
		culture:  culture,
		tracer:   otel.Tracer("github.com/FACorreiaa/sales-analytics/analytics"),
		logger:   logger,
	}
}

func (s *Service) start(ctx context.Context, name string, f repository.Filter) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "analytics."+name, trace.WithAttributes(attribute.Int64("data_source.id", f.DataSourceID)))
}

// Summary returns total, average, min, max and fact count.
func (s *Service) Summary(ctx context.Context, f repository.Filter) (Summary, error) {
	ctx, span := s.start(ctx, "Summary", f)
	defer span.End()

	t, err := s.repo.Totals(ctx, f)
	if err != nil {
		span.RecordError(err)
		return Summary{}, err
	}
	avg := decimal.Zero
	if t.Count > 0 {
		avg = t.Total.Div(decimal.NewFromInt(t.Count)).Round(2)
	}
	return Summary{
		Total:          t.Total,
		Average:        avg,
		Min:            t.Min,
		Max:            t.Max,
		Count:          t.Count,
		FormattedTotal: money.NewFromDecimal(t.Total, s.currency).Format(s.culture),
	}, nil
}

// MonthlyTrend returns monthly totals in calendar order.
func (s *Service) MonthlyTrend(ctx context.Context, f repository.Filter) ([]MonthlyPoint, error) {
	ctx, span := s.start(ctx, "MonthlyTrend", f)
	defer span.End()

	rows, err := s.repo.Monthly(ctx, f)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	out := make([]MonthlyPoint, 0, len(rows))
	for _, r := range rows {
		out = append(out, MonthlyPoint{
			Month:  time.Date(r.Year, time.Month(r.Month), 1, 0, 0, 0, 0, time.UTC),
			Total:  r.Total,
			Orders: r.Orders,
		})
	}
	return out, nil
}

func (s *Service) TopProducts(ctx context.Context, f repository.Filter, top int) ([]repository.CategoryPoint, error) {
	return s.top(ctx, "TopProducts", f, importrepo.DimProduct, top)
}

func (s *Service) TopCustomers(ctx context.Context, f repository.Filter, top int) ([]repository.CategoryPoint, error) {
	return s.top(ctx, "TopCustomers", f, importrepo.DimCustomer, top)
}

func (s *Service) top(ctx context.Context, name string, f repository.Filter, kind importrepo.DimensionKind, top int) ([]repository.CategoryPoint, error) {
	ctx, span := s.start(ctx, name, f)
	defer span.End()

	if top <= 0 {
		top = DefaultTop
	}
	points, err := s.repo.ByDimension(ctx, f, kind, top)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return nonNil(points), nil
}

// GroupBy totals every product, customer or date. Dates come back as
// yyyy-MM-dd in calendar order; the others largest first.
func (s *Service) GroupBy(ctx context.Context, f repository.Filter, dimension string) ([]repository.CategoryPoint, error) {
	ctx, span := s.start(ctx, "GroupBy", f)
	defer span.End()
	span.SetAttributes(attribute.String("analytics.dimension", dimension))

	var (
		points []repository.CategoryPoint
		err    error
	)
	if strings.EqualFold(dimension, dimensionDate) {
		points, err = s.repo.ByDate(ctx, f)
	} else {
		kind, ok := parseKind(dimension)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDimension, dimension)
		}
		points, err = s.repo.ByDimension(ctx, f, kind, 0)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return nonNil(points), nil
}

// Dashboard combines the summary, the monthly trend and the top five
// products and customers.
func (s *Service) Dashboard(ctx context.Context, f repository.Filter) (*Dashboard, error) {
	summary, err := s.Summary(ctx, f)
	if err != nil {
		return nil, err
	}
	monthly, err := s.MonthlyTrend(ctx, f)
	if err != nil {
		return nil, err
	}
	products, err := s.TopProducts(ctx, f, DashboardTop)
	if err != nil {
		return nil, err
	}
	customers, err := s.TopCustomers(ctx, f, DashboardTop)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		Summary:      summary,
		Monthly:      monthly,
		TopProducts:  products,
		TopCustomers: customers,
	}, nil
}

// Search finds product or customer names of the data source that fuzzily
// contain query, closest first.
func (s *Service) Search(ctx context.Context, dataSourceID int64, dimension, query string, limit int) ([]SearchHit, error) {
	ctx, span := s.start(ctx, "Search", repository.Filter{DataSourceID: dataSourceID})
	defer span.End()

	kind, ok := parseKind(dimension)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDimension, dimension)
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchHit{}, nil
	}

	names, err := s.repo.DimensionNames(ctx, dataSourceID, kind)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	ranks := fuzzy.RankFindNormalizedFold(query, names)
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].Target < ranks[j].Target
	})

	hits := make([]SearchHit, 0, min(limit, len(ranks)))
	for _, r := range ranks {
		if len(hits) == limit {
			break
		}
		hits = append(hits, SearchHit{Name: r.Target, Distance: r.Distance})
	}
	return hits, nil
}

// ExportCSV writes every matching fact as CSV with a header row.
func (s *Service) ExportCSV(ctx context.Context, f repository.Filter, w io.Writer) (int, error) {
	ctx, span := s.start(ctx, "ExportCSV", f)
	defer span.End()

	var rows []repository.ExportRow
	err := s.repo.ExportRows(ctx, f, func(r repository.ExportRow) error {
		rows = append(rows, r)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return 0, fmt.Errorf("failed to write export: %w", err)
	}
	s.logger.Debug("sales exported", slog.Int64("data_source_id", f.DataSourceID), slog.Int("rows", len(rows)))
	return len(rows), nil
}

func parseKind(dimension string) (importrepo.DimensionKind, bool) {
	switch strings.ToLower(strings.TrimSpace(dimension)) {
	case "product", "products":
		return importrepo.DimProduct, true
	case "customer", "customers":
		return importrepo.DimCustomer, true
	}
	return "", false
}

func nonNil(points []repository.CategoryPoint) []repository.CategoryPoint {
	if points == nil {
		return []repository.CategoryPoint{}
	}
	return points
}
