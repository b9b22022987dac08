package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/sales-analytics/internal/domain/analytics/repository"
	importrepo "github.com/FACorreiaa/sales-analytics/internal/domain/import/repository"
)

type fakeRepo struct {
	totals     repository.Totals
	monthly    []repository.MonthPoint
	byDim      map[importrepo.DimensionKind][]repository.CategoryPoint
	byDate     []repository.CategoryPoint
	names      []string
	export     []repository.ExportRow
	err        error
	limits     []int
	lastKind   importrepo.DimensionKind
	lastFilter repository.Filter
}

func (f *fakeRepo) Totals(_ context.Context, flt repository.Filter) (repository.Totals, error) {
	f.lastFilter = flt
	return f.totals, f.err
}

func (f *fakeRepo) Monthly(_ context.Context, _ repository.Filter) ([]repository.MonthPoint, error) {
	return f.monthly, f.err
}

func (f *fakeRepo) ByDimension(_ context.Context, _ repository.Filter, kind importrepo.DimensionKind, limit int) ([]repository.CategoryPoint, error) {
	f.limits = append(f.limits, limit)
	f.lastKind = kind
	if f.err != nil {
		return nil, f.err
	}
	points := f.byDim[kind]
	if limit > 0 && len(points) > limit {
		points = points[:limit]
	}
	return points, nil
}

func (f *fakeRepo) ByDate(_ context.Context, _ repository.Filter) ([]repository.CategoryPoint, error) {
	return f.byDate, f.err
}

func (f *fakeRepo) DimensionNames(_ context.Context, _ int64, kind importrepo.DimensionKind) ([]string, error) {
	f.lastKind = kind
	return f.names, f.err
}

func (f *fakeRepo) ExportRows(_ context.Context, _ repository.Filter, fn func(repository.ExportRow) error) error {
	if f.err != nil {
		return f.err
	}
	for _, r := range f.export {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newService(repo repository.Repository) *Service {
	return NewService(repo, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func point(label, total string) repository.CategoryPoint {
	return repository.CategoryPoint{Label: label, Total: dec(total)}
}

func TestSummary(t *testing.T) {
	repo := &fakeRepo{totals: repository.Totals{Total: dec("1301.50"), Min: dec("1.50"), Max: dec("1000"), Count: 3}}
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := repository.Filter{DataSourceID: 4, From: &from}

	got, err := newService(repo).Summary(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, f, repo.lastFilter)
	assert.True(t, dec("433.83").Equal(got.Average), got.Average.String())
	assert.Equal(t, int64(3), got.Count)
	assert.Equal(t, "1.301,50 €", got.FormattedTotal)
}

func TestSummary_Empty(t *testing.T) {
	got, err := newService(&fakeRepo{}).Summary(context.Background(), repository.Filter{DataSourceID: 1})
	require.NoError(t, err)
	assert.True(t, got.Average.IsZero())
	assert.True(t, got.Total.IsZero())
	assert.Zero(t, got.Count)
}

func TestMonthlyTrend(t *testing.T) {
	repo := &fakeRepo{monthly: []repository.MonthPoint{
		{Year: 2024, Month: 1, Total: dec("10"), Orders: 1},
		{Year: 2024, Month: 12, Total: dec("20"), Orders: 2},
	}}

	got, err := newService(repo).MonthlyTrend(context.Background(), repository.Filter{DataSourceID: 1})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), got[1].Month)
	assert.Equal(t, int64(2), got[1].Orders)
}

func TestTopProductsAndCustomers(t *testing.T) {
	repo := &fakeRepo{byDim: map[importrepo.DimensionKind][]repository.CategoryPoint{
		importrepo.DimProduct:  {point("Καφές", "90"), point("Τσάι", "10")},
		importrepo.DimCustomer: {point("Alpha", "70"), point("Beta", "30")},
	}}
	svc := newService(repo)
	f := repository.Filter{DataSourceID: 1}

	products, err := svc.TopProducts(context.Background(), f, 0)
	require.NoError(t, err)
	assert.Equal(t, "Καφές", products[0].Label)
	assert.Equal(t, DefaultTop, repo.limits[0])

	customers, err := svc.TopCustomers(context.Background(), f, 1)
	require.NoError(t, err)
	assert.Equal(t, []repository.CategoryPoint{point("Alpha", "70")}, customers)
	assert.Equal(t, importrepo.DimCustomer, repo.lastKind)
}

func TestGroupBy(t *testing.T) {
	repo := &fakeRepo{
		byDim:  map[importrepo.DimensionKind][]repository.CategoryPoint{importrepo.DimCustomer: {point("Alpha", "5")}},
		byDate: []repository.CategoryPoint{point("2024-01-01", "3"), point("2024-01-02", "2")},
	}
	svc := newService(repo)
	f := repository.Filter{DataSourceID: 1}

	byDate, err := svc.GroupBy(context.Background(), f, "Date")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", byDate[0].Label)

	byCustomer, err := svc.GroupBy(context.Background(), f, "customer")
	require.NoError(t, err)
	assert.Len(t, byCustomer, 1)
	assert.Equal(t, 0, repo.limits[len(repo.limits)-1])

	byProduct, err := svc.GroupBy(context.Background(), f, "Product")
	require.NoError(t, err)
	assert.NotNil(t, byProduct)
	assert.Empty(t, byProduct)

	_, err = svc.GroupBy(context.Background(), f, "region")
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestDashboard(t *testing.T) {
	products := []repository.CategoryPoint{
		point("a", "7"), point("b", "6"), point("c", "5"), point("d", "4"), point("e", "3"), point("f", "2"),
	}
	repo := &fakeRepo{
		totals:  repository.Totals{Total: dec("27"), Count: 6},
		monthly: []repository.MonthPoint{{Year: 2024, Month: 3, Total: dec("27"), Orders: 6}},
		byDim:   map[importrepo.DimensionKind][]repository.CategoryPoint{importrepo.DimProduct: products},
	}

	got, err := newService(repo).Dashboard(context.Background(), repository.Filter{DataSourceID: 1})
	require.NoError(t, err)
	assert.True(t, dec("4.5").Equal(got.Summary.Average))
	assert.Len(t, got.Monthly, 1)
	assert.Len(t, got.TopProducts, DashboardTop)
	assert.Empty(t, got.TopCustomers)
	assert.Equal(t, []int{DashboardTop, DashboardTop}, repo.limits)
}

func TestDashboard_Error(t *testing.T) {
	_, err := newService(&fakeRepo{err: errors.New("db down")}).Dashboard(context.Background(), repository.Filter{DataSourceID: 1})
	assert.ErrorContains(t, err, "db down")
}

func TestSearch(t *testing.T) {
	repo := &fakeRepo{names: []string{"Coffee beans", "Tea", "Coffee"}}
	svc := newService(repo)

	hits, err := svc.Search(context.Background(), 1, "product", "COF", 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "Coffee", hits[0].Name)
	assert.Equal(t, "Coffee beans", hits[1].Name)
	assert.Equal(t, importrepo.DimProduct, repo.lastKind)

	hits, err = svc.Search(context.Background(), 1, "product", "cof", 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = svc.Search(context.Background(), 1, "customer", "  ", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = svc.Search(context.Background(), 1, "date", "x", 0)
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestSearch_IgnoresAccentsAndCase(t *testing.T) {
	repo := &fakeRepo{names: []string{"Τσάι", "Καφές"}}

	hits, err := newService(repo).Search(context.Background(), 1, "products", "καφ", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Καφές", hits[0].Name)
}

func TestExportCSV(t *testing.T) {
	repo := &fakeRepo{export: []repository.ExportRow{
		{ImportID: 1, Date: "2024-01-02", Product: "Καφές", Customer: "Alpha", Quantity: 2, Amount: dec("3.5")},
		{ImportID: 2, Date: "2024-01-03", Product: "Τσάι", Customer: "Beta", Quantity: 1, Amount: dec("2")},
	}}
	var buf bytes.Buffer

	n, err := newService(repo).ExportCSV(context.Background(), repository.Filter{DataSourceID: 1}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t,
		"import_id,date,product,customer,quantity,amount\n"+
			"1,2024-01-02,Καφές,Alpha,2,3.5\n"+
			"2,2024-01-03,Τσάι,Beta,1,2\n",
		buf.String())
}
