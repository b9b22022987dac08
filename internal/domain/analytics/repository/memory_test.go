package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	importrepo "github.com/FACorreiaa/sales-analytics/internal/domain/import/repository"
)

func seed(t *testing.T) *MemoryRepository {
	t.Helper()
	store := importrepo.NewMemoryRepository()
	coffee := store.PutDimension(importrepo.DimProduct, "Καφές")
	tea := store.PutDimension(importrepo.DimProduct, "Τσάι")
	alpha := store.PutDimension(importrepo.DimCustomer, "Alpha")
	beta := store.PutDimension(importrepo.DimCustomer, "Beta")

	require.NoError(t, store.AppendFacts(context.Background(), []importrepo.FactRecord{
		{DataSourceID: 1, ImportID: 10, DateKey: 20240115, ProductKey: coffee, CustomerKey: alpha, Quantity: 1, Amount: dec("10")},
		{DataSourceID: 1, ImportID: 10, DateKey: 20240102, ProductKey: tea, CustomerKey: beta, Quantity: 2, Amount: dec("4.50")},
		{DataSourceID: 1, ImportID: 11, DateKey: 20240201, ProductKey: coffee, CustomerKey: beta, Quantity: 1, Amount: dec("20")},
		{DataSourceID: 2, ImportID: 12, DateKey: 20240201, ProductKey: tea, CustomerKey: alpha, Quantity: 1, Amount: dec("99")},
	}))
	return NewMemoryRepository(store)
}

func TestMemoryRepository_Totals(t *testing.T) {
	repo := seed(t)

	got, err := repo.Totals(context.Background(), Filter{DataSourceID: 1})
	require.NoError(t, err)
	assert.True(t, dec("34.50").Equal(got.Total))
	assert.True(t, dec("4.50").Equal(got.Min))
	assert.True(t, dec("20").Equal(got.Max))
	assert.Equal(t, int64(3), got.Count)

	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	got, err = repo.Totals(context.Background(), Filter{DataSourceID: 1, From: &from})
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Count)
}

func TestMemoryRepository_Monthly(t *testing.T) {
	got, err := seed(t).Monthly(context.Background(), Filter{DataSourceID: 1})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].Orders)
	assert.True(t, dec("14.50").Equal(got[0].Total))
	assert.Equal(t, 2, got[1].Month)
}

func TestMemoryRepository_ByDimensionAndDate(t *testing.T) {
	repo := seed(t)
	f := Filter{DataSourceID: 1}

	products, err := repo.ByDimension(context.Background(), f, importrepo.DimProduct, 0)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Καφές", products[0].Label)
	assert.True(t, dec("30").Equal(products[0].Total))

	customers, err := repo.ByDimension(context.Background(), f, importrepo.DimCustomer, 1)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "Beta", customers[0].Label)

	dates, err := repo.ByDate(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-02", "2024-01-15", "2024-02-01"},
		[]string{dates[0].Label, dates[1].Label, dates[2].Label})

	_, err = repo.ByDimension(context.Background(), f, "region", 0)
	assert.Error(t, err)
}

func TestMemoryRepository_NamesAndExport(t *testing.T) {
	repo := seed(t)

	names, err := repo.DimensionNames(context.Background(), 2, importrepo.DimCustomer)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha"}, names)

	var rows []ExportRow
	require.NoError(t, repo.ExportRows(context.Background(), Filter{DataSourceID: 1}, func(r ExportRow) error {
		rows = append(rows, r)
		return nil
	}))
	require.Len(t, rows, 3)
	assert.Equal(t, "2024-01-02", rows[0].Date)
	assert.Equal(t, "Τσάι", rows[0].Product)
	assert.Equal(t, "Beta", rows[0].Customer)
	assert.Equal(t, int64(11), rows[2].ImportID)
}
