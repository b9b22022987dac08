package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/sales-analytics/internal/domain/import/inference"
	"github.com/FACorreiaa/sales-analytics/internal/domain/import/repository"
)

func newService() (*Service, *repository.MemoryRepository) {
	repo := repository.NewMemoryRepository()
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil))), repo
}

func ptr(s string) *string { return &s }

func TestCreate(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	ds, err := svc.Create(ctx, "u1", CreateInput{Name: "  Shop A  "})
	require.NoError(t, err)
	assert.Equal(t, "Shop A", ds.Name)
	assert.Equal(t, repository.DataSourceSales, ds.Type)
	assert.Equal(t, "u1", ds.OwnerID)

	_, err = svc.Create(ctx, "u1", CreateInput{Name: " "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, "u1", CreateInput{Name: "X", Type: "Inventory"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGet_OwnerScoped(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	ds, err := svc.Create(ctx, "u1", CreateInput{Name: "Shop"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, "u1", ds.ID)
	require.NoError(t, err)
	assert.Equal(t, ds.ID, got.ID)

	_, err = svc.Get(ctx, "u2", ds.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	list, err := svc.List(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpsertMapping(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	ds, err := svc.Create(ctx, "u1", CreateInput{Name: "Shop"})
	require.NoError(t, err)

	m, err := svc.UpsertMapping(ctx, "u1", ds.ID, MappingInput{
		SheetName: ptr(" Sales "),
		Map: map[string]*string{
			"date":     ptr("Ημερομηνία"),
			"Product":  ptr("Είδος"),
			"Customer": ptr("Πελάτης"),
			"Quantity": nil,
			"Amount":   ptr(" Αξία "),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "el-GR", m.Culture)
	assert.Equal(t, "Sales", m.Kind)
	assert.Equal(t, "Sales", *m.SheetName)
	assert.Equal(t, inference.HeaderMapping{
		inference.FieldDate:     "Ημερομηνία",
		inference.FieldProduct:  "Είδος",
		inference.FieldCustomer: "Πελάτης",
		inference.FieldAmount:   "Αξία",
	}, m.ColumnMap)

	stored, err := svc.Mapping(ctx, "u1", ds.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ColumnMap, stored.ColumnMap)

	_, err = svc.Mapping(ctx, "u2", ds.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpsertMapping_Invalid(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	ds, err := svc.Create(ctx, "u1", CreateInput{Name: "Shop"})
	require.NoError(t, err)

	tests := []struct {
		name string
		in   MappingInput
	}{
		{"unknown culture", MappingInput{Culture: "??"}},
		{"unknown field", MappingInput{Map: map[string]*string{"Price": ptr("Τιμή")}}},
		{"header reused", MappingInput{Map: map[string]*string{"Product": ptr("Name"), "Customer": ptr("name")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpsertMapping(ctx, "u1", ds.ID, tt.in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	_, err = svc.UpsertMapping(ctx, "u1", 999, MappingInput{})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
