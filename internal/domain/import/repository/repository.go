// Package repository provides persistence for data sources, imports and the
// sales star schema.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/sales-analytics/internal/domain/import/inference"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
	// ErrNotStaged is returned when an import is no longer Staged or another
	// worker already claimed it.
	ErrNotStaged = errors.New("import is not staged")
)

// ImportStatus is the lifecycle state of an import. Staged is the only
// non-terminal state.
type ImportStatus string

const (
	StatusStaged ImportStatus = "Staged"
	StatusParsed ImportStatus = "Parsed"
	StatusFailed ImportStatus = "Failed"
)

// DataSourceType classifies what a data source holds.
type DataSourceType string

const (
	DataSourceSales        DataSourceType = "Sales"
	DataSourceSatisfaction DataSourceType = "Satisfaction"
	DataSourceGeneric      DataSourceType = "Generic"
)

// ParseDataSourceType returns the type named s, defaulting to Sales.
func ParseDataSourceType(s string) (DataSourceType, bool) {
	switch DataSourceType(s) {
	case "", DataSourceSales:
		return DataSourceSales, true
	case DataSourceSatisfaction, DataSourceGeneric:
		return DataSourceType(s), true
	}
	return "", false
}

// DataSource is a named feed of uploaded files owned by one user.
type DataSource struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Type      DataSourceType `json:"type"`
	OwnerID   string         `json:"ownerId"`
	CreatedAt time.Time      `json:"createdAt"`
}

// DataSourceMapping is the confirmed column mapping and parse settings of a
// data source.
type DataSourceMapping struct {
	DataSourceID int64                   `json:"dataSourceId"`
	Kind         string                  `json:"kind"`
	SheetName    *string                 `json:"sheetName,omitempty"`
	Culture      string                  `json:"culture"`
	ColumnMap    inference.HeaderMapping `json:"map"`
	CreatedAt    time.Time               `json:"createdAt"`
	UpdatedAt    time.Time               `json:"updatedAt"`
}

// ImportJob is one uploaded file and the outcome of parsing it.
type ImportJob struct {
	ID           int64        `json:"id"`
	DataSourceID int64        `json:"dataSourceId"`
	FilePath     string       `json:"-"`
	OriginalName string       `json:"fileName"`
	Status       ImportStatus `json:"status"`
	Rows         int          `json:"rows"`
	ErrorMessage *string      `json:"errorMessage,omitempty"`
	StartedAt    time.Time    `json:"startedAt"`
	CompletedAt  *time.Time   `json:"completedAt,omitempty"`
}

// DimensionKind selects the product or customer dimension.
type DimensionKind string

const (
	DimProduct  DimensionKind = "product"
	DimCustomer DimensionKind = "customer"
)

// Dimension is a product or customer entry keyed by its surrogate key.
type Dimension struct {
	Key  int64  `json:"key"`
	Name string `json:"name"`
}

// FactRecord is one imported sale.
type FactRecord struct {
	DataSourceID int64
	ImportID     int64
	DateKey      int
	ProductKey   int64
	CustomerKey  int64
	Quantity     int
	Amount       decimal.Decimal
}

// DimensionStore finds and creates dimension entries by exact name.
type DimensionStore interface {
	FindDimension(ctx context.Context, kind DimensionKind, name string) (int64, bool, error)
	// CreateDimension returns ErrDuplicate when another writer created name first.
	CreateDimension(ctx context.Context, kind DimensionKind, name string) (int64, error)
}

type FactStore interface {
	AppendFacts(ctx context.Context, facts []FactRecord) error
}

type DateStore interface {
	EnsureDates(ctx context.Context, dates []DimDate) error
}

type MappingStore interface {
	// GetMapping returns nil without error when the data source has no mapping.
	GetMapping(ctx context.Context, dataSourceID int64) (*DataSourceMapping, error)
}

type JobStore interface {
	GetImport(ctx context.Context, id int64) (*ImportJob, error)
	// ClaimImport marks a Staged import as taken by the caller. Only one
	// caller wins; the rest get ErrNotStaged.
	ClaimImport(ctx context.Context, id int64) (*ImportJob, error)
	// SaveImport records the terminal state of a Staged import.
	SaveImport(ctx context.Context, job *ImportJob) error
}

// ImportRepository is everything the import pipeline persists.
type ImportRepository interface {
	DimensionStore
	FactStore
	DateStore
	MappingStore
	JobStore

	CreateImport(ctx context.Context, job *ImportJob) error
	ListStagedImports(ctx context.Context, olderThan time.Time, limit int) ([]*ImportJob, error)
}

// DataSourceRepository manages data sources and their mappings.
type DataSourceRepository interface {
	MappingStore

	CreateDataSource(ctx context.Context, ds *DataSource) error
	GetDataSource(ctx context.Context, id int64) (*DataSource, error)
	ListDataSources(ctx context.Context, ownerID string) ([]*DataSource, error)
	UpsertMapping(ctx context.Context, m *DataSourceMapping) error
}
