package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// PostgresDataSourceRepository implements DataSourceRepository using PostgreSQL
type PostgresDataSourceRepository struct {
	db DBTX
}

func NewPostgresDataSourceRepository(db DBTX) *PostgresDataSourceRepository {
	return &PostgresDataSourceRepository{db: db}
}

func (r *PostgresDataSourceRepository) CreateDataSource(ctx context.Context, ds *DataSource) error {
	query := `
		INSERT INTO data_sources (name, type, owner_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	if ds.Type == "" {
		ds.Type = DataSourceSales
	}
	err := r.db.QueryRow(ctx, query, strings.TrimSpace(ds.Name), ds.Type, ds.OwnerID).Scan(&ds.ID, &ds.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create data source: %w", err)
	}
	return nil
}

func (r *PostgresDataSourceRepository) GetDataSource(ctx context.Context, id int64) (*DataSource, error) {
	query := `SELECT id, name, type, owner_id, created_at FROM data_sources WHERE id = $1`

	ds := &DataSource{}
	err := r.db.QueryRow(ctx, query, id).Scan(&ds.ID, &ds.Name, &ds.Type, &ds.OwnerID, &ds.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get data source: %w", err)
	}
	return ds, nil
}

// ListDataSources returns the owner's data sources, newest first.
func (r *PostgresDataSourceRepository) ListDataSources(ctx context.Context, ownerID string) ([]*DataSource, error) {
	query := `
		SELECT id, name, type, owner_id, created_at
		FROM data_sources
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list data sources: %w", err)
	}
	defer rows.Close()

	var out []*DataSource
	for rows.Next() {
		ds := &DataSource{}
		if err := rows.Scan(&ds.ID, &ds.Name, &ds.Type, &ds.OwnerID, &ds.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan data source: %w", err)
		}
		out = append(out, ds)
	}
	return out, rows.Err()
}

func (r *PostgresDataSourceRepository) GetMapping(ctx context.Context, dataSourceID int64) (*DataSourceMapping, error) {
	return getMapping(ctx, r.db, dataSourceID)
}

// UpsertMapping creates or replaces the mapping of a data source.
func (r *PostgresDataSourceRepository) UpsertMapping(ctx context.Context, m *DataSourceMapping) error {
	raw, err := EncodeColumnMap(m.ColumnMap)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO data_source_mappings (data_source_id, kind, sheet_name, culture, column_map)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (data_source_id) DO UPDATE SET
			kind = EXCLUDED.kind,
			sheet_name = EXCLUDED.sheet_name,
			culture = EXCLUDED.culture,
			column_map = EXCLUDED.column_map,
			updated_at = now()
		RETURNING created_at, updated_at`

	err = r.db.QueryRow(ctx, query, m.DataSourceID, m.Kind, m.SheetName, m.Culture, raw).
		Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save mapping: %w", err)
	}
	return nil
}
