package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FACorreiaa/sales-analytics/internal/domain/import/inference"
)

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

const uniqueViolation = "23505"

// FactColumns is the column order used when copying facts.
var FactColumns = []string{"data_source_id", "import_id", "date_key", "product_key", "customer_key", "quantity", "amount"}

// PostgresImportRepository implements ImportRepository using PostgreSQL
type PostgresImportRepository struct {
	db DBTX
}

func NewPostgresImportRepository(db DBTX) *PostgresImportRepository {
	return &PostgresImportRepository{db: db}
}

// DimensionTable returns the table and key column of a dimension kind.
func DimensionTable(kind DimensionKind) (table, key string, err error) {
	switch kind {
	case DimProduct:
		return "dim_product", "product_key", nil
	case DimCustomer:
		return "dim_customer", "customer_key", nil
	}
	return "", "", fmt.Errorf("unknown dimension kind %q", kind)
}

// FindDimension looks up a dimension entry by exact name.
func (r *PostgresImportRepository) FindDimension(ctx context.Context, kind DimensionKind, name string) (int64, bool, error) {
	table, key, err := DimensionTable(kind)
	if err != nil {
		return 0, false, err
	}

	var id int64
	err = r.db.QueryRow(ctx, `SELECT `+key+` FROM `+table+` WHERE name = $1`, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to find %s: %w", kind, err)
	}
	return id, true, nil
}

// CreateDimension inserts name. A concurrent insert of the same name makes the
// statement return no row, reported as ErrDuplicate.
func (r *PostgresImportRepository) CreateDimension(ctx context.Context, kind DimensionKind, name string) (int64, error) {
	table, key, err := DimensionTable(kind)
	if err != nil {
		return 0, err
	}

	query := `INSERT INTO ` + table + ` (name) VALUES ($1)
		ON CONFLICT (name) DO NOTHING
		RETURNING ` + key

	var id int64
	err = r.db.QueryRow(ctx, query, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrDuplicate
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return 0, ErrDuplicate
	}
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", kind, err)
	}
	return id, nil
}

// AppendFacts copies facts into fact_sales in one round trip.
func (r *PostgresImportRepository) AppendFacts(ctx context.Context, facts []FactRecord) error {
	if len(facts) == 0 {
		return nil
	}

	src := pgx.CopyFromSlice(len(facts), func(i int) ([]any, error) {
		f := facts[i]
		return []any{f.DataSourceID, f.ImportID, f.DateKey, f.ProductKey, f.CustomerKey, f.Quantity, f.Amount}, nil
	})
	n, err := r.db.CopyFrom(ctx, pgx.Identifier{"fact_sales"}, FactColumns, src)
	if err != nil {
		return fmt.Errorf("failed to append facts: %w", err)
	}
	if n != int64(len(facts)) {
		return fmt.Errorf("failed to append facts: copied %d of %d rows", n, len(facts))
	}
	return nil
}

// EnsureDates inserts missing calendar rows.
func (r *PostgresImportRepository) EnsureDates(ctx context.Context, dates []DimDate) error {
	query := `
		INSERT INTO dim_date (date_key, date, year, quarter, month, month_name, month_name_el, day, iso_week)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (date_key) DO NOTHING`

	for _, d := range dates {
		_, err := r.db.Exec(ctx, query,
			d.DateKey, d.Date, d.Year, d.Quarter, d.Month, d.MonthName, d.MonthNameEl, d.Day, d.ISOWeek,
		)
		if err != nil {
			return fmt.Errorf("failed to ensure date %d: %w", d.DateKey, err)
		}
	}
	return nil
}

func (r *PostgresImportRepository) GetMapping(ctx context.Context, dataSourceID int64) (*DataSourceMapping, error) {
	return getMapping(ctx, r.db, dataSourceID)
}

const importColumns = `id, data_source_id, file_path, original_name, status, rows, error_message, started_at, completed_at`

func scanImport(row pgx.Row) (*ImportJob, error) {
	job := &ImportJob{}
	err := row.Scan(
		&job.ID,
		&job.DataSourceID,
		&job.FilePath,
		&job.OriginalName,
		&job.Status,
		&job.Rows,
		&job.ErrorMessage,
		&job.StartedAt,
		&job.CompletedAt,
	)
	return job, err
}

func (r *PostgresImportRepository) GetImport(ctx context.Context, id int64) (*ImportJob, error) {
	job, err := scanImport(r.db.QueryRow(ctx, `SELECT `+importColumns+` FROM imports WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get import: %w", err)
	}
	return job, nil
}

// ClaimImport takes a Staged import that nobody else has claimed.
func (r *PostgresImportRepository) ClaimImport(ctx context.Context, id int64) (*ImportJob, error) {
	query := `
		UPDATE imports
		SET claimed_at = now()
		WHERE id = $1 AND status = $2 AND claimed_at IS NULL
		RETURNING ` + importColumns

	job, err := scanImport(r.db.QueryRow(ctx, query, id, StatusStaged))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotStaged
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim import: %w", err)
	}
	return job, nil
}

// SaveImport persists the terminal status fields of job. It only touches
// rows that are still Staged.
func (r *PostgresImportRepository) SaveImport(ctx context.Context, job *ImportJob) error {
	query := `
		UPDATE imports
		SET status = $2, rows = $3, error_message = $4, completed_at = $5
		WHERE id = $1 AND status = $6`

	result, err := r.db.Exec(ctx, query, job.ID, job.Status, job.Rows, job.ErrorMessage, job.CompletedAt, StatusStaged)
	if err != nil {
		return fmt.Errorf("failed to save import: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotStaged
	}
	return nil
}

// CreateImport stages a new import and fills in its ID and start time.
func (r *PostgresImportRepository) CreateImport(ctx context.Context, job *ImportJob) error {
	query := `
		INSERT INTO imports (data_source_id, file_path, original_name, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, started_at`

	if job.Status == "" {
		job.Status = StatusStaged
	}
	err := r.db.QueryRow(ctx, query, job.DataSourceID, job.FilePath, job.OriginalName, job.Status).
		Scan(&job.ID, &job.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create import: %w", err)
	}
	return nil
}

// ListStagedImports returns the oldest unclaimed staged imports started
// before olderThan.
func (r *PostgresImportRepository) ListStagedImports(ctx context.Context, olderThan time.Time, limit int) ([]*ImportJob, error) {
	query := `SELECT ` + importColumns + `
		FROM imports
		WHERE status = $1 AND claimed_at IS NULL AND started_at < $2
		ORDER BY started_at
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, StatusStaged, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list staged imports: %w", err)
	}
	defer rows.Close()

	var jobs []*ImportJob
	for rows.Next() {
		job, err := scanImport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan import: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func getMapping(ctx context.Context, db DBTX, dataSourceID int64) (*DataSourceMapping, error) {
	query := `
		SELECT data_source_id, kind, sheet_name, culture, column_map, created_at, updated_at
		FROM data_source_mappings
		WHERE data_source_id = $1`

	m := &DataSourceMapping{}
	var raw []byte
	err := db.QueryRow(ctx, query, dataSourceID).Scan(
		&m.DataSourceID,
		&m.Kind,
		&m.SheetName,
		&m.Culture,
		&raw,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mapping: %w", err)
	}

	if m.ColumnMap, err = DecodeColumnMap(raw); err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeColumnMap reads a stored column map. Field names are matched without
// regard to case and unknown fields are dropped.
func DecodeColumnMap(raw []byte) (inference.HeaderMapping, error) {
	out := inference.HeaderMapping{}
	if len(raw) == 0 {
		return out, nil
	}

	var stored map[string]*string
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode column map: %w", err)
	}
	for name, header := range stored {
		field, ok := inference.ParseField(name)
		if !ok || header == nil {
			continue
		}
		out[field] = *header
	}
	return out, nil
}

// EncodeColumnMap writes a column map with every canonical field present,
// unmapped ones as null.
func EncodeColumnMap(m inference.HeaderMapping) ([]byte, error) {
	stored := make(map[string]*string, len(inference.Fields))
	for _, f := range inference.Fields {
		if h := m.Header(f); h != "" {
			stored[string(f)] = &h
		} else {
			stored[string(f)] = nil
		}
	}
	b, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to encode column map: %w", err)
	}
	return b, nil
}
