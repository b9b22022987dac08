// Package repository reads aggregates from the sales star schema.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	importrepo "github.com/FACorreiaa/sales-analytics/internal/domain/import/repository"
)

// DBTX is the read subset of pgxpool.Pool used here.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Filter restricts facts to one data source and an optional inclusive date
// range.
type Filter struct {
	DataSourceID int64
	From         *time.Time
	To           *time.Time
}

// bounds returns the date keys of the range, nil when open.
func (f Filter) bounds() (from, to *int) {
	if f.From != nil {
		k := importrepo.DateKey(*f.From)
		from = &k
	}
	if f.To != nil {
		k := importrepo.DateKey(*f.To)
		to = &k
	}
	return from, to
}

// Totals are the raw aggregates behind a summary.
type Totals struct {
	Total decimal.Decimal
	Min   decimal.Decimal
	Max   decimal.Decimal
	Count int64
}

type MonthPoint struct {
	Year   int
	Month  int
	Total  decimal.Decimal
	Orders int64
}

type CategoryPoint struct {
	Label string          `json:"label"`
	Total decimal.Decimal `json:"total"`
}

// ExportRow is one fact with its dimensions resolved.
type ExportRow struct {
	ImportID int64           `csv:"import_id"`
	Date     string          `csv:"date"`
	Product  string          `csv:"product"`
	Customer string          `csv:"customer"`
	Quantity int             `csv:"quantity"`
	Amount   decimal.Decimal `csv:"amount"`
}

// Repository is the analytics read model.
type Repository interface {
	Totals(ctx context.Context, f Filter) (Totals, error)
	Monthly(ctx context.Context, f Filter) ([]MonthPoint, error)
	// ByDimension sums amounts per product or customer, largest first. A
	// limit of 0 returns every entry.
	ByDimension(ctx context.Context, f Filter, kind importrepo.DimensionKind, limit int) ([]CategoryPoint, error)
	ByDate(ctx context.Context, f Filter) ([]CategoryPoint, error)
	DimensionNames(ctx context.Context, dataSourceID int64, kind importrepo.DimensionKind) ([]string, error)
	ExportRows(ctx context.Context, f Filter, fn func(ExportRow) error) error
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db DBTX
}

func NewPostgresRepository(db DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const factFilter = `f.data_source_id = $1
		  AND ($2::int IS NULL OR f.date_key >= $2)
		  AND ($3::int IS NULL OR f.date_key <= $3)`

func (r *PostgresRepository) args(f Filter, extra ...any) []any {
	from, to := f.bounds()
	return append([]any{f.DataSourceID, from, to}, extra...)
}

func (r *PostgresRepository) Totals(ctx context.Context, f Filter) (Totals, error) {
	query := `
		SELECT COALESCE(SUM(f.amount), 0), COALESCE(MIN(f.amount), 0), COALESCE(MAX(f.amount), 0), COUNT(*)
		FROM fact_sales f
		WHERE ` + factFilter

	var t Totals
	err := r.db.QueryRow(ctx, query, r.args(f)...).Scan(&t.Total, &t.Min, &t.Max, &t.Count)
	if err != nil {
		return Totals{}, fmt.Errorf("failed to load totals: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) Monthly(ctx context.Context, f Filter) ([]MonthPoint, error) {
	query := `
		SELECT d.year, d.month, SUM(f.amount), COUNT(*)
		FROM fact_sales f
		JOIN dim_date d ON d.date_key = f.date_key
		WHERE ` + factFilter + `
		GROUP BY d.year, d.month
		ORDER BY d.year, d.month`

	rows, err := r.db.Query(ctx, query, r.args(f)...)
	if err != nil {
		return nil, fmt.Errorf("failed to load monthly trend: %w", err)
	}
	defer rows.Close()

	var out []MonthPoint
	for rows.Next() {
		var p MonthPoint
		if err := rows.Scan(&p.Year, &p.Month, &p.Total, &p.Orders); err != nil {
			return nil, fmt.Errorf("failed to scan monthly trend: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) ByDimension(ctx context.Context, f Filter, kind importrepo.DimensionKind, limit int) ([]CategoryPoint, error) {
	table, key, err := importrepo.DimensionTable(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT d.name, SUM(f.amount) AS total
		FROM fact_sales f
		JOIN %s d ON d.%s = f.%s
		WHERE `+factFilter+`
		GROUP BY d.name
		ORDER BY total DESC, d.name
		LIMIT $4`, table, key, key)

	var lim *int
	if limit > 0 {
		lim = &limit
	}
	return r.categories(ctx, query, r.args(f, lim)...)
}

func (r *PostgresRepository) ByDate(ctx context.Context, f Filter) ([]CategoryPoint, error) {
	query := `
		SELECT to_char(d.date, 'YYYY-MM-DD'), SUM(f.amount)
		FROM fact_sales f
		JOIN dim_date d ON d.date_key = f.date_key
		WHERE ` + factFilter + `
		GROUP BY d.date
		ORDER BY d.date`

	return r.categories(ctx, query, r.args(f)...)
}

func (r *PostgresRepository) categories(ctx context.Context, query string, args ...any) ([]CategoryPoint, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load totals: %w", err)
	}
	defer rows.Close()

	var out []CategoryPoint
	for rows.Next() {
		var p CategoryPoint
		if err := rows.Scan(&p.Label, &p.Total); err != nil {
			return nil, fmt.Errorf("failed to scan totals: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DimensionNames lists the product or customer names that occur in the
// data source's facts.
func (r *PostgresRepository) DimensionNames(ctx context.Context, dataSourceID int64, kind importrepo.DimensionKind) ([]string, error) {
	table, key, err := importrepo.DimensionTable(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT DISTINCT d.name
		FROM fact_sales f
		JOIN %s d ON d.%s = f.%s
		WHERE f.data_source_id = $1
		ORDER BY d.name`, table, key, key)

	rows, err := r.db.Query(ctx, query, dataSourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s names: %w", kind, err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s names: %w", kind, err)
	}
	return names, nil
}

// ExportRows streams facts in date order to fn.
func (r *PostgresRepository) ExportRows(ctx context.Context, f Filter, fn func(ExportRow) error) error {
	query := `
		SELECT f.import_id, to_char(d.date, 'YYYY-MM-DD'), p.name, c.name, f.quantity, f.amount
		FROM fact_sales f
		JOIN dim_date d ON d.date_key = f.date_key
		JOIN dim_product p ON p.product_key = f.product_key
		JOIN dim_customer c ON c.customer_key = f.customer_key
		WHERE ` + factFilter + `
		ORDER BY f.date_key, f.id`

	rows, err := r.db.Query(ctx, query, r.args(f)...)
	if err != nil {
		return fmt.Errorf("failed to export facts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row ExportRow
		if err := rows.Scan(&row.ImportID, &row.Date, &row.Product, &row.Customer, &row.Quantity, &row.Amount); err != nil {
			return fmt.Errorf("failed to scan fact: %w", err)
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return rows.Err()
}
