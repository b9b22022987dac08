package repository

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	importrepo "github.com/FACorreiaa/sales-analytics/internal/domain/import/repository"
)

// MemoryRepository aggregates the facts held by an in-process import
// repository. It answers the same queries as PostgresRepository.
type MemoryRepository struct {
	store *importrepo.MemoryRepository
}

func NewMemoryRepository(store *importrepo.MemoryRepository) *MemoryRepository {
	return &MemoryRepository{store: store}
}

func (m *MemoryRepository) facts(f Filter) []importrepo.FactRecord {
	from, to := f.bounds()
	var out []importrepo.FactRecord
	for _, fact := range m.store.Facts() {
		if fact.DataSourceID != f.DataSourceID {
			continue
		}
		if from != nil && fact.DateKey < *from {
			continue
		}
		if to != nil && fact.DateKey > *to {
			continue
		}
		out = append(out, fact)
	}
	return out
}

func (m *MemoryRepository) names(kind importrepo.DimensionKind) map[int64]string {
	out := make(map[int64]string)
	for _, d := range m.store.Dimensions(kind) {
		out[d.Key] = d.Name
	}
	return out
}

func (m *MemoryRepository) Totals(_ context.Context, f Filter) (Totals, error) {
	var t Totals
	for i, fact := range m.facts(f) {
		t.Total = t.Total.Add(fact.Amount)
		if i == 0 || fact.Amount.LessThan(t.Min) {
			t.Min = fact.Amount
		}
		if i == 0 || fact.Amount.GreaterThan(t.Max) {
			t.Max = fact.Amount
		}
		t.Count++
	}
	return t, nil
}

func (m *MemoryRepository) Monthly(_ context.Context, f Filter) ([]MonthPoint, error) {
	byMonth := make(map[int]*MonthPoint)
	for _, fact := range m.facts(f) {
		key := fact.DateKey / 100
		p, ok := byMonth[key]
		if !ok {
			p = &MonthPoint{Year: key / 100, Month: key % 100}
			byMonth[key] = p
		}
		p.Total = p.Total.Add(fact.Amount)
		p.Orders++
	}
	out := make([]MonthPoint, 0, len(byMonth))
	for _, p := range byMonth {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Year*100+out[i].Month < out[j].Year*100+out[j].Month
	})
	return out, nil
}

func (m *MemoryRepository) ByDimension(_ context.Context, f Filter, kind importrepo.DimensionKind, limit int) ([]CategoryPoint, error) {
	if _, _, err := importrepo.DimensionTable(kind); err != nil {
		return nil, err
	}
	names := m.names(kind)
	totals := make(map[string]decimal.Decimal)
	for _, fact := range m.facts(f) {
		key := fact.ProductKey
		if kind == importrepo.DimCustomer {
			key = fact.CustomerKey
		}
		name := names[key]
		totals[name] = totals[name].Add(fact.Amount)
	}

	out := make([]CategoryPoint, 0, len(totals))
	for name, total := range totals {
		out = append(out, CategoryPoint{Label: name, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Label < out[j].Label
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepository) ByDate(_ context.Context, f Filter) ([]CategoryPoint, error) {
	totals := make(map[int]decimal.Decimal)
	for _, fact := range m.facts(f) {
		totals[fact.DateKey] = totals[fact.DateKey].Add(fact.Amount)
	}
	keys := make([]int, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	out := make([]CategoryPoint, 0, len(keys))
	for _, k := range keys {
		out = append(out, CategoryPoint{Label: importrepo.DateFromKey(k).Format("2006-01-02"), Total: totals[k]})
	}
	return out, nil
}

func (m *MemoryRepository) DimensionNames(_ context.Context, dataSourceID int64, kind importrepo.DimensionKind) ([]string, error) {
	if _, _, err := importrepo.DimensionTable(kind); err != nil {
		return nil, err
	}
	names := m.names(kind)
	seen := make(map[string]bool)
	var out []string
	for _, fact := range m.facts(Filter{DataSourceID: dataSourceID}) {
		key := fact.ProductKey
		if kind == importrepo.DimCustomer {
			key = fact.CustomerKey
		}
		if name := names[key]; !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryRepository) ExportRows(_ context.Context, f Filter, fn func(ExportRow) error) error {
	products := m.names(importrepo.DimProduct)
	customers := m.names(importrepo.DimCustomer)
	facts := m.facts(f)
	sort.SliceStable(facts, func(i, j int) bool { return facts[i].DateKey < facts[j].DateKey })

	for _, fact := range facts {
		row := ExportRow{
			ImportID: fact.ImportID,
			Date:     importrepo.DateFromKey(fact.DateKey).Format("2006-01-02"),
			Product:  products[fact.ProductKey],
			Customer: customers[fact.CustomerKey],
			Quantity: fact.Quantity,
			Amount:   fact.Amount,
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

var (
	_ Repository = (*MemoryRepository)(nil)
	_ Repository = (*PostgresRepository)(nil)
)
