package repository

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is an in-process implementation of ImportRepository and
// DataSourceRepository used by tests and local runs without a database.
type MemoryRepository struct {
	mu sync.Mutex

	nextID      int64
	dataSources map[int64]*DataSource
	mappings    map[int64]*DataSourceMapping
	imports     map[int64]*ImportJob
	claimed     map[int64]bool
	dimensions  map[DimensionKind]map[string]int64
	dates       map[int]DimDate
	facts       []FactRecord

	// BeforeCreate runs before a dimension insert without the lock held.
	// Tests use it to simulate a concurrent writer.
	BeforeCreate func(kind DimensionKind, name string)
	// FailAppend makes AppendFacts return the error when set.
	FailAppend error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		dataSources: make(map[int64]*DataSource),
		mappings:    make(map[int64]*DataSourceMapping),
		imports:     make(map[int64]*ImportJob),
		claimed:     make(map[int64]bool),
		dimensions: map[DimensionKind]map[string]int64{
			DimProduct:  {},
			DimCustomer: {},
		},
		dates: make(map[int]DimDate),
	}
}

func (m *MemoryRepository) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemoryRepository) FindDimension(_ context.Context, kind DimensionKind, name string) (int64, bool, error) {
	if _, _, err := DimensionTable(kind); err != nil {
		return 0, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.dimensions[kind][name]
	return id, ok, nil
}

func (m *MemoryRepository) CreateDimension(_ context.Context, kind DimensionKind, name string) (int64, error) {
	if _, _, err := DimensionTable(kind); err != nil {
		return 0, err
	}
	if m.BeforeCreate != nil {
		m.BeforeCreate(kind, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.dimensions[kind][name]; ok {
		return 0, ErrDuplicate
	}
	id := m.id()
	m.dimensions[kind][name] = id
	return id, nil
}

// PutDimension stores name directly, bypassing BeforeCreate.
func (m *MemoryRepository) PutDimension(kind DimensionKind, name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.dimensions[kind][name]; ok {
		return id
	}
	id := m.id()
	m.dimensions[kind][name] = id
	return id
}

// Dimensions returns the entries of one dimension ordered by key.
func (m *MemoryRepository) Dimensions(kind DimensionKind) []Dimension {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Dimension, 0, len(m.dimensions[kind]))
	for name, key := range m.dimensions[kind] {
		out = append(out, Dimension{Key: key, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (m *MemoryRepository) AppendFacts(_ context.Context, facts []FactRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAppend != nil {
		return m.FailAppend
	}
	m.facts = append(m.facts, facts...)
	return nil
}

// Facts returns a copy of every stored fact.
func (m *MemoryRepository) Facts() []FactRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]FactRecord(nil), m.facts...)
}

func (m *MemoryRepository) EnsureDates(_ context.Context, dates []DimDate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range dates {
		if _, ok := m.dates[d.DateKey]; !ok {
			m.dates[d.DateKey] = d
		}
	}
	return nil
}

// Dates returns the stored calendar rows ordered by key.
func (m *MemoryRepository) Dates() []DimDate {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DimDate, 0, len(m.dates))
	for _, d := range m.dates {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateKey < out[j].DateKey })
	return out
}

func (m *MemoryRepository) GetMapping(_ context.Context, dataSourceID int64) (*DataSourceMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mapping, ok := m.mappings[dataSourceID]
	if !ok {
		return nil, nil
	}
	cp := *mapping
	cp.ColumnMap = mapping.ColumnMap.Clone()
	return &cp, nil
}

func (m *MemoryRepository) UpsertMapping(_ context.Context, mapping *DataSourceMapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	mapping.UpdatedAt = now
	if existing, ok := m.mappings[mapping.DataSourceID]; ok {
		mapping.CreatedAt = existing.CreatedAt
	} else {
		mapping.CreatedAt = now
	}
	cp := *mapping
	cp.ColumnMap = mapping.ColumnMap.Clone()
	m.mappings[mapping.DataSourceID] = &cp
	return nil
}

func (m *MemoryRepository) CreateDataSource(_ context.Context, ds *DataSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ds.Type == "" {
		ds.Type = DataSourceSales
	}
	ds.ID = m.id()
	ds.CreatedAt = time.Now().UTC()
	cp := *ds
	m.dataSources[ds.ID] = &cp
	return nil
}

func (m *MemoryRepository) GetDataSource(_ context.Context, id int64) (*DataSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ds, ok := m.dataSources[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ds
	return &cp, nil
}

func (m *MemoryRepository) ListDataSources(_ context.Context, ownerID string) ([]*DataSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*DataSource
	for _, ds := range m.dataSources {
		if ds.OwnerID == ownerID {
			cp := *ds
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MemoryRepository) CreateImport(_ context.Context, job *ImportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.Status == "" {
		job.Status = StatusStaged
	}
	job.ID = m.id()
	if job.StartedAt.IsZero() {
		job.StartedAt = time.Now().UTC()
	}
	cp := *job
	m.imports[job.ID] = &cp
	return nil
}

func (m *MemoryRepository) GetImport(_ context.Context, id int64) (*ImportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.imports[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *MemoryRepository) ClaimImport(_ context.Context, id int64) (*ImportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.imports[id]
	if !ok {
		return nil, ErrNotFound
	}
	if job.Status != StatusStaged || m.claimed[id] {
		return nil, ErrNotStaged
	}
	m.claimed[id] = true
	cp := *job
	return &cp, nil
}

func (m *MemoryRepository) SaveImport(_ context.Context, job *ImportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.imports[job.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Status != StatusStaged {
		return ErrNotStaged
	}
	cp := *job
	m.imports[job.ID] = &cp
	return nil
}

func (m *MemoryRepository) ListStagedImports(_ context.Context, olderThan time.Time, limit int) ([]*ImportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*ImportJob
	for _, job := range m.imports {
		if job.Status == StatusStaged && !m.claimed[job.ID] && job.StartedAt.Before(olderThan) {
			cp := *job
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var (
	_ ImportRepository     = (*MemoryRepository)(nil)
	_ DataSourceRepository = (*MemoryRepository)(nil)
	_ ImportRepository     = (*PostgresImportRepository)(nil)
	_ DataSourceRepository = (*PostgresDataSourceRepository)(nil)
)
