// Package service provides data source management: creation, owner scoped
// lookup and the confirmed column mapping used by imports.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/FACorreiaa/sales-analytics/internal/domain/import/inference"
	"github.com/FACorreiaa/sales-analytics/internal/domain/import/parser"
	"github.com/FACorreiaa/sales-analytics/internal/domain/import/repository"
)

// ErrInvalidInput marks validation failures. Handlers map it to 400.
var ErrInvalidInput = errors.New("invalid input")

const defaultMappingKind = "Sales"

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// CreateInput is the payload for a new data source.
type CreateInput struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// MappingInput is the payload for a mapping upsert. Map keys are canonical
// field names; null or empty values leave the field unmapped.
type MappingInput struct {
	Kind      string             `json:"kind"`
	SheetName *string            `json:"sheetName"`
	Culture   string             `json:"culture"`
	Map       map[string]*string `json:"map"`
}

// Service manages data sources for their owners.
type Service struct {
	repo   repository.DataSourceRepository
	logger *slog.Logger
}

func NewService(repo repository.DataSourceRepository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Create stores a new data source owned by ownerID.
func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (*repository.DataSource, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	typ, ok := repository.ParseDataSourceType(strings.TrimSpace(in.Type))
	if !ok {
		return nil, invalid("unknown data source type %q", in.Type)
	}

	ds := &repository.DataSource{Name: name, Type: typ, OwnerID: ownerID}
	if err := s.repo.CreateDataSource(ctx, ds); err != nil {
		return nil, err
	}
	s.logger.Info("data source created", slog.Int64("data_source_id", ds.ID), slog.String("owner_id", ownerID))
	return ds, nil
}

func (s *Service) List(ctx context.Context, ownerID string) ([]*repository.DataSource, error) {
	return s.repo.ListDataSources(ctx, ownerID)
}

// Get returns the data source when ownerID owns it. Other owners see
// repository.ErrNotFound.
func (s *Service) Get(ctx context.Context, ownerID string, id int64) (*repository.DataSource, error) {
	ds, err := s.repo.GetDataSource(ctx, id)
	if err != nil {
		return nil, err
	}
	if ds.OwnerID != ownerID {
		return nil, repository.ErrNotFound
	}
	return ds, nil
}

// Mapping returns the stored mapping, or nil when there is none.
func (s *Service) Mapping(ctx context.Context, ownerID string, id int64) (*repository.DataSourceMapping, error) {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	return s.repo.GetMapping(ctx, id)
}

// UpsertMapping validates and stores the mapping of a data source.
func (s *Service) UpsertMapping(ctx context.Context, ownerID string, id int64, in MappingInput) (*repository.DataSourceMapping, error) {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}

	culture := strings.TrimSpace(in.Culture)
	if culture == "" {
		culture = parser.DefaultCulture
	}
	if _, err := parser.LookupLocale(culture); err != nil {
		return nil, invalid("unknown culture %q", culture)
	}

	columns := inference.HeaderMapping{}
	used := make(map[string]inference.CanonicalField)
	for name, header := range in.Map {
		field, ok := inference.ParseField(name)
		if !ok {
			return nil, invalid("unknown field %q", name)
		}
		if header == nil || strings.TrimSpace(*header) == "" {
			continue
		}
		h := strings.TrimSpace(*header)
		if other, dup := used[strings.ToLower(h)]; dup {
			return nil, invalid("header %q is mapped to both %s and %s", h, other, field)
		}
		used[strings.ToLower(h)] = field
		columns[field] = h
	}

	kind := strings.TrimSpace(in.Kind)
	if kind == "" {
		kind = defaultMappingKind
	}
	var sheet *string
	if in.SheetName != nil && strings.TrimSpace(*in.SheetName) != "" {
		v := strings.TrimSpace(*in.SheetName)
		sheet = &v
	}

	mapping := &repository.DataSourceMapping{
		DataSourceID: id,
		Kind:         kind,
		SheetName:    sheet,
		Culture:      culture,
		ColumnMap:    columns,
	}
	if err := s.repo.UpsertMapping(ctx, mapping); err != nil {
		return nil, err
	}
	s.logger.Info("mapping saved",
		slog.Int64("data_source_id", id),
		slog.String("culture", culture),
		slog.String("completeness", columns.Completeness().String()),
	)
	return mapping, nil
}
