package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/FACorreiaa/sales-analytics/internal/domain/import/parser"
	"github.com/FACorreiaa/sales-analytics/internal/domain/import/repository"
)

// DimensionResolver maps product and customer names to surrogate keys,
// creating entries on first sight.
type DimensionResolver struct {
	store repository.DimensionStore

	mu    sync.Mutex
	cache map[repository.DimensionKind]map[string]int64
}

func NewDimensionResolver(store repository.DimensionStore) *DimensionResolver {
	return &DimensionResolver{
		store: store,
		cache: map[repository.DimensionKind]map[string]int64{
			repository.DimProduct:  {},
			repository.DimCustomer: {},
		},
	}
}

// WithoutCache disables the per-import cache so every call reaches the store.
func (r *DimensionResolver) WithoutCache() *DimensionResolver {
	r.mu.Lock()
	r.cache = nil
	r.mu.Unlock()
	return r
}

// Resolve returns the key of name, creating it when missing. Blank names
// resolve to the unknown entry.
func (r *DimensionResolver) Resolve(ctx context.Context, kind repository.DimensionKind, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = parser.UnknownName
	}

	if id, ok := r.cached(kind, name); ok {
		return id, nil
	}

	id, found, err := r.store.FindDimension(ctx, kind, name)
	if err != nil {
		return 0, err
	}
	if !found {
		id, err = r.store.CreateDimension(ctx, kind, name)
		if errors.Is(err, repository.ErrDuplicate) {
			// lost the race; the winner's row is visible now
			id, found, err = r.store.FindDimension(ctx, kind, name)
			if err == nil && !found {
				err = fmt.Errorf("%s %q vanished after duplicate insert", kind, name)
			}
		}
		if err != nil {
			return 0, err
		}
	}

	r.remember(kind, name, id)
	return id, nil
}

func (r *DimensionResolver) cached(kind repository.DimensionKind, name string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cache == nil {
		return 0, false
	}
	id, ok := r.cache[kind][name]
	return id, ok
}

func (r *DimensionResolver) remember(kind repository.DimensionKind, name string, id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cache == nil {
		return
	}
	if r.cache[kind] == nil {
		r.cache[kind] = map[string]int64{}
	}
	r.cache[kind][name] = id
}
