// Package roll holds the in-memory voter collection and the browsing session
// built on top of it.
package roll

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hazyhaar/electoral-roll/pkg/search"
	"github.com/hazyhaar/electoral-roll/pkg/store"
	"github.com/hazyhaar/electoral-roll/pkg/voter"
)

// Store is the record store the roll reads from and writes through.
type Store interface {
	All(ctx context.Context) ([]store.Record, error)
	AppendBatch(ctx context.Context, rows []map[string]any) ([]string, error)
	Patch(ctx context.Context, id string, fields map[string]any) error
}

// Roll is the full voter collection, loaded from the store and replaced
// wholesale on every reload. Readers get a snapshot that never changes under
// them.
type Roll struct {
	mu     sync.RWMutex
	voters []voter.Voter
	byID   map[string]int
	facets search.Facets
	gen    uint64

	store  Store
	logger *slog.Logger
}

// New returns an empty roll backed by st. Call Load to populate it.
func New(st Store, logger *slog.Logger) *Roll {
	if logger == nil {
		logger = slog.Default()
	}
	return &Roll{
		store:  st,
		logger: logger,
		byID:   map[string]int{},
		facets: search.ExtractFacets(nil),
	}
}

// Load reads every record from the store, normalizes it and swaps the
// collection in. On error the previous collection stays in place.
func (r *Roll) Load(ctx context.Context) error {
	recs, err := r.store.All(ctx)
	if err != nil {
		return fmt.Errorf("load voters: %w", err)
	}

	voters := make([]voter.Voter, len(recs))
	byID := make(map[string]int, len(recs))
	for i, rec := range recs {
		voters[i] = voter.Normalize(rec.ID, rec.Fields, i)
		byID[rec.ID] = i
	}
	facets := search.ExtractFacets(voters)

	r.mu.Lock()
	r.voters = voters
	r.byID = byID
	r.facets = facets
	r.gen++
	r.mu.Unlock()

	r.logger.Info("voters loaded", "count", len(voters), "booths", len(facets.BoothNumbers))
	return nil
}

// Reload is Load under the name used by refresh triggers.
func (r *Roll) Reload(ctx context.Context) error {
	return r.Load(ctx)
}

// Snapshot returns the current collection and its generation. The slice is
// shared and must not be modified.
func (r *Roll) Snapshot() ([]voter.Voter, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.voters, r.gen
}

// Facets returns the facets of the full collection, computed at load time.
func (r *Roll) Facets() search.Facets {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.facets
}

// Count returns the number of loaded voters.
func (r *Roll) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.voters)
}

// Get returns one voter by id.
func (r *Roll) Get(id string) (voter.Voter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byID[id]
	if !ok {
		return voter.Voter{}, false
	}
	return r.voters[i], true
}

// Query runs q against the current snapshot.
func (r *Roll) Query(q search.Query) (search.Result, error) {
	all, _ := r.Snapshot()
	return search.Run(all, q)
}

// Select returns every voter matching q's search and filters, sorted, without
// pagination.
func (r *Roll) Select(q search.Query) ([]voter.Voter, error) {
	all, _ := r.Snapshot()
	return search.Select(all, q)
}

// Import appends spreadsheet rows to the store and reloads. It returns the
// number of rows written.
func (r *Roll) Import(ctx context.Context, rows []map[string]string) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	raw := make([]map[string]any, len(rows))
	for i, row := range rows {
		m := make(map[string]any, len(row))
		for k, v := range row {
			m[k] = v
		}
		raw[i] = m
	}
	ids, err := r.store.AppendBatch(ctx, raw)
	if err != nil {
		return 0, fmt.Errorf("import: %w", err)
	}
	if err := r.Load(ctx); err != nil {
		return len(ids), err
	}
	return len(ids), nil
}

// Update patches one voter's raw fields in the store and reloads.
func (r *Roll) Update(ctx context.Context, id string, fields map[string]any) (voter.Voter, error) {
	if err := r.store.Patch(ctx, id, fields); err != nil {
		return voter.Voter{}, fmt.Errorf("update %s: %w", id, err)
	}
	if err := r.Load(ctx); err != nil {
		return voter.Voter{}, err
	}
	v, _ := r.Get(id)
	return v, nil
}
