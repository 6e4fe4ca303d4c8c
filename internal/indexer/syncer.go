// Package indexer keeps the search index in step with the catalog: it
// subscribes to change notifications, fetches the current state of each
// vehicle and writes, or removes, its search document.
package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourorg/vehicle-search/internal/search"
	"github.com/yourorg/vehicle-search/internal/vehicle"
)

// Fetcher returns the authoritative projection of a vehicle, or an error
// wrapping vehicle.ErrNotFound when the catalog has no such vehicle.
type Fetcher interface {
	Fetch(ctx context.Context, id vehicle.ID) (vehicle.Projection, error)
}

// Outcome is how handling one vehicle ended.
type Outcome string

const (
	OutcomeIndexed     Outcome = "indexed"
	OutcomeRemoved     Outcome = "removed"
	OutcomeNotFound    Outcome = "not_found"
	OutcomeMalformed   Outcome = "malformed"
	OutcomeFetchFailed Outcome = "fetch_failed"
	OutcomeWriteFailed Outcome = "write_failed"
)

// Mutated reports whether the outcome wrote to the index.
func (o Outcome) Mutated() bool { return o == OutcomeIndexed || o == OutcomeRemoved }

// Syncer performs the fetch, map and write sequence for a single vehicle.
// It holds no per-call state and is safe for concurrent use.
type Syncer struct {
	Fetcher Fetcher
	Index   search.Index
}

// Sync writes the current state of id to the index. A vehicle the catalog
// does not know is left alone: removals only come from Remove.
func (s *Syncer) Sync(ctx context.Context, id vehicle.ID) (Outcome, error) {
	p, err := s.Fetcher.Fetch(ctx, id)
	if errors.Is(err, vehicle.ErrNotFound) {
		return OutcomeNotFound, nil
	}
	if err != nil {
		return OutcomeFetchFailed, fmt.Errorf("fetch %s: %w", id, err)
	}
	if p.ID != id {
		return OutcomeFetchFailed, fmt.Errorf("fetch %s: catalog returned vehicle %s", id, p.ID)
	}
	if err := s.Index.Upsert(ctx, search.FromProjection(p)); err != nil {
		return OutcomeWriteFailed, fmt.Errorf("upsert %s: %w", id, err)
	}
	return OutcomeIndexed, nil
}

// Remove deletes id from the index whether or not it is there.
func (s *Syncer) Remove(ctx context.Context, id vehicle.ID) (Outcome, error) {
	if err := s.Index.Delete(ctx, id); err != nil {
		return OutcomeWriteFailed, fmt.Errorf("delete %s: %w", id, err)
	}
	return OutcomeRemoved, nil
}
