// Package search defines the vehicle search document, the schema the index
// is configured with, and the narrow contracts the indexer writes through.
package search

import (
	"context"

	"github.com/yourorg/vehicle-search/internal/vehicle"
)

// Index is the write side of the search engine. Upsert overwrites any entry
// with the same id; Delete of an absent id is not an error.
type Index interface {
	Upsert(ctx context.Context, doc Document) error
	Delete(ctx context.Context, id vehicle.ID) error
}

// Configurer applies attribute settings once at startup.
type Configurer interface {
	Configure(ctx context.Context, schema Schema) error
}

// Searcher is the query side. Filter uses the engine's own
// field-operator-value grammar and is passed through untouched.
type Searcher interface {
	Search(ctx context.Context, q Query) (Result, error)
}

type Query struct {
	Text   string
	Filter string
	Limit  int
}

type Result struct {
	Hits  []Document
	Total int
}

// Schema describes how the index must treat document attributes.
type Schema struct {
	PrimaryKey string
	Searchable []string
	Filterable []string
}

func DefaultSchema() Schema {
	return Schema{
		PrimaryKey: "id",
		Searchable: []string{"brand", "model", "features", "year"},
		Filterable: []string{"brand", "vehicleType", "year", "price"},
	}
}
