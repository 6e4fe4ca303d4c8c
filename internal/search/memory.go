package search

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/yourorg/vehicle-search/internal/vehicle"
)

// MemoryIndex is a process-local index used for development and tests. Safe
// for concurrent use; the last write for an id wins.
type MemoryIndex struct {
	mu        sync.RWMutex
	docs      map[string]Document
	schema    Schema
	mutations int
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{docs: make(map[string]Document), schema: DefaultSchema()}
}

func (m *MemoryIndex) Upsert(_ context.Context, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
	m.mutations++
	return nil
}

func (m *MemoryIndex) Delete(_ context.Context, id vehicle.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id.String())
	m.mutations++
	return nil
}

func (m *MemoryIndex) Configure(_ context.Context, schema Schema) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schema = schema
	return nil
}

// Get returns the stored document for id.
func (m *MemoryIndex) Get(id vehicle.ID) (Document, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id.String()]
	return doc, ok
}

func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// Mutations counts every Upsert and Delete call applied so far.
func (m *MemoryIndex) Mutations() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mutations
}

func (m *MemoryIndex) Schema() Schema {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.schema
}

// Search matches Text case-insensitively against the searchable attributes.
// Filter expressions are not interpreted.
func (m *MemoryIndex) Search(_ context.Context, q Query) (Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(q.Text))
	hits := make([]Document, 0)
	for _, doc := range m.docs {
		if needle == "" || matches(doc, m.schema.Searchable, needle) {
			hits = append(hits, doc)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].ID < hits[j].ID })
	total := len(hits)
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return Result{Hits: hits, Total: total}, nil
}

func matches(doc Document, fields []string, needle string) bool {
	for _, f := range fields {
		switch f {
		case "brand":
			if strings.Contains(strings.ToLower(doc.Brand), needle) {
				return true
			}
		case "model":
			if strings.Contains(strings.ToLower(doc.Model), needle) {
				return true
			}
		case "year":
			if strings.Contains(strconv.Itoa(doc.Year), needle) {
				return true
			}
		case "features":
			for _, name := range doc.Features {
				if strings.Contains(strings.ToLower(name), needle) {
					return true
				}
			}
		}
	}
	return false
}
