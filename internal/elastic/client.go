// Package elastic writes vehicle documents to an Elasticsearch index. It is
// an alternate write backend; queries are served by Meilisearch only.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/yourorg/vehicle-search/internal/search"
	"github.com/yourorg/vehicle-search/internal/vehicle"
)

type Config struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
	// Transport overrides the HTTP transport, mostly for tests.
	Transport http.RoundTripper
}

type Client struct {
	es    *elasticsearch.Client
	index string
}

var (
	_ search.Index      = (*Client)(nil)
	_ search.Configurer = (*Client)(nil)
)

func New(cfg Config) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}
	index := cfg.Index
	if index == "" {
		index = "vehicles"
	}
	return &Client{es: es, index: index}, nil
}

// Upsert overwrites the document stored under doc.ID.
func (c *Client) Upsert(ctx context.Context, doc search.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("elasticsearch upsert %s: encode: %w", doc.ID, err)
	}
	res, err := esapi.IndexRequest{
		Index:      c.index,
		DocumentID: doc.ID,
		Body:       bytes.NewReader(body),
	}.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("elasticsearch upsert %s: %w", doc.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("upsert", res)
	}
	return nil
}

// Delete removes id. A missing document is not an error.
func (c *Client) Delete(ctx context.Context, id vehicle.ID) error {
	res, err := esapi.DeleteRequest{
		Index:      c.index,
		DocumentID: id.String(),
	}.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("elasticsearch delete %s: %w", id, err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		return responseError("delete", res)
	}
	return nil
}

// Configure creates the index with a mapping derived from schema unless it
// already exists. Existing mappings are left alone.
func (c *Client) Configure(ctx context.Context, schema search.Schema) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{c.index}}.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("elasticsearch index exists: %w", err)
	}
	res.Body.Close()
	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("elasticsearch index exists: status %d", res.StatusCode)
	}

	body, err := json.Marshal(Mapping(schema))
	if err != nil {
		return err
	}
	res, err = esapi.IndicesCreateRequest{
		Index: c.index,
		Body:  bytes.NewReader(body),
	}.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("elasticsearch create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create index", res)
	}
	return nil
}

var numericFields = map[string]string{
	"year":        "integer",
	"price":       "double",
	"vehicleType": "integer",
	"mileage":     "integer",
	"status":      "integer",
}

// Mapping builds the index body for schema. Searchable strings are text,
// filterable strings also get a keyword sub-field, numbers keep their type.
func Mapping(schema search.Schema) map[string]any {
	filterable := make(map[string]bool, len(schema.Filterable))
	for _, f := range schema.Filterable {
		filterable[f] = true
	}
	props := map[string]any{
		"id":            map[string]any{"type": "keyword"},
		"coverImageUrl": map[string]any{"type": "keyword", "index": false},
		"images": map[string]any{
			"properties": map[string]any{
				"url":      map[string]any{"type": "keyword", "index": false},
				"position": map[string]any{"type": "integer"},
			},
		},
	}
	for field, typ := range numericFields {
		props[field] = map[string]any{"type": typ}
	}
	for _, f := range schema.Searchable {
		if _, ok := numericFields[f]; ok {
			continue
		}
		p := map[string]any{"type": "text"}
		if filterable[f] {
			p["fields"] = map[string]any{"keyword": map[string]any{"type": "keyword"}}
		}
		props[f] = p
	}
	for _, f := range schema.Filterable {
		if _, ok := props[f]; !ok {
			props[f] = map[string]any{"type": "keyword"}
		}
	}
	return map[string]any{"mappings": map[string]any{"properties": props}}
}

func responseError(op string, res *esapi.Response) error {
	b, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
	return fmt.Errorf("elasticsearch %s: [%s] %s", op, res.Status(), strings.TrimSpace(string(b)))
}
