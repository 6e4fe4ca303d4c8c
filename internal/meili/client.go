// Package meili writes vehicle documents to, and queries, a Meilisearch
// index over its HTTP API.
package meili

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/yourorg/vehicle-search/internal/httpx"
	"github.com/yourorg/vehicle-search/internal/search"
	"github.com/yourorg/vehicle-search/internal/vehicle"
)

const maxPayload = 8 << 20

type Config struct {
	URL      string
	APIKey   string
	Index    string
	Timeout  time.Duration
	RetryMax int
}

// StatusError is a non-2xx answer from Meilisearch.
type StatusError = httpx.StatusError

type Client struct {
	baseURL string
	key     string
	index   string
	http    *retryablehttp.Client
}

var (
	_ search.Index      = (*Client)(nil)
	_ search.Configurer = (*Client)(nil)
	_ search.Searcher   = (*Client)(nil)
)

func NewClient(cfg Config) *Client {
	rc := httpx.NewRetryClient(cfg.Timeout, cfg.RetryMax)

	index := cfg.Index
	if index == "" {
		index = "vehicles"
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		key:     cfg.APIKey,
		index:   index,
		http:    rc,
	}
}

// task is the summary Meilisearch returns for every asynchronous write.
type task struct {
	TaskUID int64  `json:"taskUid"`
	Status  string `json:"status"`
	Type    string `json:"type"`
}

// Upsert adds or replaces the document with the same id. The write is
// enqueued by Meilisearch; acceptance of the task is the success signal.
func (c *Client) Upsert(ctx context.Context, doc search.Document) error {
	body, err := json.Marshal([]search.Document{doc})
	if err != nil {
		return fmt.Errorf("meilisearch upsert %s: encode: %w", doc.ID, err)
	}
	u := fmt.Sprintf("%s/documents?primaryKey=id", c.indexURL())
	var t task
	if err := c.do(ctx, "upsert", http.MethodPost, u, body, &t); err != nil {
		return err
	}
	return nil
}

// Delete removes id. Meilisearch reports success for ids it does not hold.
func (c *Client) Delete(ctx context.Context, id vehicle.ID) error {
	u := fmt.Sprintf("%s/documents/%s", c.indexURL(), url.PathEscape(id.String()))
	var t task
	return c.do(ctx, "delete", http.MethodDelete, u, nil, &t)
}

// Configure declares searchable and filterable attributes.
func (c *Client) Configure(ctx context.Context, schema search.Schema) error {
	searchable, err := json.Marshal(schema.Searchable)
	if err != nil {
		return err
	}
	filterable, err := json.Marshal(schema.Filterable)
	if err != nil {
		return err
	}
	if err := c.do(ctx, "searchable-attributes", http.MethodPut, c.indexURL()+"/settings/searchable-attributes", searchable, nil); err != nil {
		return err
	}
	return c.do(ctx, "filterable-attributes", http.MethodPut, c.indexURL()+"/settings/filterable-attributes", filterable, nil)
}

type searchRequest struct {
	Q      string `json:"q"`
	Filter string `json:"filter,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

type searchResponse struct {
	Hits               []search.Document `json:"hits"`
	EstimatedTotalHits int               `json:"estimatedTotalHits"`
}

// Search runs a query. Single quotes in the filter are turned into double
// quotes, which is what the storefront sends and what Meilisearch expects.
func (c *Client) Search(ctx context.Context, q search.Query) (search.Result, error) {
	body, err := json.Marshal(searchRequest{
		Q:      q.Text,
		Filter: strings.ReplaceAll(q.Filter, "'", `"`),
		Limit:  q.Limit,
	})
	if err != nil {
		return search.Result{}, err
	}
	var resp searchResponse
	if err := c.do(ctx, "search", http.MethodPost, c.indexURL()+"/search", body, &resp); err != nil {
		return search.Result{}, err
	}
	if resp.Hits == nil {
		resp.Hits = []search.Document{}
	}
	return search.Result{Hits: resp.Hits, Total: resp.EstimatedTotalHits}, nil
}

// Health reports whether the Meilisearch instance answers as available.
func (c *Client) Health(ctx context.Context) error {
	var h struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, "health", http.MethodGet, c.baseURL+"/health", nil, &h); err != nil {
		return err
	}
	if h.Status != "available" {
		return fmt.Errorf("meilisearch health: status %q", h.Status)
	}
	return nil
}

func (c *Client) indexURL() string {
	return fmt.Sprintf("%s/indexes/%s", c.baseURL, url.PathEscape(c.index))
}

func (c *Client) do(ctx context.Context, op, method, u string, body []byte, out any) error {
	var rb any
	if body != nil {
		rb = body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, u, rb)
	if err != nil {
		return err
	}
	req.Header.Set("accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}

	resp, err := c.http.Do(req)
	if resp == nil {
		return fmt.Errorf("meilisearch %s: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return httpx.NewStatusError("meilisearch", op, resp)
	}
	raw, err := httpx.ReadAllLimit(resp.Body, maxPayload)
	if err != nil {
		return fmt.Errorf("meilisearch %s: %w", op, err)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("meilisearch %s: decode: %w", op, err)
	}
	return nil
}
