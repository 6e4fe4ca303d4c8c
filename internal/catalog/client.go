// Package catalog fetches authoritative vehicle state from the catalog API.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/yourorg/vehicle-search/internal/httpx"
	"github.com/yourorg/vehicle-search/internal/vehicle"
)

const maxPayload = 4 << 20

type Config struct {
	BaseURL  string
	Timeout  time.Duration
	RetryMax int
}

// StatusError is a non-2xx answer from the catalog other than 404.
type StatusError = httpx.StatusError

type Client struct {
	baseURL string
	http    *retryablehttp.Client
}

func NewClient(cfg Config) *Client {
	rc := httpx.NewRetryClient(cfg.Timeout, cfg.RetryMax)

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    rc,
	}
}

// Fetch returns the current projection of id, or vehicle.ErrNotFound.
func (c *Client) Fetch(ctx context.Context, id vehicle.ID) (vehicle.Projection, error) {
	u := fmt.Sprintf("%s/api/vehicles/%s", c.baseURL, id)
	raw, err := c.get(ctx, "fetch", u)
	if err != nil {
		return vehicle.Projection{}, err
	}
	var p vehiclePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return vehicle.Projection{}, fmt.Errorf("catalog fetch %s: decode: %w", id, err)
	}
	proj, err := p.projection()
	if err != nil {
		return vehicle.Projection{}, fmt.Errorf("catalog fetch %s: %w", id, err)
	}
	return proj, nil
}

// ListIDs returns one page of vehicle ids (1-based page) and whether more
// pages follow.
func (c *Client) ListIDs(ctx context.Context, page, size int) ([]vehicle.ID, bool, error) {
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	q.Set("pageNumber", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(size))
	u := fmt.Sprintf("%s/api/vehicles?%s", c.baseURL, q.Encode())

	raw, err := c.get(ctx, "list", u)
	if err != nil {
		return nil, false, err
	}
	var p pagePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false, fmt.Errorf("catalog list page %d: decode: %w", page, err)
	}
	ids := make([]vehicle.ID, 0, len(p.Items))
	for _, item := range p.Items {
		id, err := vehicle.ParseID(item.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	more := page*size < p.TotalCount && len(p.Items) > 0
	return ids, more, nil
}

func (c *Client) get(ctx context.Context, op, u string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")

	// A non-nil response after retries are exhausted still carries the
	// final status, which is more useful than the retry error.
	resp, err := c.http.Do(req)
	if resp == nil {
		return nil, fmt.Errorf("catalog %s: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, vehicle.ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return nil, httpx.NewStatusError("catalog", op, resp)
	}
	return httpx.ReadAllLimit(resp.Body, maxPayload)
}
