package meili

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/vehicle-search/internal/search"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   string
}

type fakeMeili struct {
	mu       sync.Mutex
	requests []recorded
	status   int
	reply    string
}

func (f *fakeMeili) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recorded{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Auth:   r.Header.Get("Authorization"),
		Body:   string(b),
	})
	status, reply := f.status, f.reply
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusAccepted
	}
	if reply == "" {
		reply = `{"taskUid":1,"indexUid":"vehicles","status":"enqueued","type":"documentAdditionOrUpdate"}`
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(reply))
}

func (f *fakeMeili) respond(status int, reply string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status, f.reply = status, reply
}

func (f *fakeMeili) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeMeili) all() []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recorded(nil), f.requests...)
}

func newFake(t *testing.T) (*fakeMeili, *Client) {
	t.Helper()
	f := &fakeMeili{}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, NewClient(Config{URL: srv.URL, APIKey: "masterKey", RetryMax: -1})
}

func TestUpsert(t *testing.T) {
	f, c := newFake(t)
	price := 15000.0
	doc := search.Document{
		ID:       "11111111-2222-3333-4444-555555555555",
		Brand:    "Toyota",
		Model:    "Corolla",
		Year:     2020,
		Price:    &price,
		Features: []string{"ABS", "GPS"},
		Images:   []search.ImageDocument{{URL: "a.jpg", Position: 0}},
	}

	require.NoError(t, c.Upsert(context.Background(), doc))

	req := f.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/indexes/vehicles/documents", req.Path)
	assert.Equal(t, "primaryKey=id", req.Query)
	assert.Equal(t, "Bearer masterKey", req.Auth)

	var sent []map[string]any
	require.NoError(t, json.Unmarshal([]byte(req.Body), &sent))
	require.Len(t, sent, 1)
	assert.Equal(t, "Toyota", sent[0]["brand"])
	assert.Equal(t, float64(0), sent[0]["vehicleType"])
	assert.Equal(t, []any{"ABS", "GPS"}, sent[0]["features"])
}

func TestUpsert_Rejected(t *testing.T) {
	f, c := newFake(t)
	f.respond(http.StatusBadRequest, `{"message":"invalid document","code":"invalid_document_id"}`)

	err := c.Upsert(context.Background(), search.Document{ID: "x"})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Equal(t, "upsert", se.Op)
	assert.Equal(t, "meilisearch", se.Peer)
	assert.Contains(t, se.Body, "invalid_document_id")
}

func TestDelete(t *testing.T) {
	f, c := newFake(t)
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	require.NoError(t, c.Delete(context.Background(), id))
	require.NoError(t, c.Delete(context.Background(), id))

	req := f.last()
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, "/indexes/vehicles/documents/11111111-2222-3333-4444-555555555555", req.Path)
	assert.Len(t, f.all(), 2)
}

func TestConfigure(t *testing.T) {
	f, c := newFake(t)

	require.NoError(t, c.Configure(context.Background(), search.DefaultSchema()))

	reqs := f.all()
	require.Len(t, reqs, 2)
	assert.Equal(t, http.MethodPut, reqs[0].Method)
	assert.Equal(t, "/indexes/vehicles/settings/searchable-attributes", reqs[0].Path)
	assert.JSONEq(t, `["brand","model","features","year"]`, reqs[0].Body)
	assert.Equal(t, "/indexes/vehicles/settings/filterable-attributes", reqs[1].Path)
	assert.JSONEq(t, `["brand","vehicleType","year","price"]`, reqs[1].Body)
}

func TestSearch(t *testing.T) {
	f, c := newFake(t)
	f.respond(http.StatusOK, `{"hits":[{"id":"11111111-2222-3333-4444-555555555555","brand":"Toyota","model":"Corolla","year":2020,"price":15000,"vehicleType":0,"features":["ABS"],"mileage":500,"coverImageUrl":null,"status":0,"images":[]}],"estimatedTotalHits":1,"query":"toyota"}`)

	res, err := c.Search(context.Background(), search.Query{Text: "toyota", Filter: "brand = 'Toyota' AND year > 2015"})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, "Corolla", res.Hits[0].Model)

	req := f.last()
	assert.Equal(t, "/indexes/vehicles/search", req.Path)
	assert.JSONEq(t, `{"q":"toyota","filter":"brand = \"Toyota\" AND year > 2015"}`, req.Body)
}

func TestSearch_NoHits(t *testing.T) {
	f, c := newFake(t)
	f.respond(http.StatusOK, `{"hits":null,"estimatedTotalHits":0}`)

	res, err := c.Search(context.Background(), search.Query{})
	require.NoError(t, err)
	assert.NotNil(t, res.Hits)
	assert.Empty(t, res.Hits)
}

func TestHealth(t *testing.T) {
	f, c := newFake(t)
	f.respond(http.StatusOK, `{"status":"available"}`)
	require.NoError(t, c.Health(context.Background()))
	assert.Equal(t, "/health", f.last().Path)

	f.respond(http.StatusOK, `{"status":"starting"}`)
	assert.Error(t, c.Health(context.Background()))
}

func TestCustomIndexName(t *testing.T) {
	f := &fakeMeili{}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	c := NewClient(Config{URL: srv.URL + "/", Index: "vehicles_staging", RetryMax: -1})

	require.NoError(t, c.Delete(context.Background(), uuid.MustParse("11111111-2222-3333-4444-555555555555")))
	assert.Equal(t, "/indexes/vehicles_staging/documents/11111111-2222-3333-4444-555555555555", f.last().Path)
	assert.Empty(t, f.last().Auth)
}
