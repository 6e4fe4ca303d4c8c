package httpx

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadAllLimit(t *testing.T) {
	b, err := ReadAllLimit(strings.NewReader("four"), 4)
	require.NoError(t, err)
	assert.Equal(t, "four", string(b))

	_, err = ReadAllLimit(strings.NewReader("fives"), 4)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestNewStatusError(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusBadGateway,
		Body:       io.NopCloser(strings.NewReader("  upstream down\n" + strings.Repeat("x", 8<<10))),
	}
	se := NewStatusError("catalog", "fetch", resp)
	assert.Equal(t, http.StatusBadGateway, se.Code)
	assert.Empty(t, se.Body, "oversized bodies are dropped")
	assert.Equal(t, "catalog fetch: status 502: ", se.Error())

	resp.Body = io.NopCloser(strings.NewReader(" boom \n"))
	se = NewStatusError("meilisearch", "search", resp)
	assert.Equal(t, "meilisearch search: status 502: boom", se.Error())
}

func TestNewRetryClient(t *testing.T) {
	rc := NewRetryClient(0, 0)
	assert.Equal(t, 3, rc.RetryMax)
	assert.Equal(t, 6*time.Second, rc.HTTPClient.Timeout)

	rc = NewRetryClient(time.Second, -1)
	assert.Equal(t, 0, rc.RetryMax)
	assert.Equal(t, time.Second, rc.HTTPClient.Timeout)

	assert.Equal(t, 5, NewRetryClient(0, 5).RetryMax)
}
