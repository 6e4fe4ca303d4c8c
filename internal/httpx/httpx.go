// Package httpx holds the retrying HTTP client setup and response helpers
// shared by the catalog and Meilisearch clients.
package httpx

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// errorBodyLimit caps how much of a failed response ends up in an error.
const errorBodyLimit = 4 << 10

var ErrPayloadTooLarge = errors.New("payload too large")

// StatusError is a non-2xx answer from a peer.
type StatusError struct {
	Peer string
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Peer, e.Op, e.Code, e.Body)
}

// NewStatusError reads at most errorBodyLimit bytes of resp's body into a
// StatusError. The caller still closes the body.
func NewStatusError(peer, op string, resp *http.Response) *StatusError {
	b, _ := ReadAllLimit(resp.Body, errorBodyLimit)
	return &StatusError{Peer: peer, Op: op, Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}

// ReadAllLimit reads r, failing with ErrPayloadTooLarge past limit bytes.
func ReadAllLimit(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, ErrPayloadTooLarge
	}
	return b, nil
}

// NewRetryClient returns a quiet retrying client. retryMax 0 keeps the
// default of 3 and a negative value disables retries; timeout 0 means 6s.
// After the last retry the final response is returned, not an error.
func NewRetryClient(timeout time.Duration, retryMax int) *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 900 * time.Millisecond
	rc.RetryMax = 3
	switch {
	case retryMax > 0:
		rc.RetryMax = retryMax
	case retryMax < 0:
		rc.RetryMax = 0
	}
	rc.HTTPClient.Timeout = 6 * time.Second
	if timeout > 0 {
		rc.HTTPClient.Timeout = timeout
	}
	rc.Logger = nil
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return rc
}
