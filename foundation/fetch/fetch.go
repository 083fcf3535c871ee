// Package fetch provides basic http retrieval functions for upstream feeds
package fetch

import (
	"bytes"
	"context"
	"net/http"
	"time"
)

// DefaultTimeout bounds an upstream call when the caller supplies no deadline.
const DefaultTimeout = 5 * time.Second

// NewClient creates an http.Client for feed retrieval with a hard timeout.
// The web portal is undocumented and can hang; a client without a timeout
// would leave the request pending indefinitely.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// Get retrieves url with a GET request, returning the response status and the
// full body. Transport failures, including a deadline expiring, are returned
// as errors; non-2xx statuses are not, the caller decides what they mean.
func Get(ctx context.Context, client *http.Client, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, buf.Bytes(), nil
}

// Snippet truncates body for inclusion in diagnostic output.
func Snippet(body []byte, max int) string {
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max])
}
