package ioharvest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	// requestTimeout limits a single API call.
	requestTimeout = 30 * time.Second

	// maxResponseSize is the largest accepted response body (20MB).
	maxResponseSize = 20 * 1024 * 1024
)

// client performs GET requests with a pause between them.
type client struct {
	http    *http.Client
	limiter *rate.Limiter
	email   string
}

func newClient(delay time.Duration, email string) *client {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &client{
		http:    &http.Client{Timeout: requestTimeout},
		limiter: rate.NewLimiter(limit, 1),
		email:   email,
	}
}

// get waits for the limiter and returns the body of a successful
// response. A non-empty email is sent as "mailto" parameter.
func (c *client) get(
	ctx context.Context,
	base string,
	params url.Values,
) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if params == nil {
		params = url.Values{}
	}
	if c.email != "" {
		params.Set("mailto", c.email)
	}
	u := base
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, RequestError(u, err)
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, RequestError(u, err)
	}
	defer resp.Body.Close()

	slog.Debug("API request",
		"url", u, "status", resp.StatusCode, "duration", time.Since(start))
	if resp.StatusCode != http.StatusOK {
		return nil, ResponseError(u, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, RequestError(u, err)
	}
	if len(body) > maxResponseSize {
		return nil, RequestError(u,
			fmt.Errorf("response body is larger than %d bytes", maxResponseSize))
	}
	return body, nil
}

func seconds(i int) time.Duration {
	return time.Duration(i) * time.Second
}
