package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/safeswap/safeswap-daemon/pkg/circuitbreaker"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout           = 30 * time.Second
	DefaultRequestsPerSecond = 5
)

var errServerSide = fmt.Errorf("server side error")

// Client makes rate limited http calls to a single remote service. Transport
// failures and 5xx responses are counted by a circuit breaker that, once
// open, makes calls fail fast with gobreaker.ErrOpenState.
type Client struct {
	client  *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker
}

// NewClient returns a client for the named service. A non positive
// requestsPerSecond disables rate limiting.
func NewClient(
	name string, timeout time.Duration, requestsPerSecond float64,
) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &Client{
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
		cb:      circuitbreaker.NewCircuitBreaker(name),
	}
}

type response struct {
	status int
	body   string
}

// NewHTTPRequest function builds http call
// @param method <string>: http method
// @param url <string>: URL http to call
// @return <int>, <string>, error: status code and body of the response
func (c *Client) NewHTTPRequest(
	ctx context.Context,
	method, url, bodyString string,
	header map[string]string,
) (int, string, error) {
	switch method {
	case http.MethodGet, http.MethodDelete, http.MethodPost, http.MethodPut:
	default:
		return 0, "", fmt.Errorf("verb not supported %s", method)
	}

	var body io.Reader
	if len(bodyString) > 0 {
		body = strings.NewReader(bodyString)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, "", err
	}
	for key, value := range header {
		req.Header.Set(key, value)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, "", err
	}

	res, err := c.cb.Execute(func() (interface{}, error) {
		status, resp, err := c.doRequest(req)
		if err != nil {
			return nil, err
		}
		r := &response{status, resp}
		if status >= http.StatusInternalServerError {
			return r, errServerSide
		}
		return r, nil
	})
	if r, ok := res.(*response); ok && r != nil {
		return r.status, r.body, nil
	}
	return 0, "", err
}

func (c *Client) doRequest(req *http.Request) (int, string, error) {
	rs, err := c.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer rs.Body.Close()

	bodyBytes, err := io.ReadAll(rs.Body)
	if err != nil {
		return 0, "", fmt.Errorf("failed to parse response body: %w", err)
	}
	return rs.StatusCode, string(bodyBytes), nil
}
