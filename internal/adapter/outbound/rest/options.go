package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithBaseURL sets the Stockroom API base URL.
// If not set, defaults to the STOCKROOM_SERVER_ADDR environment variable.
func WithBaseURL(addr string) Option {
	return func(c *Client) {
		c.baseURL = addr
	}
}

// WithTimeout sets the per-request timeout. Any call receiving no response
// within this bound fails as a network failure rather than blocking.
// If not set, defaults to 15 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithRefreshSkew sets how long before its expiry an access credential is
// already treated as expired and refreshed proactively.
// If not set, defaults to 30 seconds.
func WithRefreshSkew(d time.Duration) Option {
	return func(c *Client) {
		c.refreshSkew = d
	}
}

// WithHTTPClient sets a custom http.Client for making requests.
// This is useful for testing, proxying, or custom transport configurations.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetricsRegisterer registers the client's metrics with reg.
// Without this option no metrics are registered.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(c *Client) {
		c.metrics = NewMetrics(reg)
	}
}

// RequestOption adjusts a single request.
type RequestOption func(*requestOptions)

type requestOptions struct {
	params map[string]string
	header http.Header
}

// WithParam adds a query string parameter to the request.
func WithParam(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.params == nil {
			o.params = make(map[string]string)
		}
		o.params[key] = value
	}
}

// WithParams adds a set of query string parameters to the request.
func WithParams(params map[string]string) RequestOption {
	return func(o *requestOptions) {
		if o.params == nil {
			o.params = make(map[string]string, len(params))
		}
		for k, v := range params {
			o.params[k] = v
		}
	}
}

// WithHeader adds a header to the request.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.header == nil {
			o.header = make(http.Header)
		}
		o.header.Set(key, value)
	}
}
