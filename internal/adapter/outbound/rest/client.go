// Package rest is the transport client for the Stockroom API. It attaches
// the current access credential to every call, refreshes credentials
// before they expire, deduplicates concurrent refresh attempts through a
// single-flight marker, and normalizes every failure into a typed
// ApiFailure before it reaches a caller.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stockroom-hq/stockroom-go/internal/domain/failure"
	"github.com/stockroom-hq/stockroom-go/internal/domain/session"
)

const (
	defaultTimeout     = 15 * time.Second
	defaultRefreshSkew = 30 * time.Second

	loginPath   = "/auth/login"
	refreshPath = "/auth/refresh"
	logoutPath  = "/auth/logout"
)

// sessionExpiredMessage is shown when the refresh path is exhausted and the
// caller must sign in again.
const sessionExpiredMessage = "Your session has expired. Please sign in again."

// Client issues HTTP requests against the Stockroom API on behalf of the
// live session. All session mutation flows through the session store; the
// client itself holds no credential state beyond the single-flight refresh
// marker.
type Client struct {
	baseURL     string
	timeout     time.Duration
	refreshSkew time.Duration
	httpClient  *http.Client
	sessions    session.Store
	logger      *slog.Logger
	metrics     *Metrics
	tracer      trace.Tracer

	// refreshMu guards inflight: the process-wide marker ensuring at most
	// one outstanding refresh attempt at any time.
	refreshMu sync.Mutex
	inflight  *inflightRefresh
}

// inflightRefresh is the shared result of one refresh attempt. Concurrent
// callers wait on done and read the same outcome instead of issuing their
// own refresh calls.
type inflightRefresh struct {
	done chan struct{}
	sess *session.Session
	err  error
}

// NewClient creates a transport client bound to the given session store.
// It reads defaults from STOCKROOM_* environment variables; options
// override them.
func NewClient(sessions session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:     os.Getenv("STOCKROOM_SERVER_ADDR"),
		timeout:     defaultTimeout,
		refreshSkew: defaultRefreshSkew,
		sessions:    sessions,
		logger:      slog.Default(),
		tracer:      otel.Tracer("stockroom-go/rest"),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: c.timeout,
		}
	}

	return c
}

// Get issues a GET request. A non-nil out receives the decoded response body.
func (c *Client) Get(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodGet, path, nil, out, opts...)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPost, path, body, out, opts...)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPut, path, body, out, opts...)
}

// Patch issues a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPatch, path, body, out, opts...)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out, opts...)
}

// Do executes one logical request: send, and on a 401 with a refreshable
// session, one single-flight refresh followed by exactly one retry. Every
// error returned is an *ApiFailure.
//
// The per-request state machine is Sending -> (on 401) Refreshing ->
// Retrying -> Settled; the retry cap is structural, not counted.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	ctx, span := c.tracer.Start(ctx, "stockroom.request",
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.path", path),
		))
	defer span.End()

	options := &requestOptions{}
	for _, opt := range opts {
		opt(options)
	}

	token, err := c.usableToken(ctx)
	if err != nil {
		span.SetAttributes(attribute.String("failure.kind", string(failure.Classify(err).Kind)))
		return c.recordFailure(method, err)
	}

	reqErr := c.send(ctx, method, path, body, out, token, options)
	apiErr, unauthorized := asUnauthorized(reqErr)
	if !unauthorized {
		if reqErr != nil {
			span.SetAttributes(attribute.String("failure.kind", string(apiErr.Kind)))
			return c.recordFailure(method, reqErr)
		}
		c.recordSuccess(method)
		return nil
	}

	// 401: refresh and retry once, or surface Unauthorized immediately
	// when no refresh is possible.
	sess := c.sessions.Current()
	if sess == nil || !sess.CanRefresh() {
		span.SetAttributes(attribute.String("failure.kind", string(failure.KindUnauthorized)))
		return c.recordFailure(method, apiErr)
	}

	span.AddEvent("credential refresh")
	fresh, err := c.awaitRefresh(ctx)
	if err != nil {
		span.SetAttributes(attribute.String("failure.kind", string(failure.Classify(err).Kind)))
		return c.recordFailure(method, err)
	}

	if c.metrics != nil {
		c.metrics.RetriesTotal.Inc()
	}
	span.AddEvent("retry after refresh")

	// A second 401 surfaces as-is: one retry per logical request, never
	// a second refresh.
	retryErr := c.send(ctx, method, path, body, out, fresh.AccessToken, options)
	if retryErr != nil {
		span.SetAttributes(attribute.String("failure.kind", string(failure.Classify(retryErr).Kind)))
		return c.recordFailure(method, retryErr)
	}
	c.recordSuccess(method)
	return nil
}

// usableToken returns the access token to attach to a request: empty when
// unauthenticated, the current token when fresh, and a proactively
// refreshed token when the current one is expired (or inside the skew
// window) but refreshable. An expired token is never attached as-is.
func (c *Client) usableToken(ctx context.Context) (string, error) {
	sess := c.sessions.Current()
	if sess == nil {
		return "", nil
	}
	if !sess.AccessExpired(c.refreshSkew) {
		return sess.AccessToken, nil
	}
	if !sess.CanRefresh() {
		// Unusable for direct calls and no way to mint a new one; the
		// request goes out unauthenticated and the server has the last
		// word.
		return "", nil
	}

	fresh, err := c.awaitRefresh(ctx)
	if err != nil {
		return "", err
	}
	return fresh.AccessToken, nil
}

// awaitRefresh joins the outstanding refresh attempt, starting one if none
// is in flight. All callers observe the same outcome. The attempt itself
// runs detached from any caller's context, so an abandoned caller can
// never strand the marker in a perpetually-outstanding state.
func (c *Client) awaitRefresh(ctx context.Context) (*session.Session, error) {
	c.refreshMu.Lock()
	fl := c.inflight
	if fl == nil {
		fl = &inflightRefresh{done: make(chan struct{})}
		c.inflight = fl
		go c.runRefresh(fl)
	}
	c.refreshMu.Unlock()

	select {
	case <-fl.done:
		return fl.sess, fl.err
	case <-ctx.Done():
		// The caller gives up; the refresh completes on its own.
		return nil, failure.Network(ctx.Err())
	}
}

// runRefresh performs the actual refresh call and settles the shared
// result. On success the session is replaced wholesale; on failure it is
// cleared entirely, which is the trigger surrounding UI uses to redirect
// to login.
//
// The store update must complete before the marker clears. A 401 landing
// while the update is still in progress would otherwise see the old
// session, find no outstanding refresh, and spend the already-rotated
// refresh credential on a second attempt; the server rejects that attempt
// and its failure path would wipe the session this one just installed.
func (c *Client) runRefresh(fl *inflightRefresh) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	sess, err := c.refresh(ctx)

	if err != nil {
		c.sessions.Clear()
		if c.metrics != nil {
			c.metrics.RefreshesTotal.WithLabelValues("failure").Inc()
		}
		c.logger.Info("credential refresh failed, session cleared",
			"error", err)
		fl.err = &failure.ApiFailure{
			StatusCode: http.StatusUnauthorized,
			Kind:       failure.KindUnauthorized,
			Message:    sessionExpiredMessage,
			Err:        err,
		}
	} else {
		c.sessions.Set(sess)
		if c.metrics != nil {
			c.metrics.RefreshesTotal.WithLabelValues("success").Inc()
		}
		c.logger.Debug("credentials refreshed",
			"user_id", sess.UserID,
			"access_token", session.RedactToken(sess.AccessToken))
		fl.sess = sess
	}

	c.refreshMu.Lock()
	c.inflight = nil
	c.refreshMu.Unlock()

	close(fl.done)
}

// refresh calls the refresh endpoint with the current refresh credential.
func (c *Client) refresh(ctx context.Context) (*session.Session, error) {
	sess := c.sessions.Current()
	if sess == nil || !sess.CanRefresh() {
		return nil, &failure.ApiFailure{
			StatusCode: http.StatusUnauthorized,
			Kind:       failure.KindUnauthorized,
			Message:    sessionExpiredMessage,
		}
	}

	var payload authPayload
	err := c.send(ctx, http.MethodPost, refreshPath,
		refreshRequest{RefreshToken: sess.RefreshToken}, &payload, "", nil)
	if err != nil {
		return nil, err
	}
	return payload.toSession()
}

// send performs one HTTP exchange. It attaches the bearer token when one is
// given, decodes a 2xx body into out, and turns everything else into an
// *ApiFailure. It never refreshes or retries.
func (c *Client) send(ctx context.Context, method, path string, body, out any, token string, options *requestOptions) error {
	u := strings.TrimRight(c.baseURL, "/") + path
	if options != nil && len(options.params) > 0 {
		q := url.Values{}
		for k, v := range options.params {
			q.Set(k, v)
		}
		u += "?" + q.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return failure.Classify(fmt.Errorf("marshal request body: %w", err))
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return failure.Classify(fmt.Errorf("create request: %w", err))
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	if options != nil {
		for key, values := range options.header {
			for _, v := range values {
				req.Header.Add(key, v)
			}
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// No response received: DNS, connection refused, TLS, timeout.
		return failure.Network(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure.Network(fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failure.FromResponse(resp.StatusCode, respBody)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return failure.Classify(fmt.Errorf("unmarshal response: %w", err))
		}
	}
	return nil
}

// asUnauthorized splits an error into its classified form and whether it is
// a server-issued 401.
func asUnauthorized(err error) (*failure.ApiFailure, bool) {
	if err == nil {
		return nil, false
	}
	f := failure.Classify(err)
	return f, f.StatusCode == http.StatusUnauthorized
}

func (c *Client) recordSuccess(method string) {
	if c.metrics != nil {
		c.metrics.RequestsTotal.WithLabelValues(method, "ok").Inc()
	}
}

// recordFailure counts the failure and returns it classified.
func (c *Client) recordFailure(method string, err error) error {
	f := failure.Classify(err)
	if c.metrics != nil {
		c.metrics.RequestsTotal.WithLabelValues(method, "error").Inc()
		c.metrics.FailuresTotal.WithLabelValues(string(f.Kind)).Inc()
	}
	return f
}
