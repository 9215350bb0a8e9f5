// Package activityclient provides a client for the activities signup API.
//
// The API exposes three endpoints:
//
//	GET    /activities                                 -> {name: {description, schedule, max_participants, participants}}
//	POST   /activities/{activity}/signup?email={email}     -> {"message": ...} or {"detail": ...}
//	DELETE /activities/{activity}/unregister?email={email} -> {"message": ...} or {"detail": ...}
//
// Non-2xx responses to the mutating endpoints are returned as *APIError carrying the
// server's detail text. A non-2xx catalog response is returned as *StatusError.
// Anything else (connection failures, undecodable bodies) is a plain wrapped error.
//
// Example usage:
//
//	client, err := activityclient.New("http://localhost:8000")
//	activities, err := client.ListActivities(ctx)
//	msg, err := client.Signup(ctx, "Chess Club", "michael@mergington.edu")
package activityclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nomis52/signup/catalog"
	"github.com/nomis52/signup/metrics"
)

// Operation names used for logging and metrics.
const (
	OperationList       = "list"
	OperationSignup     = "signup"
	OperationUnregister = "unregister"
)

// RequestIDHeader carries a unique ID for every request.
const RequestIDHeader = "X-Request-ID"

// Client talks to the activities API.
// Use New() to create a client for a given base URL.
type Client struct {
	Host    string
	Logger  *slog.Logger
	client  *http.Client
	timeout time.Duration
	metrics *metrics.ClientMetrics
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.Logger = logger
	}
}

// WithHTTPClient replaces the underlying http.Client. It is never modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithTimeout bounds every request, whatever the option order. Zero keeps the
// http.Client's own timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithMetrics records one counter increment per request.
func WithMetrics(m *metrics.ClientMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a Client for the API at host.
// The host must include the scheme (e.g., "http://localhost:8000").
func New(host string, opts ...Option) (*Client, error) {
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid host URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("host URL must include scheme and host: %q", host)
	}

	c := &Client{
		Host:   strings.TrimRight(host, "/"),
		client: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.client
		hc.Timeout = c.timeout
		c.client = &hc
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c, nil
}

// StatusError is returned by ListActivities when the server answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

// APIError is returned by Signup and Unregister when the server answers with a non-2xx status.
// Detail is empty when the response carried no string detail.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("activities API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("activities API returned status %d: %s", e.StatusCode, e.Detail)
}

// mutationResponse is the body of signup and unregister responses.
type mutationResponse struct {
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
}

// ListActivities fetches the full catalog.
func (c *Client) ListActivities(ctx context.Context) (catalog.Catalog, error) {
	var result catalog.Catalog

	resp, err := c.do(ctx, http.MethodGet, OperationList, c.Host+"/activities")
	if err != nil {
		c.metrics.ObserveRequest(OperationList, metrics.OutcomeTransportError)
		return result, fmt.Errorf("failed to fetch activities: %w", err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		c.metrics.ObserveRequest(OperationList, metrics.OutcomeHTTPError)
		return result, &StatusError{StatusCode: resp.StatusCode, Status: reasonPhrase(resp)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ObserveRequest(OperationList, metrics.OutcomeTransportError)
		return result, fmt.Errorf("failed to read response body: %w", err)
	}
	if err := json.Unmarshal(body, &result); err != nil {
		c.metrics.ObserveRequest(OperationList, metrics.OutcomeTransportError)
		return result, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	c.metrics.ObserveRequest(OperationList, metrics.OutcomeSuccess)
	c.metrics.SetCatalogSize(result.Len())
	return result, nil
}

// Signup enrolls email in activity and returns the server's confirmation message.
func (c *Client) Signup(ctx context.Context, activity, email string) (string, error) {
	return c.mutate(ctx, http.MethodPost, OperationSignup, activity, email)
}

// Unregister removes email from activity and returns the server's confirmation message.
func (c *Client) Unregister(ctx context.Context, activity, email string) (string, error) {
	return c.mutate(ctx, http.MethodDelete, OperationUnregister, activity, email)
}

// mutationURL builds /activities/{activity}/{operation}?email={email} with both
// the path segment and the query value percent-encoded.
func (c *Client) mutationURL(operation, activity, email string) string {
	query := url.Values{"email": []string{email}}
	return fmt.Sprintf("%s/activities/%s/%s?%s", c.Host, url.PathEscape(activity), operation, query.Encode())
}

func (c *Client) mutate(ctx context.Context, method, operation, activity, email string) (string, error) {
	resp, err := c.do(ctx, method, operation, c.mutationURL(operation, activity, email))
	if err != nil {
		c.metrics.ObserveRequest(operation, metrics.OutcomeTransportError)
		return "", fmt.Errorf("failed to %s: %w", operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ObserveRequest(operation, metrics.OutcomeTransportError)
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	var result mutationResponse
	if err := json.Unmarshal(body, &result); err != nil {
		c.metrics.ObserveRequest(operation, metrics.OutcomeTransportError)
		return "", fmt.Errorf("failed to unmarshal response (status %d): %w", resp.StatusCode, err)
	}

	if !isSuccess(resp.StatusCode) {
		c.metrics.ObserveRequest(operation, metrics.OutcomeHTTPError)
		return "", &APIError{StatusCode: resp.StatusCode, Detail: detailText(result.Detail)}
	}

	c.metrics.ObserveRequest(operation, metrics.OutcomeSuccess)
	return result.Message, nil
}

func (c *Client) do(ctx context.Context, method, operation, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)

	logger := c.Logger.With("operation", operation, "request_id", requestID)
	logger.Debug("sending request", "method", method, "url", rawURL)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		logger.Debug("request failed", "error", err)
		return nil, err
	}
	logger.Debug("received response", "status", resp.StatusCode, "duration", time.Since(start))
	return resp, nil
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

// reasonPhrase returns the status text the server sent, falling back to the
// standard text for the code.
func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return reason
}

// detailText returns detail when it is a JSON string. Structured details, such as
// validation error lists, are not human-readable and yield "".
func detailText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
