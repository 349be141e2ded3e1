package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jmcrae/fetchgate/internal/types"
)

const defaultRequestTimeout = 20 * time.Second

// HTTPClient invokes operations as GET requests against a JSON API.
// The operation name is used as the request path; params become the query
// string. Responses outside 2xx are mapped onto the failure taxonomy.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	headers map[string]string
	logger  *slog.Logger
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPTimeout sets the per-request timeout.
func WithHTTPTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithHeader adds a static header (API keys, accept types) to every request.
func WithHeader(key, value string) HTTPOption {
	return func(c *HTTPClient) {
		c.headers[key] = value
	}
}

// NewHTTPClient creates an HTTP upstream client rooted at baseURL.
func NewHTTPClient(baseURL string, logger *slog.Logger, opts ...HTTPOption) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}

	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultRequestTimeout},
		headers: map[string]string{},
		logger:  logger.With("component", "upstream-http"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Invoke implements Client.
func (c *HTTPClient) Invoke(ctx context.Context, operation string, params map[string]any) (json.RawMessage, error) {
	reqURL, err := c.buildURL(operation, params)
	if err != nil {
		return nil, types.NewUpstreamError(operation, types.FailurePermanent, 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, types.NewUpstreamError(operation, types.FailurePermanent, 0, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, types.NewUpstreamError(operation, classifyTransport(err), 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, types.NewUpstreamError(operation, types.FailureTransient, resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		class := ClassifyStatus(resp.StatusCode)
		c.logger.Debug("Upstream returned non-2xx status",
			"operation", operation,
			"status", resp.StatusCode,
			"class", class.String(),
		)
		return nil, types.NewUpstreamError(operation, class, resp.StatusCode,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	if !json.Valid(body) {
		return nil, types.NewUpstreamError(operation, types.FailurePermanent, resp.StatusCode,
			errors.New("response is not valid JSON"))
	}

	return json.RawMessage(body), nil
}

func (c *HTTPClient) buildURL(operation string, params map[string]any) (string, error) {
	u, err := url.Parse(c.baseURL + "/" + strings.TrimLeft(operation, "/"))
	if err != nil {
		return "", err
	}

	q := u.Query()
	for k, v := range params {
		q.Set(k, fmt.Sprint(v))
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// ClassifyStatus maps an HTTP status code onto the failure taxonomy.
// 429 is the explicit rate-limit signal; 5xx and 408 are transient; the
// remaining 4xx are permanent.
func ClassifyStatus(status int) types.FailureClass {
	switch {
	case status == http.StatusTooManyRequests:
		return types.FailureRateLimited
	case status == http.StatusRequestTimeout:
		return types.FailureTransient
	case status >= 500:
		return types.FailureTransient
	default:
		return types.FailurePermanent
	}
}

// classifyTransport maps a transport-level error (before any HTTP status is
// available) onto the taxonomy.
func classifyTransport(err error) types.FailureClass {
	if class := types.Classify(err); class == types.FailureTransient {
		return types.FailureTransient
	}
	// url.Error wraps dial and protocol failures alike; treat the
	// connection-ish ones as transient.
	var uerr *url.Error
	if errors.As(err, &uerr) {
		if uerr.Timeout() || uerr.Temporary() {
			return types.FailureTransient
		}
		msg := uerr.Err.Error()
		if strings.Contains(msg, "connection") || strings.Contains(msg, "EOF") {
			return types.FailureTransient
		}
	}
	return types.FailurePermanent
}

var _ Client = (*HTTPClient)(nil)
var _ Client = (Func)(nil)
