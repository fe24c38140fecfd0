// Package vendorhttp is the outbound HTTP plumbing shared by vendor adapters.
// Every call is bounded by a timeout and its failures are classified into
// the domain error taxonomy.
package vendorhttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fasttag/tag-position-api/internal/api/metrics"
	"github.com/fasttag/tag-position-api/internal/core/domain"
)

const (
	DefaultTimeout = 15 * time.Second
	maxBodyBytes   = 4 << 20
	snippetLen     = 256
)

// Client performs vendor calls. Safe for concurrent use.
type Client struct {
	vendor string
	http   *http.Client
}

// New returns a Client whose calls never outlive timeout.
func New(vendor string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		vendor: vendor,
		http:   &http.Client{Timeout: timeout},
	}
}

// Response is a fully read vendor reply.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Do sends req and reads the whole body. Only network-level failures are
// returned as errors; status handling is left to the caller.
func (c *Client) Do(ctx context.Context, req *http.Request, operation string) (*Response, error) {
	req = req.WithContext(ctx)
	target := req.URL.Host + req.URL.Path

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.VendorRequestDuration.WithLabelValues(c.vendor, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s request to %s failed: %v", domain.ErrTransport, c.vendor, operation, target, stripURL(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: reading response body: %v", domain.ErrTransport, c.vendor, operation, err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// StatusError builds the transport error for a non-2xx reply.
func (c *Client) StatusError(operation string, r *Response) error {
	return fmt.Errorf("%w: %s %s returned HTTP %d: %s", domain.ErrTransport, c.vendor, operation, r.StatusCode, Snippet(r.Body))
}

// DecodeJSON unmarshals body into v, reporting malformed payloads as
// protocol errors.
func (c *Client) DecodeJSON(operation string, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %s %s: unparsable response %q: %v", domain.ErrProtocol, c.vendor, operation, Snippet(body), err)
	}
	return nil
}

// Snippet returns a trimmed, bounded excerpt of a response body for error
// messages.
func Snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > snippetLen {
		return s[:snippetLen] + "..."
	}
	return s
}

// stripURL drops the request URL from *url.Error so query-string
// credentials never reach error messages.
func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}
