// Package internalhttp posts JSON to sibling services over the internal API.
package internalhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nova-payments/internal/config"
	"nova-payments/internal/domain/ports/adapter"
	"nova-payments/internal/infra/logging"
)

const (
	HeaderInternalKey   = "X-INTERNAL-KEY"
	HeaderCorrelationID = "X-Correlation-ID"
)

// Client carries the internal key and correlation id on every call.
type Client struct {
	service string
	baseURL string
	apiKey  string
	client  *http.Client
}

// New validates cfg.BaseURL against cfg.AllowedPrefixes. A base URL outside
// the allow-list is reported as adapter.ErrPermanent.
func New(service string, cfg config.ClientConfig, apiKey string) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if err := CheckBaseURL(base, cfg.AllowedPrefixes); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		service: service,
		baseURL: base,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// CheckBaseURL accepts http(s) URLs that equal an allowed prefix or extend it
// at a port or path boundary.
func CheckBaseURL(base string, allowed []string) error {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: malformed base url %q", adapter.ErrPermanent, base)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", adapter.ErrPermanent, u.Scheme)
	}
	for _, p := range allowed {
		p = strings.TrimRight(p, "/")
		if p == "" || !strings.HasPrefix(base, p) {
			continue
		}
		rest := base[len(p):]
		if rest == "" || rest[0] == ':' || rest[0] == '/' {
			return nil
		}
	}
	return fmt.Errorf("%w: base url %q is not allowed", adapter.ErrPermanent, base)
}

func (c *Client) HasKey() bool { return c.apiKey != "" }

// PostJSON sends payload to path. Non-2xx answers come back as
// *adapter.RemoteError.
func (c *Client) PostJSON(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encode %s request: %v", adapter.ErrPermanent, c.service, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build %s request: %v", adapter.ErrPermanent, c.service, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(HeaderInternalKey, c.apiKey)
	}
	if id := logging.CorrelationID(ctx); id != "" {
		req.Header.Set(HeaderCorrelationID, id)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", c.service, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &adapter.RemoteError{Service: c.service, StatusCode: resp.StatusCode}
	}
	return nil
}
