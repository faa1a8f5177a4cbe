// Package supabase persists housing data through a hosted PostgREST endpoint.
package supabase

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"
)

const (
	maxResponseBytes  = 16 << 20 // 16 MiB
	maxErrorBodyBytes = 32 << 10 // 32 KiB
)

// Prefer header values understood by PostgREST.
const (
	preferRepresentation = "return=representation"
	preferMerge          = "resolution=merge-duplicates,return=representation"
	preferIgnore         = "resolution=ignore-duplicates,return=representation"
)

// Config holds connection settings.
type Config struct {
	URL        string
	ServiceKey string
	HTTPClient *http.Client
}

// Client wraps the PostgREST API.
type Client struct {
	url        string
	serviceKey string
	httpClient *http.Client
}

// NewClient validates the configuration and returns a client that enforces
// TLS 1.2 or newer.
func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if raw == "" {
		return nil, fmt.Errorf("SUPABASE_URL is required")
	}
	parsed, err := neturl.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("SUPABASE_URL must be an absolute URL")
	}
	if parsed.User != nil {
		return nil, fmt.Errorf("SUPABASE_URL must not include user info")
	}
	if strings.TrimSpace(cfg.ServiceKey) == "" {
		return nil, fmt.Errorf("SUPABASE_SERVICE_ROLE_KEY is required")
	}

	client := cfg.HTTPClient
	if client == nil {
		transport := http.DefaultTransport
		if base, ok := http.DefaultTransport.(*http.Transport); ok {
			cloned := base.Clone()
			if cloned.TLSClientConfig != nil {
				cloned.TLSClientConfig = cloned.TLSClientConfig.Clone()
				if cloned.TLSClientConfig.MinVersion < tls.VersionTLS12 {
					cloned.TLSClientConfig.MinVersion = tls.VersionTLS12
				}
			} else {
				cloned.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			}
			transport = cloned
		}
		client = &http.Client{Timeout: 30 * time.Second, Transport: transport}
	}

	return &Client{url: raw, serviceKey: cfg.ServiceKey, httpClient: client}, nil
}

// APIError is a non-2xx PostgREST response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase API error %d: %s", e.Status, e.Message)
}

// request calls /rest/v1/<table> and returns the response body.
func (c *Client) request(ctx context.Context, method, table string, query neturl.Values, body any, prefer string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.url, table)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, truncated, readErr := readLimited(resp.Body, maxErrorBodyBytes)
		if readErr != nil {
			return nil, fmt.Errorf("read error response: %w", readErr)
		}
		text := strings.TrimSpace(string(msg))
		if truncated {
			text += "...(truncated)"
		}
		return nil, &APIError{Status: resp.StatusCode, Message: text}
	}

	data, truncated, err := readLimited(resp.Body, maxResponseBytes)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if truncated {
		return nil, errors.New("supabase response exceeds size limit")
	}
	return data, nil
}

func readLimited(r io.Reader, limit int64) ([]byte, bool, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) > limit {
		return data[:limit], true, nil
	}
	return data, false, nil
}
