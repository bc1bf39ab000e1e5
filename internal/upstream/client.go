// Package upstream is the console's client for the remote product API. It
// attaches the session bearer token to every call, normalizes failures
// into a four-kind taxonomy and never retries: each call is at-most-once,
// and callers re-fetch lists after mutations instead of patching local
// state.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"resumedesk.org/internal/audit"
	"resumedesk.org/internal/obs"
)

// TokenFunc yields the bearer token for the current request context,
// empty when logged out. Calls without a token still fire: the product
// API is the final authority.
type TokenFunc func(ctx context.Context) string

// AuthFailureFunc runs when the product API rejects the session, so the
// session store can be cleared at the one place that learns about it.
type AuthFailureFunc func(ctx context.Context)

// Client is the shared request layer used by every resource handler.
type Client struct {
	baseURL       string
	hc            *http.Client
	tokens        TokenFunc
	onAuthFailure AuthFailureFunc
}

// New builds a client. hc may be nil, in which case a 15s-timeout client
// is used.
func New(baseURL string, hc *http.Client, tokens TokenFunc, onAuthFailure AuthFailureFunc) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:       baseURL,
		hc:            hc,
		tokens:        tokens,
		onAuthFailure: onAuthFailure,
	}
}

func (c *Client) do(ctx context.Context, resource, operation, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &Error{Kind: KindTransport, Message: "invalid request", cause: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.tokens != nil {
		if tok := c.tokens(ctx); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	if rid := audit.RequestIDFromContext(ctx); rid != "" {
		req.Header.Set("X-Request-ID", rid)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		obs.ObserveUpstream(resource, operation, "transport_error", time.Since(start))
		return &Error{Kind: KindTransport, Message: "product API unreachable", cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		uerr := errorFromResponse(resp)
		obs.ObserveUpstream(resource, operation, uerr.Kind.String()+"_error", time.Since(start))
		if uerr.Kind == KindAuth && c.onAuthFailure != nil {
			c.onAuthFailure(ctx)
		}
		return uerr
	}
	obs.ObserveUpstream(resource, operation, "ok", time.Since(start))

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{Kind: KindServer, Status: resp.StatusCode, Message: "malformed product API response", cause: err}
		}
	}
	return nil
}

// Ping issues a lightweight read to verify the product API is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "health", "ping", http.MethodGet, "/total-downloads", nil, "", nil)
}

func (c *Client) getJSON(ctx context.Context, resource, operation, path string, out any) error {
	return c.do(ctx, resource, operation, http.MethodGet, path, nil, "", out)
}

func (c *Client) sendJSON(ctx context.Context, resource, operation, method, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return &Error{Kind: KindTransport, Message: "encode request", cause: err}
	}
	return c.do(ctx, resource, operation, method, path, bytes.NewReader(payload), "application/json", out)
}

func (c *Client) sendForm(ctx context.Context, resource, operation, method, path string, form Form, out any) error {
	body, contentType, err := form.Encode()
	if err != nil {
		return &Error{Kind: KindTransport, Message: "encode multipart form", cause: err}
	}
	return c.do(ctx, resource, operation, method, path, body, contentType, out)
}

func (c *Client) delete(ctx context.Context, resource, operation, path string) error {
	return c.do(ctx, resource, operation, http.MethodDelete, path, nil, "", nil)
}
