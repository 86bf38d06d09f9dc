// Package api is the client for the authoritative favorites API. The
// server-side favorite set is owned by the service; this client only
// fetches it and pushes merged results back. Session credentials ride
// on cookies, matching the service's browser clients.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/net/publicsuffix"
)

var (
	// ErrUnauthenticated is returned when the session credential is
	// missing or expired.
	ErrUnauthenticated = errors.New("not authenticated")
)

// Client talks to the favorites service.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// Option is a function that configures the Client.
type Option func(*Client)

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client entirely.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for the given base URL, e.g.
// "https://openmeet.example". A cookie jar holds the session credential
// across calls.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	client := &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// SetSessionCookie installs a session cookie for the API host. Useful
// when the credential comes from configuration rather than a login flow.
func (c *Client) SetSessionCookie(name, value string) {
	if c.httpClient.Jar == nil {
		return
	}
	c.httpClient.Jar.SetCookies(c.baseURL, []*http.Cookie{{Name: name, Value: value}})
}

// favoritesPayload is the wire shape of the favorite set.
type favoritesPayload struct {
	GroupIDs []string `json:"groupIds"`
}

// Favorites fetches the server's authoritative favorite set for the
// current identity.
func (c *Client) Favorites(ctx context.Context) ([]string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/favorites", nil)
	if err != nil {
		return nil, err
	}

	var payload favoritesPayload
	if err := c.do(req, &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch favorites: %w", err)
	}

	return payload.GroupIDs, nil
}

// PutFavorites replaces the server's favorite set with the given IDs.
// The reconciler calls this to push a merged set back.
func (c *Client) PutFavorites(ctx context.Context, groupIDs []string) error {
	if groupIDs == nil {
		groupIDs = []string{}
	}
	body, err := json.Marshal(favoritesPayload{GroupIDs: groupIDs})
	if err != nil {
		return fmt.Errorf("failed to encode favorites: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, "/api/v1/favorites", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("failed to store favorites: %w", err)
	}
	return nil
}

// Session describes the current authentication state.
type Session struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"userId"`
	Name          string `json:"name"`
}

// Session fetches the current authentication state. An anonymous
// visitor is not an error: Authenticated is simply false.
func (c *Client) Session(ctx context.Context) (Session, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/session", nil)
	if err != nil {
		return Session{}, err
	}

	var session Session
	if err := c.do(req, &session); err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return Session{}, nil
		}
		return Session{}, fmt.Errorf("failed to fetch session: %w", err)
	}
	return session, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u := *c.baseURL
	u.Path = path

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthenticated
	case resp.StatusCode >= 400:
		return fmt.Errorf("server returned %s", resp.Status)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
