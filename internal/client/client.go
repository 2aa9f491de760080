// Package client is a typed REST client for the reservation API. Every call
// carries the bearer credential of a shared session.Context; a 401 from the
// server invalidates that session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/venue-reservation/internal/model"
	"github.com/iliyamo/venue-reservation/internal/session"
)

// APIError is a non-2xx response. It unwraps to the matching taxonomy
// error, so errors.Is(err, model.ErrAlreadyDecided) works on it.
type APIError struct {
	Status  int
	Code    string
	Message string
	kind    error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return e.kind }

// Client talks to one API server.
type Client struct {
	base    string
	http    *http.Client
	session *session.Context

	mu      sync.Mutex
	refresh string
}

// New returns a client for baseURL. hc may be nil.
func New(baseURL string, sess *session.Context, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: hc, session: sess}
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *session.Context { return c.session }

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cred := c.session.Credential(); cred != "" {
		req.Header.Set("Authorization", "Bearer "+cred)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s %s: %v", model.ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.apiError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", model.ErrNetwork, method, path, err)
	}
	return nil
}

func (c *Client) apiError(resp *http.Response) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		body.Error = "http_error"
		body.Message = strings.TrimSpace(string(raw))
	}
	apiErr := &APIError{Status: resp.StatusCode, Code: body.Error, Message: body.Message, kind: model.FromCode(body.Error)}
	if apiErr.kind == nil && resp.StatusCode == http.StatusUnauthorized {
		apiErr.kind = model.ErrUnauthorized
	}
	if resp.StatusCode == http.StatusUnauthorized && c.session.Credential() != "" {
		c.session.Invalidate(apiErr)
	}
	return apiErr
}

// ----- accounts -----

type authResp struct {
	Token   string     `json:"token"`
	User    model.User `json:"user"`
	Refresh struct {
		Token string `json:"token"`
	} `json:"refresh"`
}

func (c *Client) signIn(res authResp) (model.User, error) {
	if _, err := c.session.SignIn(res.Token); err != nil {
		return model.User{}, err
	}
	c.mu.Lock()
	c.refresh = res.Refresh.Token
	c.mu.Unlock()
	return res.User, nil
}

// Register creates a customer account and signs the session in.
func (c *Client) Register(ctx context.Context, email, password, displayName string) (model.User, error) {
	var res authResp
	err := c.do(ctx, http.MethodPost, "/register", map[string]string{
		"email": email, "password": password, "display_name": displayName,
	}, &res)
	if err != nil {
		return model.User{}, err
	}
	return c.signIn(res)
}

func (c *Client) Login(ctx context.Context, email, password string) (model.User, error) {
	var res authResp
	if err := c.do(ctx, http.MethodPost, "/login", map[string]string{"email": email, "password": password}, &res); err != nil {
		return model.User{}, err
	}
	return c.signIn(res)
}

// Refresh rotates the refresh token kept from the last sign-in.
func (c *Client) Refresh(ctx context.Context) (model.User, error) {
	c.mu.Lock()
	raw := c.refresh
	c.mu.Unlock()
	if raw == "" {
		return model.User{}, model.ErrInvalidCredential
	}
	var res authResp
	if err := c.do(ctx, http.MethodPost, "/refresh", map[string]string{"refresh_token": raw}, &res); err != nil {
		return model.User{}, err
	}
	return c.signIn(res)
}

// Logout revokes the refresh token on the server and clears the session.
// The session is cleared even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	raw := c.refresh
	c.refresh = ""
	c.mu.Unlock()
	var err error
	if raw != "" || c.session.Credential() != "" {
		err = c.do(ctx, http.MethodPost, "/logout", map[string]string{"refresh_token": raw}, nil)
	}
	if cerr := c.session.Clear(); err == nil {
		err = cerr
	}
	return err
}

func (c *Client) Me(ctx context.Context) (model.User, error) {
	var u model.User
	err := c.do(ctx, http.MethodGet, "/user/me", nil, &u)
	return u, err
}

func (c *Client) UpdateProfile(ctx context.Context, displayName, avatarRef string) (model.User, error) {
	var u model.User
	err := c.do(ctx, http.MethodPut, "/user/me", map[string]string{"display_name": displayName, "avatar_url": avatarRef}, &u)
	return u, err
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	return c.do(ctx, http.MethodPost, "/change-password", map[string]string{
		"current_password": current, "new_password": next,
	}, nil)
}

func (c *Client) Users(ctx context.Context) ([]model.User, error) {
	var us []model.User
	err := c.do(ctx, http.MethodGet, "/users", nil, &us)
	return us, err
}

func idPath(format string, id uint64) string { return fmt.Sprintf(format, id) }

// Venues lists the directory, optionally filtered.
func (c *Client) Venues(ctx context.Context, f model.VenueFilter) ([]model.Venue, error) {
	q := url.Values{}
	if f.Name != "" {
		q.Set("name", f.Name)
	}
	if f.Type != 0 {
		q.Set("type", f.Type.String())
	}
	if f.Cuisine != "" {
		q.Set("cuisine", f.Cuisine)
	}
	path := "/restaurant"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var vs []model.Venue
	err := c.do(ctx, http.MethodGet, path, nil, &vs)
	return vs, err
}

func (c *Client) Venue(ctx context.Context, id uint64) (model.Venue, error) {
	var v model.Venue
	err := c.do(ctx, http.MethodGet, idPath("/restaurant/%d", id), nil, &v)
	return v, err
}

func (c *Client) Menu(ctx context.Context, venueID uint64) ([]model.MenuItem, error) {
	var items []model.MenuItem
	err := c.do(ctx, http.MethodGet, idPath("/restaurant/%d/menu", venueID), nil, &items)
	return items, err
}
