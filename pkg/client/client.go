// Package client talks to the reminders HTTP API. When the server cannot be
// reached it serves calls from a local reminders.Service instead.
package client

import (
	"bytes"
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

	"wellness/pkg/reminders"
)

// ErrUnavailable wraps transport failures and 5xx responses.
var ErrUnavailable = errors.New("reminder server unavailable")

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string // the "error" field of the body
	Message    string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("server returned %d", e.StatusCode)
	if e.Code != "" {
		msg += ": " + e.Code
	}
	if e.Message != "" {
		msg += " (" + e.Message + ")"
	}
	return msg
}

// Is lets a 404 match reminders.ErrNotFound and a 400 match
// reminders.ErrValidation.
func (e *APIError) Is(target error) bool {
	switch target {
	case reminders.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case reminders.ErrValidation:
		return e.StatusCode == http.StatusBadRequest
	}
	return false
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string
	local   *reminders.Service
	log     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithLocal sets the service used while the server is unavailable.
func WithLocal(svc *reminders.Service) Option {
	return func(c *Client) { c.local = svc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New returns a Client for the reminders API rooted at baseURL, for example
// http://localhost:5000/api/reminders.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// List returns the reminders of owner matching f.
func (c *Client) List(ctx context.Context, owner string, f reminders.Filter) ([]reminders.Reminder, error) {
	q := url.Values{}
	if f.Active != nil {
		if *f.Active {
			q.Set("status", "active")
		} else {
			q.Set("status", "inactive")
		}
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	path := "/user/" + url.PathEscape(owner)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out []reminders.Reminder
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	if c.offline(ctx, err) {
		return c.local.ListByOwner(ctx, owner, f)
	}
	if err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

// Upcoming returns the active reminders of owner still due today.
func (c *Client) Upcoming(ctx context.Context, owner string) ([]reminders.Reminder, error) {
	var out []reminders.Reminder
	err := c.do(ctx, http.MethodGet, "/upcoming/"+url.PathEscape(owner), nil, &out)
	if c.offline(ctx, err) {
		return c.local.ListUpcoming(ctx, owner, c.local.Now())
	}
	if err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

func (c *Client) Create(ctx context.Context, in reminders.Input) (*reminders.Reminder, error) {
	var out reminders.Reminder
	err := c.do(ctx, http.MethodPost, "", in, &out)
	if c.offline(ctx, err) {
		return c.local.Create(ctx, in)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Get(ctx context.Context, id string) (*reminders.Reminder, error) {
	var out reminders.Reminder
	err := c.do(ctx, http.MethodGet, "/"+url.PathEscape(id), nil, &out)
	if c.offline(ctx, err) {
		return c.local.Get(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Update(ctx context.Context, id string, p reminders.Patch) (*reminders.Reminder, error) {
	var out reminders.Reminder
	err := c.do(ctx, http.MethodPut, "/"+url.PathEscape(id), p, &out)
	if c.offline(ctx, err) {
		return c.local.Update(ctx, id, p)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Complete(ctx context.Context, id string) (*reminders.Reminder, error) {
	var out reminders.Reminder
	err := c.do(ctx, http.MethodPatch, "/"+url.PathEscape(id)+"/complete", nil, &out)
	if c.offline(ctx, err) {
		return c.local.Complete(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	err := c.do(ctx, http.MethodDelete, "/"+url.PathEscape(id), nil, nil)
	if c.offline(ctx, err) {
		return c.local.Delete(ctx, id)
	}
	return err
}

// offline reports whether err should be answered from the local service.
func (c *Client) offline(ctx context.Context, err error) bool {
	if err == nil || c.local == nil || ctx.Err() != nil || !errors.Is(err, ErrUnavailable) {
		return false
	}
	c.log.Warn("Reminder server unavailable, using local storage", "error", err)
	return true
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: res.StatusCode}
		var eb errorBody
		if json.NewDecoder(res.Body).Decode(&eb) == nil {
			apiErr.Code = eb.Error
			apiErr.Message = eb.Message
		}
		if res.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: %w", ErrUnavailable, apiErr)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func nonNil(list []reminders.Reminder) []reminders.Reminder {
	if list == nil {
		return []reminders.Reminder{}
	}
	return list
}
