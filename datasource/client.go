package datasource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ariebrainware/patient-portal/config"
	"github.com/ariebrainware/patient-portal/model"
	cache "github.com/patrickmn/go-cache"
)

const maxBodyBytes = 4 << 20

// Client talks to the remote data service. Doctor, hospital and category
// lookups are cached per id for the configured TTL; user-scoped lists never are.
type Client struct {
	baseURL string
	http    *http.Client
	lookups *cache.Cache
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLookupCacheTTL sets the lookup cache TTL. Zero disables caching.
func WithLookupCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl <= 0 {
			c.lookups = nil
			return
		}
		c.lookups = cache.New(ttl, 2*ttl)
	}
}

// NewClient builds a client for baseURL (e.g. http://localhost:3001).
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		lookups: cache.New(5*time.Minute, 10*time.Minute),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig builds a client from DATA_API_URL, HTTP_TIMEOUT and LOOKUP_CACHE_TTL.
func NewClientFromConfig(cfg *config.Config) *Client {
	return NewClient(cfg.DataAPIURL, cfg.HTTPTimeout, WithLookupCacheTTL(cfg.LookupCacheTTL))
}

func (c *Client) GetUser(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := c.getJSON(ctx, "/api/users/"+url.PathEscape(email), &u)
	return u, err
}

func (c *Client) GetLocation(ctx context.Context, id string) (model.Location, error) {
	var l model.Location
	err := c.getJSON(ctx, "/api/locations/"+url.PathEscape(id), &l)
	return l, err
}

// GetLogs returns the user's medical records in upstream order.
func (c *Client) GetLogs(ctx context.Context, email string) ([]model.Log, error) {
	var logs []model.Log
	if err := c.getJSON(ctx, "/api/logs/"+url.PathEscape(email), &logs); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []model.Log{}, nil
		}
		return nil, err
	}
	return logs, nil
}

func (c *Client) GetAppointments(ctx context.Context, email string) ([]model.Appointment, error) {
	var appts []model.Appointment
	if err := c.getJSON(ctx, "/api/appointments/"+url.PathEscape(email), &appts); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []model.Appointment{}, nil
		}
		return nil, err
	}
	return appts, nil
}

func (c *Client) GetDoctor(ctx context.Context, id string) (model.Doctor, error) {
	var d model.Doctor
	err := c.cachedJSON(ctx, "doctor:"+id, "/api/doctors/"+url.PathEscape(id), &d)
	return d, err
}

func (c *Client) GetHospital(ctx context.Context, id string) (model.Hospital, error) {
	var h model.Hospital
	err := c.cachedJSON(ctx, "hospital:"+id, "/api/hospitals/"+url.PathEscape(id), &h)
	return h, err
}

func (c *Client) GetCategory(ctx context.Context, id string) (model.Category, error) {
	var cat model.Category
	err := c.cachedJSON(ctx, "category:"+id, "/api/categories/"+url.PathEscape(id), &cat)
	return cat, err
}

// FlushLookups drops every cached doctor, hospital and category.
func (c *Client) FlushLookups() {
	if c.lookups != nil {
		c.lookups.Flush()
	}
}

// cachedJSON stores the raw body so every caller decodes its own copy.
func (c *Client) cachedJSON(ctx context.Context, key, path string, out interface{}) error {
	if c.lookups != nil {
		if raw, ok := c.lookups.Get(key); ok {
			return decode(path, raw.([]byte), out)
		}
	}
	body, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	if err := decode(path, body, out); err != nil {
		return err
	}
	if c.lookups != nil {
		c.lookups.SetDefault(key, body)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	body, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	return decode(path, body, out)
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request %s: %v", ErrTransport, path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", ErrTransport, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrTransport, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Path: path, Message: upstreamMessage(body)}
	}
	return body, nil
}

func decode(path string, body []byte, out interface{}) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	return nil
}

func upstreamMessage(body []byte) string {
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}
