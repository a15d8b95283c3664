// Package api is the HTTP client for the contacts backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/Makepad-fr/rolodex/internal/metrics"
	"github.com/Makepad-fr/rolodex/internal/model"
)

const (
	statusSuccess = "Success"
	maxBodyBytes  = 8 << 20
	tracerName    = "github.com/Makepad-fr/rolodex/internal/api"
)

// envelope is the wrapper every backend response uses.
type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (e envelope) hasData() bool {
	d := bytes.TrimSpace(e.Data)
	return len(d) > 0 && !bytes.Equal(d, []byte("null"))
}

// Client talks to the contacts REST API. Timeouts belong to the http.Client.
type Client struct {
	baseURL string
	http    *http.Client
	token   func() string
	log     *slog.Logger
	tracer  trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sets the bearer credential source. It is read on every request
// so a new login takes effect without rebuilding the client.
func WithToken(fn func() string) Option {
	return func(c *Client) { c.token = fn }
}

// WithTracerProvider records spans with tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer(tracerName) }
}

// WithLogger sets the logger used for request tracing at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New builds a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		token:   func() string { return "" },
		log:     slog.New(slog.DiscardHandler),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListActive returns every contact not in the trash.
func (c *Client) ListActive(ctx context.Context) ([]model.Contact, error) {
	env, err := c.do(ctx, "list_active", http.MethodGet, "/contacts/all", nil)
	if err != nil {
		return nil, err
	}
	return decodeList(env)
}

// Get returns one contact.
func (c *Client) Get(ctx context.Context, id int64) (model.Contact, error) {
	env, err := c.do(ctx, "get", http.MethodGet, fmt.Sprintf("/contacts/%d", id), nil)
	if err != nil {
		return model.Contact{}, err
	}
	if !env.hasData() {
		return model.Contact{}, &Error{Status: http.StatusNotFound, Message: "Contact not found"}
	}
	var out model.Contact
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return model.Contact{}, fmt.Errorf("decode contact: %w", err)
	}
	return out, nil
}

// Create adds a contact and returns the server's canonical record.
func (c *Client) Create(ctx context.Context, p model.Payload) (model.Contact, error) {
	env, err := c.do(ctx, "create", http.MethodPost, "/contacts/add", p)
	if err != nil {
		return model.Contact{}, err
	}
	if !env.hasData() {
		return model.Contact{}, &Error{Message: env.Message}
	}
	var out model.Contact
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return model.Contact{}, fmt.Errorf("decode contact: %w", err)
	}
	return out, nil
}

// Patch applies a partial update.
func (c *Client) Patch(ctx context.Context, id int64, p model.Payload) error {
	_, err := c.do(ctx, "patch", http.MethodPatch, fmt.Sprintf("/contacts/update/%d", id), p)
	return err
}

// SoftDelete moves a contact to the trash.
func (c *Client) SoftDelete(ctx context.Context, id int64) error {
	_, err := c.do(ctx, "soft_delete", http.MethodPatch, fmt.Sprintf("/contacts/remove/%d", id), nil)
	return err
}

// ListTrash returns every soft-deleted contact.
func (c *Client) ListTrash(ctx context.Context) ([]model.Contact, error) {
	env, err := c.do(ctx, "list_trash", http.MethodGet, "/contacts/trash", nil)
	if err != nil {
		return nil, err
	}
	return decodeList(env)
}

// Restore moves a contact out of the trash.
func (c *Client) Restore(ctx context.Context, id int64) error {
	_, err := c.do(ctx, "restore", http.MethodPatch, fmt.Sprintf("/contacts/restore/%d", id), nil)
	return err
}

func decodeList(env envelope) ([]model.Contact, error) {
	if !env.hasData() {
		return []model.Contact{}, nil
	}
	var out []model.Contact
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, fmt.Errorf("decode contacts: %w", err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body any) (env envelope, err error) {
	start := time.Now()
	reqID := uuid.NewString()
	ctx, span := c.tracer.Start(ctx, "api."+op, trace.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
		attribute.String("request.id", reqID),
	))
	defer func() {
		metrics.ObserveRemote(op, err, time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		c.log.Debug("api call", "op", op, "method", method, "path", path,
			"request_id", reqID, "duration", time.Since(start), "err", err)
	}()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return envelope{}, fmt.Errorf("encode body: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return envelope{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return envelope{}, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return envelope{}, fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		if jerr := json.Unmarshal(raw, &env); jerr != nil && resp.StatusCode < 400 {
			return envelope{}, fmt.Errorf("decode envelope: %w", jerr)
		}
	}
	if resp.StatusCode >= 400 {
		return envelope{}, &Error{Status: resp.StatusCode, Message: env.Message}
	}
	if env.Status != "" && env.Status != statusSuccess {
		return envelope{}, &Error{Message: env.Message}
	}
	return env, nil
}
