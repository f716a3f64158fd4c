package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"opsbridge/internal/platform/metrics"
	"opsbridge/pkg/platform/retry"
)

const tracerName = "opsbridge/recordstore"

// Config holds the connection settings read once at startup.
type Config struct {
	BaseURL     string
	Token       string
	Timeout     time.Duration
	MaxAttempts int
}

// Client talks to the record store REST API. It is safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its transport is used as-is, so
// callers that want rate-limit backoff must wrap it in retry.New themselves.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) {
		cl.metrics = m
	}
}

// New builds a client whose transport retries rate-limited calls.
func New(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("recordstore base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse recordstore base URL: %w", err)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		m := c.metrics
		c.http = &http.Client{
			Timeout: timeout,
			Transport: retry.New(http.DefaultTransport,
				retry.WithMaxAttempts(cfg.MaxAttempts),
				retry.WithOnRetry(func(_ *http.Request, _ int, _ time.Duration) {
					m.IncRecordStoreRetry()
				}),
			),
		}
	}
	return c, nil
}

type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset"`
}

type fieldsBody struct {
	Fields Fields `json:"fields"`
}

type batchBody struct {
	Records []fieldsBody `json:"records"`
}

// List returns records matching q, following pagination until q.MaxRecords is reached.
func (c *Client) List(ctx context.Context, table string, q Query) ([]Record, error) {
	var out []Record
	offset := ""
	for {
		params := url.Values{}
		if f := q.Formula(); f != "" {
			params.Set("filterByFormula", f)
		}
		if q.MaxRecords > 0 {
			params.Set("maxRecords", strconv.Itoa(q.MaxRecords))
		}
		if offset != "" {
			params.Set("offset", offset)
		}

		var page listResponse
		if err := c.do(ctx, "list", table, http.MethodGet, c.tableURL(table, "")+"?"+params.Encode(), nil, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Records...)
		if page.Offset == "" || (q.MaxRecords > 0 && len(out) >= q.MaxRecords) {
			break
		}
		offset = page.Offset
	}
	if q.MaxRecords > 0 && len(out) > q.MaxRecords {
		out = out[:q.MaxRecords]
	}
	return out, nil
}

// Get fetches one record. A missing record yields an error wrapping sentinel.ErrNotFound.
func (c *Client) Get(ctx context.Context, table, id string) (*Record, error) {
	var rec Record
	if err := c.do(ctx, "get", table, http.MethodGet, c.tableURL(table, id), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create inserts one record.
func (c *Client) Create(ctx context.Context, table string, fields Fields) (*Record, error) {
	var rec Record
	if err := c.do(ctx, "create", table, http.MethodPost, c.tableURL(table, ""), fieldsBody{Fields: fields}, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateBatch inserts up to MaxBatchSize records in one call and returns what
// the store reports as created. The returned slice may be shorter than batch;
// callers decide what a short count means.
func (c *Client) CreateBatch(ctx context.Context, table string, batch []Fields) ([]Record, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	if len(batch) > MaxBatchSize {
		return nil, fmt.Errorf("recordstore batch of %d exceeds limit of %d", len(batch), MaxBatchSize)
	}
	body := batchBody{Records: make([]fieldsBody, len(batch))}
	for i, f := range batch {
		body.Records[i] = fieldsBody{Fields: f}
	}
	var resp listResponse
	if err := c.do(ctx, "create_batch", table, http.MethodPost, c.tableURL(table, ""), body, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

// Update patches the given fields of one record; other fields are untouched.
func (c *Client) Update(ctx context.Context, table, id string, fields Fields) (*Record, error) {
	var rec Record
	if err := c.do(ctx, "update", table, http.MethodPatch, c.tableURL(table, id), fieldsBody{Fields: fields}, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Delete removes one record.
func (c *Client) Delete(ctx context.Context, table, id string) error {
	return c.do(ctx, "delete", table, http.MethodDelete, c.tableURL(table, id), nil, nil)
}

func (c *Client) tableURL(table, id string) string {
	u := c.baseURL + "/" + url.PathEscape(table)
	if id != "" {
		u += "/" + url.PathEscape(id)
	}
	return u
}

func (c *Client) do(ctx context.Context, op, table, method, target string, in, out any) (err error) {
	start := time.Now()
	status := 0
	ctx, span := c.tracer.Start(ctx, "recordstore."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("recordstore.table", table)),
	)
	defer func() {
		span.SetAttributes(attribute.Int("http.status_code", status))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		c.metrics.ObserveRecordStoreCall(op, status, time.Since(start))
	}()

	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode recordstore %s body: %w", op, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build recordstore %s request: %w", op, err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("recordstore %s %s: %w", op, table, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, snippetLimit+1))
		return &UpstreamError{Op: op, Table: table, Status: resp.StatusCode, Body: truncate(snippet)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode recordstore %s response: %w", op, err)
	}
	return nil
}

var _ Store = (*Client)(nil)
