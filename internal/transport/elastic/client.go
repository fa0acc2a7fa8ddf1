// Package elastic wraps the Elasticsearch client with the engine-level
// operations the rest of the system consumes: search, bulk writes, document
// deletes and index lifecycle. All failures are classified as transport
// errors so callers can fall back without inspecting HTTP details.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"

	"github.com/driftline/contentdex/internal/domain"
)

// Config holds the engine connection settings.
type Config struct {
	Addresses []string
	Username  string
	Password  string
}

// Client is the engine transport.
type Client struct {
	es  *elasticsearch.Client
	log *zap.Logger
}

// New creates an engine client.
func New(cfg Config, log *zap.Logger) (*Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("%w: no engine addresses", domain.ErrConfiguration)
	}
	if log == nil {
		log = zap.NewNop()
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create engine client: %w", err)
	}
	return &Client{es: es, log: log}, nil
}

// Ping checks engine reachability.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return domain.NewTransportError("ping", 0, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return domain.NewTransportError("ping", res.StatusCode, errors.New(res.Status()))
	}
	return nil
}

// Search executes a request body against one or more indices. The indices
// argument accepts the comma-joined form the tenant router produces.
func (c *Client) Search(ctx context.Context, indices string, body map[string]any) (*Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("encode search body: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(strings.Split(indices, ",")...),
		c.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, domain.NewTransportError("search", 0, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, c.responseError("search", res)
	}

	var out Response
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, domain.NewTransportError("search", res.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return &out, nil
}

// BulkAction is a single operation in a bulk request.
type BulkAction struct {
	// Op is "index" or "delete".
	Op  string
	ID  string
	Doc any
}

// Bulk sends a batch of index/delete actions against one index. A non-2xx
// envelope status is a transport error; per-item failures are reported in
// the result, not as an error.
func (c *Client) Bulk(ctx context.Context, index string, actions []BulkAction) (*BulkResult, error) {
	if len(actions) == 0 {
		return &BulkResult{}, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, a := range actions {
		meta := map[string]any{a.Op: map[string]any{"_id": a.ID}}
		if err := enc.Encode(meta); err != nil {
			return nil, fmt.Errorf("encode bulk action: %w", err)
		}
		if a.Op == "index" {
			if err := enc.Encode(a.Doc); err != nil {
				return nil, fmt.Errorf("encode bulk document %s: %w", a.ID, err)
			}
		}
	}

	res, err := c.es.Bulk(
		bytes.NewReader(buf.Bytes()),
		c.es.Bulk.WithContext(ctx),
		c.es.Bulk.WithIndex(index),
	)
	if err != nil {
		return nil, domain.NewTransportError("bulk", 0, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, c.responseError("bulk", res)
	}

	var out BulkResult
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, domain.NewTransportError("bulk", res.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return &out, nil
}

// DeleteDocument removes one document. A missing document maps to
// ErrEntityNotFound so callers can treat it as already-deleted.
func (c *Client) DeleteDocument(ctx context.Context, index, id string) error {
	res, err := c.es.Delete(index, id, c.es.Delete.WithContext(ctx))
	if err != nil {
		return domain.NewTransportError("delete", 0, err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return fmt.Errorf("delete %s/%s: %w", index, id, domain.ErrEntityNotFound)
	}
	if res.IsError() {
		return c.responseError("delete", res)
	}
	return nil
}

// CreateIndex creates an index with the content mapping. Creating an index
// that already exists is not an error.
func (c *Client) CreateIndex(ctx context.Context, name string) error {
	res, err := c.es.Indices.Create(
		name,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(strings.NewReader(contentMapping)),
	)
	if err != nil {
		return domain.NewTransportError("create index", 0, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		if bytes.Contains(body, []byte("resource_already_exists_exception")) {
			return nil
		}
		return domain.NewTransportError("create index", res.StatusCode, errors.New(string(body)))
	}
	return nil
}

// DeleteIndex removes an index. A missing index is not an error.
func (c *Client) DeleteIndex(ctx context.Context, name string) error {
	res, err := c.es.Indices.Delete([]string{name}, c.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		return domain.NewTransportError("delete index", 0, err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return nil
	}
	if res.IsError() {
		return c.responseError("delete index", res)
	}
	return nil
}

// IndexExists reports whether an index exists.
func (c *Client) IndexExists(ctx context.Context, name string) (bool, error) {
	res, err := c.es.Indices.Exists([]string{name}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, domain.NewTransportError("index exists", 0, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case 200:
		return true, nil
	case 404:
		return false, nil
	}
	return false, domain.NewTransportError("index exists", res.StatusCode, errors.New(res.Status()))
}

func (c *Client) responseError(op string, res *esapi.Response) error {
	body, _ := io.ReadAll(res.Body)
	c.log.Warn("engine request failed",
		zap.String("op", op),
		zap.Int("status", res.StatusCode),
		zap.ByteString("body", body))
	return domain.NewTransportError(op, res.StatusCode, errors.New(string(body)))
}
