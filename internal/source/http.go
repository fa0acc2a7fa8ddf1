// Package source reads entities, meta, and terms from the host application
// over its internal HTTP API. Entity IDs are globally resolvable; tenant
// scoping only matters when enumerating IDs for a reindex.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/driftline/contentdex/internal/domain"
	"github.com/driftline/contentdex/internal/domain/entity"
)

// Config holds the host API connection settings.
type Config struct {
	BaseURL    string
	APIKey     string
	TimeoutSec int
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.TimeoutSec <= 0 {
		c.TimeoutSec = 10
	}
}

// Client is an HTTP host-application reader.
type Client struct {
	base   string
	apiKey string
	http   *http.Client
	log    *zap.Logger
}

// New creates a host API client.
func New(cfg Config, log *zap.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: source base_url is required", domain.ErrConfiguration)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		base:   cfg.BaseURL,
		apiKey: cfg.APIKey,
		http:   &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
		log:    log,
	}, nil
}

type entityPayload struct {
	ID           int64  `json:"id"`
	Type         string `json:"type"`
	Status       string `json:"status"`
	ParentID     int64  `json:"parent_id"`
	AuthorID     int64  `json:"author_id"`
	AuthorLogin  string `json:"author_login"`
	AuthorName   string `json:"author_name"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	Excerpt      string `json:"excerpt"`
	Slug         string `json:"slug"`
	Date         string `json:"date"`
	DateGMT      string `json:"date_gmt"`
	Modified     string `json:"modified"`
	ModifiedGMT  string `json:"modified_gmt"`
	MimeType     string `json:"mime_type"`
	Permalink    string `json:"permalink"`
	CommentCount int64  `json:"comment_count"`
	MenuOrder    int    `json:"menu_order"`
}

func (p entityPayload) toEntity() entity.Entity {
	return entity.Entity{
		ID:           p.ID,
		Type:         p.Type,
		Status:       p.Status,
		ParentID:     p.ParentID,
		AuthorID:     p.AuthorID,
		AuthorLogin:  p.AuthorLogin,
		AuthorName:   p.AuthorName,
		Title:        p.Title,
		Content:      p.Content,
		Excerpt:      p.Excerpt,
		Slug:         p.Slug,
		Date:         p.Date,
		DateGMT:      p.DateGMT,
		Modified:     p.Modified,
		ModifiedGMT:  p.ModifiedGMT,
		MimeType:     p.MimeType,
		Permalink:    p.Permalink,
		CommentCount: p.CommentCount,
		MenuOrder:    p.MenuOrder,
	}
}

type termPayload struct {
	ID        int64  `json:"id"`
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	ParentID  int64  `json:"parent_id"`
	TaxTermID int64  `json:"tax_term_id"`
}

func (p termPayload) toTerm() entity.Term {
	return entity.Term{
		ID:        p.ID,
		Slug:      p.Slug,
		Name:      p.Name,
		ParentID:  p.ParentID,
		TaxTermID: p.TaxTermID,
	}
}

type taxonomyPayload struct {
	Name              string `json:"name"`
	Public            bool   `json:"public"`
	PubliclyQueryable bool   `json:"publicly_queryable"`
	Hierarchical      bool   `json:"hierarchical"`
}

// Entity implements prepare.Source.
func (c *Client) Entity(ctx context.Context, id int64) (entity.Entity, error) {
	var p entityPayload
	if err := c.get(ctx, fmt.Sprintf("/entities/%d", id), nil, &p); err != nil {
		return entity.Entity{}, err
	}
	return p.toEntity(), nil
}

// Meta implements prepare.Source.
func (c *Client) Meta(ctx context.Context, id int64) (map[string][]string, error) {
	var meta map[string][]string
	if err := c.get(ctx, fmt.Sprintf("/entities/%d/meta", id), nil, &meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// Taxonomies implements prepare.Source.
func (c *Client) Taxonomies(ctx context.Context, entityType string) ([]entity.Taxonomy, error) {
	var payload []taxonomyPayload
	q := url.Values{"type": {entityType}}
	if err := c.get(ctx, "/taxonomies", q, &payload); err != nil {
		return nil, err
	}

	taxes := make([]entity.Taxonomy, len(payload))
	for i, p := range payload {
		taxes[i] = entity.Taxonomy{
			Name:              p.Name,
			Public:            p.Public,
			PubliclyQueryable: p.PubliclyQueryable,
			Hierarchical:      p.Hierarchical,
		}
	}
	return taxes, nil
}

// Terms implements prepare.Source.
func (c *Client) Terms(ctx context.Context, id int64, taxonomy string) ([]entity.Term, error) {
	var payload []termPayload
	if err := c.get(ctx, fmt.Sprintf("/entities/%d/terms/%s", id, url.PathEscape(taxonomy)), nil, &payload); err != nil {
		return nil, err
	}

	terms := make([]entity.Term, len(payload))
	for i, p := range payload {
		terms[i] = p.toTerm()
	}
	return terms, nil
}

// TermByID implements prepare.Source.
func (c *Client) TermByID(ctx context.Context, taxonomy string, termID int64) (entity.Term, error) {
	var p termPayload
	path := fmt.Sprintf("/taxonomies/%s/terms/%d", url.PathEscape(taxonomy), termID)
	if err := c.get(ctx, path, nil, &p); err != nil {
		return entity.Term{}, err
	}
	return p.toTerm(), nil
}

// TermOrder implements prepare.Source.
func (c *Client) TermOrder(ctx context.Context, taxTermID, entityID int64) (int, error) {
	var resp struct {
		Order int `json:"order"`
	}
	q := url.Values{
		"tax_term_id": {strconv.FormatInt(taxTermID, 10)},
		"entity_id":   {strconv.FormatInt(entityID, 10)},
	}
	if err := c.get(ctx, "/term-order", q, &resp); err != nil {
		return 0, err
	}
	return resp.Order, nil
}

// EntityIDs implements reindex.Lister.
func (c *Client) EntityIDs(ctx context.Context, tenantID int64, offset, limit int) ([]int64, int64, error) {
	var resp struct {
		IDs   []int64 `json:"ids"`
		Total int64   `json:"total"`
	}
	q := url.Values{
		"offset": {strconv.Itoa(offset)},
		"limit":  {strconv.Itoa(limit)},
	}
	if err := c.get(ctx, fmt.Sprintf("/tenants/%d/entity-ids", tenantID), q, &resp); err != nil {
		return nil, 0, err
	}
	return resp.IDs, resp.Total, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return domain.NewTransportError("source "+path, 0, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return fmt.Errorf("source %s: %w", path, domain.ErrEntityNotFound)
	case res.StatusCode >= 300:
		c.log.Warn("source request failed",
			zap.String("path", path),
			zap.Int("status", res.StatusCode),
		)
		return domain.NewTransportError("source "+path, res.StatusCode, fmt.Errorf("unexpected status"))
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode source response %s: %w", path, err)
	}
	return nil
}
