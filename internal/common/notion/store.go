// Package notion implements pagestore.Directory over a Notion database.
package notion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gnt "github.com/dstotijn/go-notion"

	"recruiting-pipeline/internal/common/config"
	"recruiting-pipeline/internal/common/logger"
	"recruiting-pipeline/internal/common/metrics"
	"recruiting-pipeline/internal/common/pagestore"
)

const (
	transportClient = "client"
	transportREST   = "rest"
)

// Store reads and writes applicant pages. Calls go through the go-notion
// client first and through RESTClient when that fails for any reason other
// than a missing page.
type Store struct {
	api        *gnt.Client
	rest       *RESTClient
	databaseID string
	schema     Schema
	logger     logger.Logger
}

type options struct {
	apiHTTP  *http.Client
	restHTTP *http.Client
	fallback bool
	schema   Schema
}

type Option func(*options)

// WithHTTPClient sets the transport of the primary client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.apiHTTP = hc }
}

// WithRESTHTTPClient sets the transport of the fallback client.
func WithRESTHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.restHTTP = hc }
}

// WithoutFallback disables the REST fallback.
func WithoutFallback() Option {
	return func(o *options) { o.fallback = false }
}

func WithSchema(s Schema) Option {
	return func(o *options) { o.schema = s }
}

func New(cfg config.NotionConfig, log logger.Logger, opts ...Option) (*Store, error) {
	if cfg.Token == "" {
		return nil, errors.New("notion: token is required")
	}
	if cfg.DatabaseID == "" {
		return nil, errors.New("notion: database id is required")
	}

	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	o := &options{
		apiHTTP:  &http.Client{Timeout: timeout},
		restHTTP: &http.Client{Timeout: timeout},
		fallback: true,
		schema:   ApplicantSchema,
	}
	for _, opt := range opts {
		opt(o)
	}

	s := &Store{
		api:        gnt.NewClient(cfg.Token, gnt.WithHTTPClient(o.apiHTTP)),
		databaseID: cfg.DatabaseID,
		schema:     o.schema,
		logger:     logger.Component(log, "notion-store"),
	}
	if o.fallback {
		s.rest = NewRESTClient(o.restHTTP, cfg.BaseURL, cfg.Token, cfg.APIVersion, cfg.DatabaseID, o.schema)
	}
	return s, nil
}

// AtomicUpdates is true: each UpdatePage is a single pages.update call.
func (s *Store) AtomicUpdates() bool { return true }

func (s *Store) GetPage(ctx context.Context, id string) (*pagestore.Page, error) {
	var page *pagestore.Page
	err := s.call(ctx, "get_page", id,
		func() error {
			p, err := s.api.FindPageByID(ctx, id)
			if err != nil {
				return err
			}
			page = fromAPIPage(p)
			return nil
		},
		func(rest *RESTClient) error {
			p, err := rest.GetPage(ctx, id)
			page = p
			return err
		})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (s *Store) UpdatePage(ctx context.Context, id string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return s.call(ctx, "update_page", id,
		func() error {
			_, err := s.api.UpdatePage(ctx, id, gnt.UpdatePageParams{
				DatabasePageProperties: buildProperties(s.schema, fields),
			})
			return err
		},
		func(rest *RESTClient) error {
			return rest.UpdatePage(ctx, id, fields)
		})
}

func (s *Store) QueryPages(ctx context.Context, opts pagestore.ListOptions) (*pagestore.ListResult, error) {
	var res *pagestore.ListResult
	err := s.call(ctx, "query_pages", "",
		func() error {
			resp, err := s.api.QueryDatabase(ctx, s.databaseID, &gnt.DatabaseQuery{
				PageSize:    opts.PageSize,
				StartCursor: opts.Cursor,
			})
			if err != nil {
				return err
			}
			res = &pagestore.ListResult{HasMore: resp.HasMore}
			if resp.NextCursor != nil {
				res.NextCursor = *resp.NextCursor
			}
			for _, p := range resp.Results {
				res.Pages = append(res.Pages, fromAPIPage(p))
			}
			return nil
		},
		func(rest *RESTClient) error {
			r, err := rest.QueryPages(ctx, opts)
			res = r
			return err
		})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) CreatePage(ctx context.Context, fields map[string]string) (*pagestore.Page, error) {
	var page *pagestore.Page
	err := s.call(ctx, "create_page", "",
		func() error {
			props := buildProperties(s.schema, fields)
			p, err := s.api.CreatePage(ctx, gnt.CreatePageParams{
				ParentType:             gnt.ParentTypeDatabase,
				ParentID:               s.databaseID,
				DatabasePageProperties: &props,
			})
			if err != nil {
				return err
			}
			page = fromAPIPage(p)
			return nil
		},
		func(rest *RESTClient) error {
			p, err := rest.CreatePage(ctx, fields)
			page = p
			return err
		})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// call runs primary, then fallback on a non-404 failure, recording one metric
// sample per transport attempted.
func (s *Store) call(ctx context.Context, op, id string, primary func() error, fallback func(*RESTClient) error) error {
	err := s.observe(op, transportClient, func() error {
		if err := primary(); err != nil {
			if isNotFound(err) {
				return fmt.Errorf("page %s: %w", id, pagestore.ErrPageNotFound)
			}
			return err
		}
		return nil
	})
	if err == nil || errors.Is(err, pagestore.ErrPageNotFound) {
		return err
	}
	if s.rest == nil || ctx.Err() != nil {
		return fmt.Errorf("notion %s: %w", op, err)
	}

	s.logger.Warn("Notion client failed, retrying over REST", map[string]interface{}{
		"operation": op,
		"page_id":   id,
		"error":     err.Error(),
	})
	if ferr := s.observe(op, transportREST, func() error { return fallback(s.rest) }); ferr != nil {
		if errors.Is(ferr, pagestore.ErrPageNotFound) {
			return ferr
		}
		return fmt.Errorf("notion %s: %w (fallback: %v)", op, err, ferr)
	}
	return nil
}

func (s *Store) observe(op, transport string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.PageStoreDuration.WithLabelValues(op, transport).Observe(time.Since(start).Seconds())

	outcome := "success"
	switch {
	case errors.Is(err, pagestore.ErrPageNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	metrics.PageStoreRequests.WithLabelValues(op, transport, outcome).Inc()
	return err
}

func isNotFound(err error) bool {
	var apiErr *gnt.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusNotFound || apiErr.Code == "object_not_found"
	}
	return false
}

func fromAPIPage(p gnt.Page) *pagestore.Page {
	out := &pagestore.Page{
		ID:             p.ID,
		CreatedTime:    p.CreatedTime,
		LastEditedTime: p.LastEditedTime,
		Fields:         map[string]string{},
	}
	if props, ok := p.Properties.(gnt.DatabasePageProperties); ok {
		out.Fields = flattenProperties(props)
	}
	return out
}
