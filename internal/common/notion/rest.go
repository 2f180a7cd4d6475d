package notion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	commonhttp "recruiting-pipeline/internal/common/http"
	"recruiting-pipeline/internal/common/pagestore"
)

// RESTClient talks to the Notion REST API directly. Store uses it when the
// primary client fails.
type RESTClient struct {
	http       *commonhttp.Client
	baseURL    string
	databaseID string
	schema     Schema
}

type restPage struct {
	ID             string                  `json:"id"`
	CreatedTime    time.Time               `json:"created_time"`
	LastEditedTime time.Time               `json:"last_edited_time"`
	Properties     map[string]restProperty `json:"properties"`
}

type restQueryResponse struct {
	Results    []restPage `json:"results"`
	HasMore    bool       `json:"has_more"`
	NextCursor *string    `json:"next_cursor"`
}

// NewRESTClient builds the fallback client. hc may be nil.
func NewRESTClient(hc *http.Client, baseURL, token, apiVersion, databaseID string, schema Schema) *RESTClient {
	c := commonhttp.NewClientWith(hc).
		WithHeader("Authorization", "Bearer "+token).
		WithHeader("Notion-Version", apiVersion)
	return &RESTClient{
		http:       c,
		baseURL:    strings.TrimRight(baseURL, "/"),
		databaseID: databaseID,
		schema:     schema,
	}
}

func (c *RESTClient) GetPage(ctx context.Context, id string) (*pagestore.Page, error) {
	var out restPage
	if err := c.http.DoJSON(ctx, http.MethodGet, c.baseURL+"/pages/"+id, nil, &out); err != nil {
		return nil, restErr(err, id)
	}
	return out.toPage(), nil
}

func (c *RESTClient) UpdatePage(ctx context.Context, id string, fields map[string]string) error {
	body := map[string]interface{}{"properties": buildRESTProperties(c.schema, fields)}
	if err := c.http.DoJSON(ctx, http.MethodPatch, c.baseURL+"/pages/"+id, body, nil); err != nil {
		return restErr(err, id)
	}
	return nil
}

func (c *RESTClient) QueryPages(ctx context.Context, opts pagestore.ListOptions) (*pagestore.ListResult, error) {
	body := map[string]interface{}{"page_size": opts.PageSize}
	if opts.Cursor != "" {
		body["start_cursor"] = opts.Cursor
	}
	var out restQueryResponse
	url := fmt.Sprintf("%s/databases/%s/query", c.baseURL, c.databaseID)
	if err := c.http.DoJSON(ctx, http.MethodPost, url, body, &out); err != nil {
		return nil, err
	}

	res := &pagestore.ListResult{HasMore: out.HasMore}
	if out.NextCursor != nil {
		res.NextCursor = *out.NextCursor
	}
	for i := range out.Results {
		res.Pages = append(res.Pages, out.Results[i].toPage())
	}
	return res, nil
}

func (c *RESTClient) CreatePage(ctx context.Context, fields map[string]string) (*pagestore.Page, error) {
	body := map[string]interface{}{
		"parent":     map[string]string{"database_id": c.databaseID},
		"properties": buildRESTProperties(c.schema, fields),
	}
	var out restPage
	if err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL+"/pages", body, &out); err != nil {
		return nil, err
	}
	return out.toPage(), nil
}

func (p *restPage) toPage() *pagestore.Page {
	return &pagestore.Page{
		ID:             p.ID,
		Fields:         flattenRESTProperties(p.Properties),
		CreatedTime:    p.CreatedTime,
		LastEditedTime: p.LastEditedTime,
	}
}

func restErr(err error, id string) error {
	var se *commonhttp.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return fmt.Errorf("page %s: %w", id, pagestore.ErrPageNotFound)
	}
	return err
}
