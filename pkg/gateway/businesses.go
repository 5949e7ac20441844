package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SearchBusinesses fetches one page of businesses matching the filters.
func (c *Client) SearchBusinesses(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	size := req.Size
	if size == 0 || size < req.PageSize {
		size = req.PageSize
	}
	if req.Filters == nil {
		req.Filters = map[string]any{}
	}

	var out SearchResponse
	_, err := c.do(ctx, call{
		operation: "search_businesses",
		method:    http.MethodPost,
		path:      "businesses",
		body: searchPayload{
			Mode:           "full",
			Size:           size,
			PageSize:       req.PageSize,
			Page:           req.Page,
			Filters:        req.Filters,
			RequestContext: map[string]any{},
		},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// MatchBusinesses resolves name/domain pairs to business ids in bulk.
func (c *Client) MatchBusinesses(ctx context.Context, inputs []MatchInput) (*MatchResponse, error) {
	var out MatchResponse
	_, err := c.do(ctx, call{
		operation: "match_businesses",
		method:    http.MethodPost,
		path:      "businesses/match",
		body:      map[string]any{"businesses_to_match": inputs},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Enrich calls a bulk enrichment endpoint for the given business ids.
func (c *Client) Enrich(ctx context.Context, path string, businessIDs []string) (*EnrichResponse, error) {
	var out EnrichResponse
	_, err := c.do(ctx, call{
		operation: "enrich",
		method:    http.MethodPost,
		path:      path,
		body:      map[string]any{"business_ids": businessIDs},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchEvents retrieves business events in bulk.
func (c *Client) FetchEvents(ctx context.Context, req EventsRequest) (*EventsResponse, error) {
	var out EventsResponse
	_, err := c.do(ctx, call{
		operation: "fetch_events",
		method:    http.MethodPost,
		path:      "businesses/events",
		body:      req,
		timeout:   c.eventsTimeout,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Statistics returns aggregated insights for the filters, unmodified.
func (c *Client) Statistics(ctx context.Context, filters map[string]any) (json.RawMessage, error) {
	if filters == nil {
		filters = map[string]any{}
	}
	return c.do(ctx, call{
		operation: "business_statistics",
		method:    http.MethodPost,
		path:      "businesses/stats",
		body:      map[string]any{"filters": filters},
	}, nil)
}

// Autocomplete returns candidate filter values for a field, unmodified.
func (c *Client) Autocomplete(ctx context.Context, field, query string) (json.RawMessage, error) {
	return c.do(ctx, call{
		operation: "autocomplete",
		method:    http.MethodGet,
		path:      "businesses/autocomplete",
		query:     url.Values{"field": {field}, "query": {query}},
	}, nil)
}

// Raw posts an arbitrary payload to path and returns the body unmodified.
// Used by pass-through tools that surface the upstream response as-is.
// Event endpoints get the longer events timeout.
func (c *Client) Raw(ctx context.Context, operation, path string, payload any) (json.RawMessage, error) {
	var timeout time.Duration
	if strings.HasSuffix(path, "/events") {
		timeout = c.eventsTimeout
	}
	return c.do(ctx, call{
		operation: operation,
		method:    http.MethodPost,
		path:      path,
		body:      payload,
		timeout:   timeout,
	}, nil)
}
