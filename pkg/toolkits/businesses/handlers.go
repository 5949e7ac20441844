package businesses

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-prospect-research/pkg/enrichment"
	"github.com/txn2/mcp-prospect-research/pkg/filters"
	"github.com/txn2/mcp-prospect-research/pkg/gateway"
	"github.com/txn2/mcp-prospect-research/pkg/session"
	"github.com/txn2/mcp-prospect-research/pkg/toolkits/passthrough"
)

// Upstream limits.
const (
	maxMatchInputs   = 50
	maxEnrichIDs     = 50
	maxEventIDs      = 20
	maxFetchSize     = 1000
	maxFetchPageSize = 100
	defaultFetchSize = 1000
	defaultPageSize  = 5
)

type matchInput struct {
	BusinessesToMatch []gateway.MatchInput `json:"businesses_to_match" jsonschema:"businesses to match, each with a name and/or a domain"`
	SessionID         string               `json:"session_id,omitempty" jsonschema:"session id for storing results; a new one is created when omitted"`
}

type fetchInput struct {
	Filters   filters.BusinessFilters `json:"filters" jsonschema:"business search criteria"`
	Size      int                     `json:"size,omitempty" jsonschema:"total number of businesses to return, at most 1000"`
	PageSize  int                     `json:"page_size,omitempty" jsonschema:"businesses per page, at most 100 (recommended 5)"`
	Page      int                     `json:"page,omitempty" jsonschema:"page number to return, starting at 1"`
	SessionID string                  `json:"session_id,omitempty" jsonschema:"session id for storing results; a new one is created when omitted"`
}

type statisticsInput struct {
	Filters   filters.BusinessFilters `json:"filters" jsonschema:"business search criteria"`
	SessionID string                  `json:"session_id,omitempty" jsonschema:"session id for storing results; a new one is created when omitted"`
}

type eventsInput struct {
	BusinessIDs   []string `json:"business_ids" jsonschema:"business ids from match_businesses or fetch_businesses"`
	EventTypes    []string `json:"event_types" jsonschema:"business event types to fetch"`
	TimestampFrom string   `json:"timestamp_from" jsonschema:"ISO 8601 timestamp"`
	SessionID     string   `json:"session_id,omitempty" jsonschema:"session id for storing results; a new one is created when omitted"`
}

type autocompleteInput struct {
	Field     string `json:"field" jsonschema:"filter field to autocomplete"`
	Query     string `json:"query" jsonschema:"partial value to complete"`
	SessionID string `json:"session_id,omitempty" jsonschema:"session id for storing results; a new one is created when omitted"`
}

type sessionDataInput struct {
	SessionID string `json:"session_id" jsonschema:"session id returned by an earlier call"`
	Key       string `json:"key" jsonschema:"key of the stored data, e.g. fetch_businesses_result"`
}

type enrichInput struct {
	BusinessIDs []string `json:"business_ids" jsonschema:"business ids from match_businesses or fetch_businesses"`
	SessionID   string   `json:"session_id,omitempty" jsonschema:"session id for storing results; a new one is created when omitted"`
}

type sessionDataOutput struct {
	SessionID string          `json:"session_id"`
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
}

type missingKeyOutput struct {
	Error         string   `json:"error"`
	AvailableKeys []string `json:"available_keys"`
	SessionID     string   `json:"session_id"`
}

func (t *Toolkit) handleMatch(ctx context.Context, _ *mcp.CallToolRequest, input matchInput) (*mcp.CallToolResult, any, error) {
	if n := len(input.BusinessesToMatch); n == 0 || n > maxMatchInputs {
		return errorResult(fmt.Sprintf("between 1 and %d businesses must be given, got %d", maxMatchInputs, n)), nil, nil
	}

	sessionID, err := t.rec.SessionID(input.SessionID)
	if err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	if err := t.rec.Save(ctx, sessionID, "businesses_to_match", input.BusinessesToMatch); err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	return t.forward(ctx, sessionID, "match_businesses_result", toolMatch, pathMatch,
		map[string]any{"businesses_to_match": input.BusinessesToMatch})
}

func (t *Toolkit) handleFetch(ctx context.Context, _ *mcp.CallToolRequest, input fetchInput) (*mcp.CallToolResult, any, error) {
	spec, err := input.Filters.Spec()
	if err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	size, pageSize, page := fetchParams(input)
	if size > maxFetchSize || pageSize > maxFetchPageSize {
		return errorResult(fmt.Sprintf("size must be at most %d and page_size at most %d", maxFetchSize, maxFetchPageSize)), nil, nil
	}

	sessionID, err := t.rec.SessionID(input.SessionID)
	if err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	if err := t.rec.Save(ctx, sessionID, "fetch_businesses_filters", spec); err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	params := map[string]int{"size": size, "page_size": pageSize, "page": page}
	if err := t.rec.Save(ctx, sessionID, "fetch_businesses_params", params); err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	return t.forward(ctx, sessionID, "fetch_businesses_result", toolFetch, pathSearch, map[string]any{
		"mode":            "full",
		"size":            size,
		"page_size":       min(pageSize, size),
		"page":            page,
		"filters":         spec.Payload(),
		"request_context": map[string]any{},
	})
}

func fetchParams(input fetchInput) (size, pageSize, page int) {
	return passthrough.Paging(input.Size, input.PageSize, input.Page, defaultFetchSize, defaultPageSize)
}

func (t *Toolkit) handleStatistics(ctx context.Context, _ *mcp.CallToolRequest, input statisticsInput) (*mcp.CallToolResult, any, error) {
	spec, err := input.Filters.Spec()
	if err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	sessionID, err := t.rec.SessionID(input.SessionID)
	if err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	if err := t.rec.Save(ctx, sessionID, "fetch_businesses_statistics_filters", spec); err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	return t.forward(ctx, sessionID, "fetch_businesses_statistics_result", toolStatistics, pathStatistics,
		map[string]any{"filters": spec.Payload()})
}

func (t *Toolkit) handleEvents(ctx context.Context, _ *mcp.CallToolRequest, input eventsInput) (*mcp.CallToolResult, any, error) {
	if n := len(input.BusinessIDs); n == 0 || n > maxEventIDs {
		return errorResult(fmt.Sprintf("between 1 and %d business ids must be given, got %d", maxEventIDs, n)), nil, nil
	}
	if err := filters.ValidateEventTypes(input.EventTypes); err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	if input.TimestampFrom == "" {
		return errorResult("timestamp_from is required"), nil, nil
	}

	req := gateway.EventsRequest{
		BusinessIDs:   input.BusinessIDs,
		EventTypes:    input.EventTypes,
		TimestampFrom: input.TimestampFrom,
	}
	sessionID, err := t.rec.SessionID(input.SessionID)
	if err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	if err := t.rec.Save(ctx, sessionID, "fetch_businesses_events_params", req); err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	return t.forward(ctx, sessionID, "fetch_businesses_events_result", toolEvents, pathEvents, req)
}

func (t *Toolkit) handleAutocomplete(ctx context.Context, _ *mcp.CallToolRequest, input autocompleteInput) (*mcp.CallToolResult, any, error) {
	if err := filters.ValidateAutocompleteField(input.Field); err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	sessionID, err := t.rec.SessionID(input.SessionID)
	if err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	suffix := input.Field + "_" + input.Query
	params := map[string]string{"field": input.Field, "query": input.Query}
	if err := t.rec.Save(ctx, sessionID, "autocomplete_"+suffix, params); err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	raw, err := t.gw.Autocomplete(ctx, input.Field, input.Query)
	if err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return t.recordResult(ctx, sessionID, "autocomplete_result_"+suffix, raw)
}

func (t *Toolkit) handleSessionData(ctx context.Context, _ *mcp.CallToolRequest, input sessionDataInput) (*mcp.CallToolResult, any, error) {
	if err := session.CheckCallerKey(input.SessionID, input.Key); err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	data, ok, err := t.store.Get(ctx, input.SessionID, input.Key)
	if err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	if !ok {
		keys, err := t.store.ListKeys(ctx, input.SessionID)
		if err != nil {
			return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
		}
		if keys == nil {
			keys = []string{}
		}
		result, _, _ := jsonResult(missingKeyOutput{
			Error:         fmt.Sprintf("No data found for session %s with key %s", input.SessionID, input.Key),
			AvailableKeys: keys,
			SessionID:     input.SessionID,
		})
		result.IsError = true
		return result, nil, nil
	}

	return jsonResult(sessionDataOutput{SessionID: input.SessionID, Key: input.Key, Data: data})
}

// enrichHandler builds the handler of the bulk enrich tool for one kind.
func (t *Toolkit) enrichHandler(entry enrichment.Entry) func(context.Context, *mcp.CallToolRequest, enrichInput) (*mcp.CallToolResult, any, error) {
	prefix := enrichToolName(entry.Kind)
	return func(ctx context.Context, _ *mcp.CallToolRequest, input enrichInput) (*mcp.CallToolResult, any, error) {
		if n := len(input.BusinessIDs); n == 0 || n > maxEnrichIDs {
			return errorResult(fmt.Sprintf("between 1 and %d business ids must be given, got %d", maxEnrichIDs, n)), nil, nil
		}

		sessionID, err := t.rec.SessionID(input.SessionID)
	if err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
		if err := t.rec.Save(ctx, sessionID, prefix+"_ids", input.BusinessIDs); err != nil {
			return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
		}

		return t.forward(ctx, sessionID, prefix+"_result", prefix, entry.Path,
			map[string]any{"business_ids": input.BusinessIDs})
	}
}

// forward posts payload upstream and records the response under key.
func (t *Toolkit) forward(ctx context.Context, sessionID, key, operation, path string, payload any) (*mcp.CallToolResult, any, error) {
	out, err := t.rec.Forward(ctx, sessionID, key, operation, path, payload)
	if err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return jsonResult(out)
}

func (t *Toolkit) recordResult(ctx context.Context, sessionID, key string, raw json.RawMessage) (*mcp.CallToolResult, any, error) {
	out, err := t.rec.Record(ctx, sessionID, key, raw)
	if err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return jsonResult(out)
}

// errorResult creates an error CallToolResult.
func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(`{"error": %q}`, msg)},
		},
		IsError: true,
	}
}

// jsonResult marshals v into a success CallToolResult.
func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult("internal error marshaling response"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}
