package research

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-prospect-research/pkg/enrichment"
	"github.com/txn2/mcp-prospect-research/pkg/filters"
	"github.com/txn2/mcp-prospect-research/pkg/gateway"
	"github.com/txn2/mcp-prospect-research/pkg/research"
)

type createSearchSessionInput struct {
	Filters    filters.BusinessFilters `json:"filters" jsonschema:"business search criteria; at least one filter is required"`
	MaxResults int                     `json:"max_results,omitempty" jsonschema:"businesses loaded per page, 1 to 100 (default 10)"`
}

type createCompanySessionInput struct {
	CompanyInputs []gateway.MatchInput `json:"company_inputs" jsonschema:"companies to research, each with a name and/or a domain"`
}

type sessionInput struct {
	SessionID string `json:"session_id" jsonschema:"research session id"`
}

type sessionDetailsInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"research session id; omit to list every session"`
}

type getBusinessIDInput struct {
	SessionID string `json:"session_id" jsonschema:"research session id"`
	Name      string `json:"name" jsonschema:"business name as shown in the session data"`
	Domain    string `json:"domain" jsonschema:"business domain as shown in the session data"`
}

type enrichInput struct {
	SessionID       string   `json:"session_id" jsonschema:"research session id"`
	EnrichmentTypes []string `json:"enrichment_types" jsonschema:"1 to 5 enrichment types"`
	ReturnResults   bool     `json:"return_results,omitempty" jsonschema:"return a sample of the enrichment payloads"`
}

type fetchEventsInput struct {
	SessionID     string   `json:"session_id" jsonschema:"research session id"`
	EventTypes    []string `json:"event_types" jsonschema:"business event types to fetch"`
	TimestampFrom string   `json:"timestamp_from" jsonschema:"ISO 8601 timestamp or date; only events after it are returned"`
	ReturnResults bool     `json:"return_results,omitempty" jsonschema:"return a sample of the fetched events"`
}

type autocompleteInput struct {
	Field string `json:"field" jsonschema:"filter field to autocomplete"`
	Query string `json:"query" jsonschema:"partial value to complete"`
}

type loadMoreOutput struct {
	Message string           `json:"message"`
	Details research.Details `json:"session_details"`
}

type businessIDOutput struct {
	BusinessID *string `json:"business_id"`
}

type deleteOutput struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

func (t *Toolkit) handleCreateSearchSession(ctx context.Context, _ *mcp.CallToolRequest, input createSearchSessionInput) (*mcp.CallToolResult, any, error) {
	spec, err := input.Filters.Spec()
	if err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	res, err := t.manager.CreateSearchSession(ctx, spec, input.MaxResults)
	if err != nil {
		if res != nil {
			return sessionErrorResult(res.SessionID, err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
		}
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return jsonResult(res)
}

func (t *Toolkit) handleCreateCompanySession(ctx context.Context, _ *mcp.CallToolRequest, input createCompanySessionInput) (*mcp.CallToolResult, any, error) {
	res, err := t.manager.CreateMatchSession(ctx, input.CompanyInputs)
	if err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return jsonResult(res)
}

func (t *Toolkit) handleGetSessionDetails(_ context.Context, _ *mcp.CallToolRequest, input sessionDetailsInput) (*mcp.CallToolResult, any, error) {
	if input.SessionID == "" {
		return jsonResult(t.manager.List())
	}

	details, err := t.manager.Details(input.SessionID)
	if err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return jsonResult(details)
}

func (t *Toolkit) handleLoadMore(ctx context.Context, _ *mcp.CallToolRequest, input sessionInput) (*mcp.CallToolResult, any, error) {
	res, err := t.manager.LoadMore(ctx, input.SessionID)
	if err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return jsonResult(loadMoreOutput{Message: res.Message, Details: res.Details})
}

func (t *Toolkit) handleViewData(_ context.Context, _ *mcp.CallToolRequest, input sessionInput) (*mcp.CallToolResult, any, error) {
	data, err := t.manager.ViewData(input.SessionID)
	if err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return textResult(string(data)), nil, nil
}

func (t *Toolkit) handleGetBusinessID(_ context.Context, _ *mcp.CallToolRequest, input getBusinessIDInput) (*mcp.CallToolResult, any, error) {
	id, ok, err := t.manager.EntityID(input.SessionID, input.Name, input.Domain)
	if err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	out := businessIDOutput{}
	if ok {
		out.BusinessID = &id
	}
	return jsonResult(out)
}

func (t *Toolkit) handleEnrich(ctx context.Context, _ *mcp.CallToolRequest, input enrichInput) (*mcp.CallToolResult, any, error) {
	kinds := make([]enrichment.Kind, len(input.EnrichmentTypes))
	for i, name := range input.EnrichmentTypes {
		kinds[i] = enrichment.Kind(name)
	}

	res, err := t.manager.Enrich(ctx, input.SessionID, kinds, input.ReturnResults)
	if err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return jsonResult(res)
}

func (t *Toolkit) handleFetchEvents(ctx context.Context, _ *mcp.CallToolRequest, input fetchEventsInput) (*mcp.CallToolResult, any, error) {
	res, err := t.manager.FetchEvents(ctx, input.SessionID, input.EventTypes, input.TimestampFrom, input.ReturnResults)
	if err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return jsonResult(res)
}

func (t *Toolkit) handleDeleteSession(ctx context.Context, _ *mcp.CallToolRequest, input sessionInput) (*mcp.CallToolResult, any, error) {
	if err := t.manager.DeleteSession(ctx, input.SessionID); err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return jsonResult(deleteOutput{SessionID: input.SessionID, Status: "deleted"})
}

func (t *Toolkit) handleAutocomplete(ctx context.Context, _ *mcp.CallToolRequest, input autocompleteInput) (*mcp.CallToolResult, any, error) {
	if err := filters.ValidateAutocompleteField(input.Field); err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	raw, err := t.autocomplete.Autocomplete(ctx, input.Field, input.Query)
	if err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return textResult(string(raw)), nil, nil
}

// enrichmentDocs renders the dispatch table descriptions for the enrich tool.
func enrichmentDocs() string {
	return enrichment.Describe()
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

// sessionErrorResult is errorResult for a session that was registered even
// though the operation failed.
func sessionErrorResult(sessionID, msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(`{"error": %q, "session_id": %q}`, msg, sessionID)},
		},
		IsError: true,
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// jsonResult marshals v into a success CallToolResult.
func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult("internal error marshaling response"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return textResult(string(data)), nil, nil
}
