package prospects

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-prospect-research/pkg/filters"
	"github.com/txn2/mcp-prospect-research/pkg/toolkits/passthrough"
)

// Upstream limits.
const (
	maxMatchInputs   = 40
	maxEnrichIDs     = 50
	maxEventIDs      = 20
	maxFetchSize     = 1000
	maxFetchPageSize = 100
	defaultFetchSize = 1000
	defaultPageSize  = 5
)

// errMatchIdentity is returned for a match input that names neither an
// email nor a full name with a company.
var errMatchIdentity = errors.New("either email or full_name together with company_name must be provided")

// MatchInput identifies one prospect to match.
type MatchInput struct {
	Email       string `json:"email,omitempty" jsonschema:"the prospect's email address"`
	PhoneNumber string `json:"phone_number,omitempty" jsonschema:"the prospect's phone number"`
	FullName    string `json:"full_name,omitempty" jsonschema:"the prospect's full name; only together with company_name"`
	CompanyName string `json:"company_name,omitempty" jsonschema:"the prospect's company name; only together with full_name"`
	LinkedIn    string `json:"linkedin,omitempty" jsonschema:"LinkedIn profile URL"`
	BusinessID  string `json:"business_id,omitempty" jsonschema:"restrict the match to this business id"`
}

// Validate requires an email, or a full name together with a company name.
func (m MatchInput) Validate() error {
	if m.Email != "" {
		return nil
	}
	if m.FullName == "" || m.CompanyName == "" {
		return errMatchIdentity
	}
	return nil
}

// validateMatchInputs checks the batch size and every input.
func validateMatchInputs(inputs []MatchInput) error {
	if n := len(inputs); n == 0 || n > maxMatchInputs {
		return fmt.Errorf("between 1 and %d prospects must be given, got %d", maxMatchInputs, n)
	}
	for i, in := range inputs {
		if err := in.Validate(); err != nil {
			return fmt.Errorf("prospects_to_match[%d]: %w", i, err)
		}
	}
	return nil
}

type matchInput struct {
	ProspectsToMatch []MatchInput `json:"prospects_to_match" jsonschema:"prospects to match, each with an email or a full name and company name"`
	SessionID        string       `json:"session_id,omitempty" jsonschema:"session id for storing results; a new one is created when omitted"`
}

type fetchInput struct {
	Filters   filters.ProspectFilters `json:"filters" jsonschema:"prospect search criteria"`
	Size      int                     `json:"size,omitempty" jsonschema:"total number of prospects to return, at most 1000"`
	PageSize  int                     `json:"page_size,omitempty" jsonschema:"prospects per page, at most 100 (recommended 5)"`
	Page      int                     `json:"page,omitempty" jsonschema:"page number to return, starting at 1"`
	SessionID string                  `json:"session_id,omitempty" jsonschema:"session id for storing results; a new one is created when omitted"`
}

type eventsInput struct {
	ProspectIDs   []string `json:"prospect_ids" jsonschema:"prospect ids from match_prospects or fetch_prospects"`
	EventTypes    []string `json:"event_types" jsonschema:"prospect event types: prospect_changed_role, prospect_changed_company, prospect_job_start_anniversary"`
	TimestampFrom string   `json:"timestamp_from" jsonschema:"ISO 8601 timestamp"`
	SessionID     string   `json:"session_id,omitempty" jsonschema:"session id for storing results; a new one is created when omitted"`
}

type enrichInput struct {
	ProspectIDs []string `json:"prospect_ids" jsonschema:"up to 50 prospect ids from match_prospects or fetch_prospects"`
	SessionID   string   `json:"session_id,omitempty" jsonschema:"session id for storing results; a new one is created when omitted"`
}

// eventsRequest is the wire form of a prospect events call.
type eventsRequest struct {
	ProspectIDs   []string `json:"prospect_ids"`
	EventTypes    []string `json:"event_types"`
	TimestampFrom string   `json:"timestamp_from"`
}

func (t *Toolkit) handleMatch(ctx context.Context, _ *mcp.CallToolRequest, input matchInput) (*mcp.CallToolResult, any, error) {
	if err := validateMatchInputs(input.ProspectsToMatch); err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	sessionID, err := t.rec.SessionID(input.SessionID)
	if err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	if err := t.rec.Save(ctx, sessionID, "prospects_to_match", input.ProspectsToMatch); err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	return t.forward(ctx, sessionID, "match_prospects_result", toolMatch, pathMatch,
		map[string]any{"prospects_to_match": input.ProspectsToMatch})
}

func (t *Toolkit) handleFetch(ctx context.Context, _ *mcp.CallToolRequest, input fetchInput) (*mcp.CallToolResult, any, error) {
	spec, err := input.Filters.Spec()
	if err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	size, pageSize, page := passthrough.Paging(input.Size, input.PageSize, input.Page, defaultFetchSize, defaultPageSize)
	if size > maxFetchSize || pageSize > maxFetchPageSize {
		return errorResult(fmt.Sprintf("size must be at most %d and page_size at most %d", maxFetchSize, maxFetchPageSize)), nil, nil
	}

	sessionID, err := t.rec.SessionID(input.SessionID)
	if err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	if err := t.rec.Save(ctx, sessionID, "fetch_prospects_filters", spec); err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	params := map[string]int{"size": size, "page_size": pageSize, "page": page}
	if err := t.rec.Save(ctx, sessionID, "fetch_prospects_params", params); err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	return t.forward(ctx, sessionID, "fetch_prospects_result", toolFetch, pathSearch, map[string]any{
		"mode":      "full",
		"size":      size,
		"page_size": min(pageSize, size),
		"page":      page,
		"filters":   spec.Payload(),
	})
}

func (t *Toolkit) handleEvents(ctx context.Context, _ *mcp.CallToolRequest, input eventsInput) (*mcp.CallToolResult, any, error) {
	if n := len(input.ProspectIDs); n == 0 || n > maxEventIDs {
		return errorResult(fmt.Sprintf("between 1 and %d prospect ids must be given, got %d", maxEventIDs, n)), nil, nil
	}
	if err := filters.ValidateProspectEventTypes(input.EventTypes); err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	if input.TimestampFrom == "" {
		return errorResult("timestamp_from is required"), nil, nil
	}

	sessionID, err := t.rec.SessionID(input.SessionID)
	if err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	req := eventsRequest{
		ProspectIDs:   input.ProspectIDs,
		EventTypes:    input.EventTypes,
		TimestampFrom: input.TimestampFrom,
	}
	if err := t.rec.Save(ctx, sessionID, "fetch_prospects_events_params", req); err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	return t.forward(ctx, sessionID, "fetch_prospects_events_result", toolEvents, pathEvents, req)
}

// enrichHandler builds the handler of one bulk enrich tool.
func (t *Toolkit) enrichHandler(e enrichTool) func(context.Context, *mcp.CallToolRequest, enrichInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input enrichInput) (*mcp.CallToolResult, any, error) {
		if n := len(input.ProspectIDs); n == 0 || n > maxEnrichIDs {
			return errorResult(fmt.Sprintf("between 1 and %d prospect ids must be given, got %d", maxEnrichIDs, n)), nil, nil
		}

		sessionID, err := t.rec.SessionID(input.SessionID)
		if err != nil {
			return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
		}
		if err := t.rec.Save(ctx, sessionID, e.name+"_ids", input.ProspectIDs); err != nil {
			return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
		}

		return t.forward(ctx, sessionID, e.name+"_result", e.name, e.path,
			map[string]any{"prospect_ids": input.ProspectIDs})
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
