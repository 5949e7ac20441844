// Package research provides the MCP tools over the research session manager.
package research

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-prospect-research/pkg/research"
)

// Tool names.
const (
	toolCreateSearchSession  = "create_search_session"
	toolCreateCompanySession = "create_company_research_session"
	toolGetSessionDetails    = "get_session_details"
	toolLoadMoreResults      = "session_load_more_results"
	toolViewData             = "session_view_data"
	toolGetBusinessID        = "get_business_id"
	toolEnrich               = "session_enrich"
	toolFetchEvents          = "session_fetch_events"
	toolDeleteSession        = "session_delete"
	toolAutocomplete         = "autocomplete_filter_values"

	// promptName is the MCP prompt name for the research workflow guidance.
	promptName = "research_workflow"
)

// Autocompleter resolves candidate filter values. It is a pass-through to
// the remote API.
type Autocompleter interface {
	Autocomplete(ctx context.Context, field, query string) (json.RawMessage, error)
}

// Toolkit implements the research session toolkit.
type Toolkit struct {
	name         string
	manager      *research.Manager
	autocomplete Autocompleter
}

// New creates a research toolkit. The autocomplete tool is only registered
// when ac is non-nil.
func New(name string, manager *research.Manager, ac Autocompleter) *Toolkit {
	return &Toolkit{
		name:         name,
		manager:      manager,
		autocomplete: ac,
	}
}

// Kind returns the toolkit kind.
func (*Toolkit) Kind() string {
	return "research"
}

// Name returns the toolkit instance name.
func (t *Toolkit) Name() string {
	return t.name
}

// Tools returns the list of tool names provided by this toolkit.
func (t *Toolkit) Tools() []string {
	tools := []string{
		toolCreateSearchSession,
		toolCreateCompanySession,
		toolGetSessionDetails,
		toolLoadMoreResults,
		toolViewData,
		toolGetBusinessID,
		toolEnrich,
		toolFetchEvents,
		toolDeleteSession,
	}
	if t.autocomplete != nil {
		tools = append(tools, toolAutocomplete)
	}
	return tools
}

// Close releases resources. The manager is owned by the platform.
func (*Toolkit) Close() error {
	return nil
}

// RegisterTools registers the research tools, the session resource template
// and the workflow prompt with the MCP server.
func (t *Toolkit) RegisterTools(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name: toolCreateSearchSession,
		Description: "Start a research session for businesses matching the given filters and load the first page. " +
			"Do not call without filters and do not send empty lists. Values for category, location and technology " +
			"filters must come from autocomplete. Returns the session id, session details and a small sample; " +
			"use session_load_more_results to page, session_enrich to add data and session_view_data at the end.",
	}, t.handleCreateSearchSession)

	mcp.AddTool(s, &mcp.Tool{
		Name: toolCreateCompanySession,
		Description: "Create a research session for specific companies, given by name and/or domain (at most 50). " +
			"Fetching firmographics next is recommended.",
	}, t.handleCreateCompanySession)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolGetSessionDetails,
		Description: "Get the details of one research session, or a summary of every session when session_id is omitted.",
	}, t.handleGetSessionDetails)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolLoadMoreResults,
		Description: "Load the next page of businesses into a search research session.",
	}, t.handleLoadMore)

	mcp.AddTool(s, &mcp.Tool{
		Name: toolViewData,
		Description: "Return every business in a research session with its enrichments and events. " +
			"The result can be large; call it once research is finished.",
	}, t.handleViewData)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolGetBusinessID,
		Description: "Get the business id for a name and domain. Only businesses of the given session are searched.",
	}, t.handleGetBusinessID)

	mcp.AddTool(s, &mcp.Tool{
		Name: toolEnrich,
		Description: "Enrich every business in a research session with 1 to 5 enrichment types. Results are stored " +
			"in the session; set return_results to get a small sample back. Available types:\n" + enrichmentDocs(),
	}, t.handleEnrich)

	mcp.AddTool(s, &mcp.Tool{
		Name: toolFetchEvents,
		Description: "Fetch business events (funding rounds, office openings, hiring, headcount changes and more) " +
			"since timestamp_from for every business in a research session and append them to the session.",
	}, t.handleFetchEvents)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolDeleteSession,
		Description: "Delete a research session and everything stored in it.",
	}, t.handleDeleteSession)

	if t.autocomplete != nil {
		mcp.AddTool(s, &mcp.Tool{
			Name: toolAutocomplete,
			Description: "Autocomplete values for business search filters. Call before create_search_session for " +
				"linkedin_category, google_category, naics_category, region_country_code, city_region_country and " +
				"technology filters. Use the field 'country' to look up ISO codes.",
		}, t.handleAutocomplete)
	}

	t.registerResources(s)
	t.registerPrompt(s)
}

// registerPrompt registers the research workflow guidance prompt.
func (*Toolkit) registerPrompt(s *mcp.Server) {
	s.AddPrompt(&mcp.Prompt{
		Name:        promptName,
		Description: "How to run a research session from search to final results",
	}, func(_ context.Context, _ *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return &mcp.GetPromptResult{
			Messages: []*mcp.PromptMessage{
				{
					Role:    "user",
					Content: &mcp.TextContent{Text: researchWorkflowPrompt},
				},
			},
		}, nil
	})
}

// researchWorkflowPrompt guides the agent through a research session.
const researchWorkflowPrompt = `## Research Session Workflow

1. Resolve filter values with autocomplete_filter_values. Only one of linkedin_category,
   google_category or naics_category may be used.
2. Call create_search_session once. Keep the returned session_id; the tool only returns a
   sample so large result sets stay out of the conversation.
3. Call session_load_more_results while more pages are needed (see total_pages).
4. Call session_enrich with up to five enrichment types at a time. Businesses without data
   for a type are marked "No <type> results found"; this is normal.
5. Optionally call session_fetch_events for recent activity.
6. Call session_view_data once at the end to read the full result set.

For a known list of companies, use create_company_research_session instead of step 2.`
