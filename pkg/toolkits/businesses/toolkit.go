// Package businesses provides pass-through MCP tools over the business data
// API. Every call records its parameters and the upstream result in the
// session data store so later calls can refer back to them by key.
package businesses

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-prospect-research/pkg/enrichment"
	"github.com/txn2/mcp-prospect-research/pkg/session"
	"github.com/txn2/mcp-prospect-research/pkg/toolkits/passthrough"
)

// Tool names.
const (
	toolMatch        = "match_businesses"
	toolFetch        = "fetch_businesses"
	toolStatistics   = "fetch_businesses_statistics"
	toolEvents       = "fetch_businesses_events"
	toolAutocomplete = "autocomplete"
	toolSessionData  = "get_session_businesses"

	enrichToolPrefix = "enrich_businesses_"
)

// Upstream request paths.
const (
	pathMatch      = "businesses/match"
	pathSearch     = "businesses"
	pathStatistics = "businesses/stats"
	pathEvents     = "businesses/events"
)

// Gateway is the subset of the remote API client used by the pass-through
// tools. Responses are surfaced unmodified.
type Gateway interface {
	passthrough.Gateway
	Autocomplete(ctx context.Context, field, query string) (json.RawMessage, error)
}

// Toolkit implements the business pass-through toolkit.
type Toolkit struct {
	name  string
	gw    Gateway
	store session.Store
	rec   *passthrough.Recorder
}

// New creates a businesses toolkit.
func New(name string, gw Gateway, store session.Store) *Toolkit {
	return &Toolkit{
		name:  name,
		gw:    gw,
		store: store,
		rec:   passthrough.New(gw, store),
	}
}

// Kind returns the toolkit kind.
func (*Toolkit) Kind() string {
	return "businesses"
}

// Name returns the toolkit instance name.
func (t *Toolkit) Name() string {
	return t.name
}

// Tools returns the list of tool names provided by this toolkit.
func (*Toolkit) Tools() []string {
	tools := []string{toolMatch, toolFetch, toolStatistics, toolEvents, toolAutocomplete, toolSessionData}
	for _, k := range enrichment.All() {
		tools = append(tools, enrichToolName(k))
	}
	return tools
}

// Close releases resources. The store is owned by the platform.
func (*Toolkit) Close() error {
	return nil
}

// RegisterTools registers every pass-through tool with the MCP server.
func (t *Toolkit) RegisterTools(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name: toolMatch,
		Description: "Get business ids from business names and/or domains, at most 50 at a time. " +
			"Do not use after fetch_businesses; its results already carry business ids. " +
			"Returns a session_id that can be passed to later calls.",
	}, t.handleMatch)

	mcp.AddTool(s, &mcp.Tool{
		Name: toolFetch,
		Description: "Fetch businesses matching filter criteria. Values for category, location and technology " +
			"filters must come from autocomplete; only one of linkedin_category, google_category or naics_category " +
			"may be set. Parameters and results are stored under the returned session_id.",
	}, t.handleFetch)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolStatistics,
		Description: "Fetch aggregated statistics for businesses matching filter criteria.",
	}, t.handleStatistics)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolEvents,
		Description: "Fetch business events in bulk, at most 20 business ids at a time.",
	}, t.handleEvents)

	mcp.AddTool(s, &mcp.Tool{
		Name: toolAutocomplete,
		Description: "Autocomplete values for business filters. Never use for fields that are not listed. " +
			"Prefer linkedin_category over google_category; use the field 'country' to look up ISO codes.",
	}, t.handleAutocomplete)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolSessionData,
		Description: "Retrieve business data stored by an earlier call, by session_id and key.",
	}, t.handleSessionData)

	for _, k := range enrichment.All() {
		entry, _ := enrichment.Lookup(k)
		mcp.AddTool(s, &mcp.Tool{
			Name:        enrichToolName(k),
			Description: "Bulk enrich up to 50 businesses with " + string(k) + ". " + entry.Description,
		}, t.enrichHandler(entry))
	}
}

func enrichToolName(k enrichment.Kind) string {
	return enrichToolPrefix + string(k)
}
