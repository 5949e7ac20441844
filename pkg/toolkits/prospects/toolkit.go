// Package prospects provides pass-through MCP tools over the prospect data
// API. Like the businesses toolkit, every call records its parameters and the
// upstream result in the session data store under the returned session_id.
package prospects

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-prospect-research/pkg/session"
	"github.com/txn2/mcp-prospect-research/pkg/toolkits/passthrough"
)

// Tool names.
const (
	toolMatch          = "match_prospects"
	toolFetch          = "fetch_prospects"
	toolEvents         = "fetch_prospects_events"
	toolEnrichContacts = "enrich_prospects_contacts_information"
	toolEnrichPosts    = "enrich_prospects_linkedin_posts"
	toolEnrichProfiles = "enrich_prospects_profiles"
)

// Upstream request paths.
const (
	pathMatch          = "prospects/match"
	pathSearch         = "prospects"
	pathEvents         = "prospects/events"
	pathEnrichContacts = "prospects/contacts_information/bulk_enrich"
	pathEnrichPosts    = "prospects/linkedin_posts/bulk_enrich"
	pathEnrichProfiles = "prospects/profiles/bulk_enrich"
)

// enrichTool is one bulk prospect enrichment endpoint.
type enrichTool struct {
	name        string
	path        string
	description string
}

var enrichTools = []enrichTool{
	{
		name: toolEnrichContacts,
		path: pathEnrichContacts,
		description: "Enrich up to 50 prospects with contact information: professional and personal " +
			"email addresses, email type and phone numbers.",
	},
	{
		name: toolEnrichPosts,
		path: pathEnrichPosts,
		description: "Enrich up to 50 prospects with their LinkedIn posts: text, engagement metrics, " +
			"post URLs, creation dates and days since posted.",
	},
	{
		name: toolEnrichProfiles,
		path: pathEnrichProfiles,
		description: "Get detailed profiles for up to 50 prospects: demographics, location, LinkedIn URL, " +
			"current role, work history, education, skills and interests.",
	},
}

// Toolkit implements the prospect pass-through toolkit.
type Toolkit struct {
	name string
	rec  *passthrough.Recorder
}

// New creates a prospects toolkit.
func New(name string, gw passthrough.Gateway, store session.Store) *Toolkit {
	return &Toolkit{
		name: name,
		rec:  passthrough.New(gw, store),
	}
}

// Kind returns the toolkit kind.
func (*Toolkit) Kind() string {
	return "prospects"
}

// Name returns the toolkit instance name.
func (t *Toolkit) Name() string {
	return t.name
}

// Tools returns the list of tool names provided by this toolkit.
func (*Toolkit) Tools() []string {
	tools := []string{toolMatch, toolFetch, toolEvents}
	for _, e := range enrichTools {
		tools = append(tools, e.name)
	}
	return tools
}

// Close releases resources. The store is owned by the platform.
func (*Toolkit) Close() error {
	return nil
}

// RegisterTools registers every prospect tool with the MCP server.
func (t *Toolkit) RegisterTools(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name: toolMatch,
		Description: "Get prospect ids from a person's email, or full name and company, at most 40 at a time. " +
			"Use this when the request is about someone working at a specific company and prospect " +
			"enrichment, contact details or profile information is needed. Do not use it to find " +
			"leadership or employees of a company; use fetch_prospects for that.",
	}, t.handleMatch)

	mcp.AddTool(s, &mcp.Tool{
		Name: toolFetch,
		Description: "Fetch prospects (employees) by job level, department, business id and contact availability. " +
			"Use fetch_businesses when looking for companies instead. Parameters and results are stored " +
			"under the returned session_id.",
	}, t.handleFetch)

	mcp.AddTool(s, &mcp.Tool{
		Name: toolEvents,
		Description: "Fetch prospect events (role changes, company changes, job anniversaries) in bulk, " +
			"at most 20 prospect ids at a time.",
	}, t.handleEvents)

	for _, e := range enrichTools {
		mcp.AddTool(s, &mcp.Tool{
			Name:        e.name,
			Description: e.description,
		}, t.enrichHandler(e))
	}
}
