// Package enrichment defines the closed set of enrichment kinds, the upstream
// bulk endpoint for each, and the static descriptions used in tool docs.
package enrichment

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is an enrichment category fetchable per business.
type Kind string

// Enrichment kinds.
const (
	Firmographics          Kind = "firmographics"
	Technographics         Kind = "technographics"
	CompanyRatings         Kind = "company_ratings"
	FinancialMetrics       Kind = "financial_metrics"
	FundingAndAcquisitions Kind = "funding_and_acquisitions"
	Challenges             Kind = "challenges"
	CompetitiveLandscape   Kind = "competitive_landscape"
	StrategicInsights      Kind = "strategic_insights"
	WorkforceTrends        Kind = "workforce_trends"
	LinkedInPosts          Kind = "linkedin_posts"
	WebsiteChanges         Kind = "website_changes"
	WebsiteKeywords        Kind = "website_keywords"
)

// MaxKindsPerCall bounds how many kinds one enrich request may ask for.
const MaxKindsPerCall = 5

// Entry is one row of the dispatch table.
type Entry struct {
	Kind        Kind
	Path        string
	Description string
}

// table is ordered; All and Describe follow this order.
var table = []Entry{
	{
		Kind: Firmographics,
		Path: "businesses/firmographics/bulk_enrich",
		Description: "Business name and description, website, country and region, NAICS and SIC " +
			"classification, stock ticker, employee count range, revenue range, LinkedIn industry and profile URL.",
	},
	{
		Kind: Technographics,
		Path: "businesses/technographics/bulk_enrich",
		Description: "Full technology stack, grouped by function such as sales, marketing, DevOps, " +
			"IT security, analytics, HR, finance and collaboration.",
	},
	{
		Kind:        CompanyRatings,
		Path:        "businesses/company_ratings_by_employees/bulk_enrich",
		Description: "Employee ratings of the company: culture, compensation, leadership, work-life balance and career opportunities.",
	},
	{
		Kind:        FinancialMetrics,
		Path:        "businesses/financial_indicators/bulk_enrich",
		Description: "Financial indicators for public companies: market cap, revenue, EBITDA, margins, earnings and valuation ratios.",
	},
	{
		Kind:        FundingAndAcquisitions,
		Path:        "businesses/funding_and_acquisition/bulk_enrich",
		Description: "Funding rounds, investors, total raised, acquisitions made and IPO details.",
	},
	{
		Kind:        Challenges,
		Path:        "businesses/pc_business_challenges_10k/bulk_enrich",
		Description: "Business risks and challenges reported in public filings, such as market, regulatory and operational risks.",
	},
	{
		Kind:        CompetitiveLandscape,
		Path:        "businesses/pc_competitive_landscape_10k/bulk_enrich",
		Description: "Competitors and market positioning drawn from public filings.",
	},
	{
		Kind:        StrategicInsights,
		Path:        "businesses/pc_strategy_10k/bulk_enrich",
		Description: "Strategic focus areas, growth initiatives and value propositions drawn from public filings.",
	},
	{
		Kind:        WorkforceTrends,
		Path:        "businesses/workforce_trends/bulk_enrich",
		Description: "Headcount by department and its change over time, with hiring trends.",
	},
	{
		Kind:        LinkedInPosts,
		Path:        "businesses/linkedin_posts/bulk_enrich",
		Description: "Recent company LinkedIn posts with text, date and engagement metrics.",
	},
	{
		Kind:        WebsiteChanges,
		Path:        "businesses/website_changes/bulk_enrich",
		Description: "Notable changes detected on the company website over time.",
	},
	{
		Kind:        WebsiteKeywords,
		Path:        "businesses/company_website_keywords/bulk_enrich",
		Description: "Keywords found on the company website.",
	},
}

var byKind = func() map[Kind]Entry {
	m := make(map[Kind]Entry, len(table))
	for _, e := range table {
		m[e.Kind] = e
	}
	return m
}()

// All returns every kind in table order.
func All() []Kind {
	out := make([]Kind, len(table))
	for i, e := range table {
		out[i] = e.Kind
	}
	return out
}

// Lookup returns the table entry for k.
func Lookup(k Kind) (Entry, bool) {
	e, ok := byKind[k]
	return e, ok
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := byKind[k]
	return ok
}

// Path returns the upstream bulk endpoint for k, or "" if unknown.
func (k Kind) Path() string {
	return byKind[k].Path
}

// NoResultsInfo is the marker text stored for a requested kind that
// returned nothing for an entity.
func (k Kind) NoResultsInfo() string {
	return fmt.Sprintf("No %s results found", k)
}

// ParseKinds validates 1..MaxKindsPerCall kind names and removes duplicates,
// keeping first-seen order.
func ParseKinds(names []string) ([]Kind, error) {
	if len(names) == 0 {
		return nil, errors.New("at least one enrichment type is required")
	}

	seen := make(map[Kind]bool, len(names))
	out := make([]Kind, 0, len(names))
	for _, n := range names {
		k := Kind(strings.TrimSpace(n))
		if !k.Valid() {
			return nil, fmt.Errorf("unknown enrichment type %q: must be one of %s", n, joinKinds(All()))
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}

	if len(out) > MaxKindsPerCall {
		return nil, fmt.Errorf("at most %d enrichment types may be requested at once, got %d", MaxKindsPerCall, len(out))
	}
	return out, nil
}

// Describe renders the per-kind documentation block used in tool
// descriptions.
func Describe() string {
	var b strings.Builder
	for _, e := range table {
		fmt.Fprintf(&b, "- %s: %s\n", e.Kind, e.Description)
	}
	return b.String()
}

func joinKinds(kinds []Kind) string {
	s := make([]string, len(kinds))
	for i, k := range kinds {
		s[i] = string(k)
	}
	return strings.Join(s, ", ")
}
