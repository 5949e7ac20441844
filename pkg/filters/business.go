package filters

import (
	"encoding/json"
	"fmt"
)

// Business filter field names.
const (
	FieldCountryCode       = "country_code"
	FieldRegionCountryCode = "region_country_code"
	FieldCompanySize       = "company_size"
	FieldCompanyRevenue    = "company_revenue"
	FieldCompanyAge        = "company_age"
	FieldNumberOfLocations = "number_of_locations"
	FieldGoogleCategory    = "google_category"
	FieldNAICSCategory     = "naics_category"
	FieldLinkedInCategory  = "linkedin_category"
	FieldTechStackCategory = "company_tech_stack_category"
	FieldTechStackTech     = "company_tech_stack_tech"
	FieldCompanyName       = "company_name"
	FieldCityRegionCountry = "city_region_country"
	FieldWebsiteKeywords   = "website_keywords"
	FieldHasWebsite        = "has_website"
)

// Closed value sets.
var (
	CompanySizes = []string{
		"1-10", "11-50", "51-200", "201-500", "501-1000",
		"1001-5000", "5001-10000", "10001+",
	}
	CompanyRevenues = []string{
		"0-500K", "500K-1M", "1M-5M", "5M-10M", "10M-25M", "25M-75M", "75M-200M",
		"200M-500M", "500M-1B", "1B-10B", "10B-100B", "100B-1T", "1T-10T", "10T+",
	}
	CompanyAges = []string{"0-3", "3-6", "6-10", "10-20", "20+"}

	LocationCounts = []string{"0-1", "2-5", "6-20", "21-50", "51-100", "101-1000", "1001+"}
)

// Business is the schema of the business search endpoint.
var Business = NewSchema([]Field{
	{Name: FieldCountryCode, Variant: VariantIncludes},
	{Name: FieldRegionCountryCode, Variant: VariantIncludes},
	{Name: FieldCompanySize, Variant: VariantIncludes, Allowed: CompanySizes},
	{Name: FieldCompanyRevenue, Variant: VariantIncludes, Allowed: CompanyRevenues},
	{Name: FieldCompanyAge, Variant: VariantIncludes, Allowed: CompanyAges},
	{Name: FieldNumberOfLocations, Variant: VariantIncludes, Allowed: LocationCounts},
	{Name: FieldGoogleCategory, Variant: VariantIncludes},
	{Name: FieldNAICSCategory, Variant: VariantIncludes},
	{Name: FieldLinkedInCategory, Variant: VariantIncludes},
	{Name: FieldTechStackCategory, Variant: VariantIncludes},
	{Name: FieldTechStackTech, Variant: VariantIncludes},
	{Name: FieldCompanyName, Variant: VariantIncludes},
	{Name: FieldCityRegionCountry, Variant: VariantIncludes},
	{Name: FieldWebsiteKeywords, Variant: VariantIncludes},
	{Name: FieldHasWebsite, Variant: VariantExists},
}, []string{FieldLinkedInCategory, FieldGoogleCategory, FieldNAICSCategory})

// BusinessFilters is the typed tool input for business search criteria.
type BusinessFilters struct {
	CountryCode       []string `json:"country_code,omitempty" jsonschema:"lowercase ISO-3166 alpha-2 country codes, e.g. [\"us\", \"ca\"]"`
	RegionCountryCode []string `json:"region_country_code,omitempty" jsonschema:"lowercase region codes as <country>-<region>, e.g. [\"us-ca\"]"`
	CompanySize       []string `json:"company_size,omitempty" jsonschema:"employee count ranges: 1-10, 11-50, 51-200, 201-500, 501-1000, 1001-5000, 5001-10000, 10001+"`
	CompanyRevenue    []string `json:"company_revenue,omitempty" jsonschema:"annual revenue ranges: 0-500K, 500K-1M, 1M-5M, 5M-10M, 10M-25M, 25M-75M, 75M-200M, 200M-500M, 500M-1B, 1B-10B, 10B-100B, 100B-1T, 1T-10T, 10T+"`
	CompanyAge        []string `json:"company_age,omitempty" jsonschema:"company age ranges in years: 0-3, 3-6, 6-10, 10-20, 20+"`
	NumberOfLocations []string `json:"number_of_locations,omitempty" jsonschema:"location count ranges: 0-1, 2-5, 6-20, 21-50, 51-100, 101-1000, 1001+"`
	GoogleCategory    []string `json:"google_category,omitempty" jsonschema:"Google business categories; values must come from autocomplete. Only one of google_category, naics_category or linkedin_category"`
	NAICSCategory     []string `json:"naics_category,omitempty" jsonschema:"NAICS codes; values must come from autocomplete"`
	LinkedInCategory  []string `json:"linkedin_category,omitempty" jsonschema:"LinkedIn industry categories; values must come from autocomplete"`
	TechStackCategory []string `json:"company_tech_stack_category,omitempty" jsonschema:"technology categories used by the company; values must come from autocomplete"`
	TechStackTech     []string `json:"company_tech_stack_tech,omitempty" jsonschema:"specific technologies used by the company; values must come from autocomplete"`
	CompanyName       []string `json:"company_name,omitempty" jsonschema:"company names"`
	CityRegionCountry []string `json:"city_region_country,omitempty" jsonschema:"locations formatted as City, Region, Country; values must come from autocomplete"`
	WebsiteKeywords   []string `json:"website_keywords,omitempty" jsonschema:"keywords appearing on the company website"`
	HasWebsite        *bool    `json:"has_website,omitempty" jsonschema:"restrict to companies with (true) or without (false) a website"`
}

// Spec validates the filters against the Business schema.
func (f BusinessFilters) Spec() (Spec, error) {
	raw, err := json.Marshal(f)
	if err != nil {
		return Spec{}, fmt.Errorf("encoding filters: %w", err)
	}
	return Business.Parse(raw)
}

// AutocompleteFields are the fields the autocomplete endpoint accepts.
var AutocompleteFields = []string{
	"country", "country_code", "region_country_code", "google_category",
	"naics_category", "linkedin_category", "company_tech_stack_tech",
	"company_tech_stack_categories", "job_title", "company_size",
	"company_revenue", "number_of_locations", "company_age", "job_department",
	"job_level", "city_region_country", "company_name",
}

// ValidateAutocompleteField fails for fields outside AutocompleteFields.
func ValidateAutocompleteField(field string) error {
	return oneOf("field", field, AutocompleteFields)
}

// EventTypes are the business event types the events endpoint accepts.
var EventTypes = []string{
	"ipo_announcement", "new_funding_round", "new_investment", "new_product",
	"new_office", "closing_office", "new_partnership",
	"increase_in_engineering_department", "increase_in_sales_department",
	"increase_in_marketing_department", "increase_in_operations_department",
	"increase_in_customer_service_department", "increase_in_all_departments",
	"decrease_in_engineering_department", "decrease_in_sales_department",
	"decrease_in_marketing_department", "decrease_in_operations_department",
	"decrease_in_customer_service_department", "decrease_in_all_departments",
	"employee_joined_company", "hiring_in_creative_department",
	"hiring_in_education_department", "hiring_in_engineering_department",
	"hiring_in_finance_department", "hiring_in_health_department",
	"hiring_in_human_resources_department", "hiring_in_legal_department",
	"hiring_in_marketing_department", "hiring_in_operations_department",
	"hiring_in_professional_service_department", "hiring_in_sales_department",
	"hiring_in_support_department", "hiring_in_trade_department",
	"hiring_in_unknown_department",
}

// ValidateEventTypes requires a non-empty list of known event types.
func ValidateEventTypes(types []string) error {
	return validateEventTypes(types, EventTypes)
}

func validateEventTypes(types, allowed []string) error {
	if len(types) == 0 {
		return invalid("event_types", "at least one event type is required")
	}
	for _, t := range types {
		if err := oneOf("event_types", t, allowed); err != nil {
			return err
		}
	}
	return nil
}

func oneOf(field, v string, allowed []string) error {
	for _, a := range allowed {
		if a == v {
			return nil
		}
	}
	return invalid(field, "%q is not a supported value", v)
}
