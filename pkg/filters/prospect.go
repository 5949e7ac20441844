package filters

import (
	"encoding/json"
	"fmt"
)

// Prospect filter field names.
const (
	FieldHasEmail       = "has_email"
	FieldHasPhoneNumber = "has_phone_number"
	FieldJobLevel       = "job_level"
	FieldJobDepartment  = "job_department"
	FieldBusinessID     = "business_id"
)

// Closed prospect value sets.
var (
	JobLevels = []string{
		"director", "manager", "vp", "partner", "cxo",
		"non-managerial", "senior", "entry", "training", "unpaid",
	}
	JobDepartments = []string{
		"customer service", "design", "education", "engineering", "finance",
		"general", "health", "human resources", "legal", "marketing", "media",
		"operations", "public relations", "real estate", "sales", "trades", "unknown",
	}
)

// Prospect is the schema of the prospect search endpoint.
var Prospect = NewSchema([]Field{
	{Name: FieldHasEmail, Variant: VariantExists},
	{Name: FieldHasPhoneNumber, Variant: VariantExists},
	{Name: FieldJobLevel, Variant: VariantIncludes, Allowed: JobLevels},
	{Name: FieldJobDepartment, Variant: VariantIncludes, Allowed: JobDepartments},
	{Name: FieldBusinessID, Variant: VariantIncludes},
})

// ProspectFilters is the typed tool input for prospect search criteria.
type ProspectFilters struct {
	HasEmail       *bool    `json:"has_email,omitempty" jsonschema:"restrict to prospects with (true) or without (false) an email address"`
	HasPhoneNumber *bool    `json:"has_phone_number,omitempty" jsonschema:"restrict to prospects with (true) or without (false) a phone number"`
	JobLevel       []string `json:"job_level,omitempty" jsonschema:"job levels: director, manager, vp, partner, cxo, non-managerial, senior, entry, training, unpaid"`
	JobDepartment  []string `json:"job_department,omitempty" jsonschema:"job departments, e.g. engineering, sales, marketing, finance, human resources"`
	BusinessID     []string `json:"business_id,omitempty" jsonschema:"business ids from match_businesses or fetch_businesses"`
}

// Spec validates the filters against the Prospect schema.
func (f ProspectFilters) Spec() (Spec, error) {
	raw, err := json.Marshal(f)
	if err != nil {
		return Spec{}, fmt.Errorf("encoding filters: %w", err)
	}
	return Prospect.Parse(raw)
}

// ProspectEventTypes are the prospect event types the events endpoint accepts.
var ProspectEventTypes = []string{
	"prospect_changed_role", "prospect_changed_company", "prospect_job_start_anniversary",
}

// ValidateProspectEventTypes requires a non-empty list of known prospect
// event types.
func ValidateProspectEventTypes(types []string) error {
	return validateEventTypes(types, ProspectEventTypes)
}
