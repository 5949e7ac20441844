package gateway

import (
	"encoding/json"
	"fmt"
)

// Record is one business or event object from the API. The business id is
// lifted out for keying; the full object is kept verbatim.
type Record struct {
	BusinessID string
	Raw        json.RawMessage
}

// UnmarshalJSON captures the raw object and its business_id.
func (r *Record) UnmarshalJSON(b []byte) error {
	var head struct {
		BusinessID string `json:"business_id"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return fmt.Errorf("decoding record: %w", err)
	}
	r.BusinessID = head.BusinessID
	r.Raw = append(json.RawMessage(nil), b...)
	return nil
}

// MarshalJSON writes the raw object back out.
func (r Record) MarshalJSON() ([]byte, error) {
	if len(r.Raw) == 0 {
		return []byte("null"), nil
	}
	return r.Raw, nil
}

// SearchRequest is a paginated business search.
type SearchRequest struct {
	Filters  map[string]any
	Page     int
	PageSize int
	Size     int
}

// searchPayload is the wire form of SearchRequest.
type searchPayload struct {
	Mode           string         `json:"mode"`
	Size           int            `json:"size"`
	PageSize       int            `json:"page_size"`
	Page           int            `json:"page"`
	Filters        map[string]any `json:"filters"`
	RequestContext map[string]any `json:"request_context"`
}

// SearchResponse is one page of search results.
type SearchResponse struct {
	Data         []Record `json:"data"`
	TotalResults int      `json:"total_results"`
	TotalPages   int      `json:"total_pages"`
	Page         int      `json:"page"`
}

// MatchInput identifies a business by name and/or domain.
type MatchInput struct {
	Name   string `json:"name,omitempty"`
	Domain string `json:"domain,omitempty"`
}

// MatchResponse is the bulk match result.
type MatchResponse struct {
	TotalMatches      int      `json:"total_matches"`
	MatchedBusinesses []Record `json:"matched_businesses"`
	Message           string   `json:"message,omitempty"`
}

// EnrichItem is one entity's payload within a bulk enrichment response.
type EnrichItem struct {
	BusinessID string          `json:"business_id"`
	Data       json.RawMessage `json:"data"`
}

// EnrichResponse is a bulk enrichment result.
type EnrichResponse struct {
	Data []EnrichItem `json:"data"`
}

// EventsRequest asks for events of the given types since TimestampFrom.
type EventsRequest struct {
	BusinessIDs   []string `json:"business_ids"`
	EventTypes    []string `json:"event_types"`
	TimestampFrom string   `json:"timestamp_from"`
}

// EventsResponse carries events for a batch of businesses, each batch sorted
// descending by event time.
type EventsResponse struct {
	OutputEvents []Record `json:"output_events"`
}

// IsEmptyPayload reports whether a JSON value carries no data: absent,
// null, an empty object, an empty array or an empty string.
func IsEmptyPayload(raw json.RawMessage) bool {
	switch string(raw) {
	case "", "null", "{}", "[]", `""`:
		return true
	default:
		return false
	}
}
