package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	gwTestAPIKey  = "test-key"
	gwTestBackoff = time.Millisecond
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		BaseURL:        srv.URL,
		APIKey:         gwTestAPIKey,
		Timeout:        time.Second,
		EventsTimeout:  time.Second,
		MaxRetries:     2,
		InitialBackoff: gwTestBackoff,
		MaxBackoff:     gwTestBackoff,
	})
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")

	_, err = New(Config{APIKey: gwTestAPIKey, BaseURL: "not a url"})
	require.Error(t, err)

	c, err := New(Config{APIKey: gwTestAPIKey})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, defaultMaxRetries, c.maxRetries)
	assert.Equal(t, defaultEventsTimeout, c.eventsTimeout)
}

func TestNew_NegativeRetriesDisablesRetry(t *testing.T) {
	c, err := New(Config{APIKey: gwTestAPIKey, MaxRetries: -1})
	require.NoError(t, err)
	assert.Equal(t, 0, c.maxRetries)
}

func TestSearchBusinesses_Payload(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/businesses", r.URL.Path)
		assert.Equal(t, gwTestAPIKey, r.Header.Get("api_key"))
		assert.Equal(t, "application/json", r.Header.Get("accept"))
		assert.Equal(t, "application/json", r.Header.Get("content-type"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		_, _ = w.Write([]byte(`{"data":[{"business_id":"b1","name":"Acme"},{"business_id":"b2","name":"Beta"}],"total_results":42,"total_pages":21,"page":1}`))
	})

	resp, err := c.SearchBusinesses(context.Background(), SearchRequest{
		Filters:  map[string]any{"country_code": map[string]any{"values": []string{"us"}}},
		Page:     1,
		PageSize: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, "full", got["mode"])
	assert.InDelta(t, 2, got["size"], 0)
	assert.InDelta(t, 2, got["page_size"], 0)
	assert.InDelta(t, 1, got["page"], 0)
	assert.Equal(t, map[string]any{}, got["request_context"])
	assert.Contains(t, got["filters"], "country_code")

	require.Len(t, resp.Data, 2)
	assert.Equal(t, "b1", resp.Data[0].BusinessID)
	assert.JSONEq(t, `{"business_id":"b1","name":"Acme"}`, string(resp.Data[0].Raw))
	assert.Equal(t, 42, resp.TotalResults)
	assert.Equal(t, 21, resp.TotalPages)
}

func TestDo_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"total_matches":1,"matched_businesses":[{"business_id":"m1"}]}`))
	})

	resp, err := c.MatchBusinesses(context.Background(), []MatchInput{{Name: "Acme"}})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 1, resp.TotalMatches)
	require.Len(t, resp.MatchedBusinesses, 1)
	assert.Equal(t, "m1", resp.MatchedBusinesses[0].BusinessID)
}

func TestDo_RetriesAreBounded(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Enrich(context.Background(), "businesses/firmographics/bulk_enrich", []string{"b1"})
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())

	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "enrich", ue.Operation)
	assert.Equal(t, http.StatusTooManyRequests, ue.StatusCode)
}

func TestDo_ClientErrorsFailFast(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"bad filter"}`))
	})

	_, err := c.Statistics(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, IsRetryable(err))
	assert.Contains(t, err.Error(), "bad filter")
	assert.Contains(t, err.Error(), "422")
}

func TestDo_DecodeErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := c.FetchEvents(context.Background(), EventsRequest{BusinessIDs: []string{"b1"}})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, IsRetryable(err))
	assert.Contains(t, err.Error(), "decoding response")
	assert.NotContains(t, err.Error(), "HTTP")
}

func TestDo_PerAttemptTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
		}
		w.WriteHeader(http.StatusOK)
	})
	c.timeout = 20 * time.Millisecond
	c.maxRetries = 0

	_, err := c.Statistics(context.Background(), map[string]any{})
	require.Error(t, err)
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Zero(t, ue.StatusCode)
}

func TestDo_CanceledContextStopsRetrying(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		cancel()
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Statistics(ctx, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAutocomplete_Query(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/businesses/autocomplete", r.URL.Path)
		assert.Equal(t, "linkedin_category", r.URL.Query().Get("field"))
		assert.Equal(t, "soft ware", r.URL.Query().Get("query"))
		_, _ = w.Write([]byte(`[{"query":"software","label":"Software Development","value":"software development"}]`))
	})

	raw, err := c.Autocomplete(context.Background(), "linkedin_category", "soft ware")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Software Development")
}

func TestFetchEvents_Payload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/businesses/events", r.URL.Path)
		var req EventsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"b1", "b2"}, req.BusinessIDs)
		assert.Equal(t, []string{"new_funding_round"}, req.EventTypes)
		assert.Equal(t, "2025-01-01", req.TimestampFrom)
		_, _ = w.Write([]byte(`{"output_events":[{"business_id":"b1","event_name":"new_funding_round"}]}`))
	})

	resp, err := c.FetchEvents(context.Background(), EventsRequest{
		BusinessIDs:   []string{"b1", "b2"},
		EventTypes:    []string{"new_funding_round"},
		TimestampFrom: "2025-01-01",
	})
	require.NoError(t, err)
	require.Len(t, resp.OutputEvents, 1)
	assert.Equal(t, "b1", resp.OutputEvents[0].BusinessID)
}

func TestRaw_EventPathsUseEventsTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_, _ = w.Write([]byte(`{"path":"` + r.URL.Path + `"}`))
	})
	c.timeout = 20 * time.Millisecond
	c.maxRetries = 0

	raw, err := c.Raw(context.Background(), "fetch_prospects_events", "prospects/events", map[string]any{"prospect_ids": []string{"p1"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"path":"/prospects/events"}`, string(raw))

	_, err = c.Raw(context.Background(), "fetch_prospects", "prospects", map[string]any{})
	require.Error(t, err)
}

func TestRecord_MarshalRoundTrip(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{"business_id":"x","n":1}`), &r))
	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"business_id":"x","n":1}`, string(out))

	out, err = json.Marshal(Record{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

func TestIsEmptyPayload(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"null", true},
		{"{}", true},
		{"[]", true},
		{`""`, true},
		{`{"a":1}`, false},
		{`[1]`, false},
		{`"x"`, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEmptyPayload(json.RawMessage(tt.in)))
		})
	}
}

func TestUpstreamError_Messages(t *testing.T) {
	assert.Equal(t, "search: upstream returned HTTP 500",
		(&UpstreamError{Operation: "search", StatusCode: 500}).Error())
	assert.Equal(t, "search: upstream returned HTTP 400: nope",
		(&UpstreamError{Operation: "search", StatusCode: 400, Body: "nope"}).Error())
	assert.Equal(t, "search: "+assert.AnError.Error(),
		(&UpstreamError{Operation: "search", Err: assert.AnError}).Error())
	assert.Equal(t, "search (HTTP 200): "+assert.AnError.Error(),
		(&UpstreamError{Operation: "search", StatusCode: 200, Err: assert.AnError}).Error())

	long := make([]byte, maxErrorBody+10)
	assert.Len(t, truncateBody(long), maxErrorBody+3)
}
