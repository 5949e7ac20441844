package research

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/txn2/mcp-prospect-research/pkg/filters"
	"github.com/txn2/mcp-prospect-research/pkg/gateway"
)

// InfoNoEvents is returned when an event fetch appended nothing.
const InfoNoEvents = "No events found for any businesses."

// EventsResult reports the outcome of an event fetch.
type EventsResult struct {
	Info        string            `json:"info"`
	Appended    int               `json:"appended"`
	FailedCalls int               `json:"failed_calls"`
	Results     []json.RawMessage `json:"results,omitempty"`
}

// FetchEvents appends events of the given types since timestampFrom to every
// entity in the session. Each batch's events arrive newest first; no
// ordering is imposed across batches or across calls.
func (m *Manager) FetchEvents(ctx context.Context, id string, eventTypes []string, timestampFrom string, returnResults bool) (*EventsResult, error) {
	if err := filters.ValidateEventTypes(eventTypes); err != nil {
		return nil, invalid(err)
	}
	if err := validateTimestamp(timestampFrom); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	chunks := batches(s.Entities.IDs(), m.opts.EventsBatchSize)
	slog.Debug("fetching session events", "session_id", id, "event_types", eventTypes, "batches", len(chunks))

	res := &EventsResult{}
	var samples []json.RawMessage
	for i, chunk := range chunks {
		resp, err := m.gw.FetchEvents(ctx, gateway.EventsRequest{
			BusinessIDs:   chunk,
			EventTypes:    eventTypes,
			TimestampFrom: timestampFrom,
		})
		if err != nil {
			res.FailedCalls++
			slog.Warn("events call failed", "session_id", id, "batch", i+1, "error", err)
			continue
		}
		inChunk := memberSet(chunk)
		for _, ev := range resp.OutputEvents {
			if !inChunk[ev.BusinessID] {
				continue
			}
			e := s.Entities.Get(ev.BusinessID)
			if e == nil {
				continue
			}
			e.Events = append(e.Events, ev.Raw)
			res.Appended++
			if len(samples) < m.opts.ResultsSample {
				samples = append(samples, ev.Raw)
			}
		}
	}

	if res.Appended == 0 {
		res.Info = InfoNoEvents
		return res, nil
	}

	m.persist(ctx)
	res.Info = fmt.Sprintf("Successfully fetched %d events.", res.Appended)
	if returnResults {
		res.Results = samples
	}
	return res, nil
}

// validateTimestamp accepts RFC 3339 timestamps and plain dates.
func validateTimestamp(ts string) error {
	if ts == "" {
		return invalidf("timestamp_from is required")
	}
	if _, err := time.Parse(time.RFC3339, ts); err == nil {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, ts); err == nil {
		return nil
	}
	return invalidf("timestamp_from %q is not an ISO 8601 timestamp", ts)
}
