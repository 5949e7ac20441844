package research

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/txn2/mcp-prospect-research/pkg/enrichment"
	"github.com/txn2/mcp-prospect-research/pkg/gateway"
)

// Informational messages returned by Enrich.
const (
	InfoEnriched        = "Successfully enriched businesses."
	InfoNoEnrichments   = "All enrichments returned no results."
	InfoNothingToEnrich = "Session has no businesses to enrich."
)

// EnrichResult reports the outcome of an enrichment run. Zero successes is
// not an error.
type EnrichResult struct {
	Info        string            `json:"info"`
	Succeeded   int               `json:"succeeded"`
	Missing     int               `json:"missing"`
	FailedCalls int               `json:"failed_calls"`
	Results     []json.RawMessage `json:"results,omitempty"`
}

// Enrich fetches each requested kind for every entity in the session, in
// batches. Every (entity, kind) pair ends holding either a payload or a
// "no results" marker; a failed upstream call marks its whole batch.
func (m *Manager) Enrich(ctx context.Context, id string, kinds []enrichment.Kind, returnResults bool) (*EnrichResult, error) {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	kinds, err := enrichment.ParseKinds(names)
	if err != nil {
		return nil, invalid(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	ids := s.Entities.IDs()
	if len(ids) == 0 {
		return &EnrichResult{Info: InfoNothingToEnrich}, nil
	}

	chunks := batches(ids, m.opts.EnrichBatchSize)
	slog.Debug("enriching session", "session_id", id, "kinds", kinds, "entities", len(ids), "batches", len(chunks))

	res := &EnrichResult{}
	var samples []json.RawMessage
	for i, chunk := range chunks {
		for _, kind := range kinds {
			slog.Debug("enriching batch", "session_id", id, "batch", i+1, "kind", kind, "size", len(chunk))

			resp, err := m.gw.Enrich(ctx, kind.Path(), chunk)
			if err != nil {
				res.FailedCalls++
				slog.Warn("enrichment call failed", "session_id", id, "kind", kind, "batch", i+1, "error", err)
				resp = nil
			}
			found := m.applyEnrichment(s, kind, chunk, resp, &samples)
			res.Succeeded += found
			res.Missing += len(chunk) - found
		}
	}

	// Markers were written even for a run with no successes.
	m.persist(ctx)

	if res.Succeeded == 0 {
		res.Info = InfoNoEnrichments
		return res, nil
	}
	res.Info = InfoEnriched
	if returnResults {
		res.Results = samples
	}
	return res, nil
}

// applyEnrichment merges one batch/kind response into s and marks every
// chunk entity that got no payload. It returns the number of entities that
// received a payload.
func (m *Manager) applyEnrichment(s *Session, kind enrichment.Kind, chunk []string, resp *gateway.EnrichResponse, samples *[]json.RawMessage) int {
	found := make(map[string]bool, len(chunk))
	inChunk := memberSet(chunk)

	if resp != nil {
		for _, item := range resp.Data {
			if !inChunk[item.BusinessID] || gateway.IsEmptyPayload(item.Data) {
				continue
			}
			e := s.Entities.Get(item.BusinessID)
			if e == nil {
				continue
			}
			e.Enrichments[kind] = Enrichment{Data: item.Data}
			if !found[item.BusinessID] {
				found[item.BusinessID] = true
				if len(*samples) < m.opts.ResultsSample {
					*samples = append(*samples, item.Data)
				}
			}
		}
	}

	// A payload from an earlier run is kept rather than replaced by a marker.
	for _, id := range chunk {
		e := s.Entities.Get(id)
		if !found[id] && !e.Enrichments[kind].Found() {
			e.Enrichments[kind] = NoResults(kind)
		}
	}
	return len(found)
}

// memberSet indexes the ids of one batch.
func memberSet(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}
