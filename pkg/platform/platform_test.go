package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/mcp-prospect-research/pkg/gateway"
	"github.com/txn2/mcp-prospect-research/pkg/registry"
	"github.com/txn2/mcp-prospect-research/pkg/session"
)

const testAPIKey = "test-key"

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/businesses/match":
			_, _ = w.Write([]byte(`{"total_matches":1,"matched_businesses":[{"business_id":"b1","name":"Acme","domain":"acme.com"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, baseURL string) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Gateway.APIKey = testAPIKey
	cfg.Gateway.BaseURL = baseURL
	cfg.Research.Persistence.Path = filepath.Join(t.TempDir(), "sessions.json")
	cfg.Storage.Driver = DriverMemory
	return cfg
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config is required")
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig(t, "http://localhost")
	cfg.Gateway.APIKey = ""

	_, err := New(WithConfig(cfg))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}

func TestNew_ResearchOnly(t *testing.T) {
	cfg := testConfig(t, newUpstream(t).URL)

	p, err := New(WithConfig(cfg))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	assert.NotNil(t, p.MCPServer())
	assert.NotNil(t, p.Manager())
	assert.Same(t, cfg, p.Config())
	assert.Nil(t, p.Store(), "no store is opened when nothing needs one")
	assert.Contains(t, p.ToolkitRegistry().AllTools(), "create_search_session")
	assert.NotContains(t, p.ToolkitRegistry().AllTools(), "store_data_in_session")
}

func TestNew_StoreBackedToolkits(t *testing.T) {
	cfg := testConfig(t, newUpstream(t).URL)
	cfg.Toolkits[registry.KindBusinesses] = registry.ToolkitKindConfig{Enabled: true}
	cfg.Toolkits[registry.KindSessionData] = registry.ToolkitKindConfig{Enabled: true}

	p, err := New(WithConfig(cfg))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	require.NotNil(t, p.Store())
	tools := p.ToolkitRegistry().AllTools()
	assert.Contains(t, tools, "match_businesses")
	assert.Contains(t, tools, "store_data_in_session")
	assert.Contains(t, tools, "session_enrich")
}

func TestNew_ProspectsToolkitOpensStore(t *testing.T) {
	cfg := testConfig(t, newUpstream(t).URL)
	cfg.Toolkits[registry.KindProspects] = registry.ToolkitKindConfig{Enabled: true}

	p, err := New(WithConfig(cfg))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	require.NotNil(t, p.Store())
	tools := p.ToolkitRegistry().AllTools()
	assert.Contains(t, tools, "match_prospects")
	assert.Contains(t, tools, "enrich_prospects_profiles")
}

func TestPlatform_BlobPersistenceSurvivesRestart(t *testing.T) {
	upstream := newUpstream(t)
	store := session.NewMemoryStore()
	ctx := context.Background()

	cfg := testConfig(t, upstream.URL)
	cfg.Research.Persistence.Backend = PersistenceBlob

	first, err := New(WithConfig(cfg), WithStore(store))
	require.NoError(t, err)
	require.NoError(t, first.Start(ctx))

	created, err := first.Manager().CreateMatchSession(ctx, []gateway.MatchInput{{Name: "Acme", Domain: "acme.com"}})
	require.NoError(t, err)
	require.NoError(t, first.Stop(ctx))

	// Closing a memory store keeps its contents.
	second, err := New(WithConfig(cfg), WithStore(store))
	require.NoError(t, err)
	require.NoError(t, second.Start(ctx))
	t.Cleanup(func() { _ = second.Close() })

	details, err := second.Manager().Details(created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, created.SessionID, details.SessionID)
}

func TestPlatform_FilePersistence(t *testing.T) {
	upstream := newUpstream(t)
	ctx := context.Background()
	cfg := testConfig(t, upstream.URL)

	first, err := New(WithConfig(cfg))
	require.NoError(t, err)
	require.NoError(t, first.Start(ctx))
	created, err := first.Manager().CreateMatchSession(ctx, []gateway.MatchInput{{Domain: "acme.com"}})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := New(WithConfig(cfg))
	require.NoError(t, err)
	require.NoError(t, second.Start(ctx))
	t.Cleanup(func() { _ = second.Close() })

	assert.Equal(t, 1, second.Manager().Len())
	_, err = second.Manager().Details(created.SessionID)
	assert.NoError(t, err)
}

func TestPlatform_Handler(t *testing.T) {
	cfg := testConfig(t, newUpstream(t).URL)
	cfg.Toolkits[registry.KindSessionData] = registry.ToolkitKindConfig{Enabled: true}

	p, err := New(WithConfig(cfg))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	srv := httptest.NewServer(p.Handler())
	t.Cleanup(srv.Close)

	get := func(path string) int {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, get(RouteHealthz))
	assert.Equal(t, http.StatusServiceUnavailable, get(RouteReadyz), "not ready before Start")
	assert.Equal(t, http.StatusOK, get(RouteMetrics))

	require.NoError(t, p.Start(context.Background()))
	assert.Equal(t, http.StatusOK, get(RouteReadyz))
	assert.True(t, p.Health().IsReady())

	require.NoError(t, p.Stop(context.Background()))
	assert.Equal(t, http.StatusServiceUnavailable, get(RouteReadyz))
}

func TestPlatform_LoadToolkitsError(t *testing.T) {
	cfg := testConfig(t, "http://localhost")
	cfg.Toolkits["unknown"] = registry.ToolkitKindConfig{Enabled: true}

	_, err := New(WithConfig(cfg))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading toolkits")
}

func TestPlatform_CustomPersisterAndClock(t *testing.T) {
	upstream := newUpstream(t)
	ctx := context.Background()
	cfg := testConfig(t, upstream.URL)

	persister := session.NewResearchPersister(session.NewMemoryStore())
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	p, err := New(WithConfig(cfg), WithPersister(persister), WithClock(clock), WithToolkitRegistry(registry.NewRegistry()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	require.NoError(t, p.Start(ctx))

	created, err := p.Manager().CreateMatchSession(ctx, []gateway.MatchInput{{Name: "Acme"}})
	require.NoError(t, err)

	details, err := p.Manager().Details(created.SessionID)
	require.NoError(t, err)
	assert.True(t, details.LastTouchedAt.Equal(now))

	saved, err := persister.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, saved, 1)
}
