package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	stateNameStarting = "starting"
	stateNameReady    = "ready"
	stateNameDraining = "draining"
	goroutineCount    = 100
)

func TestNewChecker_StartsInStartingState(t *testing.T) {
	hc := NewChecker()
	assert.Equal(t, stateNameStarting, hc.State())
	assert.False(t, hc.IsReady())
}

func TestStateTransitions(t *testing.T) {
	hc := NewChecker()

	hc.SetReady()
	assert.Equal(t, stateNameReady, hc.State())
	assert.True(t, hc.IsReady())

	hc.SetDraining()
	assert.Equal(t, stateNameDraining, hc.State())
	assert.False(t, hc.IsReady())

	// draining → ready (re-ready, e.g. test scenario)
	hc.SetReady()
	assert.Equal(t, stateNameReady, hc.State())
}

func TestLivenessHandler_AlwaysReturns200(t *testing.T) {
	hc := NewChecker()
	hc.AddDependency("store", func(context.Context) error { return errors.New("down") })

	for _, setup := range []func(){func() {}, hc.SetReady, hc.SetDraining} {
		setup()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
		hc.LivenessHandler().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var resp healthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "ok", resp.Status)
	}
}

func TestReadinessHandler_StatusCodes(t *testing.T) {
	hc := NewChecker()

	tests := []struct {
		name       string
		setup      func()
		wantCode   int
		wantStatus string
	}{
		{stateNameStarting, func() { hc.state.Store(stateStarting) }, http.StatusServiceUnavailable, stateNameStarting},
		{stateNameReady, hc.SetReady, http.StatusOK, stateNameReady},
		{stateNameDraining, hc.SetDraining, http.StatusServiceUnavailable, stateNameDraining},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody)
			hc.ReadinessHandler().ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			var resp healthResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
		})
	}
}

func TestReadinessHandler_DependencyFailure(t *testing.T) {
	hc := NewChecker()
	hc.SetReady()
	hc.AddDependency("gateway", func(context.Context) error { return nil })
	hc.AddDependency("store", func(context.Context) error { return errors.New("connection refused") })

	w := httptest.NewRecorder()
	hc.ReadinessHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp healthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, map[string]string{"store": "connection refused"}, resp.Checks)
}

func TestAddDependency_Replaces(t *testing.T) {
	hc := NewChecker()
	hc.AddDependency("store", func(context.Context) error { return errors.New("old") })
	hc.AddDependency("store", func(context.Context) error { return nil })

	assert.Empty(t, hc.Check(context.Background()))
	assert.Len(t, hc.names, 1)
}

func TestCheck_DependencyGetsDeadline(t *testing.T) {
	hc := NewChecker()
	var hasDeadline bool
	hc.AddDependency("store", func(ctx context.Context) error {
		_, hasDeadline = ctx.Deadline()
		return nil
	})

	assert.Empty(t, hc.Check(context.Background()))
	assert.True(t, hasDeadline)
}

func TestConcurrentAccess(t *testing.T) {
	hc := NewChecker()

	var wg sync.WaitGroup
	wg.Add(goroutineCount * 3)

	for range goroutineCount {
		go func() {
			defer wg.Done()
			hc.SetReady()
		}()
		go func() {
			defer wg.Done()
			hc.SetDraining()
		}()
		go func() {
			defer wg.Done()
			_ = hc.IsReady()
			_ = hc.Check(context.Background())
		}()
	}

	wg.Wait()

	assert.Contains(t, []string{stateNameStarting, stateNameReady, stateNameDraining}, hc.State())
}
