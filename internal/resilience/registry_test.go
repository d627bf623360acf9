package resilience_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punktepass/punktepass/internal/resilience"
)

func TestRegistry_TracksClientOutcomes(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	cfg := fastConfig("webhook")
	cfg.Registry = registry
	client := resilience.NewClient(cfg)

	health := registry.Get("webhook")
	require.NotNil(t, health)
	assert.Equal(t, gobreaker.StateClosed, health.State)
	assert.True(t, health.Healthy())
	assert.Equal(t, "ok", health.Status())
	assert.Nil(t, health.LastSuccessAt)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	health = registry.Get("webhook")
	require.NotNil(t, health.LastSuccessAt)

	status.Store(http.StatusForbidden)
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	health = registry.Get("webhook")
	require.NotNil(t, health.LastFailureAt)
	assert.Contains(t, health.LastError, "403")
}

func TestRegistry_All(t *testing.T) {
	registry := resilience.NewRegistry()
	for _, name := range []string{"b", "a"} {
		cfg := fastConfig(name)
		cfg.Registry = registry
		resilience.NewClient(cfg)
	}

	all := registry.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name)
	assert.Equal(t, "b", all[1].Name)
	assert.Nil(t, registry.Get("missing"))
}
