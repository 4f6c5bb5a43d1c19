// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shansgupta/Bajaj-hackathon/internal/cache"
	"github.com/Shansgupta/Bajaj-hackathon/internal/config"
	"github.com/Shansgupta/Bajaj-hackathon/internal/health"
)

func offlineConfig(t *testing.T) config.AppConfig {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.Version = "test"
	cfg.DataDir = dir
	cfg.History.Path = filepath.Join(dir, "claims.db")
	cfg.Vector.Backend = "memory"
	cfg.Vector.Dir = filepath.Join(dir, "vectors")
	cfg.Cache.Backend = "memory"
	cfg.Claims.RecordPinecone = false
	cfg.Claims.WebFallback = false
	cfg.Telemetry.Enabled = false
	return cfg
}

func TestBuild_Offline(t *testing.T) {
	rt, err := Build(context.Background(), offlineConfig(t))
	require.NoError(t, err)
	defer func() { assert.NoError(t, rt.Close(context.Background())) }()

	assert.Equal(t, "memory", rt.Policies.Name())
	assert.Nil(t, rt.ClaimsIndex)
	assert.Nil(t, rt.Search)
	assert.False(t, rt.LLM.Configured())

	deps := rt.APIDeps()
	assert.NotNil(t, deps.Claims)
	assert.NotNil(t, deps.FAQ)
	assert.NotNil(t, deps.Voice)
	assert.NotNil(t, deps.History)
	assert.NotNil(t, deps.LLMGuard)

	// Unconfigured credentials degrade the service without making it unready.
	ready := rt.Health.Ready(context.Background())
	assert.True(t, ready.Ready)
	assert.Equal(t, health.StatusDegraded, ready.Status)
	assert.Equal(t, health.StatusHealthy, ready.Checks["history_db"].Status)
	assert.Equal(t, health.StatusDegraded, ready.Checks["llm"].Status)
}

func TestBuild_BadgerAndRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := offlineConfig(t)
	cfg.Vector.Backend = "badger"
	cfg.Cache.Backend = "redis"
	cfg.Cache.RedisAddr = mr.Addr()
	cfg.Claims.WebFallback = true
	cfg.Claims.RecordPinecone = true
	cfg.Pinecone.APIKey = "pc-test"
	cfg.Pinecone.ControlURL = fakePineconeControl(t)

	rt, err := Build(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, "badger", rt.Policies.Name())
	assert.IsType(t, &cache.RedisCache{}, rt.Cache)
	require.NotNil(t, rt.ClaimsIndex)
	require.NotNil(t, rt.Search)

	resp := rt.Health.Health(context.Background(), true)
	for _, name := range []string{"history_db", "llm", "vector_badger", "pinecone", "serpapi", "cache"} {
		assert.Contains(t, resp.Checks, name)
	}
	assert.Equal(t, "healthy", string(resp.Checks["vector_badger"].Status))
	assert.Equal(t, "healthy", string(resp.Checks["cache"].Status))

	require.NoError(t, rt.Close(context.Background()))
	assert.Error(t, rt.History.Check(context.Background()), "history closed")
}

// fakePineconeControl describes every requested index as ready.
func fakePineconeControl(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, ok := strings.CutPrefix(r.URL.Path, "/indexes/")
		if r.Method != http.MethodGet || !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"` + name + `","dimension":1536,"metric":"cosine","host":"claims.pinecone.test","status":{"ready":true,"state":"Ready"}}`))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestBuild_RecordPineconeWithoutKey(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.Claims.RecordPinecone = true
	cfg.Pinecone.APIKey = ""

	rt, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { assert.NoError(t, rt.Close(context.Background())) }()

	assert.Nil(t, rt.ClaimsIndex, "no key, no vector history sink")
	assert.NotContains(t, rt.Health.Health(context.Background(), true).Checks, "pinecone")
}

func TestBuild_RedisUnreachable(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.Cache.Backend = "redis"
	cfg.Cache.RedisAddr = reserveListenAddr(t)

	_, err := Build(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache")
}

func TestRuntime_RegisterHooks(t *testing.T) {
	rt, err := Build(context.Background(), offlineConfig(t))
	require.NoError(t, err)

	rec := &recordingManager{}
	rt.RegisterHooks(rec)
	assert.Equal(t, []string{"telemetry", "cache", "history"}, rec.names)

	// Hooks moved to the manager; Close has nothing left to release.
	require.NoError(t, rt.Close(context.Background()))
	require.NoError(t, rt.History.Check(context.Background()))

	for i := len(rec.hooks) - 1; i >= 0; i-- {
		require.NoError(t, rec.hooks[i](context.Background()))
	}
	assert.Error(t, rt.History.Check(context.Background()))
}

type recordingManager struct {
	names []string
	hooks []ShutdownHook
}

func (r *recordingManager) Start(context.Context) error    { return nil }
func (r *recordingManager) Shutdown(context.Context) error { return nil }
func (r *recordingManager) RegisterShutdownHook(name string, hook ShutdownHook) {
	r.names = append(r.names, name)
	r.hooks = append(r.hooks, hook)
}
