// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsOnly(t *testing.T) {
	t.Setenv(EnvDataDir, t.TempDir())

	cfg, err := NewLoader("", "1.2.3").Load()
	require.NoError(t, err)

	assert.Equal(t, "1.2.3", cfg.Version)
	assert.Equal(t, ":8000", cfg.API.ListenAddr)
	assert.Equal(t, 5, cfg.Claims.TopK)
	assert.Equal(t, 0.85, cfg.FAQ.ScoreThreshold)
	assert.True(t, filepath.IsAbs(cfg.History.Path))
	assert.Equal(t, filepath.Join(cfg.DataDir, "claims.db"), cfg.History.Path)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
dataDir: `+dir+`
logLevel: debug
openai:
  chatModel: gpt-4o-mini
  timeout: 45s
claims:
  topK: 8
  webFallback: false
faq:
  scoreThreshold: 0.7
`)

	cfg, err := NewLoader(path, "dev").Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.ChatModel)
	assert.Equal(t, 45*time.Second, cfg.OpenAI.Timeout)
	assert.Equal(t, 8, cfg.Claims.TopK)
	assert.False(t, cfg.Claims.WebFallback)
	assert.Equal(t, 0.7, cfg.FAQ.ScoreThreshold)
	// untouched keys keep their defaults
	assert.Equal(t, "text-embedding-ada-002", cfg.OpenAI.EmbeddingModel)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "dataDir: "+dir+"\nclaims:\n  topK: 8\n")

	t.Setenv("CLAIMD_CLAIMS_TOP_K", "3")
	t.Setenv(EnvOpenAIKey, "sk-test")
	t.Setenv(EnvUpstashURL, "https://vec.example.com")
	t.Setenv("CLAIMD_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	l := NewLoader(path, "dev")
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Claims.TopK)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "https://vec.example.com", cfg.Upstash.URL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.API.AllowedOrigins)
	assert.Contains(t, l.ConsumedEnvKeys, "CLAIMD_CLAIMS_TOP_K")
}

func TestLoad_StrictRejectsUnknownField(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "dataDir: "+dir+"\nclaims:\n  topKay: 8\n")

	_, err := NewLoader(path, "dev").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strict config parse error")
}

func TestLoad_RejectsMultipleDocuments(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "dataDir: "+dir+"\n---\nlogLevel: debug\n")

	_, err := NewLoader(path, "dev").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple documents")
}

func TestLoad_RejectsNonYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	_, err := NewLoader(path, "dev").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only YAML supported")
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvDataDir, dir)
	path := writeConfig(t, dir, "")

	cfg, err := NewLoader(path, "dev").Load()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.ChatModel)
}

func TestLoad_ValidationFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "dataDir: "+dir+"\nvector:\n  backend: chroma\n")

	_, err := NewLoader(path, "dev").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector.backend")
}

func TestParseServerConfigForApp(t *testing.T) {
	cfg := Defaults()
	cfg.API.ListenAddr = ""
	cfg.Server.WriteTimeout = 0

	sc := ParseServerConfigForApp(cfg)
	assert.Equal(t, ":8000", sc.ListenAddr)
	assert.Equal(t, 120*time.Second, sc.WriteTimeout)
	assert.Equal(t, 30*time.Second, sc.ReadTimeout)
	assert.Equal(t, 1<<20, sc.MaxHeaderBytes)
}
