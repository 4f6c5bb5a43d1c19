// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names. The credential names are shared with the
// ingestion tooling and must not change.
const (
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvPineconeKey  = "PINECONE_API_KEY"
	EnvSerpAPIKey   = "SERPAPI_KEY"
	EnvUpstashURL   = "UPSTASH_VECTOR_URL"
	EnvUpstashToken = "UPSTASH_VECTOR_TOKEN"

	EnvDataDir = "CLAIMD_DATA"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envList(key string, defaultVal []string) []string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseList(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults.
// Order: defaults -> strict file parse -> env overrides -> path resolution -> Validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	cfg.History.Path = resolveUnder(cfg.DataDir, cfg.History.Path)
	cfg.Vector.Dir = resolveUnder(cfg.DataDir, cfg.Vector.Dir)
	cfg.API.StaticDir = resolveUnder(cfg.DataDir, cfg.API.StaticDir)
	if cfg.Policy.RulesFile != "" {
		cfg.Policy.RulesFile = resolveUnder(cfg.DataDir, cfg.Policy.RulesFile)
	}

	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// resolveUnder makes relative paths relative to the data directory.
func resolveUnder(dataDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dataDir, p)
}

// loadFile decodes a YAML file on top of cfg with STRICT parsing.
// Unknown fields are rejected to prevent silent misconfiguration.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.DataDir = l.envString(EnvDataDir, cfg.DataDir)
	cfg.LogLevel = l.envString("CLAIMD_LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = l.envString("CLAIMD_LOG_SERVICE", cfg.LogService)

	cfg.API.ListenAddr = l.envString("CLAIMD_LISTEN", cfg.API.ListenAddr)
	cfg.API.AllowedOrigins = l.envList("CLAIMD_ALLOWED_ORIGINS", cfg.API.AllowedOrigins)
	cfg.API.RateLimitEnabled = l.envBool("CLAIMD_RATELIMIT_ENABLED", cfg.API.RateLimitEnabled)
	cfg.API.RateLimitRPM = l.envInt("CLAIMD_RATELIMIT_RPM", cfg.API.RateLimitRPM)
	cfg.API.StaticDir = l.envString("CLAIMD_STATIC_DIR", cfg.API.StaticDir)

	cfg.Server.ReadTimeout = l.envDuration("CLAIMD_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = l.envDuration("CLAIMD_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.ShutdownTimeout = l.envDuration("CLAIMD_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)

	cfg.Metrics.Enabled = l.envBool("CLAIMD_METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.ListenAddr = l.envString("CLAIMD_METRICS_LISTEN", cfg.Metrics.ListenAddr)

	cfg.Telemetry.Enabled = l.envBool("CLAIMD_TRACING_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString("CLAIMD_TRACING_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString("CLAIMD_TRACING_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat("CLAIMD_TRACING_SAMPLING_RATE", cfg.Telemetry.SamplingRate)

	cfg.OpenAI.APIKey = l.envString(EnvOpenAIKey, cfg.OpenAI.APIKey)
	cfg.OpenAI.BaseURL = l.envString("CLAIMD_OPENAI_BASE_URL", cfg.OpenAI.BaseURL)
	cfg.OpenAI.ChatModel = l.envString("CLAIMD_CHAT_MODEL", cfg.OpenAI.ChatModel)
	cfg.OpenAI.FAQModel = l.envString("CLAIMD_FAQ_MODEL", cfg.OpenAI.FAQModel)
	cfg.OpenAI.EmbeddingModel = l.envString("CLAIMD_EMBEDDING_MODEL", cfg.OpenAI.EmbeddingModel)
	cfg.OpenAI.EmbeddingDim = l.envInt("CLAIMD_EMBEDDING_DIM", cfg.OpenAI.EmbeddingDim)
	cfg.OpenAI.Timeout = l.envDuration("CLAIMD_OPENAI_TIMEOUT", cfg.OpenAI.Timeout)
	cfg.OpenAI.RequestsPerSecond = l.envFloat("CLAIMD_OPENAI_RPS", cfg.OpenAI.RequestsPerSecond)

	cfg.Pinecone.APIKey = l.envString(EnvPineconeKey, cfg.Pinecone.APIKey)
	cfg.Pinecone.Index = l.envString("CLAIMD_PINECONE_INDEX", cfg.Pinecone.Index)
	cfg.Upstash.URL = l.envString(EnvUpstashURL, cfg.Upstash.URL)
	cfg.Upstash.Token = l.envString(EnvUpstashToken, cfg.Upstash.Token)
	cfg.SerpAPI.APIKey = l.envString(EnvSerpAPIKey, cfg.SerpAPI.APIKey)

	cfg.Vector.Backend = l.envString("CLAIMD_VECTOR_BACKEND", cfg.Vector.Backend)
	cfg.Vector.Dir = l.envString("CLAIMD_VECTOR_DIR", cfg.Vector.Dir)

	cfg.Claims.TopK = l.envInt("CLAIMD_CLAIMS_TOP_K", cfg.Claims.TopK)
	cfg.Claims.WebFallback = l.envBool("CLAIMD_WEB_FALLBACK", cfg.Claims.WebFallback)
	cfg.Claims.Translate = l.envBool("CLAIMD_TRANSLATE", cfg.Claims.Translate)
	cfg.Claims.RecordPinecone = l.envBool("CLAIMD_RECORD_PINECONE", cfg.Claims.RecordPinecone)
	cfg.Claims.ThinkDelay = l.envDuration("CLAIMD_THINK_DELAY", cfg.Claims.ThinkDelay)

	cfg.FAQ.TopK = l.envInt("CLAIMD_FAQ_TOP_K", cfg.FAQ.TopK)
	cfg.FAQ.ScoreThreshold = l.envFloat("CLAIMD_FAQ_SCORE_THRESHOLD", cfg.FAQ.ScoreThreshold)
	cfg.FAQ.Concurrency = l.envInt("CLAIMD_FAQ_CONCURRENCY", cfg.FAQ.Concurrency)

	cfg.Policy.RulesFile = l.envString("CLAIMD_POLICY_RULES", cfg.Policy.RulesFile)
	cfg.Voice.SpeechEnabled = l.envBool("CLAIMD_SPEECH_ENABLED", cfg.Voice.SpeechEnabled)

	cfg.Cache.Backend = l.envString("CLAIMD_CACHE_BACKEND", cfg.Cache.Backend)
	cfg.Cache.RedisAddr = l.envString("CLAIMD_REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = l.envString("CLAIMD_REDIS_PASSWORD", cfg.Cache.RedisPassword)
	cfg.Cache.RedisDB = l.envInt("CLAIMD_REDIS_DB", cfg.Cache.RedisDB)
	cfg.Cache.TTL = l.envDuration("CLAIMD_CACHE_TTL", cfg.Cache.TTL)

	cfg.History.Path = l.envString("CLAIMD_HISTORY_PATH", cfg.History.Path)
}
