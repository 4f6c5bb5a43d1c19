// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config provides configuration management for claimd.
package config

import "time"

// AppConfig is the fully resolved runtime configuration.
// Precedence: ENV > YAML file > defaults.
type AppConfig struct {
	Version    string `yaml:"-"`
	DataDir    string `yaml:"dataDir"`
	LogLevel   string `yaml:"logLevel"`
	LogService string `yaml:"logService"`

	API       APIConfig       `yaml:"api"`
	Server    ServerTimeouts  `yaml:"server"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	OpenAI   OpenAIConfig   `yaml:"openai"`
	Pinecone PineconeConfig `yaml:"pinecone"`
	Upstash  UpstashConfig  `yaml:"upstash"`
	SerpAPI  SerpAPIConfig  `yaml:"serpapi"`
	Vector   VectorConfig   `yaml:"vector"`

	Claims  ClaimsConfig  `yaml:"claims"`
	FAQ     FAQConfig     `yaml:"faq"`
	Policy  PolicyConfig  `yaml:"policy"`
	Voice   VoiceConfig   `yaml:"voice"`
	Cache   CacheConfig   `yaml:"cache"`
	History HistoryConfig `yaml:"history"`
}

// APIConfig configures the public HTTP surface.
type APIConfig struct {
	ListenAddr       string   `yaml:"listenAddr"`
	AllowedOrigins   []string `yaml:"allowedOrigins"`
	RateLimitEnabled bool     `yaml:"rateLimitEnabled"`
	RateLimitRPM     int      `yaml:"rateLimitRPM"`
	MaxBodyBytes     int64    `yaml:"maxBodyBytes"`
	StaticDir        string   `yaml:"staticDir"`
}

// ServerTimeouts holds http.Server timeouts that may be set from YAML.
type ServerTimeouts struct {
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// MetricsConfig configures the Prometheus listener.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listenAddr"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"` // grpc | http
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
	Environment  string  `yaml:"environment"`
}

// OpenAIConfig configures the chat, embedding and speech client.
type OpenAIConfig struct {
	APIKey            string        `yaml:"apiKey"`
	BaseURL           string        `yaml:"baseUrl"`
	ChatModel         string        `yaml:"chatModel"`
	FAQModel          string        `yaml:"faqModel"`
	EmbeddingModel    string        `yaml:"embeddingModel"`
	EmbeddingDim      int           `yaml:"embeddingDim"`
	SpeechModel       string        `yaml:"speechModel"`
	SpeechVoice       string        `yaml:"speechVoice"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"maxRetries"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
}

// PineconeConfig configures the claim history index.
type PineconeConfig struct {
	APIKey     string `yaml:"apiKey"`
	ControlURL string `yaml:"controlUrl"`
	Index      string `yaml:"index"`
	Cloud      string `yaml:"cloud"`
	Region     string `yaml:"region"`
}

// UpstashConfig configures the policy document index.
type UpstashConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// SerpAPIConfig configures the web search fallback.
type SerpAPIConfig struct {
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseUrl"`
}

// VectorConfig selects the backend holding policy documents.
type VectorConfig struct {
	Backend string `yaml:"backend"` // upstash | badger | memory
	Dir     string `yaml:"dir"`
}

// ClaimsConfig tunes the claim pipeline.
type ClaimsConfig struct {
	TopK            int           `yaml:"topK"`
	WebFallback     bool          `yaml:"webFallback"`
	Translate       bool          `yaml:"translate"`
	RecordPinecone  bool          `yaml:"recordPinecone"`
	ThinkDelay      time.Duration `yaml:"thinkDelay"`
	HandlerAttempts int           `yaml:"handlerAttempts"`
}

// FAQConfig tunes the FAQ pipeline.
type FAQConfig struct {
	TopK            int           `yaml:"topK"`
	ScoreThreshold  float64       `yaml:"scoreThreshold"`
	MaxContext      int           `yaml:"maxContext"`
	FallbackContext int           `yaml:"fallbackContext"`
	Concurrency     int           `yaml:"concurrency"`
	CacheTTL        time.Duration `yaml:"cacheTTL"`
}

// PolicyConfig points at the medical policy rules file.
type PolicyConfig struct {
	RulesFile string `yaml:"rulesFile"`
}

// VoiceConfig toggles spoken replies.
type VoiceConfig struct {
	SpeechEnabled bool `yaml:"speechEnabled"`
}

// CacheConfig selects the embedding / answer cache backend.
type CacheConfig struct {
	Backend       string        `yaml:"backend"` // memory | redis | none
	RedisAddr     string        `yaml:"redisAddr"`
	RedisPassword string        `yaml:"redisPassword"`
	RedisDB       int           `yaml:"redisDB"`
	TTL           time.Duration `yaml:"ttl"`
}

// HistoryConfig configures the local claim history database.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		DataDir:    "data",
		LogLevel:   "info",
		LogService: "claimd",
		API: APIConfig{
			ListenAddr:       ":8000",
			AllowedOrigins:   []string{"*"},
			RateLimitEnabled: true,
			RateLimitRPM:     120,
			MaxBodyBytes:     1 << 20,
			StaticDir:        "static",
		},
		Server: ServerTimeouts{
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:    true,
			ListenAddr: ":9090",
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			Environment:  "production",
		},
		OpenAI: OpenAIConfig{
			BaseURL:           "https://api.openai.com",
			ChatModel:         "gpt-4o",
			FAQModel:          "gpt-4o-mini",
			EmbeddingModel:    "text-embedding-ada-002",
			EmbeddingDim:      1536,
			SpeechModel:       "tts-1",
			SpeechVoice:       "alloy",
			Timeout:           60 * time.Second,
			MaxRetries:        3,
			RequestsPerSecond: 5,
		},
		Pinecone: PineconeConfig{
			ControlURL: "https://api.pinecone.io",
			Index:      "insurance-claims",
			Cloud:      "aws",
			Region:     "us-east-1",
		},
		SerpAPI: SerpAPIConfig{
			BaseURL: "https://serpapi.com",
		},
		Vector: VectorConfig{
			Backend: "upstash",
			Dir:     "vectors",
		},
		Claims: ClaimsConfig{
			TopK:            5,
			WebFallback:     true,
			Translate:       true,
			RecordPinecone:  true,
			ThinkDelay:      2 * time.Second,
			HandlerAttempts: 3,
		},
		FAQ: FAQConfig{
			TopK:            12,
			ScoreThreshold:  0.85,
			MaxContext:      6,
			FallbackContext: 3,
			Concurrency:     4,
			CacheTTL:        time.Hour,
		},
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     24 * time.Hour,
		},
		History: HistoryConfig{
			Path: "claims.db",
		},
	}
}
