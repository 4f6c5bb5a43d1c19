// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"strings"

	"github.com/Shansgupta/Bajaj-hackathon/internal/validate"
)

var (
	vectorBackends = []string{"upstash", "badger", "memory"}
	cacheBackends  = []string{"memory", "redis", "none"}
	exporters      = []string{"grpc", "http"}
)

// Validate validates an AppConfig using the centralized validation package.
// Credentials are optional at this point: components that need a missing
// credential report themselves as unconfigured on /readyz.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.LogLevel("logLevel", cfg.LogLevel)
	v.Directory("dataDir", cfg.DataDir, false)

	v.ListenAddr("api.listenAddr", cfg.API.ListenAddr)
	if cfg.API.RateLimitEnabled {
		v.Positive("api.rateLimitRPM", cfg.API.RateLimitRPM)
	}
	if cfg.API.MaxBodyBytes <= 0 {
		v.AddError("api.maxBodyBytes", "value must be positive", cfg.API.MaxBodyBytes)
	}
	if cfg.Metrics.Enabled {
		v.ListenAddr("metrics.listenAddr", cfg.Metrics.ListenAddr)
	}
	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, exporters)
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("telemetry.samplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	v.URL("openai.baseUrl", cfg.OpenAI.BaseURL, []string{"http", "https"})
	v.NotEmpty("openai.chatModel", cfg.OpenAI.ChatModel)
	v.NotEmpty("openai.faqModel", cfg.OpenAI.FAQModel)
	v.NotEmpty("openai.embeddingModel", cfg.OpenAI.EmbeddingModel)
	v.Positive("openai.embeddingDim", cfg.OpenAI.EmbeddingDim)
	v.Range("openai.maxRetries", cfg.OpenAI.MaxRetries, 1, 10)
	if cfg.OpenAI.RequestsPerSecond <= 0 {
		v.AddError("openai.requestsPerSecond", "value must be positive", cfg.OpenAI.RequestsPerSecond)
	}

	v.URL("pinecone.controlUrl", cfg.Pinecone.ControlURL, []string{"http", "https"})
	v.NotEmpty("pinecone.index", cfg.Pinecone.Index)
	if strings.TrimSpace(cfg.Upstash.URL) != "" {
		v.URL("upstash.url", cfg.Upstash.URL, []string{"http", "https"})
	}
	v.URL("serpapi.baseUrl", cfg.SerpAPI.BaseURL, []string{"http", "https"})

	v.OneOf("vector.backend", cfg.Vector.Backend, vectorBackends)

	v.Range("claims.topK", cfg.Claims.TopK, 1, 100)
	v.Range("claims.handlerAttempts", cfg.Claims.HandlerAttempts, 1, 10)
	v.Range("faq.topK", cfg.FAQ.TopK, 1, 100)
	v.FloatRange("faq.scoreThreshold", cfg.FAQ.ScoreThreshold, 0, 1)
	v.Positive("faq.maxContext", cfg.FAQ.MaxContext)
	v.Positive("faq.fallbackContext", cfg.FAQ.FallbackContext)
	v.Range("faq.concurrency", cfg.FAQ.Concurrency, 1, 64)

	v.File("policy.rulesFile", cfg.Policy.RulesFile)

	v.OneOf("cache.backend", cfg.Cache.Backend, cacheBackends)
	if cfg.Cache.Backend == "redis" {
		v.NotEmpty("cache.redisAddr", cfg.Cache.RedisAddr)
	}
	v.NotEmpty("history.path", cfg.History.Path)

	return v.Err()
}
