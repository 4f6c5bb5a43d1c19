// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Shansgupta/Bajaj-hackathon/internal/api/middleware"
	"github.com/Shansgupta/Bajaj-hackathon/internal/fsutil"
)

func (s *Server) routes() http.Handler {
	cfg := s.cfg.Get()
	r := middleware.NewRouter(middleware.StackConfig{
		EnableCORS:     true,
		AllowedOrigins: cfg.API.AllowedOrigins,

		EnableSecurityHeaders: true,
		CSP:                   middleware.DefaultCSP,

		EnableMetrics:  true,
		TracingService: tracingService(cfg.Telemetry.Enabled),
		EnableLogging:  true,

		EnableRateLimit: cfg.API.RateLimitEnabled,
		RateLimitRPM:    cfg.API.RateLimitRPM,
		MaxBodyBytes:    cfg.API.MaxBodyBytes,
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	s.registerSystemRoutes(r)
	s.registerClaimRoutes(r)
	s.registerStatic(r, cfg.API.StaticDir)
	return r
}

func tracingService(enabled bool) string {
	if !enabled {
		return ""
	}
	return "claimd-api"
}

func (s *Server) registerSystemRoutes(r chi.Router) {
	r.Get("/", s.handleRoot)
	r.Get("/openapi.yaml", handleOpenAPI)
	if s.deps.Health != nil {
		r.Get("/healthz", s.deps.Health.ServeHealth)
		r.Get("/readyz", s.deps.Health.ServeReady)
	}
}

func (s *Server) registerClaimRoutes(r chi.Router) {
	r.Post("/api/claim", s.handleClaim)
	r.Post("/api/faq", s.handleFAQ)
	r.Get("/api/stats", s.handleStats)
	r.Get("/api/claims", s.handleListClaims)
	r.Post("/voice-query", s.handleVoiceQuery)
	r.Post("/hackrx/run", s.handleHackRx)
}

// registerStatic serves generated audio replies. Directory listings and
// paths that resolve outside dir are not served.
func (s *Server) registerStatic(r chi.Router, dir string) {
	if dir == "" {
		return
	}
	r.Get("/static/*", func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "*")
		if name == "" || strings.HasSuffix(name, "/") {
			writeError(w, http.StatusNotFound, "Not Found")
			return
		}
		full, err := fsutil.ConfineRelPath(dir, name)
		if err != nil || fsutil.IsRegularFile(full) != nil {
			writeError(w, http.StatusNotFound, "Not Found")
			return
		}
		http.ServeFile(w, req, full)
	})
}
