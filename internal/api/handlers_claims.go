// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/Shansgupta/Bajaj-hackathon/internal/claims"
	"github.com/Shansgupta/Bajaj-hackathon/internal/history"
	"github.com/Shansgupta/Bajaj-hackathon/internal/log"
	"github.com/Shansgupta/Bajaj-hackathon/internal/policy"
	"github.com/Shansgupta/Bajaj-hackathon/internal/resilience"
)

const (
	rootMessage       = "RAG-Based Insurance Claim API is live"
	defaultClaimLimit = 50
	maxClaimLimit     = 500
)

// retryInitial is the first pause between claim attempts; it doubles after each.
var retryInitial = time.Second

type queryRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": rootMessage,
		"version": APIVersion,
	})
}

// llmAvailable answers 503 and returns false when the LLM circuit is open.
func (s *Server) llmAvailable(w http.ResponseWriter, r *http.Request) bool {
	if s.deps.LLMGuard == nil {
		return true
	}
	if err := s.deps.LLMGuard(r.Context()); errors.Is(err, resilience.ErrCircuitOpen) {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Warn().
			Str(log.FieldEvent, "api.llm_unavailable").
			Str(log.FieldPath, r.URL.Path).
			Msg("rejecting request, LLM circuit open")
		w.Header().Set("Retry-After", "30")
		writeError(w, http.StatusServiceUnavailable, "Language model temporarily unavailable. Please retry shortly.")
		return false
	}
	return true
}

// handleClaim runs the claim pipeline. A run that ends in the pipeline
// fallback is retried with exponential backoff up to claims.handlerAttempts.
func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	if s.deps.Claims == nil {
		writeError(w, http.StatusServiceUnavailable, "claim pipeline not configured")
		return
	}
	thinkMode, err := parseBoolParam(r, "think_mode")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := requireField("query", req.Query); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.llmAvailable(w, r) {
		return
	}

	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Info().
		Str(log.FieldEvent, "claim.received").
		Str(log.FieldQuery, req.Query).
		Bool("think_mode", thinkMode).
		Msg("processing claim")

	res, err := s.runClaim(r.Context(), req.Query, claims.Options{ThinkMode: thinkMode})
	if err != nil {
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "claim.request_failed").
			Msg("claim processing failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if res.Explanation == "" && res.Decision != "" {
		res.Explanation = fmt.Sprintf("Your claim was %s. Amount: ₹%s. Reason: %s",
			res.Decision, policy.FormatAmount(res.Amount), res.JustificationText())
	}
	writeSuccess(w, res)
}

func (s *Server) runClaim(ctx context.Context, query string, opts claims.Options) (claims.Response, error) {
	attempts := max(s.cfg.Get().Claims.HandlerAttempts, 1)

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = retryInitial
	eb.Multiplier = 2

	attempt := 0
	return backoff.Retry(ctx, func() (claims.Response, error) {
		attempt++
		res := s.deps.Claims.Run(ctx, query, opts)
		if !res.Failed() {
			return res, nil
		}
		err := errors.New(res.Justifications[0].ClauseText)
		if attempt < attempts {
			logger := log.WithComponentFromContext(ctx, "api")
			logger.Warn().
				Err(err).
				Str(log.FieldEvent, "claim.retry").
				Int("attempt", attempt).
				Msg("claim pipeline failed, retrying")
		}
		return res, err
	}, backoff.WithBackOff(eb), backoff.WithMaxTries(uint(attempts)))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, "claim history not configured")
		return
	}
	records, err := s.deps.History.List(r.Context(), 0)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "stats.load_failed").
			Msg("failed to load claim history")
		writeError(w, http.StatusInternalServerError, "failed to load claim history")
		return
	}
	writeSuccess(w, history.Compute(records))
}

func (s *Server) handleListClaims(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, "claim history not configured")
		return
	}
	limit := defaultClaimLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxClaimLimit {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxClaimLimit))
			return
		}
		limit = n
	}
	records, err := s.deps.History.List(r.Context(), limit)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "claims.list_failed").
			Msg("failed to list claims")
		writeError(w, http.StatusInternalServerError, "failed to load claim history")
		return
	}
	writeSuccess(w, records)
}

func parseBoolParam(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean", name)
	}
	return v, nil
}
