// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"time"

	"github.com/Shansgupta/Bajaj-hackathon/internal/faq"
	"github.com/Shansgupta/Bajaj-hackathon/internal/log"
)

// NoAnswerMessage fills a /hackrx/run slot whose question produced nothing.
const NoAnswerMessage = "Sorry, no answer found."

// FAQ modes: rag generates an answer from retrieved chunks, direct returns
// the stored answer of the best matching Q/A entry.
const (
	faqModeRAG    = "rag"
	faqModeDirect = "direct"
)

type voiceRequest struct {
	Text string `json:"text"`
}

type hackRxRequest struct {
	Documents string   `json:"documents"`
	Questions []string `json:"questions"`
}

type hackRxResponse struct {
	Answers []string `json:"answers"`
}

func (s *Server) handleFAQ(w http.ResponseWriter, r *http.Request) {
	if s.deps.FAQ == nil {
		writeError(w, http.StatusServiceUnavailable, "FAQ pipeline not configured")
		return
	}
	mode := r.URL.Query().Get("mode")
	if mode != "" && mode != faqModeRAG && mode != faqModeDirect {
		writeError(w, http.StatusBadRequest, "mode must be rag or direct")
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
	if mode == faqModeDirect {
		writeSuccess(w, faq.Result{
			Query:     req.Query,
			Answers:   []string{s.deps.FAQ.Lookup(r.Context(), req.Query)},
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		})
		return
	}
	writeSuccess(w, s.deps.FAQ.Answer(r.Context(), req.Query))
}

func (s *Server) handleVoiceQuery(w http.ResponseWriter, r *http.Request) {
	if s.deps.Voice == nil {
		writeError(w, http.StatusServiceUnavailable, "voice assistant not configured")
		return
	}
	var req voiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := requireField("text", req.Text); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.llmAvailable(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Voice.Reply(r.Context(), req.Text))
}

// handleHackRx answers a batch of questions, one answer per question in
// request order.
func (s *Server) handleHackRx(w http.ResponseWriter, r *http.Request) {
	if s.deps.FAQ == nil {
		writeError(w, http.StatusServiceUnavailable, "FAQ pipeline not configured")
		return
	}
	var req hackRxRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if req.Questions == nil {
		writeError(w, http.StatusBadRequest, "questions is required")
		return
	}
	if len(req.Questions) > 0 && !s.llmAvailable(w, r) {
		return
	}

	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Info().
		Str(log.FieldEvent, "hackrx.received").
		Int("questions", len(req.Questions)).
		Str("documents", req.Documents).
		Msg("batch question answering")

	results, err := s.deps.FAQ.AnswerAll(r.Context(), req.Questions)
	if err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "hackrx.failed").Msg("batch answering failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	answers := make([]string, len(results))
	for i, res := range results {
		answers[i] = res.FirstAnswer()
		if answers[i] == "" {
			answers[i] = NoAnswerMessage
		}
	}
	writeJSON(w, http.StatusOK, hackRxResponse{Answers: answers})
}
