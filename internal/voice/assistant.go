// SPDX-License-Identifier: MIT

package voice

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/Shansgupta/Bajaj-hackathon/internal/claims"
	"github.com/Shansgupta/Bajaj-hackathon/internal/faq"
	"github.com/Shansgupta/Bajaj-hackathon/internal/fsutil"
	"github.com/Shansgupta/Bajaj-hackathon/internal/llm"
	xglog "github.com/Shansgupta/Bajaj-hackathon/internal/log"
)

// Fallback replies.
const (
	ClaimValidMessage = "Your insurance claim is valid."
	NoAnswerMessage   = "No answer found."
)

// ClaimRunner runs the claim pipeline.
type ClaimRunner interface {
	Run(ctx context.Context, query string, opts claims.Options) claims.Response
}

// Answerer answers policy questions.
type Answerer interface {
	Answer(ctx context.Context, question string) faq.Result
}

// SpeechConfig enables spoken replies. Audio files are written to Dir and
// served under URLPrefix.
type SpeechConfig struct {
	Speaker   llm.Speaker
	Model     string
	Voice     string
	Dir       string
	URLPrefix string
}

// Reply is the assistant's answer to one utterance.
type Reply struct {
	Response string `json:"response"`
	AudioURL string `json:"audio_url,omitempty"`
}

// Assistant answers voice queries: claims first, the FAQ when the claim
// pipeline rejects.
type Assistant struct {
	claims ClaimRunner
	faq    Answerer
	speech *SpeechConfig
}

// NewAssistant builds an assistant. speech may be nil.
func NewAssistant(c ClaimRunner, f Answerer, speech *SpeechConfig) *Assistant {
	if speech != nil && speech.URLPrefix == "" {
		speech.URLPrefix = "/static"
	}
	return &Assistant{claims: c, faq: f, speech: speech}
}

// Reply normalizes text and answers it. Speech synthesis failures only drop
// the audio.
func (a *Assistant) Reply(ctx context.Context, text string) Reply {
	logger := xglog.WithComponentFromContext(ctx, "voice")
	cleaned := Normalize(text)
	logger.Info().
		Str(xglog.FieldEvent, "voice.query").
		Str(xglog.FieldQuery, cleaned).
		Msg("cleaned voice query")

	var out Reply
	res := a.claims.Run(ctx, cleaned, claims.Options{})
	if res.Decision != claims.DecisionRejected {
		out.Response = res.Explanation
		if out.Response == "" {
			out.Response = ClaimValidMessage
		}
	} else {
		out.Response = a.faq.Answer(ctx, cleaned).FirstAnswer()
		if out.Response == "" {
			out.Response = NoAnswerMessage
		}
	}

	if a.speech != nil && a.speech.Speaker != nil {
		url, err := a.speak(ctx, out.Response)
		if err != nil {
			logger.Warn().Err(err).Str(xglog.FieldEvent, "voice.speech_failed").Msg("speech synthesis failed")
		} else {
			out.AudioURL = url
		}
	}
	return out
}

func (a *Assistant) speak(ctx context.Context, text string) (string, error) {
	audio, err := a.speech.Speaker.Speech(ctx, llm.SpeechRequest{
		Model:  a.speech.Model,
		Voice:  a.speech.Voice,
		Input:  text,
		Format: "mp3",
	})
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(a.speech.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create audio dir: %w", err)
	}

	name := "response_" + uuid.NewString() + ".mp3"
	err = fsutil.WriteAtomic(ctx, filepath.Join(a.speech.Dir, name), func(w io.Writer) error {
		_, err := w.Write(audio)
		return err
	})
	if err != nil {
		return "", err
	}
	return path.Join(a.speech.URLPrefix, name), nil
}
