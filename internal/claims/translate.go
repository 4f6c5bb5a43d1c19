// SPDX-License-Identifier: MIT

package claims

import (
	"context"
	"fmt"
	"strings"

	"github.com/abadojack/whatlanggo"

	"github.com/Shansgupta/Bajaj-hackathon/internal/llm"
)

// English is the language code used when nothing else is detected.
const English = "en"

// Translator detects the query language and translates through a chat model.
type Translator struct {
	Chat  llm.Chatter
	Model string
}

// Language identifies a detected query language.
type Language struct {
	Code string // ISO 639-1
	Name string
}

var english = Language{Code: English, Name: "English"}

// Detect returns the language of text, or English when detection is not
// reliable.
func Detect(text string) Language {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return english
	}
	code := info.Lang.Iso6391()
	if code == "" || code == English {
		return english
	}
	return Language{Code: code, Name: info.Lang.String()}
}

// ToEnglish translates text when it is not English and returns the
// translation with the detected language. Failures return the input as
// English.
func (t *Translator) ToEnglish(ctx context.Context, text string) (string, Language, error) {
	lang := Detect(text)
	if lang.Code == English {
		return text, lang, nil
	}
	out, err := t.translate(ctx, text, "English")
	if err != nil {
		return text, english, err
	}
	return out, lang, nil
}

// FromEnglish translates English text into lang. English or empty input is
// returned unchanged.
func (t *Translator) FromEnglish(ctx context.Context, text string, lang Language) (string, error) {
	if lang.Code == "" || lang.Code == English || strings.TrimSpace(text) == "" {
		return text, nil
	}
	return t.translate(ctx, text, lang.Name)
}

func (t *Translator) translate(ctx context.Context, text, target string) (string, error) {
	resp, err := t.Chat.Chat(ctx, llm.ChatRequest{
		Model: t.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: fmt.Sprintf("Translate the user's text into %s. Return only the translation.", target)},
			{Role: llm.RoleUser, Content: text},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", err
	}
	out := strings.TrimSpace(resp.Content)
	if out == "" {
		return text, nil
	}
	return out, nil
}
