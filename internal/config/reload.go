// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	xglog "github.com/Shansgupta/Bajaj-hackathon/internal/log"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const reloadDebounce = 500 * time.Millisecond

// Snapshot is a configuration together with the epoch it was applied at.
type Snapshot struct {
	Epoch  uint64
	Config AppConfig
}

// ConfigHolder holds the live configuration and swaps it atomically on reload.
// A failed reload keeps the previous configuration.
type ConfigHolder struct {
	mu         sync.RWMutex
	current    AppConfig
	epoch      atomic.Uint64
	loader     *Loader
	configPath string
	watcher    *fsnotify.Watcher
	logger     zerolog.Logger

	listenersMu sync.RWMutex
	listeners   []chan<- AppConfig
}

// NewConfigHolder creates a holder seeded with the initial configuration.
func NewConfigHolder(initial AppConfig, loader *Loader, configPath string) *ConfigHolder {
	h := &ConfigHolder{
		current:    initial,
		loader:     loader,
		configPath: configPath,
		logger:     xglog.WithComponent("config"),
	}
	h.epoch.Store(1)
	return h
}

// Get returns the current configuration.
func (h *ConfigHolder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Current returns the configuration with its epoch.
func (h *ConfigHolder) Current() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Snapshot{Epoch: h.epoch.Load(), Config: h.current}
}

// Swap replaces the configuration without loading and returns the new epoch.
func (h *ConfigHolder) Swap(cfg AppConfig) uint64 {
	h.mu.Lock()
	old := h.current
	h.current = cfg
	epoch := h.epoch.Add(1)
	h.mu.Unlock()

	h.notifyListeners(cfg)
	h.logChanges(old, cfg)
	return epoch
}

// Reload loads and validates the configuration file, then swaps it in.
func (h *ConfigHolder) Reload(_ context.Context) error {
	if h.loader == nil {
		return fmt.Errorf("config reload: no loader")
	}
	h.logger.Info().Str("event", "config.reload_start").Msg("reloading configuration")

	newCfg, err := h.loader.Load()
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("event", "config.reload_failed").
			Msg("failed to load new configuration, keeping previous")
		return fmt.Errorf("load config: %w", err)
	}

	epoch := h.Swap(newCfg)
	h.logger.Info().
		Str("event", "config.reload_success").
		Uint64("epoch", epoch).
		Msg("configuration reloaded")
	return nil
}

// StartWatcher watches the config file's directory so that editors which
// replace the file by rename still trigger a reload. No-op without a file.
func (h *ConfigHolder) StartWatcher(ctx context.Context) error {
	if h.configPath == "" {
		h.logger.Info().
			Str("event", "config.watcher_disabled").
			Msg("config file watcher disabled (ENV-only configuration)")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(h.configPath)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}
	h.watcher = watcher

	h.logger.Info().
		Str("event", "config.watcher_started").
		Str("path", h.configPath).
		Msg("watching config file for changes")

	go h.watchLoop(ctx, watcher)
	return nil
}

func (h *ConfigHolder) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	target := filepath.Clean(h.configPath)
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str("event", "config.watcher_stopped").Msg("config watcher stopped")
			_ = w.Close()
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			h.logger.Debug().
				Str("event", "config.file_changed").
				Str("op", ev.Op.String()).
				Msg("config file changed")

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				if err := h.Reload(ctx); err != nil {
					h.logger.Error().
						Err(err).
						Str("event", "config.auto_reload_failed").
						Msg("automatic config reload failed")
				}
			})

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Str("event", "config.watcher_error").Msg("config watcher error")
		}
	}
}

// Stop closes the file watcher if one is running.
func (h *ConfigHolder) Stop() {
	if h.watcher != nil {
		_ = h.watcher.Close()
	}
}

// RegisterListener registers a channel that receives every applied config.
// Sends are non-blocking; the caller owns the channel.
func (h *ConfigHolder) RegisterListener(ch chan<- AppConfig) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	h.listeners = append(h.listeners, ch)
}

func (h *ConfigHolder) notifyListeners(cfg AppConfig) {
	h.listenersMu.RLock()
	defer h.listenersMu.RUnlock()
	for _, ch := range h.listeners {
		select {
		case ch <- cfg:
		default:
			h.logger.Warn().
				Str("event", "config.listener_skip").
				Msg("skipped notifying listener (channel full)")
		}
	}
}

// logChanges reports the settings operators most often tune at runtime.
func (h *ConfigHolder) logChanges(old, cur AppConfig) {
	changed := func(name string, from, to any) {
		h.logger.Info().
			Str("event", "config.changed").
			Str("setting", name).
			Interface("old", from).
			Interface("new", to).
			Msg("config changed")
	}
	if old.LogLevel != cur.LogLevel {
		changed("logLevel", old.LogLevel, cur.LogLevel)
	}
	if old.OpenAI.ChatModel != cur.OpenAI.ChatModel {
		changed("openai.chatModel", old.OpenAI.ChatModel, cur.OpenAI.ChatModel)
	}
	if old.OpenAI.FAQModel != cur.OpenAI.FAQModel {
		changed("openai.faqModel", old.OpenAI.FAQModel, cur.OpenAI.FAQModel)
	}
	if old.OpenAI.BaseURL != cur.OpenAI.BaseURL {
		changed("openai.baseUrl", MaskURL(old.OpenAI.BaseURL), MaskURL(cur.OpenAI.BaseURL))
	}
	if old.Claims.TopK != cur.Claims.TopK {
		changed("claims.topK", old.Claims.TopK, cur.Claims.TopK)
	}
	if old.Claims.WebFallback != cur.Claims.WebFallback {
		changed("claims.webFallback", old.Claims.WebFallback, cur.Claims.WebFallback)
	}
	if old.FAQ.ScoreThreshold != cur.FAQ.ScoreThreshold {
		changed("faq.scoreThreshold", old.FAQ.ScoreThreshold, cur.FAQ.ScoreThreshold)
	}
	if old.Policy.RulesFile != cur.Policy.RulesFile {
		changed("policy.rulesFile", old.Policy.RulesFile, cur.Policy.RulesFile)
	}
	if old.OpenAI.APIKey != cur.OpenAI.APIKey {
		changed("openai.apiKey", "***", "***")
	}
}
