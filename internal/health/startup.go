// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Shansgupta/Bajaj-hackathon/internal/config"
	"github.com/Shansgupta/Bajaj-hackathon/internal/log"
)

// PerformStartupChecks validates the environment before the server starts.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Str("event", "startup.checks").Msg("running pre-flight startup checks")

	if err := checkWritableDir(logger, cfg.DataDir, true); err != nil {
		return fmt.Errorf("data directory check failed: %w", err)
	}
	if err := checkWritableDir(logger, filepath.Dir(cfg.History.Path), false); err != nil {
		return fmt.Errorf("history directory check failed: %w", err)
	}
	if cfg.Vector.Backend == "badger" {
		if err := checkWritableDir(logger, cfg.Vector.Dir, false); err != nil {
			return fmt.Errorf("vector directory check failed: %w", err)
		}
	}
	if cfg.Voice.SpeechEnabled {
		if err := checkWritableDir(logger, cfg.API.StaticDir, false); err != nil {
			return fmt.Errorf("static directory check failed: %w", err)
		}
	}
	if cfg.Policy.RulesFile != "" {
		if err := checkFileReadable(cfg.Policy.RulesFile); err != nil {
			return fmt.Errorf("policy rules file: %w", err)
		}
	}
	warnMissingCredentials(logger, cfg)

	logger.Info().Str("event", "startup.checks_passed").Msg("all startup checks passed")
	return nil
}

// checkWritableDir verifies path is a writable directory. Unless mustExist
// is set a missing directory is created.
func checkWritableDir(logger zerolog.Logger, path string, mustExist bool) error {
	info, err := os.Stat(path)
	switch {
	case err == nil:
		if !info.IsDir() {
			return fmt.Errorf("path is not a directory: %s", path)
		}
	case os.IsNotExist(err) && !mustExist:
		if err := os.MkdirAll(path, 0o750); err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
	case os.IsNotExist(err):
		return fmt.Errorf("directory does not exist: %s", path)
	default:
		return err
	}

	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(testFile)

	logger.Debug().Str("path", path).Msg("directory is writable")
	return nil
}

func warnMissingCredentials(logger zerolog.Logger, cfg config.AppConfig) {
	missing := []string{}
	if cfg.OpenAI.APIKey == "" {
		missing = append(missing, config.EnvOpenAIKey)
	}
	if cfg.Vector.Backend == "upstash" && (cfg.Upstash.URL == "" || cfg.Upstash.Token == "") {
		missing = append(missing, config.EnvUpstashURL, config.EnvUpstashToken)
	}
	if cfg.Claims.RecordPinecone && cfg.Pinecone.APIKey == "" {
		missing = append(missing, config.EnvPineconeKey)
	}
	if cfg.Claims.WebFallback && cfg.SerpAPI.APIKey == "" {
		missing = append(missing, config.EnvSerpAPIKey)
	}
	if len(missing) > 0 {
		logger.Warn().
			Str("event", "startup.credentials_missing").
			Str("missing", strings.Join(missing, ",")).
			Msg("credentials missing; affected components report not ready")
	}
}

func checkFileReadable(path string) error {
	f, err := os.Open(path) // #nosec G304 -- path comes from operator config; verifying readability is expected
	if err != nil {
		return err
	}
	return f.Close()
}
