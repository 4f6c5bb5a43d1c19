// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command claimd serves the insurance claim analysis API and carries the
// ingestion and reporting tools around it.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Shansgupta/Bajaj-hackathon/internal/api"
	"github.com/Shansgupta/Bajaj-hackathon/internal/config"
	"github.com/Shansgupta/Bajaj-hackathon/internal/daemon"
	"github.com/Shansgupta/Bajaj-hackathon/internal/health"
	xglog "github.com/Shansgupta/Bajaj-hackathon/internal/log"
)

var (
	version   = "v1.1.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches to a subcommand; no subcommand (or only flags) serves.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		switch args[0] {
		case "serve":
			return runServe(args[1:], stdout, stderr)
		case "config":
			return runConfigCLI(args[1:], stdout, stderr)
		case "ingest":
			return runIngest(args[1:], stdout, stderr)
		case "faq-upload":
			return runFAQUpload(args[1:], stdout, stderr)
		case "stats":
			return runStats(args[1:], stdout, stderr)
		case "query":
			return runQuery(args[1:], stdout, stderr)
		case "convert-dataset":
			return runConvertDataset(args[1:], stdout, stderr)
		case "policy-check":
			return runPolicyCheck(args[1:], os.Stdin, stdout, stderr)
		case "help":
			printUsage(stdout)
			return 0
		default:
			fmt.Fprintf(stderr, "Unknown command: %s\n\n", args[0])
			printUsage(stderr)
			return 2
		}
	}
	return runServe(args, stdout, stderr)
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  claimd [serve] [--config config.yaml]")
	_, _ = fmt.Fprintln(w, "  claimd ingest [--dir DIR]")
	_, _ = fmt.Fprintln(w, "  claimd faq-upload --file FAQ.pdf")
	_, _ = fmt.Fprintln(w, "  claimd stats [--source history|index]")
	_, _ = fmt.Fprintln(w, "  claimd query --filter key=value [--top-k N]")
	_, _ = fmt.Fprintln(w, "  claimd convert-dataset --in IN.jsonl --out OUT.jsonl")
	_, _ = fmt.Fprintln(w, "  claimd policy-check [--file claim.json]")
	_, _ = fmt.Fprintln(w, "  claimd config print [--format yaml|json]")
	_, _ = fmt.Fprintln(w, "  claimd config validate")
	_, _ = fmt.Fprintln(w, "  claimd --version")
}

// resolveConfigPath prefers an explicit path, then ${CLAIMD_DATA}/config.yaml
// when it exists. An empty result means ENV + defaults only.
func resolveConfigPath(explicit string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return p
	}
	dataDir := strings.TrimSpace(config.ParseString(config.EnvDataDir, "data"))
	if dataDir == "" {
		return ""
	}
	autoPath := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(autoPath); err == nil {
		return autoPath
	}
	return ""
}

// loadConfig loads the configuration and reconfigures the global logger.
func loadConfig(path string) (config.AppConfig, error) {
	cfg, err := config.NewLoader(path, version).Load()
	if err != nil {
		return cfg, err
	}
	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})
	return cfg, nil
}

func runServe(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("claimd", flag.ContinueOnError)
	fs.SetOutput(stderr)
	showVersion := fs.Bool("version", false, "print version and exit")
	configPath := fs.String("config", "", "path to config file (YAML)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showVersion {
		fmt.Fprintf(stdout, "%s (commit: %s, built: %s)\n", version, commit, buildDate)
		return 0
	}

	xglog.Configure(xglog.Config{Level: "info", Service: "claimd", Version: version})
	logger := xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := resolveConfigPath(*configPath)
	cfg, err := loadConfig(path)
	if err != nil {
		logger.Error().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
		return 1
	}
	logger = xglog.WithComponent("daemon")
	if path != "" {
		logger.Info().Str("event", "config.loaded").Str("source", "file").Str("path", path).Msg("loaded configuration from file")
	} else {
		logger.Info().Str("event", "config.loaded").Str("source", "env+defaults").Msg("loaded configuration from environment and defaults")
	}

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Error().
			Err(err).
			Str("event", "startup.check_failed").
			Msg("startup checks failed, verify configuration and permissions")
		return 1
	}

	serverCfg := config.ParseServerConfigForApp(cfg)
	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", serverCfg.ListenAddr).
		Str("data_dir", cfg.DataDir).
		Str("vector_backend", cfg.Vector.Backend).
		Msg("starting claimd")

	rt, err := daemon.Build(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Str("event", "runtime.build_failed").Msg("failed to build runtime")
		return 1
	}

	cfgHolder := config.NewConfigHolder(cfg, config.NewLoader(path, version), path)
	srv := api.New(cfgHolder, rt.APIDeps())

	metricsAddr := ""
	if cfg.Metrics.Enabled {
		metricsAddr = strings.TrimSpace(cfg.Metrics.ListenAddr)
	}
	mgr, err := daemon.NewManager(serverCfg, daemon.Deps{
		Logger:         logger,
		APIHandler:     srv.Handler(),
		MetricsHandler: promhttp.Handler(),
		MetricsAddr:    metricsAddr,
	})
	if err != nil {
		_ = rt.Close(ctx)
		logger.Error().Err(err).Str("event", "manager.creation_failed").Msg("failed to create daemon manager")
		return 1
	}
	rt.RegisterHooks(mgr)

	app := daemon.NewApp(logger, mgr, cfgHolder)
	if err := app.Run(ctx); err != nil {
		logger.Error().Err(err).Str("event", "manager.failed").Msg("daemon app failed")
		return 1
	}
	logger.Info().Str("event", "shutdown").Msg("server exiting")
	return 0
}
