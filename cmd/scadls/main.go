// # cmd/scadls/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"scadls/internal/config"
	"scadls/internal/server"
	"scadls/internal/shared/observability"
	"scadls/internal/syntax"
	"scadls/internal/workspace"
)

var (
	stdio       = flag.Bool("stdio", true, "Serve over stdin/stdout")
	ip          = flag.String("ip", "127.0.0.1", "Listen address for TCP mode")
	port        = flag.Int("port", 3245, "Listen port for TCP mode; implies TCP when --stdio=false")
	configPath  = flag.String("config", "", "Path to config file (TOML)")
	builtin     = flag.String("builtin", "", "External builtin declarations file; replaces the bundled one")
	grammar     = flag.String("grammar", "", "tree-sitter openscad shared library; uses the built-in parser when empty")
	metricsAddr = flag.String("metrics-addr", "", "Expose /metrics and /health on this address")
	verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	version     = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", server.Name, server.Version)
		os.Exit(0)
	}

	// Logs go to stderr: stdout carries the protocol in stdio mode.
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg := loadConfig(logger)
	if *builtin != "" {
		cfg.Builtin = *builtin
	}
	if *grammar != "" {
		cfg.GrammarPath = *grammar
	}
	if *metricsAddr != "" {
		cfg.Observe.MetricsAddr = *metricsAddr
	}
	store := config.NewStore(cfg)

	provider, err := newProvider(cfg)
	if err != nil {
		logger.Error("failed to load grammar", "path", cfg.GrammarPath, "error", err)
		os.Exit(1)
	}

	var cache *workspace.Cache
	if cfg.Cache.Enabled {
		cache, err = workspace.OpenCache(cachePath(cfg))
		if err != nil {
			logger.Warn("symbol cache unavailable", "error", err)
		} else {
			defer cache.Close()
		}
	}

	ws := workspace.New(provider, store, cache, logger)

	builtins, err := workspace.LoadBuiltins(provider, config.ExpandPath(cfg.Builtin))
	if err != nil {
		logger.Error("failed to load builtins", "path", cfg.Builtin, "error", err)
		os.Exit(1)
	}
	ws.SetBuiltins(builtins)

	if cfg.Observe.MetricsAddr != "" {
		obs := observability.NewServer(cfg.Observe.MetricsAddr)
		obs.Start()
		defer func() { _ = obs.Stop(context.Background()) }()
	}
	if cfg.Observe.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracing(context.Background(), cfg.Observe.OTLPEndpoint)
		if err != nil {
			logger.Warn("tracing unavailable", "endpoint", cfg.Observe.OTLPEndpoint, "error", err)
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	srv := server.New(ws, provider, store, logger)
	defer srv.Close()

	if *stdio {
		err = srv.RunStdio(*verbose)
	} else {
		err = srv.RunTCP(*ip, *port, *verbose)
	}
	if err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func loadConfig(logger *slog.Logger) *config.Config {
	if *configPath == "" {
		return config.Default()
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	return cfg
}

func newProvider(cfg *config.Config) (syntax.Provider, error) {
	if cfg.GrammarPath == "" {
		return syntax.NewProvider(), nil
	}
	return syntax.NewSitterProvider(config.ExpandPath(cfg.GrammarPath))
}

func cachePath(cfg *config.Config) string {
	if cfg.Cache.Path != "" {
		return config.ExpandPath(cfg.Cache.Path)
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "scadls", "symbols.db")
}
