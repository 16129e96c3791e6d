// Command tablewatch watches tournament tables of an online belote client
// as a spectator and reports every round that starts.
//
// Usage:
//
//	tablewatch -config tablewatch.yaml       # run from YAML config
//	tablewatch -headful -status :8090        # defaults, visible browser, status endpoint
//
// Credentials come from TABLEWATCH_EMAIL and TABLEWATCH_CODE, optionally
// loaded from a .env file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/tablewatch/tablewatch"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to tablewatch.yaml config file")
	siteURL := flag.String("url", "", "override the game client URL")
	headful := flag.Bool("headful", false, "run a visible browser")
	statusAddr := flag.String("status", "", "listen address of the status endpoint, e.g. :8090")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("tablewatch: fatal", "error", err)
		os.Exit(1)
	}
	if *siteURL != "" {
		cfg.Site.URL = *siteURL
	}
	if *headful {
		cfg.Browser.Mode = "headful"
	}
	if *statusAddr != "" {
		cfg.Status.Addr = *statusAddr
	}

	if err := run(ctx, logger, cfg); err != nil {
		if errors.Is(err, tablewatch.ErrNoTable) {
			logger.Error("tablewatch: no tournament table found", "error", err)
		} else {
			logger.Error("tablewatch: fatal", "error", err)
		}
		os.Exit(1)
	}
}

func loadConfig(path string) (*tablewatch.Config, error) {
	if path == "" {
		return tablewatch.DefaultConfig(), nil
	}
	cfg, err := tablewatch.LoadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, logger *slog.Logger, cfg *tablewatch.Config) error {
	sinks, err := tablewatch.SinksFromConfig(cfg.Sinks, logger)
	if err != nil {
		return err
	}
	if len(sinks) == 0 {
		sinks = append(sinks, tablewatch.NewStdoutSink(nil))
	}

	r := tablewatch.New(cfg, logger, sinks...)
	defer r.Close()

	if cfg.Status.Addr != "" {
		srv := &http.Server{
			Addr:              cfg.Status.Addr,
			Handler:           r.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("tablewatch: status endpoint", "addr", cfg.Status.Addr, "mcp", cfg.Status.MCP)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("tablewatch: status endpoint", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("tablewatch: starting", "session", r.SessionID(), "url", cfg.Site.URL, "mode", cfg.Browser.Mode)
	return r.Run(ctx)
}
