package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

func main() {
	envFile := flag.String("env", ".env", "Path to an optional .env file")
	addr := flag.String("addr", "", "HTTP listen address (overrides ADDR)")
	dbPath := flag.String("db", "", "SQLite match log path (overrides DB_PATH, \"off\" disables)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(*logLevel)})))

	cfg, err := LoadConfig(*envFile)
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	var db *DB
	if cfg.DBPath != "" && cfg.DBPath != "off" {
		db, err = OpenDB(cfg.DBPath)
		if err != nil {
			slog.Error("open database", "path", cfg.DBPath, "err", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	matches := NewMatchLog(db)
	defer matches.Stop()

	hub := NewHub(matches, NewInvites(cfg.JWTSecret, db), strings.TrimRight(cfg.PublicURL, "/"))
	go hub.Run(ctx)

	server := &http.Server{Addr: cfg.Addr, Handler: SetupRoutes(hub, db)}

	go func() {
		slog.Info("relay listening", "addr", cfg.Addr, "match_log", db != nil)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("listen", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "err", err)
		server.Close()
	}
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
