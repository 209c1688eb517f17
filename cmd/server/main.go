package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crypto-analyst/internal/analysis"
	"crypto-analyst/internal/llm"
	"crypto-analyst/internal/logger"
	"crypto-analyst/internal/market"
	"crypto-analyst/internal/news"
	"crypto-analyst/internal/recommend"
	"crypto-analyst/internal/sentiment"
	"crypto-analyst/internal/server"
	"crypto-analyst/internal/store"
	"crypto-analyst/internal/trace"

	"github.com/joho/godotenv"
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	_ = godotenv.Load()

	cfg, err := store.LoadConfig("config.yaml")
	if errors.Is(err, os.ErrNotExist) {
		cfg = store.DefaultConfig()
		err = nil
	}
	must(err)

	must(logger.Init())
	must(trace.Init())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	marketGw := market.NewGateway(cfg)
	newsGw := news.NewGateway(cfg)
	chat := llm.NewClient(cfg)

	orchestrator := analysis.New(
		marketGw,
		sentiment.NewEngine(cfg, chat, newsGw),
		recommend.NewEngine(cfg, chat),
	)

	srv := server.New(cfg.Server.Addr, orchestrator, marketGw, newsGw, chat)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info(ctx, "Server started", "addr", cfg.Server.Addr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorWithErr(ctx, "Server stopped", err)
			cancel()
		}
	}()

	select {
	case <-sigc:
		logger.Info(ctx, "Shutdown signal received")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithErr(shutdownCtx, "Server shutdown failed", err)
	}
	if err := trace.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithErr(shutdownCtx, "Tracer shutdown failed", err)
	}
}
