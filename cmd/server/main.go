package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/parlorchat/parlor/internal/adapters/http"
	"github.com/parlorchat/parlor/internal/adapters/tcp"
	"github.com/parlorchat/parlor/internal/config"
	"github.com/parlorchat/parlor/internal/core"
	"github.com/parlorchat/parlor/internal/history"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	store, err := history.NewFileStore(cfg.HistoryDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open history store")
	}
	registry := core.NewRegistry(store)

	chat := tcp.NewServer(registry, fmt.Sprintf(":%d", cfg.Port), cfg.SendBuffer)
	if err := chat.Listen(); err != nil {
		log.Fatal().Err(err).Msg("failed to bind chat port")
	}
	go func() {
		if err := chat.Serve(ctx); err != nil {
			log.Error().Err(err).Msg("chat server error")
		}
	}()

	r := router.SetupRouter(cfg, registry)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: r,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	chat.Shutdown()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
