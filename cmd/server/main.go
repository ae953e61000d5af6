package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	router "github.com/dkeye/Interview/internal/adapters/http"
	"github.com/dkeye/Interview/internal/adapters/postgres"
	sig "github.com/dkeye/Interview/internal/adapters/signal"
	"github.com/dkeye/Interview/internal/app/hub"
	"github.com/dkeye/Interview/internal/app/presence"
	"github.com/dkeye/Interview/internal/config"
	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/repository"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Logger first so config.Load can use it.
	config.SetupLogger("info")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	config.SetupLogger(cfg.LogLevel)

	var interviews repository.InterviewRepository = repository.NewMemoryRepository()
	if cfg.DatabaseURL != "" {
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		interviews = postgres.NewInterviewRepository(pool)
		log.Info().Msg("using postgres interview repository")
	} else {
		log.Warn().Msg("database_url not set, interviews are kept in memory")
	}

	tracker := presence.NewTracker(core.SystemClock, cfg.PresenceWindow)
	prune := core.SystemClock.Every(cfg.PresenceWindow, func() {
		if n := tracker.Prune(); n > 0 {
			log.Debug().Str("module", "presence").Int("pruned", n).Msg("stale presence dropped")
		}
	})
	defer prune.Stop()

	h := hub.New(tracker, interviews, core.SystemClock)
	limiter := sig.NewRateLimiter(cfg.RateLimit.Events, cfg.RateLimit.Interval)
	signalCtl := sig.NewSignalWSController(h, limiter, cfg.ReadLimit, cfg.PingPeriod)

	r := router.SetupRouter(ctx, cfg, h, signalCtl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Interview signaling server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
