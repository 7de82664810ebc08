package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/voicerelay/internal/adapters/http"
	"github.com/dkeye/voicerelay/internal/app"
	"github.com/dkeye/voicerelay/internal/app/orch"
	"github.com/dkeye/voicerelay/internal/config"
	"github.com/dkeye/voicerelay/internal/logging"
	"github.com/dkeye/voicerelay/internal/metrics"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	closer := logging.Setup(cfg)
	defer closer.Close()
	if f := cfg.File(); f != "" {
		log.Info().Str("file", f).Msg("loaded config")
	} else {
		log.Warn().Msg("config file not found, using defaults")
	}
	cfg.OnLogLevelChange(func(level string) {
		log.Info().Str("level", logging.SetLevel(level).String()).Msg("log level changed")
	})

	policy, err := app.PolicyByName(cfg.Backpressure)
	if err != nil {
		log.Fatal().Err(err).Msg("bad backpressure policy")
	}

	m := metrics.NewPrometheus()
	reg := app.NewRegistry()
	ledger := app.NewLedger(cfg.InitialBalance)
	presence := app.NewBroadcaster(reg, policy, m)
	o := orch.New(reg, ledger, presence, m)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router.SetupRouter(ctx, cfg, o, m.Handler()),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("relay server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
		closer.Close()
		os.Exit(1)
	}
	log.Info().Msg("Server exited gracefully")
}
