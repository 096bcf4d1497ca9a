package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"reflexion-api/internal/adapters/httpapi"
	"reflexion-api/internal/app"
	"reflexion-api/internal/infra/config"
	httpinfra "reflexion-api/internal/infra/http"
	logger "reflexion-api/internal/infra/log"
	"reflexion-api/internal/infra/metrics"
)

func main() {
	cfg := config.Load()
	log.Logger = logger.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenStore(ctx, cfg, log.With().Str("component", "store").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("api: нет подключения к хранилищу")
	}
	defer store.Close()

	publisher, closeEvents, err := app.OpenEvents(cfg, log.With().Str("component", "events").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("api: нет подключения к шине событий")
	}
	defer closeEvents()

	services, err := app.NewServices(cfg, store, publisher, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("api: сборка сервисов")
	}

	srv := httpinfra.NewServer(log.With().Str("component", "http").Logger(), httpinfra.Timeouts{
		Read:    cfg.HTTP.ReadTimeout,
		Write:   cfg.HTTP.WriteTimeout,
		Idle:    cfg.HTTP.IdleTimeout,
		Request: cfg.HTTP.RequestTimeout,
	})
	api := httpapi.NewServer(services.Auth, services.Users, services.Emotions, services.Reflection, services.Sentences,
		httpapi.WithLogger(log.With().Str("component", "api").Logger()),
		httpapi.WithAPIKeys(cfg.Auth.APIKeys),
	)
	api.Register(srv.Router)

	metrics.StartServer(ctx, log.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)
	go func() {
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			log.Error().Err(err).Msg("api: сервер остановлен")
			stop()
		}
	}()
	<-ctx.Done()
	log.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("api: ошибка остановки")
	}
}
