// Tag Position API serves uniform device position lookups over several
// tracking vendors.
//
// @title                       Tag Position API
// @version                     1.0
// @description                 Uniform position lookups over the Findtag, BRGPS and WebTag tracking vendors.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the JWT.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fasttag/tag-position-api/internal/api"
	"github.com/fasttag/tag-position-api/internal/core/ports"
	"github.com/fasttag/tag-position-api/internal/core/service"
	"github.com/fasttag/tag-position-api/internal/infrastructure/db/mongo"
	"github.com/fasttag/tag-position-api/internal/infrastructure/queue"
	"github.com/fasttag/tag-position-api/internal/infrastructure/vendors"
	"github.com/fasttag/tag-position-api/internal/pkg/config"
	"github.com/fasttag/tag-position-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "tag-position-api",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := vendors.Build(cfg, logger.Component("vendors"))
	vendors.Authenticate(ctx, registry, cfg.VendorTimeout, logger.Component("vendors"))

	deps := api.Deps{
		DefaultVendor: cfg.DefaultVendor,
		JWTSecret:     cfg.JWTSecret,
		Logger:        logger.Component("http"),
	}

	var audit ports.AuditSink
	var dispatcher *queue.Dispatcher
	if cfg.Mongo.URI != "" {
		store, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			log.Fatal().Err(err).Msg("mongo connection failed")
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = store.Close(closeCtx)
		}()

		repo := mongo.NewLookupRepository(store.Database())
		if err := repo.EnsureIndexes(ctx); err != nil {
			log.Warn().Err(err).Msg("audit indexes not created")
		}

		dispatcher = queue.NewDispatcher(cfg.AuditWorkers, repo, logger.Component("audit"))
		dispatcher.Start(context.Background())
		audit = dispatcher
		deps.Mongo = store
		log.Info().Str("database", cfg.Mongo.Database).Msg("lookup audit enabled")
	} else {
		log.Info().Msg("MONGO_URI not set, lookup audit disabled")
	}

	deps.Service = service.NewPositionService(registry, audit, logger.Component("position"))
	if cfg.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET not set, /tag routes are unauthenticated")
	}

	e := api.NewRouter(deps)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
	if dispatcher != nil {
		dispatcher.Close()
	}
	log.Info().Msg("server stopped")
}
