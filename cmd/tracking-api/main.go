package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/villxfxni/donation-tracking/internal/api"
	"github.com/villxfxni/donation-tracking/internal/api/metrics"
	"github.com/villxfxni/donation-tracking/internal/auth"
	"github.com/villxfxni/donation-tracking/internal/core/ports"
	"github.com/villxfxni/donation-tracking/internal/core/service"
	"github.com/villxfxni/donation-tracking/internal/infrastructure/backend"
	"github.com/villxfxni/donation-tracking/internal/infrastructure/config"
	"github.com/villxfxni/donation-tracking/internal/infrastructure/db/mongo"
	"github.com/villxfxni/donation-tracking/internal/infrastructure/db/redis"
	"github.com/villxfxni/donation-tracking/internal/infrastructure/geo"
	"github.com/villxfxni/donation-tracking/internal/infrastructure/live"
	"github.com/villxfxni/donation-tracking/internal/infrastructure/routing"
	"github.com/villxfxni/donation-tracking/pkg/logger"
)

const (
	updateTopic = "/topic/donacion-actualizada"
	metricTopic = "/topic/nueva-metrica"
)

// countLiveTrigger observes one topic's signals for the refresh counters.
// Reconnects reach every subscription at once, so only one observer counts
// them.
func countLiveTrigger(countReconnects bool) func(ports.Signal) {
	return func(sig ports.Signal) {
		if sig.Reconnected {
			if countReconnects {
				metrics.LiveReconnectsTotal.Inc()
				metrics.RefreshesTotal.WithLabelValues("reconnect").Inc()
			}
			return
		}
		metrics.RefreshesTotal.WithLabelValues("signal").Inc()
	}
}

func main() {
	cfg := config.Load(slog.Default())

	log := logger.Init(logger.Options{
		Service: "tracking-api",
		Level:   cfg.LogLevel,
		Pretty:  cfg.Env == "development",
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// --- Storage ---
	mongoClient, mongoDB, err := mongo.Connect(ctx, mongo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	redisClient, err := redis.Connect(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() { _ = redisClient.Close() }()

	// --- Backend access ---
	session := auth.StaticToken(cfg.Backend.ServiceToken)
	gateway := backend.New(cfg.Backend.BaseURL, session, log)

	// --- Domain services ---
	resolver := geo.NewNominatimResolver(cfg.Geo.NominatimURL, "donation-tracking/1.0")
	provider := geo.NewTieredProvider(nil, geo.NewIPLocator(cfg.Geo.IPAPIURL), log)
	routes := routing.NewEngine(cfg.Geo.DirectionsURL, cfg.Geo.DirectionsKey, log)

	audit := mongo.NewAuditRepository(mongoDB)
	store := redis.NewSnapshotStore(redisClient)

	donations := service.NewDonationService(gateway, resolver, audit, log)
	tracking := service.NewTrackingService(gateway, store, log)
	tracking.Prime(ctx)

	// --- Live invalidation channel ---
	channel := live.NewChannel(cfg.Backend.WebSocketURL, log)
	defer func() { _ = channel.Close() }()

	unsubscribe, err := tracking.Subscribe(channel, updateTopic)
	if err != nil {
		log.Fatal().Err(err).Msg("live subscription failed")
	}
	defer unsubscribe()

	// Aggregate counters only move when donation statuses move, so a metric
	// signal invalidates the tracking model too.
	unsubscribeMetrics, err := tracking.Subscribe(channel, metricTopic)
	if err != nil {
		log.Fatal().Err(err).Msg("metric topic subscription failed")
	}
	defer unsubscribeMetrics()

	// The donation model follows the same invalidation signals, so donations
	// created after startup become visible without a restart.
	unsubscribeDonations, err := donations.Subscribe(channel, updateTopic)
	if err != nil {
		log.Fatal().Err(err).Msg("donation reload subscription failed")
	}
	defer unsubscribeDonations()

	// Count refresh triggers on both topics; the services hold the refresh
	// subscriptions on the same shared connection. Every subscription sees
	// the same redial, so reconnects are counted on the update topic only.
	if _, err := channel.Subscribe(updateTopic, countLiveTrigger(true)); err != nil {
		log.Fatal().Err(err).Msg("trigger observer subscription failed")
	}
	if _, err := channel.Subscribe(metricTopic, countLiveTrigger(false)); err != nil {
		log.Fatal().Err(err).Msg("trigger observer subscription failed")
	}

	// --- HTTP server ---
	e := api.NewRouter(api.Deps{
		JWTSecret: cfg.JWTSecret,
		Donations: donations,
		Tracking:  tracking,
		Provider:  provider,
		Resolver:  resolver,
		Routes:    routes,
		Mongo:     mongoDB,
		Redis:     redisClient,
		Logger:    log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting tracking api")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
