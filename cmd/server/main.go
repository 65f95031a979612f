package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"omdraw/internal/api"
	"omdraw/internal/auth"
	"omdraw/internal/config"
	"omdraw/internal/db"
	"omdraw/internal/discovery"
	"omdraw/internal/logger"
	"omdraw/internal/relay"
	"omdraw/internal/repository"
	"omdraw/internal/telemetry"
)

/*
LEARNING: STARTUP AND GRACEFUL SHUTDOWN

	config -> logger -> tracing -> database -> store -> relay -> routes -> listen

On SIGINT/SIGTERM the HTTP server stops accepting and drains, then the relay
closes every websocket, then tracing flushes and the database closes.
*/

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", true)
		boot.Fatal().Err(err).Msg("❌ Failed to load config")
	}

	log := logger.New(cfg.LogLevel, cfg.LogPretty)
	log.Info().Msg("🚀 Starting omdraw relay...")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("❌ Invalid configuration")
	}

	jaegerShutdown := func(ctx context.Context) error { return nil }
	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitJaeger(telemetry.ServiceName, cfg.JaegerEndpoint)
		if err != nil {
			log.Warn().Err(err).Msg("⚠️  Failed to initialize Jaeger (continuing without tracing)")
		} else {
			jaegerShutdown = shutdown
		}
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := jaegerShutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("⚠️  Failed to shutdown Jaeger")
		}
	}()

	database, err := db.NewGorm(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to connect to database")
	}
	defer database.Close()

	store := repository.NewHistoryRepository(database.DB)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)

	roomRelay := relay.New(relay.Config{
		ReadBuffer:      cfg.WSReadBuffer,
		WriteBuffer:     cfg.WSWriteBuffer,
		SendBuffer:      cfg.WSSendBuffer,
		MaxMessageBytes: cfg.WSMaxMessage,
		RateLimit:       cfg.WSRateLimit,
		RateBurst:       cfg.WSRateBurst,
		IdleTimeout:     cfg.WSIdleTimeout,
	}, relay.NewRegistry(), store, tokens, logger.Component("relay"))
	roomRelay.Start()

	handler := api.NewHandler(store, api.Options{
		HistoryLimit: cfg.HistoryLimit,
		PageWidth:    cfg.CanvasWidth,
		PageHeight:   cfg.CanvasHeight,
	}, logger.Component("api"))
	router := api.SetupRoutes(handler, roomRelay)

	addr := cfg.ServerAddr()
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("🌐 Server listening")
		log.Info().Msg("   GET  /ws?token=...                 - room relay")
		log.Info().Msg("   GET  /api/rooms/{slug}             - room lookup")
		log.Info().Msg("   GET  /api/chats/{roomId}?limit=N   - recent history")
		log.Info().Msg("   GET  /api/rooms/{slug}/export.pdf  - PDF export")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("❌ Server error")
		}
	}()

	if cfg.MDNSEnabled {
		port, err := strconv.Atoi(cfg.ServerPort)
		if err != nil {
			log.Warn().Err(err).Msg("⚠️  Invalid SERVER_PORT, not advertising over mDNS")
		} else if advertiser, err := discovery.Advertise(cfg.MDNSInstance, port, "/ws"); err != nil {
			log.Warn().Err(err).Msg("⚠️  Failed to advertise over mDNS")
		} else {
			defer advertiser.Shutdown()
			log.Info().Str("service", discovery.ServiceType).Str("instance", cfg.MDNSInstance).Msg("✓ Advertising relay over mDNS")
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown; the relay
	// closes those itself.
	if err := server.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("⚠️  Server forced to shutdown")
	}
	roomRelay.Shutdown()

	log.Info().Msg("✓ Server shutdown complete")
}
