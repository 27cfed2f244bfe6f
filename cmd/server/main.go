package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"rentals/server/config"
	"rentals/server/internal/api"
	"rentals/server/internal/booking"
	"rentals/server/internal/chat"
	"rentals/server/internal/database"
	"rentals/server/internal/favorite"
	"rentals/server/internal/geocoding"
	"rentals/server/internal/listing"
	"rentals/server/internal/queue"
	"rentals/server/internal/review"
	"rentals/server/internal/scheduler"
	"rentals/server/internal/telegram"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.Server.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.WithField("level", cfg.Server.LogLevel).Warn("Unknown log level, using info")
	}
	if logger.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.WithField("driver", cfg.Database.Driver).Info("Opening database")
	db, err := database.NewDatabase(cfg.Database.Driver, cfg.Database.DSN, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	if err := db.Migrate(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	cacheDir := cfg.Geocoding.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "rentals", "geocode_cache")
	}
	geocoder := geocoding.NewGeocoder(logger, geocoding.Options{
		BaseURL:     cfg.Geocoding.BaseURL,
		UserAgent:   cfg.Geocoding.UserAgent,
		Timeout:     cfg.Geocoding.Timeout,
		MinInterval: cfg.Geocoding.MinInterval,
		CacheSize:   cfg.Geocoding.CacheSize,
		CacheTTL:    cfg.Geocoding.CacheTTL,
		CacheDir:    cacheDir,
	})
	if err := geocoder.EnsureInitialized(); err != nil {
		logger.WithError(err).Warn("Geocoder cache unavailable, starting empty")
	}

	var typing chat.TypingStore
	if cfg.Typing.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Typing.RedisAddr, DB: cfg.Typing.RedisDB})
		defer client.Close()
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.WithError(err).Fatal("Failed to connect to redis")
		}
		typing = chat.NewRedisTypingStore(client, cfg.Typing.TTL)
		logger.WithField("addr", cfg.Typing.RedisAddr).Info("Typing indicator backed by redis")
	} else {
		typing = chat.NewMemoryTypingStore(cfg.Typing.Capacity, cfg.Typing.TTL)
	}

	events := queue.NewEventQueue(cfg.Events.BufferSize, logger)
	chats := chat.NewService(db, typing, logger)
	events.Subscribe(chat.NewBookingNotifier(db, chats, logger).Handle)

	alerts := telegram.NewService(db, telegram.Options{
		BotToken: cfg.Telegram.BotToken,
		ChatID:   cfg.Telegram.ChatID,
		APIURL:   cfg.Telegram.APIURL,
		Timeout:  cfg.Telegram.Timeout,
	}, logger)
	if alerts.Enabled() {
		events.Subscribe(alerts.Handle)
		logger.Info("Moderation alerts enabled")
	}
	events.Start()

	bookings := booking.NewService(db, events, booking.Options{
		MaxRetries: cfg.Booking.MaxRetries,
		RetryDelay: cfg.Booking.RetryDelay,
		PendingTTL: cfg.Booking.PendingTTL,
	}, logger)

	jobs, err := scheduler.NewScheduler(bookings, scheduler.Specs{
		ExpirePending: cfg.Scheduler.ExpireSpec,
		CompleteStays: cfg.Scheduler.CompleteSpec,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create scheduler")
	}
	jobs.Start()

	handler := api.NewHandler(db, api.Services{
		Listings:  listing.NewService(db, geocoder, events, logger),
		Bookings:  bookings,
		Chats:     chats,
		Reviews:   review.NewService(db, events, logger),
		Favorites: favorite.NewService(db, logger),
		Jobs:      jobs,
	}, logger)
	router, err := api.NewRouter(handler, cfg.Server.AllowedOrigins, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build router")
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Infof("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	jobs.Stop()
	if err := events.Close(); err != nil {
		logger.WithError(err).Error("Failed to drain event queue")
	}
	if err := geocoder.Save(); err != nil {
		logger.WithError(err).Error("Failed to save geocode cache")
	}
	logger.Info("Server stopped")
}
