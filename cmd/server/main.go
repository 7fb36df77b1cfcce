package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	docs "github.com/tazhibayda/garage-service/docs"
	"github.com/tazhibayda/garage-service/internal/config"
	httpapi "github.com/tazhibayda/garage-service/internal/http"
	"github.com/tazhibayda/garage-service/internal/log"
	"github.com/tazhibayda/garage-service/internal/metrics"
	"github.com/tazhibayda/garage-service/internal/queue"
	"github.com/tazhibayda/garage-service/internal/repo"
	"github.com/tazhibayda/garage-service/internal/security"
	"github.com/tazhibayda/garage-service/internal/service"
)

// @title Garage API
// @version 0.1.0
// @description API for managing garages, their services and social login.
// @schemes http https
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()

	logger, err := log.Init(cfg.Prod)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := repo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Fatal("mongo connect", zap.Error(err))
	}
	defer store.Close(context.Background())

	if err := store.EnsureIndexes(ctx); err != nil {
		logger.Fatal("ensure indexes", zap.Error(err))
	}

	rds := repo.NewRedis(cfg.RedisAddr)
	defer rds.Close()

	var pub queue.Publisher = queue.NewNoop()
	if cfg.RabbitURL != "" {
		p, err := queue.NewPublisher(cfg.RabbitURL)
		if err != nil {
			logger.Fatal("rabbit connect", zap.Error(err))
		}
		pub = p
	}
	defer pub.Close()

	verifier := security.NewVerifier(cfg.GoogleJWKSURL,
		time.Duration(cfg.JWKSCacheSeconds)*time.Second, cfg.GoogleClientID)

	auth := &service.Auth{
		Verifier:   verifier,
		Users:      store,
		JWTSecret:  cfg.JWTSecret,
		SessionTTL: time.Duration(cfg.SessionTTLMin) * time.Minute,
	}
	garages := &service.Garages{Store: store}

	metrics.MustRegister()
	docs.SwaggerInfo.BasePath = "/"

	h := httpapi.NewHandler(auth, garages, store, rds, cfg.RateLimitPerMin, pub)
	r := httpapi.NewRouter(h, cfg.JWTSecret)

	srvErr := make(chan error, 1)
	go func() { srvErr <- r.Run(":" + cfg.Port) }()

	logger.Info("garage-service listening", zap.String("port", cfg.Port))

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		logger.Info("signal received, shutting down", zap.String("signal", s.String()))
	case err := <-srvErr:
		logger.Error("server error", zap.Error(err))
	}
}
