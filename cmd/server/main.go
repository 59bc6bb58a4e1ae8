package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calchat/scheduling-system/internal/api"
	"github.com/calchat/scheduling-system/internal/core/service"
	"github.com/calchat/scheduling-system/internal/infrastructure/ai"
	"github.com/calchat/scheduling-system/internal/infrastructure/config"
	mongodb "github.com/calchat/scheduling-system/internal/infrastructure/db/mongo"
	redisdb "github.com/calchat/scheduling-system/internal/infrastructure/db/redis"
	"github.com/calchat/scheduling-system/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet.
		panic(err)
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx := context.Background()

	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	redisClient, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer redisClient.Close()

	store := mongodb.NewSchedulingStore(db, redisdb.NewWorkerLock(redisClient))
	if err := store.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("index creation failed")
	}
	if err := mongodb.NewAuthRepository(db).EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("account index creation failed")
	}

	oracle := ai.NewOracle(ai.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.Model,
	}, log)

	scheduler := service.NewSchedulingService(store, log)

	e := api.NewRouter(api.Dependencies{
		DB:        db,
		Redis:     redisClient,
		Store:     store,
		Parser:    oracle,
		Renderer:  oracle,
		Scheduler: scheduler,
		JWTSecret: cfg.JWTSecret,
		Logger:    log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(":" + cfg.Port); err != nil {
			log.Info().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
