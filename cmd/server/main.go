package main

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"choreo-backend/internal/cache"
	"choreo-backend/internal/config"
	"choreo-backend/internal/database"
	"choreo-backend/internal/server"
)

func main() {
	// config
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration", "err", err)
	}
	if level, err := log.ParseLevel(cfg.Log.Level); err == nil {
		log.SetLevel(level)
	}

	// store
	store, err := database.Open(&cfg.Store)
	if err != nil {
		log.Fatal("Store connection failed", "driver", cfg.Store.Driver, "err", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = store.Ping(ctx)
	cancel()
	if err != nil {
		log.Fatal("Store ping failed", "err", err)
	}
	log.Info("Store connected", "driver", store.Driver)

	// optional Redis for the rate limiter
	var redis *cache.RedisStorage
	if cfg.Redis.Addr != "" {
		redis, err = cache.NewRedisStorage(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn("Redis unavailable, rate limits stay in memory", "addr", cfg.Redis.Addr, "err", err)
			redis = nil
		} else {
			defer redis.Close()
			log.Info("Redis connected", "addr", cfg.Redis.Addr)
		}
	}

	// server
	srv := server.New(cfg, store, redis)
	srv.SetupMiddleware()
	srv.SetupRoutes()

	// start
	if err := srv.Start(); err != nil {
		log.Fatal("Server failed to start", "err", err)
	}
}
