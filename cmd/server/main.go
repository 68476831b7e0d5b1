package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ab-1402/Bank-Buddy/configs"
	"github.com/ab-1402/Bank-Buddy/internal/chatbot"
	"github.com/ab-1402/Bank-Buddy/internal/handlers"
	"github.com/ab-1402/Bank-Buddy/internal/logger"
	"github.com/ab-1402/Bank-Buddy/internal/routes"
	"github.com/ab-1402/Bank-Buddy/internal/seed"
	"github.com/ab-1402/Bank-Buddy/internal/store"
	"github.com/ab-1402/Bank-Buddy/internal/transfer"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	logger.Init()
	defer logger.Log.Sync()

	configs.LoadConfig()

	st, closeStore := newStore()
	defer closeStore()

	ctx := context.Background()
	seed.Run(ctx, st)

	transfers := transfer.NewService(st)
	bot := chatbot.New(transfers)

	var rdb *redis.Client
	if addr := configs.AppConfig.Redis.Addr; addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Log.Fatal("redis connection failed", zap.Error(err))
		}
		logger.Log.Info("transfer idempotency cache enabled", zap.String("addr", addr))
	}

	router := routes.NewRoutes(handlers.New(st, transfers, bot), rdb)

	srv := &http.Server{
		Addr:         configs.AppConfig.Server.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("graceful shutdown failed", zap.Error(err))
	}

	logger.Log.Info("server stopped")
}

func newStore() (store.Store, func()) {
	switch backend := configs.AppConfig.Store.Backend; backend {
	case "postgres":
		pg, err := store.NewPostgres(configs.AppConfig.DB.DSN)
		if err != nil {
			logger.Log.Fatal("failed to connect to database", zap.Error(err))
		}
		if err := pg.Migrate(); err != nil {
			logger.Log.Fatal("migrations failed", zap.Error(err))
		}
		logger.Log.Info("connected to the database")
		return pg, func() {
			if err := pg.Close(); err != nil {
				logger.Log.Error("db close failed", zap.Error(err))
			} else {
				logger.Log.Info("db closed")
			}
		}
	case "memory", "":
		logger.Log.Info("using in-memory store")
		return store.NewMemory(), func() {}
	default:
		logger.Log.Fatal("unknown store backend", zap.String("backend", backend))
		return nil, nil
	}
}
