package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mewilker/jwt-pizza-service/internal/config"
	"github.com/mewilker/jwt-pizza-service/internal/logger"
	"github.com/mewilker/jwt-pizza-service/internal/server"
	"github.com/mewilker/jwt-pizza-service/internal/storage/postgres"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found; relying on existing environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zlog.Sync()

	ctx := context.Background()
	store, err := postgres.New(ctx, cfg)
	if err != nil {
		zlog.Fatal("init database", zap.Error(err))
	}
	defer store.Close()

	srv := server.New(cfg, store, zlog)

	go func() {
		zlog.Info("jwt-pizza-service listening", zap.String("addr", cfg.HTTPAddress()))
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("http server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		zlog.Error("graceful shutdown error", zap.Error(err))
	}
}
