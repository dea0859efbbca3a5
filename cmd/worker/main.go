package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"verwaltung-backend/database"
	"verwaltung-backend/logs"
	"verwaltung-backend/worker"

	"github.com/joho/godotenv"
)

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func main() {
	_ = godotenv.Load()
	logs.Init(logs.Options{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
	})

	database.Connect()

	w := worker.New(database.NewWorkerStore(database.DB), worker.Config{
		PollInterval: time.Duration(envInt("WORKER_POLL_INTERVAL_MS", 1000)) * time.Millisecond,
		BatchSize:    envInt("WORKER_BATCH_SIZE", 10),
		MaxAttempts:  envInt("WORKER_MAX_ATTEMPTS", 5),
		HTTPTimeout:  time.Duration(envInt("WORKER_HTTP_TIMEOUT_MS", 10000)) * time.Millisecond,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logs.Logger.Info("outbox worker starting")
	w.Run(ctx)
	logs.Logger.Info("outbox worker stopped")
}
