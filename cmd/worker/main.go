package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/dropzone/internal/config"
	"github.com/dharsanguruparan/dropzone/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("DROPZONE_CONFIG"))
	if err != nil {
		slog.Error("failed to load config", slog.String("err", err.Error()))
		os.Exit(1)
	}

	level, _ := cfg.Log.SlogLevel()
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	server := asynq.NewServer(cfg.RedisOpt(), asynq.Config{
		Concurrency: cfg.Events.Concurrency,
	})
	processor := worker.NewProcessor(log)
	mux := processor.Handler()

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	log.InfoContext(ctx, "worker started",
		slog.String("redis_addr", cfg.Redis.Addr),
		slog.Int("concurrency", cfg.Events.Concurrency),
	)

	if err := server.Run(mux); err != nil {
		log.Error("worker stopped", slog.String("err", err.Error()))
		os.Exit(1)
	}

	stats := processor.Stats()
	log.Info("worker stopped",
		slog.Int64("uploaded", stats.Uploaded),
		slog.Int64("removed", stats.Removed),
		slog.Int64("errors", stats.Errors),
	)
}
