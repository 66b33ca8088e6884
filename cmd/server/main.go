// Package main runs the dropzone HTTP host: the widget controller behind a chi
// router, with optional event fan-out to the worker.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/dropzone/internal/config"
	"github.com/dharsanguruparan/dropzone/internal/processing"
	"github.com/dharsanguruparan/dropzone/internal/queue"
	"github.com/dharsanguruparan/dropzone/internal/server"
	"github.com/dharsanguruparan/dropzone/internal/signing"
	"github.com/dharsanguruparan/dropzone/internal/widget"
)

func main() {
	cfg, err := config.Load(os.Getenv("DROPZONE_CONFIG"))
	if err != nil {
		slog.Error("failed to load config", slog.String("err", err.Error()))
		os.Exit(1)
	}

	level, _ := cfg.Log.SlogLevel()
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var hooks widget.Hooks
	if cfg.Events.Enabled {
		client := asynq.NewClient(cfg.RedisOpt())
		defer client.Close()

		publisher := queue.NewPublisher(log, client)
		hooks = widget.Hooks{
			OnFileUpload: publisher.FileUploaded,
			OnFileRemove: publisher.FileRemoved,
			OnFileError:  publisher.FileError,
		}
		log.InfoContext(ctx, "event fan-out enabled", slog.String("redis_addr", cfg.Redis.Addr))
	}

	simulator := processing.New(cfg.SimulatorOptions()...)
	controller := widget.New(log, cfg.WidgetOptions(), simulator, hooks)
	defer controller.Close()

	signer := signing.NewSigner(cfg.SigningSecret(), cfg.Signing.TTL)
	srv := server.New(log, cfg.Server, controller, signer)

	if err := srv.Serve(ctx); err != nil {
		log.Error("server stopped", slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("server stopped gracefully")
}
