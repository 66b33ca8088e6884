// Package worker consumes the widget events published by the queue package.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/dropzone/internal/queue"
)

// Stats are running event counters.
type Stats struct {
	Uploaded      int64
	UploadedBytes int64
	Removed       int64
	Errors        int64
}

// Processor is plugged into the asynq worker loop.
type Processor struct {
	log *slog.Logger

	uploaded      atomic.Int64
	uploadedBytes atomic.Int64
	removed       atomic.Int64
	errors        atomic.Int64
}

// NewProcessor constructs a worker processor.
func NewProcessor(log *slog.Logger) *Processor {
	return &Processor{log: log}
}

// Handler registers the event handlers.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.FileUploadedTask, p.handleUploaded)
	mux.HandleFunc(queue.FileRemovedTask, p.handleRemoved)
	mux.HandleFunc(queue.FileErrorTask, p.handleError)
	return mux
}

// Stats returns a snapshot of the counters.
func (p *Processor) Stats() Stats {
	return Stats{
		Uploaded:      p.uploaded.Load(),
		UploadedBytes: p.uploadedBytes.Load(),
		Removed:       p.removed.Load(),
		Errors:        p.errors.Load(),
	}
}

func (p *Processor) handleUploaded(ctx context.Context, task *asynq.Task) error {
	var payload queue.UploadedPayload
	if err := decode(task, &payload); err != nil {
		return err
	}

	n := p.uploaded.Add(1)
	total := p.uploadedBytes.Add(payload.Size)

	p.log.InfoContext(ctx, "file uploaded",
		slog.String("file_id", payload.FileID),
		slog.String("filename", payload.FileName),
		slog.String("type", payload.Type),
		slog.String("size", humanize.IBytes(uint64(payload.Size))),
		slog.Int("pages", payload.Pages),
		slog.Int64("uploaded_total", n),
		slog.String("bytes_total", humanize.IBytes(uint64(total))),
	)
	return nil
}

func (p *Processor) handleRemoved(ctx context.Context, task *asynq.Task) error {
	var payload queue.RemovedPayload
	if err := decode(task, &payload); err != nil {
		return err
	}

	n := p.removed.Add(1)
	p.log.InfoContext(ctx, "file removed",
		slog.String("file_id", payload.FileID),
		slog.Int64("removed_total", n),
	)
	return nil
}

func (p *Processor) handleError(ctx context.Context, task *asynq.Task) error {
	var payload queue.ErrorPayload
	if err := decode(task, &payload); err != nil {
		return err
	}

	n := p.errors.Add(1)
	p.log.WarnContext(ctx, "file error",
		slog.String("kind", string(payload.Kind)),
		slog.String("filename", payload.FileName),
		slog.String("message", payload.Message),
		slog.Int64("errors_total", n),
	)
	return nil
}

// decode rejects malformed payloads without retrying them.
func decode(task *asynq.Task, v any) error {
	if err := json.Unmarshal(task.Payload(), v); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", task.Type(), err, asynq.SkipRetry)
	}
	return nil
}
