// Package queue fans widget callbacks out to background workers as asynq tasks.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/dropzone/internal/model"
)

const (
	// FileUploadedTask is scheduled each time an item reaches the completed list.
	FileUploadedTask = "dropzone:file_uploaded"
	// FileRemovedTask is scheduled when an item leaves the queue or completed list.
	FileRemovedTask = "dropzone:file_removed"
	// FileErrorTask is scheduled for every reported validation or upload error.
	FileErrorTask = "dropzone:file_error"
)

const defaultEnqueueTimeout = 5 * time.Second

// UploadedPayload describes a completed item.
type UploadedPayload struct {
	FileID     string    `json:"file_id"`
	FileName   string    `json:"file_name"`
	Size       int64     `json:"size"`
	Type       string    `json:"type"`
	Pages      int       `json:"pages,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// RemovedPayload names the removed item.
type RemovedPayload struct {
	FileID string `json:"file_id"`
}

// ErrorPayload mirrors model.FileError.
type ErrorPayload struct {
	Kind     model.ErrorKind `json:"kind"`
	Message  string          `json:"message"`
	FileName string          `json:"file_name,omitempty"`
}

// Enqueuer is the subset of *asynq.Client the publisher needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Publisher turns widget callbacks into tasks. Its methods match the widget
// hook signatures; failures are logged and never reach the caller.
type Publisher struct {
	log     *slog.Logger
	client  Enqueuer
	timeout time.Duration
}

// NewPublisher builds a Publisher.
func NewPublisher(log *slog.Logger, client Enqueuer) *Publisher {
	return &Publisher{log: log, client: client, timeout: defaultEnqueueTimeout}
}

// FileUploaded enqueues FileUploadedTask.
func (p *Publisher) FileUploaded(item model.QueueItem) {
	p.publish(FileUploadedTask, UploadedPayload{
		FileID:     item.ID,
		FileName:   item.Name,
		Size:       item.Size,
		Type:       item.Type,
		Pages:      item.Pages,
		UploadedAt: item.LastModified,
	}, asynq.MaxRetry(5))
}

// FileRemoved enqueues FileRemovedTask.
func (p *Publisher) FileRemoved(id string) {
	p.publish(FileRemovedTask, RemovedPayload{FileID: id}, asynq.MaxRetry(3))
}

// FileError enqueues FileErrorTask.
func (p *Publisher) FileError(fe model.FileError) {
	p.publish(FileErrorTask, ErrorPayload{
		Kind:     fe.Kind,
		Message:  fe.Message,
		FileName: fe.FileName,
	}, asynq.MaxRetry(1))
}

func (p *Publisher) publish(taskType string, payload any, opts ...asynq.Option) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := Enqueue(ctx, p.client, taskType, payload, opts...); err != nil {
		p.log.Error("failed to publish event",
			slog.String("task", taskType),
			slog.String("err", err.Error()),
		)
		return
	}

	p.log.Debug("event published", slog.String("task", taskType))
}

// Enqueue marshals payload and schedules a task of the given type.
func Enqueue(ctx context.Context, client Enqueuer, taskType string, payload any, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	if _, err := client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("enqueue %s task: %w", taskType, err)
	}
	return nil
}
