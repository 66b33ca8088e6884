package worker_test

import (
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/dropzone/internal/queue"
	"github.com/dharsanguruparan/dropzone/internal/worker"
)

func TestProcessor_CountsEvents(t *testing.T) {
	t.Parallel()

	p := worker.NewProcessor(slog.New(slog.DiscardHandler))
	mux := p.Handler()

	tasks := []*asynq.Task{
		asynq.NewTask(queue.FileUploadedTask, []byte(`{"file_id":"a","file_name":"a.pdf","size":1024}`)),
		asynq.NewTask(queue.FileUploadedTask, []byte(`{"file_id":"b","file_name":"b.png","size":2048}`)),
		asynq.NewTask(queue.FileRemovedTask, []byte(`{"file_id":"a"}`)),
		asynq.NewTask(queue.FileErrorTask, []byte(`{"kind":"type","message":"File type not accepted"}`)),
	}
	for _, task := range tasks {
		require.NoError(t, mux.ProcessTask(t.Context(), task))
	}

	assert.Equal(t, worker.Stats{Uploaded: 2, UploadedBytes: 3072, Removed: 1, Errors: 1}, p.Stats())
}

func TestProcessor_MalformedPayloadSkipsRetry(t *testing.T) {
	t.Parallel()

	p := worker.NewProcessor(slog.New(slog.DiscardHandler))

	err := p.Handler().ProcessTask(t.Context(), asynq.NewTask(queue.FileRemovedTask, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
	assert.Zero(t, p.Stats().Removed)
}

func TestProcessor_UnknownTask(t *testing.T) {
	t.Parallel()

	p := worker.NewProcessor(slog.New(slog.DiscardHandler))

	err := p.Handler().ProcessTask(t.Context(), asynq.NewTask("dropzone:unknown", nil))
	assert.Error(t, err)
}
