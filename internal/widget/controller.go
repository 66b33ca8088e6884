// Package widget implements the upload lifecycle behind the drag-and-drop
// widget: batch admission, validation, previews, simulated uploads and the
// completed list.
package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/dharsanguruparan/dropzone/internal/inspect"
	"github.com/dharsanguruparan/dropzone/internal/model"
	"github.com/dharsanguruparan/dropzone/internal/preview"
	"github.com/dharsanguruparan/dropzone/internal/storage"
	"github.com/dharsanguruparan/dropzone/internal/validation"
)

const uploadFailedMessage = "Upload failed"

// Result describes what a batch submission admitted and rejected.
type Result struct {
	Admitted []model.QueueItem `json:"admitted"`
	Errors   []model.FileError `json:"errors"`
}

// Controller owns the active queue and the completed list. Each admitted file
// gets its own upload goroutine; all state changes are keyed by item id.
type Controller struct {
	log       *slog.Logger
	opts      Options
	uploader  Uploader
	hooks     Hooks
	previewer Previewer
	inspector Inspector
	now       func() time.Time
	newID     func() string

	queue     *storage.List
	completed *storage.List

	// admit serialises the count check with insertion and promotion so the
	// combined size is never read mid-transition. reserved counts accepted
	// files whose items are still being built.
	admit    sync.Mutex
	reserved int

	mu      sync.Mutex
	cancels map[string]context.CancelFunc

	errMu  sync.RWMutex
	errors []model.FileError

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option customises a Controller.
type Option func(*Controller)

// WithPreviewer replaces the image preview generator.
func WithPreviewer(p Previewer) Option {
	return func(c *Controller) { c.previewer = p }
}

// WithInspector replaces the document inspector. A nil inspector disables it.
func WithInspector(i Inspector) Option {
	return func(c *Controller) { c.inspector = i }
}

// WithClock sets the time source used for completion timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithIDGenerator sets how queue item ids are generated.
func WithIDGenerator(newID func() string) Option {
	return func(c *Controller) { c.newID = newID }
}

// New builds a Controller. Call Close to stop in-flight uploads.
func New(log *slog.Logger, opts Options, uploader Uploader, hooks Hooks, options ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Controller{
		log:       log,
		opts:      opts,
		uploader:  uploader,
		hooks:     hooks,
		previewer: preview.Generate,
		inspector: inspect.PageCount,
		now:       time.Now,
		newID:     uuid.NewString,
		queue:     storage.NewList(),
		completed: storage.NewList(),
		cancels:   make(map[string]context.CancelFunc),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Options returns the configuration the controller was built with.
func (c *Controller) Options() Options {
	opts := c.opts
	opts.AcceptedTypes = slices.Clone(c.opts.AcceptedTypes)
	return opts
}

// Submit admits a batch. When the batch would push queued plus completed items
// past MaxFiles nothing is admitted and a single count error is reported.
// Otherwise files failing validation are reported and skipped, and the rest
// enter the queue as pending, in input order, before their uploads start.
func (c *Controller) Submit(ctx context.Context, files []model.File) Result {
	accepted, errs := c.reserve(ctx, files)

	// Previews and page counts read whole files, so they are built while the
	// slots are reserved rather than under the admission lock.
	var res Result
	res.Errors = errs
	for _, f := range accepted {
		res.Admitted = append(res.Admitted, c.newItem(ctx, f))
	}

	if len(accepted) > 0 {
		c.admit.Lock()
		c.queue.Append(res.Admitted...)
		c.reserved -= len(accepted)
		c.admit.Unlock()
	}

	if len(res.Errors) > 0 {
		c.setErrors(res.Errors)
		for _, fe := range res.Errors {
			c.hooks.fileError(fe)
		}
	}

	for _, item := range res.Admitted {
		c.start(item)
	}

	return res
}

// reserve runs the count check and validation under the admission lock and
// holds a slot for every accepted file.
func (c *Controller) reserve(ctx context.Context, files []model.File) ([]model.File, []model.FileError) {
	c.admit.Lock()
	defer c.admit.Unlock()

	current := c.queue.Len() + c.completed.Len() + c.reserved

	if fe := validation.CountExceeded(c.opts.MaxFiles, current, len(files)); fe != nil {
		c.log.InfoContext(ctx, "batch rejected",
			slog.Int("batch_size", len(files)),
			slog.Int("current", current),
			slog.Int("max_files", c.opts.MaxFiles),
		)
		return nil, []model.FileError{*fe}
	}

	var (
		accepted []model.File
		errs     []model.FileError
	)
	for _, f := range files {
		if fe := validation.Validate(f, c.opts.AcceptedTypes, c.opts.MaxFileSize); fe != nil {
			c.log.InfoContext(ctx, "file rejected",
				slog.String("filename", f.Name()),
				slog.String("kind", string(fe.Kind)),
			)
			errs = append(errs, *fe)
			continue
		}
		accepted = append(accepted, f)
	}

	c.reserved += len(accepted)

	return accepted, errs
}

func (c *Controller) newItem(ctx context.Context, f model.File) model.QueueItem {
	item := model.NewQueueItem(c.newID(), f)

	if c.opts.ShowPreviews && c.previewer != nil {
		if p, ok := c.previewer(f); ok {
			item.Preview = p
		}
	}

	if c.inspector != nil {
		pages, err := c.inspector(f)
		if err != nil {
			c.log.DebugContext(ctx, "failed to inspect file",
				slog.String("filename", f.Name()),
				slog.String("err", err.Error()),
			)
		}
		item.Pages = pages
	}

	c.log.InfoContext(ctx, "file queued",
		slog.String("file_id", item.ID),
		slog.String("filename", item.Name),
		slog.String("type", item.Type),
		slog.String("size", humanize.IBytes(uint64(item.Size))),
		slog.Bool("preview", item.Preview != ""),
	)

	return item
}

func (c *Controller) start(item model.QueueItem) {
	ctx, cancel := context.WithCancel(c.ctx)

	c.mu.Lock()
	c.cancels[item.ID] = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.stop(item.ID)

		c.drive(ctx, item.ID)
	}()
}

func (c *Controller) stop(id string) {
	c.mu.Lock()
	cancel, ok := c.cancels[id]
	delete(c.cancels, id)
	c.mu.Unlock()

	if ok {
		cancel()
	}
}

func (c *Controller) drive(ctx context.Context, id string) {
	log := c.log.With(slog.String("file_id", id))

	started := c.queue.Update(id, func(it *model.QueueItem) {
		it.Status = model.StatusUploading
	})
	if !started {
		log.DebugContext(ctx, "file removed before upload started")
		return
	}

	err := c.upload(ctx, id)

	// Shutting down: leave the state as it is.
	if c.ctx.Err() != nil {
		return
	}

	if err != nil {
		c.fail(ctx, log, id, err)
		return
	}

	c.promote(ctx, log, id)
}

func (c *Controller) upload(ctx context.Context, id string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("uploader panicked: %v", r)
		}
	}()

	return c.uploader.Upload(ctx, id, func(progress float64) {
		c.queue.Update(id, func(it *model.QueueItem) {
			if it.Status == model.StatusUploading && progress > it.Progress {
				it.Progress = min(progress, 100)
			}
		})
	})
}

func (c *Controller) fail(ctx context.Context, log *slog.Logger, id string, err error) {
	var name string
	marked := c.queue.Update(id, func(it *model.QueueItem) {
		it.Status = model.StatusError
		it.Error = uploadFailedMessage
		name = it.Name
	})
	if !marked {
		// Removed while uploading.
		return
	}

	log.ErrorContext(ctx, "upload failed", slog.String("err", err.Error()))

	fe := model.FileError{
		Kind:     model.ErrorGeneral,
		Message:  uploadFailedMessage,
		FileName: name,
	}
	c.appendError(fe)
	c.hooks.fileError(fe)
}

func (c *Controller) promote(ctx context.Context, log *slog.Logger, id string) {
	c.admit.Lock()
	item, err := c.queue.Remove(id)
	var done model.QueueItem
	if err == nil {
		done = item.Completed(c.now())
		c.completed.Append(done)
	}
	c.admit.Unlock()

	if err != nil {
		log.DebugContext(ctx, "file removed before upload completed")
		return
	}

	log.InfoContext(ctx, "upload completed", slog.String("filename", done.Name))

	c.hooks.fileUploaded(done)
}

// RemoveFromQueue drops an active item, even mid-upload. Its upload is
// cancelled and any later progress for it is ignored.
func (c *Controller) RemoveFromQueue(id string) error {
	if _, err := c.queue.Remove(id); err != nil {
		return fmt.Errorf("remove queued file %q: %w", id, err)
	}

	c.stop(id)
	c.log.Info("removed queued file", slog.String("file_id", id))
	c.hooks.fileRemoved(id)

	return nil
}

// RemoveCompleted drops an item from the completed list.
func (c *Controller) RemoveCompleted(id string) error {
	if _, err := c.completed.Remove(id); err != nil {
		return fmt.Errorf("remove completed file %q: %w", id, err)
	}

	c.log.Info("removed completed file", slog.String("file_id", id))
	c.hooks.fileRemoved(id)

	return nil
}

// Queue returns a snapshot of the active queue.
func (c *Controller) Queue() []model.QueueItem {
	return c.queue.Snapshot()
}

// Completed returns a snapshot of the completed list in completion order.
func (c *Controller) Completed() []model.QueueItem {
	return c.completed.Snapshot()
}

// Errors returns the errors currently on display.
func (c *Controller) Errors() []model.FileError {
	c.errMu.RLock()
	defer c.errMu.RUnlock()

	return slices.Clone(c.errors)
}

// ClearErrors dismisses the displayed errors.
func (c *Controller) ClearErrors() {
	c.errMu.Lock()
	defer c.errMu.Unlock()

	c.errors = nil
}

func (c *Controller) setErrors(errs []model.FileError) {
	c.errMu.Lock()
	defer c.errMu.Unlock()

	c.errors = slices.Clone(errs)
}

func (c *Controller) appendError(fe model.FileError) {
	c.errMu.Lock()
	defer c.errMu.Unlock()

	c.errors = append(slices.Clone(c.errors), fe)
}

// Wait blocks until every upload started so far has settled.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels in-flight uploads and waits for their goroutines. Items keep
// their last observed state.
func (c *Controller) Close() {
	c.cancel()
	c.wg.Wait()
}

// IsNotFound reports whether err stems from an unknown item id.
func IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
