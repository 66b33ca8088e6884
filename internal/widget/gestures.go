package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dharsanguruparan/dropzone/internal/model"
)

var (
	// ErrDisabled is returned for gestures on a disabled widget.
	ErrDisabled = errors.New("widget is disabled")
	// ErrNoPreview is returned by View when the item has nothing to show.
	ErrNoPreview = errors.New("file has no preview")
	// ErrNoContent is returned by Download when the original file is gone.
	ErrNoContent = errors.New("file content unavailable")
)

// Drop admits files dragged onto the widget.
func (c *Controller) Drop(ctx context.Context, files []model.File) (Result, error) {
	return c.gesture(ctx, "drop", files)
}

// Pick admits files chosen through the system file picker.
func (c *Controller) Pick(ctx context.Context, files []model.File) (Result, error) {
	return c.gesture(ctx, "pick", files)
}

func (c *Controller) gesture(ctx context.Context, kind string, files []model.File) (Result, error) {
	if c.opts.Disabled {
		c.log.DebugContext(ctx, "ignoring gesture on disabled widget", slog.String("gesture", kind))
		return Result{}, ErrDisabled
	}

	if len(files) == 0 {
		return Result{}, nil
	}

	if !c.opts.AllowMultiple && len(files) > 1 {
		c.log.DebugContext(ctx, "multiple files not allowed, keeping the first",
			slog.String("gesture", kind),
			slog.Int("dropped", len(files)-1),
		)
		files = files[:1]
	}

	return c.Submit(ctx, files), nil
}

// View returns the preview of a completed item.
func (c *Controller) View(id string) (string, error) {
	item, err := c.completed.Get(id)
	if err != nil {
		return "", fmt.Errorf("view file %q: %w", id, err)
	}

	if !c.opts.ShowPreviews || item.Preview == "" {
		return "", ErrNoPreview
	}

	return item.Preview, nil
}

// Download returns the original file behind a completed item.
func (c *Controller) Download(id string) (model.File, error) {
	item, err := c.completed.Get(id)
	if err != nil {
		return nil, fmt.Errorf("download file %q: %w", id, err)
	}

	if item.File == nil {
		return nil, ErrNoContent
	}

	return item.File, nil
}
