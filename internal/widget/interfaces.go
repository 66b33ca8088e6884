package widget

import (
	"context"

	"github.com/dharsanguruparan/dropzone/internal/model"
	"github.com/dharsanguruparan/dropzone/internal/processing"
)

// Uploader transfers one queued file, reporting progress percentages. The
// simulator satisfies it; a real upload client can replace it.
type Uploader interface {
	Upload(ctx context.Context, id string, progress processing.ProgressFunc) error
}

// Previewer builds the optional preview of a candidate.
type Previewer func(f model.File) (string, bool)

// Inspector extracts the page count of a candidate. Errors are logged and
// otherwise ignored.
type Inspector func(f model.File) (int, error)
