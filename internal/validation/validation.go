// Package validation decides whether a candidate file may enter the upload
// queue.
package validation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dharsanguruparan/dropzone/internal/format"
	"github.com/dharsanguruparan/dropzone/internal/model"
)

// Validate checks f against the accepted media types and the size limit. An
// empty accepted list accepts every type. The type check runs first, so a file
// failing both reports a type error. A nil result means the file is accepted.
func Validate(f model.File, accepted []string, maxSize int64) *model.FileError {
	if len(accepted) > 0 && !slices.Contains(accepted, f.Type()) {
		return &model.FileError{
			Kind: model.ErrorType,
			Message: fmt.Sprintf("File type %s is not supported. Supported types: %s",
				f.Type(), strings.Join(accepted, ", ")),
			FileName: f.Name(),
		}
	}

	if f.Size() > maxSize {
		return &model.FileError{
			Kind: model.ErrorSize,
			Message: fmt.Sprintf("File size %s exceeds maximum allowed size of %s",
				format.FileSize(f.Size()), format.FileSize(maxSize)),
			FileName: f.Name(),
		}
	}

	return nil
}

// CountExceeded reports a batch that would push the widget past maxFiles.
// current is the number of queued plus completed items.
func CountExceeded(maxFiles, current, incoming int) *model.FileError {
	if current+incoming <= maxFiles {
		return nil
	}

	return &model.FileError{
		Kind:    model.ErrorCount,
		Message: fmt.Sprintf("Maximum %d files allowed. Currently have %d files.", maxFiles, current),
	}
}
