package widget

import "github.com/dharsanguruparan/dropzone/internal/model"

// Options configures a Controller.
type Options struct {
	// AcceptedTypes lists the accepted media types. Empty accepts everything.
	AcceptedTypes []string
	// MaxFileSize is the per-file byte limit.
	MaxFileSize int64
	// MaxFiles caps queued plus completed items.
	MaxFiles int
	// AllowMultiple lets a single gesture carry more than one file.
	AllowMultiple bool
	// ShowPreviews enables data URI previews for images.
	ShowPreviews bool
	// Disabled ignores gestures without clearing existing state.
	Disabled bool
}

// DefaultAcceptedTypes are images, PDF and Word documents.
var DefaultAcceptedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

const (
	DefaultMaxFileSize = 10 << 20 // 10 MiB
	DefaultMaxFiles    = 10
)

// DefaultOptions returns the stock widget configuration.
func DefaultOptions() Options {
	return Options{
		AcceptedTypes: append([]string(nil), DefaultAcceptedTypes...),
		MaxFileSize:   DefaultMaxFileSize,
		MaxFiles:      DefaultMaxFiles,
		AllowMultiple: true,
		ShowPreviews:  true,
	}
}

// Hooks are the callbacks fired towards the host application. Nil hooks are
// skipped. Hooks run outside the controller's locks and may read snapshots.
type Hooks struct {
	OnFileUpload func(item model.QueueItem)
	OnFileRemove func(id string)
	OnFileError  func(err model.FileError)
}

func (h Hooks) fileUploaded(item model.QueueItem) {
	if h.OnFileUpload != nil {
		h.OnFileUpload(item)
	}
}

func (h Hooks) fileRemoved(id string) {
	if h.OnFileRemove != nil {
		h.OnFileRemove(id)
	}
}

func (h Hooks) fileError(err model.FileError) {
	if h.OnFileError != nil {
		h.OnFileError(err)
	}
}
