package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dharsanguruparan/dropzone/internal/format"
	"github.com/dharsanguruparan/dropzone/internal/model"
	"github.com/dharsanguruparan/dropzone/internal/preview"
	"github.com/dharsanguruparan/dropzone/internal/signing"
	"github.com/dharsanguruparan/dropzone/internal/widget"
)

// itemView decorates a queue item with its display labels and links.
type itemView struct {
	model.QueueItem
	SizeLabel   string `json:"sizeLabel"`
	Icon        string `json:"icon"`
	IconColor   string `json:"iconColor"`
	TypeLabel   string `json:"typeLabel"`
	UploadedAgo string `json:"uploadedAgo,omitempty"`
	ViewURL     string `json:"viewUrl,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}

type optionsView struct {
	AcceptedTypes      []string `json:"acceptedTypes"`
	AcceptedTypesLabel string   `json:"acceptedTypesLabel"`
	MaxFileSize        int64    `json:"maxFileSize"`
	MaxFileSizeLabel   string   `json:"maxFileSizeLabel"`
	MaxFiles           int      `json:"maxFiles"`
	AllowMultiple      bool     `json:"allowMultiple"`
	ShowPreviews       bool     `json:"showPreviews"`
	Disabled           bool     `json:"disabled"`
}

type widgetView struct {
	Options   optionsView       `json:"options"`
	Queue     []itemView        `json:"queue"`
	Completed []itemView        `json:"completed"`
	Errors    []model.FileError `json:"errors"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWidget(w http.ResponseWriter, r *http.Request) {
	opts := s.widget.Options()

	respondJSON(w, http.StatusOK, widgetView{
		Options: optionsView{
			AcceptedTypes:      opts.AcceptedTypes,
			AcceptedTypesLabel: format.AcceptedTypes(opts.AcceptedTypes),
			MaxFileSize:        opts.MaxFileSize,
			MaxFileSizeLabel:   format.FileSize(opts.MaxFileSize),
			MaxFiles:           opts.MaxFiles,
			AllowMultiple:      opts.AllowMultiple,
			ShowPreviews:       opts.ShowPreviews,
			Disabled:           opts.Disabled,
		},
		Queue:     s.queueViews(),
		Completed: s.completedViews(),
		Errors:    nonNil(s.widget.Errors()),
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	opts := s.widget.Options()
	if opts.Disabled {
		http.Error(w, widget.ErrDisabled.Error(), http.StatusConflict)
		return
	}

	gesture := s.widget.Pick
	switch r.URL.Query().Get("gesture") {
	case "", "pick":
	case "drop":
		gesture = s.widget.Drop
	default:
		http.Error(w, "gesture must be drop or pick", http.StatusBadRequest)
		return
	}

	if s.cfg.MaxRequestBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxRequestBytes)
	}

	files, err := readFiles(r, opts.MaxFileSize, s.now())
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(files) == 0 {
		http.Error(w, "missing file part", http.StatusBadRequest)
		return
	}

	res, err := gesture(r.Context(), files)
	if errors.Is(err, widget.ErrDisabled) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusAccepted, widget.Result{
		Admitted: nonNil(res.Admitted),
		Errors:   nonNil(res.Errors),
	})
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.queueViews())
}

func (s *Server) handleCompleted(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.completedViews())
}

func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, nonNil(s.widget.Errors()))
}

func (s *Server) handleClearErrors(w http.ResponseWriter, r *http.Request) {
	s.widget.ClearErrors()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveQueued(w http.ResponseWriter, r *http.Request) {
	s.remove(w, r, s.widget.RemoveFromQueue)
}

func (s *Server) handleRemoveCompleted(w http.ResponseWriter, r *http.Request) {
	s.remove(w, r, s.widget.RemoveCompleted)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request, fn func(string) error) {
	id := chi.URLParam(r, "id")

	if err := fn(id); err != nil {
		if widget.IsNotFound(err) {
			http.Error(w, "file not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authorize(w, r, signing.ActionView)
	if !ok {
		return
	}

	uri, err := s.widget.View(id)
	if err != nil {
		s.fileError(w, err)
		return
	}

	typ, data, err := preview.Decode(uri)
	if err != nil {
		http.Error(w, "preview unavailable", http.StatusInternalServerError)
		return
	}

	fileHeaders(w, typ, "inline", "")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authorize(w, r, signing.ActionDownload)
	if !ok {
		return
	}

	f, err := s.widget.Download(id)
	if err != nil {
		s.fileError(w, err)
		return
	}

	rc, err := f.Open()
	if err != nil {
		http.Error(w, "file unavailable", http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	fileHeaders(w, f.Type(), "attachment", f.Name())
	w.Header().Set("Content-Length", strconv.FormatInt(f.Size(), 10))
	if _, err := io.Copy(w, rc); err != nil {
		s.log.ErrorContext(r.Context(), "failed to stream download",
			slog.String("file_id", id),
			slog.String("err", err.Error()),
		)
	}
}

// fileHeaders describes served file content. Stored types come from the
// client, so browsers must neither sniff them nor run scripts embedded in them
// (an image/svg+xml preview, for instance).
func fileHeaders(w http.ResponseWriter, typ, disposition, filename string) {
	h := w.Header()
	h.Set("Content-Type", typ)
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; sandbox")

	var params map[string]string
	if filename != "" {
		params = map[string]string{"filename": filename}
	}
	if v := mime.FormatMediaType(disposition, params); v != "" {
		h.Set("Content-Disposition", v)
	} else {
		h.Set("Content-Disposition", disposition)
	}
}

// authorize checks the signed link query and returns the file id.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, action signing.Action) (string, bool) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()

	expires, signature := q.Get("expires"), q.Get("signature")
	if expires == "" || signature == "" {
		http.Error(w, "missing parameters", http.StatusBadRequest)
		return "", false
	}

	if err := s.signer.Validate(id, action, expires, signature); err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return "", false
	}

	return id, true
}

func (s *Server) fileError(w http.ResponseWriter, err error) {
	switch {
	case widget.IsNotFound(err):
		http.Error(w, "file not found", http.StatusNotFound)
	case errors.Is(err, widget.ErrNoPreview):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, widget.ErrNoContent):
		http.Error(w, err.Error(), http.StatusGone)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) queueViews() []itemView {
	items := s.widget.Queue()
	out := make([]itemView, len(items))
	for i, it := range items {
		out[i] = decorate(it)
	}
	return out
}

func (s *Server) completedViews() []itemView {
	now := s.now()
	showPreviews := s.widget.Options().ShowPreviews

	items := s.widget.Completed()
	out := make([]itemView, len(items))
	for i, it := range items {
		v := decorate(it)
		v.UploadedAgo = format.TimeAgo(it.LastModified, now)
		v.DownloadURL = s.signer.URL(it.ID, signing.ActionDownload)
		if showPreviews && it.Preview != "" {
			v.ViewURL = s.signer.URL(it.ID, signing.ActionView)
		}
		out[i] = v
	}
	return out
}

func decorate(it model.QueueItem) itemView {
	return itemView{
		QueueItem: it,
		SizeLabel: format.FileSize(it.Size),
		Icon:      format.Icon(it.Type),
		IconColor: format.IconColor(it.Type),
		TypeLabel: format.TypeLabel(it.Type),
	}
}

// nonNil keeps empty collections as [] rather than null in JSON.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		slog.Error("encode json failed", slog.String("err", err.Error()))
	}
}
