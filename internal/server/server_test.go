package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/dropzone/internal/config"
	"github.com/dharsanguruparan/dropzone/internal/model"
	"github.com/dharsanguruparan/dropzone/internal/processing"
	"github.com/dharsanguruparan/dropzone/internal/server"
	"github.com/dharsanguruparan/dropzone/internal/signing"
	"github.com/dharsanguruparan/dropzone/internal/widget"
)

type part struct {
	name        string
	contentType string
	data        []byte
}

func multipartBody(t *testing.T, parts ...part) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, p.name))
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.WriteField("note", "ignored"))
	require.NoError(t, mw.Close())

	return &body, mw.FormDataContentType()
}

type fixture struct {
	handler http.Handler
	widget  *widget.Controller
}

func newFixture(t *testing.T, opts widget.Options) *fixture {
	t.Helper()

	log := slog.New(slog.DiscardHandler)
	sim := processing.New(processing.WithInterval(time.Millisecond, 2*time.Millisecond))
	c := widget.New(log, opts, sim, widget.Hooks{})
	t.Cleanup(c.Close)

	signer := signing.NewSigner([]byte("test-secret"), time.Minute)
	srv := server.New(log, config.ServerConfig{MaxRequestBytes: 1 << 20, ShutdownTimeout: time.Second}, c, signer)

	return &fixture{handler: srv.Routes(), widget: c}
}

func (f *fixture) do(t *testing.T, method, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, body)
		req.Header.Set("Content-Type", contentType)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

type itemResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Status      string  `json:"status"`
	Progress    float64 `json:"uploadProgress"`
	SizeLabel   string  `json:"sizeLabel"`
	Icon        string  `json:"icon"`
	UploadedAgo string  `json:"uploadedAgo"`
	ViewURL     string  `json:"viewUrl"`
	DownloadURL string  `json:"downloadUrl"`
}

func pngOptions() widget.Options {
	return widget.Options{
		AcceptedTypes: []string{"image/png"},
		MaxFileSize:   1000,
		MaxFiles:      5,
		AllowMultiple: true,
		ShowPreviews:  true,
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	f := newFixture(t, widget.DefaultOptions())
	rec := f.do(t, http.MethodGet, "/healthz", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestUpload_AdmitsAndReportsOversizedParts(t *testing.T) {
	t.Parallel()

	f := newFixture(t, pngOptions())

	small := bytes.Repeat([]byte{1}, 500)
	body, ct := multipartBody(t,
		part{name: "small.png", contentType: "image/png", data: small},
		part{name: "big.png", contentType: "image/png", data: make([]byte, 2000)},
	)
	rec := f.do(t, http.MethodPost, "/api/v1/uploads?gesture=drop", body, ct)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	res := decode[widget.Result](t, rec)
	require.Len(t, res.Admitted, 1)
	assert.Equal(t, "small.png", res.Admitted[0].Name)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, model.ErrorSize, res.Errors[0].Kind)
	assert.Equal(t, "big.png", res.Errors[0].FileName)

	f.widget.Wait()

	rec = f.do(t, http.MethodGet, "/api/v1/completed", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	completed := decode[[]itemResponse](t, rec)
	require.Len(t, completed, 1)

	item := completed[0]
	assert.Equal(t, "success", item.Status)
	assert.Equal(t, 100.0, item.Progress)
	assert.Equal(t, "0.0 MB", item.SizeLabel)
	assert.Equal(t, "0 minutes ago", item.UploadedAgo)
	require.NotEmpty(t, item.ViewURL)
	require.NotEmpty(t, item.DownloadURL)

	rec = f.do(t, http.MethodGet, item.DownloadURL, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, small, rec.Body.Bytes())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=small.png", rec.Header().Get("Content-Disposition"))

	rec = f.do(t, http.MethodGet, item.ViewURL, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, small, rec.Body.Bytes())

	rec = f.do(t, http.MethodGet, "/api/v1/queue", nil, "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestUpload_SniffsMissingContentType(t *testing.T) {
	t.Parallel()

	f := newFixture(t, pngOptions())

	body, ct := multipartBody(t, part{name: "photo.png", data: []byte("png")})
	rec := f.do(t, http.MethodPost, "/api/v1/uploads", body, ct)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	res := decode[widget.Result](t, rec)
	require.Len(t, res.Admitted, 1)
	assert.Equal(t, "image/png", res.Admitted[0].Type)
	assert.Empty(t, res.Errors)
}

func TestUpload_RejectsBadRequests(t *testing.T) {
	t.Parallel()

	t.Run("disabled widget", func(t *testing.T) {
		t.Parallel()

		opts := pngOptions()
		opts.Disabled = true
		f := newFixture(t, opts)

		body, ct := multipartBody(t, part{name: "a.png", contentType: "image/png", data: []byte("x")})
		rec := f.do(t, http.MethodPost, "/api/v1/uploads", body, ct)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Empty(t, f.widget.Queue())
	})

	t.Run("unknown gesture", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, pngOptions())
		body, ct := multipartBody(t, part{name: "a.png", contentType: "image/png", data: []byte("x")})
		rec := f.do(t, http.MethodPost, "/api/v1/uploads?gesture=paste", body, ct)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not multipart", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, pngOptions())
		rec := f.do(t, http.MethodPost, "/api/v1/uploads", bytes.NewBufferString("{}"), "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no file parts", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, pngOptions())
		body, ct := multipartBody(t)
		rec := f.do(t, http.MethodPost, "/api/v1/uploads", body, ct)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUpload_CountRejection(t *testing.T) {
	t.Parallel()

	opts := pngOptions()
	opts.MaxFiles = 1
	f := newFixture(t, opts)

	body, ct := multipartBody(t,
		part{name: "a.png", contentType: "image/png", data: []byte("a")},
		part{name: "b.png", contentType: "image/png", data: []byte("b")},
	)
	rec := f.do(t, http.MethodPost, "/api/v1/uploads", body, ct)
	require.Equal(t, http.StatusAccepted, rec.Code)

	res := decode[widget.Result](t, rec)
	assert.Empty(t, res.Admitted)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, model.ErrorCount, res.Errors[0].Kind)
	assert.Equal(t, "Maximum 1 files allowed. Currently have 0 files.", res.Errors[0].Message)

	rec = f.do(t, http.MethodGet, "/api/v1/errors", nil, "")
	assert.Len(t, decode[[]model.FileError](t, rec), 1)

	rec = f.do(t, http.MethodDelete, "/api/v1/errors", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/errors", nil, "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRemove(t *testing.T) {
	t.Parallel()

	f := newFixture(t, pngOptions())

	rec := f.do(t, http.MethodDelete, "/api/v1/queue/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/v1/completed/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body, ct := multipartBody(t, part{name: "a.png", contentType: "image/png", data: []byte("a")})
	rec = f.do(t, http.MethodPost, "/api/v1/uploads", body, ct)
	require.Equal(t, http.StatusAccepted, rec.Code)
	f.widget.Wait()

	completed := f.widget.Completed()
	require.Len(t, completed, 1)

	rec = f.do(t, http.MethodDelete, "/api/v1/completed/"+completed[0].ID, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, f.widget.Completed())
}

func TestSignedLinks(t *testing.T) {
	t.Parallel()

	f := newFixture(t, pngOptions())

	body, ct := multipartBody(t, part{name: "a.png", contentType: "image/png", data: []byte("a")})
	rec := f.do(t, http.MethodPost, "/api/v1/uploads", body, ct)
	require.Equal(t, http.StatusAccepted, rec.Code)
	f.widget.Wait()

	rec = f.do(t, http.MethodGet, "/api/v1/widget", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	view := decode[struct {
		Options struct {
			AcceptedTypesLabel string `json:"acceptedTypesLabel"`
			MaxFileSizeLabel   string `json:"maxFileSizeLabel"`
		} `json:"options"`
		Queue     []itemResponse `json:"queue"`
		Completed []itemResponse `json:"completed"`
	}](t, rec)
	assert.Equal(t, "PNG", view.Options.AcceptedTypesLabel)
	assert.Equal(t, "0.0 MB", view.Options.MaxFileSizeLabel)
	assert.Empty(t, view.Queue)
	require.Len(t, view.Completed, 1)

	link := view.Completed[0].DownloadURL

	tampered := strings.Replace(link, "signature=", "signature=00", 1)
	rec = f.do(t, http.MethodGet, tampered, nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	wrongAction := strings.Replace(link, "/download?", "/view?", 1)
	rec = f.do(t, http.MethodGet, wrongAction, nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/files/"+view.Completed[0].ID+"/download", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, link, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFileRoutes_Headers(t *testing.T) {
	t.Parallel()

	opts := pngOptions()
	opts.AcceptedTypes = append(opts.AcceptedTypes, "image/svg+xml")
	f := newFixture(t, opts)

	body, ct := multipartBody(t,
		part{name: "my photo.png", contentType: "image/png", data: []byte("a")},
		part{name: "café.svg", contentType: "image/svg+xml", data: []byte("<svg/>")},
	)
	rec := f.do(t, http.MethodPost, "/api/v1/uploads", body, ct)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	f.widget.Wait()

	rec = f.do(t, http.MethodGet, "/api/v1/completed", nil, "")
	completed := decode[[]itemResponse](t, rec)
	require.Len(t, completed, 2)

	byName := map[string]itemResponse{}
	for _, it := range completed {
		byName[it.Name] = it
	}

	rec = f.do(t, http.MethodGet, byName["my photo.png"].DownloadURL, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="my photo.png"`, rec.Header().Get("Content-Disposition"))

	rec = f.do(t, http.MethodGet, byName["café.svg"].DownloadURL, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "attachment; filename*=utf-8''caf%C3%A9.svg", rec.Header().Get("Content-Disposition"))

	for _, link := range []string{byName["café.svg"].ViewURL, byName["café.svg"].DownloadURL} {
		rec = f.do(t, http.MethodGet, link, nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'none'")
		assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "sandbox")
	}

	rec = f.do(t, http.MethodGet, byName["café.svg"].ViewURL, nil, "")
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Equal(t, "inline", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "<svg/>", rec.Body.String())
}
