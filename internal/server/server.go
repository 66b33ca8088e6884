// Package server exposes the widget over HTTP: batch intake, queue and
// completed list views, removals and signed file links.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/dharsanguruparan/dropzone/internal/config"
	"github.com/dharsanguruparan/dropzone/internal/model"
	"github.com/dharsanguruparan/dropzone/internal/signing"
	"github.com/dharsanguruparan/dropzone/internal/widget"
)

// Widget is the controller surface the handlers drive.
type Widget interface {
	Options() widget.Options
	Drop(ctx context.Context, files []model.File) (widget.Result, error)
	Pick(ctx context.Context, files []model.File) (widget.Result, error)
	Queue() []model.QueueItem
	Completed() []model.QueueItem
	Errors() []model.FileError
	ClearErrors()
	RemoveFromQueue(id string) error
	RemoveCompleted(id string) error
	View(id string) (string, error)
	Download(id string) (model.File, error)
}

// Server hosts the HTTP handlers.
type Server struct {
	log    *slog.Logger
	cfg    config.ServerConfig
	widget Widget
	signer *signing.Signer
	now    func() time.Time

	httpServer *http.Server
}

// New creates a configured server.
func New(log *slog.Logger, cfg config.ServerConfig, w Widget, signer *signing.Signer) *Server {
	s := &Server{
		log:    log,
		cfg:    cfg,
		widget: w,
		signer: signer,
		now:    time.Now,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/widget", s.handleWidget)
		r.Post("/uploads", s.handleUpload)

		r.Get("/queue", s.handleQueue)
		r.Delete("/queue/{id}", s.handleRemoveQueued)

		r.Get("/completed", s.handleCompleted)
		r.Delete("/completed/{id}", s.handleRemoveCompleted)

		r.Get("/errors", s.handleErrors)
		r.Delete("/errors", s.handleClearErrors)
	})

	r.Route("/files/{id}", func(r chi.Router) {
		r.Get("/view", s.handleView)
		r.Get("/download", s.handleDownload)
	})

	return r
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down
// within the configured timeout.
func (s *Server) Serve(ctx context.Context) error {
	erg, ctx := errgroup.WithContext(ctx)

	erg.Go(func() error {
		s.log.InfoContext(ctx, "starting http server", slog.String("addr", s.cfg.Address))

		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	erg.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		s.log.Info("shutting down http server")
		return s.httpServer.Shutdown(shutdownCtx)
	})

	return erg.Wait()
}
