package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/dropzone/internal/config"
	"github.com/dharsanguruparan/dropzone/internal/format"
	"github.com/dharsanguruparan/dropzone/internal/model"
	"github.com/dharsanguruparan/dropzone/internal/processing"
	"github.com/dharsanguruparan/dropzone/internal/sniff"
	"github.com/dharsanguruparan/dropzone/internal/validation"
	"github.com/dharsanguruparan/dropzone/internal/widget"
)

const progressInterval = 250 * time.Millisecond

func newUploadCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "upload <path...>",
		Short: "Run local files through validation, previews and simulated uploads",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}

			files, err := loadFiles(args)
			if err != nil {
				return err
			}

			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			out := &lockedWriter{w: cmd.OutOrStdout()}
			hooks := widget.Hooks{
				OnFileUpload: func(item model.QueueItem) {
					fmt.Fprintf(out, "uploaded  %s (%s)\n", item.Name, format.FileSize(item.Size))
				},
				OnFileError: func(fe model.FileError) {
					fmt.Fprintf(out, "error     %s\n", fe.Error())
				},
			}

			c := widget.New(log, cfg.WidgetOptions(), processing.New(cfg.SimulatorOptions()...), hooks)
			defer c.Close()

			if _, err := c.Pick(cmd.Context(), files); err != nil {
				return err
			}

			done := make(chan struct{})
			go func() {
				c.Wait()
				close(done)
			}()

			ticker := time.NewTicker(progressInterval)
			defer ticker.Stop()

		loop:
			for {
				select {
				case <-done:
					break loop
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case <-ticker.C:
					printQueue(out, c.Queue())
				}
			}

			printCompleted(out, c.Completed(), time.Now())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log controller activity to stderr")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <path...>",
		Short: "Check local files against the accepted types, size and count limits",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}

			files, err := loadFiles(args)
			if err != nil {
				return err
			}

			opts := cfg.WidgetOptions()
			out := cmd.OutOrStdout()

			// The widget rejects an over-limit batch as a whole, before looking
			// at individual files.
			if fe := validation.CountExceeded(opts.MaxFiles, 0, len(files)); fe != nil {
				fmt.Fprintf(out, "rejected  %s [%s]\n", fe.Error(), fe.Kind)
				return fmt.Errorf("batch of %d files rejected", len(files))
			}

			var rejected int
			for _, f := range files {
				if fe := validation.Validate(f, opts.AcceptedTypes, opts.MaxFileSize); fe != nil {
					rejected++
					fmt.Fprintf(out, "rejected  %s [%s]\n", fe.Error(), fe.Kind)
					continue
				}
				fmt.Fprintf(out, "ok        %s (%s, %s)\n", f.Name(), f.Type(), format.FileSize(f.Size()))
			}

			fmt.Fprintf(out, "\nSupported: %s, up to %s each\n", format.AcceptedTypes(opts.AcceptedTypes), format.FileSize(opts.MaxFileSize))
			if rejected > 0 {
				return fmt.Errorf("%d of %d files rejected", rejected, len(files))
			}
			return nil
		},
	}
}

// loadFiles reads paths into candidates, resolving their media type from the
// extension or content.
func loadFiles(paths []string) ([]model.File, error) {
	files := make([]model.File, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", p)
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}

		name := filepath.Base(p)
		head := data[:min(len(data), 512)]
		files = append(files, model.NewMemoryFile(name, sniff.Type(name, head), info.ModTime(), data))
	}
	return files, nil
}

func printQueue(w io.Writer, items []model.QueueItem) {
	for _, it := range items {
		bar := strings.Repeat("#", int(it.Progress/5))
		fmt.Fprintf(w, "%-9s %-30s [%-20s] %5.1f%%\n", it.Status, it.Name, bar, it.Progress)
	}
}

func printCompleted(w io.Writer, items []model.QueueItem, now time.Time) {
	if len(items) == 0 {
		fmt.Fprintln(w, "no files uploaded")
		return
	}

	fmt.Fprintf(w, "\nUploaded Files (%d)\n", len(items))
	for _, it := range items {
		fmt.Fprintf(w, "  %-18s %-30s %s  %s\n", format.Icon(it.Type), it.Name, format.FileSize(it.Size), format.TimeAgo(it.LastModified, now))
	}
}

// lockedWriter serialises writes from upload goroutines and the progress loop.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
