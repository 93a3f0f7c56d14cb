// Package upload pushes exported images to Commons one at a time,
// checkpointing after every attempt so an interrupted run can resume.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lehigh-university-libraries/wellcome2commons/internal/batch"
	"github.com/lehigh-university-libraries/wellcome2commons/internal/commons"
	"github.com/lehigh-university-libraries/wellcome2commons/internal/progress"
	"github.com/lehigh-university-libraries/wellcome2commons/internal/records"
	"github.com/lehigh-university-libraries/wellcome2commons/internal/storage"
	"github.com/lehigh-university-libraries/wellcome2commons/internal/wikitext"
)

const (
	// fileNotFound is recorded when a row's image is not in the store
	fileNotFound = "File not found"
	previewLines = 8
)

// Commons is the part of the Commons client the uploader needs
type Commons interface {
	FileExists(ctx context.Context, filename string) (bool, error)
	Upload(ctx context.Context, filename string, content io.Reader, text, comment string) error
}

// Options selects the rows to process and how
type Options struct {
	Start  int
	Limit  int // 0 means no limit
	DryRun bool

	Comment          string
	ProgressPath     string
	Delay            time.Duration
	RateLimitBackoff time.Duration
}

// Summary counts the outcome of a run
type Summary struct {
	Uploaded int
	Skipped  int
	Failed   int
}

// Total is the number of rows processed
func (s Summary) Total() int {
	return s.Uploaded + s.Skipped + s.Failed
}

// Uploader drives the sequential upload loop
type Uploader struct {
	client   Commons
	store    storage.BlobStore
	progress *progress.Progress

	// Out receives the dry run preview
	Out io.Writer
}

// New creates an uploader. client may be nil for a dry run.
func New(client Commons, store storage.BlobStore, p *progress.Progress) *Uploader {
	return &Uploader{
		client:   client,
		store:    store,
		progress: p,
		Out:      os.Stdout,
	}
}

// Window returns rows[start:start+limit], clamped to the slice
func Window(rows []records.Record, start, limit int) []records.Record {
	if start < 0 {
		start = 0
	}
	if start > len(rows) {
		start = len(rows)
	}
	end := len(rows)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return rows[start:end]
}

// Run processes the selected rows in order
func (u *Uploader) Run(ctx context.Context, rows []records.Record, opts Options) (Summary, error) {
	var summary Summary

	if !opts.DryRun && u.client == nil {
		return summary, fmt.Errorf("a Commons client is required unless dry run is set")
	}

	todo := Window(rows, opts.Start, opts.Limit)
	slog.Info("Starting upload", "count", len(todo), "dry_run", opts.DryRun)

	for i, row := range todo {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		filename := row.Filename
		logger := slog.With("item", fmt.Sprintf("%d/%d", i+1, len(todo)), "filename", filename)

		if u.progress.IsUploaded(filename) {
			logger.Info("Skipped, already uploaded")
			summary.Skipped++
			continue
		}

		size, err := u.store.Size(ctx, filename)
		if err != nil {
			reason := err.Error()
			if errors.Is(err, storage.ErrNotFound) {
				reason = fileNotFound
			}
			logger.Error("Failed, image not available", "error", err)
			u.progress.MarkFailed(filename, reason)
			summary.Failed++
			continue
		}

		text := wikitext.Build(row)

		if opts.DryRun {
			u.preview(filename, size, text)
			summary.Uploaded++
			continue
		}

		exists, err := u.client.FileExists(ctx, filename)
		switch {
		case err != nil:
			logger.Warn("Could not check existence on Commons", "error", err)
		case exists:
			logger.Info("Skipped, already exists on Commons")
			u.progress.MarkSkipped(filename)
			summary.Skipped++
			if err := u.progress.Save(opts.ProgressPath); err != nil {
				return summary, err
			}
			continue
		}

		if err := u.uploadOne(ctx, filename, text, opts.Comment); err != nil {
			if ctx.Err() != nil {
				_ = u.progress.Save(opts.ProgressPath)
				return summary, ctx.Err()
			}
			logger.Error("Upload failed", "error", err)
			u.progress.MarkFailed(filename, err.Error())
			summary.Failed++

			if commons.IsRateLimited(err) {
				logger.Warn("Rate limited, backing off", "wait", opts.RateLimitBackoff)
				if err := batch.Sleep(ctx, opts.RateLimitBackoff); err != nil {
					_ = u.progress.Save(opts.ProgressPath)
					return summary, err
				}
			}
		} else {
			logger.Info("Uploaded")
			u.progress.MarkUploaded(filename)
			summary.Uploaded++
		}

		if err := u.progress.Save(opts.ProgressPath); err != nil {
			return summary, err
		}

		if i < len(todo)-1 {
			if err := batch.Sleep(ctx, opts.Delay); err != nil {
				return summary, err
			}
		}
	}

	return summary, nil
}

func (u *Uploader) uploadOne(ctx context.Context, filename, text, comment string) error {
	rc, err := u.store.Open(ctx, filename)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer rc.Close()

	return u.client.Upload(ctx, filename, rc, text, comment)
}

func (u *Uploader) preview(filename string, size int64, text string) {
	fmt.Fprintf(u.Out, "  Title:  File:%s\n", filename)
	fmt.Fprintf(u.Out, "  Size:   %.1f MB\n", float64(size)/1024/1024)
	fmt.Fprintf(u.Out, "  Wikitext preview:\n")
	for _, line := range wikitext.Preview(text, previewLines) {
		fmt.Fprintf(u.Out, "    %s\n", line)
	}
	fmt.Fprintf(u.Out, "    ...\n")
}
