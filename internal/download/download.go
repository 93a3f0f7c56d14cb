// Package download fetches full-size IIIF images into a blob store.
package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/wellcome2commons/internal/batch"
	"github.com/lehigh-university-libraries/wellcome2commons/internal/config"
	"github.com/lehigh-university-libraries/wellcome2commons/internal/records"
	"github.com/lehigh-university-libraries/wellcome2commons/internal/storage"
)

// Downloader streams images into a store in parallel batches
type Downloader struct {
	UserAgent string
	MinSize   int64

	httpClient *http.Client
	opts       batch.Options
}

// Summary counts the outcome of a Download call
type Summary struct {
	Total      int // rows considered
	Present    int // already downloaded before the run
	Duplicates int // rows sharing a filename with an earlier row
	Attempted  int
	Downloaded int
	Failed     int
}

// NewDownloader creates a new image downloader
func NewDownloader(cfg config.DownloadConfig) *Downloader {
	return &Downloader{
		UserAgent: cfg.UserAgent,
		MinSize:   cfg.MinSize,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		opts: batch.Options{
			BatchSize: cfg.BatchSize,
			Workers:   cfg.Workers,
			Delay:     cfg.BatchDelay,
		},
	}
}

// Download fetches every row whose file is not already in store
func (d *Downloader) Download(ctx context.Context, rows []records.Record, store storage.BlobStore) (Summary, error) {
	summary := Summary{Total: len(rows)}

	var pending []records.Record
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		if seen[row.Filename] {
			summary.Duplicates++
			slog.Debug("Skipping duplicate filename", "filename", row.Filename, "image_id", row.ImageID)
			continue
		}
		seen[row.Filename] = true
		if storage.Downloaded(ctx, store, row.Filename, d.MinSize) {
			summary.Present++
			continue
		}
		pending = append(pending, row)
	}

	if len(pending) == 0 {
		slog.Info("All images already downloaded", "count", len(rows))
		return summary, nil
	}

	slog.Info("Downloading images", "count", len(pending))
	summary.Attempted = len(pending)

	opts := d.opts
	opts.OnBatch = func(done, total int) {
		slog.Info("Download progress", "progress", fmt.Sprintf("%d/%d", done, total))
	}

	results, err := batch.Run(ctx, pending, opts, func(ctx context.Context, row records.Record) (bool, error) {
		if err := d.fetch(ctx, row, store); err != nil {
			return false, err
		}
		return true, nil
	})

	// items after a cancellation keep a zero result and count as neither
	for i, row := range pending {
		switch {
		case results[i].Err != nil:
			summary.Failed++
			slog.Warn("Failed to download image", "filename", row.Filename, "url", row.FullImageURL, "error", results[i].Err)
		case results[i].Value:
			summary.Downloaded++
		}
	}

	slog.Info("Download complete", "downloaded", summary.Downloaded, "failed", summary.Failed)
	return summary, err
}

func (d *Downloader) fetch(ctx context.Context, row records.Record, store storage.BlobStore) error {
	if row.FullImageURL == "" {
		return fmt.Errorf("no image URL for %s", row.Filename)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, row.FullImageURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", d.UserAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("image server returned status %d: %s", resp.StatusCode, body)
	}

	return store.Put(ctx, row.Filename, resp.Body, resp.ContentLength)
}
