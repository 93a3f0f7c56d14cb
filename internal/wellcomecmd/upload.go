package wellcomecmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/wellcome2commons/internal/commons"
	"github.com/lehigh-university-libraries/wellcome2commons/internal/config"
	"github.com/lehigh-university-libraries/wellcome2commons/internal/progress"
	"github.com/lehigh-university-libraries/wellcome2commons/internal/records"
	"github.com/lehigh-university-libraries/wellcome2commons/internal/storage"
	"github.com/lehigh-university-libraries/wellcome2commons/internal/upload"
)

const rule = "============================================================"

type uploadOptions struct {
	CSVPath      string
	ImagesDir    string
	ProgressPath string
	DryRun       bool
	Start        int
	Limit        int
	Resume       bool
	Comment      string
}

func executeUpload(ctx context.Context, w io.Writer, cfg *config.Config, opts uploadOptions) error {
	if _, err := os.Stat(opts.CSVPath); err != nil {
		return fmt.Errorf("CSV not found: %s", opts.CSVPath)
	}
	if cfg.Storage.Backend == config.BackendFS {
		if _, err := os.Stat(opts.ImagesDir); err != nil {
			return fmt.Errorf("images directory not found: %s", opts.ImagesDir)
		}
	}

	rows, err := records.Load(opts.CSVPath)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", opts.CSVPath, err)
	}
	slog.Info("Loaded images from CSV", "count", len(rows), "path", opts.CSVPath)

	p, err := progress.Load(opts.ProgressPath)
	if err != nil {
		return err
	}
	if opts.Resume {
		slog.Info("Resuming", "already_uploaded", len(p.Uploaded), "failed", len(p.Failed))
	}

	store, err := storage.New(ctx, cfg.Storage, opts.ImagesDir)
	if err != nil {
		return fmt.Errorf("failed to open image store: %w", err)
	}

	var client upload.Commons
	if !opts.DryRun {
		c, err := login(ctx, cfg.Commons)
		if err != nil {
			return err
		}
		client = c
	}

	comment := opts.Comment
	if comment == "" {
		comment = cfg.Commons.UploadComment
	}

	todo := upload.Window(rows, opts.Start, opts.Limit)
	prefix := ""
	if opts.DryRun {
		prefix = "DRY RUN - "
	}
	fmt.Fprintf(w, "\n%s\n%sUploading %d images\n%s\n\n", rule, prefix, len(todo), rule)

	u := upload.New(client, store, p)
	u.Out = w
	summary, runErr := u.Run(ctx, rows, upload.Options{
		Start:            opts.Start,
		Limit:            opts.Limit,
		DryRun:           opts.DryRun,
		Comment:          comment,
		ProgressPath:     opts.ProgressPath,
		Delay:            cfg.Commons.UploadDelay,
		RateLimitBackoff: cfg.Commons.RateLimitBackoff,
	})

	printUploadSummary(w, summary, p, opts)
	return runErr
}

func login(ctx context.Context, cfg config.CommonsConfig) (*commons.Client, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("COMMONS_BOT_USERNAME and COMMONS_BOT_PASSWORD must be set for uploads (use --dry-run to preview)")
	}
	c, err := commons.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if err := c.Login(ctx, cfg.Username, cfg.Password); err != nil {
		return nil, err
	}
	return c, nil
}

func printUploadSummary(w io.Writer, s upload.Summary, p *progress.Progress, opts uploadOptions) {
	title := "UPLOAD COMPLETE"
	if opts.DryRun {
		title = "UPLOAD PREVIEW COMPLETE"
	}
	fmt.Fprintf(w, "\n%s\n%s\n%s\n", rule, title, rule)
	fmt.Fprintf(w, "  Uploaded: %d\n", s.Uploaded)
	fmt.Fprintf(w, "  Skipped:  %d\n", s.Skipped)
	fmt.Fprintf(w, "  Failed:   %d\n", s.Failed)
	fmt.Fprintf(w, "  Total:    %d\n", s.Total())

	if opts.DryRun {
		return
	}
	fmt.Fprintf(w, "\n  Progress saved to: %s\n", opts.ProgressPath)

	if s.Failed > 0 {
		fmt.Fprintf(w, "\n  Failed uploads:\n")
		printFailures(w, p.RecentFailures(10))
		fmt.Fprintf(w, "\n  To retry failed uploads, fix the issues and run again with --resume\n")
	}
}

func printFailures(w io.Writer, failures []progress.Failure) {
	for _, f := range failures {
		fmt.Fprintf(w, "    %s: %s\n", f.Filename, strings.TrimSpace(f.Error))
	}
}
