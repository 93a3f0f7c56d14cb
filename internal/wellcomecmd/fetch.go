package wellcomecmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/wellcome2commons/internal/catalogue"
	"github.com/lehigh-university-libraries/wellcome2commons/internal/commons"
	"github.com/lehigh-university-libraries/wellcome2commons/internal/config"
	"github.com/lehigh-university-libraries/wellcome2commons/internal/download"
	"github.com/lehigh-university-libraries/wellcome2commons/internal/records"
	"github.com/lehigh-university-libraries/wellcome2commons/internal/storage"
)

type fetchOptions struct {
	Collection   string
	CheckCommons bool
	SkipDownload bool
	Parquet      bool
	OutputDir    string
}

func executeFetch(ctx context.Context, w io.Writer, cfg *config.Config, opts fetchOptions) error {
	collections, err := catalogue.Collections(opts.Collection)
	if err != nil {
		return err
	}

	client := catalogue.NewClient(cfg.Catalogue)
	urls := records.URLs{IIIFBase: cfg.Catalogue.IIIFBaseURL, Site: cfg.Catalogue.SiteURL}

	var checker *commons.Client
	if opts.CheckCommons {
		checker, err = commons.NewClient(cfg.Commons)
		if err != nil {
			return err
		}
	}

	downloader := download.NewDownloader(cfg.Download)

	for _, col := range collections {
		fmt.Fprintf(w, "\n=== %s ===\n", col.Label)
		slog.Info("Fetching from API", "collection", col.Name)

		images, err := client.SearchImages(ctx, col.Query, catalogue.ImageInclude)
		if err != nil {
			return fmt.Errorf("failed to search %s images: %w", col.Name, err)
		}
		fmt.Fprintf(w, "Found %d images\n", len(images))

		works, err := client.FetchWorks(ctx, catalogue.UniqueWorkIDs(images))
		if err != nil {
			return fmt.Errorf("failed to fetch %s work details: %w", col.Name, err)
		}

		rows := records.BuildRows(images, works, urls)

		if checker != nil {
			existing, err := checker.CheckExistence(ctx, records.MiroNumbers(rows))
			if err != nil {
				return fmt.Errorf("failed to check Commons: %w", err)
			}
			before := len(rows)
			rows = records.FilterMiro(rows, existing)
			fmt.Fprintf(w, "  %d already on Commons, %d to upload\n", before-len(rows), len(rows))
		}

		csvPath := filepath.Join(opts.OutputDir, col.CSVFile)
		if err := records.WriteCSV(csvPath, rows); err != nil {
			return err
		}
		fmt.Fprintf(w, "CSV saved: %s (%d rows)\n", csvPath, len(rows))

		if opts.Parquet {
			parquetPath := strings.TrimSuffix(csvPath, filepath.Ext(csvPath)) + ".parquet"
			if err := records.WriteParquet(parquetPath, rows); err != nil {
				return err
			}
			fmt.Fprintf(w, "Parquet saved: %s\n", parquetPath)
		}

		if len(rows) == 0 {
			fmt.Fprintln(w, "No new images to download")
			continue
		}
		if opts.SkipDownload {
			continue
		}

		imagesDir := filepath.Join(opts.OutputDir, col.ImagesDir)
		store, err := storage.New(ctx, cfg.Storage, imagesDir)
		if err != nil {
			return fmt.Errorf("failed to open image store: %w", err)
		}

		summary, err := downloader.Download(ctx, rows, store)
		if err != nil {
			return fmt.Errorf("download interrupted: %w", err)
		}
		fmt.Fprintf(w, "  Done: %d images downloaded to %s (%d already present, %d failed)\n",
			summary.Downloaded, imagesDir, summary.Present, summary.Failed)
	}

	fmt.Fprintln(w, "\nDone!")
	return nil
}
