package wellcomecmd

import (
	"fmt"

	"github.com/lehigh-university-libraries/wellcome2commons/internal/config"
	"github.com/spf13/cobra"
)

// loadConfig reads the file named by the persistent --config flag
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := ""
	if f := cmd.Flag("config"); f != nil {
		path = f.Value.String()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// NewFetchCmd creates the fetch command that exports catalogue images
func NewFetchCmd() *cobra.Command {
	var opts fetchOptions

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Export Wellcome Collection images to CSV and download them",
		Long: `Fetch searches the Wellcome Collection catalogue for a collection, joins every
image with its work record and writes one CSV row per image.

Optionally each Miro number is looked up on Wikimedia Commons first so images
that are already there are left out. Full-size images are then downloaded into
the image store, skipping files that are already present.`,
		Example: `  # Export and download both collections
  wellcome2commons fetch

  # Export SB Lucas only, leaving out images already on Commons
  wellcome2commons fetch --collection sb_lucas --check-commons

  # Rebuild the CSV without downloading, also writing parquet
  wellcome2commons fetch --skip-download --parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return executeFetch(cmd.Context(), cmd.OutOrStdout(), cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Collection, "collection", "all", "Collection to fetch (sb_lucas, museum or all)")
	cmd.Flags().BoolVar(&opts.CheckCommons, "check-commons", false, "Skip images already on Commons")
	cmd.Flags().BoolVar(&opts.SkipDownload, "skip-download", false, "Only generate the CSV, skip image download")
	cmd.Flags().BoolVar(&opts.Parquet, "parquet", false, "Also write a parquet file next to each CSV")
	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", ".", "Directory for CSV files and images")

	return cmd
}

// NewUploadCmd creates the upload command that pushes exported images to Commons
func NewUploadCmd() *cobra.Command {
	var opts uploadOptions

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload exported images to Wikimedia Commons",
		Long: `Upload reads the CSV written by fetch and uploads each image with a generated
description page, one at a time.

Progress is saved after every attempt. Images recorded as uploaded are skipped,
as are files that already exist on Commons. Credentials come from
COMMONS_BOT_USERNAME and COMMONS_BOT_PASSWORD (a bot password from
Special:BotPasswords), read from the environment or a .env file.`,
		Example: `  # Preview the first 5 uploads
  wellcome2commons upload --limit 5 --dry-run

  # Pilot run of 5 images
  wellcome2commons upload --limit 5

  # Continue after an interruption
  wellcome2commons upload --resume`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if opts.Start < 0 || opts.Limit < 0 {
				return fmt.Errorf("--start and --limit must not be negative")
			}
			return executeUpload(cmd.Context(), cmd.OutOrStdout(), cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.CSVPath, "csv", "sb_lucas_wellcome_images.csv", "CSV (or parquet) export to upload")
	cmd.Flags().StringVar(&opts.ImagesDir, "images", "images", "Directory (or object prefix) holding the images")
	cmd.Flags().StringVar(&opts.ProgressPath, "progress", "upload_progress.json", "Progress checkpoint file")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Preview uploads without uploading")
	cmd.Flags().IntVar(&opts.Start, "start", 0, "Row number to start from (0-indexed)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of images to process (0 = all)")
	cmd.Flags().BoolVar(&opts.Resume, "resume", false, "Resume from the last progress checkpoint")
	cmd.Flags().StringVar(&opts.Comment, "comment", "", "Upload summary (defaults to commons.upload_comment)")

	return cmd
}

// NewStatusCmd creates the status command that summarises a checkpoint file
func NewStatusCmd() *cobra.Command {
	var progressPath string
	var failures int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show upload progress from a checkpoint file",
		Example: `  wellcome2commons status
  wellcome2commons status --progress upload_progress.json --failures 25`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeStatus(cmd.OutOrStdout(), progressPath, failures)
		},
	}

	cmd.Flags().StringVar(&progressPath, "progress", "upload_progress.json", "Progress checkpoint file")
	cmd.Flags().IntVar(&failures, "failures", 10, "Number of recent failures to list")

	return cmd
}
