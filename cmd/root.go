package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/wellcome2commons/internal/wellcomecmd"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "wellcome2commons",
		Short: "Batch export of Wellcome Collection images to Wikimedia Commons",
		Long: `wellcome2commons exports image metadata from the Wellcome Collection catalogue,
downloads the full-size images and uploads them to Wikimedia Commons with
generated description pages.

Typical workflow: fetch to build the CSV and download images, upload --dry-run
to preview, then upload (and upload --resume after an interruption).`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			logLevel := slog.LevelInfo
			if verbose {
				logLevel = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
			slog.SetDefault(logger)
		},
	}

	cmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	cmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose logging")

	// Add subcommands
	cmd.AddCommand(wellcomecmd.NewFetchCmd())
	cmd.AddCommand(wellcomecmd.NewUploadCmd())
	cmd.AddCommand(wellcomecmd.NewStatusCmd())

	return cmd
}
