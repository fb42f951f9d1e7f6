package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zoomscribe/zoomscribe/internal/downloader"
)

func newDownloadCmd() *cobra.Command {
	var (
		flags       commonFlags
		targetDir   string
		overwrite   bool
		dryRun      bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download Zoom cloud recordings to local disk",
		Long: `List cloud recordings in the requested window and download every asset
into a deterministic host/date/meeting directory layout.

Files that already exist are skipped, so repeated runs are incremental.
Interrupted transfers leave a partial file that the next run resumes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, client, err := loadApp(flags)
			if err != nil {
				return err
			}
			if targetDir != "" {
				cfg.Downloader.TargetDir = targetDir
			}
			if concurrency > 0 {
				cfg.Downloader.Concurrency = concurrency
			}
			cfg.Downloader.Overwrite = overwrite
			cfg.Downloader.DryRun = dryRun

			if info, err := os.Stat(cfg.Downloader.TargetDir); err == nil && !info.IsDir() {
				return fmt.Errorf("target path %s exists and is not a directory", cfg.Downloader.TargetDir)
			}

			filters, err := buildFilters(cfg, flags)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			recordings, err := client.ListRecordings(ctx, filters)
			if err != nil {
				return fmt.Errorf("listing recordings: %w", err)
			}

			runner, err := downloader.New(client, downloader.Config{
				TargetDir:   cfg.Downloader.TargetDir,
				Overwrite:   cfg.Downloader.Overwrite,
				DryRun:      cfg.Downloader.DryRun,
				Concurrency: cfg.Downloader.Concurrency,
				Logger:      logger,
			})
			if err != nil {
				return err
			}

			manifest, err := runner.Run(ctx, recordings)
			if err != nil {
				return err
			}

			succeeded, skipped, failed := manifest.Counts()
			if cfg.Downloader.DryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "Dry run complete. %d recordings would be processed.\n", len(recordings))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %d files (%d skipped, %d failed) from %d recordings.\n",
					succeeded, skipped, failed, len(recordings))
			}
			return manifest.Err()
		},
	}

	registerCommonFlags(&flags, cmd.Flags())
	cmd.Flags().StringVar(&targetDir, "target-dir", "", "Directory to save recordings (default: downloads)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing files")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List recordings without downloading")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Number of parallel download workers")

	return cmd
}
