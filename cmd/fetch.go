package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/salespulse/internal/fetcher"
)

var fetchDryRun bool

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Pull new sales files from the distributor FTP drop and ingest them",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("fetch"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := initStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		ing, err := initIngestor(st)
		if err != nil {
			return err
		}

		drop := fetcher.NewFTPDrop(cfg.FTP)
		names, err := drop.List(ctx)
		if err != nil {
			return err
		}
		zap.L().Info("drop listed",
			zap.String("addr", cfg.FTP.Addr), zap.Int("files", len(names)))

		if err := os.MkdirAll(cfg.Ingest.UploadDir, 0o755); err != nil {
			return eris.Wrap(err, "create upload dir")
		}

		var fetched, skipped int
		for _, name := range names {
			done, err := st.IsFileProcessed(ctx, name)
			if err != nil {
				return err
			}
			if done {
				skipped++
				continue
			}
			if fetchDryRun {
				zap.L().Info("would fetch", zap.String("file", name))
				continue
			}

			local, err := drop.Fetch(ctx, name, cfg.Ingest.UploadDir)
			if err != nil {
				return err
			}
			report, err := ing.IngestFile(ctx, local)
			if err != nil {
				return eris.Wrapf(err, "ingest %s", name)
			}
			if err := st.MarkFileProcessed(ctx, name); err != nil {
				return err
			}
			fetched++
			zap.L().Info("drop file ingested",
				zap.String("file", name),
				zap.Int("inserted", report.Inserted),
				zap.Int("unresolved", len(report.Unresolved)))
		}

		zap.L().Info("fetch complete",
			zap.Int("fetched", fetched), zap.Int("skipped", skipped))
		return nil
	},
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchDryRun, "dry-run", false, "list new files without downloading")
	rootCmd.AddCommand(fetchCmd)
}
