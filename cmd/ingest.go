package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Ingest distributor sales files into the ledger",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("ingest"); err != nil {
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

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		for _, path := range args {
			report, err := ing.IngestFile(ctx, path)
			if err != nil {
				return eris.Wrapf(err, "ingest %s", path)
			}
			zap.L().Info("file ingested",
				zap.String("file", report.File),
				zap.Int("inserted", report.Inserted),
				zap.Int("unresolved", len(report.Unresolved)))
			if err := enc.Encode(report); err != nil {
				return eris.Wrap(err, "encode report")
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
