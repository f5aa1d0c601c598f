package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/salespulse/internal/metrics"
)

var recalcBatchSize int

var recalcCmd = &cobra.Command{
	Use:   "recalc",
	Short: "Recalculate metrics for every account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("recalc"); err != nil {
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

		batch := recalcBatchSize
		if batch == 0 {
			batch = cfg.Batch.Size
		}
		sweeper := metrics.NewSweeper(st, cfg.Scoring, cfg.Growth, batch)

		report, err := sweeper.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "sweep")
		}

		zap.L().Info("recalculation complete",
			zap.String("run_id", report.RunID),
			zap.Int("scored", report.Scored),
			zap.Int("skipped", report.Skipped))

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	recalcCmd.Flags().IntVar(&recalcBatchSize, "batch-size", 0, "accounts per batch (default from config)")
	rootCmd.AddCommand(recalcCmd)
}
