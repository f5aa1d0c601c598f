package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/salespulse/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "salespulse",
	Short: "Account identity resolution and metrics recalculation",
	Long:  "Ingests noisy distributor sales exports, resolves them to canonical accounts, and recalculates cadence, RFM, health, priority, and growth metrics per account.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
