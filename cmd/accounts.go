package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/salespulse/internal/store"
)

var (
	accountsSegment     string
	accountsMinPriority float64
	accountsMaxHealth   float64
	accountsLimit       int
	accountsJSON        bool
	accountsPoor        bool
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List accounts by priority",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("accounts"); err != nil {
			return err
		}

		st, err := initStore()
		if err != nil {
			return err
		}
		defer st.Close()

		maxHealth := accountsMaxHealth
		if accountsPoor && maxHealth == 0 {
			maxHealth = cfg.Scoring.HealthPoorThreshold
		}

		list, err := st.ListMetrics(cmd.Context(), store.MetricsFilter{
			Segment:     accountsSegment,
			MinPriority: accountsMinPriority,
			MaxHealth:   maxHealth,
			Limit:       accountsLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list metrics")
		}

		if accountsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(list)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CODE\tSEGMENT\tHEALTH\tPRIORITY\tOVERDUE\tNEXT STEP")
		for _, m := range list {
			fmt.Fprintf(w, "%s\t%s\t%.1f\t%.1f\t%d\t%s\n",
				m.CanonicalCode, m.RFMSegment, m.HealthScore,
				m.PriorityScore, m.DaysOverdue, m.GrowthMessage)
		}
		return w.Flush()
	},
}

func init() {
	accountsCmd.Flags().StringVar(&accountsSegment, "segment", "", "filter by RFM segment")
	accountsCmd.Flags().Float64Var(&accountsMinPriority, "min-priority", 0, "minimum priority score")
	accountsCmd.Flags().Float64Var(&accountsMaxHealth, "max-health", 0, "maximum health score")
	accountsCmd.Flags().IntVar(&accountsLimit, "limit", 25, "maximum rows")
	accountsCmd.Flags().BoolVar(&accountsJSON, "json", false, "emit JSON instead of a table")
	accountsCmd.Flags().BoolVar(&accountsPoor, "poor", false, "only accounts below the configured poor-health threshold")
	rootCmd.AddCommand(accountsCmd)
}
