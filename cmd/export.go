package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/salespulse/internal/export"
	"github.com/sells-group/salespulse/internal/store"
	notionpkg "github.com/sells-group/salespulse/pkg/notion"
	sfpkg "github.com/sells-group/salespulse/pkg/salesforce"
)

var exportLimit int

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Push recalculated metrics to external tools",
}

var exportNotionCmd = &cobra.Command{
	Use:   "notion",
	Short: "Mirror top-priority accounts into the Notion call list",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("export-notion"); err != nil {
			return err
		}
		rows, st, err := loadExportRows(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		client := notionpkg.NewClient(cfg.Notion.Token,
			notionpkg.WithRateLimit(cfg.Notion.RateLimit))
		report, err := export.NewNotionExporter(client, cfg.Notion.PriorityDB).
			Push(cmd.Context(), rows)
		if err != nil {
			return err
		}
		return printReport(report)
	},
}

var exportSalesforceCmd = &cobra.Command{
	Use:   "salesforce",
	Short: "Write metrics onto CRM account records",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("export-salesforce"); err != nil {
			return err
		}
		rows, st, err := loadExportRows(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		client, err := initSalesforce()
		if err != nil {
			return err
		}
		report, err := export.NewSalesforceExporter(client).Push(cmd.Context(), rows)
		if err != nil {
			return err
		}
		return printReport(report)
	},
}

// loadExportRows fetches the top-priority metrics and joins in account
// display names. The caller closes the returned store.
func loadExportRows(ctx context.Context) ([]export.Row, store.Store, error) {
	st, err := initStore()
	if err != nil {
		return nil, nil, err
	}

	list, err := st.ListMetrics(ctx, store.MetricsFilter{Limit: exportLimit})
	if err != nil {
		st.Close()
		return nil, nil, eris.Wrap(err, "list metrics")
	}

	names := make(map[string]string, len(list))
	for _, m := range list {
		acct, err := st.GetAccount(ctx, m.CanonicalCode)
		if err != nil {
			st.Close()
			return nil, nil, eris.Wrapf(err, "load account %s", m.CanonicalCode)
		}
		if acct != nil {
			names[m.CanonicalCode] = acct.Name
		}
	}
	return export.BuildRows(list, names), st, nil
}

func initSalesforce() (sfpkg.Client, error) {
	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return sfpkg.NewClient(sf, sfpkg.WithRateLimit(cfg.Salesforce.RateLimit)), nil
}

func printReport(report *export.Report) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func init() {
	exportCmd.PersistentFlags().IntVar(&exportLimit, "limit", 50, "number of top-priority accounts to export")
	exportCmd.AddCommand(exportNotionCmd)
	exportCmd.AddCommand(exportSalesforceCmd)
	rootCmd.AddCommand(exportCmd)
}
