package export

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/salespulse/pkg/salesforce"
)

// SalesforceExporter writes recalculated metrics onto CRM Account
// records, matched through the Account_Code__c external ID field.
type SalesforceExporter struct {
	client salesforce.Client
}

// NewSalesforceExporter builds an exporter over the given client.
func NewSalesforceExporter(client salesforce.Client) *SalesforceExporter {
	return &SalesforceExporter{client: client}
}

// Push bulk-updates the matched Account records. Codes with no CRM
// record are counted as missing, not errors: not every distributor
// account has been promoted to the CRM.
func (e *SalesforceExporter) Push(ctx context.Context, rows []Row) (*Report, error) {
	report := &Report{}
	if len(rows) == 0 {
		return report, nil
	}

	codes := make([]string, len(rows))
	for i, row := range rows {
		codes[i] = row.CanonicalCode
	}
	ids, err := salesforce.FindAccountIDsByCode(ctx, e.client, codes)
	if err != nil {
		return report, eris.Wrap(err, "export: resolve crm accounts")
	}

	updates := make([]salesforce.AccountUpdate, 0, len(rows))
	for _, row := range rows {
		id, ok := ids[row.CanonicalCode]
		if !ok {
			report.Missing++
			zap.L().Debug("export: no crm record",
				zap.String("canonical_code", row.CanonicalCode))
			continue
		}
		updates = append(updates, salesforce.AccountUpdate{
			ID:     id,
			Fields: accountFields(row),
		})
	}
	if len(updates) == 0 {
		return report, nil
	}

	results, err := salesforce.BulkUpdateAccounts(ctx, e.client, updates)
	if err != nil {
		return report, eris.Wrap(err, "export: salesforce push")
	}
	for _, r := range results {
		if r.Success {
			report.Pushed++
		} else {
			report.Failed++
			zap.L().Warn("export: crm update failed",
				zap.String("sf_id", r.ID), zap.Strings("errors", r.Errors))
		}
	}

	zap.L().Info("export: salesforce push complete",
		zap.Int("pushed", report.Pushed),
		zap.Int("missing", report.Missing),
		zap.Int("failed", report.Failed))
	return report, nil
}

func accountFields(row Row) map[string]any {
	return map[string]any{
		"RFM_Segment__c":      row.Segment,
		"Health_Score__c":     row.HealthScore,
		"Priority_Score__c":   row.PriorityScore,
		"Days_Overdue__c":     row.DaysOverdue,
		"Suggested_Order__c":  row.SuggestedOrder,
		"Growth_Message__c":   row.GrowthMessage,
	}
}
