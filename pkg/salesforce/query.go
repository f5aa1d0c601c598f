package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// accountRef pairs a Salesforce record ID with the external account code
// that links it to the canonical ledger.
type accountRef struct {
	ID   string `json:"Id" salesforce:"Id"`
	Code string `json:"Account_Code__c" salesforce:"Account_Code__c"`
}

// FindAccountIDsByCode resolves canonical account codes to Salesforce
// record IDs via the Account_Code__c external ID field. Codes with no
// matching Account record are simply absent from the result.
func FindAccountIDsByCode(ctx context.Context, c Client, codes []string) (map[string]string, error) {
	if len(codes) == 0 {
		return map[string]string{}, nil
	}

	quoted := make([]string, len(codes))
	for i, code := range codes {
		quoted[i] = "'" + escapeSoql(code) + "'"
	}
	soql := fmt.Sprintf(
		"SELECT Id, Account_Code__c FROM Account WHERE Account_Code__c IN (%s)",
		strings.Join(quoted, ", "),
	)

	var refs []accountRef
	if err := c.Query(ctx, soql, &refs); err != nil {
		return nil, eris.Wrap(err, "sf: find accounts by code")
	}

	ids := make(map[string]string, len(refs))
	for _, r := range refs {
		ids[r.Code] = r.ID
	}
	return ids, nil
}

// escapeSoql escapes single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
