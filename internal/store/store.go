package store

import (
	"context"

	"github.com/sells-group/salespulse/internal/model"
)

// MetricsFilter specifies criteria for listing account metrics.
type MetricsFilter struct {
	Segment     string  `json:"segment,omitempty"`
	MinPriority float64 `json:"min_priority,omitempty"`
	MaxHealth   float64 `json:"max_health,omitempty"`
	Limit       int     `json:"limit,omitempty"`
	Offset      int     `json:"offset,omitempty"`
}

// Store defines the persistence interface for the identity ledger and
// the recalculated metrics.
type Store interface {
	// Accounts
	UpsertAccounts(ctx context.Context, accounts []model.Account) error
	GetAccount(ctx context.Context, canonicalCode string) (*model.Account, error)
	ListAccountCodes(ctx context.Context) ([]string, error)

	// Transaction ledger. UpsertTransactions is keyed by content hash:
	// new hashes insert, existing hashes update display fields only.
	UpsertTransactions(ctx context.Context, txns []model.Transaction) (inserted int, err error)
	GetTransactions(ctx context.Context, canonicalCodes []string) (map[string][]model.Transaction, error)
	CountTransactions(ctx context.Context) (int, error)

	// Year summaries, always recomputed from the ledger.
	RecomputeYearSummaries(ctx context.Context, keys []model.YearKey) error
	GetYearSummaries(ctx context.Context, canonicalCodes []string) (map[string][]model.YearSummary, error)
	ListYearSummaries(ctx context.Context) ([]model.YearSummary, error)

	// Metrics, replaced wholesale per sweep.
	SaveMetrics(ctx context.Context, metrics []model.AccountMetrics) error
	GetMetrics(ctx context.Context, canonicalCode string) (*model.AccountMetrics, error)
	ListMetrics(ctx context.Context, filter MetricsFilter) ([]model.AccountMetrics, error)

	// Processed ingest files, so a fetch run can skip repeats.
	MarkFileProcessed(ctx context.Context, name string) error
	IsFileProcessed(ctx context.Context, name string) (bool, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// New opens a store for the given driver.
func New(driver, databaseURL string) (Store, error) {
	if driver == "postgres" {
		return NewPostgres(context.Background(), databaseURL)
	}
	return NewSQLite(databaseURL)
}
