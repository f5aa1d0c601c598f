package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/salespulse/internal/db"
	"github.com/sells-group/salespulse/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_account": `SELECT canonical_code, base_code, COALESCE(ship_to_code, ''), COALESCE(name, ''),
		COALESCE(address, ''), COALESCE(sales_rep, ''), COALESCE(distributor, ''), created_at, updated_at
		FROM accounts WHERE canonical_code = $1`,
	"get_metrics":        `SELECT data FROM account_metrics WHERE canonical_code = $1`,
	"count_transactions": `SELECT COUNT(*) FROM transactions`,
	"is_file_processed":  `SELECT COUNT(*) FROM processed_files WHERE name = $1`,
	"mark_file_processed": `INSERT INTO processed_files (name, processed_at) VALUES ($1, now())
		ON CONFLICT (name) DO NOTHING`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	return NewPostgresWithConfig(ctx, connString, nil)
}

// NewPostgresWithConfig creates a PostgresStore with explicit pool tuning.
func NewPostgresWithConfig(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS accounts (
	canonical_code TEXT PRIMARY KEY,
	base_code      TEXT NOT NULL,
	ship_to_code   TEXT,
	name           TEXT,
	address        TEXT,
	sales_rep      TEXT,
	distributor    TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS transactions (
	id             BIGSERIAL PRIMARY KEY,
	canonical_code TEXT NOT NULL,
	posting_date   DATE NOT NULL,
	item_code      TEXT,
	description    TEXT,
	quantity       DOUBLE PRECISION NOT NULL DEFAULT 0,
	revenue        DOUBLE PRECISION NOT NULL DEFAULT 0,
	duplicate_rank INTEGER NOT NULL DEFAULT 0,
	content_hash   TEXT NOT NULL UNIQUE,
	name           TEXT,
	sales_rep      TEXT,
	distributor    TEXT
);

CREATE TABLE IF NOT EXISTS year_summaries (
	canonical_code    TEXT NOT NULL,
	year              INTEGER NOT NULL,
	total_revenue     DOUBLE PRECISION NOT NULL DEFAULT 0,
	transaction_count INTEGER NOT NULL DEFAULT 0,
	products          JSONB NOT NULL DEFAULT '[]'::jsonb,
	PRIMARY KEY (canonical_code, year)
);

CREATE TABLE IF NOT EXISTS account_metrics (
	canonical_code TEXT PRIMARY KEY,
	rfm_segment    TEXT,
	health_score   DOUBLE PRECISION NOT NULL DEFAULT 0,
	priority_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	calculated_at  TIMESTAMPTZ NOT NULL,
	data           JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS processed_files (
	name         TEXT PRIMARY KEY,
	processed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_txn_code_date ON transactions(canonical_code, posting_date);
CREATE INDEX IF NOT EXISTS idx_txn_code ON transactions(canonical_code);
CREATE INDEX IF NOT EXISTS idx_metrics_segment ON account_metrics(rfm_segment);
CREATE INDEX IF NOT EXISTS idx_metrics_priority ON account_metrics(priority_score);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertAccounts(ctx context.Context, accounts []model.Account) error {
	if len(accounts) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([][]any, 0, len(accounts))
	for _, a := range accounts {
		created := a.CreatedAt
		if created.IsZero() {
			created = now
		}
		rows = append(rows, []any{
			a.CanonicalCode, a.BaseCode, a.ShipToCode, a.Name, a.Address,
			a.SalesRep, a.Distributor, created, now,
		})
	}

	// created_at is excluded from the update set so the first ingest wins.
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table: "accounts",
		Columns: []string{"canonical_code", "base_code", "ship_to_code", "name",
			"address", "sales_rep", "distributor", "created_at", "updated_at"},
		ConflictKeys: []string{"canonical_code"},
		UpdateCols:   []string{"name", "sales_rep", "distributor", "updated_at"},
	}, rows)
	return eris.Wrap(err, "postgres: upsert accounts")
}

func (s *PostgresStore) GetAccount(ctx context.Context, canonicalCode string) (*model.Account, error) {
	var a model.Account
	err := s.pool.QueryRow(ctx,
		`SELECT canonical_code, base_code, COALESCE(ship_to_code, ''), COALESCE(name, ''),
		        COALESCE(address, ''), COALESCE(sales_rep, ''), COALESCE(distributor, ''),
		        created_at, updated_at
		 FROM accounts WHERE canonical_code = $1`,
		canonicalCode,
	).Scan(&a.CanonicalCode, &a.BaseCode, &a.ShipToCode, &a.Name,
		&a.Address, &a.SalesRep, &a.Distributor, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get account %s", canonicalCode)
	}
	return &a, nil
}

func (s *PostgresStore) ListAccountCodes(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT canonical_code FROM accounts ORDER BY canonical_code`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list account codes")
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, eris.Wrap(err, "postgres: scan account code")
		}
		codes = append(codes, code)
	}
	return codes, eris.Wrap(rows.Err(), "postgres: list account codes iterate")
}

func (s *PostgresStore) UpsertTransactions(ctx context.Context, txns []model.Transaction) (int, error) {
	if len(txns) == 0 {
		return 0, nil
	}

	var before int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&before); err != nil {
		return 0, eris.Wrap(err, "postgres: count before upsert")
	}

	rows := make([][]any, 0, len(txns))
	for _, t := range txns {
		rows = append(rows, []any{
			t.CanonicalCode, t.PostingDate, t.ItemCode, t.Description,
			t.Quantity, t.Revenue, t.DuplicateRank, t.ContentHash,
			t.Name, t.SalesRep, t.Distributor,
		})
	}

	// Identity keys never change on conflict; only display fields move.
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table: "transactions",
		Columns: []string{"canonical_code", "posting_date", "item_code", "description",
			"quantity", "revenue", "duplicate_rank", "content_hash",
			"name", "sales_rep", "distributor"},
		ConflictKeys: []string{"content_hash"},
		UpdateCols:   []string{"description", "name", "sales_rep", "distributor"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert transactions")
	}

	var after int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&after); err != nil {
		return 0, eris.Wrap(err, "postgres: count after upsert")
	}
	return after - before, nil
}

func (s *PostgresStore) GetTransactions(ctx context.Context, canonicalCodes []string) (map[string][]model.Transaction, error) {
	result := make(map[string][]model.Transaction, len(canonicalCodes))
	if len(canonicalCodes) == 0 {
		return result, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, canonical_code, posting_date, COALESCE(item_code, ''), COALESCE(description, ''),
		        quantity, revenue, duplicate_rank, content_hash,
		        COALESCE(name, ''), COALESCE(sales_rep, ''), COALESCE(distributor, '')
		 FROM transactions
		 WHERE canonical_code = ANY($1)
		 ORDER BY canonical_code, posting_date, id`,
		canonicalCodes)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get transactions")
	}
	defer rows.Close()

	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.CanonicalCode, &t.PostingDate, &t.ItemCode, &t.Description,
			&t.Quantity, &t.Revenue, &t.DuplicateRank, &t.ContentHash,
			&t.Name, &t.SalesRep, &t.Distributor); err != nil {
			return nil, eris.Wrap(err, "postgres: scan transaction")
		}
		t.PostingDate = t.PostingDate.UTC()
		result[t.CanonicalCode] = append(result[t.CanonicalCode], t)
	}
	return result, eris.Wrap(rows.Err(), "postgres: get transactions iterate")
}

func (s *PostgresStore) CountTransactions(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count transactions")
}

// RecomputeYearSummaries rebuilds each touched (account, year) summary
// from the ledger. Always a full recompute; deltas would break retry
// safety.
func (s *PostgresStore) RecomputeYearSummaries(ctx context.Context, keys []model.YearKey) error {
	if len(keys) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin recompute summaries")
	}
	defer tx.Rollback(ctx)

	for _, key := range keys {
		var total float64
		var count int
		err := tx.QueryRow(ctx,
			`SELECT COALESCE(SUM(revenue), 0), COUNT(*)
			 FROM transactions
			 WHERE canonical_code = $1 AND EXTRACT(YEAR FROM posting_date)::int = $2`,
			key.CanonicalCode, key.Year,
		).Scan(&total, &count)
		if err != nil {
			return eris.Wrapf(err, "postgres: aggregate %s/%d", key.CanonicalCode, key.Year)
		}

		if count == 0 {
			if _, err := tx.Exec(ctx,
				`DELETE FROM year_summaries WHERE canonical_code = $1 AND year = $2`,
				key.CanonicalCode, key.Year); err != nil {
				return eris.Wrapf(err, "postgres: delete empty summary %s/%d", key.CanonicalCode, key.Year)
			}
			continue
		}

		products, err := pgDistinctProducts(ctx, tx, key)
		if err != nil {
			return err
		}
		productsJSON, err := json.Marshal(products)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal products")
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO year_summaries (canonical_code, year, total_revenue, transaction_count, products)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (canonical_code, year) DO UPDATE SET
				total_revenue = EXCLUDED.total_revenue,
				transaction_count = EXCLUDED.transaction_count,
				products = EXCLUDED.products`,
			key.CanonicalCode, key.Year, total, count, productsJSON,
		); err != nil {
			return eris.Wrapf(err, "postgres: upsert summary %s/%d", key.CanonicalCode, key.Year)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit recompute summaries")
}

func pgDistinctProducts(ctx context.Context, tx pgx.Tx, key model.YearKey) ([]string, error) {
	rows, err := tx.Query(ctx,
		`SELECT DISTINCT item_code FROM transactions
		 WHERE canonical_code = $1 AND EXTRACT(YEAR FROM posting_date)::int = $2
		   AND item_code IS NOT NULL AND item_code <> ''
		 ORDER BY item_code`,
		key.CanonicalCode, key.Year)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: distinct products %s/%d", key.CanonicalCode, key.Year)
	}
	defer rows.Close()

	products := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, eris.Wrap(err, "postgres: scan product")
		}
		products = append(products, p)
	}
	return products, eris.Wrap(rows.Err(), "postgres: distinct products iterate")
}

func (s *PostgresStore) GetYearSummaries(ctx context.Context, canonicalCodes []string) (map[string][]model.YearSummary, error) {
	result := make(map[string][]model.YearSummary, len(canonicalCodes))
	if len(canonicalCodes) == 0 {
		return result, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT canonical_code, year, total_revenue, transaction_count, products
		 FROM year_summaries
		 WHERE canonical_code = ANY($1)
		 ORDER BY canonical_code, year`,
		canonicalCodes)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get year summaries")
	}
	defer rows.Close()

	for rows.Next() {
		ys, err := pgScanYearSummary(rows)
		if err != nil {
			return nil, err
		}
		result[ys.CanonicalCode] = append(result[ys.CanonicalCode], *ys)
	}
	return result, eris.Wrap(rows.Err(), "postgres: get year summaries iterate")
}

func (s *PostgresStore) ListYearSummaries(ctx context.Context) ([]model.YearSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT canonical_code, year, total_revenue, transaction_count, products
		 FROM year_summaries ORDER BY canonical_code, year`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list year summaries")
	}
	defer rows.Close()

	var summaries []model.YearSummary
	for rows.Next() {
		ys, err := pgScanYearSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *ys)
	}
	return summaries, eris.Wrap(rows.Err(), "postgres: list year summaries iterate")
}

func pgScanYearSummary(row scannable) (*model.YearSummary, error) {
	var ys model.YearSummary
	var productsJSON []byte
	if err := row.Scan(&ys.CanonicalCode, &ys.Year, &ys.TotalRevenue,
		&ys.TransactionCount, &productsJSON); err != nil {
		return nil, eris.Wrap(err, "postgres: scan year summary")
	}
	if err := json.Unmarshal(productsJSON, &ys.Products); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal products")
	}
	return &ys, nil
}

func (s *PostgresStore) SaveMetrics(ctx context.Context, metrics []model.AccountMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(metrics))
	for _, m := range metrics {
		data, err := json.Marshal(m)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal metrics %s", m.CanonicalCode)
		}
		rows = append(rows, []any{
			m.CanonicalCode, m.RFMSegment, m.HealthScore, m.PriorityScore,
			m.CalculatedAt, data,
		})
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table: "account_metrics",
		Columns: []string{"canonical_code", "rfm_segment", "health_score",
			"priority_score", "calculated_at", "data"},
		ConflictKeys: []string{"canonical_code"},
	}, rows)
	return eris.Wrap(err, "postgres: save metrics")
}

func (s *PostgresStore) GetMetrics(ctx context.Context, canonicalCode string) (*model.AccountMetrics, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM account_metrics WHERE canonical_code = $1`,
		canonicalCode,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get metrics %s", canonicalCode)
	}

	var m model.AccountMetrics
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal metrics %s", canonicalCode)
	}
	return &m, nil
}

func (s *PostgresStore) ListMetrics(ctx context.Context, filter MetricsFilter) ([]model.AccountMetrics, error) {
	query := `SELECT data FROM account_metrics WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Segment != "" {
		query += fmt.Sprintf(` AND rfm_segment = $%d`, argIdx)
		args = append(args, filter.Segment)
		argIdx++
	}
	if filter.MinPriority > 0 {
		query += fmt.Sprintf(` AND priority_score >= $%d`, argIdx)
		args = append(args, filter.MinPriority)
		argIdx++
	}
	if filter.MaxHealth > 0 {
		query += fmt.Sprintf(` AND health_score <= $%d`, argIdx)
		args = append(args, filter.MaxHealth)
		argIdx++
	}
	query += ` ORDER BY priority_score DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list metrics")
	}
	defer rows.Close()

	var metrics []model.AccountMetrics
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan metrics")
		}
		var m model.AccountMetrics
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal metrics")
		}
		metrics = append(metrics, m)
	}
	return metrics, eris.Wrap(rows.Err(), "postgres: list metrics iterate")
}

func (s *PostgresStore) MarkFileProcessed(ctx context.Context, name string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO processed_files (name, processed_at) VALUES ($1, now())
		 ON CONFLICT (name) DO NOTHING`, name)
	return eris.Wrapf(err, "postgres: mark file processed %s", name)
}

func (s *PostgresStore) IsFileProcessed(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM processed_files WHERE name = $1`, name).Scan(&n)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: check file processed %s", name)
	}
	return n > 0, nil
}
