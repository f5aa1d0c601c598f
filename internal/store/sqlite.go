package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/salespulse/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS accounts (
	canonical_code TEXT PRIMARY KEY,
	base_code      TEXT NOT NULL,
	ship_to_code   TEXT,
	name           TEXT,
	address        TEXT,
	sales_rep      TEXT,
	distributor    TEXT,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS transactions (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	canonical_code TEXT NOT NULL,
	posting_date   DATE NOT NULL,
	item_code      TEXT,
	description    TEXT,
	quantity       REAL NOT NULL DEFAULT 0,
	revenue        REAL NOT NULL DEFAULT 0,
	duplicate_rank INTEGER NOT NULL DEFAULT 0,
	content_hash   TEXT NOT NULL UNIQUE,
	name           TEXT,
	sales_rep      TEXT,
	distributor    TEXT
);

CREATE TABLE IF NOT EXISTS year_summaries (
	canonical_code    TEXT NOT NULL,
	year              INTEGER NOT NULL,
	total_revenue     REAL NOT NULL DEFAULT 0,
	transaction_count INTEGER NOT NULL DEFAULT 0,
	products          TEXT NOT NULL DEFAULT '[]',
	PRIMARY KEY (canonical_code, year)
);

CREATE TABLE IF NOT EXISTS account_metrics (
	canonical_code TEXT PRIMARY KEY,
	rfm_segment    TEXT,
	health_score   REAL NOT NULL DEFAULT 0,
	priority_score REAL NOT NULL DEFAULT 0,
	calculated_at  DATETIME NOT NULL,
	data           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS processed_files (
	name         TEXT PRIMARY KEY,
	processed_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_txn_code_date ON transactions(canonical_code, posting_date);
CREATE INDEX IF NOT EXISTS idx_txn_code ON transactions(canonical_code);
CREATE INDEX IF NOT EXISTS idx_metrics_segment ON account_metrics(rfm_segment);
CREATE INDEX IF NOT EXISTS idx_metrics_priority ON account_metrics(priority_score);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertAccounts(ctx context.Context, accounts []model.Account) error {
	if len(accounts) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin upsert accounts")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO accounts (canonical_code, base_code, ship_to_code, name, address, sales_rep, distributor, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(canonical_code) DO UPDATE SET
			name = excluded.name,
			sales_rep = excluded.sales_rep,
			distributor = excluded.distributor,
			updated_at = excluded.updated_at`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare upsert accounts")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, a := range accounts {
		created := a.CreatedAt
		if created.IsZero() {
			created = now
		}
		if _, err := stmt.ExecContext(ctx,
			a.CanonicalCode, a.BaseCode, a.ShipToCode, a.Name, a.Address,
			a.SalesRep, a.Distributor, created, now,
		); err != nil {
			return eris.Wrapf(err, "sqlite: upsert account %s", a.CanonicalCode)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit upsert accounts")
}

func (s *SQLiteStore) GetAccount(ctx context.Context, canonicalCode string) (*model.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT canonical_code, base_code, COALESCE(ship_to_code, ''), COALESCE(name, ''),
		       COALESCE(address, ''), COALESCE(sales_rep, ''), COALESCE(distributor, ''),
		       created_at, updated_at
		FROM accounts WHERE canonical_code = ?`, canonicalCode)

	var a model.Account
	err := row.Scan(&a.CanonicalCode, &a.BaseCode, &a.ShipToCode, &a.Name,
		&a.Address, &a.SalesRep, &a.Distributor, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get account %s", canonicalCode)
	}
	return &a, nil
}

func (s *SQLiteStore) ListAccountCodes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT canonical_code FROM accounts ORDER BY canonical_code`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list account codes")
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan account code")
		}
		codes = append(codes, code)
	}
	return codes, eris.Wrap(rows.Err(), "sqlite: list account codes iterate")
}

func (s *SQLiteStore) UpsertTransactions(ctx context.Context, txns []model.Transaction) (int, error) {
	if len(txns) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert transactions")
	}
	defer tx.Rollback()

	var before int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&before); err != nil {
		return 0, eris.Wrap(err, "sqlite: count before upsert")
	}

	// Identity keys never change on conflict; only display fields move.
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (canonical_code, posting_date, item_code, description,
			quantity, revenue, duplicate_rank, content_hash, name, sales_rep, distributor)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_hash) DO UPDATE SET
			description = excluded.description,
			name = excluded.name,
			sales_rep = excluded.sales_rep,
			distributor = excluded.distributor`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert transactions")
	}
	defer stmt.Close()

	for _, t := range txns {
		if _, err := stmt.ExecContext(ctx,
			t.CanonicalCode, t.PostingDate.Format("2006-01-02"), t.ItemCode, t.Description,
			t.Quantity, t.Revenue, t.DuplicateRank, t.ContentHash, t.Name, t.SalesRep, t.Distributor,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert transaction %s", t.ContentHash)
		}
	}

	var after int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&after); err != nil {
		return 0, eris.Wrap(err, "sqlite: count after upsert")
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert transactions")
	}
	return after - before, nil
}

func (s *SQLiteStore) GetTransactions(ctx context.Context, canonicalCodes []string) (map[string][]model.Transaction, error) {
	result := make(map[string][]model.Transaction, len(canonicalCodes))
	if len(canonicalCodes) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(canonicalCodes)), ",")
	args := make([]any, len(canonicalCodes))
	for i, c := range canonicalCodes {
		args[i] = c
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, canonical_code, posting_date, COALESCE(item_code, ''), COALESCE(description, ''),
		       quantity, revenue, duplicate_rank, content_hash,
		       COALESCE(name, ''), COALESCE(sales_rep, ''), COALESCE(distributor, '')
		FROM transactions
		WHERE canonical_code IN (`+placeholders+`)
		ORDER BY canonical_code, posting_date, id`, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get transactions")
	}
	defer rows.Close()

	for rows.Next() {
		var t model.Transaction
		var dateStr string
		if err := rows.Scan(&t.ID, &t.CanonicalCode, &dateStr, &t.ItemCode, &t.Description,
			&t.Quantity, &t.Revenue, &t.DuplicateRank, &t.ContentHash,
			&t.Name, &t.SalesRep, &t.Distributor); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan transaction")
		}
		t.PostingDate, err = parseStoredDate(dateStr)
		if err != nil {
			return nil, err
		}
		result[t.CanonicalCode] = append(result[t.CanonicalCode], t)
	}
	return result, eris.Wrap(rows.Err(), "sqlite: get transactions iterate")
}

func (s *SQLiteStore) CountTransactions(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count transactions")
}

// RecomputeYearSummaries rebuilds each touched (account, year) summary
// from the ledger. Always a full recompute; deltas would break retry
// safety.
func (s *SQLiteStore) RecomputeYearSummaries(ctx context.Context, keys []model.YearKey) error {
	if len(keys) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin recompute summaries")
	}
	defer tx.Rollback()

	for _, key := range keys {
		var total float64
		var count int
		err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(SUM(revenue), 0), COUNT(*)
			FROM transactions
			WHERE canonical_code = ? AND CAST(strftime('%Y', posting_date) AS INTEGER) = ?`,
			key.CanonicalCode, key.Year,
		).Scan(&total, &count)
		if err != nil {
			return eris.Wrapf(err, "sqlite: aggregate %s/%d", key.CanonicalCode, key.Year)
		}

		if count == 0 {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM year_summaries WHERE canonical_code = ? AND year = ?`,
				key.CanonicalCode, key.Year); err != nil {
				return eris.Wrapf(err, "sqlite: delete empty summary %s/%d", key.CanonicalCode, key.Year)
			}
			continue
		}

		products, err := distinctProducts(ctx, tx, key)
		if err != nil {
			return err
		}
		productsJSON, err := json.Marshal(products)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal products")
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO year_summaries (canonical_code, year, total_revenue, transaction_count, products)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(canonical_code, year) DO UPDATE SET
				total_revenue = excluded.total_revenue,
				transaction_count = excluded.transaction_count,
				products = excluded.products`,
			key.CanonicalCode, key.Year, total, count, string(productsJSON),
		); err != nil {
			return eris.Wrapf(err, "sqlite: upsert summary %s/%d", key.CanonicalCode, key.Year)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit recompute summaries")
}

func distinctProducts(ctx context.Context, tx *sql.Tx, key model.YearKey) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT DISTINCT item_code FROM transactions
		WHERE canonical_code = ? AND CAST(strftime('%Y', posting_date) AS INTEGER) = ?
		  AND item_code IS NOT NULL AND item_code != ''
		ORDER BY item_code`,
		key.CanonicalCode, key.Year)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: distinct products %s/%d", key.CanonicalCode, key.Year)
	}
	defer rows.Close()

	products := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan product")
		}
		products = append(products, p)
	}
	return products, eris.Wrap(rows.Err(), "sqlite: distinct products iterate")
}

func (s *SQLiteStore) GetYearSummaries(ctx context.Context, canonicalCodes []string) (map[string][]model.YearSummary, error) {
	result := make(map[string][]model.YearSummary, len(canonicalCodes))
	if len(canonicalCodes) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(canonicalCodes)), ",")
	args := make([]any, len(canonicalCodes))
	for i, c := range canonicalCodes {
		args[i] = c
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT canonical_code, year, total_revenue, transaction_count, products
		FROM year_summaries
		WHERE canonical_code IN (`+placeholders+`)
		ORDER BY canonical_code, year`, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get year summaries")
	}
	defer rows.Close()

	for rows.Next() {
		ys, err := scanYearSummary(rows)
		if err != nil {
			return nil, err
		}
		result[ys.CanonicalCode] = append(result[ys.CanonicalCode], *ys)
	}
	return result, eris.Wrap(rows.Err(), "sqlite: get year summaries iterate")
}

func (s *SQLiteStore) ListYearSummaries(ctx context.Context) ([]model.YearSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT canonical_code, year, total_revenue, transaction_count, products
		FROM year_summaries ORDER BY canonical_code, year`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list year summaries")
	}
	defer rows.Close()

	var summaries []model.YearSummary
	for rows.Next() {
		ys, err := scanYearSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *ys)
	}
	return summaries, eris.Wrap(rows.Err(), "sqlite: list year summaries iterate")
}

func (s *SQLiteStore) SaveMetrics(ctx context.Context, metrics []model.AccountMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save metrics")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO account_metrics (canonical_code, rfm_segment, health_score, priority_score, calculated_at, data)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(canonical_code) DO UPDATE SET
			rfm_segment = excluded.rfm_segment,
			health_score = excluded.health_score,
			priority_score = excluded.priority_score,
			calculated_at = excluded.calculated_at,
			data = excluded.data`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare save metrics")
	}
	defer stmt.Close()

	for _, m := range metrics {
		data, err := json.Marshal(m)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal metrics %s", m.CanonicalCode)
		}
		if _, err := stmt.ExecContext(ctx,
			m.CanonicalCode, m.RFMSegment, m.HealthScore, m.PriorityScore,
			m.CalculatedAt, string(data),
		); err != nil {
			return eris.Wrapf(err, "sqlite: save metrics %s", m.CanonicalCode)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save metrics")
}

func (s *SQLiteStore) GetMetrics(ctx context.Context, canonicalCode string) (*model.AccountMetrics, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT data FROM account_metrics WHERE canonical_code = ?`, canonicalCode)

	var data string
	err := row.Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get metrics %s", canonicalCode)
	}

	var m model.AccountMetrics
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal metrics %s", canonicalCode)
	}
	return &m, nil
}

func (s *SQLiteStore) ListMetrics(ctx context.Context, filter MetricsFilter) ([]model.AccountMetrics, error) {
	query := `SELECT data FROM account_metrics WHERE 1=1`
	var args []any

	if filter.Segment != "" {
		query += ` AND rfm_segment = ?`
		args = append(args, filter.Segment)
	}
	if filter.MinPriority > 0 {
		query += ` AND priority_score >= ?`
		args = append(args, filter.MinPriority)
	}
	if filter.MaxHealth > 0 {
		query += ` AND health_score <= ?`
		args = append(args, filter.MaxHealth)
	}
	query += ` ORDER BY priority_score DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list metrics")
	}
	defer rows.Close()

	var metrics []model.AccountMetrics
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan metrics")
		}
		var m model.AccountMetrics
		if err := json.Unmarshal([]byte(data), &m); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal metrics")
		}
		metrics = append(metrics, m)
	}
	return metrics, eris.Wrap(rows.Err(), "sqlite: list metrics iterate")
}

func (s *SQLiteStore) MarkFileProcessed(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO processed_files (name, processed_at) VALUES (?, datetime('now'))
		 ON CONFLICT(name) DO NOTHING`, name)
	return eris.Wrapf(err, "sqlite: mark file processed %s", name)
}

func (s *SQLiteStore) IsFileProcessed(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM processed_files WHERE name = ?`, name).Scan(&n)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: check file processed %s", name)
	}
	return n > 0, nil
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanYearSummary(row scannable) (*model.YearSummary, error) {
	var ys model.YearSummary
	var productsJSON string
	if err := row.Scan(&ys.CanonicalCode, &ys.Year, &ys.TotalRevenue,
		&ys.TransactionCount, &productsJSON); err != nil {
		return nil, eris.Wrap(err, "sqlite: scan year summary")
	}
	if err := json.Unmarshal([]byte(productsJSON), &ys.Products); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal products")
	}
	return &ys, nil
}

func parseStoredDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, eris.Errorf("sqlite: unparseable stored date %q", s)
}
