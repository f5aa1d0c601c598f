package metrics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/salespulse/internal/config"
	"github.com/sells-group/salespulse/internal/model"
	"github.com/sells-group/salespulse/internal/store"
)

// Sweeper recalculates every account's metrics from scratch.
type Sweeper struct {
	store   store.Store
	scoring config.ScoringConfig
	growth  config.GrowthConfig
	batch   int

	// now is swappable for tests.
	now func() time.Time
}

// SweepReport summarizes one recalculation run.
type SweepReport struct {
	RunID    string        `json:"run_id"`
	Accounts int           `json:"accounts"`
	Scored   int           `json:"scored"`
	Skipped  int           `json:"skipped"`
	Batches  int           `json:"batches"`
	Elapsed  time.Duration `json:"elapsed"`
}

// NewSweeper builds a Sweeper with the given batch size.
func NewSweeper(st store.Store, scoring config.ScoringConfig, growth config.GrowthConfig, batchSize int) *Sweeper {
	if batchSize < 1 {
		batchSize = 100
	}
	return &Sweeper{
		store:   st,
		scoring: scoring,
		growth:  growth,
		batch:   batchSize,
		now:     time.Now,
	}
}

// draft is the per-account intermediate state between the batched data
// pass and the population-level RFM pass.
type draft struct {
	code       string
	cadence    Cadence
	projection Projection
	lifetime   float64
	count      int
}

// Run executes a full recalculation sweep. Per-account failures are
// logged and skipped; the sweep itself fails only on storage errors.
func (s *Sweeper) Run(ctx context.Context) (*SweepReport, error) {
	start := s.now()
	runID := uuid.New().String()
	now := start.UTC()

	var codes []string
	var summaries []model.YearSummary

	// The account list and the summary table are independent reads.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		codes, err = s.store.ListAccountCodes(gctx)
		return eris.Wrap(err, "metrics: list account codes")
	})
	g.Go(func() error {
		var err error
		summaries, err = s.store.ListYearSummaries(gctx)
		return eris.Wrap(err, "metrics: list year summaries")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	lookups := BuildLookups(summaries, s.scoring)
	report := &SweepReport{RunID: runID, Accounts: len(codes)}

	zap.L().Info("metrics: sweep starting",
		zap.String("run_id", runID),
		zap.Int("accounts", len(codes)),
		zap.Int("batch_size", s.batch))

	// Pass 1: batched ledger reads, per-account cadence and projection.
	drafts := make([]draft, 0, len(codes))
	for i := 0; i < len(codes); i += s.batch {
		end := i + s.batch
		if end > len(codes) {
			end = len(codes)
		}
		batch := codes[i:end]
		report.Batches++

		txnsByCode, err := s.store.GetTransactions(ctx, batch)
		if err != nil {
			return nil, eris.Wrapf(err, "metrics: fetch transactions batch %d", report.Batches)
		}
		summariesByCode, err := s.store.GetYearSummaries(ctx, batch)
		if err != nil {
			return nil, eris.Wrapf(err, "metrics: fetch summaries batch %d", report.Batches)
		}

		for _, code := range batch {
			d, ok := s.draftAccount(code, txnsByCode[code], summariesByCode[code], now)
			if !ok {
				report.Skipped++
				continue
			}
			drafts = append(drafts, d)
		}
	}

	// Pass 2: RFM is population-relative, so it needs every account.
	rfmInputs := make([]RFMInput, 0, len(drafts))
	for _, d := range drafts {
		rfmInputs = append(rfmInputs, RFMInput{
			CanonicalCode: d.code,
			DaysSinceLast: daysSinceLast(d.cadence.LastPurchaseDate, now),
			Frequency:     d.count,
			Monetary:      d.lifetime,
		})
	}
	rfmScores := ScoreRFM(rfmInputs)

	// Pass 3: assemble and persist in batches.
	calculatedAt := now
	pending := make([]model.AccountMetrics, 0, s.batch)
	for _, d := range drafts {
		m, ok := s.assemble(d, rfmScores[d.code], lookups, runID, calculatedAt, now)
		if !ok {
			report.Skipped++
			continue
		}
		report.Scored++
		pending = append(pending, m)
		if len(pending) >= s.batch {
			if err := s.store.SaveMetrics(ctx, pending); err != nil {
				return nil, eris.Wrap(err, "metrics: save batch")
			}
			pending = pending[:0]
		}
	}
	if len(pending) > 0 {
		if err := s.store.SaveMetrics(ctx, pending); err != nil {
			return nil, eris.Wrap(err, "metrics: save final batch")
		}
	}

	report.Elapsed = s.now().Sub(start)
	zap.L().Info("metrics: sweep complete",
		zap.String("run_id", runID),
		zap.Int("scored", report.Scored),
		zap.Int("skipped", report.Skipped),
		zap.Duration("elapsed", report.Elapsed))
	return report, nil
}

// draftAccount computes the data-pass figures for one account. A panic
// in scoring one account must not take down the sweep.
func (s *Sweeper) draftAccount(code string, txns []model.Transaction, summaries []model.YearSummary, now time.Time) (d draft, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("metrics: account computation panicked",
				zap.String("canonical_code", code),
				zap.Any("panic", r))
			ok = false
		}
	}()

	d = draft{
		code:       code,
		cadence:    ComputeCadence(txns, now),
		projection: ComputeProjection(txns, summaries, now),
	}
	for _, ys := range summaries {
		d.lifetime += ys.TotalRevenue
		d.count += ys.TransactionCount
	}
	return d, true
}

// assemble scores and packages the final metrics row for one account.
func (s *Sweeper) assemble(d draft, rfm RFMScores, lookups *Lookups, runID string, calculatedAt, now time.Time) (m model.AccountMetrics, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("metrics: account scoring panicked",
				zap.String("canonical_code", d.code),
				zap.Any("panic", r))
			ok = false
		}
	}()

	coverage := lookups.Coverage[d.code]
	health := HealthScore(HealthInput{
		DaysSinceLast:   daysSinceLast(d.cadence.LastPurchaseDate, now),
		Frequency:       d.count,
		LifetimeRevenue: d.lifetime,
		AvgIntervalCYTD: d.cadence.AvgIntervalCYTD,
		AvgIntervalPY:   d.cadence.AvgIntervalPY,
		YEPRevenue:      d.projection.YEPRevenue,
		PYRevenue:       d.projection.PYRevenue,
	}, s.scoring)

	priority := PriorityScore(PriorityInput{
		DaysOverdue:        d.cadence.DaysOverdue,
		MedianIntervalDays: d.cadence.MedianIntervalDays,
		LifetimeRevenue:    d.lifetime,
		RFMSegment:         rfm.Segment,
		HealthScore:        health,
		YEPRevenue:         d.projection.YEPRevenue,
		PYRevenue:          d.projection.PYRevenue,
	})

	growth := ComputeGrowth(GrowthInput{
		CYTDRevenue:        d.projection.CYTDRevenue,
		YEPRevenue:         d.projection.YEPRevenue,
		PYRevenue:          d.projection.PYRevenue,
		PaceStatus:         d.projection.PaceStatus,
		PaceVsLY:           d.projection.PaceVsLY,
		MedianIntervalDays: d.cadence.MedianIntervalDays,
		MissingProducts:    coverage.Missing,
	}, s.growth, now)

	return model.AccountMetrics{
		CanonicalCode: d.code,

		MedianIntervalDays: d.cadence.MedianIntervalDays,
		AvgIntervalCYTD:    d.cadence.AvgIntervalCYTD,
		AvgIntervalPY:      d.cadence.AvgIntervalPY,
		LastPurchaseDate:   d.cadence.LastPurchaseDate,
		NextExpectedDate:   d.cadence.NextExpectedDate,
		DaysOverdue:        d.cadence.DaysOverdue,

		CYTDRevenue:      d.projection.CYTDRevenue,
		YEPRevenue:       d.projection.YEPRevenue,
		PYRevenue:        d.projection.PYRevenue,
		PaceVsLY:         d.projection.PaceVsLY,
		PaceStatus:       d.projection.PaceStatus,
		YoYGrowthPct:     lookups.YoYGrowth[d.code],
		AvgDailyOrder:    d.projection.AvgDailyOrder,
		MedianDailyOrder: d.projection.MedianDailyOrder,

		RecencyScore:   rfm.Recency,
		FrequencyScore: rfm.Frequency,
		MonetaryScore:  rfm.Monetary,
		RFMScore:       rfm.Total,
		RFMSegment:     rfm.Segment,

		HealthScore:    health,
		HealthCategory: HealthCategory(health),

		PriorityScore: priority,

		TargetRevenue:    growth.TargetRevenue,
		AdditionalNeeded: growth.AdditionalNeeded,
		SuggestedOrder:   growth.SuggestedOrder,
		Recommended:      growth.Recommended,
		GrowthMessage:    growth.Message,
		Coverage:         coverage,
		LifetimeRevenue:  d.lifetime,
		LifetimeTxnCount: d.count,
		CalculatedAt:     calculatedAt,
		RecalculationRun: runID,
	}, true
}

// daysSinceLast treats a never-purchased account as 9999 days stale.
func daysSinceLast(last *time.Time, now time.Time) int {
	if last == nil {
		return 9999
	}
	return int(now.UTC().Truncate(24 * time.Hour).Sub(*last).Hours() / 24)
}
