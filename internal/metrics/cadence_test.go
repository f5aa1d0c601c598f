package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/salespulse/internal/model"
)

func txnOn(day time.Time, revenue float64) model.Transaction {
	return model.Transaction{PostingDate: day, Revenue: revenue}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeCadence_NoHistory(t *testing.T) {
	c := ComputeCadence(nil, day(2025, 6, 15))
	assert.Equal(t, 30, c.MedianIntervalDays)
	assert.Nil(t, c.LastPurchaseDate)
	assert.Nil(t, c.NextExpectedDate)
	assert.Nil(t, c.AvgIntervalCYTD)
	assert.Nil(t, c.AvgIntervalPY)
	assert.Equal(t, 0, c.DaysOverdue)
}

func TestComputeCadence_SingleDate(t *testing.T) {
	c := ComputeCadence([]model.Transaction{txnOn(day(2025, 6, 1), 10)}, day(2025, 6, 15))
	assert.Equal(t, 30, c.MedianIntervalDays)
	require.NotNil(t, c.LastPurchaseDate)
	assert.Equal(t, day(2025, 6, 1), *c.LastPurchaseDate)
	require.NotNil(t, c.NextExpectedDate)
	assert.Equal(t, day(2025, 7, 1), *c.NextExpectedDate)
	assert.Equal(t, 0, c.DaysOverdue)
}

func TestComputeCadence_MedianOfGaps(t *testing.T) {
	// Gaps of 10, 20, and 30 days.
	txns := []model.Transaction{
		txnOn(day(2025, 1, 1), 1),
		txnOn(day(2025, 1, 11), 1),
		txnOn(day(2025, 1, 31), 1),
		txnOn(day(2025, 3, 2), 1),
	}
	c := ComputeCadence(txns, day(2025, 3, 15))
	assert.Equal(t, 20, c.MedianIntervalDays)
}

func TestComputeCadence_DuplicateDatesCollapse(t *testing.T) {
	// Three deliveries on the same day are one purchase occasion.
	txns := []model.Transaction{
		txnOn(day(2025, 1, 1), 1),
		txnOn(day(2025, 1, 1), 2),
		txnOn(day(2025, 1, 1), 3),
		txnOn(day(2025, 1, 8), 1),
	}
	c := ComputeCadence(txns, day(2025, 1, 20))
	assert.Equal(t, 7, c.MedianIntervalDays)
}

func TestComputeCadence_MedianNeverBelowOne(t *testing.T) {
	txns := []model.Transaction{
		txnOn(day(2025, 1, 1), 1),
		txnOn(day(2025, 1, 2), 1),
		txnOn(day(2025, 1, 3), 1),
	}
	c := ComputeCadence(txns, day(2025, 2, 1))
	assert.GreaterOrEqual(t, c.MedianIntervalDays, 1)
}

func TestComputeCadence_DaysOverdue(t *testing.T) {
	// Gaps of 10 days, last purchase Jan 21, so Jan 31 was expected.
	txns := []model.Transaction{
		txnOn(day(2025, 1, 1), 1),
		txnOn(day(2025, 1, 11), 1),
		txnOn(day(2025, 1, 21), 1),
	}
	c := ComputeCadence(txns, day(2025, 6, 15))
	require.NotNil(t, c.NextExpectedDate)
	assert.Equal(t, day(2025, 1, 31), *c.NextExpectedDate)
	assert.Equal(t, 135, c.DaysOverdue)
}

func TestComputeCadence_WindowedAverages(t *testing.T) {
	now := day(2025, 6, 15)
	txns := []model.Transaction{
		// Prior year: one 61-day gap.
		txnOn(day(2024, 3, 1), 1),
		txnOn(day(2024, 5, 1), 1),
		// Current year: gaps of 28 and 31 days.
		txnOn(day(2025, 2, 1), 1),
		txnOn(day(2025, 3, 1), 1),
		txnOn(day(2025, 4, 1), 1),
	}
	c := ComputeCadence(txns, now)
	require.NotNil(t, c.AvgIntervalCYTD)
	assert.InDelta(t, 29.5, *c.AvgIntervalCYTD, 0.001)
	require.NotNil(t, c.AvgIntervalPY)
	assert.InDelta(t, 61.0, *c.AvgIntervalPY, 0.001)
}

func TestComputeCadence_WindowedAveragesNeedTwoDates(t *testing.T) {
	txns := []model.Transaction{
		txnOn(day(2024, 3, 1), 1),
		txnOn(day(2025, 2, 1), 1),
	}
	c := ComputeCadence(txns, day(2025, 6, 15))
	assert.Nil(t, c.AvgIntervalCYTD)
	assert.Nil(t, c.AvgIntervalPY)
}
