package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// StatisticsID keys the one aggregate row holding campaign-wide totals.
const StatisticsID int64 = 1

var ErrConflictRetriesExhausted = errors.New("statistics_conflict_retries_exhausted")

// Statistics is the public-facing running total. It is only ever
// incremented, never recomputed from a scan.
type Statistics struct {
	ID             int64           `gorm:"column:id"`
	TotalDonations decimal.Decimal `gorm:"column:total_donations"`
	TotalDonors    int64           `gorm:"column:total_donors"`
	MealsServed    int64           `gorm:"column:meals_served"`
	Version        int64           `gorm:"column:version"`
	LastUpdated    time.Time       `gorm:"column:last_updated"`
}

type Service interface {
	// Record applies exactly one increment for one confirmed donation.
	// Callers guarantee at-most-once invocation per donation; Record
	// guarantees the increment survives concurrent writers or reports
	// failure loudly.
	Record(ctx context.Context, amount decimal.Decimal) error

	// Get returns the aggregate, a zeroed default when none exists yet.
	Get(ctx context.Context) (*Statistics, error)

	// MealsFor converts a donation amount into funded meals (integer floor).
	MealsFor(amount decimal.Decimal) int64
}
