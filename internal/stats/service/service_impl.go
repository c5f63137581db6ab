package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NanaWhan/RamadanApi/internal/config"
	"github.com/NanaWhan/RamadanApi/internal/stats/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxAttempts  = 3
	retryBackoff = 200 * time.Millisecond
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
	Cfg config.Config
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	mealCost decimal.Decimal
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("stats.service"),
		mealCost: p.Cfg.MealCost,
	}
}

func (s *Service) MealsFor(amount decimal.Decimal) int64 {
	if s.mealCost.Sign() <= 0 {
		return 0
	}
	return amount.Div(s.mealCost).Floor().IntPart()
}

// Record increments the singleton aggregate under optimistic concurrency:
// the version-guarded UPDATE loses cleanly when another writer got there
// first, and the whole read-modify-write is retried with linear backoff.
func (s *Service) Record(ctx context.Context, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("invalid statistics increment: %s", amount)
	}
	meals := s.MealsFor(amount)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoff * time.Duration(attempt-1)):
			}
		}

		applied, err := s.tryRecord(ctx, amount, meals)
		if err != nil {
			lastErr = err
			s.log.Warn("statistics update attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}
		if applied {
			return nil
		}
		// Lost the version race; reread and retry.
		lastErr = nil
		s.log.Debug("statistics write conflict, retrying", zap.Int("attempt", attempt))
	}

	if lastErr != nil {
		return fmt.Errorf("%w: %v", domain.ErrConflictRetriesExhausted, lastErr)
	}
	return domain.ErrConflictRetriesExhausted
}

func (s *Service) tryRecord(ctx context.Context, amount decimal.Decimal, meals int64) (bool, error) {
	current, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	now := time.Now().UTC()

	if current == nil {
		result := s.db.WithContext(ctx).Exec(
			`INSERT INTO donation_statistics (id, total_donations, total_donors, meals_served, version, last_updated)
			 VALUES (?, ?, 1, ?, 1, ?)
			 ON CONFLICT (id) DO NOTHING`,
			domain.StatisticsID,
			amount,
			meals,
			now,
		)
		if result.Error != nil {
			return false, result.Error
		}
		// Zero rows means a concurrent writer created the row first.
		return result.RowsAffected > 0, nil
	}

	result := s.db.WithContext(ctx).Exec(
		`UPDATE donation_statistics
		 SET total_donations = ?,
		     total_donors = ?,
		     meals_served = ?,
		     version = ?,
		     last_updated = ?
		 WHERE id = ? AND version = ?`,
		current.TotalDonations.Add(amount),
		current.TotalDonors+1,
		current.MealsServed+meals,
		current.Version+1,
		now,
		domain.StatisticsID,
		current.Version,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *Service) Get(ctx context.Context) (*domain.Statistics, error) {
	current, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return &domain.Statistics{
			ID:             domain.StatisticsID,
			TotalDonations: decimal.Zero,
			LastUpdated:    time.Now().UTC(),
		}, nil
	}
	return current, nil
}

func (s *Service) load(ctx context.Context) (*domain.Statistics, error) {
	var row domain.Statistics
	err := s.db.WithContext(ctx).Raw(
		`SELECT id, total_donations, total_donors, meals_served, version, last_updated
		 FROM donation_statistics
		 WHERE id = ?`,
		domain.StatisticsID,
	).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
