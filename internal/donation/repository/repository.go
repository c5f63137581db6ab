package repository

import (
	"context"
	"errors"
	"time"

	"github.com/NanaWhan/RamadanApi/internal/donation/domain"
	"gorm.io/gorm"
)

type repositoryImpl struct{}

func Provide() domain.Repository {
	return &repositoryImpl{}
}

func (r *repositoryImpl) Insert(ctx context.Context, db *gorm.DB, d *domain.Donation) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO donations (
			id, amount, currency, payment_method, transaction_reference,
			payment_status, donor_name, donor_email, donor_phone,
			campaign_source, donated_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID,
		d.Amount,
		d.Currency,
		d.PaymentMethod,
		d.TransactionReference,
		d.PaymentStatus,
		d.DonorName,
		d.DonorEmail,
		d.DonorPhone,
		d.CampaignSource,
		d.DonatedAt,
		d.CreatedAt,
		d.UpdatedAt,
	).Error
}

func (r *repositoryImpl) FindByReference(ctx context.Context, db *gorm.DB, reference string) (*domain.Donation, error) {
	var d domain.Donation
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM donations WHERE transaction_reference = ?`,
		reference,
	).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repositoryImpl) ListPending(ctx context.Context, db *gorm.DB) ([]domain.Donation, error) {
	var rows []domain.Donation
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM donations WHERE payment_status = ? ORDER BY donated_at ASC`,
		domain.StatusPending,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) ListRecent(ctx context.Context, db *gorm.DB, limit int) ([]domain.Donation, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []domain.Donation
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM donations ORDER BY donated_at DESC LIMIT ?`,
		limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkSucceeded is the single transition rule shared by webhook, poller and
// manual verification. The guarded UPDATE makes the edge detection atomic:
// only one concurrent caller observes RowsAffected == 1.
func (r *repositoryImpl) MarkSucceeded(ctx context.Context, db *gorm.DB, reference string) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE donations
		 SET payment_status = ?, updated_at = ?
		 WHERE transaction_reference = ? AND payment_status <> ?`,
		domain.StatusSuccess,
		time.Now().UTC(),
		reference,
		domain.StatusSuccess,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) MarkFailed(ctx context.Context, db *gorm.DB, reference string) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE donations
		 SET payment_status = ?, updated_at = ?
		 WHERE transaction_reference = ? AND payment_status = ?`,
		domain.StatusFailed,
		time.Now().UTC(),
		reference,
		domain.StatusPending,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) ForceStatus(ctx context.Context, db *gorm.DB, reference string, status domain.PaymentStatus) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE donations SET payment_status = ?, updated_at = ? WHERE transaction_reference = ?`,
		status,
		time.Now().UTC(),
		reference,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) RecordWebhookEvent(ctx context.Context, db *gorm.DB, event *domain.WebhookEvent) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO gateway_webhook_events (id, event_type, reference, payload, received_at)
		 VALUES (?, ?, ?, ?, ?)`,
		event.ID,
		event.EventType,
		event.Reference,
		event.Payload,
		event.ReceivedAt,
	).Error
}
