package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, donation *Donation) error
	FindByReference(ctx context.Context, db *gorm.DB, reference string) (*Donation, error)
	ListPending(ctx context.Context, db *gorm.DB) ([]Donation, error)
	ListRecent(ctx context.Context, db *gorm.DB, limit int) ([]Donation, error)

	// MarkSucceeded flips the donation to SUCCESS unless it already is.
	// The returned bool reports whether this call made the transition; it
	// is the edge on which completion events are published.
	MarkSucceeded(ctx context.Context, db *gorm.DB, reference string) (bool, error)

	// MarkFailed flips PENDING to FAILED. A SUCCESS row is never downgraded.
	MarkFailed(ctx context.Context, db *gorm.DB, reference string) (bool, error)

	ForceStatus(ctx context.Context, db *gorm.DB, reference string, status PaymentStatus) (bool, error)
	RecordWebhookEvent(ctx context.Context, db *gorm.DB, event *WebhookEvent) error
}
