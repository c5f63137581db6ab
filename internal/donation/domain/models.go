package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PaymentStatus string

const (
	StatusPending PaymentStatus = "PENDING"
	StatusSuccess PaymentStatus = "SUCCESS"
	StatusFailed  PaymentStatus = "FAILED"
)

// ParseStatus maps free-form input to a known status, case-insensitively.
func ParseStatus(raw string) (PaymentStatus, bool) {
	switch PaymentStatus(strings.ToUpper(strings.TrimSpace(raw))) {
	case StatusPending:
		return StatusPending, true
	case StatusSuccess:
		return StatusSuccess, true
	case StatusFailed:
		return StatusFailed, true
	}
	return "", false
}

// Donation is one payment attempt, keyed by its transaction reference.
// The reference is the idempotency key for every downstream effect.
type Donation struct {
	ID                   snowflake.ID    `gorm:"column:id"`
	Amount               decimal.Decimal `gorm:"column:amount"`
	Currency             string          `gorm:"column:currency"`
	PaymentMethod        string          `gorm:"column:payment_method"`
	TransactionReference string          `gorm:"column:transaction_reference"`
	PaymentStatus        PaymentStatus   `gorm:"column:payment_status"`
	DonorName            string          `gorm:"column:donor_name"`
	DonorEmail           string          `gorm:"column:donor_email"`
	DonorPhone           string          `gorm:"column:donor_phone"`
	CampaignSource       string          `gorm:"column:campaign_source"`
	DonatedAt            time.Time       `gorm:"column:donated_at"`
	CreatedAt            time.Time       `gorm:"column:created_at"`
	UpdatedAt            time.Time       `gorm:"column:updated_at"`
}

// WebhookEvent is the raw gateway callback kept for audit and replay.
type WebhookEvent struct {
	ID         snowflake.ID   `gorm:"column:id"`
	EventType  string         `gorm:"column:event_type"`
	Reference  string         `gorm:"column:reference"`
	Payload    datatypes.JSON `gorm:"column:payload"`
	ReceivedAt time.Time      `gorm:"column:received_at"`
}

// NewReference generates an opaque donation reference, e.g. RR-DON-1a2b3c4d.
func NewReference() string {
	return "RR-DON-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
