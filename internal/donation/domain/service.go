package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound           = errors.New("donation_not_found")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrVerificationFailed = errors.New("verification_failed")
)

type CreateDonationRequest struct {
	Amount         decimal.Decimal
	PaymentMethod  string
	DonorName      string
	DonorEmail     string
	DonorPhone     string
	CampaignSource string
}

type CreateDonationResponse struct {
	Reference   string
	PaymentLink string
}

type StatusResult struct {
	Reference     string
	PaymentStatus PaymentStatus
	GatewayStatus string
	Amount        decimal.Decimal
	DonatedAt     time.Time
}

type Service interface {
	// Create persists a PENDING donation and returns a hosted pay link.
	Create(ctx context.Context, req CreateDonationRequest) (*CreateDonationResponse, error)

	// HandleGatewayEvent applies a webhook notification. Unknown references
	// and unhandled event types are logged no-ops.
	HandleGatewayEvent(ctx context.Context, eventType, reference string, payload []byte) error

	// CheckStatus returns the stored status, re-verifying against the
	// gateway and promoting the donation when the gateway reports success.
	CheckStatus(ctx context.Context, reference string) (*StatusResult, error)

	// VerifyPayment is the admin path: verify against the gateway and
	// confirm on success, otherwise report ErrVerificationFailed.
	VerifyPayment(ctx context.Context, reference string) error

	// ConfirmSuccess performs the edge-triggered SUCCESS transition and
	// publishes the completion event when, and only when, this call made
	// the transition.
	ConfirmSuccess(ctx context.Context, reference string) (bool, error)

	ForceStatus(ctx context.Context, reference string, status PaymentStatus) error
	ListRecent(ctx context.Context) ([]Donation, error)
}
