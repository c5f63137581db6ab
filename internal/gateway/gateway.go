package gateway

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
)

// Gateway-reported transaction statuses the core cares about. Anything
// else is treated as still pending.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

var (
	ErrVerifyFailed  = errors.New("gateway: verification request failed")
	ErrPayLinkFailed = errors.New("gateway: pay link generation failed")
)

// VerifyResult is the gateway's authoritative view of one transaction.
type VerifyResult struct {
	Reference string
	Status    string
	Amount    decimal.Decimal
	Raw       json.RawMessage
}

type PayLinkRequest struct {
	Reference   string
	Amount      decimal.Decimal
	Email       string
	Description string
}

type PayLink struct {
	AuthorizationURL string
	Reference        string
}

// Client is the minimal contract the donation core has with the payment
// provider: reference-based verification and hosted-checkout link creation.
type Client interface {
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
	CreatePayLink(ctx context.Context, req PayLinkRequest) (*PayLink, error)
}
