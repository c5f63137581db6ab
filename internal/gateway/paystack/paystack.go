package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/NanaWhan/RamadanApi/internal/config"
	"github.com/NanaWhan/RamadanApi/internal/gateway"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("gateway.paystack",
	fx.Provide(New),
)

type Client struct {
	baseURL   string
	secretKey string
	callback  string
	http      *http.Client
	log       *zap.Logger
}

func New(cfg config.Config, log *zap.Logger) gateway.Client {
	return &Client{
		baseURL:   cfg.PayStackBaseURL,
		secretKey: cfg.PayStackSecretKey,
		callback:  cfg.PayStackCallback,
		http:      &http.Client{Timeout: 15 * time.Second},
		log:       log.Named("gateway.paystack"),
	}
}

type initializeRequest struct {
	Email       string   `json:"email"`
	Amount      int64    `json:"amount"`
	Currency    string   `json:"currency"`
	Reference   string   `json:"reference"`
	Channels    []string `json:"channels"`
	CallbackURL string   `json:"callback_url,omitempty"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
	} `json:"data"`
}

// CreatePayLink initializes a hosted checkout for the reference. Amounts
// are sent in pesewas, the smallest GHS unit.
func (c *Client) CreatePayLink(ctx context.Context, req gateway.PayLinkRequest) (*gateway.PayLink, error) {
	payload := initializeRequest{
		Email:       req.Email,
		Amount:      req.Amount.Mul(decimal.NewFromInt(100)).IntPart(),
		Currency:    "GHS",
		Reference:   req.Reference,
		Channels:    []string{"mobile_money", "card"},
		CallbackURL: c.callback,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrPayLinkFailed, err)
	}
	defer resp.Body.Close()

	var parsed initializeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", gateway.ErrPayLinkFailed, err)
	}
	if resp.StatusCode != http.StatusOK || !parsed.Status {
		c.log.Warn("pay link initialization rejected",
			zap.Int("status_code", resp.StatusCode),
			zap.String("message", parsed.Message),
		)
		return nil, gateway.ErrPayLinkFailed
	}

	return &gateway.PayLink{
		AuthorizationURL: parsed.Data.AuthorizationURL,
		Reference:        parsed.Data.Reference,
	}, nil
}

// Verify asks PayStack for the authoritative status of one transaction.
func (c *Client) Verify(ctx context.Context, reference string) (*gateway.VerifyResult, error) {
	endpoint := c.baseURL + "/transaction/verify/" + url.PathEscape(reference)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrVerifyFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", gateway.ErrVerifyFailed, err)
	}

	var parsed verifyResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", gateway.ErrVerifyFailed, err)
	}
	if resp.StatusCode != http.StatusOK || !parsed.Status {
		return nil, fmt.Errorf("%w: %s", gateway.ErrVerifyFailed, parsed.Message)
	}

	return &gateway.VerifyResult{
		Reference: parsed.Data.Reference,
		Status:    parsed.Data.Status,
		Amount:    decimal.NewFromInt(parsed.Data.Amount).Div(decimal.NewFromInt(100)),
		Raw:       raw,
	}, nil
}
