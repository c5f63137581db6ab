package service

import (
	"context"
	"strings"
	"time"

	"github.com/NanaWhan/RamadanApi/internal/bus"
	"github.com/NanaWhan/RamadanApi/internal/cache"
	"github.com/NanaWhan/RamadanApi/internal/donation/domain"
	"github.com/NanaWhan/RamadanApi/internal/events"
	"github.com/NanaWhan/RamadanApi/internal/gateway"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Gateway webhook event names.
const (
	webhookChargeSuccess = "charge.success"
	webhookChargeFailed  = "charge.failed"
)

const verifyCacheTTL = 30 * time.Second

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Gateway gateway.Client
	Bus     *bus.Bus
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	gateway gateway.Client
	bus     *bus.Bus

	// Short-lived cache keeps repeated public status checks from hammering
	// the rate-limited gateway.
	verifyCache *cache.TTLCache[string, *gateway.VerifyResult]
}

func NewService(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("donation.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		gateway:     p.Gateway,
		bus:         p.Bus,
		verifyCache: cache.NewTTLCache[string, *gateway.VerifyResult](),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateDonationRequest) (*domain.CreateDonationResponse, error) {
	if req.Amount.Sign() <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	now := time.Now().UTC()
	donation := &domain.Donation{
		ID:                   s.genID.Generate(),
		Amount:               req.Amount,
		Currency:             "GHS",
		PaymentMethod:        strings.TrimSpace(req.PaymentMethod),
		TransactionReference: domain.NewReference(),
		PaymentStatus:        domain.StatusPending,
		DonorName:            strings.TrimSpace(req.DonorName),
		DonorEmail:           strings.TrimSpace(req.DonorEmail),
		DonorPhone:           strings.TrimSpace(req.DonorPhone),
		CampaignSource:       strings.TrimSpace(req.CampaignSource),
		DonatedAt:            now,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.repo.Insert(ctx, s.db, donation); err != nil {
		return nil, err
	}
	s.log.Info("donation created",
		zap.String("reference", donation.TransactionReference),
		zap.String("amount", donation.Amount.String()),
	)

	email := donation.DonorEmail
	if email == "" {
		email = "anonymous@ramadanrelief.org"
	}
	link, err := s.gateway.CreatePayLink(ctx, gateway.PayLinkRequest{
		Reference:   donation.TransactionReference,
		Amount:      donation.Amount,
		Email:       email,
		Description: "Ramadan Relief Donation",
	})
	if err != nil {
		s.log.Warn("pay link generation failed",
			zap.String("reference", donation.TransactionReference),
			zap.Error(err),
		)
		return nil, err
	}

	return &domain.CreateDonationResponse{
		Reference:   donation.TransactionReference,
		PaymentLink: link.AuthorizationURL,
	}, nil
}

func (s *Service) HandleGatewayEvent(ctx context.Context, eventType, reference string, payload []byte) error {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		s.log.Warn("webhook without reference", zap.String("event", eventType))
		return nil
	}

	if err := s.repo.RecordWebhookEvent(ctx, s.db, &domain.WebhookEvent{
		ID:         s.genID.Generate(),
		EventType:  eventType,
		Reference:  reference,
		Payload:    datatypes.JSON(payload),
		ReceivedAt: time.Now().UTC(),
	}); err != nil {
		s.log.Warn("failed to record webhook event", zap.Error(err))
	}

	switch eventType {
	case webhookChargeSuccess:
		_, err := s.ConfirmSuccess(ctx, reference)
		return err
	case webhookChargeFailed:
		changed, err := s.repo.MarkFailed(ctx, s.db, reference)
		if err != nil {
			return err
		}
		if changed {
			s.log.Info("donation marked failed", zap.String("reference", reference))
		}
		return nil
	default:
		s.log.Info("unhandled webhook event",
			zap.String("event", eventType),
			zap.String("reference", reference),
		)
		return nil
	}
}

// ConfirmSuccess is the only place a completion event is published. The
// guarded transition in the repository makes duplicate confirmations, and
// races between webhook, poller and admin verification, collapse to one edge.
func (s *Service) ConfirmSuccess(ctx context.Context, reference string) (bool, error) {
	changed, err := s.repo.MarkSucceeded(ctx, s.db, reference)
	if err != nil {
		return false, err
	}
	if !changed {
		s.log.Debug("donation already successful or unknown", zap.String("reference", reference))
		return false, nil
	}

	donation, err := s.repo.FindByReference(ctx, s.db, reference)
	if err != nil {
		return true, err
	}
	if donation == nil {
		// The guard matched a row that has since vanished; nothing to publish.
		s.log.Warn("confirmed donation disappeared", zap.String("reference", reference))
		return true, nil
	}

	s.log.Info("donation completed",
		zap.String("reference", reference),
		zap.String("amount", donation.Amount.String()),
	)
	s.bus.Publish(events.TopicDonationCompleted, events.DonationCompleted{
		Reference:  donation.TransactionReference,
		Amount:     donation.Amount,
		DonorPhone: donation.DonorPhone,
	})
	return true, nil
}

func (s *Service) CheckStatus(ctx context.Context, reference string) (*domain.StatusResult, error) {
	donation, err := s.repo.FindByReference(ctx, s.db, reference)
	if err != nil {
		return nil, err
	}
	if donation == nil {
		return nil, domain.ErrNotFound
	}

	gatewayStatus := "unknown"
	verification, err := s.verify(ctx, reference)
	if err != nil {
		s.log.Warn("gateway verification unavailable",
			zap.String("reference", reference),
			zap.Error(err),
		)
	} else {
		gatewayStatus = verification.Status
		if verification.Status == gateway.StatusSuccess && donation.PaymentStatus != domain.StatusSuccess {
			if _, err := s.ConfirmSuccess(ctx, reference); err != nil {
				return nil, err
			}
			donation.PaymentStatus = domain.StatusSuccess
		}
	}

	return &domain.StatusResult{
		Reference:     donation.TransactionReference,
		PaymentStatus: donation.PaymentStatus,
		GatewayStatus: gatewayStatus,
		Amount:        donation.Amount,
		DonatedAt:     donation.DonatedAt,
	}, nil
}

func (s *Service) VerifyPayment(ctx context.Context, reference string) error {
	donation, err := s.repo.FindByReference(ctx, s.db, reference)
	if err != nil {
		return err
	}
	if donation == nil {
		return domain.ErrNotFound
	}
	if donation.PaymentStatus == domain.StatusSuccess {
		return nil
	}

	verification, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		return err
	}
	if verification.Status != gateway.StatusSuccess {
		s.log.Warn("manual verification rejected",
			zap.String("reference", reference),
			zap.String("gateway_status", verification.Status),
		)
		return domain.ErrVerificationFailed
	}

	_, err = s.ConfirmSuccess(ctx, reference)
	return err
}

func (s *Service) ForceStatus(ctx context.Context, reference string, status domain.PaymentStatus) error {
	if status == domain.StatusSuccess {
		// Route through the edge guard so downstream effects fire at most once.
		changed, err := s.ConfirmSuccess(ctx, reference)
		if err != nil {
			return err
		}
		if !changed {
			donation, err := s.repo.FindByReference(ctx, s.db, reference)
			if err != nil {
				return err
			}
			if donation == nil {
				return domain.ErrNotFound
			}
		}
		return nil
	}

	changed, err := s.repo.ForceStatus(ctx, s.db, reference, status)
	if err != nil {
		return err
	}
	if !changed {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) ListRecent(ctx context.Context) ([]domain.Donation, error) {
	return s.repo.ListRecent(ctx, s.db, 50)
}

func (s *Service) verify(ctx context.Context, reference string) (*gateway.VerifyResult, error) {
	if cached, ok := s.verifyCache.Get(reference); ok {
		return cached, nil
	}
	result, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}
	// Successful outcomes are final at the gateway, safe to cache briefly.
	if result.Status == gateway.StatusSuccess || result.Status == gateway.StatusFailed {
		s.verifyCache.Set(reference, result, verifyCacheTTL)
	}
	return result, nil
}
