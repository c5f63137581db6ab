package reconcile

import (
	"context"
	"time"

	"github.com/NanaWhan/RamadanApi/internal/donation/domain"
	"github.com/NanaWhan/RamadanApi/internal/gateway"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Repo    domain.Repository
	Service domain.Service
	Gateway gateway.Client
	Config  Config `optional:"true"`
}

// Worker converges locally PENDING donations with the gateway's view.
// Webhooks are the fast path; this loop is the guarantee.
type Worker struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    domain.Repository
	service domain.Service
	gateway gateway.Client
	cfg     Config
}

func NewWorker(p Params) *Worker {
	return &Worker{
		db:      p.DB,
		log:     p.Log.Named("donation.reconcile"),
		repo:    p.Repo,
		service: p.Service,
		gateway: p.Gateway,
		cfg:     p.Config.withDefaults(),
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	w.log.Info("payment reconciliation worker starting",
		zap.Duration("interval", w.cfg.PollInterval),
	)

	select {
	case <-ctx.Done():
		return
	case <-time.After(w.cfg.StartupDelay):
	}

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("reconciliation scan failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			w.log.Info("payment reconciliation worker stopping")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce scans every PENDING donation and re-verifies it against the
// gateway. A single donation's failure never aborts the rest of the scan.
func (w *Worker) RunOnce(ctx context.Context) error {
	pending, err := w.repo.ListPending(ctx, w.db)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	w.log.Info("verifying pending donations", zap.Int("count", len(pending)))

	for i, donation := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.reconcileOne(ctx, donation)

		if w.cfg.ItemDelay > 0 && i < len(pending)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.cfg.ItemDelay):
			}
		}
	}
	return nil
}

func (w *Worker) reconcileOne(ctx context.Context, donation domain.Donation) {
	reference := donation.TransactionReference

	verification, err := w.gateway.Verify(ctx, reference)
	if err != nil {
		// Transient by assumption; the next tick is the retry.
		w.log.Warn("gateway verification failed",
			zap.String("reference", reference),
			zap.Error(err),
		)
		return
	}

	switch verification.Status {
	case gateway.StatusSuccess:
		changed, err := w.service.ConfirmSuccess(ctx, reference)
		if err != nil {
			w.log.Error("failed to confirm donation",
				zap.String("reference", reference),
				zap.Error(err),
			)
			return
		}
		if changed {
			w.log.Info("reconciled donation to SUCCESS", zap.String("reference", reference))
		}
	case gateway.StatusFailed:
		changed, err := w.repo.MarkFailed(ctx, w.db, reference)
		if err != nil {
			w.log.Error("failed to mark donation failed",
				zap.String("reference", reference),
				zap.Error(err),
			)
			return
		}
		if changed {
			w.log.Info("reconciled donation to FAILED", zap.String("reference", reference))
		}
	default:
		w.log.Debug("donation still pending at gateway",
			zap.String("reference", reference),
			zap.String("gateway_status", verification.Status),
		)
	}
}
