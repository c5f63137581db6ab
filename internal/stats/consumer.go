package stats

import (
	"context"
	"fmt"

	"github.com/NanaWhan/RamadanApi/internal/bus"
	"github.com/NanaWhan/RamadanApi/internal/events"
	"github.com/NanaWhan/RamadanApi/internal/stats/domain"
	"go.uber.org/zap"
)

const consumerName = "stats"

// Consumer applies one aggregate increment per completed donation. The
// at-most-once property comes from the publisher's edge triggering, not
// from state kept here.
type Consumer struct {
	log     *zap.Logger
	service domain.Service
}

func NewConsumer(log *zap.Logger, service domain.Service) *Consumer {
	return &Consumer{
		log:     log.Named("stats.consumer"),
		service: service,
	}
}

func (c *Consumer) Register(b *bus.Bus) error {
	return b.Subscribe(events.TopicDonationCompleted, consumerName, c.handle)
}

func (c *Consumer) handle(ctx context.Context, msg any) error {
	completed, ok := msg.(events.DonationCompleted)
	if !ok {
		return fmt.Errorf("stats: unexpected message type %T", msg)
	}

	if err := c.service.Record(ctx, completed.Amount); err != nil {
		// A dropped increment corrupts the public aggregate; keep it loud.
		c.log.Error("statistics increment lost",
			zap.String("reference", completed.Reference),
			zap.String("amount", completed.Amount.String()),
			zap.Error(err),
		)
		return err
	}

	c.log.Info("statistics updated",
		zap.String("reference", completed.Reference),
		zap.String("amount", completed.Amount.String()),
	)
	return nil
}
