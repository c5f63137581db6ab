package stats

import (
	"github.com/NanaWhan/RamadanApi/internal/bus"
	"github.com/NanaWhan/RamadanApi/internal/stats/service"
	"go.uber.org/fx"
)

var Module = fx.Module("stats.service",
	fx.Provide(service.NewService),
	fx.Provide(NewConsumer),
	fx.Invoke(func(b *bus.Bus, c *Consumer) error {
		return c.Register(b)
	}),
)
