package reconcile

import (
	"context"

	"github.com/NanaWhan/RamadanApi/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("donation.reconcile",
	fx.Provide(func(cfg config.Config) Config {
		return Config{
			PollInterval: cfg.ReconcileInterval,
			ItemDelay:    cfg.ReconcileDelay,
			StartupDelay: DefaultConfig().StartupDelay,
		}
	}),
	fx.Provide(NewWorker),
	fx.Invoke(runWorker),
)

func runWorker(lc fx.Lifecycle, worker *Worker) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go worker.RunForever(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
