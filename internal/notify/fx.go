package notify

import (
	"github.com/NanaWhan/RamadanApi/internal/bus"
	"go.uber.org/fx"
)

var Module = fx.Module("notify",
	fx.Provide(NewNotifier),
	fx.Invoke(func(n *Notifier, b *bus.Bus) error {
		return n.Register(b)
	}),
)
