package donation

import (
	"github.com/NanaWhan/RamadanApi/internal/donation/repository"
	"github.com/NanaWhan/RamadanApi/internal/donation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("donation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
