package benefit

import (
	"github.com/vitalis-health/vitalis/internal/benefit/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("benefit",
	fx.Provide(
		repository.New,
		repository.NewUtilization,
	),
)
