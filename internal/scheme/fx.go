package scheme

import (
	"github.com/vitalis-health/vitalis/internal/scheme/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("scheme",
	fx.Provide(repository.New),
)
