package claim

import (
	"github.com/vitalis-health/vitalis/internal/claim/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("claim",
	fx.Provide(repository.New),
)
