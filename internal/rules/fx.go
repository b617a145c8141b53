package rules

import (
	"github.com/vitalis-health/vitalis/internal/rules/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("rules",
	fx.Provide(repository.New),
)
