package member

import (
	"github.com/vitalis-health/vitalis/internal/member/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("member",
	fx.Provide(repository.New),
)
