package adjudication

import (
	"github.com/vitalis-health/vitalis/internal/adjudication/service"
	"go.uber.org/fx"
)

var Module = fx.Module("adjudication.service",
	fx.Provide(service.NewService),
)
