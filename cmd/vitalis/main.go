package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/vitalis-health/vitalis/internal/adjudication"
	"github.com/vitalis-health/vitalis/internal/batch"
	"github.com/vitalis-health/vitalis/internal/benefit"
	"github.com/vitalis-health/vitalis/internal/claim"
	"github.com/vitalis-health/vitalis/internal/clock"
	"github.com/vitalis-health/vitalis/internal/config"
	"github.com/vitalis-health/vitalis/internal/member"
	"github.com/vitalis-health/vitalis/internal/memberlock"
	"github.com/vitalis-health/vitalis/internal/migration"
	"github.com/vitalis-health/vitalis/internal/observability"
	"github.com/vitalis-health/vitalis/internal/rules"
	"github.com/vitalis-health/vitalis/internal/scheme"
	"github.com/vitalis-health/vitalis/internal/server"
	"github.com/vitalis-health/vitalis/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		memberlock.Module,

		// Domain repositories
		member.Module,
		scheme.Module,
		benefit.Module,
		claim.Module,
		rules.Module,

		// Adjudication engine
		adjudication.Module,
		batch.Module,

		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
