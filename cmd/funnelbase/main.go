package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/funnelbase/funnelbase/internal/clock"
	"github.com/funnelbase/funnelbase/internal/config"
	"github.com/funnelbase/funnelbase/internal/migration"
	"github.com/funnelbase/funnelbase/internal/observability/metrics"
	"github.com/funnelbase/funnelbase/internal/server"
	"github.com/funnelbase/funnelbase/pkg/db"
	"github.com/funnelbase/funnelbase/pkg/log"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		metrics.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
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
