package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/affilia/internal/clock"
	"github.com/smallbiznis/affilia/internal/config"
	"github.com/smallbiznis/affilia/internal/migration"
	"github.com/smallbiznis/affilia/internal/redisconn"
	"github.com/smallbiznis/affilia/internal/server"
	"github.com/smallbiznis/affilia/pkg/db"
	"github.com/smallbiznis/affilia/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		redisconn.Module,
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
