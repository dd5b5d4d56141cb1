package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/groupchat/internal/audit"
	"github.com/smallbiznis/groupchat/internal/authorization"
	"github.com/smallbiznis/groupchat/internal/chat"
	"github.com/smallbiznis/groupchat/internal/clock"
	"github.com/smallbiznis/groupchat/internal/config"
	"github.com/smallbiznis/groupchat/internal/contentgate"
	"github.com/smallbiznis/groupchat/internal/group"
	"github.com/smallbiznis/groupchat/internal/keylock"
	"github.com/smallbiznis/groupchat/internal/membership"
	"github.com/smallbiznis/groupchat/internal/message"
	"github.com/smallbiznis/groupchat/internal/migration"
	"github.com/smallbiznis/groupchat/internal/observability"
	"github.com/smallbiznis/groupchat/internal/ratelimit"
	"github.com/smallbiznis/groupchat/internal/server"
	"github.com/smallbiznis/groupchat/pkg/db"
	"github.com/smallbiznis/groupchat/pkg/redisclient"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		redisclient.Module,
		clock.Module,
		keylock.Module,
		migration.Module,

		// Chat core
		contentgate.Module,
		ratelimit.Module,
		authorization.Module,
		audit.Module,
		membership.Module,
		group.Module,
		message.Module,
		chat.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
