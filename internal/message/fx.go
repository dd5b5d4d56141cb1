package message

import (
	"github.com/smallbiznis/groupchat/internal/message/repository"
	"github.com/smallbiznis/groupchat/internal/message/service"
	"go.uber.org/fx"
)

var Module = fx.Module("message.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
