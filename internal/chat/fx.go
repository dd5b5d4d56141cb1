package chat

import "go.uber.org/fx"

var Module = fx.Module("chat.facade",
	fx.Provide(New),
)
