package handler

import (
	"chatrelay/internal/app/chat"
	"chatrelay/internal/configs"
)

// AppDeps bundles the process-wide collaborators handed to the HTTP layer.
type AppDeps struct {
	Hub    *chat.Hub
	Config *configs.AppConfig
}
