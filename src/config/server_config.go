package config

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"crossbot/src/datamodels"
)

func NewDefaultUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true // Configure appropriately for production
		},
	}
}

// ServerAddr turns the configured port into a listen address.
func ServerAddr(cfg datamodels.ServerConfig) string {
	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}
