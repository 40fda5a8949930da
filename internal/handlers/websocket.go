package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sendeeapp/sendee-backend/internal/services"
)

// WebSocketHandler upgrades the connection for the authenticated account.
// The token rides in the ?token= query since browsers cannot set headers on
// WebSocket upgrades.
func WebSocketHandler(hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		services.HandleWebSocket(hub, c.Writer, c.Request,
			accountID(c), c.GetString("accountType"))
	}
}
