package routes

import (
	"shelftrack/internal/controllers"

	"github.com/gin-gonic/gin"
)

func LiveRoutes(r *gin.Engine) {
	// Authenticated via token query parameter inside the handler; browsers
	// cannot set headers on websocket upgrades.
	r.GET("/ws/track", controllers.HandleTrackWebSocket)
}
