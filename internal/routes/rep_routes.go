package routes

import (
	"shelftrack/internal/controllers"
	"shelftrack/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RepRoutes(r *gin.Engine) {
	rep := r.Group("/rep")
	rep.Use(middleware.RequireAuthWithRole("rep"))
	{
		rep.POST("/routes", controllers.OptimizeRoute)
		rep.GET("/routes/today", controllers.GetTodayRoute)
		rep.GET("/routes/:date", controllers.GetRouteByDate)
		rep.PATCH("/routes/:id/waypoints/:sequence", controllers.MarkWaypointVisited)

		rep.POST("/visits", controllers.LogVisit)
		rep.GET("/schedules", controllers.ListMySchedules)
	}
}
