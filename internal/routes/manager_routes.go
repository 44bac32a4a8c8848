package routes

import (
	"shelftrack/internal/controllers"
	"shelftrack/internal/middleware"

	"github.com/gin-gonic/gin"
)

func ManagerRoutes(r *gin.Engine) {
	manager := r.Group("/manager")
	manager.Use(middleware.RequireAuthWithRole("manager"))
	{
		manager.POST("/stores", controllers.CreateStore)
		manager.GET("/stores", controllers.ListStores)
		manager.GET("/stores/nearby", controllers.NearbyStores)
		manager.GET("/stores/:id", controllers.GetStore)
		manager.PUT("/stores/:id", controllers.UpdateStore)
		manager.DELETE("/stores/:id", controllers.DeleteStore)

		manager.GET("/employees", controllers.ListEmployees)
		manager.GET("/employees/:id", controllers.GetEmployee)
		manager.PUT("/employees/:id", controllers.UpdateEmployee)
		manager.GET("/employees/:id/routes/:date", controllers.GetEmployeeRoute)

		manager.GET("/schedules", controllers.ListSchedules)
		manager.GET("/visits", controllers.ListVisits)
		manager.GET("/tiers", controllers.GetTierConfig)
	}
}
