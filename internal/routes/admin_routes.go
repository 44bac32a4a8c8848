package routes

import (
	"shelftrack/internal/controllers"
	"shelftrack/internal/middleware"

	"github.com/gin-gonic/gin"
)

func AdminRoutes(r *gin.Engine) {
	admin := r.Group("/admin")
	admin.Use(middleware.RequireAuthWithRole("admin"))
	{
		admin.GET("/companies/:id", controllers.GetCompany)
		admin.PUT("/companies/:id", controllers.UpdateCompany)
		admin.PUT("/companies/:id/tiers", controllers.SetTierConfig)
		admin.GET("/employees", controllers.ListEmployees)
	}
}
