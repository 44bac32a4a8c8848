package main

import (
	"log"
	"net/http"

	"shelftrack/internal/config"
	"shelftrack/internal/controllers"
	"shelftrack/internal/logger"
	"shelftrack/internal/middleware"
	"shelftrack/internal/routes"
)

func main() {
	// Initialize structured logging to file
	logger.Setup()

	// Connect to the database and the optional cache
	config.InitDB()
	config.InitRedis()

	// Wire the scheduling/routing engines over the store
	controllers.Init()

	// Setup Gin router (recovery + request logging attached inside)
	r := routes.SetupRouter()

	// Wrap with CORS
	handler := middleware.EnableCORS(r)

	addr := "0.0.0.0:" + config.GetEnv("PORT", "8080")
	log.Printf("🚀 Server running at %s", addr)
	log.Fatal(http.ListenAndServe(addr, handler))
}
