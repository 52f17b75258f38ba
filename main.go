package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"rentledger/config"
	"rentledger/database"
	"rentledger/routes"
	"rentledger/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize config
	config.InitConfig()

	// Setup router
	r := gin.Default()

	// CORS settings
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Gateway-Signature"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// Initialize DB
	if err := database.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Run migrations
	if err := database.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	database.SeedDefaultAdmin()

	// Setup routes (AuthMiddleware is applied inside routes)
	routes.SetupRoutes(r)

	// Periodic overdue sweep keeps invoice statuses current between payment
	// events.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if flipped, err := services.MarkOverdueInvoices(database.DB); err != nil {
				log.Printf("Overdue sweep failed: %v", err)
			} else if flipped > 0 {
				log.Printf("Overdue sweep flipped %d invoices", flipped)
			}
		}
	}()

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}
	log.Printf("Server running at http://0.0.0.0:%s", port)
	if err := r.Run("0.0.0.0:" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
