package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"glowdesk-wa-agent/database"
	"glowdesk-wa-agent/handlers"
	"glowdesk-wa-agent/middleware"
	"glowdesk-wa-agent/services"
	"glowdesk-wa-agent/worker"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, using system environment variables")
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Initialize database
	database.InitDatabase()

	// Start conversation worker. Fails fast when the AI provider is
	// misconfigured so a broken deploy never answers clients.
	convWorker, err := worker.NewConversationWorker()
	if err != nil {
		log.Fatalf("❌ Failed to initialize conversation worker: %v", err)
	}
	go func() {
		log.Println("Starting conversation worker...")
		convWorker.Start()
	}()

	// Credit monitor only applies to OpenRouter accounts
	if convWorker.Provider().GetProviderName() == "openrouter" {
		log.Println("🔍 Starting OpenRouter credit monitor...")
		go services.MonitorCredits()
	}

	// Setup Gin router
	router := gin.Default()

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Home page
	router.GET("/", handlers.HomePage)

	// Health check
	router.GET("/health", handlers.HealthCheck)

	// WhatsApp Cloud API webhook: GET is Meta's verification handshake,
	// POST receives inbound messages and enqueues conversation jobs
	router.GET("/webhook/whatsapp", handlers.VerifyWhatsAppWebhook)
	router.POST("/webhook/whatsapp", handlers.HandleWhatsAppWebhook)

	// Admin endpoints, org-scoped via the org_id JWT claim
	admin := router.Group("/admin")
	admin.Use(middleware.JWTMiddleware())
	{
		admin.GET("/whitelist", handlers.ListWhitelist)
		admin.POST("/whitelist", handlers.AddWhitelistEntry)
		admin.DELETE("/whitelist/:id", handlers.RemoveWhitelistEntry)

		admin.GET("/sessions", handlers.ListChatSessions)
		admin.GET("/conversations", handlers.ListConversationLogs)
	}

	// Get port from environment or default to 8080
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Setup HTTP server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		log.Printf("🚀 Server starting on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	<-quit
	log.Println("🛑 Shutting down server...")

	// Stop worker first so in-flight conversations finish
	log.Println("🤖 Stopping conversation worker...")
	convWorker.Stop()

	// Give a deadline for HTTP server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server exited gracefully")
}
