package handlers

import (
	"net/http"
	"os"
	"time"

	"glowdesk-wa-agent/database"

	"github.com/gin-gonic/gin"
)

// HomePage endpoint for root path
func HomePage(c *gin.Context) {
	now := time.Now()
	serverName := os.Getenv("SERVER_NAME")
	if serverName == "" {
		serverName = "GlowDesk WhatsApp Agent"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "running",
		"server":      serverName,
		"service":     "glowdesk-wa-agent",
		"version":     "1.0.0",
		"time":        now.Format("2006-01-02 15:04:05"),
		"timezone":    now.Format("MST"),
		"timestamp":   now.Unix(),
		"environment": gin.Mode(),
	})
}

// HealthCheck endpoint, includes a database ping so load balancers see real health
func HealthCheck(c *gin.Context) {
	dbStatus := "up"
	if sqlDB, err := database.GetDB().DB(); err != nil || sqlDB.Ping() != nil {
		dbStatus = "down"
	}

	status := http.StatusOK
	if dbStatus == "down" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   "healthy",
		"database": dbStatus,
		"time":     time.Now().Format(time.RFC3339),
		"service":  "glowdesk-wa-agent",
		"version":  "1.0.0",
	})
}
