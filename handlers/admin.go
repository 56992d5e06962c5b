package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"glowdesk-wa-agent/database"
	"glowdesk-wa-agent/models"

	"github.com/gin-gonic/gin"
)

func orgIDFromContext(c *gin.Context) (string, bool) {
	orgID, exists := c.Get("org_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing organization claim"})
		return "", false
	}
	id, ok := orgID.(string)
	if !ok || id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid organization claim"})
		return "", false
	}
	return id, true
}

// ListWhitelist returns the trusted-sender entries for the caller's organization
func ListWhitelist(c *gin.Context) {
	orgID, ok := orgIDFromContext(c)
	if !ok {
		return
	}

	var entries []models.WhitelistEntry
	if err := database.GetDB().Where("organization_id = ?", orgID).
		Order("created_at DESC").Find(&entries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load whitelist"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"whitelist": entries, "count": len(entries)})
}

// AddWhitelistEntry registers a phone number as a trusted sender
func AddWhitelistEntry(c *gin.Context) {
	orgID, ok := orgIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		PhoneNumber string `json:"phone_number" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone_number is required"})
		return
	}

	phone := strings.TrimSpace(req.PhoneNumber)
	var existing int64
	database.GetDB().Model(&models.WhitelistEntry{}).
		Where("organization_id = ? AND phone_number = ? AND is_active = ?", orgID, phone, true).
		Count(&existing)
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Phone already whitelisted"})
		return
	}

	entry := models.WhitelistEntry{
		OrganizationID: orgID,
		PhoneNumber:    phone,
		IsActive:       true,
	}
	if err := database.GetDB().Create(&entry).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create entry"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

// RemoveWhitelistEntry deletes a trusted-sender entry by id
func RemoveWhitelistEntry(c *gin.Context) {
	orgID, ok := orgIDFromContext(c)
	if !ok {
		return
	}

	entryID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid entry id"})
		return
	}

	result := database.GetDB().Where("id = ? AND organization_id = ?", entryID, orgID).
		Delete(&models.WhitelistEntry{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete entry"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Entry not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ListChatSessions returns the most recently active sessions for the organization
func ListChatSessions(c *gin.Context) {
	orgID, ok := orgIDFromContext(c)
	if !ok {
		return
	}

	limit := parseLimit(c, 50)
	var sessions []models.ChatSession
	if err := database.GetDB().Where("organization_id = ?", orgID).
		Order("last_message_at DESC").Limit(limit).Find(&sessions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load sessions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "count": len(sessions)})
}

// ListConversationLogs returns recent inbound/outbound log rows, optionally
// filtered to a single phone number
func ListConversationLogs(c *gin.Context) {
	orgID, ok := orgIDFromContext(c)
	if !ok {
		return
	}

	limit := parseLimit(c, 100)
	query := database.GetDB().Where("organization_id = ?", orgID)
	if phone := c.Query("phone"); phone != "" {
		query = query.Where("from_number = ?", phone)
	}

	var logs []models.ConversationLog
	if err := query.Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs, "count": len(logs)})
}

func parseLimit(c *gin.Context, fallback int) int {
	raw := c.Query("limit")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 500 {
		return fallback
	}
	return n
}
