package handlers

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"glowdesk-wa-agent/database"
	"glowdesk-wa-agent/models"

	"github.com/gin-gonic/gin"
)

// webhookPayload mirrors the WhatsApp Business Cloud API webhook shape
type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Metadata struct {
					PhoneNumberID string `json:"phone_number_id"`
				} `json:"metadata"`
				Messages []struct {
					From      string `json:"from"`
					ID        string `json:"id"`
					Timestamp string `json:"timestamp"`
					Type      string `json:"type"`
					Text      struct {
						Body string `json:"body"`
					} `json:"text"`
					Interactive struct {
						ButtonReply struct {
							ID    string `json:"id"`
							Title string `json:"title"`
						} `json:"button_reply"`
					} `json:"interactive"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// VerifyWhatsAppWebhook answers Meta's GET verification handshake
func VerifyWhatsAppWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == os.Getenv("WHATSAPP_VERIFY_TOKEN") {
		c.String(http.StatusOK, challenge)
		return
	}
	c.Status(http.StatusForbidden)
}

// HandleWhatsAppWebhook ingests inbound WhatsApp messages and enqueues one
// conversation job per message. Processing happens in the worker; the webhook
// always answers fast so Meta does not retry the delivery.
func HandleWhatsAppWebhook(c *gin.Context) {
	var payload webhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.Printf("Invalid webhook payload: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	db := database.GetDB()
	queued := 0

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			value := change.Value

			var org models.Organization
			err := db.Where("whatsapp_phone_id = ? AND is_active = ?", value.Metadata.PhoneNumberID, true).
				First(&org).Error
			if err != nil {
				if len(value.Messages) > 0 {
					log.Printf("⚠️  Webhook for unknown phone_number_id %s - skipped", value.Metadata.PhoneNumberID)
				}
				continue
			}

			for _, message := range value.Messages {
				text := message.Text.Body
				msgType := message.Type
				if msgType == "interactive" && message.Interactive.ButtonReply.Title != "" {
					// Button taps flow back through the model as their label
					text = message.Interactive.ButtonReply.Title
					msgType = "text"
				}

				if msgType != "text" || strings.TrimSpace(text) == "" {
					log.Printf("Non-text message ignored: type=%s", message.Type)
					continue
				}

				messageAt := time.Now()
				if unix, err := strconv.ParseInt(message.Timestamp, 10, 64); err == nil {
					messageAt = time.Unix(unix, 0)
				}

				job := models.ConversationJob{
					Status:         "pending",
					Priority:       5,
					OrganizationID: org.ID,
					WaMessageID:    message.ID,
					FromNumber:     message.From,
					MessageType:    msgType,
					MessageText:    text,
					MessageAt:      messageAt,
				}

				// Unique wa_message_id makes redelivered webhooks idempotent
				if err := db.Create(&job).Error; err != nil {
					if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "UNIQUE constraint") {
						log.Printf("Duplicate message %s - skipped", message.ID)
						continue
					}
					log.Printf("Failed to enqueue conversation job: %v", err)
					continue
				}

				// NOTIFY trigger fires automatically on insert
				log.Printf("✅ Job #%d queued (org: %s, from: %s)", job.ID, org.Name, message.From)
				queued++
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "queued": queued})
}
