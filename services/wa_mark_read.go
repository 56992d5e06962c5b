package services

import (
	"fmt"
	"log"
)

// MarkMessageRead marks an inbound message as read on WhatsApp and shows the
// typing indicator while the reply is being produced. The Cloud API does both
// in a single status call.
func (s *WhatsAppSender) MarkMessageRead(messageID string, withTyping bool) error {
	if messageID == "" {
		return nil
	}

	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"status":            "read",
		"message_id":        messageID,
	}
	if withTyping {
		payload["typing_indicator"] = map[string]interface{}{"type": "text"}
	}

	if err := s.post(payload); err != nil {
		log.Printf("⚠️  Failed to mark message %s as read: %v", messageID, err)
		return fmt.Errorf("markread failed: %w", err)
	}
	return nil
}
