package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// WhatsAppSender converts AIResponse envelopes into WhatsApp Business Cloud
// API payloads. The core only depends on this send contract, not on the wire
// protocol details.
type WhatsAppSender struct {
	apiURL  string
	phoneID string
	token   string
	client  *http.Client
}

// NewWhatsAppSender builds a sender for one organization's WhatsApp number
func NewWhatsAppSender(phoneID string) *WhatsAppSender {
	apiURL := os.Getenv("WHATSAPP_API_URL")
	if apiURL == "" {
		apiURL = "https://graph.facebook.com/v19.0"
	}

	return &WhatsAppSender{
		apiURL:  apiURL,
		phoneID: phoneID,
		token:   os.Getenv("WHATSAPP_TOKEN"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// SendResponse picks the channel message type for an AIResponse: interactive
// button message when buttons are present, else plain text with the quick
// replies appended as a menu.
func (s *WhatsAppSender) SendResponse(to string, resp AIResponse) error {
	text := FormatForWhatsApp(resp.Text)

	if resp.MediaURL != "" {
		return s.sendImage(to, resp.MediaURL, text)
	}

	if len(resp.Buttons) > 0 {
		return s.sendInteractiveButtons(to, text, resp.Buttons)
	}

	return s.SendText(to, AppendQuickReplies(text, resp.QuickReplies))
}

// sendImage sends a link-based image message with the text as caption
func (s *WhatsAppSender) sendImage(to, mediaURL, caption string) error {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "image",
		"image": map[string]interface{}{
			"link":    mediaURL,
			"caption": caption,
		},
	}
	return s.post(payload)
}

// SendText sends a plain text message
func (s *WhatsAppSender) SendText(to, text string) error {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "text",
		"text": map[string]interface{}{
			"body": text,
		},
	}
	return s.post(payload)
}

// sendInteractiveButtons sends a reply-button message (max 3 buttons on
// WhatsApp)
func (s *WhatsAppSender) sendInteractiveButtons(to, text string, buttons []Button) error {
	if len(buttons) > 3 {
		buttons = buttons[:3]
	}

	actions := make([]map[string]interface{}, 0, len(buttons))
	for _, button := range buttons {
		actions = append(actions, map[string]interface{}{
			"type": "reply",
			"reply": map[string]interface{}{
				"id":    button.ID,
				"title": button.Title,
			},
		})
	}

	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "interactive",
		"interactive": map[string]interface{}{
			"type":   "button",
			"body":   map[string]interface{}{"text": text},
			"action": map[string]interface{}{"buttons": actions},
		},
	}
	return s.post(payload)
}

// SendWelcome sends the first-contact greeting template
func (s *WhatsAppSender) SendWelcome(to, orgName string) error {
	text := fmt.Sprintf("Ciao! 👋 Sono l'assistente virtuale di %s.\n"+
		"Posso aiutarti a prenotare un appuntamento, consultare i nostri servizi o rispondere alle tue domande.", orgName)
	return s.SendText(to, AppendQuickReplies(text, QuickReplyMenu))
}

// SendErrorMessage sends the fixed technical-problem reply
func (s *WhatsAppSender) SendErrorMessage(to string) error {
	return s.SendText(to, MsgFallback)
}

// SendBookingConfirmation sends the booking recap template
func (s *WhatsAppSender) SendBookingConfirmation(to, serviceName, date, clock string) error {
	text := fmt.Sprintf("✅ Prenotazione confermata!\n\n*Servizio:* %s\n*Data:* %s\n*Ora:* %s\n\nTi aspettiamo!",
		serviceName, date, clock)
	return s.SendText(to, text)
}

func (s *WhatsAppSender) post(payload map[string]interface{}) error {
	url := fmt.Sprintf("%s/%s/messages", s.apiURL, s.phoneID)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal WA payload: %w", err)
	}

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create WA request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send WA message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("WhatsApp API returned %d: %s", resp.StatusCode, body)
	}

	return nil
}
