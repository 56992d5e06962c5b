package services

import "time"

// Conversation states
const (
	StateIdle              = "idle"
	StateCollectingService = "collecting_service"
	StateCollectingDate    = "collecting_date"
	StateCollectingTime    = "collecting_time"
	StateConfirmingBooking = "confirming_booking"
)

// InboundMessage: normalized inbound chat message from the transport layer
type InboundMessage struct {
	From      string `json:"from"`
	Text      string `json:"text,omitempty"`
	Type      string `json:"type"` // text|interactive|button|location|image
	Timestamp int64  `json:"timestamp"`
}

// Button for interactive WhatsApp replies
type Button struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// AIResponse: outbound response envelope consumed by the transport adapter
type AIResponse struct {
	Text         string   `json:"text"`
	QuickReplies []string `json:"quickReplies,omitempty"`
	Buttons      []Button `json:"buttons,omitempty"`
	MediaURL     string   `json:"mediaUrl,omitempty"`
}

// BookingData: partial booking collected across turns
type BookingData struct {
	ServiceID   string `json:"serviceId,omitempty"`
	Date        string `json:"date,omitempty"`
	Time        string `json:"time,omitempty"`
	ClientPhone string `json:"clientPhone,omitempty"`
}

// HistoryEntry: one conversation turn. Role is "user" or "assistant".
type HistoryEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationContext: in-memory conversation state, serialized into the
// chat session row between messages. MessageHistory is append-only; only the
// last 10 entries are sent per prompt.
type ConversationContext struct {
	State          string         `json:"state"`
	BookingData    BookingData    `json:"bookingData"`
	MessageHistory []HistoryEntry `json:"messageHistory"`
}

// NewConversationContext returns the default context for a fresh session
func NewConversationContext() *ConversationContext {
	return &ConversationContext{
		State:          StateIdle,
		MessageHistory: []HistoryEntry{},
	}
}

// FunctionResult: outcome of a function executor operation. Failures are data
// for the model to phrase, not exceptions.
type FunctionResult struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}
