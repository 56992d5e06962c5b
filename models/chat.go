package models

import (
	"time"

	"gorm.io/datatypes"
)

// ChatSession: persisted counterpart of the in-memory conversation context,
// keyed by (organization_id, whatsapp_phone). Sessions are marked inactive
// rather than deleted.
type ChatSession struct {
	ID             string         `gorm:"column:id;primaryKey" json:"id"`
	OrganizationID string         `gorm:"index:idx_session_org_phone,unique;not null" json:"organization_id"`
	WhatsAppPhone  string         `gorm:"column:whatsapp_phone;index:idx_session_org_phone,unique;not null" json:"whatsapp_phone"`
	ClientID       *string        `gorm:"index" json:"client_id"`
	IsActive       bool           `gorm:"default:true;index" json:"is_active"`
	Context        datatypes.JSON `gorm:"column:context" json:"context"`
	LastMessageAt  time.Time      `gorm:"index" json:"last_message_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

// ChatMessage: append-only log row per turn, used for audit/history.
// The live prompt uses the history serialized inside ChatSession.Context.
type ChatMessage struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	SessionID      string    `gorm:"index;not null" json:"session_id"`
	OrganizationID string    `gorm:"index;not null" json:"organization_id"`
	IsFromClient   bool      `gorm:"index" json:"is_from_client"`
	Content        string    `gorm:"type:text" json:"content"`
	Timestamp      time.Time `gorm:"index" json:"timestamp"`
	CreatedAt      time.Time `json:"created_at"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

// ConversationLog: one row per processed inbound message. Read only for the
// sliding-window spam/rate-limit queries and audit, never for prompt context.
type ConversationLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrganizationID string    `gorm:"index:idx_convlog_org_from;not null" json:"organization_id"`
	FromNumber     string    `gorm:"index:idx_convlog_org_from;not null" json:"from_number"`
	MessageText    string    `gorm:"type:text" json:"message_text"`
	ResponseText   string    `gorm:"type:text" json:"response_text"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

func (ConversationLog) TableName() string {
	return "conversation_logs"
}

// MessageSendLog: outcome of every outbound WhatsApp send.
type MessageSendLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrganizationID string    `gorm:"index;not null" json:"organization_id"`
	To             string    `gorm:"index;not null" json:"to"`
	Body           string    `gorm:"type:text" json:"body"`
	Status         string    `gorm:"index;default:'sent'" json:"status"` // sent|failed
	ErrorMsg       string    `gorm:"type:text" json:"error_msg"`
	CreatedAt      time.Time `json:"created_at"`
}

func (MessageSendLog) TableName() string {
	return "message_send_logs"
}
