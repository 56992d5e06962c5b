package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"glowdesk-wa-agent/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sessionLocks serializes processing per (organization, phone). Two messages
// from the same number never read-modify-write the session concurrently;
// different numbers proceed in parallel.
var sessionLocks sync.Map

// ContextStore loads and persists ConversationContext keyed by
// (organization_id, whatsapp_phone).
type ContextStore struct {
	db *gorm.DB
}

func NewContextStore(db *gorm.DB) *ContextStore {
	return &ContextStore{db: db}
}

// LockSession acquires the per-session mutex and returns the unlock func
func (s *ContextStore) LockSession(orgID, phone string) func() {
	key := orgID + "|" + phone
	value, _ := sessionLocks.LoadOrStore(key, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Load fetches the active session for this phone, merging its stored context
// over the default shape. A missing session yields a fresh in-memory one that
// is persisted on the first Save.
func (s *ContextStore) Load(orgID, phone string) (*models.ChatSession, *ConversationContext, error) {
	convCtx := NewConversationContext()

	var session models.ChatSession
	err := s.db.Where("organization_id = ? AND whatsapp_phone = ? AND is_active = ?", orgID, phone, true).
		First(&session).Error
	if err == gorm.ErrRecordNotFound {
		session = models.ChatSession{
			ID:             uuid.New().String(),
			OrganizationID: orgID,
			WhatsAppPhone:  phone,
			IsActive:       true,
		}
		return &session, convCtx, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load chat session: %w", err)
	}

	if len(session.Context) > 0 {
		// Merge over defaults; a corrupt context falls back to a fresh one
		// rather than blocking the conversation.
		if err := json.Unmarshal(session.Context, convCtx); err != nil {
			convCtx = NewConversationContext()
		}
		if convCtx.State == "" {
			convCtx.State = StateIdle
		}
		if convCtx.MessageHistory == nil {
			convCtx.MessageHistory = []HistoryEntry{}
		}
	}

	return &session, convCtx, nil
}

// Save upserts the session row with the serialized context and appends the
// latest user/assistant turn to the chat message audit log.
func (s *ContextStore) Save(session *models.ChatSession, convCtx *ConversationContext, userText, replyText string) error {
	raw, err := json.Marshal(convCtx)
	if err != nil {
		return fmt.Errorf("failed to serialize context: %w", err)
	}

	now := time.Now()
	session.Context = raw
	session.LastMessageAt = now
	session.IsActive = true

	err = s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "organization_id"}, {Name: "whatsapp_phone"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"context", "client_id", "is_active", "last_message_at", "updated_at",
		}),
	}).Create(session).Error
	if err != nil {
		return fmt.Errorf("failed to save chat session: %w", err)
	}

	// The upsert may have landed on a pre-existing (e.g. deactivated) row
	// with a different id; refresh it so message rows reference the DB row.
	var persistedID string
	s.db.Model(&models.ChatSession{}).
		Where("organization_id = ? AND whatsapp_phone = ?", session.OrganizationID, session.WhatsAppPhone).
		Pluck("id", &persistedID)
	if persistedID != "" {
		session.ID = persistedID
	}

	messages := []models.ChatMessage{
		{
			SessionID:      session.ID,
			OrganizationID: session.OrganizationID,
			IsFromClient:   true,
			Content:        userText,
			Timestamp:      now,
		},
		{
			SessionID:      session.ID,
			OrganizationID: session.OrganizationID,
			IsFromClient:   false,
			Content:        replyText,
			Timestamp:      now,
		},
	}
	if err := s.db.Create(&messages).Error; err != nil {
		return fmt.Errorf("failed to append chat messages: %w", err)
	}

	return nil
}

// LogConversation writes the audit/rate-limit row for a processed message
func (s *ContextStore) LogConversation(orgID, fromNumber, messageText, responseText string) error {
	entry := models.ConversationLog{
		OrganizationID: orgID,
		FromNumber:     fromNumber,
		MessageText:    messageText,
		ResponseText:   responseText,
		CreatedAt:      time.Now(),
	}
	return s.db.Create(&entry).Error
}
