package models

import "time"

// ConversationJob: inbound message queue without Redis. One row per WhatsApp
// message accepted by the webhook; the worker claims rows with
// FOR UPDATE SKIP LOCKED.
type ConversationJob struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Status         string     `gorm:"index;default:'pending'" json:"status"` // pending|processing|done|failed
	Priority       int        `gorm:"default:5" json:"priority"`
	OrganizationID string     `gorm:"index;not null" json:"organization_id"`
	WaMessageID    string     `gorm:"column:wa_message_id;uniqueIndex;not null" json:"wa_message_id"`
	FromNumber     string     `gorm:"index;not null" json:"from_number"`
	MessageType    string     `gorm:"default:'text'" json:"message_type"`
	MessageText    string     `gorm:"type:text" json:"message_text"`
	MessageAt      time.Time  `json:"message_at"`
	ResponseJSON   string     `gorm:"type:text" json:"response_json"`
	ErrorMsg       string     `gorm:"type:text" json:"error_msg"`
	Attempts       int        `gorm:"default:0" json:"attempts"`
	NextRunAt      *time.Time `gorm:"index" json:"next_run_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (ConversationJob) TableName() string {
	return "conversation_jobs"
}

// ConversationJobAttempt: retry log.
type ConversationJobAttempt struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	JobID     uint      `gorm:"index;not null" json:"job_id"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Status    string    `json:"status"` // ok|error
	ErrorMsg  string    `gorm:"type:text" json:"error_msg"`
	CreatedAt time.Time `json:"created_at"`
}

func (ConversationJobAttempt) TableName() string {
	return "conversation_job_attempts"
}
