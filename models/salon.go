package models

import (
	"time"

	"gorm.io/datatypes"
)

// Booking statuses
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"
	BookingNoShow    = "no_show"
)

// Organization: one salon tenant. Every other row is scoped by OrganizationID.
type Organization struct {
	ID              string         `gorm:"column:id;primaryKey" json:"id"`
	Name            string         `gorm:"not null" json:"name"`
	Address         string         `json:"address"`
	Phone           string         `json:"phone"`
	WhatsAppPhoneID string         `gorm:"column:whatsapp_phone_id;uniqueIndex" json:"whatsapp_phone_id"`
	WorkingHours    datatypes.JSON `gorm:"column:working_hours" json:"working_hours"`
	IsActive        bool           `gorm:"default:true;index" json:"is_active"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (Organization) TableName() string {
	return "organizations"
}

// Service: bookable treatment. Duration drives slot granularity and booking end time.
type Service struct {
	ID              string    `gorm:"column:id;primaryKey" json:"id"`
	OrganizationID  string    `gorm:"index;not null" json:"organization_id"`
	Name            string    `gorm:"not null" json:"name"`
	Description     string    `gorm:"type:text" json:"description"`
	Category        string    `gorm:"index" json:"category"`
	DurationMinutes int       `gorm:"not null" json:"duration_minutes"`
	Price           float64   `gorm:"not null" json:"price"`
	IsActive        bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Service) TableName() string {
	return "services"
}

// Client: identified by phone within an organization. Created lazily from the
// chat flow with a placeholder name when a stranger books or leaves feedback.
type Client struct {
	ID             string    `gorm:"column:id;primaryKey" json:"id"`
	OrganizationID string    `gorm:"index;not null" json:"organization_id"`
	FullName       string    `json:"full_name"`
	Phone          string    `gorm:"index" json:"phone"`
	WhatsAppPhone  string    `gorm:"column:whatsapp_phone;index" json:"whatsapp_phone"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Client) TableName() string {
	return "clients"
}

// Booking: EndAt is derived from the service duration, Price copied from the
// service at booking time.
type Booking struct {
	ID                 string     `gorm:"column:id;primaryKey" json:"id"`
	OrganizationID     string     `gorm:"index;not null" json:"organization_id"`
	ClientID           string     `gorm:"index;not null" json:"client_id"`
	ServiceID          string     `gorm:"index;not null" json:"service_id"`
	StartAt            time.Time  `gorm:"index;not null" json:"start_at"`
	EndAt              time.Time  `gorm:"not null" json:"end_at"`
	Status             string     `gorm:"index;default:'pending'" json:"status"`
	Price              float64    `json:"price"`
	Source             string     `gorm:"index" json:"source"` // "whatsapp" for bookings made by the agent
	Notes              string     `gorm:"type:text" json:"notes"`
	CancellationReason string     `gorm:"type:text" json:"cancellation_reason"`
	CancelledAt        *time.Time `json:"cancelled_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (Booking) TableName() string {
	return "bookings"
}

// WhitelistEntry grants bypass of spam checks and the tightened rate limit.
// Independent of Client existence.
type WhitelistEntry struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrganizationID string    `gorm:"index;not null" json:"organization_id"`
	PhoneNumber    string    `gorm:"index;not null" json:"phone_number"`
	IsActive       bool      `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

func (WhitelistEntry) TableName() string {
	return "whitelist_entries"
}

// Feedback collected through the chat flow, rating 1-5.
type Feedback struct {
	ID             string    `gorm:"column:id;primaryKey" json:"id"`
	OrganizationID string    `gorm:"index;not null" json:"organization_id"`
	ClientID       string    `gorm:"index;not null" json:"client_id"`
	ServiceID      *string   `json:"service_id"`
	BookingID      *string   `json:"booking_id"`
	Rating         int       `gorm:"not null" json:"rating"`
	Comment        string    `gorm:"type:text" json:"comment"`
	Category       string    `json:"category"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Feedback) TableName() string {
	return "feedback"
}
