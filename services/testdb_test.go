package services

import (
	"fmt"
	"testing"
	"time"

	"glowdesk-wa-agent/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory database per test. The shared-cache DSN
// keeps all pooled connections pointed at the same database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Organization{},
		&models.Service{},
		&models.Client{},
		&models.Booking{},
		&models.WhitelistEntry{},
		&models.Feedback{},
		&models.ChatSession{},
		&models.ChatMessage{},
		&models.ConversationLog{},
		&models.MessageSendLog{},
		&models.ConversationJob{},
		&models.ConversationJobAttempt{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}

	return db
}

func newTestOrg(t *testing.T, db *gorm.DB) *models.Organization {
	t.Helper()

	org := models.Organization{
		ID:              uuid.New().String(),
		Name:            "Salone Bella Vita",
		Address:         "Via Roma 12, Milano",
		Phone:           "+39021234567",
		WhatsAppPhoneID: uuid.New().String(),
		IsActive:        true,
	}
	if err := db.Create(&org).Error; err != nil {
		t.Fatalf("failed to create test organization: %v", err)
	}
	return &org
}

func newTestService(t *testing.T, db *gorm.DB, orgID, name string, durationMin int, price float64) *models.Service {
	t.Helper()

	svc := models.Service{
		ID:              uuid.New().String(),
		OrganizationID:  orgID,
		Name:            name,
		Category:        "capelli",
		DurationMinutes: durationMin,
		Price:           price,
		IsActive:        true,
	}
	if err := db.Create(&svc).Error; err != nil {
		t.Fatalf("failed to create test service: %v", err)
	}
	return &svc
}

func newTestClient(t *testing.T, db *gorm.DB, orgID, name, phone string) *models.Client {
	t.Helper()

	client := models.Client{
		ID:             uuid.New().String(),
		OrganizationID: orgID,
		FullName:       name,
		Phone:          phone,
		WhatsAppPhone:  phone,
	}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("failed to create test client: %v", err)
	}
	return &client
}

func seedConversationLogs(t *testing.T, db *gorm.DB, orgID, from string, count int, at time.Time) {
	t.Helper()

	for i := 0; i < count; i++ {
		entry := models.ConversationLog{
			OrganizationID: orgID,
			FromNumber:     from,
			MessageText:    "ciao",
			ResponseText:   "ciao!",
			CreatedAt:      at,
		}
		if err := db.Create(&entry).Error; err != nil {
			t.Fatalf("failed to seed conversation log: %v", err)
		}
	}
}
