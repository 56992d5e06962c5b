package database

import (
	"fmt"
	"log"
	"os"

	"glowdesk-wa-agent/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDatabase opens the Postgres connection and prepares the schema
func InitDatabase() {
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbname := os.Getenv("DB_NAME")
	sslmode := os.Getenv("DB_SSLMODE")

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // No logging for cleaner output
	})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	log.Println("Database connected successfully")

	if err := autoMigrateTables(); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Create NOTIFY trigger for conversation jobs
	if err := createNotifyTrigger(); err != nil {
		log.Printf("Warning: Failed to create NOTIFY trigger: %v", err)
	}
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

// autoMigrateTables checks and migrates only tables that don't exist
func autoMigrateTables() error {
	tables := []struct {
		name  string
		model interface{}
	}{
		{"organizations", &models.Organization{}},
		{"services", &models.Service{}},
		{"clients", &models.Client{}},
		{"bookings", &models.Booking{}},
		{"whitelist_entries", &models.WhitelistEntry{}},
		{"feedback", &models.Feedback{}},
		{"chat_sessions", &models.ChatSession{}},
		{"chat_messages", &models.ChatMessage{}},
		{"conversation_logs", &models.ConversationLog{}},
		{"message_send_logs", &models.MessageSendLog{}},
		{"conversation_jobs", &models.ConversationJob{}},
		{"conversation_job_attempts", &models.ConversationJobAttempt{}},
	}

	migratedCount := 0
	skippedCount := 0

	log.Println("Checking database tables...")

	for _, table := range tables {
		if !DB.Migrator().HasTable(table.model) {
			log.Printf("Table '%s' not found, creating...", table.name)
			err := DB.AutoMigrate(table.model)
			if err != nil {
				return fmt.Errorf("failed to migrate table %s: %v", table.name, err)
			}
			log.Printf("✓ Created table: %s", table.name)
			migratedCount++
		} else {
			log.Printf("✓ Table '%s' already exists, skipping", table.name)
			skippedCount++
		}
	}

	if migratedCount > 0 {
		log.Printf("Database migration completed: %d tables created, %d tables skipped", migratedCount, skippedCount)
	} else {
		log.Printf("All database tables already exist (%d tables), no migration needed", skippedCount)
	}
	return nil
}

// createNotifyTrigger creates Postgres NOTIFY trigger for the conversation job queue
func createNotifyTrigger() error {
	log.Println("Creating NOTIFY trigger for conversation jobs queue...")

	err := DB.Exec(`
		CREATE OR REPLACE FUNCTION notify_conversation_job_insert()
		RETURNS TRIGGER AS $$
		BEGIN
			PERFORM pg_notify('conversation_jobs_channel', 'new');
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql;
	`).Error
	if err != nil {
		return fmt.Errorf("failed to create notify function: %v", err)
	}

	err = DB.Exec(`
		DROP TRIGGER IF EXISTS conversation_jobs_insert_trigger ON conversation_jobs;
	`).Error
	if err != nil {
		return fmt.Errorf("failed to drop existing trigger: %v", err)
	}

	err = DB.Exec(`
		CREATE TRIGGER conversation_jobs_insert_trigger
		AFTER INSERT ON conversation_jobs
		FOR EACH ROW
		EXECUTE FUNCTION notify_conversation_job_insert();
	`).Error
	if err != nil {
		return fmt.Errorf("failed to create trigger: %v", err)
	}

	log.Println("✓ NOTIFY trigger created successfully for conversation_jobs_channel")
	return nil
}
