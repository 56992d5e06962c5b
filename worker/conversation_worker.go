package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"glowdesk-wa-agent/database"
	"glowdesk-wa-agent/models"
	"glowdesk-wa-agent/services"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

const maxJobAttempts = 3

// ConversationWorker drains the conversation job queue: one job per inbound
// WhatsApp message, claimed with FOR UPDATE SKIP LOCKED so multiple worker
// processes can run side by side.
type ConversationWorker struct {
	ai       services.AIProvider
	db       *gorm.DB
	shutdown chan struct{}
	wg       sync.WaitGroup
}

// NewConversationWorker creates a worker instance. The AI provider is
// constructed here so a missing credential fails at startup, not per message.
func NewConversationWorker() (*ConversationWorker, error) {
	ai, err := services.GetAIProvider()
	if err != nil {
		return nil, err
	}

	return &ConversationWorker{
		ai:       ai,
		db:       database.GetDB(),
		shutdown: make(chan struct{}),
	}, nil
}

// Provider exposes the active AI provider (for startup logging)
func (w *ConversationWorker) Provider() services.AIProvider {
	return w.ai
}

// Start begins the worker loop
func (w *ConversationWorker) Start() {
	log.Println("🤖 Conversation worker started")

	// Setup LISTEN for real-time notifications
	w.wg.Add(1)
	go w.listenForJobs()

	// Fallback polling (every 2 seconds if no notifications)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-w.shutdown:
			log.Println("🛑 Conversation worker shutting down...")
			w.wg.Wait()
			log.Println("✅ Conversation worker stopped")
			return
		case <-ticker.C:
			w.processJobs()
		}
	}
}

// Stop signals worker to shutdown gracefully
func (w *ConversationWorker) Stop() {
	close(w.shutdown)
}

// listenForJobs sets up PostgreSQL LISTEN for job notifications with auto-reconnect
func (w *ConversationWorker) listenForJobs() {
	defer w.wg.Done()

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
	)

	// Cloud Postgres aggressively closes LISTEN connections; the 2s polling
	// fallback keeps jobs flowing while the listener reconnects.
	eventCallback := func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			log.Println("✅ [LISTEN] Connected - instant notifications enabled")
		case pq.ListenerEventDisconnected:
			log.Println("ℹ️  [LISTEN] Disconnected (polling fallback active)")
		case pq.ListenerEventReconnected:
			log.Println("✅ [LISTEN] Reconnected")
		case pq.ListenerEventConnectionAttemptFailed:
			if err != nil && !strings.Contains(err.Error(), "connection") && !strings.Contains(err.Error(), "forcibly closed") {
				log.Printf("⚠️  [LISTEN] Error: %v (polling fallback active)\n", err)
			}
		}
	}

	listener := pq.NewListener(connStr, 10*time.Second, time.Minute, eventCallback)

	if err := listener.Listen("conversation_jobs_channel"); err != nil {
		log.Printf("⚠️  Failed to listen on conversation_jobs_channel: %v (polling only)", err)
		return
	}
	defer listener.Close()

	log.Println("👂 Listening for job notifications on conversation_jobs_channel...")

	keepaliveTicker := time.NewTicker(60 * time.Second)
	defer keepaliveTicker.Stop()

	for {
		select {
		case <-w.shutdown:
			log.Println("🔕 Stopping job listener...")
			return

		case notification := <-listener.Notify:
			if notification != nil {
				w.processJobs()
			}
			// nil means the connection was lost; pq.Listener reconnects on
			// its own

		case <-keepaliveTicker.C:
			go func() {
				_ = listener.Ping()
			}()
		}
	}
}

// processJobs fetches and processes pending jobs with row locking
func (w *ConversationWorker) processJobs() {
	for {
		var job models.ConversationJob
		tx := w.db.Begin()

		err := tx.Raw(`
			SELECT * FROM conversation_jobs
			WHERE status = 'pending'
			AND (next_run_at IS NULL OR next_run_at <= NOW())
			ORDER BY priority ASC, id ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		`).Scan(&job).Error

		if err != nil || job.ID == 0 {
			tx.Rollback()
			return // No jobs available
		}

		tx.Model(&job).Updates(map[string]interface{}{
			"status":     "processing",
			"attempts":   job.Attempts + 1,
			"updated_at": time.Now(),
		})
		tx.Commit()
		job.Attempts++

		w.processJob(&job)
	}
}

// processJob runs one inbound message through the conversation pipeline and
// sends the reply
func (w *ConversationWorker) processJob(job *models.ConversationJob) {
	log.Printf("⚙️  Processing job #%d (from: %s, attempt: %d)", job.ID, job.FromNumber, job.Attempts)

	start := time.Now()

	attempt := models.ConversationJobAttempt{
		JobID:     job.ID,
		StartedAt: start,
		Status:    "processing",
	}
	w.db.Create(&attempt)

	var org models.Organization
	err := w.db.Where("id = ? AND is_active = ?", job.OrganizationID, true).First(&org).Error
	if err != nil {
		w.permanentFailJob(job, &attempt, fmt.Sprintf("organization not found or inactive: %v", err))
		return
	}

	sender := services.NewWhatsAppSender(org.WhatsAppPhoneID)

	// Mark the inbound message read + show typing while we think
	go sender.MarkMessageRead(job.WaMessageID, true)

	handler := services.NewConversationHandler(w.db, w.ai, &org)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	resp, pipeErr := handler.ProcessMessage(ctx, services.InboundMessage{
		From:      job.FromNumber,
		Text:      job.MessageText,
		Type:      job.MessageType,
		Timestamp: job.MessageAt.Unix(),
	})

	if pipeErr != nil {
		provErr := services.ParseSDKError(pipeErr)
		if provErr.IsRetryable() && job.Attempts < maxJobAttempts {
			// Retry before burdening the user with the fallback reply
			w.failJob(job, &attempt, fmt.Sprintf("pipeline failed (%d): %s", provErr.Code, provErr.Message))
			return
		}
		log.Printf("🚫 Job #%d: non-retryable or exhausted, sending fallback (%v)", job.ID, pipeErr)
		// resp already holds the fixed fallback; fall through and send it
	}

	if err := sender.SendResponse(job.FromNumber, resp); err != nil {
		w.db.Create(&models.MessageSendLog{
			OrganizationID: org.ID,
			To:             job.FromNumber,
			Body:           resp.Text,
			Status:         "failed",
			ErrorMsg:       err.Error(),
			CreatedAt:      time.Now(),
		})
		w.failJob(job, &attempt, fmt.Sprintf("failed to send WA message: %v", err))
		return
	}

	w.db.Create(&models.MessageSendLog{
		OrganizationID: org.ID,
		To:             job.FromNumber,
		Body:           resp.Text,
		Status:         "sent",
		CreatedAt:      time.Now(),
	})

	latency := time.Since(start).Milliseconds()
	responseJSON, _ := json.Marshal(resp)

	now := time.Now()
	finalStatus := "done"
	errorMsg := ""
	if pipeErr != nil {
		// Fallback was sent; record the incident on the job for operators
		finalStatus = "failed"
		errorMsg = pipeErr.Error()
	}
	w.db.Model(job).Updates(map[string]interface{}{
		"status":        finalStatus,
		"response_json": string(responseJSON),
		"error_msg":     errorMsg,
		"updated_at":    now,
	})

	w.db.Model(&attempt).Updates(map[string]interface{}{
		"status":   "ok",
		"ended_at": now,
	})

	log.Printf("✅ Job #%d completed in %dms (status: %s)", job.ID, latency, finalStatus)
}

// failJob marks job as failed with retry logic
func (w *ConversationWorker) failJob(job *models.ConversationJob, attempt *models.ConversationJobAttempt, errMsg string) {
	log.Printf("❌ Job #%d failed: %s", job.ID, errMsg)

	now := time.Now()

	w.db.Model(attempt).Updates(map[string]interface{}{
		"status":    "error",
		"error_msg": errMsg,
		"ended_at":  now,
	})

	updates := map[string]interface{}{
		"error_msg":  errMsg,
		"updated_at": now,
	}

	if job.Attempts < maxJobAttempts {
		nextRun := now.Add(30 * time.Second)
		updates["status"] = "pending"
		updates["next_run_at"] = nextRun
		log.Printf("🔄 Job #%d will retry at %s (attempt %d/%d)", job.ID, nextRun.Format(time.RFC3339), job.Attempts, maxJobAttempts)
	} else {
		updates["status"] = "failed"
		log.Printf("💀 Job #%d permanently failed after %d attempts", job.ID, job.Attempts)
	}

	w.db.Model(job).Updates(updates)
}

// permanentFailJob marks job as permanently failed (no retry)
func (w *ConversationWorker) permanentFailJob(job *models.ConversationJob, attempt *models.ConversationJobAttempt, errMsg string) {
	log.Printf("🚫 Job #%d permanently failed: %s", job.ID, errMsg)

	now := time.Now()

	w.db.Model(attempt).Updates(map[string]interface{}{
		"status":    "error",
		"ended_at":  now,
		"error_msg": errMsg,
	})

	w.db.Model(job).Updates(map[string]interface{}{
		"status":     "failed",
		"error_msg":  errMsg,
		"updated_at": now,
	})
}
