package services

import (
	"testing"
	"time"

	"glowdesk-wa-agent/models"

	"gorm.io/datatypes"
)

func TestLoadReturnsFreshSessionForStranger(t *testing.T) {
	db := newTestDB(t)
	store := NewContextStore(db)

	session, convCtx, err := store.Load("org-1", "+393331110000")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if session.ID == "" {
		t.Error("fresh session needs a generated id")
	}
	if convCtx.State != StateIdle {
		t.Errorf("fresh state = %q, want idle", convCtx.State)
	}
	if len(convCtx.MessageHistory) != 0 {
		t.Errorf("fresh history length = %d", len(convCtx.MessageHistory))
	}

	// Load alone persists nothing
	var count int64
	db.Model(&models.ChatSession{}).Count(&count)
	if count != 0 {
		t.Errorf("Load persisted %d sessions", count)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	db := newTestDB(t)
	store := NewContextStore(db)

	session, convCtx, err := store.Load("org-1", "+393331110000")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	convCtx.State = StateConfirmingBooking
	convCtx.BookingData = BookingData{ServiceID: "svc-1", Date: "2026-09-04", Time: "15:00"}
	convCtx.MessageHistory = append(convCtx.MessageHistory,
		HistoryEntry{Role: "user", Content: "C'è posto venerdì?", Timestamp: time.Now()},
		HistoryEntry{Role: "assistant", Content: "Sì, alle 15:00!", Timestamp: time.Now()},
	)

	if err := store.Save(session, convCtx, "C'è posto venerdì?", "Sì, alle 15:00!"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	_, loaded, err := store.Load("org-1", "+393331110000")
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.State != StateConfirmingBooking {
		t.Errorf("state = %q, want confirming_booking", loaded.State)
	}
	if loaded.BookingData.ServiceID != "svc-1" || loaded.BookingData.Time != "15:00" {
		t.Errorf("booking data lost: %+v", loaded.BookingData)
	}
	if len(loaded.MessageHistory) != 2 {
		t.Fatalf("history length = %d, want 2", len(loaded.MessageHistory))
	}
	if loaded.MessageHistory[0].Content != "C'è posto venerdì?" {
		t.Errorf("history[0] = %q", loaded.MessageHistory[0].Content)
	}
}

func TestSaveAppendsHistoryAcrossTurns(t *testing.T) {
	db := newTestDB(t)
	store := NewContextStore(db)

	for turn := 1; turn <= 3; turn++ {
		session, convCtx, err := store.Load("org-1", "+393331110000")
		if err != nil {
			t.Fatalf("Load failed on turn %d: %v", turn, err)
		}
		convCtx.MessageHistory = append(convCtx.MessageHistory,
			HistoryEntry{Role: "user", Content: "msg", Timestamp: time.Now()},
			HistoryEntry{Role: "assistant", Content: "reply", Timestamp: time.Now()},
		)
		if err := store.Save(session, convCtx, "msg", "reply"); err != nil {
			t.Fatalf("Save failed on turn %d: %v", turn, err)
		}
	}

	_, convCtx, err := store.Load("org-1", "+393331110000")
	if err != nil {
		t.Fatalf("final load failed: %v", err)
	}
	if len(convCtx.MessageHistory) != 6 {
		t.Errorf("history length = %d, want 6 (append, not replace)", len(convCtx.MessageHistory))
	}

	// One session row, not one per turn
	var sessions int64
	db.Model(&models.ChatSession{}).Where("organization_id = ?", "org-1").Count(&sessions)
	if sessions != 1 {
		t.Errorf("session count = %d, want 1", sessions)
	}

	// Two audit messages per turn
	var messages int64
	db.Model(&models.ChatMessage{}).Count(&messages)
	if messages != 6 {
		t.Errorf("chat message count = %d, want 6", messages)
	}
}

func TestLoadRecoversFromCorruptContext(t *testing.T) {
	db := newTestDB(t)
	store := NewContextStore(db)

	session := models.ChatSession{
		ID:             "sess-1",
		OrganizationID: "org-1",
		WhatsAppPhone:  "+393331110000",
		IsActive:       true,
		Context:        datatypes.JSON([]byte(`{{{broken`)),
		LastMessageAt:  time.Now(),
	}
	if err := db.Create(&session).Error; err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}

	_, convCtx, err := store.Load("org-1", "+393331110000")
	if err != nil {
		t.Fatalf("Load should recover from corrupt context, got %v", err)
	}
	if convCtx.State != StateIdle {
		t.Errorf("recovered state = %q, want idle", convCtx.State)
	}
	if convCtx.MessageHistory == nil {
		t.Error("recovered history must be non-nil")
	}
}

func TestSessionsIsolatedByOrganization(t *testing.T) {
	db := newTestDB(t)
	store := NewContextStore(db)

	sessionA, ctxA, _ := store.Load("org-a", "+393331110000")
	ctxA.State = StateConfirmingBooking
	if err := store.Save(sessionA, ctxA, "ciao", "ciao!"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Same phone, different organization: fresh context
	_, ctxB, err := store.Load("org-b", "+393331110000")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ctxB.State != StateIdle {
		t.Errorf("org-b state = %q, want a fresh idle context", ctxB.State)
	}
}

func TestLockSessionSerializesSamePhone(t *testing.T) {
	store := NewContextStore(newTestDB(t))

	unlock := store.LockSession("org-1", "+393331110000")

	acquired := make(chan struct{})
	go func() {
		u := store.LockSession("org-1", "+393331110000")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first still held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired after unlock")
	}
}

func TestLockSessionIndependentPhones(t *testing.T) {
	store := NewContextStore(newTestDB(t))

	unlock := store.LockSession("org-1", "+393331110000")
	defer unlock()

	done := make(chan struct{})
	go func() {
		u := store.LockSession("org-1", "+393339990000")
		u()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("different phone should not block")
	}
}
