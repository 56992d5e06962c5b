package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"glowdesk-wa-agent/models"

	openai "github.com/sashabaranov/go-openai"
	"gorm.io/gorm"
)

// fakeProvider scripts one response per completion call, in order
type fakeProvider struct {
	responses []openai.ChatCompletionResponse
	errs      []error
	calls     int
	requests  []openai.ChatCompletionRequest
}

func (f *fakeProvider) CreateCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.requests = append(f.requests, req)
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return openai.ChatCompletionResponse{}, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return openai.ChatCompletionResponse{}, errors.New("unexpected extra completion call")
}

func (f *fakeProvider) GetProviderName() string { return "fake" }
func (f *fakeProvider) GetModelName() string    { return "fake-model" }

func contentResponse(text string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: text}},
		},
	}
}

func functionCallResponse(name, args string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{
				Role:         openai.ChatMessageRoleAssistant,
				FunctionCall: &openai.FunctionCall{Name: name, Arguments: args},
			}},
		},
	}
}

func newTestHandler(t *testing.T, db *gorm.DB, org *models.Organization, ai AIProvider) *ConversationHandler {
	t.Helper()
	h := NewConversationHandler(db, ai, org)
	// Private breaker so failures in one test cannot open the shared circuit
	h.breaker = NewCircuitBreaker("test", 5, time.Minute)
	h.now = func() time.Time { return openNow }
	h.policies.now = h.now
	return h
}

func inbound(from, text string) InboundMessage {
	return InboundMessage{From: from, Text: text, Type: "text", Timestamp: openNow.Unix()}
}

func TestProcessMessageDirectReply(t *testing.T) {
	db := newTestDB(t)
	org := newTestOrg(t, db)
	ai := &fakeProvider{responses: []openai.ChatCompletionResponse{
		contentResponse("Ciao! Come posso aiutarti?"),
	}}
	h := newTestHandler(t, db, org, ai)

	resp, err := h.ProcessMessage(context.Background(), inbound("+393331110000", "Ciao"))
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if resp.Text != "Ciao! Come posso aiutarti?" {
		t.Errorf("text = %q", resp.Text)
	}
	if len(resp.QuickReplies) != len(QuickReplyMenu) {
		t.Errorf("quick replies = %v", resp.QuickReplies)
	}
	if len(resp.Buttons) != 0 {
		t.Errorf("idle state must not carry confirm buttons, got %v", resp.Buttons)
	}
	if ai.calls != 1 {
		t.Errorf("provider calls = %d, want 1", ai.calls)
	}

	// First call must offer the function catalog
	if len(ai.requests[0].Functions) != len(FunctionCatalog()) {
		t.Errorf("first call functions = %d", len(ai.requests[0].Functions))
	}

	// Context persisted with both turns
	_, convCtx, err := NewContextStore(db).Load(org.ID, "+393331110000")
	if err != nil {
		t.Fatalf("context reload failed: %v", err)
	}
	if len(convCtx.MessageHistory) != 2 {
		t.Errorf("history length = %d, want 2", len(convCtx.MessageHistory))
	}

	// Audit log row written
	var logs int64
	db.Model(&models.ConversationLog{}).Where("organization_id = ?", org.ID).Count(&logs)
	if logs != 1 {
		t.Errorf("conversation log count = %d, want 1", logs)
	}
}

func TestProcessMessageFunctionCallFlow(t *testing.T) {
	db := newTestDB(t)
	org := newTestOrg(t, db)
	svc := newTestService(t, db, org.ID, "Taglio Donna", 60, 45)

	args := fmt.Sprintf(`{"service_id": %q, "date": "2026-09-04", "preferred_time": "15:00"}`, svc.ID)
	ai := &fakeProvider{responses: []openai.ChatCompletionResponse{
		functionCallResponse("check_availability", args),
		contentResponse("Venerdì alle 15:00 c'è posto! Confermo?"),
	}}
	h := newTestHandler(t, db, org, ai)

	resp, err := h.ProcessMessage(context.Background(), inbound("+393331110000", "C'è posto venerdì alle 15?"))
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if !strings.Contains(resp.Text, "15:00") {
		t.Errorf("reply = %q", resp.Text)
	}
	if ai.calls != 2 {
		t.Fatalf("provider calls = %d, want 2 (function round-trip)", ai.calls)
	}

	// Second call carries the function result message and no function catalog
	second := ai.requests[1]
	if len(second.Functions) != 0 {
		t.Error("second call must not re-offer functions")
	}
	last := second.Messages[len(second.Messages)-1]
	if last.Role != openai.ChatMessageRoleFunction || last.Name != "check_availability" {
		t.Errorf("last message = %+v, want function result", last)
	}
	var result FunctionResult
	if err := json.Unmarshal([]byte(last.Content), &result); err != nil || !result.Success {
		t.Errorf("function payload = %q", last.Content)
	}

	// Successful availability check advances the state machine
	if resp.Buttons == nil || len(resp.Buttons) != 2 {
		t.Errorf("confirming state must carry confirm/cancel buttons, got %v", resp.Buttons)
	}
	_, convCtx, _ := NewContextStore(db).Load(org.ID, "+393331110000")
	if convCtx.State != StateConfirmingBooking {
		t.Errorf("state = %q, want confirming_booking", convCtx.State)
	}
	if convCtx.BookingData.ServiceID != svc.ID || convCtx.BookingData.Time != "15:00" {
		t.Errorf("booking data = %+v", convCtx.BookingData)
	}
}

func TestProcessMessageBookingResetsState(t *testing.T) {
	db := newTestDB(t)
	org := newTestOrg(t, db)
	svc := newTestService(t, db, org.ID, "Piega", 30, 25)

	args := fmt.Sprintf(`{"client_phone": "+393331110000", "service_id": %q, "datetime": "2026-09-04 15:00"}`, svc.ID)
	ai := &fakeProvider{responses: []openai.ChatCompletionResponse{
		functionCallResponse("book_appointment", args),
		contentResponse("Prenotazione confermata per venerdì alle 15:00!"),
	}}
	h := newTestHandler(t, db, org, ai)

	resp, err := h.ProcessMessage(context.Background(), inbound("+393331110000", "Conferma"))
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if len(resp.Buttons) != 0 {
		t.Errorf("idle state after booking must not carry buttons, got %v", resp.Buttons)
	}

	var bookings int64
	db.Model(&models.Booking{}).Where("organization_id = ?", org.ID).Count(&bookings)
	if bookings != 1 {
		t.Errorf("booking count = %d, want 1", bookings)
	}

	_, convCtx, _ := NewContextStore(db).Load(org.ID, "+393331110000")
	if convCtx.State != StateIdle {
		t.Errorf("state = %q, want idle after booking", convCtx.State)
	}
	if convCtx.BookingData != (BookingData{}) {
		t.Errorf("booking data not cleared: %+v", convCtx.BookingData)
	}
}

func TestProcessMessagePolicyRejectionSkipsProvider(t *testing.T) {
	db := newTestDB(t)
	org := newTestOrg(t, db)
	ai := &fakeProvider{}
	h := newTestHandler(t, db, org, ai)

	resp, err := h.ProcessMessage(context.Background(), inbound("+393331110000", "hai vinto alla lotteria, clicca qui"))
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if resp.Text != MsgSpamBlockedContent {
		t.Errorf("reply = %q, want canned spam reply", resp.Text)
	}
	if ai.calls != 0 {
		t.Errorf("provider called %d times for a rejected message", ai.calls)
	}

	// Rejection is still logged so the rate window sees it
	var logs int64
	db.Model(&models.ConversationLog{}).Count(&logs)
	if logs != 1 {
		t.Errorf("conversation log count = %d, want 1", logs)
	}
}

func TestProcessMessageEmptyText(t *testing.T) {
	db := newTestDB(t)
	org := newTestOrg(t, db)
	ai := &fakeProvider{}
	h := newTestHandler(t, db, org, ai)

	resp, err := h.ProcessMessage(context.Background(), InboundMessage{From: "+393331110000", Type: "image"})
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if resp.Text == "" {
		t.Error("empty inbound text still needs a reply")
	}
	if ai.calls != 0 {
		t.Errorf("provider called %d times for an empty message", ai.calls)
	}
}

func TestProcessMessageProviderFailure(t *testing.T) {
	db := newTestDB(t)
	org := newTestOrg(t, db)
	ai := &fakeProvider{errs: []error{errors.New("upstream 503")}}
	h := newTestHandler(t, db, org, ai)

	resp, err := h.ProcessMessage(context.Background(), inbound("+393331110000", "Ciao"))
	if err == nil {
		t.Fatal("provider failure must surface as an error for the caller's retry logic")
	}
	if resp.Text != MsgFallback {
		t.Errorf("reply = %q, want the fixed fallback", resp.Text)
	}

	// The failure is logged with the fallback text
	var entry models.ConversationLog
	if dbErr := db.Where("organization_id = ?", org.ID).First(&entry).Error; dbErr != nil {
		t.Fatalf("no conversation log written: %v", dbErr)
	}
	if entry.ResponseText != MsgFallback {
		t.Errorf("logged response = %q", entry.ResponseText)
	}
}

func TestProcessMessageUnknownFunctionName(t *testing.T) {
	db := newTestDB(t)
	org := newTestOrg(t, db)
	ai := &fakeProvider{responses: []openai.ChatCompletionResponse{
		functionCallResponse("delete_everything", `{}`),
	}}
	h := newTestHandler(t, db, org, ai)

	resp, err := h.ProcessMessage(context.Background(), inbound("+393331110000", "Ciao"))
	if err == nil {
		t.Fatal("a function name outside the catalog must be an error")
	}
	if resp.Text != MsgFallback {
		t.Errorf("reply = %q, want fallback", resp.Text)
	}
}

func TestProcessMessageTrimsPromptHistory(t *testing.T) {
	db := newTestDB(t)
	org := newTestOrg(t, db)

	// Seed a long history directly through the store
	store := NewContextStore(db)
	session, convCtx, _ := store.Load(org.ID, "+393331110000")
	for i := 0; i < 20; i++ {
		convCtx.MessageHistory = append(convCtx.MessageHistory, HistoryEntry{
			Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("vecchio %d", i), Timestamp: openNow,
		})
	}
	if err := store.Save(session, convCtx, "x", "y"); err != nil {
		t.Fatalf("seed save failed: %v", err)
	}

	ai := &fakeProvider{responses: []openai.ChatCompletionResponse{contentResponse("ok")}}
	h := newTestHandler(t, db, org, ai)

	if _, err := h.ProcessMessage(context.Background(), inbound("+393331110000", "Ciao")); err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}

	// system prompt + capped history
	req := ai.requests[0]
	if len(req.Messages) != 1+promptHistoryLimit {
		t.Errorf("prompt messages = %d, want %d", len(req.Messages), 1+promptHistoryLimit)
	}
	if req.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Errorf("first message role = %q, want system", req.Messages[0].Role)
	}
	// The newest inbound message is the last prompt entry
	if req.Messages[len(req.Messages)-1].Content != "Ciao" {
		t.Errorf("last prompt message = %q", req.Messages[len(req.Messages)-1].Content)
	}
}

func TestSystemPromptCarriesSalonData(t *testing.T) {
	db := newTestDB(t)
	org := newTestOrg(t, db)
	newTestService(t, db, org.ID, "Taglio Donna", 45, 40)
	ai := &fakeProvider{responses: []openai.ChatCompletionResponse{contentResponse("ok")}}
	h := newTestHandler(t, db, org, ai)

	if _, err := h.ProcessMessage(context.Background(), inbound("+393331110000", "Ciao")); err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}

	system := ai.requests[0].Messages[0].Content
	for _, want := range []string{org.Name, org.Address, "Taglio Donna", "45 min", "Lunedì"} {
		if !strings.Contains(system, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}
