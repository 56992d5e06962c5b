package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"glowdesk-wa-agent/models"

	openai "github.com/sashabaranov/go-openai"
	"gorm.io/gorm"
)

// promptHistoryLimit: turns sent to the model per completion
const promptHistoryLimit = 10

// providerBreaker is shared across all handlers so repeated provider
// failures open the circuit for the whole process
var providerBreaker = NewCircuitBreaker("ai-provider", 5, 60*time.Second)

// ConversationHandler runs the per-message pipeline for one organization:
// policy filters → context load → completion (with function calling) →
// context save + audit log. Handlers are cheap and constructed per message;
// cross-message state lives in the database.
type ConversationHandler struct {
	db       *gorm.DB
	ai       AIProvider
	org      *models.Organization
	schedule *ScheduleResolver
	policies *PolicyEngine
	store    *ContextStore
	breaker  *CircuitBreaker
	now      func() time.Time
}

func NewConversationHandler(db *gorm.DB, ai AIProvider, org *models.Organization) *ConversationHandler {
	schedule := NewScheduleResolver(org)
	return &ConversationHandler{
		db:       db,
		ai:       ai,
		org:      org,
		schedule: schedule,
		policies: NewPolicyEngine(db, org.ID, schedule),
		store:    NewContextStore(db),
		breaker:  providerBreaker,
		now:      time.Now,
	}
}

// ProcessMessage turns one inbound message into a reply envelope. It never
// panics out and always returns a well-formed response; a non-nil error marks
// an infrastructure failure (the returned response is then the fixed
// fallback, and the caller may retry before sending it).
func (h *ConversationHandler) ProcessMessage(ctx context.Context, msg InboundMessage) (resp AIResponse, err error) {
	unlock := h.store.LockSession(h.org.ID, msg.From)
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ [Conversation] Panic processing message from %s: %v", msg.From, r)
			resp = FallbackResponse()
			err = fmt.Errorf("panic in conversation pipeline: %v", r)
		}
	}()

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		// Non-text payloads are accepted by the shape but carry nothing for
		// the prompt
		return AIResponse{Text: "Al momento posso aiutarti solo con messaggi di testo. Scrivimi cosa ti serve! 😊"}, nil
	}

	// 1. Policy filters: may short-circuit before any AI cost
	if verdict := h.policies.Check(msg.From, text); verdict.Rejected {
		h.logConversation(msg.From, text, verdict.Reply)
		return AIResponse{Text: verdict.Reply}, nil
	}

	// 2. Load persisted context
	session, convCtx, err := h.store.Load(h.org.ID, msg.From)
	if err != nil {
		return h.fail(msg, text, fmt.Errorf("context load failed: %w", err))
	}

	// 3. Append the inbound message to history
	convCtx.MessageHistory = append(convCtx.MessageHistory, HistoryEntry{
		Role:      openai.ChatMessageRoleUser,
		Content:   text,
		Timestamp: h.now(),
	})

	// 4-6. Completion, optionally via a function call round-trip
	reply, err := h.complete(ctx, session, convCtx)
	if err != nil {
		return h.fail(msg, text, err)
	}

	convCtx.MessageHistory = append(convCtx.MessageHistory, HistoryEntry{
		Role:      openai.ChatMessageRoleAssistant,
		Content:   reply,
		Timestamp: h.now(),
	})

	// 7. Response envelope
	resp = AIResponse{Text: reply, QuickReplies: QuickReplyMenu}
	if convCtx.State == StateConfirmingBooking {
		resp.Buttons = ConfirmButtons
	}

	// 8. Persist context + audit trail
	if err := h.store.Save(session, convCtx, text, reply); err != nil {
		return h.fail(msg, text, err)
	}
	h.logConversation(msg.From, text, reply)

	return resp, nil
}

// complete builds the prompt, asks the model for a decision, and resolves an
// optional function call into final natural-language content.
func (h *ConversationHandler) complete(ctx context.Context, session *models.ChatSession, convCtx *ConversationContext) (string, error) {
	var activeServices []models.Service
	err := h.db.Where("organization_id = ? AND is_active = ?", h.org.ID, true).
		Order("name ASC").Find(&activeServices).Error
	if err != nil {
		return "", fmt.Errorf("failed to load services for prompt: %w", err)
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: BuildSystemPrompt(h.org, h.schedule, activeServices)},
	}
	history := convCtx.MessageHistory
	if len(history) > promptHistoryLimit {
		history = history[len(history)-promptHistoryLimit:]
	}
	for _, entry := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    entry.Role,
			Content: entry.Content,
		})
	}

	first, err := h.callProvider(ctx, openai.ChatCompletionRequest{
		Messages:     messages,
		Functions:    FunctionCatalog(),
		FunctionCall: "auto",
		Temperature:  0.7,
		MaxTokens:    500,
	})
	if err != nil {
		return "", err
	}

	choice := first.Choices[0].Message
	if choice.FunctionCall == nil {
		// Branch B: direct content
		return strings.TrimSpace(choice.Content), nil
	}

	// Branch A: execute the requested function, then ask the model to phrase
	// the result
	call := choice.FunctionCall
	log.Printf("🔧 [Conversation] Function call: %s(%s)", call.Name, call.Arguments)

	executor := NewFunctionExecutor(h.db, h.org, h.schedule, session)
	result, err := executor.Execute(call.Name, json.RawMessage(call.Arguments))
	if err != nil {
		return "", err
	}

	h.advanceState(convCtx, call.Name, json.RawMessage(call.Arguments), result)

	payload, err := json.Marshal(result)
	if err != nil {
		payload = []byte(`{"success":false,"error":"internal serialization error"}`)
	}

	messages = append(messages, choice)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleFunction,
		Name:    call.Name,
		Content: string(payload),
	})

	second, err := h.callProvider(ctx, openai.ChatCompletionRequest{
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(second.Choices[0].Message.Content), nil
}

func (h *ConversationHandler) callProvider(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	var resp openai.ChatCompletionResponse
	cbErr := h.breaker.Call(func() error {
		var apiErr error
		resp, apiErr = h.ai.CreateCompletion(ctx, req)
		return apiErr
	})
	if cbErr != nil {
		return openai.ChatCompletionResponse{}, fmt.Errorf("completion failed: %w", cbErr)
	}
	if len(resp.Choices) == 0 {
		return openai.ChatCompletionResponse{}, errors.New("no response from model")
	}
	return resp, nil
}

// advanceState moves the conversation state machine after a function call
func (h *ConversationHandler) advanceState(convCtx *ConversationContext, fnName string, args json.RawMessage, result FunctionResult) {
	switch fnName {
	case "check_availability":
		if !result.Success {
			return
		}
		var req struct {
			ServiceID     string `json:"service_id"`
			Date          string `json:"date"`
			PreferredTime string `json:"preferred_time"`
		}
		if err := json.Unmarshal(args, &req); err != nil {
			return
		}
		convCtx.State = StateConfirmingBooking
		convCtx.BookingData.ServiceID = req.ServiceID
		convCtx.BookingData.Date = req.Date
		if req.PreferredTime != "" {
			convCtx.BookingData.Time = req.PreferredTime
		}
	case "book_appointment", "cancel_appointment":
		if result.Success {
			convCtx.State = StateIdle
			convCtx.BookingData = BookingData{}
		}
	}
}

// fail converts any pipeline error into the fixed fallback reply. The
// incident is logged for operations; the user never sees the raw error.
func (h *ConversationHandler) fail(msg InboundMessage, text string, cause error) (AIResponse, error) {
	log.Printf("❌ [Conversation] Pipeline failure for %s (org %s): %v", msg.From, h.org.ID, cause)
	h.logConversation(msg.From, text, MsgFallback)
	return FallbackResponse(), cause
}

func (h *ConversationHandler) logConversation(fromNumber, messageText, responseText string) {
	if err := h.store.LogConversation(h.org.ID, fromNumber, messageText, responseText); err != nil {
		log.Printf("⚠️  [Conversation] Failed to write conversation log: %v", err)
	}
}
