package services

import (
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ProviderError is a structured error from an AI completion provider
type ProviderError struct {
	StatusCode int    `json:"status_code"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("[Provider %d] %s", e.Code, e.Message)
}

// IsRetryable returns true if the error is temporary and can be retried
func (e *ProviderError) IsRetryable() bool {
	return e.StatusCode == 408 || // Request Timeout
		e.StatusCode == 429 || // Too Many Requests
		e.StatusCode == 502 || // Bad Gateway
		e.StatusCode == 503 // Service Unavailable
}

// IsAuthError returns true if the error is related to authentication
func (e *ProviderError) IsAuthError() bool {
	return e.StatusCode == 401
}

// IsPaymentError returns true if the error is related to insufficient credits
func (e *ProviderError) IsPaymentError() bool {
	return e.StatusCode == 402
}

// IsModerationError returns true if the content was flagged by moderation
func (e *ProviderError) IsModerationError() bool {
	return e.StatusCode == 403
}

// IsContextLengthError returns true if the context is too long
func (e *ProviderError) IsContextLengthError() bool {
	if e.StatusCode != 400 {
		return false
	}

	msgLower := strings.ToLower(e.Message)
	return strings.Contains(msgLower, "context") &&
		(strings.Contains(msgLower, "length") ||
			strings.Contains(msgLower, "exceeded") ||
			strings.Contains(msgLower, "too long"))
}

// ParseSDKError converts a go-openai SDK error (or any wrapped provider
// failure) into a classified ProviderError
func ParseSDKError(err error) *ProviderError {
	if err == nil {
		return nil
	}

	// Try to unwrap as OpenAI API error
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{
			StatusCode: apiErr.HTTPStatusCode,
			Code:       apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
		}
	}

	// Fallback: parse error message for common patterns
	errMsg := err.Error()
	errMsgLower := strings.ToLower(errMsg)

	if strings.Contains(errMsgLower, "timeout") || strings.Contains(errMsgLower, "deadline exceeded") {
		return &ProviderError{StatusCode: 408, Code: 408, Message: "Request timeout"}
	}

	if strings.Contains(errMsgLower, "context") &&
		(strings.Contains(errMsgLower, "length") || strings.Contains(errMsgLower, "too long")) {
		return &ProviderError{StatusCode: 400, Code: 400, Message: errMsg}
	}

	if strings.Contains(errMsgLower, "unauthorized") || strings.Contains(errMsgLower, "invalid api key") {
		return &ProviderError{StatusCode: 401, Code: 401, Message: "Authentication failed"}
	}

	if strings.Contains(errMsgLower, "insufficient") || strings.Contains(errMsgLower, "quota") || strings.Contains(errMsgLower, "billing") {
		return &ProviderError{StatusCode: 402, Code: 402, Message: "Insufficient credits or quota exceeded"}
	}

	if strings.Contains(errMsgLower, "rate limit") || strings.Contains(errMsgLower, "too many requests") {
		return &ProviderError{StatusCode: 429, Code: 429, Message: "Rate limit exceeded"}
	}

	if strings.Contains(errMsgLower, "bad gateway") {
		return &ProviderError{StatusCode: 502, Code: 502, Message: "Bad gateway"}
	}

	if strings.Contains(errMsgLower, "service unavailable") || strings.Contains(errMsgLower, "temporarily unavailable") {
		return &ProviderError{StatusCode: 503, Code: 503, Message: "Service temporarily unavailable"}
	}

	// Unknown error - treat as non-retryable
	return &ProviderError{StatusCode: 500, Code: 500, Message: errMsg}
}
