package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestVerifyWhatsAppWebhook(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("WHATSAPP_VERIFY_TOKEN", "segreto")

	router := gin.New()
	router.GET("/webhook/whatsapp", VerifyWhatsAppWebhook)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=segreto&hub.challenge=12345", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "12345" {
		t.Errorf("body = %q, want the echoed challenge", w.Body.String())
	}
}

func TestVerifyWhatsAppWebhookWrongToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("WHATSAPP_VERIFY_TOKEN", "segreto")

	router := gin.New()
	router.GET("/webhook/whatsapp", VerifyWhatsAppWebhook)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=sbagliato&hub.challenge=12345", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}
