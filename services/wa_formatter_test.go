package services

import (
	"strings"
	"testing"
)

func TestFormatForWhatsAppBold(t *testing.T) {
	got := FormatForWhatsApp("Ecco i **nostri servizi** disponibili")
	want := "Ecco i *nostri servizi* disponibili"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatForWhatsAppLists(t *testing.T) {
	input := "Servizi:\n*   **Taglio:** 40€\n*   Piega"
	got := FormatForWhatsApp(input)
	if !strings.Contains(got, "- *Taglio:* 40€") {
		t.Errorf("bold list item not converted: %q", got)
	}
	if !strings.Contains(got, "- Piega") {
		t.Errorf("plain list item not converted: %q", got)
	}
}

func TestFormatForWhatsAppCollapsesNewlines(t *testing.T) {
	got := FormatForWhatsApp("Ciao!\n\n\n\nA presto")
	if strings.Contains(got, "\n\n\n") {
		t.Errorf("newlines not collapsed: %q", got)
	}
}

func TestAppendQuickReplies(t *testing.T) {
	got := AppendQuickReplies("Come posso aiutarti?", []string{"Prenota", "Servizi"})
	want := "Come posso aiutarti?\n\n1. Prenota\n2. Servizi"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	if got := AppendQuickReplies("Ciao", nil); got != "Ciao" {
		t.Errorf("no replies should leave text untouched, got %q", got)
	}
}

func TestStripMarkdown(t *testing.T) {
	got := StripMarkdown("*bold* _italic_ ~strike~ `code`")
	if strings.ContainsAny(got, "*_~`") {
		t.Errorf("markdown left in %q", got)
	}
}
