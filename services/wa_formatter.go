package services

import (
	"fmt"
	"regexp"
	"strings"
)

// FormatForWhatsApp converts markdown-style formatting to WhatsApp formatting
// WhatsApp supports:
// - *bold* (single asterisk on each side)
// - _italic_ (single underscore)
// - ~strikethrough~ (tilde)
// - ```code``` (triple backticks)
func FormatForWhatsApp(text string) string {
	// Convert markdown bold (**text**) to WhatsApp bold (*text*)
	reBold := regexp.MustCompile(`\*\*([^*]+?)\*\*`)
	text = reBold.ReplaceAllString(text, "*$1*")

	// Convert markdown list items with bold prefix
	// From: *   **Item:** description
	// To:   - *Item:* description
	reListBold := regexp.MustCompile(`(?m)^\*\s+\*([^*]+?)\*\s*(.*)$`)
	text = reListBold.ReplaceAllString(text, "- *$1* $2")

	// Convert remaining markdown list items (* item) to WhatsApp style (- item)
	reList := regexp.MustCompile(`(?m)^\*\s+`)
	text = reList.ReplaceAllString(text, "- ")

	// Clean up multiple consecutive newlines (max 2)
	reMultiNewline := regexp.MustCompile(`\n{3,}`)
	text = reMultiNewline.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// AppendQuickReplies renders the quick-reply suggestions as a numbered menu
// under the message text. Used when the payload has no interactive buttons.
func AppendQuickReplies(text string, quickReplies []string) string {
	if len(quickReplies) == 0 {
		return text
	}

	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n\n")
	for i, reply := range quickReplies {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("%d. %s", i+1, reply))
	}
	return b.String()
}

// StripMarkdown removes all markdown formatting
func StripMarkdown(text string) string {
	text = regexp.MustCompile(`\*+`).ReplaceAllString(text, "")
	text = regexp.MustCompile(`_+`).ReplaceAllString(text, "")
	text = regexp.MustCompile(`~+`).ReplaceAllString(text, "")
	text = regexp.MustCompile("`+").ReplaceAllString(text, "")

	return strings.TrimSpace(text)
}
