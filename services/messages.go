package services

// Canned user-facing replies. Policy rejections and the top-level fallback
// never reach the language model, so these are fixed texts.
const (
	MsgSpamTooMany = "Hai inviato troppi messaggi in pochi minuti. Attendi qualche minuto e riprova."

	MsgSpamBlockedContent = "Il tuo messaggio non può essere elaborato. Se hai bisogno di assistenza, contattaci direttamente in salone."

	MsgSpamTooLong = "Il messaggio è troppo lungo (massimo 500 caratteri). Prova a riassumere la tua richiesta."

	MsgRateLimitTrusted = "Hai raggiunto il limite di messaggi per questa mezz'ora. Riprova tra poco, grazie della pazienza!"

	MsgRateLimitStranger = "Hai inviato troppi messaggi. Attendi qualche minuto prima di scrivere di nuovo."

	MsgFallback = "Mi dispiace, si è verificato un problema tecnico. Riprova tra qualche minuto oppure chiamaci direttamente in salone."

	// Feedback thank-you tiers
	MsgFeedbackPositive   = "Grazie mille per la tua recensione! Siamo felici che la tua esperienza sia stata positiva. A presto! 💖"
	MsgFeedbackNeutral    = "Grazie per il tuo feedback! Lo useremo per migliorare i nostri servizi."
	MsgFeedbackApologetic = "Ci dispiace che la tua esperienza non sia stata all'altezza delle aspettative. Il tuo feedback è prezioso e faremo di tutto per migliorare."
)

// MaxMessageLength is the spam filter cutoff for inbound text
const MaxMessageLength = 500

// spamKeywords: fixed blocklist, matched case-insensitively as substrings
var spamKeywords = []string{
	"bitcoin",
	"crypto",
	"investimento garantito",
	"guadagna subito",
	"clicca qui",
	"hai vinto",
	"lotteria",
	"premio in denaro",
	"casino",
	"bit.ly/",
}

// QuickReplyMenu: fixed menu of suggestions offered with every AI reply
var QuickReplyMenu = []string{
	"Prenota un appuntamento",
	"I miei appuntamenti",
	"Servizi e prezzi",
	"Orari di apertura",
	"Annulla prenotazione",
	"Lascia una recensione",
}

// ConfirmButtons: shown only while the conversation is confirming a booking
var ConfirmButtons = []Button{
	{ID: "confirm_booking", Title: "✅ Conferma"},
	{ID: "cancel_booking", Title: "❌ Annulla"},
}

// ClosedHoursMessage builds the outside-business-hours auto-reply
func ClosedHoursMessage(hours string) string {
	return "In questo momento il salone è chiuso. 🕐\n\nI nostri orari:\n" + hours +
		"\n\nTi risponderemo appena possibile durante l'orario di apertura!"
}

// FallbackResponse is the fixed response used when anything in the pipeline fails
func FallbackResponse() AIResponse {
	return AIResponse{Text: MsgFallback}
}

// FeedbackThanks picks the thank-you tier for a rating
func FeedbackThanks(rating int) string {
	switch {
	case rating >= 4:
		return MsgFeedbackPositive
	case rating >= 3:
		return MsgFeedbackNeutral
	default:
		return MsgFeedbackApologetic
	}
}
