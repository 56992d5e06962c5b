package services

import (
	"log"
	"strings"
	"time"

	"glowdesk-wa-agent/models"

	"gorm.io/gorm"
)

// Anti-abuse thresholds. Trusted senders (whitelisted or existing clients)
// bypass the spam check entirely and get the wider rate-limit window.
const (
	spamMaxMessages = 10
	spamWindow      = 5 * time.Minute

	trustedRateLimit  = 50
	trustedRateWindow = 30 * time.Minute

	strangerRateLimit  = 20
	strangerRateWindow = 10 * time.Minute
)

// PolicyVerdict: outcome of the pre-AI policy filters. A rejected verdict
// short-circuits the pipeline with a canned reply and no AI cost.
type PolicyVerdict struct {
	Rejected bool
	Reply    string
}

// PolicyEngine runs the spam, rate-limit and business-hours filters in order.
// All queries are scoped to one organization.
type PolicyEngine struct {
	db       *gorm.DB
	orgID    string
	schedule *ScheduleResolver
	now      func() time.Time
}

func NewPolicyEngine(db *gorm.DB, orgID string, schedule *ScheduleResolver) *PolicyEngine {
	return &PolicyEngine{
		db:       db,
		orgID:    orgID,
		schedule: schedule,
		now:      time.Now,
	}
}

// Check runs all filters in strict order; the first rejection wins.
func (p *PolicyEngine) Check(fromNumber, text string) PolicyVerdict {
	trusted := p.isTrustedSender(fromNumber)

	if !trusted {
		if verdict := p.checkSpam(fromNumber, text); verdict.Rejected {
			log.Printf("🚫 [Policy] Spam rejection for %s (org %s)", fromNumber, p.orgID)
			return verdict
		}
	}

	if verdict := p.checkRateLimit(fromNumber, trusted); verdict.Rejected {
		log.Printf("🚫 [Policy] Rate limit hit for %s (trusted=%v)", fromNumber, trusted)
		return verdict
	}

	if !p.schedule.IsOpenAt(p.now()) {
		return PolicyVerdict{Rejected: true, Reply: ClosedHoursMessage(p.schedule.Describe())}
	}

	return PolicyVerdict{}
}

// isTrustedSender: whitelisted or an existing client, matched against both
// the primary and the WhatsApp-specific phone fields
func (p *PolicyEngine) isTrustedSender(fromNumber string) bool {
	var count int64
	p.db.Model(&models.WhitelistEntry{}).
		Where("organization_id = ? AND phone_number = ? AND is_active = ?", p.orgID, fromNumber, true).
		Count(&count)
	if count > 0 {
		return true
	}

	p.db.Model(&models.Client{}).
		Where("organization_id = ? AND (phone = ? OR whatsapp_phone = ?)", p.orgID, fromNumber, fromNumber).
		Count(&count)
	return count > 0
}

func (p *PolicyEngine) checkSpam(fromNumber, text string) PolicyVerdict {
	var count int64
	since := p.now().Add(-spamWindow)
	p.db.Model(&models.ConversationLog{}).
		Where("organization_id = ? AND from_number = ? AND created_at > ?", p.orgID, fromNumber, since).
		Count(&count)
	if count >= spamMaxMessages {
		return PolicyVerdict{Rejected: true, Reply: MsgSpamTooMany}
	}

	lower := strings.ToLower(text)
	for _, keyword := range spamKeywords {
		if strings.Contains(lower, keyword) {
			return PolicyVerdict{Rejected: true, Reply: MsgSpamBlockedContent}
		}
	}

	if len([]rune(text)) > MaxMessageLength {
		return PolicyVerdict{Rejected: true, Reply: MsgSpamTooLong}
	}

	return PolicyVerdict{}
}

// checkRateLimit uses a sliding window over conversation_logs timestamps, so
// senders unblock naturally as the window rolls off.
func (p *PolicyEngine) checkRateLimit(fromNumber string, trusted bool) PolicyVerdict {
	limit, window, reply := strangerRateLimit, strangerRateWindow, MsgRateLimitStranger
	if trusted {
		limit, window, reply = trustedRateLimit, trustedRateWindow, MsgRateLimitTrusted
	}

	var count int64
	since := p.now().Add(-window)
	p.db.Model(&models.ConversationLog{}).
		Where("organization_id = ? AND from_number = ? AND created_at > ?", p.orgID, fromNumber, since).
		Count(&count)
	if count >= int64(limit) {
		return PolicyVerdict{Rejected: true, Reply: reply}
	}
	return PolicyVerdict{}
}
