// Package safety implements the deterministic content gate that runs before
// any paid model call: script/language detection, profanity and topic
// block-listing, and an educational-intent heuristic.
package safety

import (
	"regexp"
	"strings"

	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/config"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/domain"
)

// Thresholds for the language and intent checks.
const (
	// shortTextThreshold: cleaned remainders at or below this length pass the
	// language check even when no supported script is detected.
	shortTextThreshold = 5
	// smallTalkLimit: trimmed messages shorter than this are accepted as
	// greetings/small talk without keyword checks.
	smallTalkLimit = 20
	// keywordRequiredLimit: messages longer than this must contain an
	// educational keyword to be accepted.
	keywordRequiredLimit = 50
)

var (
	// stripRe removes digits, whitespace, punctuation and symbols, leaving
	// only letters to judge the script.
	stripRe = regexp.MustCompile(`[0-9\s\p{P}\p{S}]+`)

	// blockedScripts match scripts the assistant does not support.
	blockedScripts = []*regexp.Regexp{
		regexp.MustCompile(`[\x{4E00}-\x{9FFF}]`),                   // Han (Chinese)
		regexp.MustCompile(`[\x{3040}-\x{309F}\x{30A0}-\x{30FF}]`),  // Japanese kana
		regexp.MustCompile(`[\x{AC00}-\x{D7AF}\x{1100}-\x{11FF}]`),  // Korean Hangul
		regexp.MustCompile(`[\x{0600}-\x{06FF}\x{0750}-\x{077F}]`),  // Arabic
		regexp.MustCompile(`[\x{0400}-\x{04FF}]`),                   // Cyrillic
		regexp.MustCompile(`[\x{0E00}-\x{0E7F}]`),                   // Thai
		regexp.MustCompile(`[\x{0590}-\x{05FF}]`),                   // Hebrew
	}

	// supportedScripts match the languages the assistant answers in:
	// English, Telugu and Hindi (Devanagari).
	supportedScripts = regexp.MustCompile(`[a-zA-Z\x{0C00}-\x{0C7F}\x{0900}-\x{097F}]`)
)

// User-facing rejection messages, keyed by reason. Wording is advisory;
// callers should branch on the reason code.
var rejectionMessages = map[domain.SafetyReason]string{
	domain.ReasonUnsupportedLanguage:   "I can currently help you in English, Telugu, or Hindi. Please ask your question in one of these languages.",
	domain.ReasonInappropriateLanguage: "Let's keep our conversation respectful. I'm here to help you learn and build projects - ask me anything about coding!",
	domain.ReasonNonEducational:        "I'm focused on helping you with coding, projects, and learning. Please ask me something related to your studies or technical skills.",
}

// Classifier is the ordered, deterministic message gate. It is a pure
// function of the message text; construct once and share.
type Classifier struct {
	profanity []string
	topics    []string
	keywords  []string
}

// NewClassifier builds a classifier from the configured lists, falling back
// to the compiled-in defaults for any empty table.
func NewClassifier(lists config.SafetyLists) *Classifier {
	c := &Classifier{
		profanity: lists.Profanity,
		topics:    lists.BlockedTopics,
		keywords:  lists.EducationalKeywords,
	}
	if len(c.profanity) == 0 {
		c.profanity = defaultProfanity
	}
	if len(c.topics) == 0 {
		c.topics = defaultBlockedTopics
	}
	if len(c.keywords) == 0 {
		c.keywords = defaultEducationalKeywords
	}
	return c
}

// Classify runs the pipeline in order; the first failing stage wins.
func (c *Classifier) Classify(message string) domain.SafetyVerdict {
	if v, ok := c.checkLanguage(message); !ok {
		return v
	}
	if v, ok := c.checkProfanity(message); !ok {
		return v
	}
	if v, ok := c.checkTopics(message); !ok {
		return v
	}
	if v, ok := c.checkEducationalIntent(message); !ok {
		return v
	}
	return domain.SafetyVerdict{Accepted: true, Reason: domain.ReasonOK}
}

func reject(reason domain.SafetyReason) domain.SafetyVerdict {
	return domain.SafetyVerdict{Accepted: false, Reason: reason, UserMessage: rejectionMessages[reason]}
}

// checkLanguage strips digits/whitespace/punctuation and judges the script
// of the remainder. Empty remainders pass: there is nothing to judge.
func (c *Classifier) checkLanguage(message string) (domain.SafetyVerdict, bool) {
	cleaned := stripRe.ReplaceAllString(message, "")
	if cleaned == "" {
		return domain.SafetyVerdict{}, true
	}
	for _, re := range blockedScripts {
		if re.MatchString(cleaned) {
			return reject(domain.ReasonUnsupportedLanguage), false
		}
	}
	if !supportedScripts.MatchString(cleaned) {
		// Unknown script: permissive for short ambiguous input only.
		if len([]rune(cleaned)) > shortTextThreshold {
			return reject(domain.ReasonUnsupportedLanguage), false
		}
	}
	return domain.SafetyVerdict{}, true
}

func (c *Classifier) checkProfanity(message string) (domain.SafetyVerdict, bool) {
	lower := strings.ToLower(message)
	for _, term := range c.profanity {
		if strings.Contains(lower, term) {
			return reject(domain.ReasonInappropriateLanguage), false
		}
	}
	return domain.SafetyVerdict{}, true
}

func (c *Classifier) checkTopics(message string) (domain.SafetyVerdict, bool) {
	lower := strings.ToLower(message)
	for _, term := range c.topics {
		if strings.Contains(lower, term) {
			return reject(domain.ReasonNonEducational), false
		}
	}
	return domain.SafetyVerdict{}, true
}

// checkEducationalIntent accepts very short messages unconditionally, then
// requires an educational keyword once the message is long enough that the
// benefit of the doubt no longer applies.
func (c *Classifier) checkEducationalIntent(message string) (domain.SafetyVerdict, bool) {
	trimmed := strings.TrimSpace(message)
	length := len([]rune(trimmed))
	if length < smallTalkLimit {
		return domain.SafetyVerdict{}, true
	}
	lower := strings.ToLower(trimmed)
	for _, kw := range c.keywords {
		if strings.Contains(lower, kw) {
			return domain.SafetyVerdict{}, true
		}
	}
	if length > keywordRequiredLimit {
		return reject(domain.ReasonNonEducational), false
	}
	// 20-50 chars with no keyword: short but possibly substantive, allow.
	return domain.SafetyVerdict{}, true
}
