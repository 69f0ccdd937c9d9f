package tutor

import (
	"strings"
	"unicode"
)

// BlockedReply is what the child hears when a message is blocked
const BlockedReply = "Let's keep learning letters! I can't talk about that."

// personalTopics are phrases that steer towards personal information
var personalTopics = []string{
	"personal information", "address", "phone", "email",
	"password", "credit card", "social security",
	"school name", "parent name", "where do you live",
}

// Verdict is the outcome of a safety check
type Verdict struct {
	Blocked bool
	// Reason is the topic or word that triggered the block
	Reason string
}

// SafetyFilter blocks personal-information topics and words from a blocklist
type SafetyFilter struct {
	words map[string]struct{}
}

// NewSafetyFilter builds a filter; blockedWords are matched as whole words, case-insensitively
func NewSafetyFilter(blockedWords []string) *SafetyFilter {
	f := &SafetyFilter{words: make(map[string]struct{}, len(blockedWords))}
	for _, w := range blockedWords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			f.words[w] = struct{}{}
		}
	}
	return f
}

// Check inspects a message
func (f *SafetyFilter) Check(text string) Verdict {
	lower := strings.ToLower(text)
	for _, topic := range personalTopics {
		if strings.Contains(lower, topic) {
			return Verdict{Blocked: true, Reason: topic}
		}
	}
	if f == nil || len(f.words) == 0 {
		return Verdict{}
	}
	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	for _, tok := range tokens {
		if _, ok := f.words[tok]; ok {
			return Verdict{Blocked: true, Reason: tok}
		}
	}
	return Verdict{}
}

// WordCount returns the size of the blocklist
func (f *SafetyFilter) WordCount() int {
	if f == nil {
		return 0
	}
	return len(f.words)
}
