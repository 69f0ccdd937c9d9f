package models

import "time"

// AgeRange is the configured age band of the child
type AgeRange string

const (
	AgeRangeYounger AgeRange = "3-5"
	AgeRangeOlder   AgeRange = "6-8"
)

// ParseAgeRange accepts only the two recognised age bands
func ParseAgeRange(s string) (AgeRange, bool) {
	switch AgeRange(s) {
	case AgeRangeYounger, AgeRangeOlder:
		return AgeRange(s), true
	default:
		return "", false
	}
}

// Message roles stored in the conversation buffer
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one child utterance plus the tutor's reply
type ConversationTurn struct {
	Timestamp         time.Time
	UserInput         string
	AssistantResponse string
	DetectedIntent    string
	ConfidenceScore   *float64
}

// Message is one buffer entry. A turn is stored as a user message followed by an assistant message.
type Message struct {
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	Intent     string    `json:"intent,omitempty"`
	Confidence *float64  `json:"confidence,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// DerivedState is the persisted form of the child profile inferred from conversation
type DerivedState struct {
	ChildName        string     `json:"child_name,omitempty"`
	CurrentLetter    string     `json:"current_letter"`
	Difficulty       Difficulty `json:"difficulty_level"`
	LastMistake      string     `json:"last_mistake,omitempty"`
	StreakCount      int        `json:"streak_count"`
	AgeRange         AgeRange   `json:"age_range"`
	LettersCompleted []string   `json:"letters_completed"`
	LettersStruggled []string   `json:"letters_struggled"`
}

// DerivedStateSnapshot is the read-only projection handed to UI and agent layers
type DerivedStateSnapshot struct {
	ChildName         *string    `json:"child_name"`
	CurrentLetter     string     `json:"current_letter"`
	DifficultyLevel   Difficulty `json:"difficulty_level"`
	LastMistake       *string    `json:"last_mistake"`
	StreakCount       int        `json:"streak_count"`
	AgeRange          AgeRange   `json:"age_range"`
	LettersCompleted  []string   `json:"letters_completed"`
	LettersStruggled  []string   `json:"letters_struggled"`
	TotalInteractions int        `json:"total_interactions"`
	SessionDuration   string     `json:"session_duration"`
}

// SessionSettings are the input/output channel flags of a session
type SessionSettings struct {
	VisionEnabled bool `json:"vision_enabled"`
	TTSEnabled    bool `json:"tts_enabled"`
	ASREnabled    bool `json:"asr_enabled"`
}

// DefaultSessionSettings returns vision off, speech in and out on
func DefaultSessionSettings() SessionSettings {
	return SessionSettings{
		VisionEnabled: false,
		TTSEnabled:    true,
		ASREnabled:    true,
	}
}

// SettingsUpdate selectively overwrites settings. Nil fields are left untouched.
type SettingsUpdate struct {
	AgeRange *string `json:"age_range,omitempty"`
	Vision   *bool   `json:"vision,omitempty"`
	TTS      *bool   `json:"tts,omitempty"`
	ASR      *bool   `json:"asr,omitempty"`
}

// SessionSnapshot is everything needed to rebuild a live session after a restart
type SessionSnapshot struct {
	ID                string          `json:"id"`
	ProfileID         string          `json:"profile_id"`
	MaxTurns          int             `json:"max_turns"`
	Messages          []Message       `json:"messages"`
	State             DerivedState    `json:"state"`
	Settings          SessionSettings `json:"settings"`
	SessionStart      time.Time       `json:"session_start"`
	TotalInteractions int             `json:"total_interactions"`
	Progress          *ProgressRecord `json:"progress,omitempty"`
}
