package session

import "alphabettutor/internal/models"

// DefaultMaxTurns is the number of turns kept when none is configured
const DefaultMaxTurns = 3

// ConversationBuffer is a fixed-capacity FIFO of messages. Capacity is two
// slots per turn (user + assistant); the oldest messages are evicted first.
type ConversationBuffer struct {
	entries  []models.Message
	capacity int
}

// NewConversationBuffer creates a buffer holding maxTurns turns
func NewConversationBuffer(maxTurns int) *ConversationBuffer {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &ConversationBuffer{
		entries:  make([]models.Message, 0, maxTurns*2),
		capacity: maxTurns * 2,
	}
}

// Append stores a turn as a user message followed by an assistant message
func (b *ConversationBuffer) Append(turn models.ConversationTurn) {
	b.push(models.Message{
		Role:       models.RoleUser,
		Content:    turn.UserInput,
		Intent:     turn.DetectedIntent,
		Confidence: turn.ConfidenceScore,
		Timestamp:  turn.Timestamp,
	})
	b.push(models.Message{
		Role:      models.RoleAssistant,
		Content:   turn.AssistantResponse,
		Timestamp: turn.Timestamp,
	})
}

func (b *ConversationBuffer) push(m models.Message) {
	if len(b.entries) == b.capacity {
		copy(b.entries, b.entries[1:])
		b.entries = b.entries[:len(b.entries)-1]
	}
	b.entries = append(b.entries, m)
}

// Messages returns a copy of the buffered messages, oldest first
func (b *ConversationBuffer) Messages() []models.Message {
	out := make([]models.Message, len(b.entries))
	copy(out, b.entries)
	return out
}

// Len returns the number of buffered messages
func (b *ConversationBuffer) Len() int {
	return len(b.entries)
}

// Capacity returns the maximum number of buffered messages
func (b *ConversationBuffer) Capacity() int {
	return b.capacity
}

// MaxTurns returns the number of turns the buffer holds
func (b *ConversationBuffer) MaxTurns() int {
	return b.capacity / 2
}

// Clear drops every message
func (b *ConversationBuffer) Clear() {
	b.entries = b.entries[:0]
}

// restore replaces the contents, keeping only the newest messages that fit
func (b *ConversationBuffer) restore(messages []models.Message) {
	b.Clear()
	if len(messages) > b.capacity {
		messages = messages[len(messages)-b.capacity:]
	}
	b.entries = append(b.entries, messages...)
}
