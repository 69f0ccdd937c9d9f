// Package session implements the per-conversation state engine: a bounded
// turn buffer, the child profile derived from what was said, the difficulty
// state machine and next-letter selection.
//
// A Memory is not safe for concurrent use. Callers serialise access per
// session (see service.TutorService).
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"alphabettutor/internal/alphabet"
	"alphabettutor/internal/models"
)

// ErrInvalidConfiguration is returned when a setting has an unrecognised value
var ErrInvalidConfiguration = errors.New("invalid configuration")

const (
	// Confidence thresholds for turn scoring
	struggleBelow = 0.6
	masteryAbove  = 0.8

	defaultLetter = "A"
	// maxNameLength bounds names set through the override hook
	maxNameLength = 40
)

// Score is a convenience for building an optional confidence value
func Score(v float64) *float64 {
	return &v
}

type derivedState struct {
	childName     string
	currentLetter string
	difficulty    models.Difficulty
	lastMistake   string
	streak        int
	ageRange      models.AgeRange
	completed     *alphabet.Set
	struggled     *alphabet.Set
}

func newDerivedState() derivedState {
	return derivedState{
		currentLetter: defaultLetter,
		difficulty:    models.DifficultyEasy,
		ageRange:      models.AgeRangeYounger,
		completed:     alphabet.NewSet(),
		struggled:     alphabet.NewSet(),
	}
}

// Memory is the single source of truth for one conversation
type Memory struct {
	buffer            *ConversationBuffer
	state             derivedState
	settings          models.SessionSettings
	sessionStart      time.Time
	totalInteractions int
	now               func() time.Time
}

// Option configures a Memory
type Option func(*Memory)

// WithClock overrides the wall clock (used by tests)
func WithClock(now func() time.Time) Option {
	return func(m *Memory) {
		m.now = now
	}
}

// New creates an empty session keeping the last maxTurns turns
func New(maxTurns int, opts ...Option) *Memory {
	m := &Memory{
		buffer:   NewConversationBuffer(maxTurns),
		state:    newDerivedState(),
		settings: models.DefaultSessionSettings(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.sessionStart = m.now()
	return m
}

// AddTurn records a turn and updates the derived state from it. It never fails:
// input without a name or letter simply leaves those fields alone.
func (m *Memory) AddTurn(userInput, assistantResponse, intent string, confidence *float64) {
	m.buffer.Append(models.ConversationTurn{
		Timestamp:         m.now(),
		UserInput:         userInput,
		AssistantResponse: assistantResponse,
		DetectedIntent:    intent,
		ConfidenceScore:   confidence,
	})
	m.totalInteractions++
	m.updateDerivedState(userInput, assistantResponse, confidence)
}

func (m *Memory) updateDerivedState(userInput, assistantResponse string, confidence *float64) {
	s := &m.state

	// The first name heard sticks for the rest of the session
	if s.childName == "" {
		if name := ExtractName(userInput); name != "" {
			s.childName = name
		}
	}

	// The most recently mentioned letter always wins
	if letter := ExtractLetter(userInput, assistantResponse); letter != "" {
		s.currentLetter = letter
	}

	if confidence != nil {
		switch c := *confidence; {
		case c < struggleBelow:
			s.streak = 0
			s.lastMistake = s.currentLetter
			s.struggled.Add(s.currentLetter)
		case c > masteryAbove:
			s.streak++
			s.completed.Add(s.currentLetter)
		}
	}

	s.difficulty = NextDifficulty(s.difficulty, s.streak, s.struggled.Len())
}

// SuggestNextLetter recommends the next letter for the current tier
func (m *Memory) SuggestNextLetter() string {
	return SelectNextLetter(m.state.difficulty, m.state.completed, m.state.struggled)
}

// DerivedState returns a snapshot of the derived state
func (m *Memory) DerivedState() models.DerivedStateSnapshot {
	s := m.state
	snap := models.DerivedStateSnapshot{
		CurrentLetter:     s.currentLetter,
		DifficultyLevel:   s.difficulty,
		StreakCount:       s.streak,
		AgeRange:          s.ageRange,
		LettersCompleted:  s.completed.Letters(),
		LettersStruggled:  s.struggled.Letters(),
		TotalInteractions: m.totalInteractions,
		SessionDuration:   formatDuration(m.now().Sub(m.sessionStart)),
	}
	if s.childName != "" {
		name := s.childName
		snap.ChildName = &name
	}
	if s.lastMistake != "" {
		mistake := s.lastMistake
		snap.LastMistake = &mistake
	}
	return snap
}

// FormattedMemory renders the last three exchanges and the derived state for display
func (m *Memory) FormattedMemory() string {
	history := m.buffer.Messages()

	var pairs []string
	for i := 0; i+1 < len(history); i += 2 {
		pairs = append(pairs, fmt.Sprintf("Child: %s\nBubbly: %s", history[i].Content, history[i+1].Content))
	}
	if len(pairs) > 3 {
		pairs = pairs[len(pairs)-3:]
	}

	state := m.DerivedState()
	name := "Unknown"
	if state.ChildName != nil {
		name = *state.ChildName
	}

	var b strings.Builder
	b.WriteString("=== Recent Conversation ===\n")
	b.WriteString(strings.Join(pairs, "\n---\n"))
	b.WriteString("\n\n=== Derived State ===\n")
	fmt.Fprintf(&b, "Name: %s\n", name)
	fmt.Fprintf(&b, "Current Letter: %s\n", state.CurrentLetter)
	fmt.Fprintf(&b, "Difficulty: %s\n", state.DifficultyLevel)
	fmt.Fprintf(&b, "Streak: %d correct\n", state.StreakCount)
	fmt.Fprintf(&b, "Age Range: %s\n", state.AgeRange)
	if len(state.LettersCompleted) > 0 {
		fmt.Fprintf(&b, "Mastered: %s\n", strings.Join(head(state.LettersCompleted, 5), ", "))
	}
	if len(state.LettersStruggled) > 0 {
		fmt.Fprintf(&b, "Needs Practice: %s\n", strings.Join(head(state.LettersStruggled, 3), ", "))
	}
	return b.String()
}

// UpdateSettings overwrites the provided settings. An unknown age range fails
// with ErrInvalidConfiguration and leaves every setting unchanged.
func (m *Memory) UpdateSettings(u models.SettingsUpdate) error {
	var ageRange models.AgeRange
	if u.AgeRange != nil && *u.AgeRange != "" {
		parsed, ok := models.ParseAgeRange(*u.AgeRange)
		if !ok {
			return fmt.Errorf("%w: age range %q", ErrInvalidConfiguration, *u.AgeRange)
		}
		ageRange = parsed
	}

	if ageRange != "" {
		m.state.ageRange = ageRange
	}
	if u.Vision != nil {
		m.settings.VisionEnabled = *u.Vision
	}
	if u.TTS != nil {
		m.settings.TTSEnabled = *u.TTS
	}
	if u.ASR != nil {
		m.settings.ASREnabled = *u.ASR
	}
	return nil
}

// Settings returns the channel flags
func (m *Memory) Settings() models.SessionSettings {
	return m.settings
}

// Reset starts the session over. Settings flags are kept; the derived state,
// including the age range, goes back to its defaults.
func (m *Memory) Reset() {
	m.buffer.Clear()
	m.state = newDerivedState()
	m.sessionStart = m.now()
	m.totalInteractions = 0
}

// SetChildName is the override hook for agents that recognised a name
// themselves. Blank or overlong names are ignored.
func (m *Memory) SetChildName(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLength {
		return false
	}
	m.state.childName = name
	return true
}

// SetCurrentLetter is the override hook for the letter being practised.
// Anything that is not a single letter is ignored.
func (m *Memory) SetCurrentLetter(letter string) bool {
	l, ok := alphabet.Normalize(letter)
	if !ok {
		return false
	}
	m.state.currentLetter = l
	return true
}

// ChildName returns the child's name or "" when unknown
func (m *Memory) ChildName() string {
	return m.state.childName
}

// CurrentLetter returns the letter being practised
func (m *Memory) CurrentLetter() string {
	return m.state.currentLetter
}

// Difficulty returns the current tier
func (m *Memory) Difficulty() models.Difficulty {
	return m.state.difficulty
}

// History returns the buffered messages, oldest first
func (m *Memory) History() []models.Message {
	return m.buffer.Messages()
}

// TotalInteractions returns the number of turns since the session started
func (m *Memory) TotalInteractions() int {
	return m.totalInteractions
}

// Snapshot exports the session for persistence. Identity fields are left to the caller.
func (m *Memory) Snapshot() models.SessionSnapshot {
	s := m.state
	return models.SessionSnapshot{
		MaxTurns: m.buffer.MaxTurns(),
		Messages: m.buffer.Messages(),
		State: models.DerivedState{
			ChildName:        s.childName,
			CurrentLetter:    s.currentLetter,
			Difficulty:       s.difficulty,
			LastMistake:      s.lastMistake,
			StreakCount:      s.streak,
			AgeRange:         s.ageRange,
			LettersCompleted: s.completed.Letters(),
			LettersStruggled: s.struggled.Letters(),
		},
		Settings:          m.settings,
		SessionStart:      m.sessionStart,
		TotalInteractions: m.totalInteractions,
	}
}

// Restore rebuilds a session from a snapshot. Values that would break the
// state invariants are replaced by their defaults.
func Restore(snap models.SessionSnapshot, opts ...Option) *Memory {
	m := New(snap.MaxTurns, opts...)
	m.buffer.restore(snap.Messages)
	m.settings = snap.Settings
	if !snap.SessionStart.IsZero() {
		m.sessionStart = snap.SessionStart
	}
	if snap.TotalInteractions > 0 {
		m.totalInteractions = snap.TotalInteractions
	}

	st := snap.State
	m.state.childName = strings.TrimSpace(st.ChildName)
	m.SetCurrentLetter(st.CurrentLetter)
	if st.Difficulty >= models.DifficultyEasy && st.Difficulty <= models.DifficultyHard {
		m.state.difficulty = st.Difficulty
	}
	if l, ok := alphabet.Normalize(st.LastMistake); ok {
		m.state.lastMistake = l
	}
	if st.StreakCount > 0 {
		m.state.streak = st.StreakCount
	}
	if ageRange, ok := models.ParseAgeRange(string(st.AgeRange)); ok {
		m.state.ageRange = ageRange
	}
	for _, l := range st.LettersCompleted {
		if l, ok := alphabet.Normalize(l); ok {
			m.state.completed.Add(l)
		}
	}
	for _, l := range st.LettersStruggled {
		if l, ok := alphabet.Normalize(l); ok {
			m.state.struggled.Add(l)
		}
	}
	return m
}

func head(letters []string, n int) []string {
	if len(letters) > n {
		return letters[:n]
	}
	return letters
}

// formatDuration renders elapsed time as H:MM:SS
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	mins := d / time.Minute
	d -= mins * time.Minute
	secs := d / time.Second
	return fmt.Sprintf("%d:%02d:%02d", h, mins, secs)
}
