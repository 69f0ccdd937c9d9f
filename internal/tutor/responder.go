// Package tutor produces Bubbly's replies. Responders read the session only
// through a Prompt and report what they recognised in a Reply; the caller
// decides what to write back into the session.
package tutor

import (
	"context"

	"alphabettutor/internal/models"
)

// Intents recognised in a child's message
const (
	IntentLearnLetter  = "learn_letter"
	IntentNextLetter   = "next_letter"
	IntentRepeat       = "repeat"
	IntentIntroduction = "introduction"
	IntentHelp         = "help"
	IntentActivity     = "activity"
	IntentGeneral      = "general"
	IntentBlocked      = "blocked"
)

// Backend names reported in replies and metrics
const (
	BackendRules  = "rules"
	BackendGemini = "gemini"
	BackendSafety = "safety"
)

// Prompt is everything a responder may know about the turn
type Prompt struct {
	UserInput string
	// Confidence is the speech recogniser's score for the attempt, if any
	Confidence *float64
	State      models.DerivedStateSnapshot
	// Memory is the formatted recent conversation and state
	Memory     string
	NextLetter string
}

// Reply is a responder's answer plus the entities it recognised
type Reply struct {
	Intent string
	// Letter is the letter the child asked about, or ""
	Letter string
	// Name is the name the child introduced themselves with, or ""
	Name    string
	Text    string
	Backend string
}

// Responder answers a child's message
type Responder interface {
	Respond(ctx context.Context, p Prompt) (Reply, error)
}
