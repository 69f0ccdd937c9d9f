package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"alphabettutor/internal/curriculum"
	"alphabettutor/internal/session"
)

// ErrEmptyReply is returned when the model produced no text
var ErrEmptyReply = errors.New("model returned no text")

const systemPrompt = `You are Bubbly, a cheerful alphabet tutor for children aged %s.
Use short, simple sentences (at most three). Be warm and encouraging.
Only talk about letters, their sounds and words that start with them.
Never ask for or repeat personal information such as addresses, phone numbers, schools or parents' names.
If the child talks about something else, gently steer back to letters.`

// contentGenerator is the part of the genai client used here
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiResponder phrases replies with a Gemini model. Intent and entities
// are still recognised by rules so that the session is updated the same way
// whichever backend answers.
type GeminiResponder struct {
	models     contentGenerator
	model      string
	curriculum *curriculum.Curriculum
}

// NewGeminiResponder creates a responder backed by the Gemini API
func NewGeminiResponder(ctx context.Context, apiKey, model string, c *curriculum.Curriculum) (*GeminiResponder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiResponder{models: client.Models, model: model, curriculum: c}, nil
}

func (g *GeminiResponder) Respond(ctx context.Context, p Prompt) (Reply, error) {
	reply := Reply{
		Intent:  ClassifyIntent(p.UserInput),
		Letter:  session.ExtractLetter(p.UserInput, ""),
		Name:    session.ExtractName(p.UserInput),
		Backend: BackendGemini,
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(g.instruction(p, reply), genai.RoleUser),
	}
	temperature := float32(0.7)
	config.Temperature = &temperature
	config.MaxOutputTokens = 200

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: p.UserInput}},
		Role:  string(genai.RoleUser),
	}}

	result, err := g.models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return Reply{}, fmt.Errorf("gemini request failed: %w", err)
	}

	text := responseText(result)
	if text == "" {
		return Reply{}, ErrEmptyReply
	}
	reply.Text = text
	return reply, nil
}

func (g *GeminiResponder) instruction(p Prompt, reply Reply) string {
	var b strings.Builder
	fmt.Fprintf(&b, systemPrompt, p.State.AgeRange)
	b.WriteString("\n\n")
	b.WriteString(p.Memory)

	letter := p.State.CurrentLetter
	if reply.Letter != "" {
		letter = reply.Letter
	}
	if lesson, ok := g.curriculum.Lookup(letter); ok {
		fmt.Fprintf(&b, "\n=== Lesson ===\nLetter %s sounds like %s. Example words: %s.",
			lesson.Letter, lesson.SoundDescription, strings.Join(lesson.ExampleWords, ", "))
		if len(lesson.CommonConfusions) > 0 {
			fmt.Fprintf(&b, " Often confused with: %s.", strings.Join(lesson.CommonConfusions, ", "))
		}
	}
	fmt.Fprintf(&b, "\nDetected intent: %s. Suggested next letter: %s.", reply.Intent, p.NextLetter)
	if p.Confidence != nil {
		fmt.Fprintf(&b, "\nThe child just said the letter with %.0f%% pronunciation confidence; give feedback.", *p.Confidence*100)
	}
	return b.String()
}

// responseText joins the text parts of the first candidate, skipping thoughts
func responseText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 {
		return ""
	}
	candidate := result.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return ""
	}
	var parts []string
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		parts = append(parts, part.Text)
	}
	return strings.TrimSpace(strings.Join(parts, ""))
}
