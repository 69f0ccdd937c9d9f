package tutor

import (
	"context"
	"fmt"
	"strings"

	"alphabettutor/internal/curriculum"
	"alphabettutor/internal/session"
)

type intentRule struct {
	intent  string
	phrases []string
}

// intentRules are checked in order; the first rule with a matching phrase wins
var intentRules = []intentRule{
	{IntentLearnLetter, []string{"teach me", "learn", "show me", "what is"}},
	{IntentNextLetter, []string{"next", "another", "more"}},
	{IntentRepeat, []string{"again", "repeat", "say that"}},
	{IntentIntroduction, []string{"my name is", "i'm", "i am"}},
	{IntentHelp, []string{"help", "how", "what do"}},
	{IntentActivity, []string{"game", "play", "fun"}},
}

const greeting = "Hello! I'm Bubbly, your alphabet friend!"

// ClassifyIntent maps a message to one of the known intents
func ClassifyIntent(input string) string {
	lower := strings.ToLower(input)
	for _, rule := range intentRules {
		for _, phrase := range rule.phrases {
			if strings.Contains(lower, phrase) {
				return rule.intent
			}
		}
	}
	return IntentGeneral
}

// RuleResponder answers from fixed phrasing and the curriculum. It needs no
// network and never fails.
type RuleResponder struct {
	curriculum *curriculum.Curriculum
}

func NewRuleResponder(c *curriculum.Curriculum) *RuleResponder {
	return &RuleResponder{curriculum: c}
}

func (r *RuleResponder) Respond(_ context.Context, p Prompt) (Reply, error) {
	reply := Reply{
		Intent:  ClassifyIntent(p.UserInput),
		Letter:  session.ExtractLetter(p.UserInput, ""),
		Name:    session.ExtractName(p.UserInput),
		Backend: BackendRules,
	}

	letter := p.State.CurrentLetter
	if reply.Letter != "" {
		letter = reply.Letter
	}

	var parts []string
	switch reply.Intent {
	case IntentLearnLetter:
		parts = append(parts, r.lesson(letter))
	case IntentNextLetter:
		parts = append(parts, fmt.Sprintf("Great job! Let's move on to the letter %s!", p.NextLetter))
	}

	switch {
	case p.Confidence != nil:
		parts = append(parts, r.feedback(letter, *p.Confidence))
	case reply.Intent == IntentIntroduction:
		parts = append(parts, greeting, personalize(p, childName(p, reply)))
	default:
		parts = append(parts, personalize(p, childName(p, reply)))
	}

	reply.Text = strings.Join(parts, " ")
	return reply, nil
}

func (r *RuleResponder) lesson(letter string) string {
	sound, example := letter, ""
	if lesson, ok := r.curriculum.Lookup(letter); ok {
		sound = lesson.SoundDescription
		example = lesson.FirstExample()
	}
	return fmt.Sprintf("Let's learn the letter %s! It sounds like %s. Like in %s!", letter, sound, example)
}

func (r *RuleResponder) feedback(letter string, confidence float64) string {
	switch {
	case confidence > 0.8:
		return fmt.Sprintf("Excellent! You said '%s' perfectly! ⭐", letter)
	case confidence > 0.6:
		return fmt.Sprintf("Good try! The '%s' sound is almost there. Let's practice once more!", letter)
	}
	text := fmt.Sprintf("Nice effort! Let's work on the '%s' sound together.", letter)
	if lesson, ok := r.curriculum.Lookup(letter); ok && len(lesson.CommonConfusions) > 0 {
		text += fmt.Sprintf(" Remember, '%s' is different from '%s'.", letter, lesson.CommonConfusions[0])
	}
	return text
}

func childName(p Prompt, reply Reply) string {
	switch {
	case p.State.ChildName != nil && *p.State.ChildName != "":
		return *p.State.ChildName
	case reply.Name != "":
		return reply.Name
	default:
		return "friend"
	}
}

func personalize(p Prompt, name string) string {
	var text string
	switch streak := p.State.StreakCount; {
	case streak >= 5:
		text = fmt.Sprintf("Amazing work, %s! You're a letter champion! 🌟", name)
	case streak >= 3:
		text = fmt.Sprintf("Great job, %s! You're doing wonderfully!", name)
	default:
		text = fmt.Sprintf("Keep going, %s! You're learning so well!", name)
	}

	if p.State.LastMistake != nil && *p.State.LastMistake != "" {
		return text + fmt.Sprintf(" Let's practice '%s' one more time.", *p.State.LastMistake)
	}
	return text + fmt.Sprintf(" Ready for the letter %s?", p.NextLetter)
}
