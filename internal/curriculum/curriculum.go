// Package curriculum holds the per-letter lesson content (sound, example
// words, common confusions) used to phrase lessons and feedback.
package curriculum

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"alphabettutor/internal/alphabet"
)

//go:embed curriculum.yaml
var defaultCurriculum []byte

// ErrIncomplete is returned when a curriculum does not cover every letter
var ErrIncomplete = errors.New("curriculum is incomplete")

// Letter is the lesson content for one letter
type Letter struct {
	Letter           string   `yaml:"-" json:"letter"`
	Phoneme          string   `yaml:"phoneme" json:"phoneme"`
	SoundDescription string   `yaml:"sound_description" json:"sound_description"`
	ExampleWords     []string `yaml:"example_words" json:"example_words"`
	CommonConfusions []string `yaml:"common_confusions" json:"common_confusions"`
	MappedObject     string   `yaml:"mapped_object" json:"mapped_object"`
}

// FirstExample returns the first example word, or "" when there is none
func (l Letter) FirstExample() string {
	if len(l.ExampleWords) == 0 {
		return ""
	}
	return l.ExampleWords[0]
}

// Curriculum maps letters to lessons
type Curriculum struct {
	letters map[string]Letter
}

type document struct {
	Letters map[string]Letter `yaml:"letters"`
}

// Load returns the built-in curriculum
func Load() (*Curriculum, error) {
	return Parse(defaultCurriculum)
}

// MustLoad is Load for program start-up; the built-in curriculum is validated by tests
func MustLoad() *Curriculum {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse reads a YAML curriculum. Every letter A-Z must be present.
func Parse(data []byte) (*Curriculum, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse curriculum: %w", err)
	}

	c := &Curriculum{letters: make(map[string]Letter, len(doc.Letters))}
	for key, lesson := range doc.Letters {
		l, ok := alphabet.Normalize(key)
		if !ok {
			return nil, fmt.Errorf("failed to parse curriculum: invalid letter key %q", key)
		}
		lesson.Letter = l
		c.letters[l] = lesson
	}

	var missing []string
	for _, l := range alphabet.All {
		if _, ok := c.letters[l]; !ok {
			missing = append(missing, l)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %v", ErrIncomplete, missing)
	}
	return c, nil
}

// Lookup returns the lesson for a letter (case-insensitive)
func (c *Curriculum) Lookup(letter string) (Letter, bool) {
	l, ok := alphabet.Normalize(letter)
	if !ok || c == nil {
		return Letter{}, false
	}
	lesson, ok := c.letters[l]
	return lesson, ok
}

// Letters returns every lesson in alphabetical order
func (c *Curriculum) Letters() []Letter {
	out := make([]Letter, 0, len(c.letters))
	for _, l := range c.letters {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Letter < out[j].Letter })
	return out
}
