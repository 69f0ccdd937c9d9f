// Package alphabet holds the letter primitives shared by the session engine,
// the progress tracker and the curriculum.
package alphabet

import "strings"

// All is the alphabet in order
var All = []string{
	"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M",
	"N", "O", "P", "Q", "R", "S", "T", "U", "V", "W", "X", "Y", "Z",
}

// Size is the number of letters in the alphabet
const Size = 26

// Normalize returns the uppercase form of s when s is exactly one ASCII letter
func Normalize(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 1 {
		return "", false
	}
	c := s[0]
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	if c < 'A' || c > 'Z' {
		return "", false
	}
	return string(c), true
}

// IsLetter reports whether s is a single uppercase letter A-Z
func IsLetter(s string) bool {
	return len(s) == 1 && s[0] >= 'A' && s[0] <= 'Z'
}

// Set is an ordered set of letters that remembers first-insertion order
type Set struct {
	order []string
	index map[string]struct{}
}

// NewSet creates a set holding the given letters in order, skipping duplicates
func NewSet(letters ...string) *Set {
	s := &Set{index: make(map[string]struct{})}
	for _, l := range letters {
		s.Add(l)
	}
	return s
}

// Add inserts a letter and reports whether it was new
func (s *Set) Add(letter string) bool {
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	if _, ok := s.index[letter]; ok {
		return false
	}
	s.index[letter] = struct{}{}
	s.order = append(s.order, letter)
	return true
}

// Contains reports whether the letter is in the set
func (s *Set) Contains(letter string) bool {
	_, ok := s.index[letter]
	return ok
}

// Len returns the number of letters in the set
func (s *Set) Len() int {
	return len(s.order)
}

// Letters returns a copy of the letters in insertion order. Never nil.
func (s *Set) Letters() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Clear empties the set
func (s *Set) Clear() {
	s.order = nil
	s.index = make(map[string]struct{})
}
