package alphabet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{name: "uppercase", input: "B", want: "B", wantOK: true},
		{name: "lowercase", input: "q", want: "Q", wantOK: true},
		{name: "padded", input: " z ", want: "Z", wantOK: true},
		{name: "empty", input: "", wantOK: false},
		{name: "word", input: "CAT", wantOK: false},
		{name: "digit", input: "7", wantOK: false},
		{name: "non ascii", input: "é", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("Normalize(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSetKeepsFirstInsertionOrder(t *testing.T) {
	s := NewSet("C", "A", "C", "B")

	assert.Equal(t, []string{"C", "A", "B"}, s.Letters())
	assert.Equal(t, 3, s.Len())
	assert.False(t, s.Add("A"), "re-adding an existing letter should report false")
	assert.True(t, s.Add("Z"))
	assert.Equal(t, []string{"C", "A", "B", "Z"}, s.Letters())
}

func TestSetLettersIsACopy(t *testing.T) {
	s := NewSet("A", "B")
	letters := s.Letters()
	letters[0] = "X"

	assert.Equal(t, []string{"A", "B"}, s.Letters())
}

func TestSetZeroValueAndClear(t *testing.T) {
	var s Set
	assert.NotNil(t, s.Letters())
	assert.False(t, s.Contains("A"))

	s.Add("A")
	assert.True(t, s.Contains("A"))

	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Letters())
	assert.False(t, s.Contains("A"))
}

func TestAllHasEveryLetter(t *testing.T) {
	assert.Len(t, All, Size)
	for _, l := range All {
		assert.True(t, IsLetter(l), "expected %q to be a letter", l)
	}
}
