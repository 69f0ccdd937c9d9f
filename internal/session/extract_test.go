package session

import "testing"

func TestExtractName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"My name is Alice", "Alice"},
		{"my name is BOB!", "Bob"},
		{"I am sam.", "Sam"},
		{"i'm leo, hi", "Leo"},
		{"you can call me Ava?", "Ava"},
		{"My name is", ""},
		{"hello there", ""},
		{"", ""},
		// "my name is" is checked before "call me"
		{"call me max, my name is maximilian", "Maximilian"},
		// plain substring match, no word boundary
		{"hi amy", "Y"},
		// a marker with nothing after it gives way to the next one
		{"call me Bob, i am", "Bob"},
	}

	for _, tt := range tests {
		if got := ExtractName(tt.input); got != tt.want {
			t.Errorf("ExtractName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestExtractLetter(t *testing.T) {
	tests := []struct {
		name      string
		user      string
		assistant string
		want      string
	}{
		{name: "user wins", user: "teach me b", assistant: "Here is C", want: "B"},
		{name: "assistant fallback", user: "next one", assistant: "Let us try T now", want: "T"},
		{name: "first token in text", user: "q or r", want: "Q"},
		{name: "words ignored", user: "apple", assistant: "banana", want: ""},
		{name: "pronoun counts", user: "I like it", want: "I"},
		{name: "empty", want: ""},
		{name: "accented word", user: "más", want: ""},
		{name: "accent inside word", user: "día", want: ""},
		{name: "cedilla", user: "ça va", want: ""},
		{name: "accented neighbours", user: "é b é", want: "B"},
		{name: "digits and underscore", user: "a1 _b 2c", assistant: "x_y", want: ""},
		{name: "apostrophe splits", assistant: "LET'S GO", want: "S"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractLetter(tt.user, tt.assistant); got != tt.want {
				t.Errorf("ExtractLetter(%q, %q) = %q, want %q", tt.user, tt.assistant, got, tt.want)
			}
		})
	}
}
