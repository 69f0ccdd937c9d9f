package tutor

import "testing"

func TestSafetyFilter(t *testing.T) {
	f := NewSafetyFilter([]string{"Darn", "  ", "heck"})

	tests := []struct {
		input      string
		wantBlock  bool
		wantReason string
	}{
		{"what is your address", true, "address"},
		{"Where do you live?", true, "where do you live"},
		{"my PHONE is", true, "phone"},
		{"oh darn it", true, "darn"},
		{"HECK!", true, "heck"},
		{"darnell likes B", false, ""},
		{"teach me the letter A", false, ""},
		{"", false, ""},
	}

	for _, tt := range tests {
		got := f.Check(tt.input)
		if got.Blocked != tt.wantBlock || got.Reason != tt.wantReason {
			t.Errorf("Check(%q) = %+v, want blocked=%v reason=%q", tt.input, got, tt.wantBlock, tt.wantReason)
		}
	}

	if f.WordCount() != 2 {
		t.Errorf("WordCount() = %d, want 2", f.WordCount())
	}
}

func TestNilSafetyFilterStillBlocksTopics(t *testing.T) {
	var f *SafetyFilter
	if !f.Check("what's your email").Blocked {
		t.Error("nil filter should still block personal topics")
	}
	if f.Check("hello").Blocked {
		t.Error("nil filter blocked a harmless message")
	}
}
