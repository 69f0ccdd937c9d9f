package validation

import (
	"errors"
	"math"
	"testing"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{
			name:    "valid email",
			email:   "test@example.com",
			wantErr: false,
		},
		{
			name:    "valid email with subdomain",
			email:   "user@mail.example.com",
			wantErr: false,
		},
		{
			name:    "valid email with plus",
			email:   "user+tag@example.com",
			wantErr: false,
		},
		{
			name:    "missing @",
			email:   "testexample.com",
			wantErr: true,
		},
		{
			name:    "missing domain",
			email:   "test@",
			wantErr: true,
		},
		{
			name:    "missing local part",
			email:   "@example.com",
			wantErr: true,
		},
		{
			name:    "empty string",
			email:   "",
			wantErr: true,
		},
		{
			name:    "spaces in email",
			email:   "test @example.com",
			wantErr: true,
		},
		{
			name:    "display name",
			email:   "Parent <parent@example.com>",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestValidateChildName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "single name", input: "Maya"},
		{name: "single letter", input: "J"},
		{name: "name with hyphen", input: "Mary-Jane"},
		{name: "name with apostrophe", input: "O'Brien"},
		{name: "two names", input: "Ana Sofia"},
		{name: "empty name", input: "", wantErr: true},
		{name: "blank name", input: "   ", wantErr: true},
		{name: "digits", input: "R2D2", wantErr: true},
		{name: "too long", input: "Bartholomew Maximilian Fitzgerald Jones Jr", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChildName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateChildName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateLetter(t *testing.T) {
	for _, ok := range []string{"A", "z"} {
		if err := ValidateLetter(ok); err != nil {
			t.Errorf("ValidateLetter(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"", "AB", "1", "é"} {
		if err := ValidateLetter(bad); !errors.Is(err, ErrInvalidLetter) {
			t.Errorf("ValidateLetter(%q) = %v, want ErrInvalidLetter", bad, err)
		}
	}
}

func TestValidateConfidence(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name    string
		input   *float64
		wantErr bool
	}{
		{name: "absent", input: nil},
		{name: "zero", input: f(0)},
		{name: "one", input: f(1)},
		{name: "middle", input: f(0.75)},
		{name: "negative", input: f(-0.1), wantErr: true},
		{name: "above one", input: f(1.01), wantErr: true},
		{name: "nan", input: f(math.NaN()), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfidence(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfidence() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateMaxTurns(t *testing.T) {
	for n, wantErr := range map[int]bool{-1: true, 0: false, 1: false, 50: false, 51: true} {
		if err := ValidateMaxTurns(n); (err != nil) != wantErr {
			t.Errorf("ValidateMaxTurns(%d) error = %v, wantErr %v", n, err, wantErr)
		}
	}
}
