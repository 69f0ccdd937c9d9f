package models

import "time"

// Profile is a returning learner. Progress (stars, badges, mastered letters)
// hangs off the profile; conversation text never does.
type Profile struct {
	ID            string
	Nickname      string
	ChildName     string
	AgeRange      AgeRange
	ParentPINHash string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasParentPIN reports whether parent-only operations are PIN protected
func (p *Profile) HasParentPIN() bool {
	return p != nil && p.ParentPINHash != ""
}

// ProfileWithProgress combines a profile with its stored progress
type ProfileWithProgress struct {
	Profile  Profile
	Progress ProgressRecord
}
