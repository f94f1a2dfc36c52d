package models

import "time"

// User is a registered participant. Every party that owes or is owed money
// is a User.
type User struct {
	Base
	Email       string     `gorm:"uniqueIndex;not null" json:"email"`
	Password    string     `gorm:"not null" json:"-"`
	DisplayName string     `gorm:"not null" json:"display_name"`
	ImageURL    string     `json:"image_url,omitempty"`
	IsActive    bool       `gorm:"default:true" json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// Participant is the display-facing projection of a user. It is used only to
// enrich responses, never for balance arithmetic.
type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	ImageURL    string `json:"image_url,omitempty"`
}

// AsParticipant projects the user into its display shape.
func (u *User) AsParticipant() Participant {
	return Participant{ID: u.ID, DisplayName: u.DisplayName, ImageURL: u.ImageURL}
}
