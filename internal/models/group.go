package models

// Group is a named set of users who share expenses. Group-scoped balances
// are tracked independently from direct balances between the same users.
type Group struct {
	Base
	Name      string        `gorm:"not null" json:"name"`
	CreatedBy string        `gorm:"type:uuid;not null" json:"created_by"`
	ImageURL  string        `json:"image_url,omitempty"`
	Members   []GroupMember `gorm:"foreignKey:GroupID" json:"members,omitempty"`
}

// GroupMember links a user to a group.
type GroupMember struct {
	Base
	GroupID string `gorm:"type:uuid;not null;uniqueIndex:idx_group_user" json:"group_id"`
	UserID  string `gorm:"type:uuid;not null;uniqueIndex:idx_group_user" json:"user_id"`
	User    *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
