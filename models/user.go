package models

import "gorm.io/gorm"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User represents a user in the system. Password holds a bcrypt hash and is
// nil for accounts created through Google sign-in.
type User struct {
	gorm.Model
	Role     Role    `gorm:"not null;size:20"`
	Username string  `gorm:"unique;not null;size:100"`
	Email    string  `gorm:"unique;not null;size:200"`
	Password *string `gorm:"size:200" json:"-"`
	Bio      string  `gorm:"size:500"`
	Avatar   string  `gorm:"size:500"`

	// Sets the user holds in their library and sets the user originally
	// authored. Two independent relations: cloning a set changes ownership
	// but keeps authorship.
	Sets         []Set `gorm:"foreignKey:UserID" json:"Sets,omitempty"`
	AuthoredSets []Set `gorm:"foreignKey:AuthorID" json:"AuthoredSets,omitempty"`
}
