package models

import "gorm.io/gorm"

type VisibleTo string

const (
	VisibleToEveryone VisibleTo = "everyone"
	VisibleToJustMe   VisibleTo = "just me"
	VisibleToPasscode VisibleTo = "people with a passcode"
)

func (v VisibleTo) Valid() bool {
	return v == VisibleToEveryone || v == VisibleToJustMe || v == VisibleToPasscode
}

// Set represents a collection of flashcards. Passcode is non-nil if and only
// if VisibleTo is VisibleToPasscode.
type Set struct {
	gorm.Model
	Name        string    `gorm:"not null;size:100"`
	Description string    `gorm:"size:500"`
	VisibleTo   VisibleTo `gorm:"not null;size:30"`
	Passcode    *string   `gorm:"size:100" json:"-"`

	UserID   uint `gorm:"not null;index"`
	AuthorID uint `gorm:"not null;index"`

	User   User  `gorm:"foreignKey:UserID" json:"-"`
	Author *User `gorm:"foreignKey:AuthorID" json:"Author,omitempty"`

	Cards []Card `gorm:"foreignKey:SetID"`
}

// OwnedBy scopes a query to the sets in userID's library.
func OwnedBy(userID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	}
}

// ExplorableBy scopes a query to foreign sets visible to userID. Just-me
// sets never match, so they are excluded by construction rather than by a
// post-hoc check.
func ExplorableBy(userID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id <> ? AND visible_to IN ?", userID,
			[]VisibleTo{VisibleToEveryone, VisibleToPasscode})
	}
}

// ReachableBy scopes a query to sets userID may clone from: their own plus
// anything foreign-visible.
func ReachableBy(userID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("(user_id = ? OR visible_to IN ?)", userID,
			[]VisibleTo{VisibleToEveryone, VisibleToPasscode})
	}
}
