package models

import "gorm.io/gorm"

// Card represents an individual flashcard. CorrectCount is nil until the
// card has been studied; a count of KnownThreshold or more means "known".
type Card struct {
	gorm.Model
	Term         string `gorm:"not null;size:200"`
	Definition   string `gorm:"not null;size:1000"`
	CorrectCount *int   `gorm:"default:null"`

	SetID     uint `gorm:"not null;index"`
	CreatedBy uint `gorm:"not null;index"`

	Set Set `gorm:"foreignKey:SetID" json:"-"`
}

const KnownThreshold = 2

type SetMetadata struct {
	TotalCards      int `json:"totalCards"`
	NotStudiedCount int `json:"notStudiedCount"`
	LearningCount   int `json:"learningCount"`
	KnownCount      int `json:"knownCount"`
}

// ComputeMetadata buckets a set's cards by study progress. The three
// buckets always sum to TotalCards.
func ComputeMetadata(cards []Card) SetMetadata {
	metadata := SetMetadata{TotalCards: len(cards)}
	for _, card := range cards {
		switch {
		case card.CorrectCount == nil:
			metadata.NotStudiedCount++
		case *card.CorrectCount >= KnownThreshold:
			metadata.KnownCount++
		default:
			metadata.LearningCount++
		}
	}
	return metadata
}
