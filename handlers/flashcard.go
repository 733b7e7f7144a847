package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/cardfolio/cardfolio-api/models"
)

// GET /set/flashcard/{setID}
//
// Study view: the cards of a set in the caller's library.
func (h *DBHandler) GetFlashcards(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	setID, err := parseID(r, "setID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid set ID")
		return
	}

	var set models.Set
	if err := h.Scopes(models.OwnedBy(userID)).First(&set, setID).Error; err != nil {
		writeLookupError(w, err, "Set not found")
		return
	}

	var cards []models.Card
	if err := h.Where("set_id = ?", set.ID).Find(&cards).Error; err != nil {
		log.Printf("GetFlashcards: Failed to fetch cards for setID=%d: %v", set.ID, err)
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
		return
	}

	writeJSON(w, http.StatusOK, cards)
}

// POST /set/flashcard/save-answer/{cardID}
//
// The lookup filters on the caller's own cards, so a foreign card id is
// simply NOT_FOUND; ownership is folded into existence here.
func (h *DBHandler) SaveAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	cardID, err := parseID(r, "cardID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid card ID")
		return
	}

	type SaveAnswerRequest struct {
		IsCorrect bool `json:"isCorrect"`
	}
	var req SaveAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	var card models.Card
	err = h.Where("id = ? AND created_by = ?", cardID, userID).First(&card).Error
	if err != nil {
		writeLookupError(w, err, "Card not found")
		return
	}

	count := 0
	if card.CorrectCount != nil {
		count = *card.CorrectCount
	}
	if req.IsCorrect {
		count++
	} else if count > 0 {
		// Floored at zero: repeated wrong answers never go negative.
		count--
	}
	card.CorrectCount = &count

	if err := h.Save(&card).Error; err != nil {
		log.Printf("SaveAnswer: Failed to update cardID=%d: %v", card.ID, err)
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
		return
	}

	writeJSON(w, http.StatusOK, card)
}

// POST /set/flashcard/reset/{setID}
func (h *DBHandler) ResetProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	setID, err := parseID(r, "setID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid set ID")
		return
	}

	var set models.Set
	if err := h.Scopes(models.OwnedBy(userID)).First(&set, setID).Error; err != nil {
		writeLookupError(w, err, "Set not found")
		return
	}

	err = h.Model(&models.Card{}).
		Where("set_id = ? AND created_by = ?", set.ID, userID).
		Update("correct_count", nil).Error
	if err != nil {
		log.Printf("ResetProgress: Failed to reset cards for setID=%d: %v", set.ID, err)
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
		return
	}

	log.Printf("ResetProgress: Reset progress for setID=%d userID=%d", set.ID, userID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Progress reset"})
}
