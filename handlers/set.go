package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/cardfolio/cardfolio-api/middleware"
	"github.com/cardfolio/cardfolio-api/models"
)

// MinimumCards is the smallest set that can be created.
const MinimumCards = 4

func parseID(r *http.Request, key string) (uint, error) {
	id, err := strconv.ParseUint(r.PathValue(key), 10, 32)
	return uint(id), err
}

// identity returns the claims attached by the middleware, reporting
// UNAUTHENTICATED if they are somehow missing.
func (h *DBHandler) identity(w http.ResponseWriter, r *http.Request) (uint, bool) {
	claims, ok := middleware.IdentityFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Unauthenticated")
		return 0, false
	}
	return claims.User.ID, true
}

// GET /set/library
func (h *DBHandler) GetLibrary(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}

	var sets []models.Set
	if err := h.Preload("Cards").Scopes(models.OwnedBy(userID)).Find(&sets).Error; err != nil {
		log.Printf("GetLibrary: Failed to fetch sets for userID=%d: %v", userID, err)
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
		return
	}

	type LibraryEntry struct {
		Set      models.Set         `json:"set"`
		Metadata models.SetMetadata `json:"metadata"`
	}

	entries := make([]LibraryEntry, 0, len(sets))
	for _, set := range sets {
		entries = append(entries, LibraryEntry{Set: set, Metadata: models.ComputeMetadata(set.Cards)})
	}

	writeJSON(w, http.StatusOK, entries)
}

// GET /set/library/{setID}
//
// Strictly owner-scoped: a foreign set is NOT_FOUND here no matter its
// visibility. Explore is the foreign-read path.
func (h *DBHandler) GetLibrarySet(w http.ResponseWriter, r *http.Request) {
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
	err = h.Preload("Cards").Preload("Author").
		Scopes(models.OwnedBy(userID)).First(&set, setID).Error
	if err != nil {
		writeLookupError(w, err, "Set not found")
		return
	}

	writeJSON(w, http.StatusOK, set)
}

// GET /set/explore
func (h *DBHandler) GetExplore(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}

	var sets []models.Set
	err := h.Preload("Cards").Preload("Author").
		Scopes(models.ExplorableBy(userID)).Find(&sets).Error
	if err != nil {
		log.Printf("GetExplore: Failed to fetch sets for userID=%d: %v", userID, err)
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
		return
	}

	writeJSON(w, http.StatusOK, sets)
}

// GET /set/explore/{setID}
func (h *DBHandler) GetExploreSet(w http.ResponseWriter, r *http.Request) {
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
	err = h.Preload("Cards").Preload("Author").
		Scopes(models.ExplorableBy(userID)).First(&set, setID).Error
	if err != nil {
		writeLookupError(w, err, "Set not found")
		return
	}

	writeJSON(w, http.StatusOK, set)
}

type CardInput struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// POST /set/create-set
func (h *DBHandler) CreateSet(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}

	type CreateSetRequest struct {
		Name        string           `json:"name"`
		Description string           `json:"description"`
		VisibleTo   models.VisibleTo `json:"visibleTo"`
		Passcode    string           `json:"passcode"`
		Cards       []CardInput      `json:"cards"`
	}

	var req CreateSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Set name is required")
		return
	}
	if req.VisibleTo == "" {
		req.VisibleTo = models.VisibleToJustMe
	}
	if !req.VisibleTo.Valid() {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown visibility")
		return
	}
	if len(req.Cards) < MinimumCards {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "A set needs at least 4 cards")
		return
	}

	var count int64
	err := h.Model(&models.Set{}).Scopes(models.OwnedBy(userID)).
		Where("name = ?", req.Name).Count(&count).Error
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
		return
	}
	if count > 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "You already have a set with this name")
		return
	}

	set := models.Set{
		Name:        req.Name,
		Description: req.Description,
		VisibleTo:   req.VisibleTo,
		Passcode:    resolvePasscode(req.VisibleTo, req.Passcode),
		UserID:      userID,
		AuthorID:    userID,
	}

	tx := h.Begin()
	if tx.Error != nil {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
		return
	}

	if err := tx.Create(&set).Error; err != nil {
		tx.Rollback()
		log.Printf("CreateSet: Failed to create set for userID=%d: %v", userID, err)
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
		return
	}

	for _, input := range req.Cards {
		card := models.Card{
			Term:       input.Term,
			Definition: input.Definition,
			SetID:      set.ID,
			CreatedBy:  userID,
		}
		if err := tx.Create(&card).Error; err != nil {
			tx.Rollback()
			log.Printf("CreateSet: Failed to create card for setID=%d: %v", set.ID, err)
			writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
			return
		}
	}

	if err := tx.Commit().Error; err != nil {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
		return
	}

	if err := h.Preload("Cards").First(&set, set.ID).Error; err != nil {
		writeLookupError(w, err, "Set not found")
		return
	}

	log.Printf("CreateSet: Created setID=%d for userID=%d", set.ID, userID)
	writeJSON(w, http.StatusCreated, set)
}

// resolvePasscode enforces the invariant that a passcode is stored exactly
// when the set is passcode-protected.
func resolvePasscode(visibleTo models.VisibleTo, passcode string) *string {
	if visibleTo == models.VisibleToPasscode {
		return &passcode
	}
	return nil
}

type CardUpdate struct {
	ID         uint   `json:"id"`
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// PATCH /set/edit-set/{setID}
//
// Cards are merged by id as a full replace: a known id updates the card in
// place (resetting its progress if the text changed), an unknown or absent
// id creates a new card, and every existing card the payload does not
// mention is deleted.
func (h *DBHandler) EditSet(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	setID, err := parseID(r, "setID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid set ID")
		return
	}

	type EditSetRequest struct {
		Name        *string           `json:"name,omitempty"`
		Description *string           `json:"description,omitempty"`
		VisibleTo   *models.VisibleTo `json:"visibleTo,omitempty"`
		Passcode    *string           `json:"passcode,omitempty"`
		Cards       *[]CardUpdate     `json:"cards,omitempty"`
	}

	var req EditSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	var set models.Set
	if err := h.Scopes(models.OwnedBy(userID)).First(&set, setID).Error; err != nil {
		writeLookupError(w, err, "Set not found")
		return
	}

	if req.Name != nil {
		set.Name = *req.Name
	}
	if req.Description != nil {
		set.Description = *req.Description
	}
	if req.VisibleTo != nil {
		if !req.VisibleTo.Valid() {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown visibility")
			return
		}
		set.VisibleTo = *req.VisibleTo
		if set.VisibleTo == models.VisibleToPasscode {
			if req.Passcode == nil {
				writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Passcode is required for this visibility")
				return
			}
			set.Passcode = req.Passcode
		} else {
			set.Passcode = nil
		}
	}

	tx := h.Begin()
	if tx.Error != nil {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
		return
	}

	if err := tx.Save(&set).Error; err != nil {
		tx.Rollback()
		log.Printf("EditSet: Failed to update setID=%d: %v", set.ID, err)
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
		return
	}

	if req.Cards != nil {
		if err := h.mergeCards(tx, &set, *req.Cards, userID); err != nil {
			tx.Rollback()
			log.Printf("EditSet: Failed to merge cards for setID=%d: %v", set.ID, err)
			writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
			return
		}
	}

	if err := tx.Commit().Error; err != nil {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
		return
	}

	if err := h.Preload("Cards").First(&set, set.ID).Error; err != nil {
		writeLookupError(w, err, "Set not found")
		return
	}

	log.Printf("EditSet: Updated setID=%d", set.ID)
	writeJSON(w, http.StatusOK, set)
}

func (h *DBHandler) mergeCards(tx *gorm.DB, set *models.Set, updates []CardUpdate, userID uint) error {
	var existing []models.Card
	if err := tx.Where("set_id = ?", set.ID).Find(&existing).Error; err != nil {
		return err
	}

	byID := make(map[uint]models.Card, len(existing))
	for _, card := range existing {
		byID[card.ID] = card
	}

	seen := make(map[uint]struct{}, len(updates))
	for _, update := range updates {
		card, found := byID[update.ID]
		if update.ID != 0 && found {
			seen[update.ID] = struct{}{}
			changed := card.Term != update.Term || card.Definition != update.Definition
			if !changed {
				continue
			}
			card.Term = update.Term
			card.Definition = update.Definition
			// Edited cards lose their study progress.
			card.CorrectCount = nil
			if err := tx.Save(&card).Error; err != nil {
				return err
			}
			continue
		}

		newCard := models.Card{
			Term:       update.Term,
			Definition: update.Definition,
			SetID:      set.ID,
			CreatedBy:  userID,
		}
		if err := tx.Create(&newCard).Error; err != nil {
			return err
		}
	}

	var toDelete []uint
	for _, card := range existing {
		if _, ok := seen[card.ID]; !ok {
			toDelete = append(toDelete, card.ID)
		}
	}
	if len(toDelete) > 0 {
		if err := tx.Where("id IN ?", toDelete).Delete(&models.Card{}).Error; err != nil {
			return err
		}
	}

	return nil
}

// DELETE /set/delete-set/{setID}
func (h *DBHandler) DeleteSet(w http.ResponseWriter, r *http.Request) {
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

	if err := h.deleteSetCascade(set.ID); err != nil {
		log.Printf("DeleteSet: Failed to delete setID=%d: %v", set.ID, err)
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
		return
	}

	log.Printf("DeleteSet: Deleted setID=%d for userID=%d", set.ID, userID)
	w.WriteHeader(http.StatusNoContent)
}

// deleteSetCascade removes a set and its cards in one transaction.
func (h *DBHandler) deleteSetCascade(setID uint) error {
	tx := h.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := tx.Where("set_id = ?", setID).Delete(&models.Card{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Delete(&models.Set{}, setID).Error; err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// POST /set/start-learning/{setID}
//
// Clones a reachable set into the caller's library: a deep copy owned by
// the caller, forced to just-me visibility, authorship preserved, all
// study progress reset. The source is never touched.
func (h *DBHandler) StartLearning(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	setID, err := parseID(r, "setID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid set ID")
		return
	}

	type StartLearningRequest struct {
		Passcode string `json:"passcode"`
	}
	var req StartLearningRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	var source models.Set
	err = h.Preload("Cards").Scopes(models.ReachableBy(userID)).First(&source, setID).Error
	if err != nil {
		writeLookupError(w, err, "Set not found")
		return
	}

	if source.VisibleTo == models.VisibleToPasscode {
		if source.Passcode == nil || req.Passcode != *source.Passcode {
			writeError(w, http.StatusBadRequest, "INVALID_PASSCODE", "Invalid passcode")
			return
		}
	}

	clone := models.Set{
		Name:        source.Name,
		Description: source.Description,
		VisibleTo:   models.VisibleToJustMe,
		UserID:      userID,
		AuthorID:    source.AuthorID,
	}

	tx := h.Begin()
	if tx.Error != nil {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
		return
	}

	if err := tx.Create(&clone).Error; err != nil {
		tx.Rollback()
		log.Printf("StartLearning: Failed to clone setID=%d for userID=%d: %v", source.ID, userID, err)
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
		return
	}

	for _, card := range source.Cards {
		cardCopy := models.Card{
			Term:       card.Term,
			Definition: card.Definition,
			SetID:      clone.ID,
			CreatedBy:  userID,
		}
		if err := tx.Create(&cardCopy).Error; err != nil {
			tx.Rollback()
			log.Printf("StartLearning: Failed to copy card for setID=%d: %v", clone.ID, err)
			writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
			return
		}
	}

	if err := tx.Commit().Error; err != nil {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
		return
	}

	if err := h.Preload("Cards").First(&clone, clone.ID).Error; err != nil {
		writeLookupError(w, err, "Set not found")
		return
	}

	log.Printf("StartLearning: Cloned setID=%d into setID=%d for userID=%d", source.ID, clone.ID, userID)
	writeJSON(w, http.StatusCreated, clone)
}
