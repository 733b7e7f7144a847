package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"gorm.io/gorm"

	"github.com/cardfolio/cardfolio-api/models"
)

// GET /user
func (h *DBHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}

	var user models.User
	if err := h.First(&user, userID).Error; err != nil {
		writeLookupError(w, err, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// PATCH /user
//
// Partial patch: an empty or absent field leaves the stored value as is.
// There is deliberately no way to clear a field to the empty string.
func (h *DBHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}

	type UpdateProfileRequest struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Bio      string `json:"bio"`
		Avatar   string `json:"avatar"`
	}
	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	var user models.User
	if err := h.First(&user, userID).Error; err != nil {
		writeLookupError(w, err, "User not found")
		return
	}

	if req.Username != "" && req.Username != user.Username {
		if taken, err := h.identifierTaken("username", req.Username, userID); err != nil {
			writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
			return
		} else if taken {
			writeError(w, http.StatusConflict, "UNIQUE_VIOLATION", "Username already exists")
			return
		}
		user.Username = req.Username
	}
	if req.Email != "" && req.Email != user.Email {
		if taken, err := h.identifierTaken("email", req.Email, userID); err != nil {
			writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
			return
		} else if taken {
			writeError(w, http.StatusConflict, "UNIQUE_VIOLATION", "Email already exists")
			return
		}
		user.Email = req.Email
	}
	if req.Bio != "" {
		user.Bio = req.Bio
	}
	if req.Avatar != "" {
		user.Avatar = req.Avatar
	}

	if err := h.Save(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			writeError(w, http.StatusConflict, "UNIQUE_VIOLATION", "Username or email already exists")
			return
		}
		log.Printf("UpdateProfile: Failed to update userID=%d: %v", userID, err)
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *DBHandler) identifierTaken(column, value string, excludeID uint) (bool, error) {
	var count int64
	err := h.Model(&models.User{}).
		Where(column+" = ? AND id <> ?", value, excludeID).
		Count(&count).Error
	return count > 0, err
}

// DELETE /user
func (h *DBHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}

	var user models.User
	if err := h.First(&user, userID).Error; err != nil {
		writeLookupError(w, err, "User not found")
		return
	}

	if err := h.deleteUserCascade(user.ID); err != nil {
		log.Printf("DeleteProfile: Failed to delete userID=%d: %v", user.ID, err)
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
		return
	}

	log.Printf("DeleteProfile: Deleted userID=%d", user.ID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}

// deleteUserCascade removes a user together with their sets and those
// sets' cards, all or nothing. Both set relations cascade: sets the user
// owns and sets the user authored that live in other libraries (clones
// keep the original author), so no set is ever left pointing at a deleted
// account.
func (h *DBHandler) deleteUserCascade(userID uint) error {
	tx := h.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	var setIDs []uint
	if err := tx.Model(&models.Set{}).Where("user_id = ? OR author_id = ?", userID, userID).Pluck("id", &setIDs).Error; err != nil {
		tx.Rollback()
		return err
	}
	if len(setIDs) > 0 {
		if err := tx.Where("set_id IN ?", setIDs).Delete(&models.Card{}).Error; err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Where("id IN ?", setIDs).Delete(&models.Set{}).Error; err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Delete(&models.User{}, userID).Error; err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
