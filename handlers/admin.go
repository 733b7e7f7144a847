package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"gorm.io/gorm"

	"github.com/cardfolio/cardfolio-api/auth"
	"github.com/cardfolio/cardfolio-api/models"
)

// The admin handlers perform no authorization of their own: the middleware
// has already rejected every non-admin identity for the /admin prefix.

// GET /admin/all-users
func (h *DBHandler) GetAllUsers(w http.ResponseWriter, r *http.Request) {
	var users []models.User
	if err := h.Find(&users).Error; err != nil {
		log.Printf("GetAllUsers: Failed to fetch users: %v", err)
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
		return
	}

	writeJSON(w, http.StatusOK, users)
}

// POST /admin/add-user
func (h *DBHandler) AddUser(w http.ResponseWriter, r *http.Request) {
	type AddUserRequest struct {
		Username string      `json:"username"`
		Role     models.Role `json:"role"`
		Email    string      `json:"email"`
		Password string      `json:"password"`
	}

	var req AddUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Username, email and password are required")
		return
	}
	if req.Role == "" {
		req.Role = models.RoleUser
	}
	if !req.Role.Valid() {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown role")
		return
	}

	var existing models.User
	err := h.Where("username = ? OR email = ?", req.Username, req.Email).First(&existing).Error
	if err == nil {
		writeError(w, http.StatusConflict, "UNIQUE_VIOLATION", "Username or email already exists")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("AddUser: Failed to hash password: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process password")
		return
	}

	user := models.User{
		Role:     req.Role,
		Username: req.Username,
		Email:    req.Email,
		Password: &hashed,
	}

	if err := h.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			writeError(w, http.StatusConflict, "UNIQUE_VIOLATION", "Username or email already exists")
			return
		}
		log.Printf("AddUser: Failed to create user: %v", err)
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
		return
	}

	log.Printf("AddUser: Created user %s (id=%d, role=%s)", user.Username, user.ID, user.Role)
	writeJSON(w, http.StatusCreated, user)
}

// DELETE /admin/delete-user/{userID}
func (h *DBHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid user ID")
		return
	}

	var user models.User
	if err := h.First(&user, userID).Error; err != nil {
		writeLookupError(w, err, "User not found")
		return
	}

	if err := h.deleteUserCascade(user.ID); err != nil {
		log.Printf("DeleteUser: Failed to delete userID=%d: %v", user.ID, err)
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
		return
	}

	log.Printf("DeleteUser: Deleted userID=%d", user.ID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}

// DELETE /admin/delete-set/{setID}
//
// Unlike delete-set, this works on any owner's set.
func (h *DBHandler) AdminDeleteSet(w http.ResponseWriter, r *http.Request) {
	setID, err := parseID(r, "setID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid set ID")
		return
	}

	var set models.Set
	if err := h.First(&set, setID).Error; err != nil {
		writeLookupError(w, err, "Set not found")
		return
	}

	if err := h.deleteSetCascade(set.ID); err != nil {
		log.Printf("AdminDeleteSet: Failed to delete setID=%d: %v", set.ID, err)
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
		return
	}

	log.Printf("AdminDeleteSet: Deleted setID=%d", set.ID)
	w.WriteHeader(http.StatusNoContent)
}
