package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"

	"github.com/cardfolio/cardfolio-api/auth"
	"github.com/cardfolio/cardfolio-api/models"
)

// POST /auth/register
func (h *DBHandler) Register(w http.ResponseWriter, r *http.Request) {
	type RegisterRequest struct {
		Username        string `json:"username"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Username, email and password are required")
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

	if req.Password != req.ConfirmPassword {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Passwords do not match")
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Register: Failed to hash password: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process password")
		return
	}

	user := models.User{
		Role:     models.RoleUser,
		Username: req.Username,
		Email:    req.Email,
		Password: &hashed,
	}

	if err := h.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			writeError(w, http.StatusConflict, "UNIQUE_VIOLATION", "Username or email already exists")
			return
		}
		log.Printf("Register: Failed to create user: %v", err)
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
		return
	}

	token, err := h.Tokens.Issue(user)
	if err != nil {
		log.Printf("Register: Failed to issue token for userID=%d: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate token")
		return
	}

	log.Printf("Register: Created user %s (id=%d)", user.Username, user.ID)
	writeJSON(w, http.StatusCreated, map[string]string{"accessToken": token})
}

// POST /auth/login
func (h *DBHandler) Login(w http.ResponseWriter, r *http.Request) {
	type LoginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	// One generic answer for every failure: a caller must not learn
	// whether the email exists.
	var user models.User
	if err := h.Where("email = ?", req.Email).First(&user).Error; err != nil {
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}

	if user.Password == nil || !auth.ComparePassword(*user.Password, req.Password) {
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}

	token, err := h.Tokens.Issue(user)
	if err != nil {
		log.Printf("Login: Failed to issue token for userID=%d: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"accessToken": token})
}

// GET /auth/google
func (h *DBHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	url, err := h.Google.LoginURL()
	if err != nil {
		log.Printf("GoogleLogin: Failed to build consent URL: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to start Google login")
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// GET /auth/google/callback
func (h *DBHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")

	info, err := h.Google.Exchange(r.Context(), state, code)
	if err != nil {
		log.Printf("GoogleCallback: Exchange failed: %v", err)
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Google login failed")
		return
	}

	var user models.User
	err = h.Where("email = ?", info.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user, err = h.createGoogleUser(info)
	}
	if err != nil {
		log.Printf("GoogleCallback: Failed to resolve user for email=%s: %v", info.Email, err)
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable")
		return
	}

	token, err := h.Tokens.Issue(user)
	if err != nil {
		log.Printf("GoogleCallback: Failed to issue token for userID=%d: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"accessToken": token})
}

// createGoogleUser provisions an account on first Google sign-in. No
// password is stored; such accounts can only log in through Google.
func (h *DBHandler) createGoogleUser(info auth.GoogleUser) (models.User, error) {
	username := info.Name
	if username == "" {
		username = info.Email
	}

	var count int64
	if err := h.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return models.User{}, err
	}
	if count > 0 {
		suffix, err := gonanoid.New(6)
		if err != nil {
			return models.User{}, err
		}
		username = username + "-" + suffix
	}

	user := models.User{
		Role:     models.RoleUser,
		Username: username,
		Email:    info.Email,
	}
	if err := h.Create(&user).Error; err != nil {
		return models.User{}, err
	}

	log.Printf("GoogleCallback: Created user %s (id=%d)", user.Username, user.ID)
	return user, nil
}
