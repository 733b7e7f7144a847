package handlers

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/cardfolio/cardfolio-api/auth"
)

type DBHandler struct {
	*gorm.DB
	Tokens *auth.TokenCodec
	Google *auth.GoogleClient
}

func (h *DBHandler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Auth
	mux.HandleFunc("POST /auth/register", h.Register)
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("GET /auth/google", h.GoogleLogin)
	mux.HandleFunc("GET /auth/google/callback", h.GoogleCallback)

	// Set
	mux.HandleFunc("GET /set/library", h.GetLibrary)
	mux.HandleFunc("GET /set/library/{setID}", h.GetLibrarySet)
	mux.HandleFunc("GET /set/explore", h.GetExplore)
	mux.HandleFunc("GET /set/explore/{setID}", h.GetExploreSet)
	mux.HandleFunc("POST /set/create-set", h.CreateSet)
	mux.HandleFunc("PATCH /set/edit-set/{setID}", h.EditSet)
	mux.HandleFunc("DELETE /set/delete-set/{setID}", h.DeleteSet)
	mux.HandleFunc("POST /set/start-learning/{setID}", h.StartLearning)

	// Study
	mux.HandleFunc("GET /set/flashcard/{setID}", h.GetFlashcards)
	mux.HandleFunc("POST /set/flashcard/save-answer/{cardID}", h.SaveAnswer)
	mux.HandleFunc("POST /set/flashcard/reset/{setID}", h.ResetProgress)

	// Profile
	mux.HandleFunc("GET /user", h.GetProfile)
	mux.HandleFunc("PATCH /user", h.UpdateProfile)
	mux.HandleFunc("DELETE /user", h.DeleteProfile)

	// Admin (role gate lives in the middleware)
	mux.HandleFunc("GET /admin/all-users", h.GetAllUsers)
	mux.HandleFunc("POST /admin/add-user", h.AddUser)
	mux.HandleFunc("DELETE /admin/delete-user/{userID}", h.DeleteUser)
	mux.HandleFunc("DELETE /admin/delete-set/{setID}", h.AdminDeleteSet)

	return mux
}
