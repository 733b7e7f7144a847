package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cardfolio/cardfolio-api/auth"
	"github.com/cardfolio/cardfolio-api/middleware"
	"github.com/cardfolio/cardfolio-api/models"
)

var testDBCounter atomic.Int64

func newTestHandler(t *testing.T) *DBHandler {
	t.Helper()

	// A named shared-memory database so every connection in the pool sees
	// the same data.
	dsn := fmt.Sprintf("file:handlers_test_%d?mode=memory&cache=shared", testDBCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Set{}, &models.Card{}))

	return &DBHandler{
		DB:     db,
		Tokens: auth.NewTokenCodec("test-secret"),
		Google: auth.NewGoogleClient("", "", ""),
	}
}

// newTestServer wires the handler mux behind the real auth middleware so
// tests exercise the same stack as production.
func newTestServer(t *testing.T) (*DBHandler, http.Handler) {
	t.Helper()
	h := newTestHandler(t)
	return h, middleware.EnsureValidToken(h.Tokens)(h.Routes())
}

func doRequest(t *testing.T, handler http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var apiErr struct {
		Code string `json:"error_code"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&apiErr))
	return apiErr.Code
}

// registerUser goes through the real registration route and returns the
// issued token.
func registerUser(t *testing.T, handler http.Handler, username, email string) string {
	t.Helper()

	rec := doRequest(t, handler, http.MethodPost, "/auth/register", "", map[string]string{
		"username":        username,
		"email":           email,
		"password":        "hunter22",
		"confirmPassword": "hunter22",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp["accessToken"])
	return resp["accessToken"]
}

// createAdmin seeds an admin account directly and issues its token.
func createAdmin(t *testing.T, h *DBHandler, username, email string) string {
	t.Helper()

	hashed, err := auth.HashPassword("admin-pass")
	require.NoError(t, err)
	user := models.User{Role: models.RoleAdmin, Username: username, Email: email, Password: &hashed}
	require.NoError(t, h.Create(&user).Error)

	token, err := h.Tokens.Issue(user)
	require.NoError(t, err)
	return token
}

// JSON shapes of the responses, matching the models' field names.

type cardJSON struct {
	ID           uint
	Term         string
	Definition   string
	CorrectCount *int
	SetID        uint
	CreatedBy    uint
}

type setJSON struct {
	ID          uint
	Name        string
	Description string
	VisibleTo   string
	UserID      uint
	AuthorID    uint
	Cards       []cardJSON
}

type libraryEntryJSON struct {
	Set      setJSON            `json:"set"`
	Metadata models.SetMetadata `json:"metadata"`
}

func defaultCards(n int) []map[string]string {
	cards := make([]map[string]string, 0, n)
	for i := 0; i < n; i++ {
		cards = append(cards, map[string]string{
			"term":       fmt.Sprintf("term-%d", i),
			"definition": fmt.Sprintf("definition-%d", i),
		})
	}
	return cards
}

// createSet creates a set through the API and returns the decoded response.
func createSet(t *testing.T, handler http.Handler, token, name string, visibleTo models.VisibleTo, passcode string, cardCount int) setJSON {
	t.Helper()

	rec := doRequest(t, handler, http.MethodPost, "/set/create-set", token, map[string]interface{}{
		"name":      name,
		"visibleTo": visibleTo,
		"passcode":  passcode,
		"cards":     defaultCards(cardCount),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var set setJSON
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&set))
	require.Len(t, set.Cards, cardCount)
	return set
}
