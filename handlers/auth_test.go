package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cardfolio/cardfolio-api/auth"
	"github.com/cardfolio/cardfolio-api/models"
)

func TestRegisterAndLogin(t *testing.T) {
	_, server := newTestServer(t)

	registerUser(t, server, "alice", "alice@example.com")

	rec := doRequest(t, server, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp["accessToken"])
}

func TestLoginDoesNotLeakWhichFieldWasWrong(t *testing.T) {
	_, server := newTestServer(t)
	registerUser(t, server, "alice", "alice@example.com")

	wrongPassword := doRequest(t, server, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	unknownEmail := doRequest(t, server, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "nobody@example.com",
		"password": "hunter22",
	})

	require.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	require.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	require.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	_, server := newTestServer(t)
	registerUser(t, server, "alice", "alice@example.com")

	sameUsername := doRequest(t, server, http.MethodPost, "/auth/register", "", map[string]string{
		"username":        "alice",
		"email":           "other@example.com",
		"password":        "hunter22",
		"confirmPassword": "hunter22",
	})
	require.Equal(t, http.StatusConflict, sameUsername.Code)
	require.Equal(t, "UNIQUE_VIOLATION", errorCode(t, sameUsername))

	sameEmail := doRequest(t, server, http.MethodPost, "/auth/register", "", map[string]string{
		"username":        "bob",
		"email":           "alice@example.com",
		"password":        "hunter22",
		"confirmPassword": "hunter22",
	})
	require.Equal(t, http.StatusConflict, sameEmail.Code)
	require.Equal(t, "UNIQUE_VIOLATION", errorCode(t, sameEmail))
}

func TestRegisterRejectsPasswordMismatch(t *testing.T) {
	_, server := newTestServer(t)

	rec := doRequest(t, server, http.MethodPost, "/auth/register", "", map[string]string{
		"username":        "alice",
		"email":           "alice@example.com",
		"password":        "hunter22",
		"confirmPassword": "hunter23",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
}

func TestRegisterStoresHashedPassword(t *testing.T) {
	h, server := newTestServer(t)
	registerUser(t, server, "alice", "alice@example.com")

	var user models.User
	require.NoError(t, h.Where("username = ?", "alice").First(&user).Error)
	require.NotNil(t, user.Password)
	require.NotEqual(t, "hunter22", *user.Password)
	require.True(t, auth.ComparePassword(*user.Password, "hunter22"))
	require.Equal(t, models.RoleUser, user.Role)
}

func TestGoogleCallbackRejectsUnknownState(t *testing.T) {
	_, server := newTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/auth/google/callback?state=bogus&code=whatever", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "UNAUTHENTICATED", errorCode(t, rec))
}

func TestGoogleLoginRedirects(t *testing.T) {
	_, server := newTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/auth/google", "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Contains(t, rec.Header().Get("Location"), "state=")
}
