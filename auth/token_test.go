package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/cardfolio/cardfolio-api/models"
)

func testUser() models.User {
	user := models.User{
		Role:     models.RoleUser,
		Username: "alice",
		Email:    "alice@example.com",
	}
	user.ID = 42
	return user
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	codec := NewTokenCodec("secret")

	token, err := codec.Issue(testUser())
	require.NoError(t, err)

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	require.EqualValues(t, 42, claims.User.ID)
	require.Equal(t, "alice", claims.User.Username)
	require.Equal(t, "alice@example.com", claims.User.Email)
	require.Equal(t, "user", claims.User.Role)
	require.WithinDuration(t, time.Now().Add(tokenLifetime), claims.ExpiresAt.Time, time.Minute)
}

func TestVerifyFailuresAreUniform(t *testing.T) {
	codec := NewTokenCodec("secret")
	token, err := codec.Issue(testUser())
	require.NoError(t, err)

	// Garbage, tampered and foreign-signed tokens all yield the same
	// error; callers cannot tell the cases apart.
	_, err = codec.Verify("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)

	tampered := token[:len(token)-2] + "xx"
	_, err = codec.Verify(tampered)
	require.ErrorIs(t, err, ErrInvalidToken)

	other := NewTokenCodec("other-secret")
	foreign, err := other.Issue(testUser())
	require.NoError(t, err)
	_, err = codec.Verify(foreign)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	codec := NewTokenCodec("secret")

	expired := Claims{
		User: UserClaims{ID: 42, Username: "alice", Email: "alice@example.com", Role: "user"},
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, expired).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = codec.Verify(tokenString)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsUnsignedToken(t *testing.T) {
	codec := NewTokenCodec("secret")

	claims := Claims{User: UserClaims{ID: 42, Role: "admin"}}
	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = codec.Verify(tokenString)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestCheckAdmin(t *testing.T) {
	require.Equal(t, DeniedUnauthenticated, CheckAdmin(nil))

	user := &Claims{User: UserClaims{Role: "user"}}
	require.Equal(t, DeniedForbidden, CheckAdmin(user))

	admin := &Claims{User: UserClaims{Role: "admin"}}
	require.Equal(t, Granted, CheckAdmin(admin))
}
