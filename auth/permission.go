package auth

import "github.com/cardfolio/cardfolio-api/models"

// Decision is a tagged permission result so callers report the right error
// kind instead of collapsing everything into a boolean.
type Decision int

const (
	Granted Decision = iota
	DeniedUnauthenticated
	DeniedForbidden
)

// CheckAdmin decides whether the identity may reach admin-only routes.
func CheckAdmin(claims *Claims) Decision {
	if claims == nil {
		return DeniedUnauthenticated
	}
	if claims.User.Role != string(models.RoleAdmin) {
		return DeniedForbidden
	}
	return Granted
}
