package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID      uuid.UUID
	Username    string
	IsSuperuser bool
	JTI         string
}

// AccessTokenClaims represents the typed JWT issued by the identity service.
type AccessTokenClaims struct {
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	IsSuperuser bool      `json:"is_superuser"`
	jwt.RegisteredClaims
}

// Actor is the authenticated caller every credit operation runs on behalf of.
type Actor struct {
	UserID      uuid.UUID
	Username    string
	IsSuperuser bool
}

// Actor projects the claims onto the caller identity.
func (c AccessTokenClaims) Actor() Actor {
	return Actor{
		UserID:      c.UserID,
		Username:    c.Username,
		IsSuperuser: c.IsSuperuser,
	}
}
