package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/teamhub-backend/pkg/config"
)

var (
	errNoSecret     = errors.New("jwt secret is required")
	errNoIssuer     = errors.New("jwt issuer is required")
	errBadTTL       = errors.New("jwt expiration minutes must be positive")
	errNoUserID     = errors.New("user id is required")
	errMissingActor = errors.New("token missing user id")
)

// Tokens are HS256 only. Anything else is rejected before the key is used.
var signingMethod = jwt.SigningMethodHS256

// MintAccessToken signs a token for payload. Real users receive tokens from
// the identity service; this is used by local tooling and tests.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	switch {
	case cfg.Secret == "":
		return "", errNoSecret
	case cfg.Issuer == "":
		return "", errNoIssuer
	case cfg.ExpirationMinutes <= 0:
		return "", errBadTTL
	case payload.UserID == uuid.Nil:
		return "", errNoUserID
	}

	id := strings.TrimSpace(payload.JTI)
	if id == "" {
		id = uuid.NewString()
	}
	ttl := time.Duration(cfg.ExpirationMinutes) * time.Minute

	signed, err := jwt.NewWithClaims(signingMethod, AccessTokenClaims{
		UserID:      payload.UserID,
		Username:    payload.Username,
		IsSuperuser: payload.IsSuperuser,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   payload.UserID.String(),
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", errors.Join(errors.New("signing jwt"), err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and expiry. The returned
// error wraps the jwt sentinel errors so callers can match ErrTokenExpired.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, errNoSecret
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	claims := new(AccessTokenClaims)
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}); err != nil {
		return nil, err
	}
	if claims.UserID == uuid.Nil {
		return nil, errMissingActor
	}
	return claims, nil
}
