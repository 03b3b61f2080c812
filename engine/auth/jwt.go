package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/miniflow/miniflow/engine/core"
)

// claims is the JWT payload carrying a workspace-scoped Identity.
type claims struct {
	WorkspaceID core.ID  `json:"workspace_id"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// JWTIssuer mints bearer tokens for a workspace-scoped Identity.
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTIssuer(secret string, ttl time.Duration) *JWTIssuer {
	return &JWTIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue mints a signed token for the given Identity.
func (j *JWTIssuer) Issue(id Identity) (string, error) {
	now := time.Now().UTC()
	c := claims{
		WorkspaceID: id.WorkspaceID,
		Permissions: id.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(j.secret)
}

// Verify parses and validates a bearer token, returning the Identity it
// carries.
func (j *JWTIssuer) Verify(tokenString string) (Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return j.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, core.NewError(err, core.CodeTokenInvalid, nil)
	}
	return Identity{WorkspaceID: c.WorkspaceID, Permissions: c.Permissions}, nil
}
