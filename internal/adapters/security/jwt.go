package security

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/topcoder-platform/email-preferences-service/internal/domain"
	"github.com/topcoder-platform/email-preferences-service/internal/ports"
)

// JWTVerifier validates HS256 bearer tokens issued by the platform's
// auth provider and extracts the claims the handlers authorize on.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) (*JWTVerifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	return &JWTVerifier{secret: []byte(secret)}, nil
}

type apiClaims struct {
	UserID string   `json:"userId"`
	Roles  []string `json:"roles"`
	Scope  string   `json:"scope"`
	jwt.RegisteredClaims
}

func (v *JWTVerifier) Verify(token string) (ports.AuthClaims, error) {
	var claims apiClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return ports.AuthClaims{}, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}
	return ports.AuthClaims{
		UserID: claims.UserID,
		Roles:  claims.Roles,
		Scopes: strings.Fields(claims.Scope),
	}, nil
}
