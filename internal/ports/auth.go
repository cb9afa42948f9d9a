package ports

// AuthClaims are the verified claims of a bearer token. User tokens
// carry roles; machine tokens carry scopes instead.
type AuthClaims struct {
	UserID string
	Roles  []string
	Scopes []string
}

type TokenVerifier interface {
	Verify(token string) (AuthClaims, error)
}
