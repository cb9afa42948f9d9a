package ports

import (
	"context"

	"github.com/topcoder-platform/email-preferences-service/internal/domain"
)

// IdentityResolver looks up a member's identity record. A missing user
// or a user without a usable email fails with domain.ErrNotFound; a user
// missing first/last name fails with a generic error.
type IdentityResolver interface {
	GetUser(ctx context.Context, userID string) (domain.UserIdentity, error)
}
