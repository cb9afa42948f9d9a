package ports

import (
	"context"

	"github.com/topcoder-platform/email-preferences-service/internal/domain"
)

type CreateContactParams struct {
	Email     string
	FirstName string
	LastName  string
	Tags      []domain.Tag
}

type UpdateContactMetadataParams struct {
	ContactID string
	FirstName string
	LastName  string
}

// ContactDirectory is the tag-based contact list in the mailing-list
// provider. GetTags reports a missing contact as found=false rather than
// an error; any other failure is an error.
type ContactDirectory interface {
	GetTags(ctx context.Context, contactID string) (tags []domain.Tag, found bool, err error)
	CreateContact(ctx context.Context, params CreateContactParams) error
	UpdateContactMetadata(ctx context.Context, params UpdateContactMetadataParams) error
	ApplyTagMutations(ctx context.Context, contactID string, mutations []domain.TagMutation) error
}
