package domain

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// TagStatus is the remote directory's per-tag state. The listing endpoint
// only returns tags it considers currently associated with a contact, so
// decoding relies on presence in the listing, not on this field.
type TagStatus string

const (
	TagActive   TagStatus = "active"
	TagInactive TagStatus = "inactive"
)

// Tag is a named label attached to a remote contact. One tag encodes one
// subscription's boolean state.
type Tag struct {
	Name   string
	Status TagStatus
}

// TagMutation asks the directory to activate or deactivate a single tag.
type TagMutation struct {
	Name   string
	Status TagStatus
}

// UserIdentity is the slice of the member record the engine needs.
type UserIdentity struct {
	Email     string
	FirstName string
	LastName  string
}

// EmailPreferences is the user-owned subsection of a preference record.
type EmailPreferences struct {
	CreatedBy     string            `json:"createdBy"`
	FirstName     string            `json:"firstName"`
	LastName      string            `json:"lastName"`
	Subscriptions SubscriptionState `json:"subscriptions"`
	UpdatedBy     string            `json:"updatedBy"`
}

// PreferenceRecord is the snapshot-store record for one user. ID and
// UpdatedAt are storage-only fields; the engine is the record's only
// writer and never deletes it.
type PreferenceRecord struct {
	ID        string           `json:"id,omitempty"`
	Email     EmailPreferences `json:"email"`
	ObjectID  string           `json:"objectId"`
	UpdatedAt time.Time        `json:"updatedAt,omitempty"`
}

// ContactID derives the remote directory's lookup key from an email
// address. Identical emails, compared case-insensitively, always yield
// the identical key.
func ContactID(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(email)))
	return hex.EncodeToString(sum[:])
}
