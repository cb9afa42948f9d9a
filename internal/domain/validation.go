package domain

import (
	"fmt"
	"strings"
)

// ValidatePreferenceRecord checks the shape of a desired preference
// record before any side effect is performed. The subscriptions map must
// be total over the catalog and carry no unknown names.
func ValidatePreferenceRecord(catalog Catalog, rec PreferenceRecord) error {
	if strings.TrimSpace(rec.ObjectID) == "" {
		return fmt.Errorf("%w: objectId is required", ErrInvalidInput)
	}
	if strings.TrimSpace(rec.Email.CreatedBy) == "" {
		return fmt.Errorf("%w: email.createdBy is required", ErrInvalidInput)
	}
	if strings.TrimSpace(rec.Email.UpdatedBy) == "" {
		return fmt.Errorf("%w: email.updatedBy is required", ErrInvalidInput)
	}
	if strings.TrimSpace(rec.Email.FirstName) == "" {
		return fmt.Errorf("%w: email.firstName is required", ErrInvalidInput)
	}
	if strings.TrimSpace(rec.Email.LastName) == "" {
		return fmt.Errorf("%w: email.lastName is required", ErrInvalidInput)
	}
	if rec.Email.Subscriptions == nil {
		return fmt.Errorf("%w: email.subscriptions is required", ErrInvalidInput)
	}
	for _, name := range catalog {
		if _, ok := rec.Email.Subscriptions[name]; !ok {
			return fmt.Errorf("%w: email.subscriptions is missing %q", ErrInvalidInput, name)
		}
	}
	for name := range rec.Email.Subscriptions {
		if !catalog.Contains(name) {
			return fmt.Errorf("%w: unknown subscription %q", ErrInvalidInput, name)
		}
	}
	return nil
}
