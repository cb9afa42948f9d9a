package application

import (
	"context"
	"fmt"
	"reflect"

	"github.com/topcoder-platform/email-preferences-service/internal/domain"
	"github.com/topcoder-platform/email-preferences-service/internal/ports"
)

// GetPreferences returns the user's live subscription state, decoded from
// the remote contact directory. A contact missing from the directory is
// provisioned on the spot with default subscribed status and no tags, so
// the call is idempotent but not side-effect-free.
func (s *Service) GetPreferences(ctx context.Context, userID string) (SubscriptionView, error) {
	user, err := s.identity.GetUser(ctx, userID)
	if err != nil {
		return SubscriptionView{}, err
	}
	contactID := domain.ContactID(user.Email)

	tags, found, err := s.directory.GetTags(ctx, contactID)
	if err != nil {
		return SubscriptionView{}, err
	}
	created := false
	if !found {
		s.logger.InfoContext(ctx, "provisioning contact in directory",
			"module", "application.preferences",
			"operation", "get",
			"user_id", userID,
		)
		if err := s.directory.CreateContact(ctx, ports.CreateContactParams{
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
		}); err != nil {
			return SubscriptionView{}, err
		}
		created = true
		tags = nil
	}

	view := SubscriptionView{
		Email:    EmailSubscriptions{Subscriptions: s.cfg.Catalog.DecodeTags(tags)},
		ObjectID: userID,
	}
	if created {
		if err := s.publishCreated(ctx, userID, view.Email.Subscriptions); err != nil {
			return SubscriptionView{}, err
		}
	}
	return view, nil
}

// UpdatePreferences moves the remote contact and the snapshot store to
// the desired state and emits change events. The two writes are
// independent steps with no transactional envelope: a failure between
// them leaves the systems inconsistent until a later call re-reconciles
// from live remote state.
func (s *Service) UpdatePreferences(ctx context.Context, userID string, desired domain.PreferenceRecord) error {
	if err := domain.ValidatePreferenceRecord(s.cfg.Catalog, desired); err != nil {
		return err
	}
	if desired.ObjectID != userID {
		return fmt.Errorf("%w: userId %s does not match objectId %s", domain.ErrBadRequest, userID, desired.ObjectID)
	}

	user, err := s.identity.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	contactID := domain.ContactID(user.Email)

	tags, found, err := s.directory.GetTags(ctx, contactID)
	if err != nil {
		return err
	}
	created := !found
	if created {
		s.logger.InfoContext(ctx, "provisioning contact in directory",
			"module", "application.preferences",
			"operation", "update",
			"user_id", userID,
		)
		// Remote state matches the desired one right away, no diff needed.
		if err := s.directory.CreateContact(ctx, ports.CreateContactParams{
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Tags:      s.cfg.Catalog.ActiveTags(desired.Email.Subscriptions),
		}); err != nil {
			return err
		}
	} else {
		if err := s.directory.UpdateContactMetadata(ctx, ports.UpdateContactMetadataParams{
			ContactID: contactID,
			FirstName: user.FirstName,
			LastName:  user.LastName,
		}); err != nil {
			return err
		}
		current := s.cfg.Catalog.DecodeTags(tags)
		mutations := s.cfg.Catalog.DiffStates(current, desired.Email.Subscriptions)
		for _, m := range mutations {
			verb := "add"
			if m.Status == domain.TagInactive {
				verb = "remove"
			}
			s.logger.InfoContext(ctx, verb+" subscription",
				"module", "application.preferences",
				"operation", "update",
				"user_id", userID,
				"subscription", m.Name,
			)
		}
		if len(mutations) > 0 {
			if err := s.directory.ApplyTagMutations(ctx, contactID, mutations); err != nil {
				return err
			}
		}
	}

	desired.UpdatedAt = s.nowFn()
	stored, foundRec, err := s.snapshots.Get(ctx, userID)
	if err != nil {
		return err
	}
	if foundRec {
		patch := ports.SnapshotPatch{UpdatedAt: desired.UpdatedAt}
		if !reflect.DeepEqual(stored.Email, desired.Email) {
			email := desired.Email
			patch.Email = &email
		}
		if err := s.snapshots.UpdatePartial(ctx, userID, patch); err != nil {
			return err
		}
	} else {
		desired.ID = userID
		if err := s.snapshots.Insert(ctx, desired); err != nil {
			return err
		}
	}

	// Creation event, if any, goes out strictly before the update event,
	// and both only after the snapshot write has been applied.
	if created {
		if err := s.publishCreated(ctx, userID, desired.Email.Subscriptions); err != nil {
			return err
		}
	}
	body, err := s.marshalEvent(s.cfg.EventTypeUpdated, desired.UpdatedAt, eventPayload{
		Email:    desired.Email,
		ObjectID: desired.ObjectID,
	})
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, s.cfg.EventTypeUpdated, body, userID)
}

func (s *Service) publishCreated(ctx context.Context, userID string, subscriptions domain.SubscriptionState) error {
	body, err := s.marshalEvent(s.cfg.EventTypeCreated, s.nowFn(), SubscriptionView{
		Email:    EmailSubscriptions{Subscriptions: subscriptions},
		ObjectID: userID,
	})
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, s.cfg.EventTypeCreated, body, userID)
}
