package application

import (
	"encoding/json"
	"time"

	"github.com/topcoder-platform/email-preferences-service/internal/domain"
)

// SubscriptionView is the result of a preference read: the live
// subscription state decoded from the remote directory, total over the
// catalog.
type SubscriptionView struct {
	Email    EmailSubscriptions `json:"email"`
	ObjectID string             `json:"objectId"`
}

type EmailSubscriptions struct {
	Subscriptions domain.SubscriptionState `json:"subscriptions"`
}

// eventPayload is the update-event body: the desired record with the
// storage-only fields (id, updatedAt) stripped.
type eventPayload struct {
	Email    domain.EmailPreferences `json:"email"`
	ObjectID string                  `json:"objectId"`
}

// changeEvent is the bus envelope every published event is wrapped in.
type changeEvent struct {
	Topic      string          `json:"topic"`
	Originator string          `json:"originator"`
	Timestamp  string          `json:"timestamp"`
	Payload    json.RawMessage `json:"payload"`
}

func (s *Service) marshalEvent(eventType string, at time.Time, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(changeEvent{
		Topic:      eventType,
		Originator: s.cfg.ServiceName,
		Timestamp:  at.Format(time.RFC3339),
		Payload:    body,
	})
}
