package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/topcoder-platform/email-preferences-service/internal/domain"
)

func toRow(rec domain.PreferenceRecord) (preferenceRow, error) {
	email, err := json.Marshal(rec.Email)
	if err != nil {
		return preferenceRow{}, fmt.Errorf("marshal email preferences: %w", err)
	}
	return preferenceRow{
		ID:        rec.ID,
		Email:     email,
		ObjectID:  rec.ObjectID,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

func toRecord(row preferenceRow) (domain.PreferenceRecord, error) {
	var email domain.EmailPreferences
	if err := json.Unmarshal(row.Email, &email); err != nil {
		return domain.PreferenceRecord{}, fmt.Errorf("unmarshal email preferences: %w", err)
	}
	return domain.PreferenceRecord{
		ID:        row.ID,
		Email:     email,
		ObjectID:  row.ObjectID,
		UpdatedAt: row.UpdatedAt,
	}, nil
}
