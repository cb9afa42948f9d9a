package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/topcoder-platform/email-preferences-service/internal/domain"
	"github.com/topcoder-platform/email-preferences-service/internal/ports"
	"gorm.io/gorm"
)

type SnapshotRepository struct {
	db *gorm.DB
}

var _ ports.SnapshotStore = (*SnapshotRepository)(nil)

func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) Get(ctx context.Context, userID string) (domain.PreferenceRecord, bool, error) {
	var row preferenceRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.PreferenceRecord{}, false, nil
	}
	if err != nil {
		return domain.PreferenceRecord{}, false, fmt.Errorf("get preference record: %w", err)
	}
	rec, err := toRecord(row)
	if err != nil {
		return domain.PreferenceRecord{}, false, err
	}
	return rec, true, nil
}

func (r *SnapshotRepository) Insert(ctx context.Context, rec domain.PreferenceRecord) error {
	row, err := toRow(rec)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert preference record: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) UpdatePartial(ctx context.Context, userID string, patch ports.SnapshotPatch) error {
	fields := map[string]any{"updated_at": patch.UpdatedAt}
	if patch.Email != nil {
		email, err := json.Marshal(patch.Email)
		if err != nil {
			return fmt.Errorf("marshal email preferences: %w", err)
		}
		fields["email"] = email
	}
	res := r.db.WithContext(ctx).Model(&preferenceRow{}).Where("id = ?", userID).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update preference record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: preference record %s", domain.ErrNotFound, userID)
	}
	return nil
}
