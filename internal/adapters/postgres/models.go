package postgres

import "time"

type preferenceRow struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Email     []byte    `gorm:"column:email;type:jsonb"`
	ObjectID  string    `gorm:"column:object_id"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (preferenceRow) TableName() string { return "preferences" }
