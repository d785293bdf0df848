package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ActivityModel is one append-only audit log entry
type ActivityModel struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID         `gorm:"type:uuid;not null;index:idx_activity_subject,priority:1"`
	SubjectID uuid.UUID         `gorm:"type:uuid;not null;index:idx_activity_subject,priority:2"`
	Type      string            `gorm:"type:varchar(64);not null;index"`
	Message   string            `gorm:"type:text"`
	Detail    datatypes.JSONMap `gorm:"column:detail"`
	At        time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ActivityModel) TableName() string {
	return "activities"
}
