package persistence

import (
	"context"

	appquoting "github.com/erp/quoting/internal/application/quoting"
	"github.com/erp/quoting/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GormActivityRecorder appends audit log entries to the activities table
type GormActivityRecorder struct {
	db *gorm.DB
}

// NewGormActivityRecorder creates a new GormActivityRecorder
func NewGormActivityRecorder(db *gorm.DB) *GormActivityRecorder {
	return &GormActivityRecorder{db: db}
}

// Record implements appquoting.ActivityRecorder
func (r *GormActivityRecorder) Record(ctx context.Context, activity appquoting.Activity) error {
	return r.db.WithContext(ctx).Create(&models.ActivityModel{
		ID:        uuid.New(),
		TenantID:  activity.TenantID,
		SubjectID: activity.SubjectID,
		Type:      activity.Type,
		Message:   activity.Message,
		Detail:    datatypes.JSONMap(activity.Detail),
		At:        activity.At,
	}).Error
}

// FindBySubject lists the entries recorded for a subject, oldest first
func (r *GormActivityRecorder) FindBySubject(ctx context.Context, tenantID, subjectID uuid.UUID) ([]appquoting.Activity, error) {
	var rows []models.ActivityModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND subject_id = ?", tenantID, subjectID).
		Order("at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]appquoting.Activity, len(rows))
	for i, row := range rows {
		out[i] = appquoting.Activity{
			TenantID:  row.TenantID,
			Type:      row.Type,
			SubjectID: row.SubjectID,
			Message:   row.Message,
			Detail:    row.Detail,
			At:        row.At,
		}
	}
	return out, nil
}

var _ appquoting.ActivityRecorder = (*GormActivityRecorder)(nil)
