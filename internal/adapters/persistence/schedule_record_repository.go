package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/andrescamacho/lastmile-go/internal/domain/courier"
)

// ScheduleRecordRepository manages schedule record persistence
type ScheduleRecordRepository interface {
	// SaveAll stores the exported schedule of a run in one transaction
	SaveAll(ctx context.Context, runID string, records []courier.ScheduleRecord) error

	// GetByRun retrieves all records of a run ordered by resource and time
	GetByRun(ctx context.Context, runID string) ([]ScheduleRecordModel, error)

	// DeleteByRun removes all records of a run
	DeleteByRun(ctx context.Context, runID string) error
}

// GormScheduleRecordRepository is a GORM-based implementation
type GormScheduleRecordRepository struct {
	db *gorm.DB
}

// NewGormScheduleRecordRepository creates a new schedule record repository
func NewGormScheduleRecordRepository(db *gorm.DB) *GormScheduleRecordRepository {
	return &GormScheduleRecordRepository{db: db}
}

// SaveAll stores the exported schedule of a run in one transaction
func (r *GormScheduleRecordRepository) SaveAll(ctx context.Context, runID string, records []courier.ScheduleRecord) error {
	if len(records) == 0 {
		return nil
	}
	models := make([]ScheduleRecordModel, 0, len(records))
	for _, rec := range records {
		models = append(models, ScheduleRecordModel{
			RunID:          runID,
			ResourceID:     rec.ResourceID,
			ResourceName:   rec.ResourceName,
			TaskID:         rec.TaskID,
			TaskName:       rec.TaskName,
			Type:           rec.Type,
			FromPoint:      rec.From,
			ToPoint:        rec.To,
			StartTime:      rec.StartTime,
			EndTime:        rec.EndTime,
			Cost:           rec.Cost,
			IsMoveToCharge: rec.IsMoveToCharge,
			ChargeOnEnd:    rec.ChargeOnEnd,
		})
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&models).Error
	})
}

// GetByRun retrieves all records of a run ordered by resource and time
func (r *GormScheduleRecordRepository) GetByRun(ctx context.Context, runID string) ([]ScheduleRecordModel, error) {
	var models []ScheduleRecordModel
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("resource_id, start_time").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return models, nil
}

// DeleteByRun removes all records of a run
func (r *GormScheduleRecordRepository) DeleteByRun(ctx context.Context, runID string) error {
	return r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Delete(&ScheduleRecordModel{}).Error
}
