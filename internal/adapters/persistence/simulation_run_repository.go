package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SimulationRunRepository manages simulation run persistence
type SimulationRunRepository interface {
	// Create registers a new run and returns its generated ID
	Create(ctx context.Context, name string, tickSize, timeStop float64) (string, error)

	// Finish records the final statistics of a completed run
	Finish(ctx context.Context, runID string, finalTime float64, ticks int, messages int64) error

	// Get retrieves a run by ID
	Get(ctx context.Context, runID string) (*SimulationRunModel, error)

	// List retrieves the most recent runs, newest first
	List(ctx context.Context, limit int) ([]SimulationRunModel, error)
}

// GormSimulationRunRepository is a GORM-based implementation
type GormSimulationRunRepository struct {
	db *gorm.DB
}

// NewGormSimulationRunRepository creates a new simulation run repository
func NewGormSimulationRunRepository(db *gorm.DB) *GormSimulationRunRepository {
	return &GormSimulationRunRepository{db: db}
}

// Create registers a new run and returns its generated ID
func (r *GormSimulationRunRepository) Create(ctx context.Context, name string, tickSize, timeStop float64) (string, error) {
	model := &SimulationRunModel{
		ID:        uuid.New().String(),
		Name:      name,
		TickSize:  tickSize,
		TimeStop:  timeStop,
		StartedAt: time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return "", err
	}
	return model.ID, nil
}

// Finish records the final statistics of a completed run
func (r *GormSimulationRunRepository) Finish(ctx context.Context, runID string, finalTime float64, ticks int, messages int64) error {
	return r.db.WithContext(ctx).
		Model(&SimulationRunModel{}).
		Where("id = ?", runID).
		Updates(map[string]interface{}{
			"final_time":  finalTime,
			"ticks":       ticks,
			"messages":    messages,
			"finished_at": time.Now(),
		}).Error
}

// Get retrieves a run by ID
func (r *GormSimulationRunRepository) Get(ctx context.Context, runID string) (*SimulationRunModel, error) {
	var model SimulationRunModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", runID).Error; err != nil {
		return nil, err
	}
	return &model, nil
}

// List retrieves the most recent runs, newest first
func (r *GormSimulationRunRepository) List(ctx context.Context, limit int) ([]SimulationRunModel, error) {
	var models []SimulationRunModel
	query := r.db.WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return models, nil
}
