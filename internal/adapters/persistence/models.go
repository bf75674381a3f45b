// Package persistence holds the GORM models and repositories used to store
// simulation runs, their resulting schedules and their logs.
package persistence

import "time"

// SimulationRunModel represents the simulation_runs table
type SimulationRunModel struct {
	ID         string     `gorm:"column:id;primaryKey"` // UUID
	Name       string     `gorm:"column:name;not null"`
	TickSize   float64    `gorm:"column:tick_size;not null"`
	TimeStop   float64    `gorm:"column:time_stop;not null"`
	FinalTime  float64    `gorm:"column:final_time"`
	Ticks      int        `gorm:"column:ticks"`
	Messages   int64      `gorm:"column:messages"`
	StartedAt  time.Time  `gorm:"column:started_at;not null"`
	FinishedAt *time.Time `gorm:"column:finished_at"`
}

func (SimulationRunModel) TableName() string {
	return "simulation_runs"
}

// ScheduleRecordModel represents the schedule_records table: one row per
// exported schedule item of a run, idle fill included.
type ScheduleRecordModel struct {
	ID             int                 `gorm:"column:id;primaryKey;autoIncrement"`
	RunID          string              `gorm:"column:run_id;not null;index"`
	Run            *SimulationRunModel `gorm:"foreignKey:RunID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	ResourceID     int                 `gorm:"column:resource_id;not null"`
	ResourceName   string              `gorm:"column:resource_name;not null"`
	TaskID         *int                `gorm:"column:task_id"`
	TaskName       *string             `gorm:"column:task_name"`
	Type           string              `gorm:"column:type;not null"`
	FromPoint      string              `gorm:"column:from_point;not null"` // JSON-encoded point
	ToPoint        string              `gorm:"column:to_point;not null"`   // JSON-encoded point
	StartTime      float64             `gorm:"column:start_time;not null"`
	EndTime        float64             `gorm:"column:end_time;not null"`
	Cost           float64             `gorm:"column:cost"`
	IsMoveToCharge bool                `gorm:"column:is_move_to_charge"`
	ChargeOnEnd    float64             `gorm:"column:charge_on_end"`
}

func (ScheduleRecordModel) TableName() string {
	return "schedule_records"
}

// RunLogModel represents the run_logs table
type RunLogModel struct {
	ID        int       `gorm:"column:id;primaryKey;autoIncrement"`
	RunID     string    `gorm:"column:run_id;not null;index"`
	Timestamp time.Time `gorm:"column:timestamp;not null"`
	Level     string    `gorm:"column:level;not null;default:'INFO'"`
	Message   string    `gorm:"column:message;type:text;not null"`
	Metadata  string    `gorm:"column:metadata;type:text"` // JSON-encoded
}

func (RunLogModel) TableName() string {
	return "run_logs"
}
