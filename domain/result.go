package domain

import (
	"time"

	"gorm.io/datatypes"
)

// TrialResult is one repeat of one parameter group, evaluated by both strategies.
type TrialResult struct {
	ID          string         `gorm:"column:id;primaryKey" json:"id"`
	RunID       string         `gorm:"column:run_id;index;not null" json:"run_id"`
	Model       string         `gorm:"column:model;index;not null" json:"model"`
	Task        string         `gorm:"column:task;index;not null" json:"task"`
	Group       int            `gorm:"column:group_idx;not null" json:"group"`
	Repeat      int            `gorm:"column:repeat_idx;not null" json:"repeat"`
	Params      datatypes.JSON `gorm:"column:params;type:jsonb" json:"params"`
	AReward     float64        `gorm:"column:a_reward" json:"a_reward"`
	BReward     float64        `gorm:"column:b_reward" json:"b_reward"`
	ARegret     float64        `gorm:"column:a_regret" json:"a_regret"`
	BRegret     float64        `gorm:"column:b_regret" json:"b_regret"`
	Improvement float64        `gorm:"column:improvement" json:"improvement"`

	// Baseline names the reference policy scored on the same trial, if any.
	Baseline       string  `gorm:"column:baseline" json:"baseline,omitempty"`
	BaselineReward float64 `gorm:"column:baseline_reward" json:"baseline_reward,omitempty"`
	BaselineRegret float64 `gorm:"column:baseline_regret" json:"baseline_regret,omitempty"`

	CurveA    datatypes.JSON `gorm:"column:curve_a;type:jsonb" json:"curve_a,omitempty"`
	CurveB    datatypes.JSON `gorm:"column:curve_b;type:jsonb" json:"curve_b,omitempty"`
	Error     string         `gorm:"column:error" json:"error,omitempty"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"timestamp"`
}

func (TrialResult) TableName() string {
	return "trial_results"
}

// Failed reports whether the repeat exhausted its retries.
func (r TrialResult) Failed() bool {
	return r.Error != ""
}

const (
	ProgressCompleted = "completed"
	ProgressFailed    = "failed"
)

// TaskProgress marks a (model, task, group) unit of work.
type TaskProgress struct {
	TaskUID   string    `gorm:"column:task_uid;primaryKey" json:"task_uid"`
	RunID     string    `gorm:"column:run_id" json:"run_id"`
	Status    string    `gorm:"column:status;not null" json:"status"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (TaskProgress) TableName() string {
	return "task_progress"
}
