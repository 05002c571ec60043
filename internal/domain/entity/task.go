package entity

import "time"

// TaskStatus 作业任务状态
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// WarehouseTask 仓库作业任务（拣货、补货、盘点等）
type WarehouseTask struct {
	ID          string     `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Type        string     `json:"type" gorm:"type:varchar(64);index"`
	SKU         string     `json:"sku,omitempty" gorm:"type:varchar(64);index"`
	EquipmentID string     `json:"equipment_id,omitempty" gorm:"type:varchar(64);index"`
	Zone        string     `json:"zone,omitempty" gorm:"type:varchar(64)"`
	Status      TaskStatus `json:"status" gorm:"type:varchar(32);index;default:'pending'"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime;index"`
}

// TableName 指定表名
func (WarehouseTask) TableName() string {
	return "warehouse_tasks"
}
