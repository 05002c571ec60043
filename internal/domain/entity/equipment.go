package entity

import "time"

// EquipmentStatus 设备状态
type EquipmentStatus string

const (
	EquipmentOperational   EquipmentStatus = "operational"
	EquipmentMaintenance   EquipmentStatus = "maintenance"
	EquipmentOutOfService  EquipmentStatus = "out_of_service"
	EquipmentStatusUnknown EquipmentStatus = "unknown"
)

// Equipment 仓库设备
type Equipment struct {
	ID             string          `json:"id" gorm:"type:varchar(64);primaryKey"`
	Name           string          `json:"name" gorm:"type:varchar(255)"`
	Type           string          `json:"type" gorm:"type:varchar(64);index"`
	Status         EquipmentStatus `json:"status" gorm:"type:varchar(32);index;default:'unknown'"`
	Zone           string          `json:"zone" gorm:"type:varchar(64);index"`
	LastServicedAt *time.Time      `json:"last_serviced_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Equipment) TableName() string {
	return "equipment"
}
