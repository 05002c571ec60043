package entity

import "time"

// InventoryRecord 库存记录
type InventoryRecord struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SKU         string    `json:"sku" gorm:"type:varchar(64);index;not null"`
	ProductName string    `json:"product_name" gorm:"type:varchar(255)"`
	Location    string    `json:"location" gorm:"type:varchar(64);index"`
	Quantity    int       `json:"quantity" gorm:"default:0"`
	Reserved    int       `json:"reserved" gorm:"default:0"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (InventoryRecord) TableName() string {
	return "inventory_records"
}

// Available 可承诺量（现货减去已预留）
func (r *InventoryRecord) Available() int {
	avail := r.Quantity - r.Reserved
	if avail < 0 {
		return 0
	}
	return avail
}

// InventoryTotal 按 SKU 聚合的库存汇总
type InventoryTotal struct {
	SKU           string `json:"sku"`
	TotalQuantity int    `json:"total_quantity"`
	TotalReserved int    `json:"total_reserved"`
	Locations     int    `json:"locations"`
}
