package models

import "time"

// BaseModel holds the timestamp columns shared by all persisted entities.
type BaseModel struct {
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
