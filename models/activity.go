package models

import "time"

type ActivityLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	Action      string    `gorm:"type:varchar(50);not null" json:"action"`
	Description string    `gorm:"type:text" json:"description"`
	IPAddress   string    `gorm:"type:varchar(45)" json:"ip_address"`
	CreatedAt   time.Time `json:"created_at"`
}

type SearchHistory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	Query       string    `gorm:"type:varchar(255);not null" json:"query"`
	Filters     string    `gorm:"type:varchar(255)" json:"filters"`
	ResultCount int64     `json:"result_count"`
	CreatedAt   time.Time `json:"created_at"`
}
