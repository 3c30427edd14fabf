package entities

import "time"

// Event groups one or more Data under a human-editable name.
// An Event with no Data is deleted in the same transaction that emptied it.
type Event struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName returns the table name for GORM.
func (Event) TableName() string {
	return "events"
}
