package entities

import "time"

// DateLayout is the storage format of Datum.Date.
const DateLayout = "2006-01-02"

// MaxAreaLength is the width of the data.area column in characters.
const MaxAreaLength = 191

// Datum is the unique bucket for reports sharing an (Area, Date, Category) key.
type Datum struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Area     string `gorm:"size:191;not null;uniqueIndex:idx_data_key,priority:1" json:"area"`
	Date     string `gorm:"size:10;not null;uniqueIndex:idx_data_key,priority:2" json:"date"`
	Category int    `gorm:"not null;uniqueIndex:idx_data_key,priority:3" json:"type"`
	EventID  uint   `gorm:"not null;index" json:"eventId"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	// Relationship
	Event *Event `gorm:"foreignKey:EventID;constraint:OnDelete:RESTRICT,OnUpdate:CASCADE" json:"-"`
}

// TableName returns the table name for GORM.
func (Datum) TableName() string {
	return "data"
}
