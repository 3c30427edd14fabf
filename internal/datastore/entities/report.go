package entities

import "time"

// Report is one submitted observation. DatumID is fixed at creation.
type Report struct {
	ID          uint      `gorm:"primaryKey"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index"`
	Description string    `gorm:"type:text;not null"`
	Lng         *float64
	Lat         *float64
	Time        time.Time `gorm:"not null"` // observation time, never in the future
	DatumID     uint      `gorm:"not null;index"`

	// Relationships
	Datum       *Datum       `gorm:"foreignKey:DatumID;constraint:OnDelete:RESTRICT,OnUpdate:CASCADE"`
	Attachments []Attachment `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE"`
}

// TableName returns the table name for GORM.
func (Report) TableName() string {
	return "reports"
}
