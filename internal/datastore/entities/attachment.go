package entities

import "time"

// Attachment is an image stored under the media images directory.
// FileName is relative to that directory; the thumbnail shares the name.
type Attachment struct {
	ID        uint      `gorm:"primaryKey"`
	FileName  string    `gorm:"size:255;not null"`
	ReportID  uint      `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM.
func (Attachment) TableName() string {
	return "attachments"
}
