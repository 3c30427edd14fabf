package entities

import "time"

// Star marks a report as bookmarked by a user. Absence of a row means unstarred.
type Star struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_stars_user_report,priority:1"`
	ReportID  uint      `gorm:"not null;uniqueIndex:idx_stars_user_report,priority:2;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	// Relationships
	User   *User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE"`
	Report *Report `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE"`
}

// TableName returns the table name for GORM.
func (Star) TableName() string {
	return "stars"
}
