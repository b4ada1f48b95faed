package models

import "time"

// ScanModel is the database model for scan sessions.
type ScanModel struct {
	ID          uint       `gorm:"primaryKey;autoIncrement"`
	SessionName string     `gorm:"uniqueIndex;size:255;not null"`
	ScanType    string     `gorm:"size:64;not null"`
	Target      string     `gorm:"size:255;not null"`
	StartTime   time.Time  `gorm:"not null"`
	EndTime     *time.Time
	Status      string     `gorm:"size:32;not null"`
	Summary     string     `gorm:"type:text"`
	ResultsPath string     `gorm:"size:512"`
}

// TableName maps the model to the scans table.
func (ScanModel) TableName() string {
	return "scans"
}
