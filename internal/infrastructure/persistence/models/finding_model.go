package models

import "time"

// FindingModel is the database model for security findings.
type FindingModel struct {
	ID             uint          `gorm:"primaryKey;autoIncrement"`
	ScanID         uint          `gorm:"index;not null"`
	Scan           *ScanModel    `gorm:"foreignKey:ScanID;constraint:OnDelete:CASCADE"`
	HostID         *uint         `gorm:"index"`
	Host           *HostModel    `gorm:"foreignKey:HostID;constraint:OnDelete:CASCADE"`
	ServiceID      *uint         `gorm:"index"`
	Service        *ServiceModel `gorm:"foreignKey:ServiceID;constraint:OnDelete:CASCADE"`
	FindingType    string        `gorm:"size:64;not null"`
	Title          string        `gorm:"size:512;not null"`
	Description    string        `gorm:"type:text"`
	Severity       string        `gorm:"size:32"`
	Recommendation string        `gorm:"type:text"`
	Details        string        `gorm:"type:text"` // JSON encoded details
	Timestamp      time.Time     `gorm:"not null"`
}

// TableName maps the model to the findings table.
func (FindingModel) TableName() string {
	return "findings"
}
