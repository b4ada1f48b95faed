package models

// HostModel is the database model for discovered hosts.
type HostModel struct {
	ID        uint       `gorm:"primaryKey;autoIncrement"`
	ScanID    uint       `gorm:"index;not null"`
	Scan      *ScanModel `gorm:"foreignKey:ScanID;constraint:OnDelete:CASCADE"`
	IPAddress string     `gorm:"size:64;not null"`
	Hostname  string     `gorm:"size:255"`
	OS        string     `gorm:"size:255"`
}

// TableName maps the model to the hosts table.
func (HostModel) TableName() string {
	return "hosts"
}
