package models

// ServiceModel is the database model for detected services.
type ServiceModel struct {
	ID          uint       `gorm:"primaryKey;autoIncrement"`
	HostID      uint       `gorm:"index;not null"`
	Host        *HostModel `gorm:"foreignKey:HostID;constraint:OnDelete:CASCADE"`
	Port        int        `gorm:"not null"`
	Protocol    string     `gorm:"size:16;not null"`
	ServiceName string     `gorm:"size:128"`
	Version     string     `gorm:"size:255"`
	State       string     `gorm:"size:32"`
}

// TableName maps the model to the services table.
func (ServiceModel) TableName() string {
	return "services"
}
