package store

import "time"

// TenantCredentialRecord is the persistence model for a cached tenant
// credential. Table name: tenant_credentials
type TenantCredentialRecord struct {
	RequesterID string    `gorm:"primaryKey;type:text;not null"`
	Secret      string    `gorm:"type:text;not null"`
	ProjectName string    `gorm:"type:text;not null"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (TenantCredentialRecord) TableName() string { return "tenant_credentials" }
