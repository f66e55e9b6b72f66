package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/martalon/colmena/utils"
	"gorm.io/gorm"
)

// Brand represents a business funding campaigns on the platform
type Brand struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_brands_uuid" json:"uuid"`

	CompanyName  string  `gorm:"size:255;not null" json:"company_name"`
	ContactEmail string  `gorm:"size:255;not null;uniqueIndex:uk_brands_contact_email" json:"contact_email"`
	ContactName  *string `gorm:"size:255" json:"contact_name,omitempty"`
	Website      *string `gorm:"size:512" json:"website,omitempty"`

	IsActive bool `gorm:"not null;default:true;index:idx_brands_is_active" json:"is_active"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (Brand) TableName() string {
	return "brands"
}

// BeforeCreate is called before creating a new record
func (b *Brand) BeforeCreate(tx *gorm.DB) error {
	if b.UUID == uuid.Nil {
		b.UUID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (b *Brand) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	b.UpdatedAt = &now
	return nil
}

// BrandFilter represents filter criteria for brands
type BrandFilter struct {
	ID           *uint      `json:"id,omitempty"`
	UUID         *uuid.UUID `json:"uuid,omitempty"`
	ContactEmail *string    `json:"contact_email,omitempty"`
	IsActive     *bool      `json:"is_active,omitempty"`
}
