package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/martalon/colmena/utils"
	"gorm.io/gorm"
)

// SocialProfile is one platform presence of a creator
type SocialProfile struct {
	Platform  string `json:"platform"`
	Handle    string `json:"handle"`
	Followers int64  `json:"followers,omitempty"`
	URL       string `json:"url,omitempty"`
}

// SocialProfiles is the creator's platform presence list stored as JSONB
type SocialProfiles []SocialProfile

// Value implements the driver.Valuer interface for SocialProfiles
func (p SocialProfiles) Value() (driver.Value, error) {
	if p == nil {
		return json.Marshal(SocialProfiles{})
	}
	return json.Marshal(p)
}

// Scan implements the sql.Scanner interface for SocialProfiles
func (p *SocialProfiles) Scan(value any) error {
	return scanJSONB(value, p, "SocialProfiles")
}

// MaxFollowers returns the creator's largest audience across platforms
func (p SocialProfiles) MaxFollowers() int64 {
	var max int64
	for _, sp := range p {
		if sp.Followers > max {
			max = sp.Followers
		}
	}
	return max
}

// HasPlatform reports whether the creator has a profile on platform
func (p SocialProfiles) HasPlatform(platform string) bool {
	for _, sp := range p {
		if sp.Platform == platform {
			return true
		}
	}
	return false
}

// Creator represents a content creator applying to campaigns
type Creator struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_creators_uuid" json:"uuid"`

	DisplayName string         `gorm:"size:255;not null" json:"display_name"`
	Email       string         `gorm:"size:255;not null;uniqueIndex:uk_creators_email" json:"email"`
	Profiles    SocialProfiles `gorm:"type:jsonb;not null" json:"profiles"`

	IsActive bool `gorm:"not null;default:true;index:idx_creators_is_active" json:"is_active"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (Creator) TableName() string {
	return "creators"
}

// BeforeCreate is called before creating a new record
func (c *Creator) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Profiles == nil {
		c.Profiles = SocialProfiles{}
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Creator) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// CreatorFilter represents filter criteria for creators
type CreatorFilter struct {
	ID       *uint      `json:"id,omitempty"`
	UUID     *uuid.UUID `json:"uuid,omitempty"`
	Email    *string    `json:"email,omitempty"`
	IsActive *bool      `json:"is_active,omitempty"`
}
