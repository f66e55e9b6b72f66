package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/martalon/colmena/utils"
	"gorm.io/gorm"
)

// ApplicationStatus represents the status of a creator application
type ApplicationStatus string

const (
	ApplicationStatusApplied     ApplicationStatus = "applied"
	ApplicationStatusShortlisted ApplicationStatus = "shortlisted"
	ApplicationStatusConfirmed   ApplicationStatus = "confirmed"
	ApplicationStatusRejected    ApplicationStatus = "rejected"
	ApplicationStatusCancelled   ApplicationStatus = "cancelled"
)

// String returns the string representation of the status
func (s ApplicationStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationStatusApplied, ApplicationStatusShortlisted,
		ApplicationStatusConfirmed, ApplicationStatusRejected,
		ApplicationStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if the status can transition to the target status
func (s ApplicationStatus) CanTransitionTo(target ApplicationStatus) bool {
	switch s {
	case ApplicationStatusApplied:
		return target == ApplicationStatusShortlisted ||
			target == ApplicationStatusConfirmed ||
			target == ApplicationStatusRejected ||
			target == ApplicationStatusCancelled
	case ApplicationStatusShortlisted:
		return target == ApplicationStatusConfirmed ||
			target == ApplicationStatusRejected ||
			target == ApplicationStatusCancelled
	case ApplicationStatusConfirmed:
		return target == ApplicationStatusCancelled
	case ApplicationStatusRejected, ApplicationStatusCancelled:
		return false
	default:
		return false
	}
}

// IsActive reports whether the application still occupies the one-per-pair
// uniqueness slot for its (campaign, creator)
func (s ApplicationStatus) IsActive() bool {
	switch s {
	case ApplicationStatusApplied, ApplicationStatusShortlisted, ApplicationStatusConfirmed:
		return true
	default:
		return false
	}
}

// IsPending reports whether the application is still awaiting a brand decision
func (s ApplicationStatus) IsPending() bool {
	return s == ApplicationStatusApplied || s == ApplicationStatusShortlisted
}

// Scan implements the sql.Scanner interface for ApplicationStatus
func (s *ApplicationStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = ApplicationStatus(v)
	case []byte:
		*s = ApplicationStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into ApplicationStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for ApplicationStatus
func (s ApplicationStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid ApplicationStatus: %s", s)
	}
	return string(s), nil
}

// Application represents a creator's application to a campaign. At most one
// active (applied/shortlisted/confirmed) application may exist per
// (campaign, creator) pair.
type Application struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	UUID       uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:uk_applications_uuid" json:"uuid"`
	CampaignID uint              `gorm:"not null;index:idx_applications_campaign_id" json:"campaign_id"`
	CreatorID  uint              `gorm:"not null;index:idx_applications_creator_id" json:"creator_id"`
	Status     ApplicationStatus `gorm:"type:application_status;not null;default:'applied';index:idx_applications_status" json:"status"`

	// Platform the creator intends to produce on. Falls back to the
	// campaign's first required platform when the creator does not choose.
	Platform   string  `gorm:"size:32;not null" json:"platform"`
	Motivation *string `gorm:"type:text" json:"motivation,omitempty"`

	AppliedAt       time.Time  `gorm:"not null" json:"applied_at"`
	ConfirmedAt     *time.Time `json:"confirmed_at,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectionReason *string    `gorm:"size:500" json:"rejection_reason,omitempty"`

	// AutoRejected is sticky: once the scheduler sets it, a later manual
	// rejection must not clear it.
	AutoRejected bool `gorm:"not null;default:false" json:"auto_rejected"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	// Relations
	Campaign *Campaign `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
	Creator  *Creator  `gorm:"foreignKey:CreatorID;references:ID" json:"creator,omitempty"`
}

// TableName returns the table name for the model
func (Application) TableName() string {
	return "applications"
}

// BeforeCreate is called before creating a new record
func (a *Application) BeforeCreate(tx *gorm.DB) error {
	if a.UUID == uuid.Nil {
		a.UUID = uuid.New()
	}
	if a.Status == "" {
		a.Status = ApplicationStatusApplied
	}
	if a.AppliedAt.IsZero() {
		a.AppliedAt = utils.UTCNow()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (a *Application) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	a.UpdatedAt = &now
	return nil
}

// ApplicationFilter represents filter criteria for applications
type ApplicationFilter struct {
	ID         *uint               `json:"id,omitempty"`
	UUID       *uuid.UUID          `json:"uuid,omitempty"`
	CampaignID *uint               `json:"campaign_id,omitempty"`
	CreatorID  *uint               `json:"creator_id,omitempty"`
	Status     *ApplicationStatus  `json:"status,omitempty"`
	Statuses   []ApplicationStatus `json:"statuses,omitempty"`
	Platform   *string             `json:"platform,omitempty"`
}
