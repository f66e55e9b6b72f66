package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/martalon/colmena/utils"
	"gorm.io/gorm"
)

// DeliverableStatus represents the status of a deliverable
type DeliverableStatus string

const (
	DeliverableStatusAwaitingPublish  DeliverableStatus = "awaiting_publish"
	DeliverableStatusPublished        DeliverableStatus = "published"
	DeliverableStatusSubmitted        DeliverableStatus = "submitted"
	DeliverableStatusResubmitted      DeliverableStatus = "resubmitted"
	DeliverableStatusUnderReview      DeliverableStatus = "under_review"
	DeliverableStatusChangesRequested DeliverableStatus = "changes_requested"
	DeliverableStatusApproved         DeliverableStatus = "approved"
	DeliverableStatusMetricsPending   DeliverableStatus = "metrics_pending"
	DeliverableStatusCompleted        DeliverableStatus = "completed"
)

// String returns the string representation of the status
func (s DeliverableStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s DeliverableStatus) Valid() bool {
	switch s {
	case DeliverableStatusAwaitingPublish, DeliverableStatusPublished,
		DeliverableStatusSubmitted, DeliverableStatusResubmitted,
		DeliverableStatusUnderReview, DeliverableStatusChangesRequested,
		DeliverableStatusApproved, DeliverableStatusMetricsPending,
		DeliverableStatusCompleted:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if the status can transition to the target status
func (s DeliverableStatus) CanTransitionTo(target DeliverableStatus) bool {
	switch s {
	case DeliverableStatusAwaitingPublish:
		return target == DeliverableStatusPublished
	case DeliverableStatusPublished:
		return target == DeliverableStatusSubmitted ||
			target == DeliverableStatusResubmitted
	case DeliverableStatusSubmitted, DeliverableStatusResubmitted:
		return target == DeliverableStatusUnderReview ||
			target == DeliverableStatusApproved ||
			target == DeliverableStatusMetricsPending ||
			target == DeliverableStatusChangesRequested
	case DeliverableStatusUnderReview:
		return target == DeliverableStatusApproved ||
			target == DeliverableStatusMetricsPending ||
			target == DeliverableStatusChangesRequested
	case DeliverableStatusChangesRequested:
		return target == DeliverableStatusResubmitted ||
			target == DeliverableStatusPublished
	case DeliverableStatusApproved:
		return target == DeliverableStatusMetricsPending
	case DeliverableStatusMetricsPending:
		return target == DeliverableStatusCompleted
	case DeliverableStatusCompleted:
		return false
	default:
		return false
	}
}

// AwaitingReview reports whether the deliverable sits in the brand's queue
func (s DeliverableStatus) AwaitingReview() bool {
	return s == DeliverableStatusSubmitted ||
		s == DeliverableStatusResubmitted ||
		s == DeliverableStatusUnderReview
}

// Scan implements the sql.Scanner interface for DeliverableStatus
func (s *DeliverableStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = DeliverableStatus(v)
	case []byte:
		*s = DeliverableStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into DeliverableStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for DeliverableStatus
func (s DeliverableStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid DeliverableStatus: %s", s)
	}
	return string(s), nil
}

// ReviewNote is one entry in a deliverable's review history
type ReviewNote struct {
	Round     int       `json:"round"`
	Action    string    `json:"action"`
	Note      string    `json:"note,omitempty"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
}

// ReviewNotes is the append-only review history stored as JSONB
type ReviewNotes []ReviewNote

// Value implements the driver.Valuer interface for ReviewNotes
func (n ReviewNotes) Value() (driver.Value, error) {
	if n == nil {
		return json.Marshal(ReviewNotes{})
	}
	return json.Marshal(n)
}

// Scan implements the sql.Scanner interface for ReviewNotes
func (n *ReviewNotes) Scan(value any) error {
	return scanJSONB(value, n, "ReviewNotes")
}

// Deliverable represents the unit of work a confirmed creator owes a
// campaign. Exactly one deliverable exists per confirmed application.
type Deliverable struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	UUID          uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:uk_deliverables_uuid" json:"uuid"`
	ApplicationID uint              `gorm:"not null;uniqueIndex:uk_deliverables_application_id" json:"application_id"`
	CampaignID    uint              `gorm:"not null;index:idx_deliverables_campaign_id" json:"campaign_id"`
	CreatorID     uint              `gorm:"not null;index:idx_deliverables_creator_id" json:"creator_id"`
	Status        DeliverableStatus `gorm:"type:deliverable_status;not null;default:'awaiting_publish';index:idx_deliverables_status" json:"status"`

	// Platform is the primary production platform. RequiredPlatforms is
	// denormalized from the campaign at confirmation time so completion
	// checks never depend on later campaign edits.
	Platform          string         `gorm:"size:32;not null" json:"platform"`
	RequiredPlatforms pq.StringArray `gorm:"type:text[];not null" json:"required_platforms"`

	PostURL *string `gorm:"size:2048" json:"post_url,omitempty"`

	ContentDeadline time.Time  `gorm:"not null;index:idx_deliverables_content_deadline" json:"content_deadline"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`

	ReviewRound int         `gorm:"not null;default:0" json:"review_round"`
	ReviewNotes ReviewNotes `gorm:"type:jsonb;not null" json:"review_notes"`
	ApprovedAt  *time.Time  `json:"approved_at,omitempty"`

	MetricsWindowOpensAt  *time.Time `json:"metrics_window_opens_at,omitempty"`
	MetricsWindowClosesAt *time.Time `json:"metrics_window_closes_at,omitempty"`

	// IsOnTime is frozen at publish time against the content deadline.
	// IsLate is recomputed by the reminder sweep for unpublished work.
	IsOnTime *bool `json:"is_on_time,omitempty"`
	IsLate   bool  `gorm:"not null;default:false" json:"is_late"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	// Relations
	Application *Application `gorm:"foreignKey:ApplicationID;references:ID" json:"application,omitempty"`
	Campaign    *Campaign    `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
	Creator     *Creator     `gorm:"foreignKey:CreatorID;references:ID" json:"creator,omitempty"`
}

// TableName returns the table name for the model
func (Deliverable) TableName() string {
	return "deliverables"
}

// BeforeCreate is called before creating a new record
func (d *Deliverable) BeforeCreate(tx *gorm.DB) error {
	if d.UUID == uuid.Nil {
		d.UUID = uuid.New()
	}
	if d.Status == "" {
		d.Status = DeliverableStatusAwaitingPublish
	}
	if d.ReviewNotes == nil {
		d.ReviewNotes = ReviewNotes{}
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (d *Deliverable) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	d.UpdatedAt = &now
	return nil
}

// HasPublishedURL reports whether a post URL has been recorded
func (d *Deliverable) HasPublishedURL() bool {
	return d.PostURL != nil && *d.PostURL != ""
}

// MetricsWindowOpen reports whether now falls inside the metrics submission
// window
func (d *Deliverable) MetricsWindowOpen(now time.Time) bool {
	if d.MetricsWindowOpensAt == nil || d.MetricsWindowClosesAt == nil {
		return false
	}
	return !now.Before(*d.MetricsWindowOpensAt) && !now.After(*d.MetricsWindowClosesAt)
}

// DeliverableFilter represents filter criteria for deliverables
type DeliverableFilter struct {
	ID             *uint               `json:"id,omitempty"`
	UUID           *uuid.UUID          `json:"uuid,omitempty"`
	ApplicationID  *uint               `json:"application_id,omitempty"`
	CampaignID     *uint               `json:"campaign_id,omitempty"`
	CreatorID      *uint               `json:"creator_id,omitempty"`
	Status         *DeliverableStatus  `json:"status,omitempty"`
	Statuses       []DeliverableStatus `json:"statuses,omitempty"`
	DeadlineBefore *time.Time          `json:"deadline_before,omitempty"`
	DeadlineAfter  *time.Time          `json:"deadline_after,omitempty"`
}
