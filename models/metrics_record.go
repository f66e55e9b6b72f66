package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/martalon/colmena/utils"
	"gorm.io/gorm"
)

// MetricsRecord holds the performance numbers for one deliverable on one
// platform. The (deliverable_id, platform) pair is unique: a multi-platform
// submission produces one record per platform, never a combined record.
type MetricsRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UUID          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_metrics_records_uuid" json:"uuid"`
	DeliverableID uint      `gorm:"not null;uniqueIndex:uk_metrics_deliverable_platform,priority:1;index:idx_metrics_deliverable_id" json:"deliverable_id"`
	CreatorID     uint      `gorm:"not null;index:idx_metrics_creator_id" json:"creator_id"`
	CampaignID    uint      `gorm:"not null;index:idx_metrics_campaign_id" json:"campaign_id"`
	Platform      string    `gorm:"size:32;not null;uniqueIndex:uk_metrics_deliverable_platform,priority:2" json:"platform"`

	Views    uint64 `gorm:"not null;default:0" json:"views"`
	Likes    uint64 `gorm:"not null;default:0" json:"likes"`
	Comments uint64 `gorm:"not null;default:0" json:"comments"`
	Shares   uint64 `gorm:"not null;default:0" json:"shares"`
	Saves    uint64 `gorm:"not null;default:0" json:"saves"`

	// EngagementRate is derived from the counters at write time.
	EngagementRate float64 `gorm:"not null;default:0" json:"engagement_rate"`

	AIExtracted      bool     `gorm:"not null;default:false" json:"ai_extracted"`
	AIConfidence     *float64 `json:"ai_confidence,omitempty"`
	ManuallyVerified bool     `gorm:"not null;default:false" json:"manually_verified"`

	EvidenceCount int `gorm:"not null;default:0" json:"evidence_count"`

	SubmittedAt time.Time  `gorm:"not null" json:"submitted_at"`
	CreatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`

	// Relations
	Deliverable *Deliverable `gorm:"foreignKey:DeliverableID;references:ID" json:"deliverable,omitempty"`
	Creator     *Creator     `gorm:"foreignKey:CreatorID;references:ID" json:"creator,omitempty"`
	Campaign    *Campaign    `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
}

// TableName returns the table name for the model
func (MetricsRecord) TableName() string {
	return "metrics_records"
}

// BeforeCreate is called before creating a new record
func (m *MetricsRecord) BeforeCreate(tx *gorm.DB) error {
	if m.UUID == uuid.Nil {
		m.UUID = uuid.New()
	}
	if m.SubmittedAt.IsZero() {
		m.SubmittedAt = utils.UTCNow()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = utils.UTCNow()
	}
	m.EngagementRate = m.ComputeEngagementRate()
	return nil
}

// BeforeUpdate is called before updating a record
func (m *MetricsRecord) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	m.UpdatedAt = &now
	m.EngagementRate = m.ComputeEngagementRate()
	return nil
}

// ComputeEngagementRate returns (likes+comments+shares+saves)/views, or 0
// when there are no views
func (m *MetricsRecord) ComputeEngagementRate() float64 {
	if m.Views == 0 {
		return 0
	}
	interactions := m.Likes + m.Comments + m.Shares + m.Saves
	return float64(interactions) / float64(m.Views)
}

// MetricsRecordFilter represents filter criteria for metrics records
type MetricsRecordFilter struct {
	ID            *uint      `json:"id,omitempty"`
	UUID          *uuid.UUID `json:"uuid,omitempty"`
	DeliverableID *uint      `json:"deliverable_id,omitempty"`
	CreatorID     *uint      `json:"creator_id,omitempty"`
	CampaignID    *uint      `json:"campaign_id,omitempty"`
	Platform      *string    `json:"platform,omitempty"`
	AIExtracted   *bool      `json:"ai_extracted,omitempty"`
}
