package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/martalon/colmena/utils"
	"gorm.io/gorm"
)

// CampaignStatus represents the status of a campaign
type CampaignStatus string

const (
	CampaignStatusDraft        CampaignStatus = "draft"
	CampaignStatusLive         CampaignStatus = "live"
	CampaignStatusInProduction CampaignStatus = "in_production"
	CampaignStatusClosed       CampaignStatus = "closed"
	CampaignStatusCompleted    CampaignStatus = "completed"
)

// String returns the string representation of the status
func (s CampaignStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusLive, CampaignStatusInProduction,
		CampaignStatusClosed, CampaignStatusCompleted:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if the status can transition to the target status
func (s CampaignStatus) CanTransitionTo(target CampaignStatus) bool {
	switch s {
	case CampaignStatusDraft:
		return target == CampaignStatusLive || target == CampaignStatusClosed
	case CampaignStatusLive:
		return target == CampaignStatusInProduction || target == CampaignStatusClosed
	case CampaignStatusInProduction:
		return target == CampaignStatusClosed || target == CampaignStatusCompleted
	case CampaignStatusClosed:
		return target == CampaignStatusCompleted
	case CampaignStatusCompleted:
		return false
	default:
		return false
	}
}

// AcceptsApplications reports whether creators may still apply in this status
func (s CampaignStatus) AcceptsApplications() bool {
	return s == CampaignStatusLive || s == CampaignStatusInProduction
}

// Scan implements the sql.Scanner interface for CampaignStatus
func (s *CampaignStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CampaignStatus(v)
	case []byte:
		*s = CampaignStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignStatus
func (s CampaignStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CampaignStatus: %s", s)
	}
	return string(s), nil
}

// scanJSONB is the shared scanner for the campaign JSONB document types
func scanJSONB(value any, dst any, typeName string) error {
	if value == nil {
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into %s", value, typeName)
	}

	return json.Unmarshal(bytes, dst)
}

// CampaignRequirements describes what the brand expects from applicants
type CampaignRequirements struct {
	Platforms        []string `json:"platforms,omitempty"`
	MinFollowers     int64    `json:"min_followers,omitempty"`
	ContentFormat    *string  `json:"content_format,omitempty"`
	MandatoryTag     *string  `json:"mandatory_tag,omitempty"`
	MandatoryMention *string  `json:"mandatory_mention,omitempty"`
	Rules            []string `json:"rules,omitempty"`
}

// Value implements the driver.Valuer interface for CampaignRequirements
func (r CampaignRequirements) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements the sql.Scanner interface for CampaignRequirements
func (r *CampaignRequirements) Scan(value any) error {
	return scanJSONB(value, r, "CampaignRequirements")
}

// HasPlatform reports whether platform is one of the required platforms
func (r CampaignRequirements) HasPlatform(platform string) bool {
	for _, p := range r.Platforms {
		if p == platform {
			return true
		}
	}
	return false
}

// CanjeSpec describes the in-kind reward a creator receives per deliverable.
// The monetary field is named RewardValue so the type can still satisfy
// driver.Valuer through its Value method.
type CanjeSpec struct {
	Description    *string `json:"description,omitempty"`
	RewardValue    *uint64 `json:"value,omitempty"`
	DeliveryMethod *string `json:"delivery_method,omitempty"`
}

// Value implements the driver.Valuer interface for CanjeSpec
func (c CanjeSpec) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements the sql.Scanner interface for CanjeSpec
func (c *CanjeSpec) Scan(value any) error {
	return scanJSONB(value, c, "CanjeSpec")
}

// CampaignTimeline holds the campaign's scheduling windows
type CampaignTimeline struct {
	ApplicationsStart *time.Time `json:"applications_start,omitempty"`
	ApplicationsEnd   *time.Time `json:"applications_end,omitempty"`
	PublishStart      *time.Time `json:"publish_start,omitempty"`
	PublishEnd        *time.Time `json:"publish_end,omitempty"`
	DeliverySLAHours  int        `json:"delivery_sla_hours,omitempty"`
}

// Value implements the driver.Valuer interface for CampaignTimeline
func (t CampaignTimeline) Value() (driver.Value, error) {
	return json.Marshal(t)
}

// Scan implements the sql.Scanner interface for CampaignTimeline
func (t *CampaignTimeline) Scan(value any) error {
	return scanJSONB(value, t, "CampaignTimeline")
}

// ContractTerms holds the brand's recurring slot-reload commitment
type ContractTerms struct {
	IsActive            bool       `json:"is_active"`
	StartDate           *time.Time `json:"start_date,omitempty"`
	EndDate             *time.Time `json:"end_date,omitempty"`
	MonthlyDeliverables int        `json:"monthly_deliverables,omitempty"`
	NextReloadDate      *time.Time `json:"next_reload_date,omitempty"`
}

// Value implements the driver.Valuer interface for ContractTerms
func (c ContractTerms) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements the sql.Scanner interface for ContractTerms
func (c *ContractTerms) Scan(value any) error {
	return scanJSONB(value, c, "ContractTerms")
}

// Expired reports whether the contract's end date has passed at now
func (c ContractTerms) Expired(now time.Time) bool {
	return c.EndDate != nil && now.After(*c.EndDate)
}

// Campaign represents a brand-funded engagement with a bounded number of
// creator slots. The slot counters are plain columns so capacity changes go
// through single conditional UPDATEs in the repository layer, never
// read-modify-write in application code.
type Campaign struct {
	ID      uint           `gorm:"primaryKey" json:"id"`
	UUID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_campaigns_uuid" json:"uuid"`
	BrandID uint           `gorm:"not null;index:idx_campaigns_brand_id" json:"brand_id"`
	Title   string         `gorm:"size:255;not null" json:"title"`
	Status  CampaignStatus `gorm:"type:campaign_status;not null;default:'draft';index:idx_campaigns_status" json:"status"`

	// Invariant: SlotsAvailable == SlotsTotalLoaded - SlotsFilled, never negative.
	SlotsTotalLoaded int `gorm:"not null;default:0" json:"slots_total_loaded"`
	SlotsFilled      int `gorm:"not null;default:0" json:"slots_filled"`
	SlotsAvailable   int `gorm:"not null;default:0" json:"slots_available"`

	Requirements      CampaignRequirements `gorm:"type:jsonb;not null" json:"requirements"`
	Canje             CanjeSpec            `gorm:"type:jsonb;not null" json:"canje"`
	Timeline          CampaignTimeline     `gorm:"type:jsonb;not null" json:"timeline"`
	Contract          ContractTerms        `gorm:"type:jsonb;not null" json:"contract"`
	VisibleToCreators bool                 `gorm:"not null;default:false;index:idx_campaigns_visible" json:"visible_to_creators"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_campaigns_created_at" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	// Relations
	Brand *Brand `gorm:"foreignKey:BrandID;references:ID" json:"brand,omitempty"`
}

// TableName returns the table name for the model
func (Campaign) TableName() string {
	return "campaigns"
}

// BeforeCreate is called before creating a new record
func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CampaignStatusDraft
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Campaign) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// SlotInvariantHolds reports whether the slot counters are consistent
func (c *Campaign) SlotInvariantHolds() bool {
	return c.SlotsAvailable >= 0 &&
		c.SlotsFilled >= 0 &&
		c.SlotsAvailable == c.SlotsTotalLoaded-c.SlotsFilled
}

// InApplicationsWindow reports whether now falls inside the applications
// window. A missing bound leaves that side open.
func (c *Campaign) InApplicationsWindow(now time.Time) bool {
	if c.Timeline.ApplicationsStart != nil && now.Before(*c.Timeline.ApplicationsStart) {
		return false
	}
	if c.Timeline.ApplicationsEnd != nil && now.After(*c.Timeline.ApplicationsEnd) {
		return false
	}
	return true
}

// DeliverySLA returns the content-production deadline offset, falling back to
// the platform default when the campaign does not configure one.
func (c *Campaign) DeliverySLA() time.Duration {
	if c.Timeline.DeliverySLAHours > 0 {
		return time.Duration(c.Timeline.DeliverySLAHours) * time.Hour
	}
	return utils.DefaultDeliverySLA
}

// CampaignFilter represents filter criteria for campaigns
type CampaignFilter struct {
	ID                *uint            `json:"id,omitempty"`
	UUID              *uuid.UUID       `json:"uuid,omitempty"`
	BrandID           *uint            `json:"brand_id,omitempty"`
	Status            *CampaignStatus  `json:"status,omitempty"`
	Statuses          []CampaignStatus `json:"statuses,omitempty"`
	VisibleToCreators *bool            `json:"visible_to_creators,omitempty"`
	ContractActive    *bool            `json:"contract_active,omitempty"`
	CreatedAfter      *time.Time       `json:"created_after,omitempty"`
	CreatedBefore     *time.Time       `json:"created_before,omitempty"`
}
