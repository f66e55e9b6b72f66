package dto

import (
	"time"
)

// CanjeDTO describes the in-kind reward offered per deliverable
type CanjeDTO struct {
	Description    *string `json:"description,omitempty"`
	Value          *uint64 `json:"value,omitempty"`
	DeliveryMethod *string `json:"delivery_method,omitempty"`
}

// RequirementsDTO describes the brand's expectations for applicants
type RequirementsDTO struct {
	Platforms        []string `json:"platforms" validate:"required,min=1,dive,oneof=instagram tiktok youtube twitter twitch"`
	MinFollowers     int64    `json:"min_followers,omitempty" validate:"gte=0"`
	ContentFormat    *string  `json:"content_format,omitempty"`
	MandatoryTag     *string  `json:"mandatory_tag,omitempty"`
	MandatoryMention *string  `json:"mandatory_mention,omitempty"`
	Rules            []string `json:"rules,omitempty"`
}

// TimelineDTO describes the campaign scheduling windows
type TimelineDTO struct {
	ApplicationsStart *time.Time `json:"applications_start,omitempty"`
	ApplicationsEnd   *time.Time `json:"applications_end,omitempty"`
	PublishStart      *time.Time `json:"publish_start,omitempty"`
	PublishEnd        *time.Time `json:"publish_end,omitempty"`
	DeliverySLAHours  int        `json:"delivery_sla_hours,omitempty" validate:"gte=0"`
}

// ContractDTO describes the recurring slot-reload commitment
type ContractDTO struct {
	IsActive            bool       `json:"is_active"`
	StartDate           *time.Time `json:"start_date,omitempty"`
	EndDate             *time.Time `json:"end_date,omitempty"`
	MonthlyDeliverables int        `json:"monthly_deliverables,omitempty" validate:"gte=0"`
	NextReloadDate      *time.Time `json:"next_reload_date,omitempty"`
}

// SlotsDTO reports the campaign's capacity counters
type SlotsDTO struct {
	TotalLoaded int `json:"total_loaded"`
	Filled      int `json:"filled"`
	Available   int `json:"available"`
}

// CreateCampaignRequest represents the request to create a new campaign
type CreateCampaignRequest struct {
	BrandID      uint            `json:"-"`
	Title        string          `json:"title" validate:"required,min=3,max=255"`
	InitialSlots int             `json:"initial_slots" validate:"gte=0"`
	Requirements RequirementsDTO `json:"requirements" validate:"required"`
	Canje        CanjeDTO        `json:"canje"`
	Timeline     TimelineDTO     `json:"timeline"`
	Contract     *ContractDTO    `json:"contract,omitempty"`
}

// CreateCampaignResponse represents the response to create a new campaign
type CreateCampaignResponse struct {
	Message   string `json:"message"`
	ID        uint   `json:"id"`
	UUID      string `json:"uuid"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// PublishCampaignRequest represents the request to take a draft campaign live
type PublishCampaignRequest struct {
	UUID    string `json:"-"`
	BrandID uint   `json:"-"`
}

// PublishCampaignResponse represents the response to publish a campaign
type PublishCampaignResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// CloseCampaignRequest represents the request to close a campaign
type CloseCampaignRequest struct {
	UUID    string  `json:"-"`
	BrandID uint    `json:"-"`
	Reason  *string `json:"reason,omitempty"`
}

// CloseCampaignResponse represents the response to close a campaign
type CloseCampaignResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// GetCampaignRequest represents the request to get a campaign
type GetCampaignRequest struct {
	UUID string `json:"-"`
}

// CampaignDTO represents a campaign in responses
type CampaignDTO struct {
	UUID              string          `json:"uuid"`
	Title             string          `json:"title"`
	Status            string          `json:"status"`
	Slots             SlotsDTO        `json:"slots"`
	Requirements      RequirementsDTO `json:"requirements"`
	Canje             CanjeDTO        `json:"canje"`
	Timeline          TimelineDTO     `json:"timeline"`
	Contract          *ContractDTO    `json:"contract,omitempty"`
	VisibleToCreators bool            `json:"visible_to_creators"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         *time.Time      `json:"updated_at,omitempty"`
}

// GetCampaignResponse represents the response to get a campaign
type GetCampaignResponse struct {
	Message  string      `json:"message"`
	Campaign CampaignDTO `json:"campaign"`
}

// ListOpenCampaignsRequest represents the creator-facing campaign listing request
type ListOpenCampaignsRequest struct {
	Page     int `json:"page" validate:"gte=1"`
	PageSize int `json:"page_size" validate:"gte=1,lte=100"`
}

// ListOpenCampaignsResponse represents the creator-facing campaign listing
type ListOpenCampaignsResponse struct {
	Message   string        `json:"message"`
	Campaigns []CampaignDTO `json:"campaigns"`
	Total     int64         `json:"total"`
}
