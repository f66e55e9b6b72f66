package dto

import (
	"time"
)

// PublishDeliverableRequest represents a creator recording the live post URL
type PublishDeliverableRequest struct {
	DeliverableUUID string `json:"-"`
	CreatorID       uint   `json:"-"`
	PostURL         string `json:"post_url" validate:"required,url,max=2048"`
}

// PublishDeliverableResponse represents the response to publishing
type PublishDeliverableResponse struct {
	Message     string `json:"message"`
	Status      string `json:"status"`
	IsOnTime    bool   `json:"is_on_time"`
	PublishedAt string `json:"published_at"`
}

// SubmitDeliverableRequest represents a creator submitting for brand review
type SubmitDeliverableRequest struct {
	DeliverableUUID string `json:"-"`
	CreatorID       uint   `json:"-"`
}

// SubmitDeliverableResponse represents the response to a submission
type SubmitDeliverableResponse struct {
	Message     string `json:"message"`
	Status      string `json:"status"`
	ReviewRound int    `json:"review_round"`
}

// ReviewDeliverableRequest represents the brand's review decision
type ReviewDeliverableRequest struct {
	DeliverableUUID string  `json:"-"`
	BrandID         uint    `json:"-"`
	Action          string  `json:"action" validate:"required,oneof=approve request_changes"`
	Note            *string `json:"note,omitempty" validate:"omitempty,max=2000"`
}

// ReviewDeliverableResponse represents the response to a review decision
type ReviewDeliverableResponse struct {
	Message               string     `json:"message"`
	Status                string     `json:"status"`
	ReviewRound           int        `json:"review_round"`
	MetricsWindowOpensAt  *time.Time `json:"metrics_window_opens_at,omitempty"`
	MetricsWindowClosesAt *time.Time `json:"metrics_window_closes_at,omitempty"`
}

// ReviewNoteDTO represents one review history entry in responses
type ReviewNoteDTO struct {
	Round     int       `json:"round"`
	Action    string    `json:"action"`
	Note      string    `json:"note,omitempty"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
}

// DeliverableDTO represents a deliverable in responses
type DeliverableDTO struct {
	UUID                  string          `json:"uuid"`
	CampaignUUID          string          `json:"campaign_uuid,omitempty"`
	Status                string          `json:"status"`
	Platform              string          `json:"platform"`
	RequiredPlatforms     []string        `json:"required_platforms"`
	PostURL               *string         `json:"post_url,omitempty"`
	ContentDeadline       time.Time       `json:"content_deadline"`
	PublishedAt           *time.Time      `json:"published_at,omitempty"`
	SubmittedAt           *time.Time      `json:"submitted_at,omitempty"`
	ReviewRound           int             `json:"review_round"`
	ReviewNotes           []ReviewNoteDTO `json:"review_notes"`
	ApprovedAt            *time.Time      `json:"approved_at,omitempty"`
	MetricsWindowOpensAt  *time.Time      `json:"metrics_window_opens_at,omitempty"`
	MetricsWindowClosesAt *time.Time      `json:"metrics_window_closes_at,omitempty"`
	IsOnTime              *bool           `json:"is_on_time,omitempty"`
	IsLate                bool            `json:"is_late"`
}

// GetDeliverableRequest represents the request to get a deliverable
type GetDeliverableRequest struct {
	DeliverableUUID string `json:"-"`
}

// GetDeliverableResponse represents the response to get a deliverable
type GetDeliverableResponse struct {
	Message     string         `json:"message"`
	Deliverable DeliverableDTO `json:"deliverable"`
}
