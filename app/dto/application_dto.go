package dto

import (
	"time"
)

// ApplyRequest represents a creator's application to a campaign
type ApplyRequest struct {
	CampaignUUID string  `json:"-"`
	CreatorID    uint    `json:"-"`
	Platform     *string `json:"platform,omitempty" validate:"omitempty,oneof=instagram tiktok youtube twitter twitch"`
	Motivation   *string `json:"motivation,omitempty" validate:"omitempty,max=2000"`
}

// ApplyResponse represents the response to a new application
type ApplyResponse struct {
	Message   string `json:"message"`
	UUID      string `json:"uuid"`
	Status    string `json:"status"`
	Platform  string `json:"platform"`
	AppliedAt string `json:"applied_at"`
}

// ConfirmApplicationRequest represents the brand confirming an applicant
type ConfirmApplicationRequest struct {
	ApplicationUUID string `json:"-"`
	BrandID         uint   `json:"-"`
}

// ConfirmApplicationResponse represents the response to a confirmation.
// Confirmation reserves a slot and creates the deliverable in one step.
type ConfirmApplicationResponse struct {
	Message         string    `json:"message"`
	Status          string    `json:"status"`
	DeliverableUUID string    `json:"deliverable_uuid"`
	ContentDeadline time.Time `json:"content_deadline"`
}

// RejectApplicationRequest represents the brand rejecting an applicant
type RejectApplicationRequest struct {
	ApplicationUUID string  `json:"-"`
	BrandID         uint    `json:"-"`
	Reason          *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// RejectApplicationResponse represents the response to a rejection
type RejectApplicationResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// CancelApplicationRequest represents a creator withdrawing an application
type CancelApplicationRequest struct {
	ApplicationUUID string `json:"-"`
	CreatorID       uint   `json:"-"`
}

// CancelApplicationResponse represents the response to a cancellation
type CancelApplicationResponse struct {
	Message       string `json:"message"`
	Status        string `json:"status"`
	SlotsReleased bool   `json:"slots_released"`
}

// ApplicationDTO represents an application in responses
type ApplicationDTO struct {
	UUID            string     `json:"uuid"`
	CampaignUUID    string     `json:"campaign_uuid,omitempty"`
	Status          string     `json:"status"`
	Platform        string     `json:"platform"`
	Motivation      *string    `json:"motivation,omitempty"`
	AppliedAt       time.Time  `json:"applied_at"`
	ConfirmedAt     *time.Time `json:"confirmed_at,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	AutoRejected    bool       `json:"auto_rejected"`
}

// ListApplicationsRequest represents the brand-facing application listing request
type ListApplicationsRequest struct {
	CampaignUUID string  `json:"-"`
	BrandID      uint    `json:"-"`
	Status       *string `json:"status,omitempty" validate:"omitempty,oneof=applied shortlisted confirmed rejected cancelled"`
	Page         int     `json:"page" validate:"gte=1"`
	PageSize     int     `json:"page_size" validate:"gte=1,lte=100"`
}

// ListApplicationsResponse represents the brand-facing application listing
type ListApplicationsResponse struct {
	Message      string           `json:"message"`
	Applications []ApplicationDTO `json:"applications"`
	Total        int64            `json:"total"`
}
