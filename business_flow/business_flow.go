// Package businessflow contains the business logic for the application.
package businessflow

import (
	"context"
	"fmt"

	"github.com/martalon/colmena/app/dto"
	"github.com/martalon/colmena/config"
	"github.com/martalon/colmena/models"
	"github.com/martalon/colmena/repository"
)

// Context keys used to pass request-scoped values into flows
const (
	RequestIDKey  = "X-Request-ID"
	EndpointKey   = "endpoint"
	CancelFuncKey = "cancel_func"
)

// ClientMetadata holds all client-related information for audit logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	DeviceInfo map[string]string `json:"device_info,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		DeviceInfo: make(map[string]string),
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// auditRefs carries the entity references attached to an audit entry
type auditRefs struct {
	CampaignID    *uint
	ApplicationID *uint
	DeliverableID *uint
}

// writeAuditLog persists a lifecycle audit entry. Failures are the caller's
// call to swallow; audit writes never abort a business operation.
func writeAuditLog(ctx context.Context, auditRepo repository.AuditLogRepository, actorType string, actorID *uint, action, description string, success bool, errorMsg *string, metadata *ClientMetadata, refs auditRefs) error {
	ipAddress := ""
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		ActorType:     actorType,
		ActorID:       actorID,
		Action:        action,
		CampaignID:    refs.CampaignID,
		ApplicationID: refs.ApplicationID,
		DeliverableID: refs.DeliverableID,
		Description:   &description,
		Success:       success,
		IPAddress:     &ipAddress,
		UserAgent:     &userAgent,
		ErrorMessage:  errorMsg,
	}

	// Extract request ID from context if available
	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	return auditRepo.Save(ctx, audit)
}

// redisKey prefixes a cache key with the configured namespace
func redisKey(cfg config.CacheConfig, key string) string {
	return cfg.RedisPrefix + key
}

// getCampaignByUUID resolves a campaign or returns ErrCampaignNotFound
func getCampaignByUUID(ctx context.Context, repo repository.CampaignRepository, uuid string) (*models.Campaign, error) {
	campaign, err := repo.ByUUID(ctx, uuid)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup campaign: %w", err)
	}
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}
	return campaign, nil
}

// getCreator resolves an active creator or returns an error
func getCreator(ctx context.Context, repo repository.CreatorRepository, id uint) (*models.Creator, error) {
	creator, err := repo.ByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup creator: %w", err)
	}
	if creator == nil {
		return nil, ErrCreatorNotFound
	}
	if !creator.IsActive {
		return nil, ErrAccountInactive
	}
	return creator, nil
}

// getBrand resolves an active brand or returns an error
func getBrand(ctx context.Context, repo repository.BrandRepository, id uint) (*models.Brand, error) {
	brand, err := repo.ByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup brand: %w", err)
	}
	if brand == nil {
		return nil, ErrBrandNotFound
	}
	if !brand.IsActive {
		return nil, ErrAccountInactive
	}
	return brand, nil
}

// ToCampaignDTO converts a campaign model to its response shape
func ToCampaignDTO(campaign models.Campaign) dto.CampaignDTO {
	out := dto.CampaignDTO{
		UUID:   campaign.UUID.String(),
		Title:  campaign.Title,
		Status: string(campaign.Status),
		Slots: dto.SlotsDTO{
			TotalLoaded: campaign.SlotsTotalLoaded,
			Filled:      campaign.SlotsFilled,
			Available:   campaign.SlotsAvailable,
		},
		Requirements: dto.RequirementsDTO{
			Platforms:        campaign.Requirements.Platforms,
			MinFollowers:     campaign.Requirements.MinFollowers,
			ContentFormat:    campaign.Requirements.ContentFormat,
			MandatoryTag:     campaign.Requirements.MandatoryTag,
			MandatoryMention: campaign.Requirements.MandatoryMention,
			Rules:            campaign.Requirements.Rules,
		},
		Canje: dto.CanjeDTO{
			Description:    campaign.Canje.Description,
			Value:          campaign.Canje.RewardValue,
			DeliveryMethod: campaign.Canje.DeliveryMethod,
		},
		Timeline: dto.TimelineDTO{
			ApplicationsStart: campaign.Timeline.ApplicationsStart,
			ApplicationsEnd:   campaign.Timeline.ApplicationsEnd,
			PublishStart:      campaign.Timeline.PublishStart,
			PublishEnd:        campaign.Timeline.PublishEnd,
			DeliverySLAHours:  campaign.Timeline.DeliverySLAHours,
		},
		VisibleToCreators: campaign.VisibleToCreators,
		CreatedAt:         campaign.CreatedAt,
		UpdatedAt:         campaign.UpdatedAt,
	}

	if campaign.Contract.IsActive {
		out.Contract = &dto.ContractDTO{
			IsActive:            campaign.Contract.IsActive,
			StartDate:           campaign.Contract.StartDate,
			EndDate:             campaign.Contract.EndDate,
			MonthlyDeliverables: campaign.Contract.MonthlyDeliverables,
			NextReloadDate:      campaign.Contract.NextReloadDate,
		}
	}

	return out
}

// ToApplicationDTO converts an application model to its response shape
func ToApplicationDTO(application models.Application) dto.ApplicationDTO {
	out := dto.ApplicationDTO{
		UUID:            application.UUID.String(),
		Status:          string(application.Status),
		Platform:        application.Platform,
		Motivation:      application.Motivation,
		AppliedAt:       application.AppliedAt,
		ConfirmedAt:     application.ConfirmedAt,
		RejectedAt:      application.RejectedAt,
		RejectionReason: application.RejectionReason,
		AutoRejected:    application.AutoRejected,
	}
	if application.Campaign != nil {
		out.CampaignUUID = application.Campaign.UUID.String()
	}
	return out
}

// ToDeliverableDTO converts a deliverable model to its response shape
func ToDeliverableDTO(deliverable models.Deliverable) dto.DeliverableDTO {
	notes := make([]dto.ReviewNoteDTO, 0, len(deliverable.ReviewNotes))
	for _, n := range deliverable.ReviewNotes {
		notes = append(notes, dto.ReviewNoteDTO{
			Round:     n.Round,
			Action:    n.Action,
			Note:      n.Note,
			Author:    n.Author,
			Timestamp: n.Timestamp,
		})
	}

	out := dto.DeliverableDTO{
		UUID:                  deliverable.UUID.String(),
		Status:                string(deliverable.Status),
		Platform:              deliverable.Platform,
		RequiredPlatforms:     deliverable.RequiredPlatforms,
		PostURL:               deliverable.PostURL,
		ContentDeadline:       deliverable.ContentDeadline,
		PublishedAt:           deliverable.PublishedAt,
		SubmittedAt:           deliverable.SubmittedAt,
		ReviewRound:           deliverable.ReviewRound,
		ReviewNotes:           notes,
		ApprovedAt:            deliverable.ApprovedAt,
		MetricsWindowOpensAt:  deliverable.MetricsWindowOpensAt,
		MetricsWindowClosesAt: deliverable.MetricsWindowClosesAt,
		IsOnTime:              deliverable.IsOnTime,
		IsLate:                deliverable.IsLate,
	}
	if deliverable.Campaign != nil {
		out.CampaignUUID = deliverable.Campaign.UUID.String()
	}
	return out
}

// normalizePaging applies defaults and bounds for page/page_size
func normalizePaging(page, pageSize int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = 20
	}
	if page < 1 {
		return 0, 0, ErrInvalidPage
	}
	if pageSize < 1 || pageSize > 100 {
		return 0, 0, ErrInvalidPageSize
	}
	return page, pageSize, nil
}
