// Package businessflow contains the core business logic and use cases for campaign workflows
package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/martalon/colmena/app/dto"
	"github.com/martalon/colmena/app/services"
	"github.com/martalon/colmena/config"
	"github.com/martalon/colmena/models"
	"github.com/martalon/colmena/repository"
	"github.com/martalon/colmena/utils"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// CampaignFlow handles the campaign business logic
type CampaignFlow interface {
	CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CreateCampaignResponse, error)
	PublishCampaign(ctx context.Context, req *dto.PublishCampaignRequest, metadata *ClientMetadata) (*dto.PublishCampaignResponse, error)
	CloseCampaign(ctx context.Context, req *dto.CloseCampaignRequest, metadata *ClientMetadata) (*dto.CloseCampaignResponse, error)
	GetCampaign(ctx context.Context, req *dto.GetCampaignRequest, metadata *ClientMetadata) (*dto.GetCampaignResponse, error)
	ListOpenCampaigns(ctx context.Context, req *dto.ListOpenCampaignsRequest, metadata *ClientMetadata) (*dto.ListOpenCampaignsResponse, error)
}

// CampaignFlowImpl implements the campaign business flow
type CampaignFlowImpl struct {
	campaignRepo repository.CampaignRepository
	brandRepo    repository.BrandRepository
	auditRepo    repository.AuditLogRepository
	notifier     services.NotificationService
	cacheConfig  *config.CacheConfig
	rc           *redis.Client
	db           *gorm.DB
}

// NewCampaignFlow creates a new campaign flow instance
func NewCampaignFlow(
	campaignRepo repository.CampaignRepository,
	brandRepo repository.BrandRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
	rc *redis.Client,
	notifier services.NotificationService,
	cacheConfig *config.CacheConfig,
) CampaignFlow {
	return &CampaignFlowImpl{
		campaignRepo: campaignRepo,
		brandRepo:    brandRepo,
		auditRepo:    auditRepo,
		notifier:     notifier,
		cacheConfig:  cacheConfig,
		rc:           rc,
		db:           db,
	}
}

// CreateCampaign handles the complete campaign creation process. New
// campaigns start as drafts, invisible to creators, with the initial slot
// load fully available.
func (s *CampaignFlowImpl) CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CreateCampaignResponse, error) {
	if err := s.validateCreateCampaignRequest(req); err != nil {
		return nil, NewBusinessError("CAMPAIGN_VALIDATION_FAILED", "Campaign validation failed", err)
	}

	brand, err := getBrand(ctx, s.brandRepo, req.BrandID)
	if err != nil {
		return nil, NewBusinessError("BRAND_LOOKUP_FAILED", "Failed to lookup brand", err)
	}

	var campaign *models.Campaign

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		campaign = s.buildCampaign(req, brand)
		return s.campaignRepo.Save(txCtx, campaign)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Campaign creation failed: %s", err.Error())
		_ = writeAuditLog(ctx, s.auditRepo, models.AuditActorBrand, &brand.ID, models.AuditActionCampaignCreated, errMsg, false, &errMsg, metadata, auditRefs{})

		return nil, NewBusinessError("CAMPAIGN_CREATION_FAILED", "Campaign creation failed", err)
	}

	msg := fmt.Sprintf("Campaign created: %s", campaign.UUID.String())
	_ = writeAuditLog(ctx, s.auditRepo, models.AuditActorBrand, &brand.ID, models.AuditActionCampaignCreated, msg, true, nil, metadata, auditRefs{CampaignID: &campaign.ID})

	return &dto.CreateCampaignResponse{
		Message:   "Campaign created successfully",
		ID:        campaign.ID,
		UUID:      campaign.UUID.String(),
		Status:    string(campaign.Status),
		CreatedAt: campaign.CreatedAt.Format(time.RFC3339),
	}, nil
}

// PublishCampaign takes a draft campaign live and makes it visible to creators
func (s *CampaignFlowImpl) PublishCampaign(ctx context.Context, req *dto.PublishCampaignRequest, metadata *ClientMetadata) (*dto.PublishCampaignResponse, error) {
	brand, campaign, err := s.getOwnedCampaign(ctx, req.UUID, req.BrandID)
	if err != nil {
		return nil, err
	}

	if !campaign.Status.CanTransitionTo(models.CampaignStatusLive) {
		return nil, NewBusinessError("INVALID_STATUS_TRANSITION", "Campaign cannot be published in its current status", ErrInvalidStatusTransition)
	}

	campaign.Status = models.CampaignStatusLive
	campaign.VisibleToCreators = true
	if err := s.campaignRepo.Update(ctx, *campaign); err != nil {
		return nil, NewBusinessError("CAMPAIGN_PUBLISH_FAILED", "Campaign publish failed", err)
	}

	s.invalidateOpenCampaignsCache(ctx)

	msg := fmt.Sprintf("Campaign published: %s", campaign.UUID.String())
	_ = writeAuditLog(ctx, s.auditRepo, models.AuditActorBrand, &brand.ID, models.AuditActionCampaignPublished, msg, true, nil, metadata, auditRefs{CampaignID: &campaign.ID})

	return &dto.PublishCampaignResponse{
		Message: "Campaign is now live",
		Status:  string(models.CampaignStatusLive),
	}, nil
}

// CloseCampaign closes a campaign to new applications
func (s *CampaignFlowImpl) CloseCampaign(ctx context.Context, req *dto.CloseCampaignRequest, metadata *ClientMetadata) (*dto.CloseCampaignResponse, error) {
	brand, campaign, err := s.getOwnedCampaign(ctx, req.UUID, req.BrandID)
	if err != nil {
		return nil, err
	}

	if !campaign.Status.CanTransitionTo(models.CampaignStatusClosed) {
		return nil, NewBusinessError("INVALID_STATUS_TRANSITION", "Campaign cannot be closed in its current status", ErrInvalidStatusTransition)
	}

	campaign.Status = models.CampaignStatusClosed
	campaign.VisibleToCreators = false
	if err := s.campaignRepo.Update(ctx, *campaign); err != nil {
		return nil, NewBusinessError("CAMPAIGN_CLOSE_FAILED", "Campaign close failed", err)
	}

	s.invalidateOpenCampaignsCache(ctx)

	reason := ""
	if req.Reason != nil {
		reason = *req.Reason
	}
	msg := fmt.Sprintf("Campaign closed: %s %s", campaign.UUID.String(), reason)
	_ = writeAuditLog(ctx, s.auditRepo, models.AuditActorBrand, &brand.ID, models.AuditActionCampaignClosed, msg, true, nil, metadata, auditRefs{CampaignID: &campaign.ID})

	return &dto.CloseCampaignResponse{
		Message: "Campaign closed",
		Status:  string(models.CampaignStatusClosed),
	}, nil
}

// GetCampaign returns a campaign by UUID
func (s *CampaignFlowImpl) GetCampaign(ctx context.Context, req *dto.GetCampaignRequest, metadata *ClientMetadata) (*dto.GetCampaignResponse, error) {
	campaign, err := getCampaignByUUID(ctx, s.campaignRepo, req.UUID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}

	return &dto.GetCampaignResponse{
		Message:  "Campaign retrieved",
		Campaign: ToCampaignDTO(*campaign),
	}, nil
}

// ListOpenCampaigns returns creator-visible campaigns accepting applications.
// The first page is served from redis when warm; slot counters in the cached
// copy may lag by up to the cache TTL, which is acceptable for discovery.
func (s *CampaignFlowImpl) ListOpenCampaigns(ctx context.Context, req *dto.ListOpenCampaignsRequest, metadata *ClientMetadata) (*dto.ListOpenCampaignsResponse, error) {
	page, pageSize, err := normalizePaging(req.Page, req.PageSize)
	if err != nil {
		return nil, NewBusinessError("INVALID_PAGINATION", "Invalid pagination parameters", err)
	}

	cacheable := page == 1 && pageSize == 20 && s.rc != nil && s.cacheConfig != nil && s.cacheConfig.Enabled
	cacheKey := ""
	if cacheable {
		cacheKey = redisKey(*s.cacheConfig, utils.OpenCampaignsCacheKey)
		if bs, err := s.rc.Get(ctx, cacheKey).Bytes(); err == nil && len(bs) > 0 {
			var out dto.ListOpenCampaignsResponse
			if err := json.Unmarshal(bs, &out); err == nil {
				out.Message = "Open campaigns retrieved from cache"
				return &out, nil
			}
		}
	}

	visible := true
	filter := models.CampaignFilter{
		Statuses:          []models.CampaignStatus{models.CampaignStatusLive, models.CampaignStatusInProduction},
		VisibleToCreators: &visible,
	}

	total, err := s.campaignRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to count campaigns", err)
	}

	campaigns, err := s.campaignRepo.ListOpenForCreators(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to list campaigns", err)
	}

	out := make([]dto.CampaignDTO, 0, len(campaigns))
	for _, c := range campaigns {
		out = append(out, ToCampaignDTO(*c))
	}

	resp := &dto.ListOpenCampaignsResponse{
		Message:   "Open campaigns retrieved",
		Campaigns: out,
		Total:     total,
	}

	if cacheable {
		if bs, err := json.Marshal(resp); err == nil {
			_ = s.rc.Set(ctx, cacheKey, bs, s.cacheConfig.DefaultTTL).Err()
		}
	}

	return resp, nil
}

// buildCampaign assembles the campaign model from a validated request
func (s *CampaignFlowImpl) buildCampaign(req *dto.CreateCampaignRequest, brand *models.Brand) *models.Campaign {
	campaign := &models.Campaign{
		BrandID: brand.ID,
		Title:   req.Title,
		Status:  models.CampaignStatusDraft,

		SlotsTotalLoaded: req.InitialSlots,
		SlotsFilled:      0,
		SlotsAvailable:   req.InitialSlots,

		Requirements: models.CampaignRequirements{
			Platforms:        req.Requirements.Platforms,
			MinFollowers:     req.Requirements.MinFollowers,
			ContentFormat:    req.Requirements.ContentFormat,
			MandatoryTag:     req.Requirements.MandatoryTag,
			MandatoryMention: req.Requirements.MandatoryMention,
			Rules:            req.Requirements.Rules,
		},
		Canje: models.CanjeSpec{
			Description:    req.Canje.Description,
			RewardValue:    req.Canje.Value,
			DeliveryMethod: req.Canje.DeliveryMethod,
		},
		Timeline: models.CampaignTimeline{
			ApplicationsStart: req.Timeline.ApplicationsStart,
			ApplicationsEnd:   req.Timeline.ApplicationsEnd,
			PublishStart:      req.Timeline.PublishStart,
			PublishEnd:        req.Timeline.PublishEnd,
			DeliverySLAHours:  req.Timeline.DeliverySLAHours,
		},
		VisibleToCreators: false,
	}

	if req.Contract != nil && req.Contract.IsActive {
		nextReload := req.Contract.NextReloadDate
		if nextReload == nil && req.Contract.StartDate != nil {
			nextReload = utils.ToPtr(utils.AddMonthClamped(*req.Contract.StartDate))
		}
		campaign.Contract = models.ContractTerms{
			IsActive:            true,
			StartDate:           req.Contract.StartDate,
			EndDate:             req.Contract.EndDate,
			MonthlyDeliverables: req.Contract.MonthlyDeliverables,
			NextReloadDate:      nextReload,
		}
	}

	return campaign
}

// getOwnedCampaign resolves a campaign and checks brand ownership
func (s *CampaignFlowImpl) getOwnedCampaign(ctx context.Context, uuid string, brandID uint) (*models.Brand, *models.Campaign, error) {
	brand, err := getBrand(ctx, s.brandRepo, brandID)
	if err != nil {
		return nil, nil, NewBusinessError("BRAND_LOOKUP_FAILED", "Failed to lookup brand", err)
	}

	campaign, err := getCampaignByUUID(ctx, s.campaignRepo, uuid)
	if err != nil {
		return nil, nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if campaign.BrandID != brand.ID {
		return nil, nil, NewBusinessError("CAMPAIGN_ACCESS_DENIED", "Campaign access denied", ErrCampaignAccessDenied)
	}

	return brand, campaign, nil
}

// validateCreateCampaignRequest validates the campaign creation request
func (s *CampaignFlowImpl) validateCreateCampaignRequest(req *dto.CreateCampaignRequest) error {
	if req.Title == "" {
		return ErrCampaignTitleRequired
	}
	if len(req.Requirements.Platforms) == 0 {
		return ErrCampaignPlatformsRequired
	}
	return nil
}

func (s *CampaignFlowImpl) invalidateOpenCampaignsCache(ctx context.Context) {
	if s.rc == nil || s.cacheConfig == nil || !s.cacheConfig.Enabled {
		return
	}
	_ = s.rc.Del(ctx, redisKey(*s.cacheConfig, utils.OpenCampaignsCacheKey)).Err()
}
