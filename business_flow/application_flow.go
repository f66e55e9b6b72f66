// Package businessflow contains the core business logic and use cases for application workflows
package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/martalon/colmena/app/dto"
	"github.com/martalon/colmena/app/services"
	"github.com/martalon/colmena/models"
	"github.com/martalon/colmena/repository"
	"github.com/martalon/colmena/utils"
	"gorm.io/gorm"
)

// ApplicationFlow handles the application lifecycle business logic
type ApplicationFlow interface {
	Apply(ctx context.Context, req *dto.ApplyRequest, metadata *ClientMetadata) (*dto.ApplyResponse, error)
	Confirm(ctx context.Context, req *dto.ConfirmApplicationRequest, metadata *ClientMetadata) (*dto.ConfirmApplicationResponse, error)
	Reject(ctx context.Context, req *dto.RejectApplicationRequest, metadata *ClientMetadata) (*dto.RejectApplicationResponse, error)
	Cancel(ctx context.Context, req *dto.CancelApplicationRequest, metadata *ClientMetadata) (*dto.CancelApplicationResponse, error)
	ListForCampaign(ctx context.Context, req *dto.ListApplicationsRequest, metadata *ClientMetadata) (*dto.ListApplicationsResponse, error)
}

// ApplicationFlowImpl implements the application business flow
type ApplicationFlowImpl struct {
	applicationRepo repository.ApplicationRepository
	campaignRepo    repository.CampaignRepository
	creatorRepo     repository.CreatorRepository
	brandRepo       repository.BrandRepository
	deliverableRepo repository.DeliverableRepository
	auditRepo       repository.AuditLogRepository
	notifier        services.NotificationService
	db              *gorm.DB
}

// NewApplicationFlow creates a new application flow instance
func NewApplicationFlow(
	applicationRepo repository.ApplicationRepository,
	campaignRepo repository.CampaignRepository,
	creatorRepo repository.CreatorRepository,
	brandRepo repository.BrandRepository,
	deliverableRepo repository.DeliverableRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
	notifier services.NotificationService,
) ApplicationFlow {
	return &ApplicationFlowImpl{
		applicationRepo: applicationRepo,
		campaignRepo:    campaignRepo,
		creatorRepo:     creatorRepo,
		brandRepo:       brandRepo,
		deliverableRepo: deliverableRepo,
		auditRepo:       auditRepo,
		notifier:        notifier,
		db:              db,
	}
}

// Apply handles a creator applying to a campaign. Slot availability is NOT
// checked here: a full campaign still accepts applications, capacity is only
// contended at confirmation time.
func (s *ApplicationFlowImpl) Apply(ctx context.Context, req *dto.ApplyRequest, metadata *ClientMetadata) (*dto.ApplyResponse, error) {
	creator, err := getCreator(ctx, s.creatorRepo, req.CreatorID)
	if err != nil {
		return nil, NewBusinessError("CREATOR_LOOKUP_FAILED", "Failed to lookup creator", err)
	}

	campaign, err := getCampaignByUUID(ctx, s.campaignRepo, req.CampaignUUID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}

	now := utils.UTCNow()
	if !campaign.Status.AcceptsApplications() {
		return nil, NewBusinessError("CAMPAIGN_NOT_ACCEPTING", "Campaign is not accepting applications", ErrCampaignNotAccepting)
	}
	if !campaign.InApplicationsWindow(now) {
		return nil, NewBusinessError("APPLICATIONS_WINDOW_CLOSED", "Campaign applications window is closed", ErrCampaignWindowClosed)
	}

	platform, err := resolvePlatform(req.Platform, campaign)
	if err != nil {
		return nil, NewBusinessError("PLATFORM_NOT_REQUIRED", "Platform is not part of the campaign requirements", err)
	}

	var application *models.Application

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		existing, err := s.applicationRepo.ActiveByCampaignAndCreator(txCtx, campaign.ID, creator.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrApplicationAlreadyActive
		}

		application = &models.Application{
			CampaignID: campaign.ID,
			CreatorID:  creator.ID,
			Status:     models.ApplicationStatusApplied,
			Platform:   platform,
			Motivation: req.Motivation,
			AppliedAt:  now,
		}

		return s.applicationRepo.Save(txCtx, application)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Application failed: %s", err.Error())
		_ = writeAuditLog(ctx, s.auditRepo, models.AuditActorCreator, &creator.ID, models.AuditActionApplicationApplied, errMsg, false, &errMsg, metadata, auditRefs{CampaignID: &campaign.ID})

		if IsApplicationAlreadyActive(err) {
			return nil, NewBusinessError("APPLICATION_ALREADY_ACTIVE", "An active application already exists for this campaign", err)
		}
		return nil, NewBusinessError("APPLICATION_FAILED", "Application failed", err)
	}

	msg := fmt.Sprintf("Application created: %s", application.UUID.String())
	_ = writeAuditLog(ctx, s.auditRepo, models.AuditActorCreator, &creator.ID, models.AuditActionApplicationApplied, msg, true, nil, metadata, auditRefs{CampaignID: &campaign.ID, ApplicationID: &application.ID})

	s.notifyBrand(ctx, campaign, "application_received", map[string]string{
		"campaign_title": campaign.Title,
		"creator_name":   creator.DisplayName,
		"platform":       platform,
	})

	return &dto.ApplyResponse{
		Message:   "Application submitted successfully",
		UUID:      application.UUID.String(),
		Status:    string(application.Status),
		Platform:  application.Platform,
		AppliedAt: application.AppliedAt.Format(time.RFC3339),
	}, nil
}

// Confirm handles the brand confirming an applicant. Confirmation is the
// only capacity-contended step: it reserves a slot with a conditional UPDATE
// and creates the deliverable in the same transaction, so a lost race leaves
// no partial state behind.
func (s *ApplicationFlowImpl) Confirm(ctx context.Context, req *dto.ConfirmApplicationRequest, metadata *ClientMetadata) (*dto.ConfirmApplicationResponse, error) {
	brand, err := getBrand(ctx, s.brandRepo, req.BrandID)
	if err != nil {
		return nil, NewBusinessError("BRAND_LOOKUP_FAILED", "Failed to lookup brand", err)
	}

	application, campaign, err := s.getOwnedApplication(ctx, req.ApplicationUUID, brand.ID)
	if err != nil {
		return nil, err
	}

	now := utils.UTCNow()
	var deliverable *models.Deliverable

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		reserved, err := s.campaignRepo.TryReserveSlot(txCtx, campaign.ID)
		if err != nil {
			return err
		}
		if !reserved {
			return ErrNoSlotsAvailable
		}

		updated, err := s.applicationRepo.UpdateStatusIf(txCtx, application.ID,
			[]models.ApplicationStatus{models.ApplicationStatusApplied, models.ApplicationStatusShortlisted},
			map[string]any{
				"status":       models.ApplicationStatusConfirmed,
				"confirmed_at": now,
			})
		if err != nil {
			return err
		}
		if !updated {
			return ErrApplicationNotPending
		}

		deadline := now.Add(campaign.DeliverySLA())
		deliverable = &models.Deliverable{
			ApplicationID:     application.ID,
			CampaignID:        campaign.ID,
			CreatorID:         application.CreatorID,
			Status:            models.DeliverableStatusAwaitingPublish,
			Platform:          application.Platform,
			RequiredPlatforms: campaign.Requirements.Platforms,
			ContentDeadline:   deadline,
			ReviewNotes:       models.ReviewNotes{},
		}

		if err := s.deliverableRepo.Save(txCtx, deliverable); err != nil {
			return err
		}

		// First confirmation moves a live campaign into production.
		if campaign.Status == models.CampaignStatusLive {
			return s.campaignRepo.UpdateStatus(txCtx, campaign.ID, models.CampaignStatusInProduction)
		}

		return nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Confirmation failed: %s", err.Error())
		_ = writeAuditLog(ctx, s.auditRepo, models.AuditActorBrand, &brand.ID, models.AuditActionApplicationConfirmed, errMsg, false, &errMsg, metadata, auditRefs{CampaignID: &campaign.ID, ApplicationID: &application.ID})

		if IsNoSlotsAvailable(err) {
			return nil, NewBusinessError("NO_SLOTS_AVAILABLE", "No slots available on this campaign", err)
		}
		if IsApplicationNotPending(err) {
			return nil, NewBusinessError("APPLICATION_NOT_PENDING", "Application is not awaiting a decision", err)
		}
		return nil, NewBusinessError("CONFIRMATION_FAILED", "Confirmation failed", err)
	}

	msg := fmt.Sprintf("Application confirmed: %s, deliverable %s", application.UUID.String(), deliverable.UUID.String())
	_ = writeAuditLog(ctx, s.auditRepo, models.AuditActorBrand, &brand.ID, models.AuditActionApplicationConfirmed, msg, true, nil, metadata, auditRefs{CampaignID: &campaign.ID, ApplicationID: &application.ID, DeliverableID: &deliverable.ID})

	s.notifyCreator(ctx, application.CreatorID, "application_confirmed", map[string]string{
		"campaign_title":   campaign.Title,
		"content_deadline": deliverable.ContentDeadline.Format(time.RFC3339),
	})

	return &dto.ConfirmApplicationResponse{
		Message:         "Application confirmed, deliverable created",
		Status:          string(models.ApplicationStatusConfirmed),
		DeliverableUUID: deliverable.UUID.String(),
		ContentDeadline: deliverable.ContentDeadline,
	}, nil
}

// Reject handles the brand rejecting an applicant
func (s *ApplicationFlowImpl) Reject(ctx context.Context, req *dto.RejectApplicationRequest, metadata *ClientMetadata) (*dto.RejectApplicationResponse, error) {
	brand, err := getBrand(ctx, s.brandRepo, req.BrandID)
	if err != nil {
		return nil, NewBusinessError("BRAND_LOOKUP_FAILED", "Failed to lookup brand", err)
	}

	application, campaign, err := s.getOwnedApplication(ctx, req.ApplicationUUID, brand.ID)
	if err != nil {
		return nil, err
	}

	now := utils.UTCNow()
	reason := "rejected by brand"
	if req.Reason != nil && *req.Reason != "" {
		reason = *req.Reason
	}

	// auto_rejected is deliberately absent from the update set: a manual
	// rejection after a scheduler pass must not clear the sticky flag.
	updated, err := s.applicationRepo.UpdateStatusIf(ctx, application.ID,
		[]models.ApplicationStatus{models.ApplicationStatusApplied, models.ApplicationStatusShortlisted},
		map[string]any{
			"status":           models.ApplicationStatusRejected,
			"rejected_at":      now,
			"rejection_reason": reason,
		})
	if err != nil {
		return nil, NewBusinessError("REJECTION_FAILED", "Rejection failed", err)
	}
	if !updated {
		return nil, NewBusinessError("APPLICATION_NOT_PENDING", "Application is not awaiting a decision", ErrApplicationNotPending)
	}

	msg := fmt.Sprintf("Application rejected: %s", application.UUID.String())
	_ = writeAuditLog(ctx, s.auditRepo, models.AuditActorBrand, &brand.ID, models.AuditActionApplicationRejected, msg, true, nil, metadata, auditRefs{CampaignID: &campaign.ID, ApplicationID: &application.ID})

	s.notifyCreator(ctx, application.CreatorID, "application_rejected", map[string]string{
		"campaign_title": campaign.Title,
		"reason":         reason,
	})

	return &dto.RejectApplicationResponse{
		Message: "Application rejected",
		Status:  string(models.ApplicationStatusRejected),
	}, nil
}

// Cancel handles a creator withdrawing their application. Cancelling a
// confirmed application releases the reserved slot.
func (s *ApplicationFlowImpl) Cancel(ctx context.Context, req *dto.CancelApplicationRequest, metadata *ClientMetadata) (*dto.CancelApplicationResponse, error) {
	creator, err := getCreator(ctx, s.creatorRepo, req.CreatorID)
	if err != nil {
		return nil, NewBusinessError("CREATOR_LOOKUP_FAILED", "Failed to lookup creator", err)
	}

	application, err := s.applicationRepo.ByUUID(ctx, req.ApplicationUUID)
	if err != nil {
		return nil, NewBusinessError("APPLICATION_LOOKUP_FAILED", "Failed to lookup application", err)
	}
	if application == nil || application.CreatorID != creator.ID {
		return nil, NewBusinessError("APPLICATION_NOT_FOUND", "Application not found", ErrApplicationNotFound)
	}

	wasConfirmed := application.Status == models.ApplicationStatusConfirmed
	slotsReleased := false

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		updated, err := s.applicationRepo.UpdateStatusIf(txCtx, application.ID,
			[]models.ApplicationStatus{
				models.ApplicationStatusApplied,
				models.ApplicationStatusShortlisted,
				models.ApplicationStatusConfirmed,
			},
			map[string]any{
				"status": models.ApplicationStatusCancelled,
			})
		if err != nil {
			return err
		}
		if !updated {
			return ErrInvalidStatusTransition
		}

		if wasConfirmed {
			if err := s.campaignRepo.ReleaseSlots(txCtx, application.CampaignID, 1); err != nil {
				return err
			}
			slotsReleased = true
		}

		return nil
	})

	if err != nil {
		if IsInvalidStatusTransition(err) {
			return nil, NewBusinessError("APPLICATION_NOT_ACTIVE", "Application is no longer active", err)
		}
		return nil, NewBusinessError("CANCELLATION_FAILED", "Cancellation failed", err)
	}

	msg := fmt.Sprintf("Application cancelled: %s", application.UUID.String())
	_ = writeAuditLog(ctx, s.auditRepo, models.AuditActorCreator, &creator.ID, models.AuditActionApplicationCancelled, msg, true, nil, metadata, auditRefs{CampaignID: &application.CampaignID, ApplicationID: &application.ID})

	return &dto.CancelApplicationResponse{
		Message:       "Application cancelled",
		Status:        string(models.ApplicationStatusCancelled),
		SlotsReleased: slotsReleased,
	}, nil
}

// ListForCampaign returns the brand's view of a campaign's applications
func (s *ApplicationFlowImpl) ListForCampaign(ctx context.Context, req *dto.ListApplicationsRequest, metadata *ClientMetadata) (*dto.ListApplicationsResponse, error) {
	page, pageSize, err := normalizePaging(req.Page, req.PageSize)
	if err != nil {
		return nil, NewBusinessError("INVALID_PAGINATION", "Invalid pagination parameters", err)
	}

	campaign, err := getCampaignByUUID(ctx, s.campaignRepo, req.CampaignUUID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if campaign.BrandID != req.BrandID {
		return nil, NewBusinessError("CAMPAIGN_ACCESS_DENIED", "Campaign access denied", ErrCampaignAccessDenied)
	}

	filter := models.ApplicationFilter{CampaignID: &campaign.ID}
	if req.Status != nil {
		status := models.ApplicationStatus(*req.Status)
		filter.Status = &status
	}

	total, err := s.applicationRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("APPLICATION_LIST_FAILED", "Failed to count applications", err)
	}

	applications, err := s.applicationRepo.ByFilter(ctx, filter, "applied_at DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("APPLICATION_LIST_FAILED", "Failed to list applications", err)
	}

	out := make([]dto.ApplicationDTO, 0, len(applications))
	for _, a := range applications {
		out = append(out, ToApplicationDTO(*a))
	}

	return &dto.ListApplicationsResponse{
		Message:      "Applications retrieved",
		Applications: out,
		Total:        total,
	}, nil
}

// getOwnedApplication resolves an application and checks the campaign belongs
// to the acting brand
func (s *ApplicationFlowImpl) getOwnedApplication(ctx context.Context, uuid string, brandID uint) (*models.Application, *models.Campaign, error) {
	application, err := s.applicationRepo.ByUUID(ctx, uuid)
	if err != nil {
		return nil, nil, NewBusinessError("APPLICATION_LOOKUP_FAILED", "Failed to lookup application", err)
	}
	if application == nil {
		return nil, nil, NewBusinessError("APPLICATION_NOT_FOUND", "Application not found", ErrApplicationNotFound)
	}

	campaign, err := s.campaignRepo.ByID(ctx, application.CampaignID)
	if err != nil {
		return nil, nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if campaign == nil {
		return nil, nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}
	if campaign.BrandID != brandID {
		return nil, nil, NewBusinessError("CAMPAIGN_ACCESS_DENIED", "Campaign access denied", ErrCampaignAccessDenied)
	}

	return application, campaign, nil
}

// resolvePlatform picks the application platform: the creator's explicit
// choice when it matches the requirements, else the campaign's first
// required platform.
func resolvePlatform(requested *string, campaign *models.Campaign) (string, error) {
	if requested != nil && *requested != "" {
		if !campaign.Requirements.HasPlatform(*requested) {
			return "", ErrPlatformNotRequired
		}
		return *requested, nil
	}
	if len(campaign.Requirements.Platforms) == 0 {
		return "", ErrCampaignPlatformsRequired
	}
	return campaign.Requirements.Platforms[0], nil
}

func (s *ApplicationFlowImpl) notifyCreator(ctx context.Context, creatorID uint, templateKey string, templateCtx map[string]string) {
	if s.notifier == nil {
		return
	}
	creator, err := s.creatorRepo.ByID(ctx, creatorID)
	if err != nil || creator == nil {
		return
	}
	templateCtx["recipient"] = creator.Email
	_ = s.notifier.Notify(ctx, services.ChannelEmail, services.RoleCreator, templateKey, templateCtx)
}

func (s *ApplicationFlowImpl) notifyBrand(ctx context.Context, campaign *models.Campaign, templateKey string, templateCtx map[string]string) {
	if s.notifier == nil {
		return
	}
	brand, err := s.brandRepo.ByID(ctx, campaign.BrandID)
	if err != nil || brand == nil {
		return
	}
	templateCtx["recipient"] = brand.ContactEmail
	_ = s.notifier.Notify(ctx, services.ChannelEmail, services.RoleBrand, templateKey, templateCtx)
}
