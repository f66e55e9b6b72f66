// Package businessflow contains the core business logic and use cases for deliverable workflows
package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/martalon/colmena/app/dto"
	"github.com/martalon/colmena/app/services"
	"github.com/martalon/colmena/config"
	"github.com/martalon/colmena/models"
	"github.com/martalon/colmena/repository"
	"github.com/martalon/colmena/utils"
	"gorm.io/gorm"
)

// Review actions
const (
	ReviewActionApprove        = "approve"
	ReviewActionRequestChanges = "request_changes"
)

// DeliverableFlow handles the deliverable lifecycle business logic
type DeliverableFlow interface {
	Publish(ctx context.Context, req *dto.PublishDeliverableRequest, metadata *ClientMetadata) (*dto.PublishDeliverableResponse, error)
	Submit(ctx context.Context, req *dto.SubmitDeliverableRequest, metadata *ClientMetadata) (*dto.SubmitDeliverableResponse, error)
	Review(ctx context.Context, req *dto.ReviewDeliverableRequest, metadata *ClientMetadata) (*dto.ReviewDeliverableResponse, error)
	Get(ctx context.Context, req *dto.GetDeliverableRequest, metadata *ClientMetadata) (*dto.GetDeliverableResponse, error)
}

// DeliverableFlowImpl implements the deliverable business flow
type DeliverableFlowImpl struct {
	deliverableRepo repository.DeliverableRepository
	campaignRepo    repository.CampaignRepository
	creatorRepo     repository.CreatorRepository
	brandRepo       repository.BrandRepository
	auditRepo       repository.AuditLogRepository
	notifier        services.NotificationService
	schedulerConfig config.SchedulerConfig
	db              *gorm.DB
}

// NewDeliverableFlow creates a new deliverable flow instance
func NewDeliverableFlow(
	deliverableRepo repository.DeliverableRepository,
	campaignRepo repository.CampaignRepository,
	creatorRepo repository.CreatorRepository,
	brandRepo repository.BrandRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
	notifier services.NotificationService,
	schedulerConfig config.SchedulerConfig,
) DeliverableFlow {
	return &DeliverableFlowImpl{
		deliverableRepo: deliverableRepo,
		campaignRepo:    campaignRepo,
		creatorRepo:     creatorRepo,
		brandRepo:       brandRepo,
		auditRepo:       auditRepo,
		notifier:        notifier,
		schedulerConfig: schedulerConfig,
		db:              db,
	}
}

// Publish records the live post URL. A creator asked for changes may publish
// a fresh URL, re-entering the published state. is_on_time is frozen at the
// first publish against the content deadline and never recomputed afterwards.
func (s *DeliverableFlowImpl) Publish(ctx context.Context, req *dto.PublishDeliverableRequest, metadata *ClientMetadata) (*dto.PublishDeliverableResponse, error) {
	if req.PostURL == "" {
		return nil, NewBusinessError("POST_URL_REQUIRED", "Post URL is required", ErrPostURLRequired)
	}

	deliverable, err := s.getOwnedDeliverable(ctx, req.DeliverableUUID, req.CreatorID)
	if err != nil {
		return nil, err
	}

	if deliverable.Status != models.DeliverableStatusAwaitingPublish &&
		deliverable.Status != models.DeliverableStatusChangesRequested {
		return nil, NewBusinessError("ALREADY_PUBLISHED", "Deliverable already has a published URL", ErrAlreadyPublished)
	}

	now := utils.UTCNow()

	values := map[string]any{
		"status":       models.DeliverableStatusPublished,
		"post_url":     req.PostURL,
		"published_at": now,
		"is_late":      false,
	}

	onTime := utils.IsTrue(deliverable.IsOnTime)
	if deliverable.PublishedAt == nil {
		onTime = !now.After(deliverable.ContentDeadline)
		values["is_on_time"] = onTime
	}

	updated, err := s.deliverableRepo.UpdateStatusIf(ctx, deliverable.ID,
		[]models.DeliverableStatus{
			models.DeliverableStatusAwaitingPublish,
			models.DeliverableStatusChangesRequested,
		}, values)
	if err != nil {
		return nil, NewBusinessError("PUBLISH_FAILED", "Publish failed", err)
	}
	if !updated {
		return nil, NewBusinessError("ALREADY_PUBLISHED", "Deliverable already has a published URL", ErrAlreadyPublished)
	}

	msg := fmt.Sprintf("Deliverable published: %s", deliverable.UUID.String())
	_ = writeAuditLog(ctx, s.auditRepo, models.AuditActorCreator, &deliverable.CreatorID, models.AuditActionDeliverablePublished, msg, true, nil, metadata, auditRefs{CampaignID: &deliverable.CampaignID, DeliverableID: &deliverable.ID})

	return &dto.PublishDeliverableResponse{
		Message:     "Post URL recorded",
		Status:      string(models.DeliverableStatusPublished),
		IsOnTime:    onTime,
		PublishedAt: now.Format(time.RFC3339),
	}, nil
}

// Submit moves a published deliverable into the brand's review queue
func (s *DeliverableFlowImpl) Submit(ctx context.Context, req *dto.SubmitDeliverableRequest, metadata *ClientMetadata) (*dto.SubmitDeliverableResponse, error) {
	deliverable, err := s.getOwnedDeliverable(ctx, req.DeliverableUUID, req.CreatorID)
	if err != nil {
		return nil, err
	}

	if deliverable.PublishedAt == nil {
		return nil, NewBusinessError("NOT_PUBLISHED", "Deliverable has no published URL yet", ErrNotPublished)
	}

	now := utils.UTCNow()

	// First submission and re-submission after changes_requested are the
	// same operation with different target statuses. A republished
	// deliverable with a prior review round re-enters as resubmitted.
	target := models.DeliverableStatusSubmitted
	fromStatuses := []models.DeliverableStatus{models.DeliverableStatusPublished}
	switch {
	case deliverable.Status == models.DeliverableStatusChangesRequested:
		target = models.DeliverableStatusResubmitted
		fromStatuses = []models.DeliverableStatus{models.DeliverableStatusChangesRequested}
	case deliverable.ReviewRound > 0:
		target = models.DeliverableStatusResubmitted
	}

	updated, err := s.deliverableRepo.UpdateStatusIf(ctx, deliverable.ID, fromStatuses,
		map[string]any{
			"status":       target,
			"submitted_at": now,
		})
	if err != nil {
		return nil, NewBusinessError("SUBMISSION_FAILED", "Submission failed", err)
	}
	if !updated {
		return nil, NewBusinessError("INVALID_STATUS", "Deliverable cannot be submitted in its current status", ErrInvalidStatusTransition)
	}

	msg := fmt.Sprintf("Deliverable submitted: %s (round %d)", deliverable.UUID.String(), deliverable.ReviewRound)
	_ = writeAuditLog(ctx, s.auditRepo, models.AuditActorCreator, &deliverable.CreatorID, models.AuditActionDeliverableSubmitted, msg, true, nil, metadata, auditRefs{CampaignID: &deliverable.CampaignID, DeliverableID: &deliverable.ID})

	s.notifyBrandForCampaign(ctx, deliverable.CampaignID, "deliverable_submitted", map[string]string{
		"deliverable_uuid": deliverable.UUID.String(),
	})

	return &dto.SubmitDeliverableResponse{
		Message:     "Deliverable submitted for review",
		Status:      string(target),
		ReviewRound: deliverable.ReviewRound,
	}, nil
}

// Review applies the brand's decision. Approval timestamps approved_at and
// opens the metrics submission window immediately; a change request bumps
// the review round and appends to the review history.
func (s *DeliverableFlowImpl) Review(ctx context.Context, req *dto.ReviewDeliverableRequest, metadata *ClientMetadata) (*dto.ReviewDeliverableResponse, error) {
	brand, err := getBrand(ctx, s.brandRepo, req.BrandID)
	if err != nil {
		return nil, NewBusinessError("BRAND_LOOKUP_FAILED", "Failed to lookup brand", err)
	}

	deliverable, err := s.deliverableRepo.ByUUID(ctx, req.DeliverableUUID)
	if err != nil {
		return nil, NewBusinessError("DELIVERABLE_LOOKUP_FAILED", "Failed to lookup deliverable", err)
	}
	if deliverable == nil {
		return nil, NewBusinessError("DELIVERABLE_NOT_FOUND", "Deliverable not found", ErrDeliverableNotFound)
	}

	campaign, err := s.campaignRepo.ByID(ctx, deliverable.CampaignID)
	if err != nil || campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", ErrCampaignNotFound)
	}
	if campaign.BrandID != brand.ID {
		return nil, NewBusinessError("CAMPAIGN_ACCESS_DENIED", "Campaign access denied", ErrCampaignAccessDenied)
	}

	if !deliverable.Status.AwaitingReview() {
		return nil, NewBusinessError("NOT_AWAITING_REVIEW", "Deliverable is not awaiting review", ErrNotAwaitingReview)
	}

	now := utils.UTCNow()
	note := ""
	if req.Note != nil {
		note = *req.Note
	}

	fromStatuses := []models.DeliverableStatus{
		models.DeliverableStatusSubmitted,
		models.DeliverableStatusResubmitted,
		models.DeliverableStatusUnderReview,
	}

	switch req.Action {
	case ReviewActionApprove:
		windowDays := s.schedulerConfig.MetricsWindowDays
		if windowDays <= 0 {
			windowDays = utils.DefaultMetricsWindowDays
		}
		closesAt := now.AddDate(0, 0, windowDays)

		reviewNotes := append(deliverable.ReviewNotes, models.ReviewNote{
			Round:     deliverable.ReviewRound,
			Action:    ReviewActionApprove,
			Note:      note,
			Author:    models.AuditActorBrand,
			Timestamp: now,
		})

		updated, err := s.deliverableRepo.UpdateStatusIf(ctx, deliverable.ID, fromStatuses,
			map[string]any{
				"status":                   models.DeliverableStatusMetricsPending,
				"approved_at":              now,
				"metrics_window_opens_at":  now,
				"metrics_window_closes_at": closesAt,
				"review_notes":             reviewNotes,
			})
		if err != nil {
			return nil, NewBusinessError("REVIEW_FAILED", "Review failed", err)
		}
		if !updated {
			return nil, NewBusinessError("NOT_AWAITING_REVIEW", "Deliverable is not awaiting review", ErrNotAwaitingReview)
		}

		msg := fmt.Sprintf("Deliverable approved: %s", deliverable.UUID.String())
		_ = writeAuditLog(ctx, s.auditRepo, models.AuditActorBrand, &brand.ID, models.AuditActionDeliverableApproved, msg, true, nil, metadata, auditRefs{CampaignID: &campaign.ID, DeliverableID: &deliverable.ID})

		s.notifyCreator(ctx, deliverable.CreatorID, "deliverable_approved", map[string]string{
			"campaign_title":        campaign.Title,
			"metrics_window_closes": closesAt.Format(time.RFC3339),
		})

		return &dto.ReviewDeliverableResponse{
			Message:               "Deliverable approved, metrics window open",
			Status:                string(models.DeliverableStatusMetricsPending),
			ReviewRound:           deliverable.ReviewRound,
			MetricsWindowOpensAt:  &now,
			MetricsWindowClosesAt: &closesAt,
		}, nil

	case ReviewActionRequestChanges:
		newRound := deliverable.ReviewRound + 1
		reviewNotes := append(deliverable.ReviewNotes, models.ReviewNote{
			Round:     newRound,
			Action:    ReviewActionRequestChanges,
			Note:      note,
			Author:    models.AuditActorBrand,
			Timestamp: now,
		})

		updated, err := s.deliverableRepo.UpdateStatusIf(ctx, deliverable.ID, fromStatuses,
			map[string]any{
				"status":       models.DeliverableStatusChangesRequested,
				"review_round": newRound,
				"review_notes": reviewNotes,
			})
		if err != nil {
			return nil, NewBusinessError("REVIEW_FAILED", "Review failed", err)
		}
		if !updated {
			return nil, NewBusinessError("NOT_AWAITING_REVIEW", "Deliverable is not awaiting review", ErrNotAwaitingReview)
		}

		msg := fmt.Sprintf("Changes requested on deliverable %s (round %d)", deliverable.UUID.String(), newRound)
		_ = writeAuditLog(ctx, s.auditRepo, models.AuditActorBrand, &brand.ID, models.AuditActionDeliverableChangesRequested, msg, true, nil, metadata, auditRefs{CampaignID: &campaign.ID, DeliverableID: &deliverable.ID})

		s.notifyCreator(ctx, deliverable.CreatorID, "deliverable_changes_requested", map[string]string{
			"campaign_title": campaign.Title,
			"note":           note,
		})

		return &dto.ReviewDeliverableResponse{
			Message:     "Changes requested",
			Status:      string(models.DeliverableStatusChangesRequested),
			ReviewRound: newRound,
		}, nil

	default:
		return nil, NewBusinessError("INVALID_REVIEW_ACTION", "Invalid review action", ErrInvalidReviewAction)
	}
}

// Get returns a deliverable by UUID
func (s *DeliverableFlowImpl) Get(ctx context.Context, req *dto.GetDeliverableRequest, metadata *ClientMetadata) (*dto.GetDeliverableResponse, error) {
	deliverable, err := s.deliverableRepo.ByUUID(ctx, req.DeliverableUUID)
	if err != nil {
		return nil, NewBusinessError("DELIVERABLE_LOOKUP_FAILED", "Failed to lookup deliverable", err)
	}
	if deliverable == nil {
		return nil, NewBusinessError("DELIVERABLE_NOT_FOUND", "Deliverable not found", ErrDeliverableNotFound)
	}

	return &dto.GetDeliverableResponse{
		Message:     "Deliverable retrieved",
		Deliverable: ToDeliverableDTO(*deliverable),
	}, nil
}

// getOwnedDeliverable resolves a deliverable and checks creator ownership
func (s *DeliverableFlowImpl) getOwnedDeliverable(ctx context.Context, uuid string, creatorID uint) (*models.Deliverable, error) {
	creator, err := getCreator(ctx, s.creatorRepo, creatorID)
	if err != nil {
		return nil, NewBusinessError("CREATOR_LOOKUP_FAILED", "Failed to lookup creator", err)
	}

	deliverable, err := s.deliverableRepo.ByUUID(ctx, uuid)
	if err != nil {
		return nil, NewBusinessError("DELIVERABLE_LOOKUP_FAILED", "Failed to lookup deliverable", err)
	}
	if deliverable == nil || deliverable.CreatorID != creator.ID {
		return nil, NewBusinessError("DELIVERABLE_NOT_FOUND", "Deliverable not found", ErrDeliverableNotFound)
	}

	return deliverable, nil
}

func (s *DeliverableFlowImpl) notifyCreator(ctx context.Context, creatorID uint, templateKey string, templateCtx map[string]string) {
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

func (s *DeliverableFlowImpl) notifyBrandForCampaign(ctx context.Context, campaignID uint, templateKey string, templateCtx map[string]string) {
	if s.notifier == nil {
		return
	}
	campaign, err := s.campaignRepo.ByID(ctx, campaignID)
	if err != nil || campaign == nil {
		return
	}
	brand, err := s.brandRepo.ByID(ctx, campaign.BrandID)
	if err != nil || brand == nil {
		return
	}
	templateCtx["recipient"] = brand.ContactEmail
	_ = s.notifier.Notify(ctx, services.ChannelEmail, services.RoleBrand, templateKey, templateCtx)
}
