// Package businessflow contains the core business logic and use cases for metrics workflows
package businessflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/martalon/colmena/app/dto"
	"github.com/martalon/colmena/app/services"
	"github.com/martalon/colmena/models"
	"github.com/martalon/colmena/repository"
	"github.com/martalon/colmena/utils"
	"gorm.io/gorm"
)

// MetricsFlow handles the performance metrics submission business logic
type MetricsFlow interface {
	SubmitMetrics(ctx context.Context, req *dto.SubmitMetricsRequest, metadata *ClientMetadata) (*dto.SubmitMetricsResponse, error)
}

// MetricsFlowImpl implements the metrics business flow
type MetricsFlowImpl struct {
	metricsRepo     repository.MetricsRecordRepository
	deliverableRepo repository.DeliverableRepository
	creatorRepo     repository.CreatorRepository
	auditRepo       repository.AuditLogRepository
	extractor       services.AIExtractionClient
	db              *gorm.DB
}

// NewMetricsFlow creates a new metrics flow instance
func NewMetricsFlow(
	metricsRepo repository.MetricsRecordRepository,
	deliverableRepo repository.DeliverableRepository,
	creatorRepo repository.CreatorRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
	extractor services.AIExtractionClient,
) MetricsFlow {
	return &MetricsFlowImpl{
		metricsRepo:     metricsRepo,
		deliverableRepo: deliverableRepo,
		creatorRepo:     creatorRepo,
		auditRepo:       auditRepo,
		extractor:       extractor,
		db:              db,
	}
}

// SubmitMetrics processes a multi-platform evidence submission. One record is
// created per platform carrying evidence, never a combined record. Extraction
// failures degrade the record to ai_extracted=false instead of blocking the
// submission.
func (s *MetricsFlowImpl) SubmitMetrics(ctx context.Context, req *dto.SubmitMetricsRequest, metadata *ClientMetadata) (*dto.SubmitMetricsResponse, error) {
	creator, err := getCreator(ctx, s.creatorRepo, req.CreatorID)
	if err != nil {
		return nil, NewBusinessError("CREATOR_LOOKUP_FAILED", "Failed to lookup creator", err)
	}

	deliverable, err := s.deliverableRepo.ByUUID(ctx, req.DeliverableUUID)
	if err != nil {
		return nil, NewBusinessError("DELIVERABLE_LOOKUP_FAILED", "Failed to lookup deliverable", err)
	}
	if deliverable == nil || deliverable.CreatorID != creator.ID {
		return nil, NewBusinessError("DELIVERABLE_NOT_FOUND", "Deliverable not found", ErrDeliverableNotFound)
	}

	now := utils.UTCNow()
	if deliverable.Status != models.DeliverableStatusMetricsPending || !deliverable.MetricsWindowOpen(now) {
		return nil, NewBusinessError("METRICS_WINDOW_NOT_OPEN", "Metrics submission window is not open", ErrMetricsWindowNotOpen)
	}

	// Platforms with an empty evidence list are dropped, not rejected. The
	// submission as a whole must still carry at least one evidence item.
	platforms := make([]string, 0, len(req.Evidence))
	for platform, items := range req.Evidence {
		if len(items) == 0 {
			continue
		}
		platforms = append(platforms, platform)
	}
	if len(platforms) == 0 {
		return nil, NewBusinessError("EVIDENCE_REQUIRED", "At least one evidence item is required", ErrEvidenceRequired)
	}
	sort.Strings(platforms)

	// All duplicate checks up front so a partial submission never half-lands.
	for _, platform := range platforms {
		exists, err := s.metricsRepo.ExistsForPlatform(ctx, deliverable.ID, platform)
		if err != nil {
			return nil, NewBusinessError("METRICS_LOOKUP_FAILED", "Failed to check existing metrics", err)
		}
		if exists {
			return nil, NewBusinessErrorf("METRICS_ALREADY_SUBMITTED", "Metrics already submitted for platform %s", ErrMetricsAlreadySubmitted, platform)
		}
	}

	records := make([]*models.MetricsRecord, 0, len(platforms))
	for _, platform := range platforms {
		record := s.buildRecord(ctx, deliverable, platform, req.Evidence[platform], now)
		records = append(records, record)
	}

	completed := false
	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.metricsRepo.SaveBatch(txCtx, records); err != nil {
			return err
		}

		covered, err := s.metricsRepo.PlatformsWithRecords(txCtx, deliverable.ID)
		if err != nil {
			return err
		}
		if coversAll(covered, deliverable.RequiredPlatforms) {
			done, err := s.deliverableRepo.UpdateStatusIf(txCtx, deliverable.ID,
				[]models.DeliverableStatus{models.DeliverableStatusMetricsPending},
				map[string]any{
					"status": models.DeliverableStatusCompleted,
				})
			if err != nil {
				return err
			}
			completed = done
		}

		return nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Metrics submission failed: %s", err.Error())
		_ = writeAuditLog(ctx, s.auditRepo, models.AuditActorCreator, &creator.ID, models.AuditActionMetricsSubmitted, errMsg, false, &errMsg, metadata, auditRefs{CampaignID: &deliverable.CampaignID, DeliverableID: &deliverable.ID})

		// A racing submission can slip past the up-front checks; the unique
		// index on (deliverable_id, platform) catches the loser here.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, NewBusinessError("METRICS_ALREADY_SUBMITTED", "Metrics already submitted for this platform", ErrMetricsAlreadySubmitted)
		}
		return nil, NewBusinessError("METRICS_SUBMISSION_FAILED", "Metrics submission failed", err)
	}

	msg := fmt.Sprintf("Metrics submitted for deliverable %s on %d platform(s)", deliverable.UUID.String(), len(records))
	_ = writeAuditLog(ctx, s.auditRepo, models.AuditActorCreator, &creator.ID, models.AuditActionMetricsSubmitted, msg, true, nil, metadata, auditRefs{CampaignID: &deliverable.CampaignID, DeliverableID: &deliverable.ID})
	if completed {
		doneMsg := fmt.Sprintf("Deliverable completed: %s", deliverable.UUID.String())
		_ = writeAuditLog(ctx, s.auditRepo, models.AuditActorSystem, nil, models.AuditActionDeliverableCompleted, doneMsg, true, nil, metadata, auditRefs{CampaignID: &deliverable.CampaignID, DeliverableID: &deliverable.ID})
	}

	status := models.DeliverableStatusMetricsPending
	if completed {
		status = models.DeliverableStatusCompleted
	}

	uuids := make([]string, 0, len(records))
	out := make([]dto.PlatformMetricsDTO, 0, len(records))
	for _, r := range records {
		uuids = append(uuids, r.UUID.String())
		out = append(out, dto.PlatformMetricsDTO{
			Platform:       r.Platform,
			Views:          r.Views,
			Likes:          r.Likes,
			Comments:       r.Comments,
			Shares:         r.Shares,
			Saves:          r.Saves,
			EngagementRate: r.ComputeEngagementRate(),
			AIExtracted:    r.AIExtracted,
			AIConfidence:   r.AIConfidence,
			EvidenceCount:  r.EvidenceCount,
		})
	}

	return &dto.SubmitMetricsResponse{
		Message:              "Metrics submitted",
		RecordUUIDs:          uuids,
		Platforms:            out,
		DeliverableStatus:    string(status),
		DeliverableCompleted: completed,
	}, nil
}

// buildRecord extracts counters from the platform's evidence items and
// assembles one metrics record. Each item gets a bounded number of extraction
// attempts; when every item fails the record is kept with zeroed counters and
// ai_extracted=false for manual verification later.
func (s *MetricsFlowImpl) buildRecord(ctx context.Context, deliverable *models.Deliverable, platform string, evidence []string, now time.Time) *models.MetricsRecord {
	record := &models.MetricsRecord{
		DeliverableID: deliverable.ID,
		CreatorID:     deliverable.CreatorID,
		CampaignID:    deliverable.CampaignID,
		Platform:      platform,
		EvidenceCount: len(evidence),
		SubmittedAt:   now,
	}

	for _, item := range evidence {
		result := s.extractWithRetry(ctx, item, platform)
		if result == nil {
			continue
		}

		record.AIExtracted = true
		if result.Confidence != nil {
			if record.AIConfidence == nil || *result.Confidence > *record.AIConfidence {
				record.AIConfidence = result.Confidence
			}
		}

		// Screenshots of the same post overlap; the largest observed value
		// per counter wins.
		record.Views = maxU64(record.Views, result.Views)
		record.Likes = maxU64(record.Likes, result.Likes)
		record.Comments = maxU64(record.Comments, result.Comments)
		record.Shares = maxU64(record.Shares, result.Shares)
		record.Saves = maxU64(record.Saves, result.Saves)
	}

	return record
}

// extractWithRetry gives the extraction service a bounded number of attempts
// for one evidence item. nil means the item could not be read.
func (s *MetricsFlowImpl) extractWithRetry(ctx context.Context, evidenceRef, platform string) *services.ExtractionResult {
	if s.extractor == nil {
		return nil
	}
	for attempt := 0; attempt < utils.AIExtractionAttempts; attempt++ {
		result, err := s.extractor.Extract(ctx, evidenceRef, platform)
		if err == nil && result != nil {
			return result
		}
		if ctx.Err() != nil {
			return nil
		}
	}
	return nil
}

// coversAll reports whether covered contains every required platform
func coversAll(covered, required []string) bool {
	set := make(map[string]bool, len(covered))
	for _, p := range covered {
		set[p] = true
	}
	for _, p := range required {
		if !set[p] {
			return false
		}
	}
	return true
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
