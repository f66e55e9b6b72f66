package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/martalon/colmena/app/middleware"
	"github.com/martalon/colmena/app/services"
	"github.com/martalon/colmena/config"
	"github.com/martalon/colmena/models"
	"github.com/martalon/colmena/repository"
	"github.com/martalon/colmena/utils"
)

// ContractScheduler owns the two campaign maintenance jobs: monthly slot
// reloads for active brand contracts, and auto-rejection of applications
// left pending after a contract has been expired past its grace period.
// Both entry points take now as a parameter and are idempotent, so an
// operator can invoke them manually without waiting for the ticker.
type ContractScheduler struct {
	campaignRepo    repository.CampaignRepository
	applicationRepo repository.ApplicationRepository
	auditRepo       repository.AuditLogRepository
	notifier        services.NotificationService
	logger          *log.Logger
	interval        time.Duration

	db *gorm.DB
}

// NewContractScheduler creates the contract maintenance scheduler
func NewContractScheduler(
	campaignRepo repository.CampaignRepository,
	applicationRepo repository.ApplicationRepository,
	auditRepo repository.AuditLogRepository,
	notifier services.NotificationService,
	db *gorm.DB,
	cfg config.SchedulerConfig,
) *ContractScheduler {
	interval := cfg.ContractReloadInterval
	if interval <= 0 {
		interval = time.Hour
	}

	return &ContractScheduler{
		campaignRepo:    campaignRepo,
		applicationRepo: applicationRepo,
		auditRepo:       auditRepo,
		notifier:        notifier,
		db:              db,
		interval:        interval,
		logger:          newSchedulerLogger("contract-scheduler", "contract_scheduler.log"),
	}
}

// Start launches the scheduler loop in a background goroutine and returns a stop function
func (s *ContractScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (s *ContractScheduler) runOnce(ctx context.Context) {
	now := utils.UTCNow()

	reload, err := s.ReloadCampaignSlots(ctx, now)
	if err != nil {
		s.logger.Printf("contract-scheduler: slot reload sweep failed: %v", err)
	} else {
		middleware.RecordSweep("contract_reload", reload.Succeeded, reload.Failed, reload.Skipped)
		if reload.Processed > 0 {
			s.logger.Printf("contract-scheduler: slot reload processed=%d succeeded=%d failed=%d skipped=%d",
				reload.Processed, reload.Succeeded, reload.Failed, reload.Skipped)
		}
	}

	reject, err := s.AutoRejectExpiredApplications(ctx, now)
	if err != nil {
		s.logger.Printf("contract-scheduler: auto-reject sweep failed: %v", err)
	} else {
		middleware.RecordSweep("auto_reject", reject.Succeeded, reject.Failed, reject.Skipped)
		if reject.Processed > 0 {
			s.logger.Printf("contract-scheduler: auto-reject processed=%d succeeded=%d failed=%d skipped=%d",
				reject.Processed, reject.Succeeded, reject.Failed, reject.Skipped)
		}
	}
}

// ReloadCampaignSlots grows slot capacity for every campaign whose contract
// reload date has arrived and advances the reload date by one clamped month.
// Contracts past their end date are deactivated instead, which also hides
// the campaign from creators. The sweep is idempotent: once the reload date
// moves past now, re-running with the same now selects nothing.
func (s *ContractScheduler) ReloadCampaignSlots(ctx context.Context, now time.Time) (RunResult, error) {
	var result RunResult

	campaigns, err := s.campaignRepo.ListDueForContractReload(ctx, now)
	if err != nil {
		return result, fmt.Errorf("list due campaigns: %w", err)
	}

	for _, campaign := range campaigns {
		result.Processed++

		if campaign.Contract.NextReloadDate == nil {
			result.Skipped++
			continue
		}

		if err := s.reloadOne(ctx, campaign, now); err != nil {
			result.Failed++
			s.logger.Printf("contract-scheduler: reload failed for campaign id=%d: %v", campaign.ID, err)
			continue
		}
		result.Succeeded++
	}

	return result, nil
}

func (s *ContractScheduler) reloadOne(ctx context.Context, campaign *models.Campaign, now time.Time) error {
	contract := campaign.Contract

	if contract.Expired(now) {
		contract.IsActive = false
		contract.NextReloadDate = nil

		err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
			if err := s.campaignRepo.UpdateContract(txCtx, campaign.ID, contract); err != nil {
				return err
			}
			return s.campaignRepo.SetVisibleToCreators(txCtx, campaign.ID, false)
		})
		if err != nil {
			return err
		}

		s.logger.Printf("contract-scheduler: deactivated expired contract for campaign id=%d", campaign.ID)
		s.audit(ctx, models.AuditActionContractSlotsReloaded, campaign.ID,
			fmt.Sprintf("Contract expired and deactivated for campaign %s", campaign.UUID.String()))
		return nil
	}

	next := utils.AddMonthClamped(*contract.NextReloadDate)
	if contract.EndDate != nil && next.After(*contract.EndDate) {
		// The contract ends before another reload would come due.
		contract.NextReloadDate = nil
	} else {
		contract.NextReloadDate = &next
	}

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.campaignRepo.GrowSlots(txCtx, campaign.ID, contract.MonthlyDeliverables, true); err != nil {
			return err
		}
		return s.campaignRepo.UpdateContract(txCtx, campaign.ID, contract)
	})
	if err != nil {
		return err
	}

	s.logger.Printf("contract-scheduler: reloaded %d slots for campaign id=%d", contract.MonthlyDeliverables, campaign.ID)
	s.audit(ctx, models.AuditActionContractSlotsReloaded, campaign.ID,
		fmt.Sprintf("Reloaded %d slots for campaign %s", contract.MonthlyDeliverables, campaign.UUID.String()))

	if campaign.Brand != nil && campaign.Brand.ContactEmail != "" {
		_ = s.notifier.Notify(ctx, services.ChannelEmail, services.RoleBrand, "contract_slots_reloaded", map[string]string{
			"recipient":      campaign.Brand.ContactEmail,
			"campaign_title": campaign.Title,
			"slots_added":    fmt.Sprintf("%d", contract.MonthlyDeliverables),
		})
	}

	return nil
}

// AutoRejectExpiredApplications rejects applications still pending on
// campaigns whose contract has been inactive past the grace period. The
// sticky auto_rejected flag keeps repeated sweeps from touching the same
// application twice.
func (s *ContractScheduler) AutoRejectExpiredApplications(ctx context.Context, now time.Time) (RunResult, error) {
	var result RunResult

	cutoff := now.AddDate(0, 0, -utils.AutoRejectGraceDays)
	campaigns, err := s.campaignRepo.ListExpiredContractCampaigns(ctx, cutoff)
	if err != nil {
		return result, fmt.Errorf("list expired campaigns: %w", err)
	}
	if len(campaigns) == 0 {
		return result, nil
	}

	campaignIDs := make([]uint, 0, len(campaigns))
	for _, c := range campaigns {
		campaignIDs = append(campaignIDs, c.ID)
	}

	applications, err := s.applicationRepo.ListPendingForCampaigns(ctx, campaignIDs)
	if err != nil {
		return result, fmt.Errorf("list pending applications: %w", err)
	}

	for _, application := range applications {
		result.Processed++

		rejected, err := s.rejectOne(ctx, application, now)
		if err != nil {
			result.Failed++
			s.logger.Printf("contract-scheduler: auto-reject failed for application id=%d: %v", application.ID, err)
			continue
		}
		if !rejected {
			// Decided by someone else between listing and the guarded write.
			result.Skipped++
			continue
		}
		result.Succeeded++
	}

	return result, nil
}

func (s *ContractScheduler) rejectOne(ctx context.Context, application *models.Application, now time.Time) (bool, error) {
	rejected, err := s.applicationRepo.UpdateStatusIf(ctx, application.ID,
		[]models.ApplicationStatus{models.ApplicationStatusApplied, models.ApplicationStatusShortlisted},
		map[string]any{
			"status":           models.ApplicationStatusRejected,
			"rejected_at":      now,
			"rejection_reason": utils.AutoRejectReason,
			"auto_rejected":    true,
		})
	if err != nil || !rejected {
		return false, err
	}

	desc := fmt.Sprintf("Auto-rejected application %s", application.UUID.String())
	entry := &models.AuditLog{
		ActorType:     models.AuditActorSystem,
		Action:        models.AuditActionApplicationAutoRejected,
		CampaignID:    &application.CampaignID,
		ApplicationID: &application.ID,
		Description:   &desc,
		Success:       true,
	}
	if err := s.auditRepo.Save(ctx, entry); err != nil {
		s.logger.Printf("contract-scheduler: audit write failed for application id=%d: %v", application.ID, err)
	}

	if application.Creator != nil && application.Creator.Email != "" {
		_ = s.notifier.Notify(ctx, services.ChannelEmail, services.RoleCreator, "application_auto_rejected", map[string]string{
			"recipient": application.Creator.Email,
			"reason":    utils.AutoRejectReason,
		})
	}

	return true, nil
}

func (s *ContractScheduler) audit(ctx context.Context, action string, campaignID uint, description string) {
	entry := &models.AuditLog{
		ActorType:   models.AuditActorSystem,
		Action:      action,
		CampaignID:  &campaignID,
		Description: &description,
		Success:     true,
	}
	if err := s.auditRepo.Save(ctx, entry); err != nil {
		s.logger.Printf("contract-scheduler: audit write failed for campaign id=%d: %v", campaignID, err)
	}
}
