package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/martalon/colmena/app/middleware"
	"github.com/martalon/colmena/app/services"
	"github.com/martalon/colmena/config"
	"github.com/martalon/colmena/models"
	"github.com/martalon/colmena/repository"
	"github.com/martalon/colmena/utils"
)

// Reminder escalation tiers. The day-7 and day-8 warnings are single-day
// windows aimed at the creator only; the standard tier also copies the admin.
type reminderTier int

const (
	tierNone reminderTier = iota
	tierStandard
	tierDay7
	tierDay8Final
)

// tierFor maps days-until-deadline onto an escalation tier. Negative values
// mean the deadline has passed.
func tierFor(daysUntil int) reminderTier {
	switch {
	case daysUntil == utils.ReminderDay8Final:
		return tierDay8Final
	case daysUntil == utils.ReminderDay7:
		return tierDay7
	case daysUntil >= utils.ReminderStandardMin && daysUntil <= utils.ReminderStandardMax:
		return tierStandard
	default:
		return tierNone
	}
}

// ReminderScheduler runs the daily deadline sweeps over deliverables: one for
// missing post URLs against the content deadline, one for missing metrics
// against the submission window. It fires once per day at a fixed local time
// and is safe to re-run within the same day (reminders may repeat, deadline
// state never duplicates).
type ReminderScheduler struct {
	deliverableRepo repository.DeliverableRepository
	metricsRepo     repository.MetricsRecordRepository
	auditRepo       repository.AuditLogRepository
	notifier        services.NotificationService
	logger          *log.Logger

	hour     int
	minute   int
	location *time.Location
}

// NewReminderScheduler creates the daily reminder scheduler
func NewReminderScheduler(
	deliverableRepo repository.DeliverableRepository,
	metricsRepo repository.MetricsRecordRepository,
	auditRepo repository.AuditLogRepository,
	notifier services.NotificationService,
	cfg config.SchedulerConfig,
) *ReminderScheduler {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil || loc == nil {
		loc = time.UTC
	}

	return &ReminderScheduler{
		deliverableRepo: deliverableRepo,
		metricsRepo:     metricsRepo,
		auditRepo:       auditRepo,
		notifier:        notifier,
		hour:            cfg.ReminderHour,
		minute:          cfg.ReminderMinute,
		location:        loc,
		logger:          newSchedulerLogger("reminder-scheduler", "reminder_scheduler.log"),
	}
}

// Start launches the daily loop in a background goroutine and returns a stop
// function. Each iteration sleeps until the next wall-clock fire time, runs
// both sweeps, and reschedules.
func (s *ReminderScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		for {
			now := utils.UTCNow()
			fire := utils.NextDailyFire(now, s.hour, s.minute, s.location)
			timer := time.NewTimer(fire.Sub(now))

			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			result, err := s.RunDailyReminders(ctx, utils.UTCNow())
			if err != nil {
				s.logger.Printf("reminder-scheduler: daily run failed: %v", err)
				continue
			}
			middleware.RecordSweep("reminders", result.Succeeded, result.Failed, result.Skipped)
			s.logger.Printf("reminder-scheduler: daily run processed=%d succeeded=%d failed=%d skipped=%d",
				result.Processed, result.Succeeded, result.Failed, result.Skipped)
		}
	}()

	return cancel
}

// RunDailyReminders executes the URL sweep and the metrics sweep against now.
// A deliverable lands in exactly one tier per sweep per day.
func (s *ReminderScheduler) RunDailyReminders(ctx context.Context, now time.Time) (RunResult, error) {
	var result RunResult

	urlResult, err := s.runURLSweep(ctx, now)
	if err != nil {
		return result, fmt.Errorf("url sweep: %w", err)
	}
	mergeResults(&result, urlResult)

	metricsResult, err := s.runMetricsSweep(ctx, now)
	if err != nil {
		return result, fmt.Errorf("metrics sweep: %w", err)
	}
	mergeResults(&result, metricsResult)

	return result, nil
}

// runURLSweep reminds creators still owing a post URL and marks overdue
// deliverables late. is_late is recomputed here each day, unlike is_on_time
// which is frozen at publish time.
func (s *ReminderScheduler) runURLSweep(ctx context.Context, now time.Time) (RunResult, error) {
	var result RunResult

	candidates, err := s.deliverableRepo.ListURLSweepCandidates(ctx)
	if err != nil {
		return result, err
	}

	for _, deliverable := range candidates {
		result.Processed++

		daysUntil := utils.DaysUntil(now, deliverable.ContentDeadline, s.location)

		if daysUntil < 0 && !deliverable.IsLate {
			if err := s.markLate(ctx, deliverable); err != nil {
				s.logger.Printf("reminder-scheduler: mark late failed for deliverable id=%d: %v", deliverable.ID, err)
			}
		}

		sent, err := s.remind(ctx, deliverable, tierFor(daysUntil), daysUntil, "content_deadline", deliverable.ContentDeadline)
		if err != nil {
			result.Failed++
			s.logger.Printf("reminder-scheduler: url reminder failed for deliverable id=%d: %v", deliverable.ID, err)
			continue
		}
		if !sent {
			result.Skipped++
			continue
		}
		result.Succeeded++
	}

	return result, nil
}

// runMetricsSweep reminds creators whose metrics window is closing and still
// misses at least one required platform.
func (s *ReminderScheduler) runMetricsSweep(ctx context.Context, now time.Time) (RunResult, error) {
	var result RunResult

	candidates, err := s.deliverableRepo.ListMetricsSweepCandidates(ctx)
	if err != nil {
		return result, err
	}

	for _, deliverable := range candidates {
		result.Processed++

		if deliverable.MetricsWindowClosesAt == nil {
			result.Skipped++
			continue
		}

		covered, err := s.metricsRepo.PlatformsWithRecords(ctx, deliverable.ID)
		if err != nil {
			result.Failed++
			s.logger.Printf("reminder-scheduler: metrics lookup failed for deliverable id=%d: %v", deliverable.ID, err)
			continue
		}
		if len(missingPlatforms(covered, deliverable.RequiredPlatforms)) == 0 {
			result.Skipped++
			continue
		}

		daysUntil := utils.DaysUntil(now, *deliverable.MetricsWindowClosesAt, s.location)

		sent, err := s.remind(ctx, deliverable, tierFor(daysUntil), daysUntil, "metrics_deadline", *deliverable.MetricsWindowClosesAt)
		if err != nil {
			result.Failed++
			s.logger.Printf("reminder-scheduler: metrics reminder failed for deliverable id=%d: %v", deliverable.ID, err)
			continue
		}
		if !sent {
			result.Skipped++
			continue
		}
		result.Succeeded++
	}

	return result, nil
}

// remind dispatches the notifications for one deliverable's tier. Returns
// false when the tier calls for no action or no recipient is known.
func (s *ReminderScheduler) remind(ctx context.Context, deliverable *models.Deliverable, tier reminderTier, daysUntil int, kind string, deadline time.Time) (bool, error) {
	if tier == tierNone {
		return false, nil
	}
	if deliverable.Creator == nil || deliverable.Creator.Email == "" {
		return false, nil
	}

	templateKey := kind + "_reminder"
	switch tier {
	case tierDay7:
		templateKey = kind + "_day7_warning"
	case tierDay8Final:
		templateKey = kind + "_day8_final_warning"
	}

	templateCtx := map[string]string{
		"recipient":  deliverable.Creator.Email,
		"deadline":   deadline.Format(time.RFC3339),
		"days_until": fmt.Sprintf("%d", daysUntil),
	}
	if deliverable.Campaign != nil {
		templateCtx["campaign_title"] = deliverable.Campaign.Title
	}

	if err := s.notifier.Notify(ctx, services.ChannelEmail, services.RoleCreator, templateKey, templateCtx); err != nil {
		return false, err
	}

	if tier == tierStandard {
		if err := s.notifier.Notify(ctx, services.ChannelEmail, services.RoleAdmin, templateKey, templateCtx); err != nil {
			// The creator reminder already went out; an admin copy failure
			// is logged, not escalated.
			s.logger.Printf("reminder-scheduler: admin copy failed for deliverable id=%d: %v", deliverable.ID, err)
		}
	}

	desc := fmt.Sprintf("Sent %s to creator for deliverable %s", templateKey, deliverable.UUID.String())
	entry := &models.AuditLog{
		ActorType:     models.AuditActorSystem,
		Action:        models.AuditActionReminderSent,
		CampaignID:    &deliverable.CampaignID,
		DeliverableID: &deliverable.ID,
		Description:   &desc,
		Success:       true,
	}
	if err := s.auditRepo.Save(ctx, entry); err != nil {
		s.logger.Printf("reminder-scheduler: audit write failed for deliverable id=%d: %v", deliverable.ID, err)
	}

	return true, nil
}

// markLate flips is_late on an overdue unpublished deliverable. The status
// guard keeps the write from landing after a concurrent publish.
func (s *ReminderScheduler) markLate(ctx context.Context, deliverable *models.Deliverable) error {
	_, err := s.deliverableRepo.UpdateStatusIf(ctx, deliverable.ID,
		[]models.DeliverableStatus{
			models.DeliverableStatusAwaitingPublish,
			models.DeliverableStatusChangesRequested,
		},
		map[string]any{
			"is_late": true,
		})
	return err
}

// missingPlatforms returns the required platforms without a metrics record
func missingPlatforms(covered, required []string) []string {
	set := make(map[string]bool, len(covered))
	for _, p := range covered {
		set[p] = true
	}

	var missing []string
	for _, p := range required {
		if !set[p] {
			missing = append(missing, p)
		}
	}
	return missing
}

func mergeResults(dst *RunResult, src RunResult) {
	dst.Processed += src.Processed
	dst.Succeeded += src.Succeeded
	dst.Failed += src.Failed
	dst.Skipped += src.Skipped
}
