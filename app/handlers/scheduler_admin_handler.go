package handlers

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/martalon/colmena/app/dto"
	"github.com/martalon/colmena/app/scheduler"
	"github.com/martalon/colmena/utils"
)

// ContractJobs is the manual-trigger surface of the contract scheduler
type ContractJobs interface {
	ReloadCampaignSlots(ctx context.Context, now time.Time) (scheduler.RunResult, error)
	AutoRejectExpiredApplications(ctx context.Context, now time.Time) (scheduler.RunResult, error)
}

// ReminderJobs is the manual-trigger surface of the reminder scheduler
type ReminderJobs interface {
	RunDailyReminders(ctx context.Context, now time.Time) (scheduler.RunResult, error)
}

// SchedulerAdminHandlerInterface defines the contract for manual scheduler triggers
type SchedulerAdminHandlerInterface interface {
	RunContractReload(c fiber.Ctx) error
	RunAutoReject(c fiber.Ctx) error
	RunDailyReminders(c fiber.Ctx) error
}

// SchedulerAdminHandler exposes the scheduler jobs to operators. Every job is
// idempotent, so re-triggering after a partial failure is safe.
type SchedulerAdminHandler struct {
	contractJobs ContractJobs
	reminderJobs ReminderJobs
}

func (h *SchedulerAdminHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *SchedulerAdminHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewSchedulerAdminHandler creates a new scheduler admin handler
func NewSchedulerAdminHandler(contractJobs ContractJobs, reminderJobs ReminderJobs) *SchedulerAdminHandler {
	return &SchedulerAdminHandler{
		contractJobs: contractJobs,
		reminderJobs: reminderJobs,
	}
}

// RunContractReload triggers the contract slot reload sweep
// @Summary Run Contract Reload
// @Description Manually trigger the contract slot reload sweep
// @Tags Admin
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.SchedulerRunResponse} "Sweep completed"
// @Failure 500 {object} dto.APIResponse "Sweep failed"
// @Router /api/v1/admin/scheduler/contract-reload [post]
func (h *SchedulerAdminHandler) RunContractReload(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := h.contractJobs.ReloadCampaignSlots(ctx, utils.UTCNow())
	if err != nil {
		log.Println("Manual contract reload failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Contract reload sweep failed", "CONTRACT_RELOAD_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Contract reload sweep completed", toSchedulerRunResponse("Contract reload sweep completed", result))
}

// RunAutoReject triggers the expired-application auto-rejection sweep
// @Summary Run Auto Reject
// @Description Manually trigger auto-rejection of applications pending on expired campaigns
// @Tags Admin
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.SchedulerRunResponse} "Sweep completed"
// @Failure 500 {object} dto.APIResponse "Sweep failed"
// @Router /api/v1/admin/scheduler/auto-reject [post]
func (h *SchedulerAdminHandler) RunAutoReject(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := h.contractJobs.AutoRejectExpiredApplications(ctx, utils.UTCNow())
	if err != nil {
		log.Println("Manual auto-reject failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Auto-reject sweep failed", "AUTO_REJECT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Auto-reject sweep completed", toSchedulerRunResponse("Auto-reject sweep completed", result))
}

// RunDailyReminders triggers the daily deadline reminder sweeps
// @Summary Run Daily Reminders
// @Description Manually trigger the URL and metrics deadline reminder sweeps
// @Tags Admin
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.SchedulerRunResponse} "Sweep completed"
// @Failure 500 {object} dto.APIResponse "Sweep failed"
// @Router /api/v1/admin/scheduler/reminders [post]
func (h *SchedulerAdminHandler) RunDailyReminders(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := h.reminderJobs.RunDailyReminders(ctx, utils.UTCNow())
	if err != nil {
		log.Println("Manual reminder run failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Reminder sweep failed", "REMINDER_SWEEP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Reminder sweep completed", toSchedulerRunResponse("Reminder sweep completed", result))
}

func toSchedulerRunResponse(message string, result scheduler.RunResult) dto.SchedulerRunResponse {
	return dto.SchedulerRunResponse{
		Message:   message,
		Processed: result.Processed,
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
		Skipped:   result.Skipped,
	}
}
