package handlers

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/martalon/colmena/app/dto"
	businessflow "github.com/martalon/colmena/business_flow"
)

// MetricsHandlerInterface defines the contract for metrics handlers
type MetricsHandlerInterface interface {
	SubmitMetrics(c fiber.Ctx) error
}

// MetricsHandler handles performance metrics HTTP requests
type MetricsHandler struct {
	metricsFlow businessflow.MetricsFlow
	validator   *validator.Validate
}

func (h *MetricsHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *MetricsHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(metricsFlow businessflow.MetricsFlow) *MetricsHandler {
	return &MetricsHandler{
		metricsFlow: metricsFlow,
		validator:   validator.New(),
	}
}

// SubmitMetrics handles a creator submitting per-platform evidence
// @Summary Submit Metrics
// @Description Submit evidence screenshots per platform; counters are extracted and one record is created per platform
// @Tags Metrics
// @Accept json
// @Produce json
// @Param uuid path string true "Deliverable UUID"
// @Param request body dto.SubmitMetricsRequest true "Evidence per platform"
// @Success 201 {object} dto.APIResponse{data=dto.SubmitMetricsResponse} "Metrics submitted successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 401 {object} dto.APIResponse "Unauthorized - creator not found or inactive"
// @Failure 403 {object} dto.APIResponse "Forbidden - deliverable belongs to another creator"
// @Failure 404 {object} dto.APIResponse "Deliverable not found"
// @Failure 409 {object} dto.APIResponse "Metrics already submitted for a platform"
// @Failure 422 {object} dto.APIResponse "Metrics window is not open or platform not required"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/deliverables/{uuid}/metrics [post]
func (h *MetricsHandler) SubmitMetrics(c fiber.Ctx) error {
	deliverableUUID := c.Params("uuid")
	if deliverableUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Deliverable UUID is required", "MISSING_DELIVERABLE_UUID", nil)
	}

	var req dto.SubmitMetricsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.DeliverableUUID = deliverableUUID

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	creatorID, ok := c.Locals("subject_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Creator ID not found in context", "MISSING_CREATOR_ID", nil)
	}
	req.CreatorID = creatorID

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	// Extraction calls an upstream AI collaborator, so this endpoint gets a
	// longer budget than the rest of the API.
	result, err := h.metricsFlow.SubmitMetrics(h.createRequestContext(c, "/api/v1/deliverables/"+deliverableUUID+"/metrics"), &req, metadata)
	if err != nil {
		if businessflow.IsCreatorNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Creator not found", "CREATOR_NOT_FOUND", nil)
		}
		if businessflow.IsAccountInactive(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Creator account is inactive", "ACCOUNT_INACTIVE", nil)
		}
		if businessflow.IsDeliverableNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Deliverable not found", "DELIVERABLE_NOT_FOUND", nil)
		}
		if businessflow.IsCampaignAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied: deliverable belongs to another creator", "DELIVERABLE_ACCESS_DENIED", nil)
		}
		if businessflow.IsMetricsWindowNotOpen(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Metrics submission window is not open", "METRICS_WINDOW_NOT_OPEN", nil)
		}
		if businessflow.IsPlatformNotRequired(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Platform is not part of the campaign requirements", "PLATFORM_NOT_REQUIRED", nil)
		}
		if businessflow.IsEvidenceRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "At least one evidence item is required per platform", "EVIDENCE_REQUIRED", nil)
		}
		if businessflow.IsMetricsAlreadySubmitted(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Metrics already submitted for this platform", "METRICS_ALREADY_SUBMITTED", nil)
		}

		log.Println("Metrics submission failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Metrics submission failed", "METRICS_SUBMISSION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Metrics submitted successfully", result)
}

func (h *MetricsHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 60*time.Second)
}
