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

// DeliverableHandlerInterface defines the contract for deliverable handlers
type DeliverableHandlerInterface interface {
	Publish(c fiber.Ctx) error
	Submit(c fiber.Ctx) error
	Review(c fiber.Ctx) error
	Get(c fiber.Ctx) error
}

// DeliverableHandler handles deliverable-related HTTP requests
type DeliverableHandler struct {
	deliverableFlow businessflow.DeliverableFlow
	validator       *validator.Validate
}

func (h *DeliverableHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *DeliverableHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewDeliverableHandler creates a new deliverable handler
func NewDeliverableHandler(deliverableFlow businessflow.DeliverableFlow) *DeliverableHandler {
	return &DeliverableHandler{
		deliverableFlow: deliverableFlow,
		validator:       validator.New(),
	}
}

// Publish handles a creator recording the live post URL
// @Summary Publish Deliverable
// @Description Record the live post URL for a deliverable
// @Tags Deliverables
// @Accept json
// @Produce json
// @Param uuid path string true "Deliverable UUID"
// @Param request body dto.PublishDeliverableRequest true "Post URL"
// @Success 200 {object} dto.APIResponse{data=dto.PublishDeliverableResponse} "Deliverable published successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 401 {object} dto.APIResponse "Unauthorized - creator not found or inactive"
// @Failure 403 {object} dto.APIResponse "Forbidden - deliverable belongs to another creator"
// @Failure 404 {object} dto.APIResponse "Deliverable not found"
// @Failure 409 {object} dto.APIResponse "Deliverable already published or in the wrong status"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/deliverables/{uuid}/publish [post]
func (h *DeliverableHandler) Publish(c fiber.Ctx) error {
	deliverableUUID := c.Params("uuid")
	if deliverableUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Deliverable UUID is required", "MISSING_DELIVERABLE_UUID", nil)
	}

	var req dto.PublishDeliverableRequest
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

	result, err := h.deliverableFlow.Publish(h.createRequestContext(c, "/api/v1/deliverables/"+deliverableUUID+"/publish"), &req, metadata)
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
		if businessflow.IsPostURLRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Post URL is required", "POST_URL_REQUIRED", nil)
		}
		if businessflow.IsAlreadyPublished(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Deliverable already has a published URL", "ALREADY_PUBLISHED", nil)
		}
		if businessflow.IsInvalidStatusTransition(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Deliverable cannot be published in its current status", "INVALID_STATUS_TRANSITION", nil)
		}

		log.Println("Deliverable publish failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Deliverable publish failed", "DELIVERABLE_PUBLISH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Deliverable published successfully", result)
}

// Submit handles a creator submitting for brand review
// @Summary Submit Deliverable
// @Description Submit a published deliverable for brand review
// @Tags Deliverables
// @Produce json
// @Param uuid path string true "Deliverable UUID"
// @Success 200 {object} dto.APIResponse{data=dto.SubmitDeliverableResponse} "Deliverable submitted successfully"
// @Failure 401 {object} dto.APIResponse "Unauthorized - creator not found or inactive"
// @Failure 403 {object} dto.APIResponse "Forbidden - deliverable belongs to another creator"
// @Failure 404 {object} dto.APIResponse "Deliverable not found"
// @Failure 409 {object} dto.APIResponse "Deliverable has no published URL or is in the wrong status"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/deliverables/{uuid}/submit [post]
func (h *DeliverableHandler) Submit(c fiber.Ctx) error {
	deliverableUUID := c.Params("uuid")
	if deliverableUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Deliverable UUID is required", "MISSING_DELIVERABLE_UUID", nil)
	}

	creatorID, ok := c.Locals("subject_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Creator ID not found in context", "MISSING_CREATOR_ID", nil)
	}

	req := dto.SubmitDeliverableRequest{
		DeliverableUUID: deliverableUUID,
		CreatorID:       creatorID,
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.deliverableFlow.Submit(h.createRequestContext(c, "/api/v1/deliverables/"+deliverableUUID+"/submit"), &req, metadata)
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
		if businessflow.IsNotPublished(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Deliverable has no published URL yet", "NOT_PUBLISHED", nil)
		}
		if businessflow.IsInvalidStatusTransition(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Deliverable cannot be submitted in its current status", "INVALID_STATUS_TRANSITION", nil)
		}

		log.Println("Deliverable submission failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Deliverable submission failed", "DELIVERABLE_SUBMISSION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Deliverable submitted successfully", result)
}

// Review handles the brand's review decision
// @Summary Review Deliverable
// @Description Approve a deliverable or request changes; approval opens the metrics window
// @Tags Deliverables
// @Accept json
// @Produce json
// @Param uuid path string true "Deliverable UUID"
// @Param request body dto.ReviewDeliverableRequest true "Review action and optional note"
// @Success 200 {object} dto.APIResponse{data=dto.ReviewDeliverableResponse} "Review recorded successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid review action"
// @Failure 401 {object} dto.APIResponse "Unauthorized - brand not found or inactive"
// @Failure 403 {object} dto.APIResponse "Forbidden - campaign belongs to another brand"
// @Failure 404 {object} dto.APIResponse "Deliverable not found"
// @Failure 409 {object} dto.APIResponse "Deliverable is not awaiting review"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/deliverables/{uuid}/review [post]
func (h *DeliverableHandler) Review(c fiber.Ctx) error {
	deliverableUUID := c.Params("uuid")
	if deliverableUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Deliverable UUID is required", "MISSING_DELIVERABLE_UUID", nil)
	}

	var req dto.ReviewDeliverableRequest
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

	brandID, ok := c.Locals("subject_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Brand ID not found in context", "MISSING_BRAND_ID", nil)
	}
	req.BrandID = brandID

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.deliverableFlow.Review(h.createRequestContext(c, "/api/v1/deliverables/"+deliverableUUID+"/review"), &req, metadata)
	if err != nil {
		if businessflow.IsBrandNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Brand not found", "BRAND_NOT_FOUND", nil)
		}
		if businessflow.IsAccountInactive(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Brand account is inactive", "ACCOUNT_INACTIVE", nil)
		}
		if businessflow.IsDeliverableNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Deliverable not found", "DELIVERABLE_NOT_FOUND", nil)
		}
		if businessflow.IsCampaignAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied: campaign belongs to another brand", "CAMPAIGN_ACCESS_DENIED", nil)
		}
		if businessflow.IsInvalidReviewAction(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid review action", "INVALID_REVIEW_ACTION", nil)
		}
		if businessflow.IsNotAwaitingReview(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Deliverable is not awaiting review", "NOT_AWAITING_REVIEW", nil)
		}

		log.Println("Deliverable review failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Deliverable review failed", "DELIVERABLE_REVIEW_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Review recorded successfully", result)
}

// Get handles fetching a single deliverable
// @Summary Get Deliverable
// @Description Get a deliverable by its UUID
// @Tags Deliverables
// @Produce json
// @Param uuid path string true "Deliverable UUID"
// @Success 200 {object} dto.APIResponse{data=dto.GetDeliverableResponse} "Deliverable retrieved successfully"
// @Failure 404 {object} dto.APIResponse "Deliverable not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/deliverables/{uuid} [get]
func (h *DeliverableHandler) Get(c fiber.Ctx) error {
	deliverableUUID := c.Params("uuid")
	if deliverableUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Deliverable UUID is required", "MISSING_DELIVERABLE_UUID", nil)
	}

	req := dto.GetDeliverableRequest{DeliverableUUID: deliverableUUID}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.deliverableFlow.Get(h.createRequestContext(c, "/api/v1/deliverables/"+deliverableUUID), &req, metadata)
	if err != nil {
		if businessflow.IsDeliverableNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Deliverable not found", "DELIVERABLE_NOT_FOUND", nil)
		}

		log.Println("Deliverable fetch failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Deliverable fetch failed", "DELIVERABLE_FETCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Deliverable retrieved successfully", result)
}

func (h *DeliverableHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}
