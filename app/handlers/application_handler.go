package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/martalon/colmena/app/dto"
	"github.com/martalon/colmena/app/middleware"
	businessflow "github.com/martalon/colmena/business_flow"
)

// ApplicationHandlerInterface defines the contract for application handlers
type ApplicationHandlerInterface interface {
	Apply(c fiber.Ctx) error
	Confirm(c fiber.Ctx) error
	Reject(c fiber.Ctx) error
	Cancel(c fiber.Ctx) error
	ListForCampaign(c fiber.Ctx) error
}

// ApplicationHandler handles application-related HTTP requests
type ApplicationHandler struct {
	applicationFlow businessflow.ApplicationFlow
	validator       *validator.Validate
}

func (h *ApplicationHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *ApplicationHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewApplicationHandler creates a new application handler
func NewApplicationHandler(applicationFlow businessflow.ApplicationFlow) *ApplicationHandler {
	return &ApplicationHandler{
		applicationFlow: applicationFlow,
		validator:       validator.New(),
	}
}

// Apply handles a creator applying to a campaign
// @Summary Apply to Campaign
// @Description Submit a creator application to a live campaign
// @Tags Applications
// @Accept json
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Param request body dto.ApplyRequest false "Optional platform and motivation"
// @Success 201 {object} dto.APIResponse{data=dto.ApplyResponse} "Application submitted successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 401 {object} dto.APIResponse "Unauthorized - creator not found or inactive"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 409 {object} dto.APIResponse "An active application already exists"
// @Failure 422 {object} dto.APIResponse "Campaign is not accepting applications"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{uuid}/applications [post]
func (h *ApplicationHandler) Apply(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	var req dto.ApplyRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
	}
	req.CampaignUUID = campaignUUID

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

	result, err := h.applicationFlow.Apply(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/applications"), &req, metadata)
	if err != nil {
		if businessflow.IsCreatorNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Creator not found", "CREATOR_NOT_FOUND", nil)
		}
		if businessflow.IsAccountInactive(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Creator account is inactive", "ACCOUNT_INACTIVE", nil)
		}
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsCampaignNotAccepting(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Campaign is not accepting applications", "CAMPAIGN_NOT_ACCEPTING", nil)
		}
		if businessflow.IsCampaignWindowClosed(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Campaign applications window is closed", "CAMPAIGN_WINDOW_CLOSED", nil)
		}
		if businessflow.IsApplicationAlreadyActive(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "An active application already exists for this campaign", "APPLICATION_ALREADY_ACTIVE", nil)
		}
		if businessflow.IsPlatformNotRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Platform is not part of the campaign requirements", "PLATFORM_NOT_REQUIRED", nil)
		}

		log.Println("Application failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Application failed", "APPLICATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Application submitted successfully", result)
}

// Confirm handles the brand confirming an applicant. Confirmation reserves a
// slot and creates the deliverable.
// @Summary Confirm Application
// @Description Confirm an applicant, reserving a campaign slot and creating the deliverable
// @Tags Applications
// @Produce json
// @Param uuid path string true "Application UUID"
// @Success 200 {object} dto.APIResponse{data=dto.ConfirmApplicationResponse} "Application confirmed successfully"
// @Failure 401 {object} dto.APIResponse "Unauthorized - brand not found or inactive"
// @Failure 403 {object} dto.APIResponse "Forbidden - campaign belongs to another brand"
// @Failure 404 {object} dto.APIResponse "Application not found"
// @Failure 409 {object} dto.APIResponse "Application is not awaiting a decision or no slots available"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/applications/{uuid}/confirm [post]
func (h *ApplicationHandler) Confirm(c fiber.Ctx) error {
	applicationUUID := c.Params("uuid")
	if applicationUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Application UUID is required", "MISSING_APPLICATION_UUID", nil)
	}

	brandID, ok := c.Locals("subject_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Brand ID not found in context", "MISSING_BRAND_ID", nil)
	}

	req := dto.ConfirmApplicationRequest{
		ApplicationUUID: applicationUUID,
		BrandID:         brandID,
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.applicationFlow.Confirm(h.createRequestContext(c, "/api/v1/applications/"+applicationUUID+"/confirm"), &req, metadata)
	if err != nil {
		if businessflow.IsBrandNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Brand not found", "BRAND_NOT_FOUND", nil)
		}
		if businessflow.IsAccountInactive(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Brand account is inactive", "ACCOUNT_INACTIVE", nil)
		}
		if businessflow.IsApplicationNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Application not found", "APPLICATION_NOT_FOUND", nil)
		}
		if businessflow.IsCampaignAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied: campaign belongs to another brand", "CAMPAIGN_ACCESS_DENIED", nil)
		}
		if businessflow.IsApplicationNotPending(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Application is not awaiting a decision", "APPLICATION_NOT_PENDING", nil)
		}
		if businessflow.IsNoSlotsAvailable(err) {
			middleware.RecordSlotReservation(false)
			return h.ErrorResponse(c, fiber.StatusConflict, "No slots available on this campaign", "NO_SLOTS_AVAILABLE", nil)
		}

		log.Println("Application confirmation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Application confirmation failed", "APPLICATION_CONFIRMATION_FAILED", nil)
	}

	middleware.RecordSlotReservation(true)
	return h.SuccessResponse(c, fiber.StatusOK, "Application confirmed successfully", result)
}

// Reject handles the brand rejecting an applicant
// @Summary Reject Application
// @Description Reject an applicant with an optional reason
// @Tags Applications
// @Accept json
// @Produce json
// @Param uuid path string true "Application UUID"
// @Param request body dto.RejectApplicationRequest false "Optional rejection reason"
// @Success 200 {object} dto.APIResponse{data=dto.RejectApplicationResponse} "Application rejected successfully"
// @Failure 401 {object} dto.APIResponse "Unauthorized - brand not found or inactive"
// @Failure 403 {object} dto.APIResponse "Forbidden - campaign belongs to another brand"
// @Failure 404 {object} dto.APIResponse "Application not found"
// @Failure 409 {object} dto.APIResponse "Application is not awaiting a decision"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/applications/{uuid}/reject [post]
func (h *ApplicationHandler) Reject(c fiber.Ctx) error {
	applicationUUID := c.Params("uuid")
	if applicationUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Application UUID is required", "MISSING_APPLICATION_UUID", nil)
	}

	var req dto.RejectApplicationRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
	}
	req.ApplicationUUID = applicationUUID

	brandID, ok := c.Locals("subject_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Brand ID not found in context", "MISSING_BRAND_ID", nil)
	}
	req.BrandID = brandID

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.applicationFlow.Reject(h.createRequestContext(c, "/api/v1/applications/"+applicationUUID+"/reject"), &req, metadata)
	if err != nil {
		if businessflow.IsBrandNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Brand not found", "BRAND_NOT_FOUND", nil)
		}
		if businessflow.IsAccountInactive(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Brand account is inactive", "ACCOUNT_INACTIVE", nil)
		}
		if businessflow.IsApplicationNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Application not found", "APPLICATION_NOT_FOUND", nil)
		}
		if businessflow.IsCampaignAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied: campaign belongs to another brand", "CAMPAIGN_ACCESS_DENIED", nil)
		}
		if businessflow.IsApplicationNotPending(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Application is not awaiting a decision", "APPLICATION_NOT_PENDING", nil)
		}

		log.Println("Application rejection failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Application rejection failed", "APPLICATION_REJECTION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Application rejected successfully", result)
}

// Cancel handles a creator withdrawing an application
// @Summary Cancel Application
// @Description Withdraw an application; a confirmed application releases its slot
// @Tags Applications
// @Produce json
// @Param uuid path string true "Application UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CancelApplicationResponse} "Application cancelled successfully"
// @Failure 401 {object} dto.APIResponse "Unauthorized - creator not found or inactive"
// @Failure 403 {object} dto.APIResponse "Forbidden - application belongs to another creator"
// @Failure 404 {object} dto.APIResponse "Application not found"
// @Failure 409 {object} dto.APIResponse "Application cannot be cancelled in its current status"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/applications/{uuid}/cancel [post]
func (h *ApplicationHandler) Cancel(c fiber.Ctx) error {
	applicationUUID := c.Params("uuid")
	if applicationUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Application UUID is required", "MISSING_APPLICATION_UUID", nil)
	}

	creatorID, ok := c.Locals("subject_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Creator ID not found in context", "MISSING_CREATOR_ID", nil)
	}

	req := dto.CancelApplicationRequest{
		ApplicationUUID: applicationUUID,
		CreatorID:       creatorID,
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.applicationFlow.Cancel(h.createRequestContext(c, "/api/v1/applications/"+applicationUUID+"/cancel"), &req, metadata)
	if err != nil {
		if businessflow.IsCreatorNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Creator not found", "CREATOR_NOT_FOUND", nil)
		}
		if businessflow.IsAccountInactive(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Creator account is inactive", "ACCOUNT_INACTIVE", nil)
		}
		if businessflow.IsApplicationNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Application not found", "APPLICATION_NOT_FOUND", nil)
		}
		if businessflow.IsCampaignAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied: application belongs to another creator", "APPLICATION_ACCESS_DENIED", nil)
		}
		if businessflow.IsInvalidStatusTransition(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Application cannot be cancelled in its current status", "INVALID_STATUS_TRANSITION", nil)
		}

		log.Println("Application cancellation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Application cancellation failed", "APPLICATION_CANCELLATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Application cancelled successfully", result)
}

// ListForCampaign handles the brand-facing application listing
// @Summary List Applications
// @Description List applications for one of the brand's campaigns
// @Tags Applications
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Param status query string false "Filter by status"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} dto.APIResponse{data=dto.ListApplicationsResponse} "Applications retrieved successfully"
// @Failure 401 {object} dto.APIResponse "Unauthorized - brand not found or inactive"
// @Failure 403 {object} dto.APIResponse "Forbidden - campaign belongs to another brand"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{uuid}/applications [get]
func (h *ApplicationHandler) ListForCampaign(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	brandID, ok := c.Locals("subject_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Brand ID not found in context", "MISSING_BRAND_ID", nil)
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "20"))

	req := dto.ListApplicationsRequest{
		CampaignUUID: campaignUUID,
		BrandID:      brandID,
		Page:         page,
		PageSize:     pageSize,
	}
	if status := c.Query("status"); status != "" {
		req.Status = &status
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.applicationFlow.ListForCampaign(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/applications"), &req, metadata)
	if err != nil {
		if businessflow.IsBrandNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Brand not found", "BRAND_NOT_FOUND", nil)
		}
		if businessflow.IsAccountInactive(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Brand account is inactive", "ACCOUNT_INACTIVE", nil)
		}
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsCampaignAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied: campaign belongs to another brand", "CAMPAIGN_ACCESS_DENIED", nil)
		}
		if businessflow.IsInvalidPage(err) || businessflow.IsInvalidPageSize(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid paging parameters", "INVALID_PAGING", nil)
		}

		log.Println("Application listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Application listing failed", "APPLICATION_LISTING_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Applications retrieved successfully", result)
}

func (h *ApplicationHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}
