// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/martalon/colmena/app/dto"
	businessflow "github.com/martalon/colmena/business_flow"
)

// CampaignHandlerInterface defines the contract for campaign handlers
type CampaignHandlerInterface interface {
	CreateCampaign(c fiber.Ctx) error
	PublishCampaign(c fiber.Ctx) error
	CloseCampaign(c fiber.Ctx) error
	GetCampaign(c fiber.Ctx) error
	ListOpenCampaigns(c fiber.Ctx) error
}

// CampaignHandler handles campaign-related HTTP requests
type CampaignHandler struct {
	campaignFlow businessflow.CampaignFlow
	validator    *validator.Validate
}

func (h *CampaignHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *CampaignHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaignFlow businessflow.CampaignFlow) *CampaignHandler {
	return &CampaignHandler{
		campaignFlow: campaignFlow,
		validator:    validator.New(),
	}
}

// CreateCampaign handles the campaign creation process
// @Summary Create Campaign
// @Description Create a new draft campaign with slots, requirements, and reward
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param request body dto.CreateCampaignRequest true "Campaign creation data"
// @Success 201 {object} dto.APIResponse{data=dto.CreateCampaignResponse} "Campaign created successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 401 {object} dto.APIResponse "Unauthorized - brand not found or inactive"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns [post]
func (h *CampaignHandler) CreateCampaign(c fiber.Ctx) error {
	var req dto.CreateCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	// Validate request
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	// Get client information
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	// Get authenticated brand ID from context
	brandID, ok := c.Locals("subject_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Brand ID not found in context", "MISSING_BRAND_ID", nil)
	}
	req.BrandID = brandID

	// Call business logic with proper context
	result, err := h.campaignFlow.CreateCampaign(h.createRequestContext(c, "/api/v1/campaigns"), &req, metadata)
	if err != nil {
		if businessflow.IsBrandNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Brand not found", "BRAND_NOT_FOUND", nil)
		}
		if businessflow.IsAccountInactive(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Brand account is inactive", "ACCOUNT_INACTIVE", nil)
		}
		if businessflow.IsCampaignTitleRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign title is required", "CAMPAIGN_TITLE_REQUIRED", nil)
		}
		if businessflow.IsCampaignPlatformsRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "At least one platform is required", "CAMPAIGN_PLATFORMS_REQUIRED", nil)
		}

		log.Println("Campaign creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign creation failed", "CAMPAIGN_CREATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Campaign created successfully", result)
}

// PublishCampaign handles taking a draft campaign live
// @Summary Publish Campaign
// @Description Take a draft campaign live so creators can see and apply to it
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.PublishCampaignResponse} "Campaign published successfully"
// @Failure 401 {object} dto.APIResponse "Unauthorized - brand not found or inactive"
// @Failure 403 {object} dto.APIResponse "Forbidden - campaign belongs to another brand"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 409 {object} dto.APIResponse "Campaign is not in a publishable status"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{uuid}/publish [post]
func (h *CampaignHandler) PublishCampaign(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	brandID, ok := c.Locals("subject_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Brand ID not found in context", "MISSING_BRAND_ID", nil)
	}

	req := dto.PublishCampaignRequest{
		UUID:    campaignUUID,
		BrandID: brandID,
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.PublishCampaign(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/publish"), &req, metadata)
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
		if businessflow.IsInvalidStatusTransition(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Campaign cannot be published in its current status", "INVALID_STATUS_TRANSITION", nil)
		}

		log.Println("Campaign publish failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign publish failed", "CAMPAIGN_PUBLISH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign published successfully", result)
}

// CloseCampaign handles closing a campaign
// @Summary Close Campaign
// @Description Close a campaign so it stops accepting applications
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Param request body dto.CloseCampaignRequest false "Optional close reason"
// @Success 200 {object} dto.APIResponse{data=dto.CloseCampaignResponse} "Campaign closed successfully"
// @Failure 401 {object} dto.APIResponse "Unauthorized - brand not found or inactive"
// @Failure 403 {object} dto.APIResponse "Forbidden - campaign belongs to another brand"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 409 {object} dto.APIResponse "Campaign is not in a closable status"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{uuid}/close [post]
func (h *CampaignHandler) CloseCampaign(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	var req dto.CloseCampaignRequest
	// The body is optional; a bare close carries no reason.
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
	}
	req.UUID = campaignUUID

	brandID, ok := c.Locals("subject_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Brand ID not found in context", "MISSING_BRAND_ID", nil)
	}
	req.BrandID = brandID

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.CloseCampaign(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/close"), &req, metadata)
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
		if businessflow.IsInvalidStatusTransition(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Campaign cannot be closed in its current status", "INVALID_STATUS_TRANSITION", nil)
		}

		log.Println("Campaign close failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign close failed", "CAMPAIGN_CLOSE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign closed successfully", result)
}

// GetCampaign handles fetching a single campaign
// @Summary Get Campaign
// @Description Get a campaign by its UUID
// @Tags Campaigns
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.GetCampaignResponse} "Campaign retrieved successfully"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{uuid} [get]
func (h *CampaignHandler) GetCampaign(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	req := dto.GetCampaignRequest{UUID: campaignUUID}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.GetCampaign(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID), &req, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}

		log.Println("Campaign fetch failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign fetch failed", "CAMPAIGN_FETCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign retrieved successfully", result)
}

// ListOpenCampaigns handles the creator-facing campaign listing
// @Summary List Open Campaigns
// @Description List live campaigns visible to creators with available slots
// @Tags Campaigns
// @Produce json
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} dto.APIResponse{data=dto.ListOpenCampaignsResponse} "Campaigns retrieved successfully"
// @Failure 400 {object} dto.APIResponse "Invalid paging parameters"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns [get]
func (h *CampaignHandler) ListOpenCampaigns(c fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "20"))

	req := dto.ListOpenCampaignsRequest{
		Page:     page,
		PageSize: pageSize,
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.ListOpenCampaigns(h.createRequestContext(c, "/api/v1/campaigns"), &req, metadata)
	if err != nil {
		if businessflow.IsInvalidPage(err) || businessflow.IsInvalidPageSize(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid paging parameters", "INVALID_PAGING", nil)
		}

		log.Println("Campaign listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign listing failed", "CAMPAIGN_LISTING_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaigns retrieved successfully", result)
}

func (h *CampaignHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}
