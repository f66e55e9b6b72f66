// Package businessflow contains the core business logic and use cases for collaboration workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Actor-related errors
	ErrCreatorNotFound = errors.New("creator not found")
	ErrBrandNotFound   = errors.New("brand not found")
	ErrAccountInactive = errors.New("account is inactive")

	// Campaign-related errors
	ErrCampaignNotFound          = errors.New("campaign not found")
	ErrCampaignAccessDenied      = errors.New("campaign access denied")
	ErrCampaignNotAccepting      = errors.New("campaign is not accepting applications")
	ErrCampaignWindowClosed      = errors.New("campaign applications window is closed")
	ErrCampaignTitleRequired     = errors.New("campaign title is required")
	ErrCampaignPlatformsRequired = errors.New("at least one platform is required")
	ErrInvalidStatusTransition   = errors.New("invalid status transition")

	// Slot capacity errors
	ErrNoSlotsAvailable = errors.New("no slots available")

	// Application-related errors
	ErrApplicationNotFound      = errors.New("application not found")
	ErrApplicationAlreadyActive = errors.New("an active application already exists for this campaign")
	ErrApplicationNotPending    = errors.New("application is not awaiting a decision")
	ErrApplicationNotConfirmed  = errors.New("application is not confirmed")
	ErrPlatformNotRequired      = errors.New("platform is not part of the campaign requirements")

	// Deliverable-related errors
	ErrDeliverableNotFound      = errors.New("deliverable not found")
	ErrPostURLRequired          = errors.New("post URL is required")
	ErrAlreadyPublished         = errors.New("deliverable already has a published URL")
	ErrNotPublished             = errors.New("deliverable has no published URL yet")
	ErrNotAwaitingReview        = errors.New("deliverable is not awaiting review")
	ErrInvalidReviewAction      = errors.New("invalid review action")
	ErrMetricsWindowNotOpen     = errors.New("metrics submission window is not open")
	ErrMetricsAlreadySubmitted  = errors.New("metrics already submitted for this platform")
	ErrEvidenceRequired         = errors.New("at least one evidence item is required")

	// Upstream collaborator errors
	ErrAIExtractionUnavailable = errors.New("metrics extraction service unavailable")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsCreatorNotFound(err error) bool {
	return errors.Is(err, ErrCreatorNotFound)
}

func IsBrandNotFound(err error) bool {
	return errors.Is(err, ErrBrandNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

func IsCampaignAccessDenied(err error) bool {
	return errors.Is(err, ErrCampaignAccessDenied)
}

func IsCampaignNotAccepting(err error) bool {
	return errors.Is(err, ErrCampaignNotAccepting)
}

func IsCampaignWindowClosed(err error) bool {
	return errors.Is(err, ErrCampaignWindowClosed)
}

func IsCampaignTitleRequired(err error) bool {
	return errors.Is(err, ErrCampaignTitleRequired)
}

func IsCampaignPlatformsRequired(err error) bool {
	return errors.Is(err, ErrCampaignPlatformsRequired)
}

func IsInvalidStatusTransition(err error) bool {
	return errors.Is(err, ErrInvalidStatusTransition)
}

func IsNoSlotsAvailable(err error) bool {
	return errors.Is(err, ErrNoSlotsAvailable)
}

func IsApplicationNotFound(err error) bool {
	return errors.Is(err, ErrApplicationNotFound)
}

func IsApplicationAlreadyActive(err error) bool {
	return errors.Is(err, ErrApplicationAlreadyActive)
}

func IsApplicationNotPending(err error) bool {
	return errors.Is(err, ErrApplicationNotPending)
}

func IsApplicationNotConfirmed(err error) bool {
	return errors.Is(err, ErrApplicationNotConfirmed)
}

func IsPlatformNotRequired(err error) bool {
	return errors.Is(err, ErrPlatformNotRequired)
}

func IsDeliverableNotFound(err error) bool {
	return errors.Is(err, ErrDeliverableNotFound)
}

func IsPostURLRequired(err error) bool {
	return errors.Is(err, ErrPostURLRequired)
}

func IsAlreadyPublished(err error) bool {
	return errors.Is(err, ErrAlreadyPublished)
}

func IsNotPublished(err error) bool {
	return errors.Is(err, ErrNotPublished)
}

func IsNotAwaitingReview(err error) bool {
	return errors.Is(err, ErrNotAwaitingReview)
}

func IsInvalidReviewAction(err error) bool {
	return errors.Is(err, ErrInvalidReviewAction)
}

func IsMetricsWindowNotOpen(err error) bool {
	return errors.Is(err, ErrMetricsWindowNotOpen)
}

func IsMetricsAlreadySubmitted(err error) bool {
	return errors.Is(err, ErrMetricsAlreadySubmitted)
}

func IsEvidenceRequired(err error) bool {
	return errors.Is(err, ErrEvidenceRequired)
}

func IsAIExtractionUnavailable(err error) bool {
	return errors.Is(err, ErrAIExtractionUnavailable)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}
