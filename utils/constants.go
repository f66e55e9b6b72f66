package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Campaign lifecycle constants
const (
	// DefaultDeliverySLA is the content deadline offset applied when a
	// campaign does not configure delivery_sla_hours (7 days)
	DefaultDeliverySLA = 7 * 24 * time.Hour

	// DefaultMetricsWindowDays is how long after approval a creator has to
	// submit performance metrics
	DefaultMetricsWindowDays = 14

	// AutoRejectGraceDays is how long after a contract expires that pending
	// applications are still left untouched before auto-rejection
	AutoRejectGraceDays = 30

	// AutoRejectReason is the rejection reason recorded by the scheduler
	AutoRejectReason = "campaign closed, automatic rejection"

	// AIExtractionAttempts bounds retries against the extraction collaborator
	AIExtractionAttempts = 2
)

// Reminder escalation tier bounds (days until deadline)
const (
	ReminderStandardMin = -6
	ReminderStandardMax = 2
	ReminderDay7        = -7
	ReminderDay8Final   = -8
)

// Cache keys
const (
	OpenCampaignsCacheKey        = "open_campaigns"
	CampaignAvailabilityCacheKey = "campaign_availability"
)
