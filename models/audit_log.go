package models

import (
	"encoding/json"
	"time"

	"github.com/martalon/colmena/utils"
	"gorm.io/gorm"
)

// Audit action constants for the collaboration lifecycle
const (
	AuditActionCampaignCreated   = "campaign_created"
	AuditActionCampaignPublished = "campaign_published"
	AuditActionCampaignClosed    = "campaign_closed"

	AuditActionApplicationApplied      = "application_applied"
	AuditActionApplicationConfirmed    = "application_confirmed"
	AuditActionApplicationRejected     = "application_rejected"
	AuditActionApplicationCancelled    = "application_cancelled"
	AuditActionApplicationAutoRejected = "application_auto_rejected"

	AuditActionDeliverablePublished        = "deliverable_published"
	AuditActionDeliverableSubmitted        = "deliverable_submitted"
	AuditActionDeliverableApproved         = "deliverable_approved"
	AuditActionDeliverableChangesRequested = "deliverable_changes_requested"
	AuditActionDeliverableCompleted        = "deliverable_completed"

	AuditActionMetricsSubmitted = "metrics_submitted"

	AuditActionContractSlotsReloaded = "contract_slots_reloaded"
	AuditActionReminderSent          = "reminder_sent"
)

// Actor types for audit entries
const (
	AuditActorCreator = "creator"
	AuditActorBrand   = "brand"
	AuditActorAdmin   = "admin"
	AuditActorSystem  = "system"
)

// AuditLog records a lifecycle event for compliance and debugging
type AuditLog struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ActorType string `gorm:"size:16;not null;index:idx_audit_logs_actor" json:"actor_type"`
	ActorID   *uint  `gorm:"index:idx_audit_logs_actor" json:"actor_id,omitempty"`
	Action    string `gorm:"size:64;not null;index:idx_audit_logs_action" json:"action"`

	CampaignID    *uint `gorm:"index:idx_audit_logs_campaign_id" json:"campaign_id,omitempty"`
	ApplicationID *uint `json:"application_id,omitempty"`
	DeliverableID *uint `json:"deliverable_id,omitempty"`

	Description *string         `gorm:"size:1000" json:"description,omitempty"`
	Metadata    json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`

	IPAddress *string `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent *string `gorm:"size:1000" json:"user_agent,omitempty"`
	RequestID *string `gorm:"size:64;index:idx_audit_logs_request_id" json:"request_id,omitempty"`

	Success      bool    `gorm:"not null;default:true" json:"success"`
	ErrorMessage *string `gorm:"size:1000" json:"error_message,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_audit_logs_created_at" json:"created_at"`
}

// TableName returns the table name for the model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// BeforeCreate is called before creating a new record
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = utils.UTCNow()
	}
	return nil
}

// IsFailed checks if the audited action failed
func (a *AuditLog) IsFailed() bool {
	return !a.Success
}

// IsSystemAction checks if the entry was produced by a scheduler
func (a *AuditLog) IsSystemAction() bool {
	return a.ActorType == AuditActorSystem
}

// AuditLogFilter represents filter criteria for audit logs
type AuditLogFilter struct {
	ID            *uint      `json:"id,omitempty"`
	ActorType     *string    `json:"actor_type,omitempty"`
	ActorID       *uint      `json:"actor_id,omitempty"`
	Action        *string    `json:"action,omitempty"`
	CampaignID    *uint      `json:"campaign_id,omitempty"`
	ApplicationID *uint      `json:"application_id,omitempty"`
	DeliverableID *uint      `json:"deliverable_id,omitempty"`
	RequestID     *string    `json:"request_id,omitempty"`
	Success       *bool      `json:"success,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
