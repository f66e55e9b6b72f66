// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/martalon/colmena/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// CampaignRepository defines operations for campaigns, including the slot
// capacity primitives. Slot mutations are single conditional UPDATEs so two
// racing confirmations can never both win the last slot.
type CampaignRepository interface {
	Repository[models.Campaign, models.CampaignFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Campaign, error)
	ByBrandID(ctx context.Context, brandID uint, limit, offset int) ([]*models.Campaign, error)
	Update(ctx context.Context, campaign models.Campaign) error
	UpdateStatus(ctx context.Context, id uint, status models.CampaignStatus) error

	// TryReserveSlot atomically takes one available slot. Returns false when
	// no slot was available at execution time.
	TryReserveSlot(ctx context.Context, id uint) (bool, error)

	// ReleaseSlots returns n reserved slots to the available pool.
	ReleaseSlots(ctx context.Context, id uint, n int) error

	// GrowSlots adds amount to slots_available, and to slots_total_loaded
	// when alsoGrowTotal is set (contract reloads grow both).
	GrowSlots(ctx context.Context, id uint, amount int, alsoGrowTotal bool) error

	// UpdateContract replaces only the contract document, leaving the slot
	// counters untouched.
	UpdateContract(ctx context.Context, id uint, contract models.ContractTerms) error

	SetVisibleToCreators(ctx context.Context, id uint, visible bool) error

	ListDueForContractReload(ctx context.Context, now time.Time) ([]*models.Campaign, error)
	ListExpiredContractCampaigns(ctx context.Context, cutoff time.Time) ([]*models.Campaign, error)
	ListOpenForCreators(ctx context.Context, limit, offset int) ([]*models.Campaign, error)
}

// ApplicationRepository defines operations for creator applications
type ApplicationRepository interface {
	Repository[models.Application, models.ApplicationFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Application, error)
	Update(ctx context.Context, application models.Application) error

	// ActiveByCampaignAndCreator returns the creator's live application for
	// the campaign, nil when none exists.
	ActiveByCampaignAndCreator(ctx context.Context, campaignID, creatorID uint) (*models.Application, error)

	// UpdateStatusIf transitions the application only when its current
	// status is one of fromStatuses. Returns false when the guard failed.
	UpdateStatusIf(ctx context.Context, id uint, fromStatuses []models.ApplicationStatus, updates map[string]any) (bool, error)

	ListPendingForCampaigns(ctx context.Context, campaignIDs []uint) ([]*models.Application, error)
}

// DeliverableRepository defines operations for deliverables
type DeliverableRepository interface {
	Repository[models.Deliverable, models.DeliverableFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Deliverable, error)
	ByApplicationID(ctx context.Context, applicationID uint) (*models.Deliverable, error)
	Update(ctx context.Context, deliverable models.Deliverable) error
	UpdateStatusIf(ctx context.Context, id uint, fromStatuses []models.DeliverableStatus, updates map[string]any) (bool, error)

	// ListURLSweepCandidates returns deliverables still awaiting a post URL,
	// preloaded with creator and campaign for notification context.
	ListURLSweepCandidates(ctx context.Context) ([]*models.Deliverable, error)

	// ListMetricsSweepCandidates returns approved deliverables whose metrics
	// window is open and not yet satisfied.
	ListMetricsSweepCandidates(ctx context.Context) ([]*models.Deliverable, error)
}

// MetricsRecordRepository defines operations for per-platform metrics records
type MetricsRecordRepository interface {
	Repository[models.MetricsRecord, models.MetricsRecordFilter]
	ExistsForPlatform(ctx context.Context, deliverableID uint, platform string) (bool, error)
	PlatformsWithRecords(ctx context.Context, deliverableID uint) ([]string, error)
	ListByDeliverable(ctx context.Context, deliverableID uint) ([]*models.MetricsRecord, error)
}

// CreatorRepository defines operations for creators
type CreatorRepository interface {
	Repository[models.Creator, models.CreatorFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Creator, error)
	ByEmail(ctx context.Context, email string) (*models.Creator, error)
}

// BrandRepository defines operations for brands
type BrandRepository interface {
	Repository[models.Brand, models.BrandFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Brand, error)
	ByContactEmail(ctx context.Context, email string) (*models.Brand, error)
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByCampaign(ctx context.Context, campaignID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}
