package repository

import (
	"context"
	"errors"

	"time"

	"github.com/martalon/colmena/models"
	"github.com/martalon/colmena/utils"
	"gorm.io/gorm"
)

// CampaignRepositoryImpl implements the CampaignRepository interface
type CampaignRepositoryImpl struct {
	*BaseRepository[models.Campaign, models.CampaignFilter]
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(db *gorm.DB) CampaignRepository {
	return &CampaignRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Campaign, models.CampaignFilter](db),
	}
}

// ByID retrieves a campaign by ID
func (r *CampaignRepositoryImpl) ByID(ctx context.Context, id uint) (*models.Campaign, error) {
	db := r.getDB(ctx)

	var campaign models.Campaign
	err := db.Preload("Brand").
		Last(&campaign, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &campaign, nil
}

// ByUUID retrieves a campaign by UUID
func (r *CampaignRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Campaign, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.CampaignFilter{UUID: &parsedUUID}
	campaigns, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(campaigns) == 0 {
		return nil, nil
	}

	return campaigns[0], nil
}

// ByBrandID retrieves campaigns by brand ID with pagination
func (r *CampaignRepositoryImpl) ByBrandID(ctx context.Context, brandID uint, limit, offset int) ([]*models.Campaign, error) {
	filter := models.CampaignFilter{BrandID: &brandID}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

// Update updates a campaign
func (r *CampaignRepositoryImpl) Update(ctx context.Context, campaign models.Campaign) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	now := utils.UTCNow()
	campaign.UpdatedAt = &now

	err = db.Save(&campaign).Error
	if err != nil {
		return err
	}

	return nil
}

// UpdateStatus updates only the status of a campaign
func (r *CampaignRepositoryImpl) UpdateStatus(ctx context.Context, id uint, status models.CampaignStatus) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Model(&models.Campaign{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": utils.UTCNow(),
		}).Error
	if err != nil {
		return err
	}

	return nil
}

// TryReserveSlot atomically decrements slots_available and increments
// slots_filled in a single conditional UPDATE. The WHERE guard makes the
// database the arbiter under concurrency: of N racing reservations against
// one remaining slot, exactly one statement matches a row.
func (r *CampaignRepositoryImpl) TryReserveSlot(ctx context.Context, id uint) (bool, error) {
	db := r.getDB(ctx)

	res := db.Model(&models.Campaign{}).
		Where("id = ? AND slots_available > 0", id).
		Updates(map[string]any{
			"slots_available": gorm.Expr("slots_available - 1"),
			"slots_filled":    gorm.Expr("slots_filled + 1"),
			"updated_at":      utils.UTCNow(),
		})
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

// ReleaseSlots returns n reserved slots to the available pool. The guard on
// slots_filled keeps the counters from ever crossing zero.
func (r *CampaignRepositoryImpl) ReleaseSlots(ctx context.Context, id uint, n int) error {
	if n <= 0 {
		return nil
	}

	db := r.getDB(ctx)

	res := db.Model(&models.Campaign{}).
		Where("id = ? AND slots_filled >= ?", id, n).
		Updates(map[string]any{
			"slots_available": gorm.Expr("slots_available + ?", n),
			"slots_filled":    gorm.Expr("slots_filled - ?", n),
			"updated_at":      utils.UTCNow(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// GrowSlots adds capacity. Contract reloads grow both the available pool and
// the total-loaded counter so the slot invariant keeps holding.
func (r *CampaignRepositoryImpl) GrowSlots(ctx context.Context, id uint, amount int, alsoGrowTotal bool) error {
	if amount <= 0 {
		return nil
	}

	db := r.getDB(ctx)

	updates := map[string]any{
		"slots_available": gorm.Expr("slots_available + ?", amount),
		"updated_at":      utils.UTCNow(),
	}
	if alsoGrowTotal {
		updates["slots_total_loaded"] = gorm.Expr("slots_total_loaded + ?", amount)
	}

	res := db.Model(&models.Campaign{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// UpdateContract replaces only the contract document. The slot counters are
// mutated exclusively through GrowSlots/TryReserveSlot/ReleaseSlots, so a
// contract update never carries stale counter values.
func (r *CampaignRepositoryImpl) UpdateContract(ctx context.Context, id uint, contract models.ContractTerms) error {
	db := r.getDB(ctx)

	res := db.Model(&models.Campaign{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"contract":   contract,
			"updated_at": utils.UTCNow(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// SetVisibleToCreators toggles the creator-facing visibility flag
func (r *CampaignRepositoryImpl) SetVisibleToCreators(ctx context.Context, id uint, visible bool) error {
	db := r.getDB(ctx)

	return db.Model(&models.Campaign{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"visible_to_creators": visible,
			"updated_at":          utils.UTCNow(),
		}).Error
}

// ListDueForContractReload retrieves campaigns with an active contract whose
// next reload date has arrived
func (r *CampaignRepositoryImpl) ListDueForContractReload(ctx context.Context, now time.Time) ([]*models.Campaign, error) {
	db := r.getDB(ctx)

	var campaigns []*models.Campaign
	err := db.
		Where("status IN ?", []models.CampaignStatus{models.CampaignStatusLive, models.CampaignStatusInProduction}).
		Where("(contract->>'is_active')::boolean = true").
		Where("(contract->>'next_reload_date')::timestamptz <= ?", now).
		Preload("Brand").
		Order("id ASC").
		Find(&campaigns).Error
	if err != nil {
		return nil, err
	}

	return campaigns, nil
}

// ListExpiredContractCampaigns retrieves campaigns whose contract has been
// deactivated and whose end date is at or before cutoff. The reload job is the
// one that deactivates contracts, so inactive plus an old end date means the
// campaign is past its grace period.
func (r *CampaignRepositoryImpl) ListExpiredContractCampaigns(ctx context.Context, cutoff time.Time) ([]*models.Campaign, error) {
	db := r.getDB(ctx)

	var campaigns []*models.Campaign
	err := db.
		Where("(contract->>'is_active')::boolean = false").
		Where("contract->>'end_date' IS NOT NULL").
		Where("(contract->>'end_date')::timestamptz <= ?", cutoff).
		Order("id ASC").
		Find(&campaigns).Error
	if err != nil {
		return nil, err
	}

	return campaigns, nil
}

// ListOpenForCreators retrieves creator-visible campaigns accepting applications
func (r *CampaignRepositoryImpl) ListOpenForCreators(ctx context.Context, limit, offset int) ([]*models.Campaign, error) {
	visible := true
	filter := models.CampaignFilter{
		Statuses:          []models.CampaignStatus{models.CampaignStatusLive, models.CampaignStatusInProduction},
		VisibleToCreators: &visible,
	}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

// ByFilter retrieves campaigns based on filter criteria
func (r *CampaignRepositoryImpl) ByFilter(ctx context.Context, filter models.CampaignFilter, orderBy string, limit, offset int) ([]*models.Campaign, error) {
	db := r.getDB(ctx)

	var campaigns []*models.Campaign
	query := r.applyFilter(db, filter)

	// Apply ordering
	if orderBy != "" {
		query = query.Order(orderBy)
	}

	// Apply pagination
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	// Preload relationships
	query = query.Preload("Brand")

	err := query.Find(&campaigns).Error
	if err != nil {
		return nil, err
	}

	return campaigns, nil
}

// Count returns the number of campaigns matching the filter
func (r *CampaignRepositoryImpl) Count(ctx context.Context, filter models.CampaignFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var campaign models.Campaign
	query := r.applyFilter(db.Model(&campaign), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any campaign matching the filter exists
func (r *CampaignRepositoryImpl) Exists(ctx context.Context, filter models.CampaignFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *CampaignRepositoryImpl) applyFilter(db *gorm.DB, filter models.CampaignFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.BrandID != nil {
		db = db.Where("brand_id = ?", *filter.BrandID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if len(filter.Statuses) > 0 {
		db = db.Where("status IN ?", filter.Statuses)
	}
	if filter.VisibleToCreators != nil {
		db = db.Where("visible_to_creators = ?", *filter.VisibleToCreators)
	}
	if filter.ContractActive != nil {
		db = db.Where("(contract->>'is_active')::boolean = ?", *filter.ContractActive)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}
