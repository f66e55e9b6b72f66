package repository

import (
	"context"
	"errors"

	"github.com/martalon/colmena/models"
	"github.com/martalon/colmena/utils"
	"gorm.io/gorm"
)

// ApplicationRepositoryImpl implements the ApplicationRepository interface
type ApplicationRepositoryImpl struct {
	*BaseRepository[models.Application, models.ApplicationFilter]
}

// NewApplicationRepository creates a new application repository
func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &ApplicationRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Application, models.ApplicationFilter](db),
	}
}

// ByID retrieves an application by ID
func (r *ApplicationRepositoryImpl) ByID(ctx context.Context, id uint) (*models.Application, error) {
	db := r.getDB(ctx)

	var application models.Application
	err := db.Preload("Campaign").
		Preload("Creator").
		Last(&application, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &application, nil
}

// ByUUID retrieves an application by UUID
func (r *ApplicationRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Application, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.ApplicationFilter{UUID: &parsedUUID}
	applications, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(applications) == 0 {
		return nil, nil
	}

	return applications[0], nil
}

// Update updates an application
func (r *ApplicationRepositoryImpl) Update(ctx context.Context, application models.Application) error {
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
	application.UpdatedAt = &now

	err = db.Save(&application).Error
	if err != nil {
		return err
	}

	return nil
}

// ActiveByCampaignAndCreator returns the creator's live application for the
// campaign. The one-active-application rule makes at most one row match.
func (r *ApplicationRepositoryImpl) ActiveByCampaignAndCreator(ctx context.Context, campaignID, creatorID uint) (*models.Application, error) {
	db := r.getDB(ctx)

	var application models.Application
	err := db.
		Where("campaign_id = ? AND creator_id = ?", campaignID, creatorID).
		Where("status IN ?", []models.ApplicationStatus{
			models.ApplicationStatusApplied,
			models.ApplicationStatusShortlisted,
			models.ApplicationStatusConfirmed,
		}).
		Last(&application).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &application, nil
}

// UpdateStatusIf transitions the application only when its current status is
// one of fromStatuses. The conditional UPDATE makes concurrent decisions on
// the same application mutually exclusive.
func (r *ApplicationRepositoryImpl) UpdateStatusIf(ctx context.Context, id uint, fromStatuses []models.ApplicationStatus, updates map[string]any) (bool, error) {
	db := r.getDB(ctx)

	if updates == nil {
		updates = map[string]any{}
	}
	updates["updated_at"] = utils.UTCNow()

	res := db.Model(&models.Application{}).
		Where("id = ? AND status IN ?", id, fromStatuses).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

// ListPendingForCampaigns retrieves undecided applications across campaigns.
// Applications already auto-rejected are excluded so sweeps never pick the
// same row twice.
func (r *ApplicationRepositoryImpl) ListPendingForCampaigns(ctx context.Context, campaignIDs []uint) ([]*models.Application, error) {
	if len(campaignIDs) == 0 {
		return nil, nil
	}

	db := r.getDB(ctx)

	var applications []*models.Application
	err := db.
		Where("campaign_id IN ?", campaignIDs).
		Where("status IN ?", []models.ApplicationStatus{
			models.ApplicationStatusApplied,
			models.ApplicationStatusShortlisted,
		}).
		Where("auto_rejected = ?", false).
		Preload("Creator").
		Order("id ASC").
		Find(&applications).Error
	if err != nil {
		return nil, err
	}

	return applications, nil
}

// ByFilter retrieves applications based on filter criteria
func (r *ApplicationRepositoryImpl) ByFilter(ctx context.Context, filter models.ApplicationFilter, orderBy string, limit, offset int) ([]*models.Application, error) {
	db := r.getDB(ctx)

	var applications []*models.Application
	query := r.applyFilter(db, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	query = query.Preload("Campaign").
		Preload("Creator")

	err := query.Find(&applications).Error
	if err != nil {
		return nil, err
	}

	return applications, nil
}

// Count returns the number of applications matching the filter
func (r *ApplicationRepositoryImpl) Count(ctx context.Context, filter models.ApplicationFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var application models.Application
	query := r.applyFilter(db.Model(&application), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any application matching the filter exists
func (r *ApplicationRepositoryImpl) Exists(ctx context.Context, filter models.ApplicationFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *ApplicationRepositoryImpl) applyFilter(db *gorm.DB, filter models.ApplicationFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.CampaignID != nil {
		db = db.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.CreatorID != nil {
		db = db.Where("creator_id = ?", *filter.CreatorID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if len(filter.Statuses) > 0 {
		db = db.Where("status IN ?", filter.Statuses)
	}
	if filter.Platform != nil {
		db = db.Where("platform = ?", *filter.Platform)
	}

	return db
}
