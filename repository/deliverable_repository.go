package repository

import (
	"context"
	"errors"

	"github.com/martalon/colmena/models"
	"github.com/martalon/colmena/utils"
	"gorm.io/gorm"
)

// DeliverableRepositoryImpl implements the DeliverableRepository interface
type DeliverableRepositoryImpl struct {
	*BaseRepository[models.Deliverable, models.DeliverableFilter]
}

// NewDeliverableRepository creates a new deliverable repository
func NewDeliverableRepository(db *gorm.DB) DeliverableRepository {
	return &DeliverableRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Deliverable, models.DeliverableFilter](db),
	}
}

// ByID retrieves a deliverable by ID
func (r *DeliverableRepositoryImpl) ByID(ctx context.Context, id uint) (*models.Deliverable, error) {
	db := r.getDB(ctx)

	var deliverable models.Deliverable
	err := db.Preload("Campaign").
		Preload("Creator").
		Last(&deliverable, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &deliverable, nil
}

// ByUUID retrieves a deliverable by UUID
func (r *DeliverableRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Deliverable, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.DeliverableFilter{UUID: &parsedUUID}
	deliverables, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(deliverables) == 0 {
		return nil, nil
	}

	return deliverables[0], nil
}

// ByApplicationID retrieves the deliverable created for an application
func (r *DeliverableRepositoryImpl) ByApplicationID(ctx context.Context, applicationID uint) (*models.Deliverable, error) {
	db := r.getDB(ctx)

	var deliverable models.Deliverable
	err := db.
		Where("application_id = ?", applicationID).
		Last(&deliverable).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &deliverable, nil
}

// Update updates a deliverable
func (r *DeliverableRepositoryImpl) Update(ctx context.Context, deliverable models.Deliverable) error {
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
	deliverable.UpdatedAt = &now

	err = db.Save(&deliverable).Error
	if err != nil {
		return err
	}

	return nil
}

// UpdateStatusIf transitions the deliverable only when its current status is
// one of fromStatuses
func (r *DeliverableRepositoryImpl) UpdateStatusIf(ctx context.Context, id uint, fromStatuses []models.DeliverableStatus, updates map[string]any) (bool, error) {
	db := r.getDB(ctx)

	if updates == nil {
		updates = map[string]any{}
	}
	updates["updated_at"] = utils.UTCNow()

	res := db.Model(&models.Deliverable{}).
		Where("id = ? AND status IN ?", id, fromStatuses).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

// ListURLSweepCandidates retrieves deliverables still awaiting a post URL.
// Creator and campaign come preloaded for notification context.
func (r *DeliverableRepositoryImpl) ListURLSweepCandidates(ctx context.Context) ([]*models.Deliverable, error) {
	db := r.getDB(ctx)

	var deliverables []*models.Deliverable
	err := db.
		Where("status IN ?", []models.DeliverableStatus{
			models.DeliverableStatusAwaitingPublish,
			models.DeliverableStatusChangesRequested,
		}).
		Preload("Campaign").
		Preload("Creator").
		Order("content_deadline ASC").
		Find(&deliverables).Error
	if err != nil {
		return nil, err
	}

	return deliverables, nil
}

// ListMetricsSweepCandidates retrieves deliverables waiting on metrics with
// an open submission window
func (r *DeliverableRepositoryImpl) ListMetricsSweepCandidates(ctx context.Context) ([]*models.Deliverable, error) {
	db := r.getDB(ctx)

	var deliverables []*models.Deliverable
	err := db.
		Where("status = ?", models.DeliverableStatusMetricsPending).
		Where("metrics_window_closes_at IS NOT NULL").
		Preload("Campaign").
		Preload("Creator").
		Order("metrics_window_closes_at ASC").
		Find(&deliverables).Error
	if err != nil {
		return nil, err
	}

	return deliverables, nil
}

// ByFilter retrieves deliverables based on filter criteria
func (r *DeliverableRepositoryImpl) ByFilter(ctx context.Context, filter models.DeliverableFilter, orderBy string, limit, offset int) ([]*models.Deliverable, error) {
	db := r.getDB(ctx)

	var deliverables []*models.Deliverable
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

	err := query.Find(&deliverables).Error
	if err != nil {
		return nil, err
	}

	return deliverables, nil
}

// Count returns the number of deliverables matching the filter
func (r *DeliverableRepositoryImpl) Count(ctx context.Context, filter models.DeliverableFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var deliverable models.Deliverable
	query := r.applyFilter(db.Model(&deliverable), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any deliverable matching the filter exists
func (r *DeliverableRepositoryImpl) Exists(ctx context.Context, filter models.DeliverableFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *DeliverableRepositoryImpl) applyFilter(db *gorm.DB, filter models.DeliverableFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.ApplicationID != nil {
		db = db.Where("application_id = ?", *filter.ApplicationID)
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
	if filter.DeadlineBefore != nil {
		db = db.Where("content_deadline < ?", *filter.DeadlineBefore)
	}
	if filter.DeadlineAfter != nil {
		db = db.Where("content_deadline >= ?", *filter.DeadlineAfter)
	}

	return db
}
