package repository

import (
	"context"

	"github.com/martalon/colmena/models"
	"gorm.io/gorm"
)

// MetricsRecordRepositoryImpl implements the MetricsRecordRepository interface
type MetricsRecordRepositoryImpl struct {
	*BaseRepository[models.MetricsRecord, models.MetricsRecordFilter]
}

// NewMetricsRecordRepository creates a new metrics record repository
func NewMetricsRecordRepository(db *gorm.DB) MetricsRecordRepository {
	return &MetricsRecordRepositoryImpl{
		BaseRepository: NewBaseRepository[models.MetricsRecord, models.MetricsRecordFilter](db),
	}
}

// ExistsForPlatform checks whether the deliverable already has a record for
// the platform
func (r *MetricsRecordRepositoryImpl) ExistsForPlatform(ctx context.Context, deliverableID uint, platform string) (bool, error) {
	filter := models.MetricsRecordFilter{
		DeliverableID: &deliverableID,
		Platform:      &platform,
	}
	return r.Exists(ctx, filter)
}

// PlatformsWithRecords returns the platforms the deliverable already has
// records for
func (r *MetricsRecordRepositoryImpl) PlatformsWithRecords(ctx context.Context, deliverableID uint) ([]string, error) {
	db := r.getDB(ctx)

	var platforms []string
	err := db.Model(&models.MetricsRecord{}).
		Where("deliverable_id = ?", deliverableID).
		Distinct().
		Pluck("platform", &platforms).Error
	if err != nil {
		return nil, err
	}

	return platforms, nil
}

// ListByDeliverable retrieves all records for a deliverable
func (r *MetricsRecordRepositoryImpl) ListByDeliverable(ctx context.Context, deliverableID uint) ([]*models.MetricsRecord, error) {
	filter := models.MetricsRecordFilter{DeliverableID: &deliverableID}
	return r.ByFilter(ctx, filter, "platform ASC", 0, 0)
}

// ByFilter retrieves metrics records based on filter criteria
func (r *MetricsRecordRepositoryImpl) ByFilter(ctx context.Context, filter models.MetricsRecordFilter, orderBy string, limit, offset int) ([]*models.MetricsRecord, error) {
	db := r.getDB(ctx)

	var records []*models.MetricsRecord
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

	err := query.Find(&records).Error
	if err != nil {
		return nil, err
	}

	return records, nil
}

// Count returns the number of metrics records matching the filter
func (r *MetricsRecordRepositoryImpl) Count(ctx context.Context, filter models.MetricsRecordFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var record models.MetricsRecord
	query := r.applyFilter(db.Model(&record), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any metrics record matching the filter exists
func (r *MetricsRecordRepositoryImpl) Exists(ctx context.Context, filter models.MetricsRecordFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *MetricsRecordRepositoryImpl) applyFilter(db *gorm.DB, filter models.MetricsRecordFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.DeliverableID != nil {
		db = db.Where("deliverable_id = ?", *filter.DeliverableID)
	}
	if filter.CreatorID != nil {
		db = db.Where("creator_id = ?", *filter.CreatorID)
	}
	if filter.CampaignID != nil {
		db = db.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.Platform != nil {
		db = db.Where("platform = ?", *filter.Platform)
	}
	if filter.AIExtracted != nil {
		db = db.Where("ai_extracted = ?", *filter.AIExtracted)
	}

	return db
}
