package repository

import (
	"context"

	"github.com/martalon/colmena/models"
	"github.com/martalon/colmena/utils"
	"gorm.io/gorm"
)

// BrandRepositoryImpl implements the BrandRepository interface
type BrandRepositoryImpl struct {
	*BaseRepository[models.Brand, models.BrandFilter]
}

// NewBrandRepository creates a new brand repository
func NewBrandRepository(db *gorm.DB) BrandRepository {
	return &BrandRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Brand, models.BrandFilter](db),
	}
}

// ByUUID retrieves a brand by UUID
func (r *BrandRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Brand, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.BrandFilter{UUID: &parsedUUID}
	brands, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(brands) == 0 {
		return nil, nil
	}

	return brands[0], nil
}

// ByContactEmail retrieves a brand by contact email
func (r *BrandRepositoryImpl) ByContactEmail(ctx context.Context, email string) (*models.Brand, error) {
	filter := models.BrandFilter{ContactEmail: &email}
	brands, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(brands) == 0 {
		return nil, nil
	}

	return brands[0], nil
}

// ByFilter retrieves brands based on filter criteria
func (r *BrandRepositoryImpl) ByFilter(ctx context.Context, filter models.BrandFilter, orderBy string, limit, offset int) ([]*models.Brand, error) {
	db := r.getDB(ctx)

	var brands []*models.Brand
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

	err := query.Find(&brands).Error
	if err != nil {
		return nil, err
	}

	return brands, nil
}

// Count returns the number of brands matching the filter
func (r *BrandRepositoryImpl) Count(ctx context.Context, filter models.BrandFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var brand models.Brand
	query := r.applyFilter(db.Model(&brand), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any brand matching the filter exists
func (r *BrandRepositoryImpl) Exists(ctx context.Context, filter models.BrandFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *BrandRepositoryImpl) applyFilter(db *gorm.DB, filter models.BrandFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.ContactEmail != nil {
		db = db.Where("contact_email = ?", *filter.ContactEmail)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}

	return db
}
